package tabular

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyst_QueryThenFinal(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		`{"action":"query","plan":{"aggregates":[{"func":"sum","column":"total","as":"total_sales"}]}}`,
		"```json\n{\"action\":\"final\",\"answer\":\"Total sales are 1400.\",\"include_result\":true}\n```",
	}}

	got, err := NewAnalyst(c, 10, 50, nil).Analyze(context.Background(), salesTable(t), "total sum of sales")

	require.NoError(t, err)
	assert.Equal(t, "Total sales are 1400.\n\n| total_sales |\n| ---: |\n| 1400 |", got)
	require.Equal(t, 2, c.calls())

	first := c.prompts[0]
	assert.Contains(t, first[0].Content, `named "sales.xlsx"`)
	assert.Contains(t, first[0].Content, "4 rows and 2 columns")
	assert.Equal(t, "total sum of sales", first[1].Content)

	second := c.prompts[1]
	assert.Equal(t, "Observation:\n| total_sales |\n| ---: |\n| 1400 |", second[len(second)-1].Content)
}

func TestAnalyst_RecoversFromBadSteps(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		"I think the answer is big",
		`{"action":"query","plan":{"select":["profit"]}}`,
		`{"action":"dance"}`,
		`{"action":"final","answer":"Four rows."}`,
	}}

	got, err := NewAnalyst(c, 10, 50, nil).Analyze(context.Background(), salesTable(t), "how many rows?")

	require.NoError(t, err)
	assert.Equal(t, "Four rows.", got)
	last := c.prompts[3]
	var observations []string
	for _, m := range last {
		if strings.HasPrefix(m.Content, "Observation:") {
			observations = append(observations, m.Content)
		}
	}
	require.Len(t, observations, 3)
	assert.Contains(t, observations[0], "no JSON object")
	assert.Contains(t, observations[1], `unknown column "profit"`)
	assert.Contains(t, observations[2], `unknown action "dance"`)
}

func TestAnalyst_StopsAtMaxIterations(t *testing.T) {
	loop := `{"action":"query","plan":{"select":["region"]}}`
	c := &scriptedCompleter{replies: []string{loop, loop, loop, loop}}

	_, err := NewAnalyst(c, 3, 50, nil).Analyze(context.Background(), salesTable(t), "list regions")

	assert.ErrorIs(t, err, ErrIterationsExhausted)
	assert.Equal(t, 3, c.calls())
}

func TestAnalyst_EmptyFinal(t *testing.T) {
	c := &scriptedCompleter{replies: []string{`{"action":"final","answer":"  "}`}}

	_, err := NewAnalyst(c, 3, 50, nil).Analyze(context.Background(), salesTable(t), "q")

	assert.ErrorIs(t, err, ErrNoAnswer)
}

func TestAnalyst_CompleterError(t *testing.T) {
	c := &scriptedCompleter{err: assert.AnError}

	_, err := NewAnalyst(c, 3, 50, nil).Analyze(context.Background(), salesTable(t), "q")

	assert.ErrorIs(t, err, assert.AnError)
}
