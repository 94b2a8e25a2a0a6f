package tabular

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gopherai-docqa/internal/pkg/sheetextract"
)

func namedTable(t *testing.T, name string) *Table {
	t.Helper()
	tbl, err := FromRows(name, []string{"k", "v"}, [][]string{{"a", "1"}})
	require.NoError(t, err)
	return tbl
}

func TestEngine_SalesScenario(t *testing.T) {
	c := &scriptedCompleter{replies: []string{
		`{"action":"query","plan":{"aggregates":[{"func":"sum","column":"total"}]}}`,
		`{"action":"final","answer":"The total sum of sales is 1400."}`,
	}}
	e := NewEngine(NewAnalyst(c, 10, 50, nil), nil, nil)
	e.Add(salesTable(t))

	require.True(t, e.IsQuantitative("total sum of sales"))
	got := e.Run(context.Background(), "total sum of sales")

	assert.False(t, got.Failed)
	assert.Equal(t, "sales.xlsx", got.Table)
	assert.Equal(t, "[Analysis from sales.xlsx]\nThe total sum of sales is 1400.", got.Text)
}

func TestEngine_IsQuantitative(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	e.Add(namedTable(t, "Inventory.xlsx"))

	assert.True(t, e.IsQuantitative("What is the AVERAGE price?"))
	assert.True(t, e.IsQuantitative("tell me about inventory"))
	assert.False(t, e.IsQuantitative("What does the refund policy say?"))
	// substring matching: "min" inside "administration"
	assert.True(t, e.IsQuantitative("who handles administration?"))

	custom := NewEngine(nil, []string{"Tally"}, nil)
	assert.True(t, custom.IsQuantitative("tally the orders"))
	assert.False(t, custom.IsQuantitative("how many orders"))
}

func TestEngine_Select(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	_, ok := e.Select("anything")
	assert.False(t, ok)

	e.Add(namedTable(t, "sales.xlsx"))
	only, _ := e.Select("inventory levels")
	assert.Equal(t, "sales.xlsx", only.Name)

	e.Add(namedTable(t, "inventory.xlsx"))
	e.Add(namedTable(t, "hr.csv"))

	byStem, _ := e.Select("Sales by month")
	assert.Equal(t, "sales.xlsx", byStem.Name)
	recent, _ := e.Select("what is the mean?")
	assert.Equal(t, "hr.csv", recent.Name)

	e.Add(namedTable(t, "sales.xlsx"))
	assert.Equal(t, []string{"inventory.xlsx", "hr.csv", "sales.xlsx"}, e.Names())
	recent, _ = e.Select("what is the mean?")
	assert.Equal(t, "sales.xlsx", recent.Name)
}

func TestEngine_RunFailuresAreText(t *testing.T) {
	e := NewEngine(&stubAnalyzer{err: ErrIterationsExhausted}, nil, nil)

	empty := e.Run(context.Background(), "count rows")
	assert.True(t, empty.Failed)
	assert.Equal(t, NoTablesMessage, empty.Text)

	e.Add(salesTable(t))
	got := e.Run(context.Background(), "count rows")
	assert.True(t, got.Failed)
	assert.Contains(t, got.Text, "Error analyzing table data: ")
	assert.Contains(t, got.Text, ErrIterationsExhausted.Error())
}

func TestEngine_ResetAndSummaries(t *testing.T) {
	e := NewEngine(nil, nil, nil)
	e.Add(salesTable(t))

	sums := e.Summaries()
	require.Len(t, sums, 1)
	assert.Equal(t, 4, sums[0].Rows)

	e.Reset()
	assert.Equal(t, 0, e.Len())
	assert.False(t, e.IsQuantitative("sales"))
}

func TestEngine_ConcurrentAddAndRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewEngine(&stubAnalyzer{answer: "ok"}, nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tbl, err := NewTable("t.xlsx", []sheetextract.Sheet{{Rows: [][]string{{"a"}, {"1"}}}})
			assert.NoError(t, err)
			e.Add(tbl)
		}()
		go func() {
			defer wg.Done()
			_ = e.IsQuantitative("count")
			_, _ = e.Select("x")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, e.Len())
}
