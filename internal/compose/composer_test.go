package compose

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/router"
)

type recordingCompleter struct {
	reply    string
	err      error
	messages []ai.ChatMessage
	opts     ai.CompletionOptions
}

func (r *recordingCompleter) Complete(_ context.Context, m []ai.ChatMessage, o ai.CompletionOptions) (string, error) {
	r.messages, r.opts = m, o
	return r.reply, r.err
}

func history(n int) []ai.ChatMessage {
	out := make([]ai.ChatMessage, n)
	for i := range out {
		role := ai.RoleUser
		if i%2 == 1 {
			role = ai.RoleAssistant
		}
		out[i] = ai.ChatMessage{Role: role, Content: fmt.Sprintf("turn %d", i)}
	}
	return out
}

func TestFinalize(t *testing.T) {
	sources := []string{"refund.pdf", "WhatsApp"}
	tests := []struct {
		name    string
		in      string
		sources []string
		want    string
	}{
		{
			name:    "appends missing section",
			in:      "Refunds take 30 days.\n",
			sources: sources,
			want:    "Refunds take 30 days.\n\n**Sources:**\n- refund.pdf\n- WhatsApp",
		},
		{
			name:    "replaces model written section",
			in:      "Refunds take 30 days.\n\n**Sources:**\n- made-up.pdf\n- refund.pdf",
			sources: sources,
			want:    "Refunds take 30 days.\n\n**Sources:**\n- refund.pdf\n- WhatsApp",
		},
		{
			name:    "cuts at the last section",
			in:      "Answer.\n\n## Sources\n- x\n\nSources: y.pdf",
			sources: []string{"a.pdf"},
			want:    "Answer.\n\n## Sources\n- x\n\n**Sources:**\n- a.pdf",
		},
		{
			name:    "prose starting with the word is kept",
			in:      "Sources of revenue include rent.",
			sources: []string{"ledger.pdf"},
			want:    "Sources of revenue include rent.\n\n**Sources:**\n- ledger.pdf",
		},
		{
			name: "no sources leaves text alone",
			in:   "  Hello there.  ",
			want: "Hello there.",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Finalize(tc.in, tc.sources))
		})
	}
}

func TestFinalize_CitesEverySourceExactlyOnce(t *testing.T) {
	all := []string{"a.pdf", "b.docx", "WhatsApp", "Gmail", "sales.xlsx"}
	replies := []string{
		"Plain answer.",
		"Answer.\n**Sources:**\n- a.pdf\n- a.pdf",
		"Answer citing [b.docx].\n\nSources:\n* nothing",
	}
	for n := 1; n <= len(all); n++ {
		for _, reply := range replies {
			got := Finalize(reply, all[:n])

			idx := strings.LastIndex(got, "**Sources:**")
			require.GreaterOrEqual(t, idx, 0)
			section := strings.Split(strings.TrimPrefix(got[idx:], "**Sources:**\n"), "\n")
			want := make([]string, n)
			for i, s := range all[:n] {
				want[i] = "- " + s
			}
			assert.Equal(t, want, section)
		}
	}
}

func TestComposer_Messages(t *testing.T) {
	c := New(&recordingCompleter{}, Options{HistoryTurns: 4}, nil)

	t.Run("rag", func(t *testing.T) {
		msgs := c.Messages(Request{
			Route:    router.RouteRAG,
			Query:    "What is the refund window?",
			Evidence: "Source: refund.pdf\nRefunds within 30 days",
			Sources:  []string{"refund.pdf", "WhatsApp"},
			History:  history(7),
		})

		require.Len(t, msgs, 6)
		assert.Equal(t, documentSystemPrompt, msgs[0].Content)
		assert.Equal(t, "turn 3", msgs[1].Content)
		assert.Equal(t, "turn 6", msgs[4].Content)
		user := msgs[5]
		assert.Equal(t, ai.RoleUser, user.Role)
		assert.Contains(t, user.Content, "Context:\nSource: refund.pdf\nRefunds within 30 days\n\n\nAvailable sources for citation: refund.pdf, WhatsApp")
		assert.Contains(t, user.Content, "Question: What is the refund window?")
	})

	t.Run("excel", func(t *testing.T) {
		msgs := c.Messages(Request{
			Route:    router.RouteExcel,
			Query:    "total sum of sales",
			Evidence: "[Analysis from sales.xlsx]\n1400",
			Sources:  []string{"sales.xlsx"},
		})

		require.Len(t, msgs, 2)
		assert.Contains(t, msgs[0].Content, "ONLY cite spreadsheet sources: sales.xlsx")
		assert.Contains(t, msgs[1].Content, "Data Analysis Result:\n[Analysis from sales.xlsx]\n1400")
		assert.NotContains(t, msgs[1].Content, "Context:")
	})

	t.Run("general", func(t *testing.T) {
		msgs := c.Messages(Request{Route: router.RouteGeneral, Query: "hi", History: history(2)})

		require.Len(t, msgs, 4)
		assert.Equal(t, generalSystemPrompt, msgs[0].Content)
		assert.Equal(t, ai.ChatMessage{Role: ai.RoleUser, Content: "hi"}, msgs[3])
	})
}

func TestComposer_Compose(t *testing.T) {
	rc := &recordingCompleter{reply: "Refunds take 30 days.\n\nSources:\n- refund.pdf"}
	c := New(rc, Options{Temperature: -1}, nil)

	got, err := c.Compose(context.Background(), Request{
		Route:   router.RouteRAG,
		Query:   "refund window?",
		Sources: []string{"refund.pdf", "WhatsApp"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Refunds take 30 days.\n\n**Sources:**\n- refund.pdf\n- WhatsApp", got)
	assert.Equal(t, DefaultTemperature, rc.opts.Temperature)
	assert.Equal(t, DefaultMaxTokens, rc.opts.MaxTokens)
	assert.False(t, rc.opts.JSON)

	_, err = New(&recordingCompleter{err: assert.AnError}, Options{}, nil).Compose(context.Background(), Request{Query: "x"})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestComposer_ZeroTemperatureIsSent(t *testing.T) {
	rc := &recordingCompleter{reply: "ok"}

	_, err := New(rc, Options{Temperature: 0}, nil).Compose(context.Background(), Request{Query: "x"})

	require.NoError(t, err)
	assert.Zero(t, rc.opts.Temperature)
}

func TestDirect_FormatsAlignedTables(t *testing.T) {
	got := Direct("Totals:\nregion  total  count\nNorth  150  2\nSouth  250  1\n")

	want := "Totals:\n| region | total | count |\n| :--- | ---: | ---: |\n| North | 150 | 2 |\n| South | 250 | 1 |"
	assert.Equal(t, want, got)
}
