package tabular

import (
	"context"
	"errors"
	"sync"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/pkg/sheetextract"
)

// scriptedCompleter replays canned replies in order and records every prompt.
type scriptedCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	prompts [][]ai.ChatMessage
}

func (s *scriptedCompleter) Complete(_ context.Context, messages []ai.ChatMessage, _ ai.CompletionOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, append([]ai.ChatMessage(nil), messages...))
	if s.err != nil {
		return "", s.err
	}
	if len(s.replies) == 0 {
		return "", errors.New("script exhausted")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *scriptedCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type stubAnalyzer struct {
	answer string
	err    error
	seen   []string
}

func (s *stubAnalyzer) Analyze(_ context.Context, t *Table, _ string) (string, error) {
	s.seen = append(s.seen, t.Name)
	return s.answer, s.err
}

func salesTable(t interface{ Fatalf(string, ...any) }) *Table {
	tbl, err := NewTable("sales.xlsx", []sheetextract.Sheet{{
		Name: "Sheet1",
		Rows: [][]string{
			{"region", "total"},
			{"North", "100"},
			{"South", "250"},
			{"North", "50"},
			{"East", "1,000"},
		},
	}})
	if err != nil {
		t.Fatalf("build sales table: %v", err)
	}
	return tbl
}
