package tabular

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"gopherai-docqa/internal/metrics"
)

const NoTablesMessage = "No spreadsheet files have been loaded. Please upload a spreadsheet first."

// Analyzer answers a natural-language question about one table.
type Analyzer interface {
	Analyze(ctx context.Context, t *Table, question string) (string, error)
}

// Answer is always textual; Failed marks an error payload.
type Answer struct {
	Table  string `json:"table"`
	Text   string `json:"text"`
	Failed bool   `json:"failed"`
}

// Engine is the registry of loaded tables. Tables are immutable once added; the mutex guards
// only the registry itself.
type Engine struct {
	analyst  Analyzer
	keywords []string
	logger   *zap.Logger

	mu     sync.Mutex
	tables map[string]*Table
	order  []string
}

func NewEngine(analyst Analyzer, keywords []string, logger *zap.Logger) *Engine {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		analyst:  analyst,
		keywords: lowered,
		logger:   logger,
		tables:   map[string]*Table{},
	}
}

// Add registers t under its name. Re-adding a name replaces the table and makes it the most recent.
func (e *Engine) Add(t *Table) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.tables[t.Name]; ok {
		for i, n := range e.order {
			if n == t.Name {
				e.order = append(e.order[:i], e.order[i+1:]...)
				break
			}
		}
	}
	e.tables[t.Name] = t
	e.order = append(e.order, t.Name)
	metrics.TablesLoaded.Set(float64(len(e.order)))
	e.logger.Info("table registered", zap.String("table", t.Name), zap.Int("rows", len(t.Rows)), zap.Int("columns", len(t.Columns)))
}

func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.order)
}

// Names returns table names in insertion order.
func (e *Engine) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

func (e *Engine) Summaries() []Summary {
	e.mu.Lock()
	tables := make([]*Table, 0, len(e.order))
	for _, n := range e.order {
		tables = append(tables, e.tables[n])
	}
	e.mu.Unlock()

	out := make([]Summary, len(tables))
	for i, t := range tables {
		out[i] = Summarize(t)
	}
	return out
}

func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables = map[string]*Table{}
	e.order = nil
	metrics.TablesLoaded.Set(0)
}

// IsQuantitative reports whether query contains a quantitative keyword or the stem of a loaded table.
func (e *Engine) IsQuantitative(query string) bool {
	if matchesKeyword(query, e.keywords) {
		return true
	}
	q := strings.ToLower(query)
	for _, name := range e.Names() {
		if stem := Stem(name); stem != "" && strings.Contains(q, stem) {
			return true
		}
	}
	return false
}

// Select picks the only table, else the first (insertion order) whose stem appears in query,
// else the most recently added one.
func (e *Engine) Select(query string) (*Table, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch len(e.order) {
	case 0:
		return nil, false
	case 1:
		return e.tables[e.order[0]], true
	}
	q := strings.ToLower(query)
	for _, name := range e.order {
		if stem := Stem(name); stem != "" && strings.Contains(q, stem) {
			return e.tables[name], true
		}
	}
	return e.tables[e.order[len(e.order)-1]], true
}

// Run answers query against the selected table. Failures are reported in the answer text.
func (e *Engine) Run(ctx context.Context, query string) Answer {
	t, ok := e.Select(query)
	if !ok {
		return Answer{Text: NoTablesMessage, Failed: true}
	}
	log := e.logger.With(zap.String("table", t.Name))
	if e.analyst == nil {
		metrics.TabularRunsTotal.WithLabelValues("error").Inc()
		return Answer{Table: t.Name, Text: "Error analyzing table data: no analyst configured", Failed: true}
	}

	log.Info("running table analysis")
	result, err := e.analyst.Analyze(ctx, t, query)
	if err != nil {
		metrics.TabularRunsTotal.WithLabelValues("error").Inc()
		log.Warn("table analysis failed", zap.Error(err))
		return Answer{Table: t.Name, Text: fmt.Sprintf("Error analyzing table data: %v", err), Failed: true}
	}
	metrics.TabularRunsTotal.WithLabelValues("success").Inc()
	return Answer{Table: t.Name, Text: fmt.Sprintf("[Analysis from %s]\n%s", t.Name, result)}
}
