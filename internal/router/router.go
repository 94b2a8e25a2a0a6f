package router

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"gopherai-docqa/internal/metrics"
)

type Route string

const (
	RouteExcel   Route = "excel"
	RouteRAG     Route = "rag"
	RouteGeneral Route = "general"
)

const (
	ToolTabular   = "Excel_Data_Analyst"
	ToolDocuments = "PDF_Document_Knowledge_Base"
)

const (
	StrategyKeyword = "keyword"
	StrategyAgentic = "agentic"
)

// Availability describes which knowledge sources hold data at routing time.
type Availability struct {
	Tables bool
	Index  bool
}

func (a Availability) NoSources() bool {
	return !a.Tables && !a.Index
}

// Decision is the outcome of routing one query. Tools are ordered; in agentic mode each tool's
// output is returned directly.
type Decision struct {
	Route   Route    `json:"query_type"`
	Tools   []string `json:"tools_used"`
	Agentic bool     `json:"agentic"`
}

func general() Decision {
	return Decision{Route: RouteGeneral, Tools: []string{}}
}

type Strategy interface {
	Route(ctx context.Context, query string, avail Availability) (Decision, error)
}

// Router wraps a Strategy with logging and metrics. It never fails: a strategy error
// degrades to the general route.
type Router struct {
	strategy Strategy
	logger   *zap.Logger
}

func New(strategy Strategy, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{strategy: strategy, logger: logger}
}

func (r *Router) Decide(ctx context.Context, query string, avail Availability) Decision {
	d, err := r.strategy.Route(ctx, query, avail)
	if err != nil {
		r.logger.Warn("routing failed, answering from general knowledge", zap.Error(err))
		d = general()
	}
	strategy := StrategyKeyword
	if d.Agentic {
		strategy = StrategyAgentic
	}
	metrics.RouteDecisionsTotal.WithLabelValues(string(d.Route), strategy).Inc()
	r.logger.Info("query routed",
		zap.String("route", string(d.Route)),
		zap.Strings("tools", d.Tools),
		zap.String("strategy", strategy),
		zap.Bool("tables", avail.Tables),
		zap.Bool("index", avail.Index),
	)
	return d
}

// ParseMode maps a configured router mode to its canonical name.
func ParseMode(mode string) string {
	if strings.EqualFold(strings.TrimSpace(mode), StrategyAgentic) {
		return StrategyAgentic
	}
	return StrategyKeyword
}
