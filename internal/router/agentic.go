package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gopherai-docqa/internal/ai"
)

var ErrNoToolChosen = errors.New("arbitrator chose no available tool")

// Tool is a capability the arbitrator may pick.
type Tool struct {
	Name        string
	Description string
}

var (
	documentsTool = Tool{
		Name: ToolDocuments,
		Description: "Useful for answering qualitative questions, summaries, checking policies, finding information " +
			"from PDF documents, Word documents, and other text-based files. Use this tool for questions about " +
			"document content, procedures, guidelines, descriptions, or any non-numerical analysis.",
	}
	tabularTool = Tool{
		Name: ToolTabular,
		Description: "Useful for quantitative questions, mathematical calculations, aggregations, filtering data, " +
			"counting records, or 'how many' questions about Excel/spreadsheet data. Use this tool for questions " +
			"involving numbers, totals, averages, counts, min/max values, percentages, or data analysis.",
	}
)

// Arbitrator picks, in order, which of the offered tools should answer query.
type Arbitrator interface {
	Choose(ctx context.Context, query string, tools []Tool) ([]string, error)
}

// AgenticStrategy lets an Arbitrator choose among the available tools and falls back to another
// strategy when arbitration fails or picks nothing usable.
type AgenticStrategy struct {
	arbitrator Arbitrator
	fallback   Strategy
	logger     *zap.Logger
}

func NewAgenticStrategy(arbitrator Arbitrator, fallback Strategy, logger *zap.Logger) *AgenticStrategy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgenticStrategy{arbitrator: arbitrator, fallback: fallback, logger: logger}
}

func (s *AgenticStrategy) Route(ctx context.Context, query string, avail Availability) (Decision, error) {
	if avail.NoSources() {
		return general(), nil
	}

	var offered []Tool
	if avail.Index {
		offered = append(offered, documentsTool)
	}
	if avail.Tables {
		offered = append(offered, tabularTool)
	}

	chosen, err := s.arbitrator.Choose(ctx, query, offered)
	if err == nil {
		chosen = filterTools(chosen, offered)
		if len(chosen) == 0 {
			err = ErrNoToolChosen
		}
	}
	if err != nil {
		s.logger.Warn("agentic arbitration failed, using fallback strategy", zap.Error(err))
		return s.fallback.Route(ctx, query, avail)
	}

	route := RouteRAG
	if chosen[0] == ToolTabular {
		route = RouteExcel
	}
	return Decision{Route: route, Tools: chosen, Agentic: true}, nil
}

// filterTools keeps the first occurrence of each offered tool name, preserving order.
func filterTools(names []string, offered []Tool) []string {
	known := make(map[string]bool, len(offered))
	for _, t := range offered {
		known[strings.ToLower(t.Name)] = true
	}
	canonical := map[string]string{
		strings.ToLower(ToolDocuments): ToolDocuments,
		strings.ToLower(ToolTabular):   ToolTabular,
	}
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		key := strings.ToLower(strings.TrimSpace(n))
		if !known[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, canonical[key])
	}
	return out
}

const arbitratorPrompt = `You route questions to tools. Available tools:
%s
Pick the tool or tools (at most one of each, in the order they should run) best suited to answer
the user's question. Use both only when the question needs document content and spreadsheet
calculations together.

Reply with a JSON object only: {"tools": ["<tool name>", ...]}`

// LLMArbitrator asks a chat model to choose tools.
type LLMArbitrator struct {
	completer ai.Completer
}

func NewLLMArbitrator(completer ai.Completer) *LLMArbitrator {
	return &LLMArbitrator{completer: completer}
}

func (a *LLMArbitrator) Choose(ctx context.Context, query string, tools []Tool) ([]string, error) {
	var list strings.Builder
	for _, t := range tools {
		fmt.Fprintf(&list, "- %s: %s\n", t.Name, t.Description)
	}
	messages := []ai.ChatMessage{
		{Role: ai.RoleSystem, Content: fmt.Sprintf(arbitratorPrompt, list.String())},
		{Role: ai.RoleUser, Content: query},
	}
	reply, err := a.completer.Complete(ctx, messages, ai.CompletionOptions{Temperature: 0, MaxTokens: 128, JSON: true})
	if err != nil {
		return nil, fmt.Errorf("tool arbitration failed: %w", err)
	}

	start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("tool arbitration failed: no JSON object in %q", reply)
	}
	var out struct {
		Tools []string `json:"tools"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("tool arbitration failed: %w", err)
	}
	return out.Tools, nil
}
