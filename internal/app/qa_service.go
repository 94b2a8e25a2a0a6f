package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/compose"
	"gopherai-docqa/internal/rag"
	"gopherai-docqa/internal/router"
	"gopherai-docqa/internal/tabular"
)

var (
	ErrQueryEmpty   = errors.New("query is empty")
	ErrLLMConfig    = errors.New("llm config is invalid")
	ErrNothingAdded = errors.New("nothing to ingest")
)

type QAService struct {
	workspace           *Workspace
	router              *router.Router
	composer            *compose.Composer
	indexDocumentTables bool
	logger              *zap.Logger
}

type AskInput struct {
	Query   string
	History []ai.ChatMessage
}

type Answer struct {
	Response  string   `json:"response"`
	QueryType string   `json:"query_type"`
	ToolsUsed []string `json:"tools_used"`
	Sources   []string `json:"sources,omitempty"`
}

type IngestInput struct {
	Documents []rag.Document
	Tables    []*tabular.Table
}

type IngestResult struct {
	Report *rag.IngestReport `json:"report,omitempty"`
	Tables []string          `json:"tables"`
}

func NewQAService(
	workspace *Workspace,
	queryRouter *router.Router,
	composer *compose.Composer,
	indexDocumentTables bool,
	logger *zap.Logger,
) *QAService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QAService{
		workspace:           workspace,
		router:              queryRouter,
		composer:            composer,
		indexDocumentTables: indexDocumentTables,
		logger:              logger,
	}
}

func (s *QAService) Workspace() *Workspace {
	return s.workspace
}

// Ask routes the query to exactly one evidence source (or, in agentic mode, the chosen tools)
// and returns the final answer with its route metadata.
func (s *QAService) Ask(ctx context.Context, input AskInput) (*Answer, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, ErrQueryEmpty
	}

	d := s.router.Decide(ctx, query, s.workspace.Availability())
	if d.Agentic {
		return s.runTools(ctx, query, input.History, d)
	}

	req := compose.Request{Route: d.Route, Query: query, History: input.History}
	switch d.Route {
	case router.RouteExcel:
		res := s.workspace.Tables.Run(ctx, query)
		req.Evidence = res.Text
		if res.Table != "" {
			req.Sources = []string{res.Table}
		}
	case router.RouteRAG:
		retrieval, err := s.workspace.Retriever.Retrieve(ctx, query, 0)
		if err != nil {
			return nil, fmt.Errorf("retrieve context failed: %w", err)
		}
		req.Evidence = retrieval.Context
		req.Sources = retrieval.Sources
	}

	text, err := s.composer.Compose(ctx, req)
	if err != nil {
		return nil, llmError(err)
	}
	return &Answer{Response: text, QueryType: string(d.Route), ToolsUsed: d.Tools, Sources: req.Sources}, nil
}

// runTools executes each chosen tool in order and returns their outputs directly.
func (s *QAService) runTools(ctx context.Context, query string, history []ai.ChatMessage, d router.Decision) (*Answer, error) {
	var outputs, sources []string
	for _, tool := range d.Tools {
		switch tool {
		case router.ToolTabular:
			res := s.workspace.Tables.Run(ctx, query)
			outputs = append(outputs, res.Text)
			if res.Table != "" {
				sources = appendUnique(sources, res.Table)
			}
		case router.ToolDocuments:
			retrieval, err := s.workspace.Retriever.Retrieve(ctx, query, 0)
			if err != nil {
				return nil, fmt.Errorf("retrieve context failed: %w", err)
			}
			text, err := s.composer.Compose(ctx, compose.Request{
				Route:    router.RouteRAG,
				Query:    query,
				Evidence: retrieval.Context,
				Sources:  retrieval.Sources,
				History:  history,
			})
			if err != nil {
				return nil, llmError(err)
			}
			outputs = append(outputs, text)
			for _, src := range retrieval.Sources {
				sources = appendUnique(sources, src)
			}
		}
	}
	return &Answer{
		Response:  compose.Direct(strings.Join(outputs, "\n\n")),
		QueryType: string(d.Route),
		ToolsUsed: d.Tools,
		Sources:   sources,
	}, nil
}

// Ingest registers spreadsheet tables and indexes documents. Tables embedded in documents are
// registered only after the documents were indexed.
func (s *QAService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	if len(input.Documents) == 0 && len(input.Tables) == 0 {
		return nil, ErrNothingAdded
	}

	result := &IngestResult{Tables: []string{}}
	for _, t := range input.Tables {
		s.workspace.Tables.Add(t)
		result.Tables = append(result.Tables, t.Name)
	}
	if len(input.Documents) == 0 {
		return result, nil
	}

	report, err := s.workspace.Pipeline.Ingest(ctx, input.Documents)
	result.Report = report
	if err != nil {
		if errors.Is(err, rag.ErrNoChunks) && len(result.Tables) > 0 {
			return result, nil
		}
		return result, fmt.Errorf("ingest documents failed: %w", err)
	}

	if s.indexDocumentTables {
		for _, doc := range input.Documents {
			for _, t := range tabular.TablesFromDocument(doc) {
				s.workspace.Tables.Add(t)
				result.Tables = append(result.Tables, t.Name)
			}
		}
	}
	return result, nil
}

func llmError(err error) error {
	if errors.Is(err, ai.ErrMissingAPIKey) {
		return fmt.Errorf("%w: %v", ErrLLMConfig, err)
	}
	return err
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
