package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"gopherai-docqa/internal/ai"
	"gopherai-docqa/internal/app"
	"gopherai-docqa/internal/rag"
)

type Handlers struct {
	qa     *app.QAService
	logger *zap.Logger
}

func NewHandlers(qa *app.QAService, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{qa: qa, logger: logger}
}

// Ask handles the ask tool.
func (h *Handlers) Ask(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query argument is required and must be a string"), nil
	}
	args, _ := request.Params.Arguments.(map[string]any)
	history, err := parseHistory(args["history"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	answer, err := h.qa.Ask(ctx, app.AskInput{Query: query, History: history})
	if err != nil {
		h.logger.Warn("mcp ask failed", zap.Error(err))
		return mcp.NewToolResultError(toolMessage("ask failed", err)), nil
	}
	return jsonResult(answer)
}

// IngestText handles the ingest_text tool.
func (h *Handlers) IngestText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil || strings.TrimSpace(name) == "" {
		return mcp.NewToolResultError("name argument is required and must be a string"), nil
	}
	content, err := request.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError("content argument is required and must be a string"), nil
	}
	fileType := rag.FileType(request.GetString("file_type", string(rag.FileTypeText)))

	doc := rag.NewDocument(content, strings.TrimSpace(name), fileType)
	result, err := h.qa.Ingest(ctx, app.IngestInput{Documents: []rag.Document{doc}})
	if err != nil {
		h.logger.Warn("mcp ingest failed", zap.String("source", doc.Metadata.Source), zap.Error(err))
		return mcp.NewToolResultError(toolMessage("ingest failed", err)), nil
	}
	return jsonResult(result)
}

// Status handles the status tool.
func (h *Handlers) Status(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(h.qa.Workspace().Status())
}

func parseHistory(raw any) ([]ai.ChatMessage, error) {
	if raw == nil {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("history is not valid: %v", err)
	}
	var turns []ai.ChatMessage
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, errors.New("history must be an array of {role, content} objects")
	}
	for _, t := range turns {
		if t.Role != "user" && t.Role != "assistant" {
			return nil, fmt.Errorf("history role %q must be user or assistant", t.Role)
		}
	}
	return turns, nil
}

func toolMessage(prefix string, err error) string {
	switch {
	case errors.Is(err, app.ErrLLMConfig):
		return "LLM is not configured: set LLM_API_KEY"
	case errors.Is(err, rag.ErrNoChunks):
		return "nothing to index: the content is empty"
	case errors.Is(err, rag.ErrEmbeddingUnavailable):
		return "embedding model unavailable"
	}
	return fmt.Sprintf("%s: %v", prefix, err)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
