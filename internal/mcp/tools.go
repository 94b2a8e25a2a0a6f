package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"gopherai-docqa/internal/app"
)

const (
	ServerName    = "gopherai-docqa"
	ServerVersion = "0.1.0"
)

// NewServer builds an MCP server exposing the question answering tools.
func NewServer(qa *app.QAService, logger *zap.Logger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(ServerName, ServerVersion)
	RegisterTools(server, qa, logger)
	return server
}

// RegisterTools registers ask, ingest_text and status.
func RegisterTools(server *mcpserver.MCPServer, qa *app.QAService, logger *zap.Logger) *Handlers {
	handlers := NewHandlers(qa, logger)

	server.AddTool(mcp.Tool{
		Name: "ask",
		Description: "Answer a question from the loaded spreadsheets and documents. Quantitative questions " +
			"run against tables, other questions search the document index.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The question to answer",
				},
				"history": map[string]interface{}{
					"type":        "array",
					"description": "Optional prior turns, oldest first",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"role":    map[string]interface{}{"type": "string", "enum": []string{"user", "assistant"}},
							"content": map[string]interface{}{"type": "string"},
						},
						"required": []string{"role", "content"},
					},
				},
			},
			Required: []string{"query"},
		},
	}, handlers.Ask)

	server.AddTool(mcp.Tool{
		Name:        "ingest_text",
		Description: "Index a piece of text so later questions can cite it. Table blocks inside the text are registered as tables.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Source name used in citations",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Plain text to index",
				},
				"file_type": map[string]interface{}{
					"type":        "string",
					"description": "Document type recorded in metadata (default: text)",
					"default":     "text",
				},
			},
			Required: []string{"name", "content"},
		},
	}, handlers.IngestText)

	server.AddTool(mcp.Tool{
		Name:        "status",
		Description: "Report how many vectors are indexed and which tables are loaded.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, handlers.Status)

	return handlers
}
