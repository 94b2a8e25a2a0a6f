package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gopherai-docqa/internal/mcp"
)

// NewMCPCmd creates the mcp command.
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start an MCP (Model Context Protocol) server on stdio.

LLM agents get the ask, ingest_text and status tools over one shared
in-memory workspace that lives as long as the process.`,
		Example: `  docqa mcp

  # claude_desktop_config.json:
  # {"mcpServers": {"docqa": {"command": "docqa", "args": ["mcp"]}}}`,
		RunE: runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	core, err := loadCore()
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			core.Logger.Warn("close core failed", zap.Error(err))
		}
		_ = core.Logger.Sync()
	}()

	server := mcp.NewServer(core.QA, core.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	core.Logger.Info("mcp server starting on stdio")
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		core.Logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("mcp server failed: %w", err)
		}
	}
	return nil
}
