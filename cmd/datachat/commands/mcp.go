// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Lets LLM agents ask about documents, sites and meetings via stdio
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/datachat/internal/mcp"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs datachat as an MCP (Model Context Protocol) server over stdio, so
LLM agents like Claude can ask questions about local documents, web
pages and meeting recordings.

Logs go to stderr; stdout carries the protocol.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  datachat mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "datachat": {
  #       "command": "datachat",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("datachat", versionInfo.Version)
	handlers := mcp.RegisterTools(server, a)

	a.Logger.Info("MCP server starting on stdio", "backend", a.Config.CacheBackend, "provider", a.Config.Provider)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		a.Logger.Info("Shutdown signal received, gracefully shutting down...")
		handlers.Shutdown()
		a.Logger.Info("Shutdown complete")

	case err := <-serverErr:
		handlers.Shutdown()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}
