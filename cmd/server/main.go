// ABOUTME: Standalone datachat MCP server with stdio transport
// ABOUTME: Loads config and wires the shared app into the MCP tools
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/config"
	"github.com/harper/datachat/internal/logging"
	"github.com/harper/datachat/internal/mcp"
)

func main() {
	// Load .env file if it exists (for API keys)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("info", os.Stderr).Fatal("invalid configuration", "err", err)
	}
	logger := logging.New(cfg.LogLevel, os.Stderr)

	a, err := app.New(context.Background(), cfg, app.Deps{Logger: logger})
	if err != nil {
		logger.Fatal("failed to initialize", "err", err)
	}
	defer a.Close()

	server := mcpserver.NewMCPServer("datachat", "0.1.0")
	handlers := mcp.RegisterTools(server, a)
	defer handlers.Shutdown()

	logger.Info("MCP server starting on stdio", "backend", cfg.CacheBackend)
	if err := mcpserver.ServeStdio(server); err != nil {
		logger.Error("server error", "err", err)
	}
}
