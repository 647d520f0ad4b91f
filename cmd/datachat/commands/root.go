// ABOUTME: Root command and global flags for the datachat CLI
// ABOUTME: Loads .env and config, and builds the shared app for subcommands
package commands

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/config"
	"github.com/harper/datachat/internal/logging"
)

var (
	verbose    bool
	quiet      bool
	format     string
	configPath string
)

const banner = `
██████╗  █████╗ ████████╗ █████╗  ██████╗██╗  ██╗ █████╗ ████████╗
██╔══██╗██╔══██╗╚══██╔══╝██╔══██╗██╔════╝██║  ██║██╔══██╗╚══██╔══╝
██║  ██║███████║   ██║   ███████║██║     ███████║███████║   ██║
██║  ██║██╔══██║   ██║   ██╔══██║██║     ██╔══██║██╔══██║   ██║
██████╔╝██║  ██║   ██║   ██║  ██║╚██████╗██║  ██║██║  ██║   ██║
╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝`

// NewRootCmd creates the root command with every subcommand attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datachat",
		Short: "Chat with your documents, web pages and meeting recordings",
		Long: banner + `

Chat with your data from the terminal.

  doc       ask questions about a pdf, docx, txt, md or html file
  site      pull the readable text out of a web page and ask about it
  meeting   transcribe a recording, summarize it and ask about it

Embeddings are cached per source, so asking about the same file twice
only pays for the question.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Missing .env is fine
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logging")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print results")
	cmd.PersistentFlags().StringVar(&format, "format", "auto", "Output format: auto, text or json")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/datachat/config.toml)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.AddCommand(NewDocCmd())
	cmd.AddCommand(NewSiteCmd())
	cmd.AddCommand(NewMeetingCmd())
	cmd.AddCommand(NewCacheCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig reads --config or the default config path
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.LoadFile(path)
}

// logLevel maps the global flags onto a log level
func logLevel(cfg *config.Config) string {
	switch {
	case verbose:
		return "debug"
	case quiet:
		return "error"
	default:
		return cfg.LogLevel
	}
}

// openApp builds the shared app for a command. Callers must Close it.
func openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, app.Deps{Logger: logging.New(logLevel(cfg), cmd.ErrOrStderr())})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}
