// ABOUTME: doc command group for document Q&A
// ABOUTME: Loads a file, embeds it through the cache and answers questions about it
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/index"
	"github.com/harper/datachat/internal/loader"
	"github.com/harper/datachat/internal/models"
)

// NewDocCmd creates the doc command group
func NewDocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Ask questions about a document",
		Long: `Ask questions about a document.

Supported formats: ` + strings.Join(loader.SupportedExtensions, ", ") + `

The document is split into chunks and each chunk is embedded once.
Embeddings are cached per document name, so later runs against the
same file only embed the question.`,
	}

	cmd.AddCommand(newDocAskCmd())
	cmd.AddCommand(newDocChatCmd())
	return cmd
}

func newDocAskCmd() *cobra.Command {
	var k int

	cmd := &cobra.Command{
		Use:   "ask <file> <question>",
		Short: "Answer a single question about a document",
		Example: `  datachat doc ask report.pdf "What was the revenue in Q3?"
  datachat doc ask notes.md "Who owns the launch?" --k 6 --format json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(); err != nil {
				return err
			}
			if err := validateNonNegativeInt(k, "--k"); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, r, err := indexDocument(ctx, a, args[0])
			if err != nil {
				return err
			}
			return ask(ctx, cmd, a, r, models.NewSession(doc.Name), strings.Join(args[1:], " "), k)
		},
	}

	cmd.Flags().IntVar(&k, "k", 0, "Number of chunks of context per question (0 uses RETRIEVER_TOP_K)")
	return cmd
}

func newDocChatCmd() *cobra.Command {
	var (
		k    int
		save string
	)

	cmd := &cobra.Command{
		Use:   "chat <file>",
		Short: "Chat with a document interactively",
		Long: `Chat with a document interactively.

Type a question and press enter. The answer streams as it is generated.
Type exit or press Ctrl-D to finish. Use --save to keep the conversation
as YAML.`,
		Example: `  datachat doc chat handbook.docx
  datachat doc chat handbook.docx --save handbook-chat.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(); err != nil {
				return err
			}
			if err := validateNonNegativeInt(k, "--k"); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a, err := openApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, r, err := indexDocument(ctx, a, args[0])
			if err != nil {
				return err
			}
			return chatLoop(ctx, cmd, a, r, models.NewSession(doc.Name), k, save)
		},
	}

	cmd.Flags().IntVar(&k, "k", 0, "Number of chunks of context per question (0 uses RETRIEVER_TOP_K)")
	cmd.Flags().StringVar(&save, "save", "", "Write the conversation to this YAML file on exit")
	return cmd
}

// indexDocument loads path and builds its retriever
func indexDocument(ctx context.Context, a *app.App, path string) (*loader.Document, *index.Retriever, error) {
	doc, err := loader.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	r, err := a.Retriever(ctx, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to index %s: %w", doc.Name, err)
	}
	return doc, r, nil
}
