// ABOUTME: site command fetches a web page and extracts its readable text
// ABOUTME: Optionally answers questions about the page or starts a chat
package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/harper/datachat/internal/models"
)

type siteOutput struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Text string `json:"text"`
}

// NewSiteCmd creates the site command
func NewSiteCmd() *cobra.Command {
	var (
		question string
		chat     bool
		save     string
		k        int
	)

	cmd := &cobra.Command{
		Use:   "site <url>",
		Short: "Extract the readable text of a web page",
		Long: `Extract the readable text of a web page.

The page is fetched over http or https and its main content is pulled
out with a readability pass. Without --ask or --chat the text is
printed. With them the page is indexed like a document.`,
		Example: `  datachat site https://example.com/blog/post
  datachat site https://example.com/pricing --ask "Is there a free tier?"
  datachat site https://example.com/docs --chat`,
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

			doc, err := a.Fetch(ctx, args[0])
			if err != nil {
				return err
			}

			if question == "" && !chat {
				if jsonOutput() {
					return printJSON(cmd.OutOrStdout(), siteOutput{URL: args[0], Name: doc.Name, Text: doc.Text})
				}
				if !quiet {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render(doc.Name))
					_, _ = fmt.Fprintln(cmd.OutOrStdout())
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), doc.Text)
				return nil
			}

			r, err := a.Retriever(ctx, doc)
			if err != nil {
				return fmt.Errorf("failed to index %s: %w", doc.Name, err)
			}
			session := models.NewSession(doc.Name)
			if chat {
				return chatLoop(ctx, cmd, a, r, session, k, save)
			}
			return ask(ctx, cmd, a, r, session, question, k)
		},
	}

	cmd.Flags().StringVar(&question, "ask", "", "Answer this question about the page")
	cmd.Flags().BoolVar(&chat, "chat", false, "Chat with the page interactively")
	cmd.Flags().StringVar(&save, "save", "", "Write the chat to this YAML file on exit")
	cmd.Flags().IntVar(&k, "k", 0, "Number of chunks of context per question (0 uses RETRIEVER_TOP_K)")
	cmd.MarkFlagsMutuallyExclusive("ask", "chat")
	return cmd
}
