// ABOUTME: Question answering shared by the doc, site and meeting commands
// ABOUTME: Single questions, an interactive chat loop and YAML transcript saving
package commands

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/core"
	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/util"
)

const greeting = "I'm ready! Ask away!"

type answerOutput struct {
	Source   string `json:"source"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ask answers one question, streaming tokens in text mode
func ask(ctx context.Context, cmd *cobra.Command, a *app.App, r core.Retriever, session *models.Session, question string, k int) error {
	out := cmd.OutOrStdout()
	responder := a.Responder(r, k)

	if jsonOutput() {
		answer, err := responder.Answer(ctx, session, question, core.StreamHandler{})
		if err != nil {
			return err
		}
		return printJSON(out, answerOutput{Source: session.Source, Question: question, Answer: answer})
	}

	_, err := responder.Answer(ctx, session, question, core.StreamHandler{
		OnStart: func() {
			if !quiet {
				_, _ = fmt.Fprint(out, aiStyle.Render("ai")+": ")
			}
		},
		OnToken: func(token string) { _, _ = fmt.Fprint(out, token) },
		OnEnd:   func(string) { _, _ = fmt.Fprintln(out) },
	})
	return err
}

// chatLoop reads questions until EOF, "exit" or "quit". A failed answer is
// reported and the loop continues with the session intact.
func chatLoop(ctx context.Context, cmd *cobra.Command, a *app.App, r core.Retriever, session *models.Session, k int, savePath string) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !quiet {
		_, _ = fmt.Fprintf(out, "%s: %s\n", aiStyle.Render("ai"), greeting)
	}

	for {
		if !quiet {
			_, _ = fmt.Fprint(out, humanStyle.Render("you")+"> ")
		}
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if question == "exit" || question == "quit" {
			break
		}
		if err := ctx.Err(); err != nil {
			break
		}

		if err := ask(ctx, cmd, a, r, session, question, k); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	if savePath != "" {
		return saveTranscript(cmd, session, savePath)
	}
	return nil
}

// saveTranscript writes the session log as YAML
func saveTranscript(cmd *cobra.Command, session *models.Session, path string) error {
	data, err := session.MarshalYAMLTranscript()
	if err != nil {
		return err
	}
	if err := util.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	if !quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d messages to %s\n", session.Len(), path)
	}
	return nil
}
