// ABOUTME: Q&A responder: retrieves context chunks and streams a grounded answer
// ABOUTME: Both sides of the exchange are appended to the session log
package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harper/datachat/internal/llm"
	"github.com/harper/datachat/internal/logging"
	"github.com/harper/datachat/internal/models"
)

// Retriever returns the chunks most relevant to a question, best first
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error)
}

// StreamHandler observes an answer as it is generated. Nil fields are skipped.
type StreamHandler struct {
	OnStart func()
	OnToken func(token string)
	OnEnd   func(full string)
}

// Responder answers questions about one indexed source
type Responder struct {
	retriever Retriever
	completer llm.Completer
	k         int
	logger    *log.Logger
}

// NewResponder creates a Responder returning k chunks of context per question
func NewResponder(retriever Retriever, completer llm.Completer, k int, logger *log.Logger) *Responder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Responder{retriever: retriever, completer: completer, k: k, logger: logger}
}

// JoinContext concatenates chunk contents in retrieval order separated by a blank line
func JoinContext(hits []models.ScoredChunk) string {
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = h.Chunk.Content
	}
	return strings.Join(parts, "\n\n")
}

// Answer streams an answer to question through h and records the exchange in
// session. The AI message is appended only after the stream completes.
func (r *Responder) Answer(ctx context.Context, session *models.Session, question string, h StreamHandler) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("%w: empty question", models.ErrUnsupportedInput)
	}
	session.Append(models.RoleHuman, question)

	hits, err := r.retriever.Query(ctx, question, r.k)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve context: %w", err)
	}
	r.logger.Debug("retrieved context", "chunks", len(hits), "source", session.Source)

	if h.OnStart != nil {
		h.OnStart()
	}

	answer, err := r.completer.Stream(ctx, AnswerPrompt(JoinContext(hits), question), func(token string) {
		if h.OnToken != nil {
			h.OnToken(token)
		}
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	session.Append(models.RoleAI, answer)
	if h.OnEnd != nil {
		h.OnEnd(answer)
	}
	return answer, nil
}
