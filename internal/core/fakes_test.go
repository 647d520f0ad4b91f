// ABOUTME: Test doubles for the completion service and retriever
// ABOUTME: The fake completer is deterministic and records every prompt it sees
package core

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/harper/datachat/internal/llm"
	"github.com/harper/datachat/internal/models"
)

// fakeCompleter answers seed prompts with "S(<chunk>)" and refine prompts with
// "R(<existing>+<chunk>)". failAt makes the call with that zero-based number fail.
type fakeCompleter struct {
	mu      sync.Mutex
	prompts []llm.Prompt
	failAt  int
	tokens  []string
}

func newFakeCompleter() *fakeCompleter {
	return &fakeCompleter{failAt: -1}
}

var errFake = errors.New("completion service down")

func (f *fakeCompleter) record(p llm.Prompt) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.prompts)
	f.prompts = append(f.prompts, p)
	if n == f.failAt {
		return n, errFake
	}
	return n, nil
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeCompleter) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	if _, err := f.record(p); err != nil {
		return "", err
	}
	body := p[len(p)-1].Content
	if strings.HasPrefix(body, "Write a concise summary") {
		return "S(" + between(body, "\"", "\"") + ")", nil
	}
	existing := between(body, "certain point: ", "\n")
	chunk := between(body, "------------\n", "\n------------")
	return "R(" + existing + "+" + chunk + ")", nil
}

func (f *fakeCompleter) Stream(ctx context.Context, p llm.Prompt, onToken llm.TokenFunc) (string, error) {
	if _, err := f.record(p); err != nil {
		return "", err
	}
	var full strings.Builder
	for _, tok := range f.tokens {
		full.WriteString(tok)
		if onToken != nil {
			onToken(tok)
		}
	}
	return full.String(), nil
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	j := strings.Index(s, end)
	if j < 0 {
		return s
	}
	return s[:j]
}

type fakeRetriever struct {
	hits []models.ScoredChunk
	err  error
	gotK int
}

func (f *fakeRetriever) Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error) {
	f.gotK = k
	return f.hits, f.err
}
