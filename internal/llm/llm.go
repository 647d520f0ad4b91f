// ABOUTME: Small interfaces the pipeline depends on and the provider factory
// ABOUTME: Completer, Embedder and Transcriber are satisfied by the OpenAI and Gemini clients
package llm

import (
	"context"
	"fmt"

	"github.com/harper/datachat/internal/config"
)

// Completer produces text completions, whole or streamed
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
	Stream(ctx context.Context, p Prompt, onToken TokenFunc) (string, error)
}

// Embedder maps text to a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbeddingModel() string
}

// Transcriber converts one audio file to text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Provider is a client that both completes and embeds
type Provider interface {
	Completer
	Embedder
}

func clientConfig(cfg *config.Config, key string) *ClientConfig {
	return &ClientConfig{
		APIKey:          key,
		ChatModel:       cfg.ChatModel,
		EmbeddingModel:  cfg.EmbeddingModel,
		TranscribeModel: cfg.TranscribeModel,
		Temperature:     cfg.Temperature,
		Timeout:         cfg.Timeout,
		MaxRetries:      cfg.MaxRetries,
		RetryDelay:      cfg.RetryDelay,
	}
}

// NewProvider builds the completion/embedding client selected by cfg.Provider
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiClient(ctx, clientConfig(cfg, cfg.GeminiKey))
	case config.ProviderOpenAI, "":
		return NewOpenAIClientWithConfig(clientConfig(cfg, cfg.OpenAIKey))
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// NewTranscriber returns the Whisper client; only OpenAI offers transcription
func NewTranscriber(cfg *config.Config) (Transcriber, error) {
	return NewOpenAIClientWithConfig(clientConfig(cfg, cfg.OpenAIKey))
}
