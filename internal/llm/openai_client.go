// ABOUTME: OpenAI client for chat completion, streaming, embeddings and Whisper transcription
// ABOUTME: Wraps go-openai with per-attempt timeouts and optional backoff retries
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	// DefaultTranscribeModel is the default speech-to-text model
	DefaultTranscribeModel = openai.Whisper1
)

// ClientConfig holds configuration for the OpenAI client
type ClientConfig struct {
	APIKey          string
	BaseURL         string
	ChatModel       string
	EmbeddingModel  string
	TranscribeModel string
	Temperature     float64
	Timeout         time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig(apiKey string) *ClientConfig {
	return &ClientConfig{
		APIKey:          apiKey,
		ChatModel:       DefaultChatModel,
		EmbeddingModel:  DefaultEmbeddingModel,
		TranscribeModel: DefaultTranscribeModel,
		Temperature:     0.1,
		Timeout:         30 * time.Second,
		RetryDelay:      2 * time.Second,
	}
}

// OpenAIClient wraps the OpenAI API client
type OpenAIClient struct {
	client          *openai.Client
	chatModel       string
	embeddingModel  string
	transcribeModel string
	temperature     float32
	timeout         time.Duration
	maxRetries      int
	retryDelay      time.Duration
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	oc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oc.BaseURL = config.BaseURL
	}

	c := &OpenAIClient{
		client:          openai.NewClientWithConfig(oc),
		chatModel:       config.ChatModel,
		embeddingModel:  config.EmbeddingModel,
		transcribeModel: config.TranscribeModel,
		temperature:     float32(config.Temperature),
		timeout:         config.Timeout,
		maxRetries:      config.MaxRetries,
		retryDelay:      config.RetryDelay,
	}
	if c.chatModel == "" {
		c.chatModel = DefaultChatModel
	}
	if c.embeddingModel == "" {
		c.embeddingModel = DefaultEmbeddingModel
	}
	if c.transcribeModel == "" {
		c.transcribeModel = DefaultTranscribeModel
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	return c, nil
}

// EmbeddingModel returns the model name used for embeddings
func (c *OpenAIClient) EmbeddingModel() string {
	return c.embeddingModel
}

func (c *OpenAIClient) messages(p Prompt) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(p))
	for i, m := range p {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case RoleSystem:
			role = openai.ChatMessageRoleSystem
		case RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out[i] = openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}
	return out
}

// Complete sends the prompt and returns the full completion text
func (c *OpenAIClient) Complete(ctx context.Context, p Prompt) (string, error) {
	var content string

	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    c.messages(p),
			Temperature: c.temperature,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("no completion choices returned")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %w", models.ErrServiceUnavailable, err)
	}
	return content, nil
}

// Stream sends the prompt and delivers tokens to onToken as they arrive.
// Only opening the stream is retried; once tokens have been delivered a
// failure is returned as is.
func (c *OpenAIClient) Stream(ctx context.Context, p Prompt, onToken TokenFunc) (string, error) {
	// the timeout bounds opening the stream and each gap between chunks, not the whole answer
	ctx, idle, stop := watchIdle(ctx, c.timeout)
	defer stop()

	var stream *openai.ChatCompletionStream
	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		var err error
		stream, err = c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    c.messages(p),
			Temperature: c.temperature,
			Stream:      true,
		})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: open stream: %w", models.ErrServiceUnavailable, idle.explain(err))
	}
	defer stream.Close()

	var full strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: stream: %w", models.ErrServiceUnavailable, idle.explain(err))
		}
		idle.touch()
		if len(resp.Choices) == 0 {
			continue
		}
		token := resp.Choices[0].Delta.Content
		if token == "" {
			continue
		}
		full.WriteString(token)
		if onToken != nil {
			onToken(token)
		}
	}

	return full.String(), nil
}

// Embed generates an embedding vector for text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64

	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: []string{text},
			Model: openai.EmbeddingModel(c.embeddingModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return errors.New("no embeddings returned")
		}

		// Convert []float32 to []float64
		embedding32 := resp.Data[0].Embedding
		embedding = make([]float64, len(embedding32))
		for i, v := range embedding32 {
			embedding[i] = float64(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings: %w", models.ErrServiceUnavailable, err)
	}
	return embedding, nil
}

// Transcribe converts one audio file to text with the speech-to-text model
func (c *OpenAIClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	var text string

	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		// Audio uploads are slow; give each attempt several timeouts' worth
		ctx, cancel := context.WithTimeout(ctx, 10*c.timeout)
		defer cancel()

		resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    c.transcribeModel,
			FilePath: audioPath,
		})
		if err != nil {
			return err
		}
		text = resp.Text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcription of %s: %w", models.ErrServiceUnavailable, audioPath, err)
	}
	return text, nil
}
