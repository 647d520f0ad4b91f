// ABOUTME: Gemini client for chat completion, streaming and embeddings via google.golang.org/genai
// ABOUTME: Used when LLM_PROVIDER=gemini; transcription stays on the OpenAI client
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/util"
	"google.golang.org/genai"
)

const (
	DefaultGeminiChatModel      = "gemini-2.5-flash"
	DefaultGeminiEmbeddingModel = "text-embedding-004"
)

// GeminiClient wraps the genai client
type GeminiClient struct {
	client         *genai.Client
	chatModel      string
	embeddingModel string
	temperature    float32
	timeout        time.Duration
	maxRetries     int
	retryDelay     time.Duration
}

// NewGeminiClient creates a Gemini API client. OpenAI model names in config
// are replaced with Gemini defaults.
func NewGeminiClient(ctx context.Context, config *ClientConfig) (*GeminiClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := &GeminiClient{
		client:         client,
		chatModel:      config.ChatModel,
		embeddingModel: config.EmbeddingModel,
		temperature:    float32(config.Temperature),
		timeout:        config.Timeout,
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
	}
	if c.chatModel == "" || strings.HasPrefix(c.chatModel, "gpt-") {
		c.chatModel = DefaultGeminiChatModel
	}
	if c.embeddingModel == "" || strings.HasPrefix(c.embeddingModel, "text-embedding-3") {
		c.embeddingModel = DefaultGeminiEmbeddingModel
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	return c, nil
}

// EmbeddingModel returns the model name used for embeddings
func (c *GeminiClient) EmbeddingModel() string {
	return c.embeddingModel
}

// request splits the prompt into genai contents and a generation config
// carrying the system instruction
func (c *GeminiClient) request(p Prompt) ([]*genai.Content, *genai.GenerateContentConfig) {
	temp := c.temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temp}

	var system []string
	var contents []*genai.Content
	for _, m := range p {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: "model", Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}
	return contents, cfg
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// Complete sends the prompt and returns the full completion text
func (c *GeminiClient) Complete(ctx context.Context, p Prompt) (string, error) {
	contents, cfg := c.request(p)
	var text string

	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Models.GenerateContent(ctx, c.chatModel, contents, cfg)
		if err != nil {
			return err
		}
		text = responseText(resp)
		if text == "" {
			return errors.New("empty response from gemini")
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini completion: %w", models.ErrServiceUnavailable, err)
	}
	return text, nil
}

// Stream delivers tokens to onToken as chunks arrive
func (c *GeminiClient) Stream(ctx context.Context, p Prompt, onToken TokenFunc) (string, error) {
	ctx, idle, stop := watchIdle(ctx, c.timeout)
	defer stop()

	contents, cfg := c.request(p)
	var full strings.Builder
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.chatModel, contents, cfg) {
		if err != nil {
			return "", fmt.Errorf("%w: gemini stream: %w", models.ErrServiceUnavailable, idle.explain(err))
		}
		idle.touch()
		token := responseText(resp)
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
func (c *GeminiClient) Embed(ctx context.Context, text string) ([]float64, error) {
	var embedding []float64

	err := util.Retry(ctx, c.maxRetries, c.retryDelay, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel,
			[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}}, nil)
		if err != nil {
			return err
		}
		if len(resp.Embeddings) == 0 {
			return errors.New("no embeddings returned")
		}
		values := resp.Embeddings[0].Values
		embedding = make([]float64, len(values))
		for i, v := range values {
			embedding[i] = float64(v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: gemini embeddings: %w", models.ErrServiceUnavailable, err)
	}
	return embedding, nil
}
