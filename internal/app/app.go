// ABOUTME: Wires configuration into clients, cache backend and pipelines for the three flows
// ABOUTME: Shared by the CLI commands and the MCP server
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/harper/datachat/internal/cache"
	"github.com/harper/datachat/internal/config"
	"github.com/harper/datachat/internal/core"
	"github.com/harper/datachat/internal/index"
	"github.com/harper/datachat/internal/llm"
	"github.com/harper/datachat/internal/loader"
	"github.com/harper/datachat/internal/logging"
	"github.com/harper/datachat/internal/media"
	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/storage"
	"github.com/harper/datachat/pkg/executor"
)

// App holds long-lived dependencies
type App struct {
	Config   *config.Config
	Provider llm.Provider
	Backend  storage.Backend
	Logger   *log.Logger

	transcriber llm.Transcriber
	exec        executor.Executor
	fetcher     *loader.Fetcher
}

// Deps overrides collaborators, mainly for tests. Nil fields are built from config.
type Deps struct {
	Provider    llm.Provider
	Backend     storage.Backend
	Transcriber llm.Transcriber
	Executor    executor.Executor
	Logger      *log.Logger
}

// New builds an App from cfg
func New(ctx context.Context, cfg *config.Config, deps Deps) (*App, error) {
	a := &App{
		Config:      cfg,
		Provider:    deps.Provider,
		Backend:     deps.Backend,
		Logger:      deps.Logger,
		transcriber: deps.Transcriber,
		exec:        deps.Executor,
		fetcher:     loader.NewFetcher(cfg.Timeout),
	}
	if a.Logger == nil {
		a.Logger = logging.Discard()
	}

	if a.Provider == nil {
		if cfg.APIKey() == "" {
			return nil, fmt.Errorf("no API key for provider %q: set OPENAI_API_KEY or GEMINI_API_KEY", cfg.Provider)
		}
		p, err := llm.NewProvider(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.Provider = p
	}

	if a.Backend == nil {
		b, err := cache.OpenBackend(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s cache: %w", cfg.CacheBackend, err)
		}
		a.Backend = b
	}

	if a.exec == nil {
		a.exec = executor.New()
	}
	return a, nil
}

// Close releases the cache backend
func (a *App) Close() error {
	if a.Backend != nil {
		return a.Backend.Close()
	}
	return nil
}

// ChunkDocument splits a loaded document for retrieval
func (a *App) ChunkDocument(doc *loader.Document) ([]models.Chunk, error) {
	ce := core.NewChunkEngine(a.Config.ChunkSize, a.Config.ChunkOverlap)
	ce.StripNewlines = true
	return ce.Split(doc.Text)
}

// ChunkTranscript splits transcript text for summarization
func (a *App) ChunkTranscript(text string) ([]models.Chunk, error) {
	return core.NewChunkEngine(a.Config.SummaryChunkSize, a.Config.SummaryChunkOverlap).Split(text)
}

// Index embeds doc through the cache namespaced by the document name and
// returns a ready retriever
func (a *App) Index(ctx context.Context, doc *loader.Document, chunks []models.Chunk) (*index.Retriever, error) {
	ec, err := cache.New(a.Backend, doc.Name, a.Provider, a.Logger)
	if err != nil {
		return nil, err
	}

	r := index.NewRetriever(ec)
	if err := r.Build(ctx, chunks); err != nil {
		return nil, err
	}
	hits, misses := ec.Stats()
	a.Logger.Info("indexed", "source", doc.Name, "chunks", len(chunks), "cached", hits, "embedded", misses)
	return r, nil
}

// Retriever chunks and indexes doc
func (a *App) Retriever(ctx context.Context, doc *loader.Document) (*index.Retriever, error) {
	chunks, err := a.ChunkDocument(doc)
	if err != nil {
		return nil, err
	}
	return a.Index(ctx, doc, chunks)
}

// Responder returns a responder over r answering with k chunks of context.
// k <= 0 uses the configured top k.
func (a *App) Responder(r core.Retriever, k int) *core.Responder {
	if k <= 0 {
		k = a.Config.TopK
	}
	return core.NewResponder(r, a.Provider, k, a.Logger)
}

// Summarizer returns a summarizer over the configured provider
func (a *App) Summarizer() *core.Summarizer {
	return core.NewSummarizer(a.Provider, a.Logger)
}

// Fetch loads a web page
func (a *App) Fetch(ctx context.Context, rawURL string) (*loader.Document, error) {
	return a.fetcher.Fetch(ctx, rawURL)
}

// Pipeline returns the meeting transcription pipeline. Transcription always
// goes through OpenAI Whisper.
func (a *App) Pipeline() (*media.Pipeline, error) {
	if a.transcriber == nil {
		if a.Config.OpenAIKey == "" {
			return nil, fmt.Errorf("meeting transcription needs OPENAI_API_KEY")
		}
		t, err := llm.NewTranscriber(a.Config)
		if err != nil {
			return nil, err
		}
		a.transcriber = t
	}
	return media.NewPipeline(a.exec, a.transcriber, a.Config.FFmpegPath, a.Config.SegmentMinutes, a.Logger), nil
}

// Meeting derives the meeting layout for videoPath under the data dir
func (a *App) Meeting(videoPath string) (*media.Meeting, error) {
	return media.NewMeeting(a.Config.DataDir, videoPath)
}

// Transcribe imports the video and runs the pipeline, returning the transcript
func (a *App) Transcribe(ctx context.Context, m *media.Meeting, videoPath string, progress func(i, n int)) (string, error) {
	if m.HasTranscript() {
		return a.readTranscript(m)
	}
	if err := m.Import(videoPath); err != nil {
		return "", err
	}
	p, err := a.Pipeline()
	if err != nil {
		return "", err
	}
	return p.Run(ctx, m, progress)
}

// SummarizeMeeting folds the meeting transcript into its summary file
func (a *App) SummarizeMeeting(ctx context.Context, m *media.Meeting, progress core.ProgressFunc, onStep core.StepFunc) (string, error) {
	return a.SummarizeFile(ctx, m.TranscriptPath(), m.SummaryPath(), progress, onStep)
}

// SummarizeFile summarizes the transcript at path into dest
func (a *App) SummarizeFile(ctx context.Context, path, dest string, progress core.ProgressFunc, onStep core.StepFunc) (string, error) {
	s := a.Summarizer()
	s.OnStep = onStep

	// an existing summary needs no transcript
	if _, err := os.Stat(dest); err == nil {
		return s.Summarize(ctx, nil, dest, progress)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read transcript: %w", err)
	}
	chunks, err := a.ChunkTranscript(loader.Normalize(string(data)))
	if err != nil {
		return "", err
	}
	return s.Summarize(ctx, chunks, dest, progress)
}

// MeetingDocument exposes the transcript as a document for Q&A. Its name is
// prefixed so a meeting never shares a cache namespace with a file of the same name.
func (a *App) MeetingDocument(m *media.Meeting) (*loader.Document, error) {
	text, err := a.readTranscript(m)
	if err != nil {
		return nil, err
	}
	return &loader.Document{Name: MeetingSource(m.Name), Path: m.TranscriptPath(), Text: loader.Normalize(text)}, nil
}

// MeetingSource is the document name used for a meeting's transcript
func MeetingSource(name string) string {
	return "meeting:" + name
}

func (a *App) readTranscript(m *media.Meeting) (string, error) {
	data, err := os.ReadFile(m.TranscriptPath())
	if err != nil {
		return "", fmt.Errorf("no transcript for %s, run 'datachat meeting transcribe' first: %w", m.Name, err)
	}
	return string(data), nil
}

// SummaryPathFor returns <name>_summary.txt next to a transcript file
func SummaryPathFor(transcriptPath string) string {
	ext := filepath.Ext(transcriptPath)
	return strings.TrimSuffix(transcriptPath, ext) + "_summary.txt"
}
