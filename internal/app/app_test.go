// ABOUTME: Tests for the app wiring using an in-process fake provider
// ABOUTME: Covers document Q&A, cache reuse across runs and meeting summarization
package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/harper/datachat/internal/config"
	"github.com/harper/datachat/internal/core"
	"github.com/harper/datachat/internal/llm"
	"github.com/harper/datachat/internal/loader"
	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/storage"
)

// fakeProvider embeds by counting a few marker words and answers with a fixed reply
type fakeProvider struct {
	mu        sync.Mutex
	embeds    int
	completes int
}

func (f *fakeProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	f.mu.Lock()
	f.embeds++
	f.mu.Unlock()
	t := strings.ToLower(text)
	return []float64{
		float64(strings.Count(t, "budget")),
		float64(strings.Count(t, "holiday")),
		1,
	}, nil
}

func (f *fakeProvider) EmbeddingModel() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	f.mu.Lock()
	f.completes++
	n := f.completes
	f.mu.Unlock()
	return "summary v" + string(rune('0'+n)), nil
}

func (f *fakeProvider) Stream(ctx context.Context, p llm.Prompt, onToken llm.TokenFunc) (string, error) {
	for _, tok := range []string{"The ", "budget ", "grew."} {
		onToken(tok)
	}
	return "The budget grew.", nil
}

func newTestApp(t *testing.T, root string, provider *fakeProvider) *App {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(root, "data")
	cfg.CacheDir = filepath.Join(root, "cache")
	cfg.ChunkSize = 20
	cfg.ChunkOverlap = 0

	backend, err := storage.NewFSBackend(filepath.Join(cfg.CacheDir, "embeddings"))
	if err != nil {
		t.Fatal(err)
	}
	a, err := New(context.Background(), cfg, Deps{Provider: provider, Backend: backend})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func testDocument() *loader.Document {
	return &loader.Document{
		Name: "report.txt",
		Text: "The budget grew by ten percent this year.\n\nThe holiday party moved to June.\n\nNothing else changed.",
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.OpenAIKey = ""
	if _, err := New(context.Background(), cfg, Deps{}); err == nil {
		t.Error("New() should fail without an API key")
	}
}

// kRecorder records the k each query asked for
type kRecorder struct{ ks []int }

func (r *kRecorder) Query(ctx context.Context, text string, k int) ([]models.ScoredChunk, error) {
	r.ks = append(r.ks, k)
	return nil, nil
}

func TestResponder_ZeroKUsesConfiguredTopK(t *testing.T) {
	a := newTestApp(t, t.TempDir(), &fakeProvider{})
	a.Config.TopK = 7

	rec := &kRecorder{}
	session := models.NewSession("report.txt")
	if _, err := a.Responder(rec, 0).Answer(context.Background(), session, "q", core.StreamHandler{}); err != nil {
		t.Fatalf("Answer() failed: %v", err)
	}
	if _, err := a.Responder(rec, 2).Answer(context.Background(), session, "q", core.StreamHandler{}); err != nil {
		t.Fatalf("Answer() failed: %v", err)
	}
	if len(rec.ks) != 2 || rec.ks[0] != 7 || rec.ks[1] != 2 {
		t.Errorf("query k = %v, want [7 2]", rec.ks)
	}
}

func TestResponder_AnswersAndRecordsSession(t *testing.T) {
	provider := &fakeProvider{}
	a := newTestApp(t, t.TempDir(), provider)

	r, err := a.Retriever(context.Background(), testDocument())
	if err != nil {
		t.Fatalf("Retriever() failed: %v", err)
	}

	session := models.NewSession("report.txt")
	var streamed strings.Builder
	answer, err := a.Responder(r, 0).Answer(context.Background(), session, "What happened to the budget?", core.StreamHandler{
		OnToken: func(tok string) { streamed.WriteString(tok) },
	})
	if err != nil {
		t.Fatalf("Answer() failed: %v", err)
	}
	if answer != "The budget grew." || streamed.String() != answer {
		t.Errorf("answer = %q, streamed = %q", answer, streamed.String())
	}
	if session.Len() != 2 {
		t.Errorf("session has %d messages, want 2", session.Len())
	}
}

func TestResponder_ReusesCacheAcrossRuns(t *testing.T) {
	root := t.TempDir()
	doc := testDocument()

	first := &fakeProvider{}
	if _, err := newTestApp(t, root, first).Retriever(context.Background(), doc); err != nil {
		t.Fatalf("Retriever() failed: %v", err)
	}
	if first.embeds == 0 {
		t.Fatal("first run should embed chunks")
	}

	second := &fakeProvider{}
	if _, err := newTestApp(t, root, second).Retriever(context.Background(), doc); err != nil {
		t.Fatalf("Retriever() failed: %v", err)
	}
	if second.embeds != 0 {
		t.Errorf("second run embedded %d chunks, want 0", second.embeds)
	}
}

func TestSummarizeFile_PersistsAndReuses(t *testing.T) {
	provider := &fakeProvider{}
	a := newTestApp(t, t.TempDir(), provider)

	dir := t.TempDir()
	transcript := filepath.Join(dir, "standup.txt")
	if err := os.WriteFile(transcript, []byte("We talked about the roadmap and the release."), 0644); err != nil {
		t.Fatal(err)
	}
	dest := SummaryPathFor(transcript)
	if dest != filepath.Join(dir, "standup_summary.txt") {
		t.Errorf("SummaryPathFor() = %s", dest)
	}

	summary, err := a.SummarizeFile(context.Background(), transcript, dest, nil, nil)
	if err != nil {
		t.Fatalf("SummarizeFile() failed: %v", err)
	}
	if summary != "summary v1" {
		t.Errorf("summary = %q, want summary v1", summary)
	}

	again, err := a.SummarizeFile(context.Background(), transcript, dest, nil, nil)
	if err != nil {
		t.Fatalf("SummarizeFile() failed: %v", err)
	}
	if again != summary {
		t.Errorf("second summary = %q, want cached %q", again, summary)
	}
	if provider.completes != 1 {
		t.Errorf("completes = %d, want 1", provider.completes)
	}
}

func TestSummarizeFile_MissingTranscript(t *testing.T) {
	a := newTestApp(t, t.TempDir(), &fakeProvider{})
	dir := t.TempDir()
	if _, err := a.SummarizeFile(context.Background(), filepath.Join(dir, "x.txt"), filepath.Join(dir, "x_summary.txt"), nil, nil); err == nil {
		t.Error("SummarizeFile() should fail without a transcript")
	}
}

func TestMeetingDocument(t *testing.T) {
	a := newTestApp(t, t.TempDir(), &fakeProvider{})
	m, err := a.Meeting("/videos/retro.mkv")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := a.MeetingDocument(m); err == nil {
		t.Error("MeetingDocument() should fail before transcription")
	}

	if err := os.MkdirAll(m.Dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.TranscriptPath(), []byte("retro notes\r\n"), 0644); err != nil {
		t.Fatal(err)
	}
	doc, err := a.MeetingDocument(m)
	if err != nil {
		t.Fatalf("MeetingDocument() failed: %v", err)
	}
	if doc.Name != "meeting:retro" || doc.Text != "retro notes" {
		t.Errorf("doc = %+v", doc)
	}
	if storage.NamespaceFor(doc.Name) == storage.NamespaceFor("retro") {
		t.Errorf("meeting shares namespace %q with a plain document", storage.NamespaceFor(doc.Name))
	}
}
