// ABOUTME: Tests for the doc, site, meeting and cache commands
// ABOUTME: Structure checks plus end-to-end runs against temp dirs and a local HTTP server
package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/config"
	"github.com/harper/datachat/internal/llm"
	"github.com/harper/datachat/internal/loader"
	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/storage"
)

// testEnv points config at temp dirs with a dummy key
func testEnv(t *testing.T) (dataDir, cacheDir string) {
	t.Helper()
	root := t.TempDir()
	dataDir = filepath.Join(root, "data")
	cacheDir = filepath.Join(root, "cache")
	t.Setenv("DATACHAT_CONFIG", filepath.Join(root, "missing.toml"))
	t.Setenv("DATACHAT_DATA_DIR", dataDir)
	t.Setenv("DATACHAT_CACHE_DIR", cacheDir)
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CACHE_BACKEND", "fs")
	return dataDir, cacheDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetGlobals(t)
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func findSub(t *testing.T, cmd *cobra.Command, name string) *cobra.Command {
	t.Helper()
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	t.Fatalf("subcommand %q not found under %q", name, cmd.Name())
	return nil
}

func TestCommandGroups_Subcommands(t *testing.T) {
	tests := []struct {
		group *cobra.Command
		subs  []string
	}{
		{NewDocCmd(), []string{"ask", "chat"}},
		{NewMeetingCmd(), []string{"transcribe", "summarize", "ask", "chat", "list", "watch"}},
		{NewCacheCmd(), []string{"stats", "clear", "sync"}},
	}

	for _, tt := range tests {
		t.Run(tt.group.Name(), func(t *testing.T) {
			if tt.group.Long == "" {
				t.Error("Long description should not be empty")
			}
			for _, name := range tt.subs {
				sub := findSub(t, tt.group, name)
				if sub.RunE == nil {
					t.Errorf("%s %s should have RunE", tt.group.Name(), name)
				}
			}
		})
	}
}

func TestDocCmd_Flags(t *testing.T) {
	doc := NewDocCmd()
	chat := findSub(t, doc, "chat")
	if chat.Flags().Lookup("save") == nil {
		t.Error("doc chat should have --save")
	}
	ask := findSub(t, doc, "ask")
	if f := ask.Flags().Lookup("k"); f == nil || f.DefValue != "4" {
		t.Error("doc ask should have --k defaulting to 4")
	}
}

func TestDocAsk_RejectsUnsupportedFile(t *testing.T) {
	testEnv(t)
	path := filepath.Join(t.TempDir(), "budget.xlsx")
	if err := os.WriteFile(path, []byte("PK"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := run(t, "doc", "ask", path, "what?")
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("err = %v, want unsupported input", err)
	}
}

func TestDocAsk_InvalidK(t *testing.T) {
	testEnv(t)
	if _, err := run(t, "doc", "ask", "x.txt", "q", "--k", "-1"); err == nil {
		t.Error("--k -1 should fail")
	}
}

func TestKFlags_DefaultToConfig(t *testing.T) {
	tests := []struct {
		group *cobra.Command
		path  []string
	}{
		{NewDocCmd(), []string{"ask"}},
		{NewDocCmd(), []string{"chat"}},
		{NewMeetingCmd(), []string{"ask"}},
		{NewMeetingCmd(), []string{"chat"}},
		{NewSiteCmd(), nil},
	}
	for _, tt := range tests {
		cmd := tt.group
		for _, name := range tt.path {
			cmd = findSub(t, cmd, name)
		}
		flag := cmd.Flags().Lookup("k")
		if flag == nil {
			t.Fatalf("%s has no --k flag", cmd.CommandPath())
		}
		if flag.DefValue != "0" {
			t.Errorf("%s --k default = %s, want 0 so RETRIEVER_TOP_K applies", cmd.CommandPath(), flag.DefValue)
		}
	}
}

func TestSiteCmd_PrintsText(t *testing.T) {
	testEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><script>var x = 1;</script><p>Release notes for version two.</p></body></html>`))
	}))
	defer srv.Close()

	out, err := run(t, "--format", "json", "site", srv.URL+"/notes/")
	if err != nil {
		t.Fatalf("site failed: %v", err)
	}
	var got siteOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if !strings.Contains(got.Text, "Release notes for version two.") {
		t.Errorf("text = %q", got.Text)
	}
	if strings.Contains(got.Text, "var x") {
		t.Errorf("script leaked into text: %q", got.Text)
	}
}

func TestSiteCmd_AskAndChatExclusive(t *testing.T) {
	testEnv(t)
	if _, err := run(t, "site", "https://example.com", "--ask", "q", "--chat"); err == nil {
		t.Error("--ask and --chat together should fail")
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	_, cacheDir := testEnv(t)

	backend, err := storage.NewFSBackend(filepath.Join(cacheDir, "embeddings"))
	if err != nil {
		t.Fatal(err)
	}
	for ns, n := range map[string]int{"report.pdf": 3, "notes.md": 1} {
		store, err := backend.Open(ns)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < n; i++ {
			if err := store.Set(string(rune('a'+i)), []byte("{}")); err != nil {
				t.Fatal(err)
			}
		}
	}

	out, err := run(t, "--format", "json", "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	var stats []namespaceStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(stats) != 2 || stats[0].Namespace != "notes.md" || stats[1].Entries != 3 {
		t.Errorf("stats = %+v", stats)
	}

	out, err = run(t, "cache", "clear", "report.pdf")
	if err != nil {
		t.Fatalf("cache clear failed: %v", err)
	}
	if !strings.Contains(out, "Cleared 3 embeddings") {
		t.Errorf("clear output = %q", out)
	}

	out, err = run(t, "cache", "stats")
	if err != nil {
		t.Fatalf("cache stats failed: %v", err)
	}
	if strings.Contains(out, "report.pdf") {
		t.Errorf("report.pdf should be gone:\n%s", out)
	}
}

func TestCacheSync_RequiresCharm(t *testing.T) {
	testEnv(t)
	_, err := run(t, "cache", "sync")
	if err == nil || !strings.Contains(err.Error(), "CACHE_BACKEND=charm") {
		t.Errorf("err = %v, want charm backend error", err)
	}
}

func TestMeetingList(t *testing.T) {
	dataDir, _ := testEnv(t)
	dir := filepath.Join(dataDir, "meetings")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"standup.mp4", "standup.txt", "retro.mov"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := run(t, "--format", "json", "meeting", "list")
	if err != nil {
		t.Fatalf("meeting list failed: %v", err)
	}
	var entries []meetingListEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if len(entries) != 2 || entries[0].Name != "retro" || !entries[1].Transcript {
		t.Errorf("entries = %+v", entries)
	}
}

func TestMeetingSummarize_TranscriptFileReusesSummary(t *testing.T) {
	testEnv(t)
	dir := t.TempDir()
	transcript := filepath.Join(dir, "interview.txt")
	if err := os.WriteFile(transcript, []byte("long transcript"), 0644); err != nil {
		t.Fatal(err)
	}
	// an existing summary is returned without calling the model
	if err := os.WriteFile(filepath.Join(dir, "interview_summary.txt"), []byte("saved summary"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--format", "json", "meeting", "summarize", transcript)
	if err != nil {
		t.Fatalf("meeting summarize failed: %v", err)
	}
	var got summaryOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Summary != "saved summary" || got.Meeting != "interview" {
		t.Errorf("summary = %+v", got)
	}
}

func TestMeetingTranscribe_RejectsNonVideo(t *testing.T) {
	testEnv(t)
	if _, err := run(t, "meeting", "transcribe", "notes.pdf"); err == nil {
		t.Error("transcribe of a pdf should fail")
	}
}

// stubProvider answers every question with the same streamed reply
type stubProvider struct{}

func (stubProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	return []float64{float64(len(text)), 1}, nil
}
func (stubProvider) EmbeddingModel() string { return "stub" }
func (stubProvider) Complete(ctx context.Context, p llm.Prompt) (string, error) {
	return "summary", nil
}
func (stubProvider) Stream(ctx context.Context, p llm.Prompt, onToken llm.TokenFunc) (string, error) {
	onToken("I don't ")
	onToken("know.")
	return "I don't know.", nil
}

func TestChatLoop_SavesTranscript(t *testing.T) {
	resetGlobals(t)
	root := t.TempDir()
	cfg := config.Default()
	cfg.CacheDir = root
	backend, err := storage.NewFSBackend(root)
	if err != nil {
		t.Fatal(err)
	}
	a, err := app.New(context.Background(), cfg, app.Deps{Provider: stubProvider{}, Backend: backend})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	r, err := a.Retriever(context.Background(), docFixture())
	if err != nil {
		t.Fatal(err)
	}

	cmd := &cobra.Command{}
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader("Who won?\n\nWhen?\nexit\nignored\n"))

	save := filepath.Join(root, "chat.yaml")
	session := models.NewSession("scores.txt")
	if err := chatLoop(context.Background(), cmd, a, r, session, 2, save); err != nil {
		t.Fatalf("chatLoop() failed: %v", err)
	}

	if !strings.Contains(stdout.String(), greeting) {
		t.Error("chat should greet")
	}
	if strings.Count(stdout.String(), "I don't know.") != 2 {
		t.Errorf("expected two answers, got:\n%s", stdout.String())
	}
	if session.Len() != 4 {
		t.Errorf("session has %d messages, want 4", session.Len())
	}

	data, err := os.ReadFile(save)
	if err != nil {
		t.Fatalf("transcript not saved: %v", err)
	}
	var saved models.Session
	if err := yaml.Unmarshal(data, &saved); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if saved.Source != "scores.txt" || len(saved.Messages) != 4 || saved.Messages[0].Text != "Who won?" {
		t.Errorf("saved = %+v", saved)
	}
	if saved.Messages[1].Role != models.RoleAI {
		t.Errorf("second message role = %s, want ai", saved.Messages[1].Role)
	}
}

func docFixture() *loader.Document {
	return &loader.Document{
		Name: "scores.txt",
		Text: "The home team won three to one.\n\nThe match was played on Saturday.",
	}
}
