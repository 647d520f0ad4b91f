// ABOUTME: MCP tool handler implementations for the datachat server
// ABOUTME: Keeps one indexed source and conversation per document, site or meeting
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/datachat/internal/app"
	"github.com/harper/datachat/internal/core"
	"github.com/harper/datachat/internal/loader"
	"github.com/harper/datachat/internal/media"
	"github.com/harper/datachat/internal/models"
	"github.com/harper/datachat/internal/util"
)

// source is an indexed document with its conversation. contentKey is the
// hash of the text the retriever was built from.
type source struct {
	mu         sync.Mutex
	retriever  core.Retriever
	contentKey string
	session    *models.Session
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	app *app.App

	mu      sync.Mutex
	sources map[string]*source
	running map[string]bool
	failed  map[string]string

	bgCtx      context.Context
	cancel     context.CancelFunc
	shutdownWg *sync.WaitGroup // Track background transcriptions
}

// AskDocument handles the ask_document tool
func (h *Handlers) AskDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError("path argument is required and must be a string"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	k := request.GetInt("k", h.app.Config.TopK)

	key := sourceKey(path)
	src, err := h.source(ctx, key, func() (*loader.Document, error) {
		return loader.LoadFile(path)
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load document: %v", err)), nil
	}
	return h.answer(ctx, key, src, question, k)
}

// AskSite handles the ask_site tool
func (h *Handlers) AskSite(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url argument is required and must be a string"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}

	key := sourceKey(rawURL)
	src, err := h.source(ctx, key, func() (*loader.Document, error) {
		return h.app.Fetch(ctx, rawURL)
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load site: %v", err)), nil
	}
	return h.answer(ctx, key, src, question, 0)
}

// TranscribeMeeting handles the transcribe_meeting tool
func (h *Handlers) TranscribeMeeting(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	video, err := request.RequireString("video")
	if err != nil {
		return mcp.NewToolResultError("video argument is required and must be a string"), nil
	}

	m, err := h.app.Meeting(video)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if m.HasTranscript() {
		return jsonResult(map[string]interface{}{"meeting": m.Name, "status": "transcribed"})
	}
	if !util.FileExists(video) && !util.FileExists(m.VideoPath()) {
		return mcp.NewToolResultError(fmt.Sprintf("video not found: %s", video)), nil
	}
	if _, err := h.app.Pipeline(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	h.mu.Lock()
	if h.running[m.Name] {
		h.mu.Unlock()
		return jsonResult(map[string]interface{}{"meeting": m.Name, "status": "running"})
	}
	h.running[m.Name] = true
	delete(h.failed, m.Name)
	h.mu.Unlock()

	src := video
	if !util.FileExists(src) {
		src = m.VideoPath()
	}

	// Transcription outlives the request - track goroutine for clean shutdown
	h.shutdownWg.Add(1)
	go func() {
		defer h.shutdownWg.Done()
		_, err := h.app.Transcribe(h.bgCtx, m, src, func(i, n int) {
			h.app.Logger.Info("transcribing", "meeting", m.Name, "segment", i, "of", n)
		})

		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.running, m.Name)
		if err != nil {
			h.failed[m.Name] = err.Error()
			h.app.Logger.Error("transcription failed", "meeting", m.Name, "err", err)
			return
		}
		h.app.Logger.Info("transcription complete", "meeting", m.Name)
	}()

	return jsonResult(map[string]interface{}{"meeting": m.Name, "status": "started"})
}

// MeetingStatus handles the meeting_status tool
func (h *Handlers) MeetingStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	video, err := request.RequireString("video")
	if err != nil {
		return mcp.NewToolResultError("video argument is required and must be a string"), nil
	}
	m, err := h.app.Meeting(video)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	response := map[string]interface{}{
		"meeting":    m.Name,
		"status":     h.status(m),
		"transcript": m.TranscriptPath(),
	}
	if util.FileExists(m.SummaryPath()) {
		response["summary"] = m.SummaryPath()
	}
	h.mu.Lock()
	if msg, ok := h.failed[m.Name]; ok {
		response["error"] = msg
	}
	h.mu.Unlock()

	return jsonResult(response)
}

func (h *Handlers) status(m *media.Meeting) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.running[m.Name]:
		return "running"
	case m.HasTranscript():
		return "transcribed"
	case h.failed[m.Name] != "":
		return "failed"
	default:
		return "pending"
	}
}

// SummarizeMeeting handles the summarize_meeting tool
func (h *Handlers) SummarizeMeeting(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	video, err := request.RequireString("video")
	if err != nil {
		return mcp.NewToolResultError("video argument is required and must be a string"), nil
	}
	m, err := h.app.Meeting(video)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !m.HasTranscript() {
		return mcp.NewToolResultError(fmt.Sprintf("meeting %s has no transcript yet, call transcribe_meeting first", m.Name)), nil
	}

	summary, err := h.app.SummarizeMeeting(ctx, m, nil, nil)
	if err != nil {
		var sf *models.SummarizationFailedError
		if errors.As(err, &sf) {
			return mcp.NewToolResultError(fmt.Sprintf("summarization failed at chunk %d: %v", sf.AtIndex, sf.Err)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("summarization failed: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"meeting": m.Name,
		"summary": summary,
		"path":    m.SummaryPath(),
	})
}

// AskMeeting handles the ask_meeting tool
func (h *Handlers) AskMeeting(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	video, err := request.RequireString("video")
	if err != nil {
		return mcp.NewToolResultError("video argument is required and must be a string"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("question argument is required and must be a string"), nil
	}
	m, err := h.app.Meeting(video)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	key := sourceKey(video)
	src, err := h.source(ctx, key, func() (*loader.Document, error) {
		return h.app.MeetingDocument(m)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return h.answer(ctx, key, src, question, 0)
}

// GetConversation handles the get_conversation tool
func (h *Handlers) GetConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source argument is required and must be a string"), nil
	}

	h.mu.Lock()
	src, ok := h.sources[sourceKey(name)]
	h.mu.Unlock()
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no conversation with %s", name)), nil
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	transcript, err := src.session.MarshalYAMLTranscript()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal conversation: %v", err)), nil
	}
	return mcp.NewToolResultText(string(transcript)), nil
}

// ResetConversation handles the reset_conversation tool
func (h *Handlers) ResetConversation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError("source argument is required and must be a string"), nil
	}

	h.mu.Lock()
	src, ok := h.sources[sourceKey(name)]
	h.mu.Unlock()
	if !ok {
		return jsonResult(map[string]interface{}{"success": true, "cleared": 0})
	}

	src.mu.Lock()
	cleared := src.session.Len()
	src.session = models.NewSession(src.session.Source)
	src.mu.Unlock()

	return jsonResult(map[string]interface{}{"success": true, "cleared": cleared})
}

// Shutdown cancels background transcriptions and waits for them to stop
func (h *Handlers) Shutdown() {
	h.app.Logger.Info("Waiting for pending transcriptions to stop...")
	h.cancel()
	h.shutdownWg.Wait()
	h.app.Logger.Info("All transcriptions stopped")
}

// source returns the indexed source for key. The document is reloaded on every
// call; when its text changed the index is rebuilt and the conversation cleared.
func (h *Handlers) source(ctx context.Context, key string, load func() (*loader.Document, error)) (*source, error) {
	doc, err := load()
	if err != nil {
		return nil, err
	}
	contentKey := models.ContentKey(doc.Text)

	h.mu.Lock()
	src, ok := h.sources[key]
	if !ok {
		src = &source{session: models.NewSession(doc.Name)}
		h.sources[key] = src
	}
	h.mu.Unlock()

	src.mu.Lock()
	defer src.mu.Unlock()
	if src.retriever != nil && src.contentKey == contentKey {
		return src, nil
	}

	r, err := h.app.Retriever(ctx, doc)
	if err != nil {
		return nil, err
	}
	if src.retriever != nil {
		h.app.Logger.Info("source changed, index rebuilt", "source", key, "cleared", src.session.Len())
	}
	src.retriever = r
	src.contentKey = contentKey
	src.session = models.NewSession(doc.Name)
	return src, nil
}

func (h *Handlers) answer(ctx context.Context, key string, src *source, question string, k int) (*mcp.CallToolResult, error) {
	src.mu.Lock()
	defer src.mu.Unlock()

	answer, err := h.app.Responder(src.retriever, k).Answer(ctx, src.session, question, core.StreamHandler{})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to answer: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"source":   key,
		"answer":   answer,
		"messages": src.session.Len(),
	})
}

// sourceKey normalizes a document path, URL or video so repeated calls share a session
func sourceKey(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") {
		return name
	}
	if media.IsVideoFile(name) {
		base := filepath.Base(name)
		return app.MeetingSource(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if abs, err := filepath.Abs(name); err == nil {
		return abs
	}
	return name
}

func jsonResult(response map[string]interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
