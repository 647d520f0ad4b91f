// ABOUTME: MCP tool definitions and registration for the datachat server
// ABOUTME: Exposes document Q&A, site Q&A and meeting transcription, summary and Q&A as tools
package mcp

import (
	"context"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/datachat/internal/app"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, a *app.App) *Handlers {
	handlers := NewHandlers(a)

	// 1. ask_document - Q&A over a local file
	server.AddTool(mcp.Tool{
		Name:        "ask_document",
		Description: "Answer a question using the content of a local document (pdf, docx, txt, md, html). The conversation with each document is remembered for the lifetime of the server.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Path to the document",
				},
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question about the document",
				},
				"k": map[string]interface{}{
					"type":        "number",
					"description": "Number of context chunks to retrieve (default: 4)",
					"default":     4,
				},
			},
			Required: []string{"path", "question"},
		},
	}, handlers.AskDocument)

	// 2. ask_site - Q&A over a web page
	server.AddTool(mcp.Tool{
		Name:        "ask_site",
		Description: "Fetch a web page, extract its readable text and answer a question about it.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "http or https URL of the page",
				},
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question about the page",
				},
			},
			Required: []string{"url", "question"},
		},
	}, handlers.AskSite)

	// 3. transcribe_meeting - start transcription of a recording
	server.AddTool(mcp.Tool{
		Name:        "transcribe_meeting",
		Description: "Transcribe a meeting recording (mp4, avi, mkv, mov, webm) with ffmpeg and Whisper. Runs in the background; poll meeting_status for completion.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"video": map[string]interface{}{
					"type":        "string",
					"description": "Path to the video file",
				},
			},
			Required: []string{"video"},
		},
	}, handlers.TranscribeMeeting)

	// 4. meeting_status - transcription progress
	server.AddTool(mcp.Tool{
		Name:        "meeting_status",
		Description: "Report whether a meeting has been transcribed and summarized.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"video": map[string]interface{}{
					"type":        "string",
					"description": "Path or file name of the video",
				},
			},
			Required: []string{"video"},
		},
	}, handlers.MeetingStatus)

	// 5. summarize_meeting - refine summary of a transcript
	server.AddTool(mcp.Tool{
		Name:        "summarize_meeting",
		Description: "Summarize a transcribed meeting. The summary is saved next to the transcript and reused on later calls.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"video": map[string]interface{}{
					"type":        "string",
					"description": "Path or file name of the video",
				},
			},
			Required: []string{"video"},
		},
	}, handlers.SummarizeMeeting)

	// 6. ask_meeting - Q&A over a transcript
	server.AddTool(mcp.Tool{
		Name:        "ask_meeting",
		Description: "Answer a question about a transcribed meeting.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"video": map[string]interface{}{
					"type":        "string",
					"description": "Path or file name of the video",
				},
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question about the meeting",
				},
			},
			Required: []string{"video", "question"},
		},
	}, handlers.AskMeeting)

	// 7. get_conversation - session log
	server.AddTool(mcp.Tool{
		Name:        "get_conversation",
		Description: "Return the conversation so far with a document, site or meeting as YAML.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Document path, URL or video the conversation is about",
				},
			},
			Required: []string{"source"},
		},
	}, handlers.GetConversation)

	// 8. reset_conversation - clear a session log
	server.AddTool(mcp.Tool{
		Name:        "reset_conversation",
		Description: "Forget the conversation with a source. The embedding cache is kept.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source": map[string]interface{}{
					"type":        "string",
					"description": "Document path, URL or video the conversation is about",
				},
			},
			Required: []string{"source"},
		},
	}, handlers.ResetConversation)

	return handlers
}

// NewHandlers creates handlers for a. Background work is bound to a context
// cancelled by Shutdown.
func NewHandlers(a *app.App) *Handlers {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handlers{
		app:        a,
		sources:    make(map[string]*source),
		running:    make(map[string]bool),
		failed:     make(map[string]string),
		bgCtx:      ctx,
		cancel:     cancel,
		shutdownWg: &sync.WaitGroup{},
	}
}
