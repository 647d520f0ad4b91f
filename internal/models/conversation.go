// ABOUTME: Conversation log for a chat session over one source document
// ABOUTME: Append-only, insertion ordered, cleared when the active source changes
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Role identifies who produced a conversation message
type Role string

const (
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// ConversationMessage is a single entry in a session log
type ConversationMessage struct {
	Role      Role      `json:"role" yaml:"role"`
	Text      string    `json:"text" yaml:"text"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Session holds the conversation state for one user working against one
// source. It is passed explicitly to each handler rather than kept globally.
type Session struct {
	ID       string                `json:"id" yaml:"id"`
	Source   string                `json:"source" yaml:"source"`
	Messages []ConversationMessage `json:"messages" yaml:"messages"`
}

// NewSession creates an empty session bound to source
func NewSession(source string) *Session {
	return &Session{
		ID:     "session_" + uuid.New().String(),
		Source: source,
	}
}

// Append adds a message to the end of the log. Messages are never
// reordered or deduplicated.
func (s *Session) Append(role Role, text string) {
	s.Messages = append(s.Messages, ConversationMessage{
		Role:      role,
		Text:      text,
		CreatedAt: time.Now(),
	})
}

// Len returns the number of logged messages
func (s *Session) Len() int {
	return len(s.Messages)
}

// Reset clears the log when the active source changes. Switching to the same
// source keeps the history.
func (s *Session) Reset(source string) {
	if s.Source == source {
		return
	}
	s.Source = source
	s.Messages = nil
}

// MarshalYAMLTranscript renders the session as a YAML document for saving
func (s *Session) MarshalYAMLTranscript() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, nil
}
