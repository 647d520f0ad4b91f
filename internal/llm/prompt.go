// ABOUTME: Provider-neutral prompt representation passed to completion clients
// ABOUTME: A Prompt is an ordered list of role-tagged messages
package llm

import "strings"

// Role of a prompt message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat prompt
type Message struct {
	Role    Role
	Content string
}

// Prompt is an ordered chat prompt
type Prompt []Message

// System builds a system message
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// String flattens the prompt, mostly for logging and fakes
func (p Prompt) String() string {
	var sb strings.Builder
	for i, m := range p {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
	}
	return sb.String()
}

// TokenFunc receives streamed tokens in arrival order
type TokenFunc func(token string)
