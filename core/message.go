package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role categorizes the conversational author of a message.
type Role string

const (
	// RoleSystem marks instruction messages; they may never enter a chat
	// through the public append path.
	RoleSystem Role = "system"
	// RoleUser marks caller-authored input.
	RoleUser Role = "user"
	// RoleAssistant marks agent-produced output.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool / function execution results.
	RoleTool Role = "tool"
)

// Message is the primary unit of conversation exchanged between agents and
// the chat orchestrator. Once appended to a chat's history it must be treated
// as immutable: channels receive copies and never mutate the original. It
// captures:
//
//   - Identity (ID, generated once at construction)
//   - Authorship (Role plus the optional agent Name)
//   - Content (ordered heterogeneous Parts)
//   - Optional producer metadata and a UTC timestamp
type Message struct {
	ID        string            `json:"id"`
	Role      Role              `json:"role"`
	Name      string            `json:"name,omitempty"`
	Parts     []Part            `json:"parts"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// NewMessage creates a message with the given role and parts.
// Prefer the role-specific constructors for common cases.
func NewMessage(role Role, parts ...Part) Message {
	return Message{
		ID:        NewID(),
		Role:      role,
		Parts:     parts,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message {
	return NewMessage(RoleUser, TextPart{Text: text})
}

// NewAssistantMessage creates an assistant text message authored by the named agent.
func NewAssistantMessage(name, text string) Message {
	m := NewMessage(RoleAssistant, TextPart{Text: text})
	m.Name = name
	return m
}

// NewSystemMessage creates a system instruction message. Such messages are
// rejected by the chat's public append path and exist for channel-internal use.
func NewSystemMessage(text string) Message {
	return NewMessage(RoleSystem, TextPart{Text: text})
}

// NewFunctionCallMessage creates an assistant message requesting execution of
// a named function/tool.
func NewFunctionCallMessage(name string, call FunctionCall) Message {
	m := NewMessage(RoleAssistant, FunctionCallPart{FunctionCall: call})
	m.Name = name
	return m
}

// NewFunctionResponseMessage records the completion result (or error) of a
// previously requested function call.
func NewFunctionResponseMessage(name, id, function string, result any, err error) Message {
	fr := FunctionResponse{ID: id, Name: function, Response: result}
	if err != nil {
		fr.Error = err.Error()
	}
	m := NewMessage(RoleTool, FunctionResponsePart{FunctionResponse: fr})
	m.Name = name
	return m
}

// NewID generates a unique identifier for messages and agents.
func NewID() string { return uuid.NewString() }

// Text concatenates all text parts of the message in order.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if tp, ok := p.(TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String()
}

// GetFunctionCalls returns any FunctionCall parts contained within the
// message preserving their original order.
func (m Message) GetFunctionCalls() []FunctionCall {
	var calls []FunctionCall
	for _, p := range m.Parts {
		if fc, ok := p.(FunctionCallPart); ok {
			calls = append(calls, fc.FunctionCall)
		}
	}
	return calls
}

// GetFunctionResponses returns any FunctionResponse parts contained within
// the message preserving their original order.
func (m Message) GetFunctionResponses() []FunctionResponse {
	var responses []FunctionResponse
	for _, p := range m.Parts {
		if fr, ok := p.(FunctionResponsePart); ok {
			responses = append(responses, fr.FunctionResponse)
		}
	}
	return responses
}

// IsToolOnly reports whether the message carries exclusively function call /
// response parts and no displayable text. Used by presentation-level filters.
func (m Message) IsToolOnly() bool {
	if len(m.Parts) == 0 {
		return false
	}
	for _, p := range m.Parts {
		switch p.(type) {
		case FunctionCallPart, FunctionResponsePart:
		default:
			return false
		}
	}
	return true
}

// Clone returns a copy with independent Parts and Metadata containers so the
// original can be shared across channels without aliasing.
func (m Message) Clone() Message {
	c := m
	c.Parts = make([]Part, len(m.Parts))
	copy(c.Parts, m.Parts)
	if m.Metadata != nil {
		c.Metadata = make(map[string]string, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// CopyMessages returns a defensive copy of a message slice. The chat and the
// broadcast queue use it so history snapshots handed to channels can never be
// mutated behind the orchestrator's back.
func CopyMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.Clone()
	}
	return out
}
