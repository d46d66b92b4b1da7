package testutil

import (
	"github.com/hupe1980/agentchat/core"
)

// MessageBuilder provides a fluent helper for constructing messages in tests.
// Example:
//
//	msg := NewMessageBuilder().Role(core.RoleAssistant).Name("writer").Text("hello").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type MessageBuilder struct {
	id            string
	role          core.Role
	name          string
	textParts     []string
	funcCalls     []core.FunctionCall
	funcResponses []core.FunctionResponse
	customParts   []core.Part
	metadata      map[string]string
}

// NewMessageBuilder creates a builder with default role "user".
func NewMessageBuilder() *MessageBuilder { return &MessageBuilder{role: core.RoleUser} }

// ID overrides the auto-generated message ID (chainable). Use mainly in tests where determinism matters.
func (b *MessageBuilder) ID(id string) *MessageBuilder { b.id = id; return b }

// Role sets the message role (chainable).
func (b *MessageBuilder) Role(r core.Role) *MessageBuilder { b.role = r; return b }

// Name sets the authoring agent name (chainable).
func (b *MessageBuilder) Name(n string) *MessageBuilder { b.name = n; return b }

// Text appends a text part (chainable).
func (b *MessageBuilder) Text(t string) *MessageBuilder {
	b.textParts = append(b.textParts, t)
	return b
}

// FunctionCall appends a function call part (chainable).
func (b *MessageBuilder) FunctionCall(fc core.FunctionCall) *MessageBuilder {
	b.funcCalls = append(b.funcCalls, fc)
	return b
}

// FunctionResponse appends a function response part (chainable).
func (b *MessageBuilder) FunctionResponse(fr core.FunctionResponse) *MessageBuilder {
	b.funcResponses = append(b.funcResponses, fr)
	return b
}

// Part appends an arbitrary custom part (chainable).
func (b *MessageBuilder) Part(p core.Part) *MessageBuilder {
	b.customParts = append(b.customParts, p)
	return b
}

// Meta sets a metadata key/value pair (chainable).
func (b *MessageBuilder) Meta(k, v string) *MessageBuilder {
	if b.metadata == nil {
		b.metadata = map[string]string{}
	}
	b.metadata[k] = v
	return b
}

// Build assembles the message.
func (b *MessageBuilder) Build() core.Message {
	parts := make([]core.Part, 0, len(b.textParts)+len(b.funcCalls)+len(b.funcResponses)+len(b.customParts))
	for _, t := range b.textParts {
		parts = append(parts, core.TextPart{Text: t})
	}
	for _, fc := range b.funcCalls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	for _, fr := range b.funcResponses {
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: fr})
	}
	parts = append(parts, b.customParts...)

	m := core.NewMessage(b.role, parts...)
	if b.id != "" {
		m.ID = b.id
	}
	m.Name = b.name
	m.Metadata = b.metadata
	return m
}
