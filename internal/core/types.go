// Package core provides core types and interfaces for the inference gateway.
package core

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Provider-agnostic request defaults.
const (
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultTimeout     = 60 * time.Second
)

// Message roles accepted in structured prompts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single turn in a structured prompt
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is the caller's input: either plain text or an ordered list of turns.
// A Prompt is never mutated after construction.
type Prompt struct {
	text     string
	messages []Message
}

// TextPrompt creates a prompt from a plain string.
func TextPrompt(text string) Prompt {
	return Prompt{text: text}
}

// MessagesPrompt creates a prompt from structured turns. The slice is copied.
func MessagesPrompt(messages []Message) Prompt {
	cp := make([]Message, len(messages))
	copy(cp, messages)
	return Prompt{messages: cp}
}

// IsEmpty reports whether the prompt carries no usable content.
func (p Prompt) IsEmpty() bool {
	if len(p.messages) == 0 {
		return strings.TrimSpace(p.text) == ""
	}
	for _, m := range p.messages {
		if strings.TrimSpace(m.Content) != "" {
			return false
		}
	}
	return true
}

// Messages returns the prompt as chat turns. A plain text prompt becomes a single user turn.
func (p Prompt) Messages() []Message {
	if len(p.messages) == 0 {
		return []Message{{Role: RoleUser, Content: p.text}}
	}
	cp := make([]Message, len(p.messages))
	copy(cp, p.messages)
	return cp
}

// Text returns the prompt flattened to a single string for raw-completion providers.
// A single user turn is returned verbatim; longer conversations are rendered as
// "Role: content" lines followed by an open assistant turn.
func (p Prompt) Text() string {
	if len(p.messages) == 0 {
		return p.text
	}
	if len(p.messages) == 1 && p.messages[0].Role == RoleUser {
		return p.messages[0].Content
	}

	var b strings.Builder
	for _, m := range p.messages {
		b.WriteString(roleLabel(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	b.WriteString(roleLabel(RoleAssistant))
	b.WriteString(":")
	return b.String()
}

func roleLabel(role string) string {
	switch role {
	case RoleSystem:
		return "System"
	case RoleAssistant:
		return "Assistant"
	case RoleUser, "":
		return "User"
	default:
		r, size := utf8.DecodeRuneInString(role)
		return string(unicode.ToUpper(r)) + role[size:]
	}
}

// IsKnownRole reports whether role is one of the message roles every provider accepts.
func IsKnownRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Options holds call-time request options. Nil pointers and zero values mean "use the default".
type Options struct {
	Model       string
	MaxTokens   *int
	Temperature *float64
	Timeout     time.Duration
}

// Resolved returns a copy of the options with every default filled in.
func (o Options) Resolved() Options {
	out := o
	if out.MaxTokens == nil {
		v := DefaultMaxTokens
		out.MaxTokens = &v
	}
	if out.Temperature == nil {
		v := DefaultTemperature
		out.Temperature = &v
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}

// MaxTokensValue returns the effective max_tokens value.
func (o Options) MaxTokensValue() int {
	return *o.Resolved().MaxTokens
}

// TemperatureValue returns the effective temperature value.
func (o Options) TemperatureValue() float64 {
	return *o.Resolved().Temperature
}

// Shape identifies which request payload family an adapter speaks.
type Shape string

const (
	// ShapeChat is an ordered list of role/content turns.
	ShapeChat Shape = "chat"
	// ShapeCompletion is a single prompt string plus generation parameters.
	ShapeCompletion Shape = "completion"
)

// RequestSpec is a provider-specific request built fresh for one call.
// The typed fields mirror what was serialized into Body so callers can inspect it.
type RequestSpec struct {
	Shape       Shape
	Method      string
	Endpoint    string
	Model       string
	Messages    []Message
	Prompt      string
	MaxTokens   int
	Temperature float64
	Stream      bool
	Headers     map[string]string

	// Body is the exact wire payload, JSON marshaled by the transport.
	Body any
}

// LocalModel describes a model available from a locally reachable provider.
type LocalModel struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size,omitempty"`
	Digest     string    `json:"digest,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}
