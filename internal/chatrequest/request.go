// Package chatrequest models the inbound Anthropic-compatible chat
// completions request shape the Routing Decision Engine and Custom Router
// Loader both need to inspect, independent of the transport layer that
// decodes it off the wire.
package chatrequest

import "strings"

// SubagentMarkerStart and SubagentMarkerEnd bracket an inline routing
// override in the first user message's text (spec.md §4.7).
const (
	SubagentMarkerStart = "<CCR-SUBAGENT-MODEL>"
	SubagentMarkerEnd   = "</CCR-SUBAGENT-MODEL>"

	// DefaultBackgroundMarker is the declared-model prefix that routes to
	// the background target when no operator override is configured.
	DefaultBackgroundMarker = "claude-3-5-haiku"
)

// ContentBlock is one element of a message's content array.
type ContentBlock struct {
	Type string
	Text string
}

// Message is one entry of the request's messages array.
type Message struct {
	Role    string
	Content []ContentBlock
}

// Text concatenates the text of every text-typed content block in order.
func (m Message) Text() string {
	var b strings.Builder
	for _, c := range m.Content {
		if c.Type == "" || c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// Tool is one entry of the request's tools array.
type Tool struct {
	Type string
	Name string
}

// Thinking is the request's extended-thinking configuration, if any.
type Thinking struct {
	Type string
}

// Request is the subset of an inbound chat completions request the routing
// decision depends on.
type Request struct {
	Model    string
	Messages []Message
	Tools    []Tool
	Thinking *Thinking
}

// FirstUserMessage returns the first role="user" message, if any.
func (r Request) FirstUserMessage() (Message, bool) {
	for _, m := range r.Messages {
		if m.Role == "user" {
			return m, true
		}
	}
	return Message{}, false
}

// WantsWebSearch reports whether any tool entry advertises web search use,
// recognizing both Anthropic's versioned built-in tool types and a generic
// "web_search" name for operator-defined tools.
func (r Request) WantsWebSearch() bool {
	for _, t := range r.Tools {
		if strings.HasPrefix(t.Type, "web_search") || t.Name == "web_search" {
			return true
		}
	}
	return false
}

// WantsThinking reports whether the request enables extended-thinking mode.
func (r Request) WantsThinking() bool {
	return r.Thinking != nil && r.Thinking.Type == "enabled"
}

// SubagentOverrideTarget extracts a "provider,model" target from the literal
// <CCR-SUBAGENT-MODEL>...</CCR-SUBAGENT-MODEL> marker at the start of the
// first user message's text, if present.
func (r Request) SubagentOverrideTarget() (string, bool) {
	msg, ok := r.FirstUserMessage()
	if !ok {
		return "", false
	}

	text := msg.Text()
	if !strings.HasPrefix(text, SubagentMarkerStart) {
		return "", false
	}

	rest := text[len(SubagentMarkerStart):]
	end := strings.Index(rest, SubagentMarkerEnd)
	if end < 0 {
		return "", false
	}

	target := rest[:end]
	if target == "" {
		return "", false
	}
	return target, true
}

// IsBackgroundModel reports whether the request's declared model name
// begins with the given marker (DefaultBackgroundMarker when marker is "").
func (r Request) IsBackgroundModel(marker string) bool {
	if marker == "" {
		marker = DefaultBackgroundMarker
	}
	return strings.HasPrefix(r.Model, marker)
}
