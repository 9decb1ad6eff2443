// Package agent drives the bounded tool-calling conversation with the
// generation service: send the question, execute any tool calls the model
// requests, feed results back, and stop once the model answers in text or
// the round budget runs out.
package agent

import (
	"context"
	"errors"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/search"
)

// ErrServiceUnavailable marks generation-service transport failures. The
// loop never retries; retry policy belongs to the caller.
var ErrServiceUnavailable = errors.New("generation service unavailable")

// Role identifies who produced a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult carries one executed call's output back to the model.
// IsError marks execution failures the model should see as such.
type ToolResult struct {
	ID      string
	Name    string
	Text    string
	IsError bool
}

// Message is one conversation turn. Exactly one of Text, ToolCalls, or
// ToolResults is populated depending on Role.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// Request is everything one generation call needs.
type Request struct {
	System   string
	Messages []Message
	Tools    []search.Definition
}

// Response is the model's reply: either a final text answer, or one or
// more tool calls (possibly with interim text alongside).
type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Final reports whether the response ends the conversation.
func (r *Response) Final() bool {
	return len(r.ToolCalls) == 0
}

// Generator is the generation-service boundary. Implemented by
// gemini.Generator in production and testutil.Generator in tests.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// ToolExecutor dispatches tool calls by name. *search.Registry implements
// it.
type ToolExecutor interface {
	Definitions() []search.Definition
	Execute(ctx context.Context, name string, args map[string]any) (search.Result, error)
}
