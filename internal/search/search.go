// Package search defines the tool surface the model calls during a query:
// content search over indexed chunks and course outline lookup, plus the
// registry that dispatches tool calls by name.
package search

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownTool is returned by Registry.Execute for a tool name that was
// never registered. Callers treat it as fatal rather than feeding it back
// to the model.
var ErrUnknownTool = errors.New("unknown tool")

// Param describes one tool parameter for the model.
type Param struct {
	Type        string // "string" or "integer"
	Description string
}

// Definition is a provider-agnostic tool declaration. The gemini package
// translates it into the wire schema.
type Definition struct {
	Name        string
	Description string
	Params      map[string]Param
	Required    []string
}

// Source identifies where a piece of returned content came from, for
// display alongside the answer.
type Source struct {
	Text string `json:"text"`
	Link string `json:"link,omitempty"`
}

// Result is one tool execution's output. Sources belong to this call only;
// they are returned by value rather than accumulated in shared state.
type Result struct {
	Text    string
	Sources []Source
}

// Tool is an operation the model may invoke. Execute errors describe
// operational failures; user-facing conditions like "no results" are
// reported in Result.Text instead.
type Tool interface {
	Definition() Definition
	Execute(ctx context.Context, args map[string]any) (Result, error)
}

// Registry holds the registered tools and dispatches calls by name.
// Register all tools before use; Registry is read-only afterwards.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a duplicate name is a programming
// error and fails loudly.
func (r *Registry) Register(tools ...Tool) error {
	for _, t := range tools {
		name := t.Definition().Name
		if _, exists := r.tools[name]; exists {
			return fmt.Errorf("search: tool %q registered twice", name)
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return nil
}

// Definitions returns the declarations of all tools in registration order.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Execute runs the named tool. An unregistered name returns ErrUnknownTool.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownTool, name)
	}
	return t.Execute(ctx, args)
}

// stringArg extracts an optional string argument.
func stringArg(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string, got %T", key, v)
	}
	return s, nil
}

// intArg extracts an optional integer argument. JSON decoding hands
// numbers over as float64.
func intArg(args map[string]any, key string) (*int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch n := v.(type) {
	case float64:
		i := int(n)
		return &i, nil
	case int:
		return &n, nil
	case int64:
		i := int(n)
		return &i, nil
	default:
		return nil, fmt.Errorf("argument %q must be an integer, got %T", key, v)
	}
}
