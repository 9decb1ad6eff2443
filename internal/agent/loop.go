package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/search"
)

// DefaultMaxToolRounds bounds how many tool-execution rounds one query may
// spend before the model must answer with whatever it has.
const DefaultMaxToolRounds = 2

// Options configures a Loop.
type Options struct {
	// MaxToolRounds caps tool-execution rounds per query. Zero or negative
	// selects DefaultMaxToolRounds.
	MaxToolRounds int

	// Limiter throttles generation calls client-side. Nil disables
	// throttling.
	Limiter *rate.Limiter

	// Logger may be nil.
	Logger *slog.Logger
}

// Answer is a completed query: the final text plus every source the tool
// calls along the way contributed, in execution order.
type Answer struct {
	Text    string
	Sources []search.Source
}

// Loop runs the bounded tool-calling protocol. Safe for concurrent use;
// each Run call keeps its own conversation and source list.
type Loop struct {
	generator     Generator
	tools         ToolExecutor
	maxToolRounds int
	limiter       *rate.Limiter
	logger        *slog.Logger
}

// NewLoop creates a Loop over a generator and a tool executor.
func NewLoop(generator Generator, tools ToolExecutor, opts Options) *Loop {
	rounds := opts.MaxToolRounds
	if rounds <= 0 {
		rounds = DefaultMaxToolRounds
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		generator:     generator,
		tools:         tools,
		maxToolRounds: rounds,
		limiter:       opts.Limiter,
		logger:        logger,
	}
}

// Run answers one query. system carries the instructions and any prior
// conversation context; query is the user's question.
//
// A model response naming an unregistered tool fails the whole query. A
// tool that merely fails to execute does not: its error text goes back to
// the model as the tool result and the conversation continues.
func (l *Loop) Run(ctx context.Context, system, query string) (*Answer, error) {
	req := Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Text: query}},
		Tools:    l.tools.Definitions(),
	}

	resp, err := l.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	var sources []search.Source
	for round := 0; round < l.maxToolRounds && !resp.Final(); round++ {
		req.Messages = append(req.Messages, Message{
			Role:      RoleAssistant,
			Text:      resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		results := make([]ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			result, err := l.tools.Execute(ctx, call.Name, call.Args)
			if errors.Is(err, search.ErrUnknownTool) {
				return nil, fmt.Errorf("agent: model requested %w", err)
			}
			if err != nil {
				l.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
				results = append(results, ToolResult{
					ID:      call.ID,
					Name:    call.Name,
					Text:    fmt.Sprintf("Error: %s", err),
					IsError: true,
				})
				continue
			}
			results = append(results, ToolResult{ID: call.ID, Name: call.Name, Text: result.Text})
			sources = append(sources, result.Sources...)
		}
		req.Messages = append(req.Messages, Message{Role: RoleTool, ToolResults: results})

		resp, err = l.generate(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	if !resp.Final() {
		// Round budget spent; answer with whatever text the model produced.
		l.logger.Warn("tool round budget exhausted", "rounds", l.maxToolRounds)
	}
	return &Answer{Text: resp.Text, Sources: sources}, nil
}

func (l *Loop) generate(ctx context.Context, req Request) (*Response, error) {
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("agent: waiting for rate limiter: %w", err)
		}
	}
	resp, err := l.generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("agent: generation failed: %w", err)
	}
	return resp, nil
}
