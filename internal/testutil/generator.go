package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/agent"
)

// Generator is a scripted generation service: each Generate call pops the
// next queued response. It records every request for assertions.
type Generator struct {
	mu       sync.Mutex
	queue    []agent.Response
	err      error
	requests []agent.Request
}

// NewGenerator creates a Generator that replays responses in order.
func NewGenerator(responses ...agent.Response) *Generator {
	return &Generator{queue: responses}
}

// SetError makes every subsequent Generate call fail with err.
func (g *Generator) SetError(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

// Generate implements agent.Generator.
func (g *Generator) Generate(ctx context.Context, req agent.Request) (*agent.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	if len(g.queue) == 0 {
		return nil, fmt.Errorf("scripted generator: no response queued for call %d", len(g.requests))
	}
	resp := g.queue[0]
	g.queue = g.queue[1:]
	return &resp, nil
}

// Requests returns a copy of every request seen so far.
func (g *Generator) Requests() []agent.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]agent.Request(nil), g.requests...)
}

// Calls returns how many times Generate has been invoked.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}
