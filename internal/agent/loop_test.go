package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/agent"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/search"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/testutil"
)

type fakeTool struct {
	name   string
	result search.Result
	err    error
	calls  []map[string]any
}

func (f *fakeTool) Definition() search.Definition {
	return search.Definition{
		Name:        f.name,
		Description: "test tool",
		Params:      map[string]search.Param{"query": {Type: "string"}},
		Required:    []string{"query"},
	}
}

func (f *fakeTool) Execute(ctx context.Context, args map[string]any) (search.Result, error) {
	f.calls = append(f.calls, args)
	return f.result, f.err
}

func newRegistry(t *testing.T, tools ...search.Tool) *search.Registry {
	t.Helper()
	reg := search.NewRegistry()
	require.NoError(t, reg.Register(tools...))
	return reg
}

func TestRunDirectAnswer(t *testing.T) {
	gen := testutil.NewGenerator(agent.Response{Text: "Go is a programming language."})
	tool := &fakeTool{name: "search_course_content"}
	loop := agent.NewLoop(gen, newRegistry(t, tool), agent.Options{})

	ans, err := loop.Run(context.Background(), "system", "what is Go?")
	require.NoError(t, err)

	assert.Equal(t, "Go is a programming language.", ans.Text)
	assert.Empty(t, ans.Sources)
	assert.Equal(t, 1, gen.Calls())
	assert.Empty(t, tool.calls)
}

func TestRunSingleToolRound(t *testing.T) {
	gen := testutil.NewGenerator(
		agent.Response{ToolCalls: []agent.ToolCall{{
			ID:   "call-1",
			Name: "search_course_content",
			Args: map[string]any{"query": "closures"},
		}}},
		agent.Response{Text: "Closures capture surrounding variables."},
	)
	tool := &fakeTool{
		name: "search_course_content",
		result: search.Result{
			Text:    "[Intro to Go - Lesson 3]\nclosures capture variables",
			Sources: []search.Source{{Text: "Intro to Go - Lesson 3", Link: "https://example.com/3"}},
		},
	}
	loop := agent.NewLoop(gen, newRegistry(t, tool), agent.Options{})

	ans, err := loop.Run(context.Background(), "system", "explain closures")
	require.NoError(t, err)

	assert.Equal(t, "Closures capture surrounding variables.", ans.Text)
	require.Len(t, ans.Sources, 1)
	assert.Equal(t, "Intro to Go - Lesson 3", ans.Sources[0].Text)
	assert.Equal(t, 2, gen.Calls())
	require.Len(t, tool.calls, 1)
	assert.Equal(t, "closures", tool.calls[0]["query"])

	// The follow-up request must carry the tool exchange.
	reqs := gen.Requests()
	require.Len(t, reqs[1].Messages, 3)
	assert.Equal(t, agent.RoleAssistant, reqs[1].Messages[1].Role)
	assert.Equal(t, agent.RoleTool, reqs[1].Messages[2].Role)
	require.Len(t, reqs[1].Messages[2].ToolResults, 1)
	assert.Contains(t, reqs[1].Messages[2].ToolResults[0].Text, "closures capture variables")
	assert.False(t, reqs[1].Messages[2].ToolResults[0].IsError)
}

func TestRunUnknownToolIsFatal(t *testing.T) {
	gen := testutil.NewGenerator(
		agent.Response{ToolCalls: []agent.ToolCall{{ID: "call-1", Name: "delete_course", Args: map[string]any{}}}},
	)
	loop := agent.NewLoop(gen, newRegistry(t, &fakeTool{name: "search_course_content"}), agent.Options{})

	_, err := loop.Run(context.Background(), "system", "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, search.ErrUnknownTool)
	assert.Equal(t, 1, gen.Calls())
}

func TestRunToolErrorFeedsBackAsResult(t *testing.T) {
	gen := testutil.NewGenerator(
		agent.Response{ToolCalls: []agent.ToolCall{{
			ID:   "call-1",
			Name: "search_course_content",
			Args: map[string]any{"query": "x"},
		}}},
		agent.Response{Text: "I could not search the materials."},
	)
	tool := &fakeTool{name: "search_course_content", err: errors.New("backend down")}
	loop := agent.NewLoop(gen, newRegistry(t, tool), agent.Options{})

	ans, err := loop.Run(context.Background(), "system", "anything")
	require.NoError(t, err)
	assert.Equal(t, "I could not search the materials.", ans.Text)
	assert.Empty(t, ans.Sources)

	reqs := gen.Requests()
	results := reqs[1].Messages[2].ToolResults
	require.Len(t, results, 1)
	assert.True(t, results[0].IsError)
	assert.Contains(t, results[0].Text, "backend down")
}

func TestRunRoundBudgetExhausted(t *testing.T) {
	call := agent.ToolCall{ID: "c", Name: "search_course_content", Args: map[string]any{"query": "x"}}
	gen := testutil.NewGenerator(
		agent.Response{ToolCalls: []agent.ToolCall{call}},
		agent.Response{ToolCalls: []agent.ToolCall{call}},
		agent.Response{Text: "partial answer", ToolCalls: []agent.ToolCall{call}},
	)
	tool := &fakeTool{name: "search_course_content", result: search.Result{Text: "chunk"}}
	loop := agent.NewLoop(gen, newRegistry(t, tool), agent.Options{MaxToolRounds: 2})

	ans, err := loop.Run(context.Background(), "system", "anything")
	require.NoError(t, err)

	// Two rounds executed, then the loop stops asking.
	assert.Equal(t, 3, gen.Calls())
	assert.Len(t, tool.calls, 2)
	assert.Equal(t, "partial answer", ans.Text)
}

func TestRunSourcesAccumulateAcrossRounds(t *testing.T) {
	call := func(q string) agent.Response {
		return agent.Response{ToolCalls: []agent.ToolCall{{
			ID:   "c-" + q,
			Name: "search_course_content",
			Args: map[string]any{"query": q},
		}}}
	}
	gen := testutil.NewGenerator(call("first"), call("second"), agent.Response{Text: "done"})
	tool := &fakeTool{
		name:   "search_course_content",
		result: search.Result{Text: "chunk", Sources: []search.Source{{Text: "Intro to Go - Lesson 1"}}},
	}
	loop := agent.NewLoop(gen, newRegistry(t, tool), agent.Options{MaxToolRounds: 2})

	ans, err := loop.Run(context.Background(), "system", "anything")
	require.NoError(t, err)
	assert.Len(t, ans.Sources, 2)
}

func TestRunGeneratorFailure(t *testing.T) {
	gen := testutil.NewGenerator()
	gen.SetError(agent.ErrServiceUnavailable)
	loop := agent.NewLoop(gen, newRegistry(t, &fakeTool{name: "search_course_content"}), agent.Options{})

	_, err := loop.Run(context.Background(), "system", "anything")
	assert.ErrorIs(t, err, agent.ErrServiceUnavailable)
}

func TestRunPassesToolDefinitions(t *testing.T) {
	gen := testutil.NewGenerator(agent.Response{Text: "ok"})
	loop := agent.NewLoop(gen, newRegistry(t, &fakeTool{name: "search_course_content"}), agent.Options{})

	_, err := loop.Run(context.Background(), "sys", "q")
	require.NoError(t, err)

	reqs := gen.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "sys", reqs[0].System)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "search_course_content", reqs[0].Tools[0].Name)
}
