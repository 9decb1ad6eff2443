package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/agent"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/search"
)

func TestToFunctionDeclarations(t *testing.T) {
	decls := toFunctionDeclarations([]search.Definition{{
		Name:        "search_course_content",
		Description: "Search course materials",
		Params: map[string]search.Param{
			"query":         {Type: "string", Description: "what to search for"},
			"lesson_number": {Type: "integer", Description: "lesson to search within"},
		},
		Required: []string{"query"},
	}})

	require.Len(t, decls, 1)
	d := decls[0]
	assert.Equal(t, "search_course_content", d.Name)
	assert.Equal(t, genai.TypeObject, d.Parameters.Type)
	assert.Equal(t, []string{"query"}, d.Parameters.Required)
	assert.Equal(t, genai.TypeString, d.Parameters.Properties["query"].Type)
	assert.Equal(t, genai.TypeInteger, d.Parameters.Properties["lesson_number"].Type)
}

func TestToContentsRoundTripsToolExchange(t *testing.T) {
	contents := toContents([]agent.Message{
		{Role: agent.RoleUser, Text: "explain closures"},
		{Role: agent.RoleAssistant, ToolCalls: []agent.ToolCall{{
			ID:   "call-1",
			Name: "search_course_content",
			Args: map[string]any{"query": "closures"},
		}}},
		{Role: agent.RoleTool, ToolResults: []agent.ToolResult{{
			ID:   "call-1",
			Name: "search_course_content",
			Text: "[Intro to Go - Lesson 3]\nclosures capture variables",
		}}},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, "explain closures", contents[0].Parts[0].Text)

	assert.Equal(t, genai.RoleModel, contents[1].Role)
	require.NotNil(t, contents[1].Parts[0].FunctionCall)
	assert.Equal(t, "search_course_content", contents[1].Parts[0].FunctionCall.Name)

	assert.Equal(t, genai.RoleUser, contents[2].Role)
	fr := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "call-1", fr.ID)
	assert.Contains(t, fr.Response["result"], "closures capture variables")
}

func TestToContentsMarksToolErrors(t *testing.T) {
	contents := toContents([]agent.Message{
		{Role: agent.RoleTool, ToolResults: []agent.ToolResult{{
			ID:      "call-1",
			Name:    "search_course_content",
			Text:    "Error: backend down",
			IsError: true,
		}}},
	})

	require.Len(t, contents, 1)
	fr := contents[0].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "Error: backend down", fr.Response["error"])
	assert.NotContains(t, fr.Response, "result")
}

func TestFromResponseFinalText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: "Closures capture variables."}}},
		}},
	}

	out, err := fromResponse(resp)
	require.NoError(t, err)
	assert.True(t, out.Final())
	assert.Equal(t, "Closures capture variables.", out.Text)
}

func TestFromResponseToolCalls(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{
					ID:   "call-1",
					Name: "search_course_content",
					Args: map[string]any{"query": "closures"},
				}},
			}},
		}},
	}

	out, err := fromResponse(resp)
	require.NoError(t, err)
	assert.False(t, out.Final())
	require.Len(t, out.ToolCalls, 1)
	assert.Equal(t, "search_course_content", out.ToolCalls[0].Name)
	assert.Equal(t, "closures", out.ToolCalls[0].Args["query"])
}

func TestFromResponseNoCandidates(t *testing.T) {
	_, err := fromResponse(&genai.GenerateContentResponse{})
	assert.Error(t, err)
}
