// Package gemini adapts the Google Gemini API to the agent.Generator and
// index.Embedder boundaries.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/agent"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/search"
)

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	return client, nil
}

// GeneratorConfig tunes generation calls.
type GeneratorConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int32
}

// Generator implements agent.Generator over the Gemini API.
type Generator struct {
	client *genai.Client
	cfg    GeneratorConfig
	logger *slog.Logger
}

// NewGenerator creates a Generator. logger may be nil.
func NewGenerator(client *genai.Client, cfg GeneratorConfig, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{client: client, cfg: cfg, logger: logger}
}

// Generate implements agent.Generator.
func (g *Generator) Generate(ctx context.Context, req agent.Request) (*agent.Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.cfg.Temperature),
		MaxOutputTokens: g.cfg.MaxTokens,
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: toFunctionDeclarations(req.Tools)}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, toContents(req.Messages), config)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", agent.ErrServiceUnavailable, err)
	}
	out, err := fromResponse(resp)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("generation complete",
		"model", g.cfg.Model,
		"tool_calls", len(out.ToolCalls),
	)
	return out, nil
}

// EmbedderConfig tunes embedding calls.
type EmbedderConfig struct {
	Model     string
	Dimension int32
}

// Embedder implements index.Embedder over the Gemini API.
type Embedder struct {
	client *genai.Client
	cfg    EmbedderConfig
}

// NewEmbedder creates an Embedder.
func NewEmbedder(client *genai.Client, cfg EmbedderConfig) *Embedder {
	return &Embedder{client: client, cfg: cfg}
}

// Embed returns one vector per input text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	resp, err := e.client.Models.EmbedContent(ctx, e.cfg.Model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(e.cfg.Dimension),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding: %v", agent.ErrServiceUnavailable, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		if len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini: empty embedding for text %d", i)
		}
		out[i] = emb.Values
	}
	return out, nil
}

func toFunctionDeclarations(defs []search.Definition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, def := range defs {
		props := make(map[string]*genai.Schema, len(def.Params))
		for name, p := range def.Params {
			props[name] = &genai.Schema{
				Type:        toSchemaType(p.Type),
				Description: p.Description,
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   def.Required,
			},
		})
	}
	return decls
}

func toSchemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func toContents(messages []agent.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case agent.RoleAssistant:
			var parts []*genai.Part
			if m.Text != "" {
				parts = append(parts, genai.NewPartFromText(m.Text))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Name,
					Args: call.Args,
				}})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: parts})
		case agent.RoleTool:
			parts := make([]*genai.Part, 0, len(m.ToolResults))
			for _, r := range m.ToolResults {
				payload := map[string]any{"result": r.Text}
				if r.IsError {
					payload = map[string]any{"error": r.Text}
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       r.ID,
					Name:     r.Name,
					Response: payload,
				}})
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: parts})
		default:
			contents = append(contents, genai.NewContentFromText(m.Text, genai.RoleUser))
		}
	}
	return contents
}

func fromResponse(resp *genai.GenerateContentResponse) (*agent.Response, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini: response has no candidates")
	}

	var (
		texts []string
		calls []agent.ToolCall
	)
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
		if part.FunctionCall != nil {
			calls = append(calls, agent.ToolCall{
				ID:   part.FunctionCall.ID,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}
	return &agent.Response{Text: strings.Join(texts, ""), ToolCalls: calls}, nil
}
