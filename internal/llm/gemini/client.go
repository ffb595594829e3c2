package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"career-hub/internal/llm"
	"career-hub/internal/shared/metrics"
)

const (
	defaultModel          = "gemini-2.5-flash"
	defaultEmbeddingModel = "text-embedding-004"
)

// Client implements llm.ChatModel and llm.Embedder on the Gemini API.
type Client struct {
	client         *genai.Client
	model          string
	embeddingModel string
	embeddingDims  int
}

// Options configures the Gemini client.
type Options struct {
	APIKey              string
	Model               string
	EmbeddingModel      string
	EmbeddingDimensions int
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := strings.TrimSpace(opts.Model)
	if !strings.HasPrefix(model, "gemini") {
		model = defaultModel
	}
	embeddingModel := strings.TrimSpace(opts.EmbeddingModel)
	if embeddingModel == "" || strings.HasPrefix(embeddingModel, "text-embedding-3") {
		embeddingModel = defaultEmbeddingModel
	}
	return &Client{client: client, model: model, embeddingModel: embeddingModel, embeddingDims: opts.EmbeddingDimensions}, nil
}

// Chat maps the conversation onto Gemini contents. System messages become the
// system instruction.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if len(req.Tools) > 0 {
		return llm.ChatResponse{}, llm.ErrToolsUnsupported
	}
	model := c.resolveModel(req.Model)

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		switch m.Role {
		case llm.RoleSystem:
			system = append(system, text)
		case llm.RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: text}}})
		}
	}
	if len(contents) == 0 {
		return llm.ChatResponse{}, errors.New("prompt must not be empty")
	}

	cfg := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return llm.ChatResponse{}, fmt.Errorf("generate content: %w", err)
	}
	metrics.IncLLMCall(model)

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(strings.TrimSpace(part.Text))
		}
	}
	out := llm.ChatResponse{Model: model, Content: strings.TrimSpace(builder.String())}
	if out.Content == "" {
		return llm.ChatResponse{}, errors.New("gemini api returned empty response")
	}
	if usage := resp.UsageMetadata; usage != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(usage.PromptTokenCount),
			CompletionTokens: int(usage.CandidatesTokenCount),
			TotalTokens:      int(usage.TotalTokenCount),
		}
	}
	return out, nil
}

// Embed returns one vector per text.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, genai.NewContentFromText(t, genai.RoleUser))
	}
	var cfg *genai.EmbedContentConfig
	if c.embeddingDims > 0 {
		dims := int32(c.embeddingDims)
		cfg = &genai.EmbedContentConfig{OutputDimensionality: &dims}
	}
	resp, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	metrics.IncLLMCall(c.embeddingModel)
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if e == nil {
			return nil, fmt.Errorf("gemini embedding missing for input %d", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

// resolveModel keeps Gemini model names and maps OpenAI defaults to the
// configured Gemini model.
func (c *Client) resolveModel(requested string) string {
	requested = strings.TrimSpace(requested)
	if strings.HasPrefix(requested, "gemini") {
		return requested
	}
	return c.model
}

var (
	_ llm.ChatModel = (*Client)(nil)
	_ llm.Embedder  = (*Client)(nil)
)
