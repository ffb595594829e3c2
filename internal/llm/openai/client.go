package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"career-hub/internal/llm"
	"career-hub/internal/shared/metrics"
	"career-hub/internal/shared/telemetry"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Options configures the OpenAI client.
type Options struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	TranscriptionModel  string
	Timeout             time.Duration
	HTTPClient          *http.Client
}

// Client implements llm.ChatModel, llm.Embedder and llm.Transcriber against
// the OpenAI REST API.
type Client struct {
	apiKey             string
	baseURL            string
	embeddingModel     string
	embeddingDims      int
	transcriptionModel string
	httpClient         *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
		if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
				timeout = time.Duration(parsed) * time.Second
			}
		}
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	embeddingModel := opts.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = "text-embedding-3-small"
	}
	transcriptionModel := opts.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = "whisper-1"
	}
	return &Client{
		apiKey:             opts.APIKey,
		baseURL:            baseURL,
		embeddingModel:     embeddingModel,
		embeddingDims:      opts.EmbeddingDimensions,
		transcriptionModel: transcriptionModel,
		httpClient:         httpClient,
	}, nil
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float32      `json:"temperature,omitempty"`
	Tools       []wireTool    `json:"tools,omitempty"`
}

// Chat sends a chat completion request and returns the first choice.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if strings.TrimSpace(req.Model) == "" {
		return llm.ChatResponse{}, fmt.Errorf("openai chat model is required")
	}
	body := chatRequest{
		Model:    req.Model,
		Messages: toWireMessages(req.Messages),
	}
	// gpt-5 family models only accept the default temperature.
	if !isGPT5(req.Model) {
		body.Temperature = req.Temperature
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, wireTool{
			Type:     "function",
			Function: wireFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}

	raw, err := c.postJSON(ctx, "/chat/completions", body)
	if err != nil {
		return llm.ChatResponse{}, err
	}
	metrics.IncLLMCall(req.Model)

	parsed := gjson.ParseBytes(raw)
	choices := parsed.Get("choices")
	if !choices.IsArray() || len(choices.Array()) == 0 {
		return llm.ChatResponse{}, fmt.Errorf("openai response missing choices")
	}

	out := llm.ChatResponse{
		Model:   parsed.Get("model").String(),
		Content: strings.TrimSpace(parsed.Get("choices.0.message.content").String()),
		Usage: llm.Usage{
			PromptTokens:     int(parsed.Get("usage.prompt_tokens").Int()),
			CompletionTokens: int(parsed.Get("usage.completion_tokens").Int()),
			TotalTokens:      int(parsed.Get("usage.total_tokens").Int()),
		},
	}
	parsed.Get("choices.0.message.tool_calls").ForEach(func(_, call gjson.Result) bool {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:        call.Get("id").String(),
			Name:      call.Get("function.name").String(),
			Arguments: json.RawMessage(call.Get("function.arguments").String()),
		})
		return true
	})
	if out.Content == "" && len(out.ToolCalls) == 0 {
		return llm.ChatResponse{}, fmt.Errorf("openai response empty content")
	}

	logUsage(ctx, req.Model, out.Usage)
	return out, nil
}

func toWireMessages(msgs []llm.Message) []chatMessage {
	out := make([]chatMessage, 0, len(msgs))
	for _, m := range msgs {
		wm := chatMessage{Role: m.Role, ToolCallID: m.ToolCallID}
		if m.Content != "" || len(m.ToolCalls) == 0 {
			content := m.Content
			wm.Content = &content
		}
		for _, tc := range m.ToolCalls {
			args := string(tc.Arguments)
			if args == "" {
				args = "{}"
			}
			wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
				ID:       tc.ID,
				Type:     "function",
				Function: wireFunctionCall{Name: tc.Name, Arguments: args},
			})
		}
		out = append(out, wm)
	}
	return out
}

func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return nil, fmt.Errorf("openai request timeout: %w", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = telemetry.TruncateForLog(string(body), 300)
		}
		return nil, &llm.StatusError{
			Provider:   "openai",
			StatusCode: resp.StatusCode,
			Body:       msg,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return body, nil
}

func parseRetryAfter(raw string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func logUsage(ctx context.Context, model string, usage llm.Usage) {
	telemetry.Debug("llm.response", map[string]any{
		"provider":          "openai",
		"model":             model,
		"prompt_tokens":     usage.PromptTokens,
		"completion_tokens": usage.CompletionTokens,
		"total_tokens":      usage.TotalTokens,
		"request_id":        telemetry.RequestIDFrom(ctx),
	})
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var (
	_ llm.ChatModel   = (*Client)(nil)
	_ llm.Embedder    = (*Client)(nil)
	_ llm.Transcriber = (*Client)(nil)
)
