package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"career-hub/internal/shared/metrics"
)

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body := embeddingRequest{Model: c.embeddingModel, Input: texts}
	// Only the text-embedding-3 family accepts a custom output size.
	if c.embeddingDims > 0 && strings.HasPrefix(c.embeddingModel, "text-embedding-3") {
		body.Dimensions = c.embeddingDims
	}

	raw, err := c.postJSON(ctx, "/embeddings", body)
	if err != nil {
		return nil, err
	}
	metrics.IncLLMCall(c.embeddingModel)

	out := make([][]float32, len(texts))
	var parseErr error
	gjson.GetBytes(raw, "data").ForEach(func(_, item gjson.Result) bool {
		idx := int(item.Get("index").Int())
		if idx < 0 || idx >= len(out) {
			parseErr = fmt.Errorf("openai embedding index %d out of range", idx)
			return false
		}
		values := item.Get("embedding").Array()
		vec := make([]float32, len(values))
		for i, v := range values {
			vec[i] = float32(v.Float())
		}
		out[idx] = vec
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	for i, vec := range out {
		if len(vec) == 0 {
			return nil, fmt.Errorf("openai embedding missing for input %d", i)
		}
	}
	return out, nil
}
