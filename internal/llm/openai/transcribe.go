package openai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"career-hub/internal/shared/metrics"
)

// Transcribe sends recorded speech to the audio transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	if strings.TrimSpace(fileName) == "" {
		fileName = "answer.webm"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(fileName))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("copy audio: %w", err)
	}
	if err := mw.WriteField("model", c.transcriptionModel); err != nil {
		return "", err
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.do(req)
	if err != nil {
		return "", err
	}
	metrics.IncLLMCall(c.transcriptionModel)
	return strings.TrimSpace(gjson.GetBytes(raw, "text").String()), nil
}
