// Package coverletter writes cover letters tailored to a job description.
package coverletter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"career-hub/internal/llm"
	"career-hub/internal/shared/telemetry"
)

const (
	DefaultModel = "gpt-4o-mini"

	maxCVRunes  = 12000
	maxJobRunes = 6000
)

var ErrInvalidInput = errors.New("invalid input")

// Generator drafts cover letters with a chat model.
type Generator struct {
	LLM   llm.ChatModel
	Model string
}

// NewGenerator constructs a Generator.
func NewGenerator(model llm.ChatModel, modelName string) *Generator {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Generator{LLM: model, Model: modelName}
}

// Generate writes a cover letter. Both inputs are required.
func (g *Generator) Generate(ctx context.Context, cvText, jobDescription string) (string, error) {
	cvText = strings.TrimSpace(cvText)
	jobDescription = strings.TrimSpace(jobDescription)
	if cvText == "" {
		return "", fmt.Errorf("%w: cv text is required", ErrInvalidInput)
	}
	if jobDescription == "" {
		return "", fmt.Errorf("%w: job description is required", ErrInvalidInput)
	}

	prompt, err := llm.Render(llm.PromptCoverLetter, map[string]string{
		"cv":              truncateRunes(cvText, maxCVRunes),
		"job_description": truncateRunes(jobDescription, maxJobRunes),
	})
	if err != nil {
		return "", err
	}
	letter, err := llm.Complete(ctx, g.LLM, g.Model, llm.Temperature(0.7), "", prompt)
	if err != nil {
		return "", fmt.Errorf("llm cover letter: %w", err)
	}

	telemetry.Info("cover_letter.generate", map[string]any{
		"request_id": telemetry.RequestIDFrom(ctx),
		"model":      g.Model,
		"chars":      utf8.RuneCountInString(letter),
	})
	return letter, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
