// Package interview runs mock technical interviews by text or voice.
package interview

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"career-hub/internal/llm"
	"career-hub/internal/shared/telemetry"
)

const (
	DefaultModel = "gpt-4o-mini"
	// FirstQuestion opens every interview.
	FirstQuestion = "Hello! Let's start. Tell me about yourself."
	// ClosingLine is recorded when the candidate ends the interview.
	ClosingLine = "Ending interview. Good luck!"

	SpeakerInterviewer = "Interviewer"
	SpeakerCandidate   = "Candidate"

	maxContextRunes = 6000
)

var exitWords = map[string]struct{}{
	"exit": {},
	"stop": {},
	"quit": {},
	"bye":  {},
}

// IsExitCommand reports whether the candidate asked to end the interview.
func IsExitCommand(text string) bool {
	word := strings.ToLower(strings.TrimSpace(text))
	word = strings.TrimRight(word, ".!?")
	_, ok := exitWords[word]
	return ok
}

// Turn is one line of the transcript.
type Turn struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// FormatTranscript renders turns as "Speaker: text" lines.
func FormatTranscript(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		b.WriteString(t.Speaker)
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Input is everything the interviewer sees for one turn.
type Input struct {
	History        string
	Answer         string
	JobDescription string
	CVText         string
}

// Agent evaluates answers and asks follow-up questions.
type Agent struct {
	LLM   llm.ChatModel
	Model string
}

// NewAgent constructs an Agent.
func NewAgent(model llm.ChatModel, modelName string) *Agent {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Agent{LLM: model, Model: modelName}
}

// Respond evaluates in.Answer briefly and asks the next question.
func (a *Agent) Respond(ctx context.Context, in Input) (string, error) {
	answer := strings.TrimSpace(in.Answer)
	if answer == "" {
		return "", fmt.Errorf("%w: answer is required", ErrInvalidInput)
	}

	prompt, err := llm.Render(llm.PromptInterview, map[string]string{
		"context": interviewContext(in.JobDescription, in.CVText),
		"history": in.History,
		"answer":  answer,
	})
	if err != nil {
		return "", err
	}
	reply, err := llm.Complete(ctx, a.LLM, a.Model, llm.Temperature(0.7), "", prompt)
	if err != nil {
		return "", fmt.Errorf("llm interview: %w", err)
	}

	telemetry.Info("interview.turn", map[string]any{
		"request_id":   telemetry.RequestIDFrom(ctx),
		"model":        a.Model,
		"answer_chars": utf8.RuneCountInString(answer),
	})
	return reply, nil
}

func interviewContext(jobDescription, cvText string) string {
	var b strings.Builder
	if jd := strings.TrimSpace(jobDescription); jd != "" {
		b.WriteString("\nThe candidate is interviewing for this role:\n")
		b.WriteString(truncateRunes(jd, maxContextRunes))
		b.WriteByte('\n')
	}
	if cv := strings.TrimSpace(cvText); cv != "" {
		b.WriteString("\nCandidate résumé:\n")
		b.WriteString(truncateRunes(cv, maxContextRunes))
		b.WriteByte('\n')
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
