package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"career-hub/internal/interview"
	"career-hub/internal/llm/llmtest"
)

func TestInterviewLoop(t *testing.T) {
	chat := llmtest.NewChat("Good. What is a goroutine?")
	agent := interview.NewAgent(chat, "")

	in := strings.NewReader("I build backend services in Go.\n\nBye!\nnever read\n")
	var out bytes.Buffer
	if err := interviewLoop(context.Background(), in, &out, agent, "Go developer", ""); err != nil {
		t.Fatalf("interviewLoop: %v", err)
	}

	got := out.String()
	for _, want := range []string{interview.FirstQuestion, "What is a goroutine?", interview.ClosingLine} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
	if chat.Calls() != 1 {
		t.Fatalf("expected 1 model call, got %d", chat.Calls())
	}
	if !strings.Contains(chat.LastUserMessage(), "Interviewer: "+interview.FirstQuestion) {
		t.Fatalf("history not sent: %q", chat.LastUserMessage())
	}
}

func TestInterviewLoopEndsAtEOF(t *testing.T) {
	chat := llmtest.NewChat()
	var out bytes.Buffer
	if err := interviewLoop(context.Background(), strings.NewReader(""), &out, interview.NewAgent(chat, ""), "", ""); err != nil {
		t.Fatalf("interviewLoop: %v", err)
	}
	if chat.Calls() != 0 {
		t.Fatalf("expected no model calls, got %d", chat.Calls())
	}
}
