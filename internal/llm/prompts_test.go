package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestRenderFillsPlaceholders(t *testing.T) {
	out, err := Render(PromptRAG, map[string]string{"context": "Doc A", "question": "What skills?"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "Doc A") || !strings.Contains(out, "Question: What skills?") {
		t.Fatalf("unexpected prompt: %s", out)
	}
	if strings.Contains(out, "{{") {
		t.Fatalf("unfilled placeholder in %s", out)
	}
}

func TestAllPromptsPresent(t *testing.T) {
	for _, name := range []string{
		PromptRouter, PromptChat, PromptHistory, PromptRAG, PromptSQLGenerate,
		PromptSQLAnswer, PromptAdvisor, PromptCoverLetter, PromptInterview, PromptAgent,
	} {
		if _, ok := PromptTemplate(name); !ok {
			t.Fatalf("missing prompt %s", name)
		}
	}
	if _, err := Render("nope", nil); err == nil {
		t.Fatalf("expected unknown prompt error")
	}
}

func TestRouterPromptDemandsCategoryOnly(t *testing.T) {
	out := MustRender(PromptRouter, map[string]string{"query": "How many jobs?"})
	for _, want := range []string{"USE_SQL", "USE_RAG", "CHAT", "Respond with ONLY the category name."} {
		if !strings.Contains(out, want) {
			t.Fatalf("router prompt missing %q", want)
		}
	}
}

type echoChat struct{ got ChatRequest }

func (e *echoChat) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	e.got = req
	return ChatResponse{Content: "  answer \n"}, nil
}

func TestCompleteBuildsMessages(t *testing.T) {
	model := &echoChat{}
	out, err := Complete(context.Background(), model, "gpt-4o-mini", Temperature(0.7), "sys", "hi")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out != "answer" {
		t.Fatalf("expected trimmed answer, got %q", out)
	}
	if len(model.got.Messages) != 2 || model.got.Messages[0].Role != RoleSystem {
		t.Fatalf("unexpected messages %+v", model.got.Messages)
	}
	if *model.got.Temperature != float32(0.7) {
		t.Fatalf("unexpected temperature %v", *model.got.Temperature)
	}
}

func TestSchemaFor(t *testing.T) {
	type args struct {
		Question string `json:"question" description:"the question"`
		Limit    int    `json:"limit,omitempty"`
	}
	raw, err := SchemaFor(args{})
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	var schema map[string]any
	if err := json.Unmarshal(raw, &schema); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if schema["type"] != "object" {
		t.Fatalf("expected object schema, got %v", schema["type"])
	}
	props, _ := schema["properties"].(map[string]any)
	if _, ok := props["question"]; !ok {
		t.Fatalf("missing question property: %s", raw)
	}
	required, _ := schema["required"].([]any)
	if len(required) != 1 || required[0] != "question" {
		t.Fatalf("unexpected required %v", required)
	}
}
