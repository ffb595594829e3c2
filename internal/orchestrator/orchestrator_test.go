package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"career-hub/internal/llm"
	"career-hub/internal/llm/llmtest"
)

type fakeRunner struct {
	answer string
	err    error
	asked  []string
}

func (f *fakeRunner) Run(_ context.Context, q string) (string, error) {
	f.asked = append(f.asked, q)
	return f.answer, f.err
}

func newTestOrchestrator(model llm.ChatModel, sql, rag *fakeRunner) *Orchestrator {
	return New(model, sql, rag, Config{Temperature: DefaultRouterTemperature})
}

func TestParseDecision(t *testing.T) {
	cases := []struct {
		reply string
		want  Route
	}{
		{"USE_SQL", RouteSQL},
		{"Category: USE_RAG.", RouteRAG},
		{"USE_SQL or USE_RAG", RouteSQL},
		{"CHAT", RouteChat},
		{"use_sql", RouteChat},
		{"", RouteChat},
	}
	for _, tc := range cases {
		if got := ParseDecision(tc.reply); got != tc.want {
			t.Fatalf("ParseDecision(%q) = %q, want %q", tc.reply, got, tc.want)
		}
	}
}

func TestParseMode(t *testing.T) {
	if ParseMode(" Tools ") != ModeTools || ParseMode("agent") != ModeTools {
		t.Fatalf("expected tools mode")
	}
	if ParseMode("") != ModeRouter || ParseMode("other") != ModeRouter {
		t.Fatalf("expected router mode")
	}
}

func TestRouteQueryDispatch(t *testing.T) {
	t.Run("sql", func(t *testing.T) {
		sql := &fakeRunner{answer: "There are 12 jobs."}
		rag := &fakeRunner{}
		o := newTestOrchestrator(llmtest.NewChat("USE_SQL"), sql, rag)

		reply := o.RouteQuery(context.Background(), "How many jobs?")
		if reply.Route != RouteSQL || reply.Content != "There are 12 jobs." {
			t.Fatalf("unexpected reply %+v", reply)
		}
		if len(sql.asked) != 1 || sql.asked[0] != "How many jobs?" {
			t.Fatalf("sql agent asked %v", sql.asked)
		}
		if len(rag.asked) != 0 {
			t.Fatalf("rag agent should not run")
		}
	})

	t.Run("rag", func(t *testing.T) {
		rag := &fakeRunner{answer: "Go and SQL."}
		o := newTestOrchestrator(llmtest.NewChat("USE_RAG"), &fakeRunner{}, rag)

		reply := o.RouteQuery(context.Background(), "What skills?")
		if reply.Route != RouteRAG || reply.Content != "Go and SQL." {
			t.Fatalf("unexpected reply %+v", reply)
		}
	})

	t.Run("chat", func(t *testing.T) {
		model := llmtest.NewChat("CHAT", "Halo! Ada yang bisa saya bantu?")
		o := newTestOrchestrator(model, &fakeRunner{}, &fakeRunner{})

		reply := o.RouteQuery(context.Background(), "halo")
		if reply.Route != RouteChat || reply.Content != "Halo! Ada yang bisa saya bantu?" {
			t.Fatalf("unexpected reply %+v", reply)
		}
		req := model.Requests[1]
		if req.Messages[0].Role != llm.RoleSystem || !strings.Contains(req.Messages[0].Content, "Career Assistant") {
			t.Fatalf("chat prompt missing: %+v", req.Messages)
		}
		if req.Temperature == nil || *req.Temperature != float32(0.7) {
			t.Fatalf("unexpected temperature %v", req.Temperature)
		}
	})
}

func TestRouteQuerySQLErrorIsReported(t *testing.T) {
	sql := &fakeRunner{err: errors.New("no such table: jobz")}
	o := newTestOrchestrator(llmtest.NewChat("USE_SQL"), sql, &fakeRunner{})

	reply := o.RouteQuery(context.Background(), "count jobz")
	if reply.Content != "Error executing query: no such table: jobz" {
		t.Fatalf("unexpected content %q", reply.Content)
	}
	if reply.Failed {
		t.Fatalf("sql errors are answers, not failures")
	}
}

func TestRouteQueryFallbacks(t *testing.T) {
	t.Run("classify error", func(t *testing.T) {
		model := &llmtest.Chat{Errs: []error{errors.New("boom")}}
		o := newTestOrchestrator(model, &fakeRunner{}, &fakeRunner{})
		reply := o.RouteQuery(context.Background(), "anything")
		if reply.Content != FallbackReply || !reply.Failed {
			t.Fatalf("expected fallback, got %+v", reply)
		}
	})

	t.Run("rag error", func(t *testing.T) {
		rag := &fakeRunner{err: errors.New("vector store down")}
		o := newTestOrchestrator(llmtest.NewChat("USE_RAG"), &fakeRunner{}, rag)
		reply := o.RouteQuery(context.Background(), "skills?")
		if reply.Content != FallbackReply || reply.Route != RouteRAG {
			t.Fatalf("expected fallback, got %+v", reply)
		}
	})

	t.Run("chat error", func(t *testing.T) {
		model := &llmtest.Chat{Replies: []llm.ChatResponse{{Content: "CHAT"}}}
		o := newTestOrchestrator(model, &fakeRunner{}, &fakeRunner{})
		reply := o.RouteQuery(context.Background(), "hi")
		if reply.Content != FallbackReply {
			t.Fatalf("expected fallback, got %+v", reply)
		}
	})
}

func TestRouteWithHistoryRendersConversation(t *testing.T) {
	sql := &fakeRunner{answer: "5"}
	model := llmtest.NewChat("USE_SQL")
	o := newTestOrchestrator(model, sql, &fakeRunner{})

	history := []Turn{
		{Role: "user", Content: "List Go jobs in Jakarta"},
		{Role: "assistant", Content: "Here are 5 Go jobs."},
		{Role: "user", Content: "   "},
	}
	o.RouteWithHistory(context.Background(), "How many of them are remote?", history)

	q := sql.asked[0]
	for _, want := range []string{
		"User: List Go jobs in Jakarta",
		"Assistant: Here are 5 Go jobs.",
		"New user question: How many of them are remote?",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("question missing %q:\n%s", want, q)
		}
	}
	if !strings.Contains(model.LastUserMessage(), "Assistant: Here are 5 Go jobs.") {
		t.Fatalf("router did not see history")
	}
}

func TestTrimHistoryKeepsLastTurns(t *testing.T) {
	var history []Turn
	for i := 0; i < 15; i++ {
		history = append(history, Turn{Role: "user", Content: string(rune('a' + i))})
	}
	got := trimHistory(history)
	if len(got) != maxHistoryTurns {
		t.Fatalf("expected %d turns, got %d", maxHistoryTurns, len(got))
	}
	if got[0].Content != "f" {
		t.Fatalf("expected oldest kept turn f, got %q", got[0].Content)
	}
}

func collect(events *[]Event) Emitter {
	return func(ev Event) { *events = append(*events, ev) }
}

func types(events []Event) string {
	parts := make([]string, len(events))
	for i, ev := range events {
		parts[i] = string(ev.Type)
	}
	return strings.Join(parts, ",")
}

func TestAnswerRouterModeEvents(t *testing.T) {
	var events []Event
	o := newTestOrchestrator(llmtest.NewChat("USE_RAG"), &fakeRunner{}, &fakeRunner{answer: "ok"})

	o.Answer(context.Background(), "skills?", nil, ModeRouter, collect(&events))

	if got := types(events); got != "route,tool_start,tool_end,message,done" {
		t.Fatalf("unexpected sequence %s", got)
	}
	if events[1].Tool != ToolSearchJobKnowledge || events[2].Output != "ok" {
		t.Fatalf("unexpected tool events %+v", events[1:3])
	}
}

func TestAnswerChatRouteHasNoToolEvents(t *testing.T) {
	var events []Event
	o := newTestOrchestrator(llmtest.NewChat("CHAT", "hello"), &fakeRunner{}, &fakeRunner{})

	o.Answer(context.Background(), "hi", nil, ModeRouter, collect(&events))
	if got := types(events); got != "route,message,done" {
		t.Fatalf("unexpected sequence %s", got)
	}
}

func TestAnswerToolsMode(t *testing.T) {
	sql := &fakeRunner{answer: "42 jobs"}
	model := &llmtest.Chat{Replies: []llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{
			ID:        "call_1",
			Name:      ToolQueryJobDatabase,
			Arguments: json.RawMessage(`{"question":"How many jobs?"}`),
		}}},
		{Content: "There are 42 jobs."},
	}}
	o := newTestOrchestrator(model, sql, &fakeRunner{})

	var events []Event
	reply := o.Answer(context.Background(), "how many jobs", nil, ModeTools, collect(&events))

	if reply.Content != "There are 42 jobs." {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if got := types(events); got != "tool_start,tool_end,message,done" {
		t.Fatalf("unexpected sequence %s", got)
	}
	if len(model.Requests[0].Tools) != 2 {
		t.Fatalf("expected two tools offered, got %d", len(model.Requests[0].Tools))
	}
	second := model.Requests[1].Messages
	last := second[len(second)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "call_1" || last.Content != "42 jobs" {
		t.Fatalf("tool result not fed back: %+v", last)
	}
	if sql.asked[0] != "How many jobs?" {
		t.Fatalf("sql agent asked %v", sql.asked)
	}
}

func TestAnswerToolsModeStopsAfterMaxSteps(t *testing.T) {
	model := &llmtest.Chat{Func: func(llm.ChatRequest) (llm.ChatResponse, error) {
		return llm.ChatResponse{ToolCalls: []llm.ToolCall{{
			ID:        "loop",
			Name:      ToolSearchJobKnowledge,
			Arguments: json.RawMessage(`{"question":"again"}`),
		}}}, nil
	}}
	o := newTestOrchestrator(model, &fakeRunner{}, &fakeRunner{answer: "more"})

	var events []Event
	reply := o.Answer(context.Background(), "loop", nil, ModeTools, collect(&events))

	if reply.Content != FallbackReply {
		t.Fatalf("expected fallback, got %+v", reply)
	}
	if model.Calls() != MaxToolSteps {
		t.Fatalf("expected %d model calls, got %d", MaxToolSteps, model.Calls())
	}
	if events[len(events)-1].Type != EventDone {
		t.Fatalf("stream must end with done")
	}
}

func TestAnswerToolsModeFallsBackToRouter(t *testing.T) {
	model := &llmtest.Chat{Func: func(req llm.ChatRequest) (llm.ChatResponse, error) {
		if len(req.Tools) > 0 {
			return llm.ChatResponse{}, llm.ErrToolsUnsupported
		}
		return llm.ChatResponse{Content: "USE_SQL"}, nil
	}}
	sql := &fakeRunner{answer: "7"}
	o := newTestOrchestrator(model, sql, &fakeRunner{})

	reply := o.Answer(context.Background(), "count", nil, ModeTools, nil)
	if reply.Route != RouteSQL || reply.Content != "7" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestUnknownToolIsReportedToModel(t *testing.T) {
	model := &llmtest.Chat{Replies: []llm.ChatResponse{
		{ToolCalls: []llm.ToolCall{{ID: "x", Name: "drop_tables", Arguments: json.RawMessage(`{}`)}}},
		{Content: "Sorry."},
	}}
	o := newTestOrchestrator(model, &fakeRunner{}, &fakeRunner{})

	reply := o.Answer(context.Background(), "q", nil, ModeTools, nil)
	if reply.Content != "Sorry." {
		t.Fatalf("unexpected reply %+v", reply)
	}
	msgs := model.Requests[1].Messages
	if !strings.Contains(msgs[len(msgs)-1].Content, "unknown tool") {
		t.Fatalf("expected unknown tool message, got %q", msgs[len(msgs)-1].Content)
	}
}
