package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"career-hub/internal/llm"
	"career-hub/internal/shared/metrics"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/sqlagent"
)

const (
	DefaultRouterModel       = "gpt-4o-mini"
	DefaultRouterTemperature = 0.7
	// MaxToolSteps bounds the tool-calling loop.
	MaxToolSteps = 5

	maxHistoryTurns = 10
	maxTurnChars    = 1000
)

// Turn is one prior message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the answer to one question.
type Reply struct {
	Route   Route  `json:"route"`
	Content string `json:"content"`
	// Failed is set when Content is the fallback apology.
	Failed bool `json:"-"`
}

// Config holds orchestrator settings.
type Config struct {
	Model       string
	Temperature float64
	Mode        Mode
}

// Orchestrator dispatches questions to the SQL and RAG agents or answers
// them directly.
type Orchestrator struct {
	LLM         llm.ChatModel
	SQL         Runner
	RAG         Runner
	Model       string
	Temperature float64
	Mode        Mode
	Tools       *ToolRegistry
}

// New constructs an Orchestrator with both tools registered.
func New(model llm.ChatModel, sql, rag Runner, cfg Config) *Orchestrator {
	o := &Orchestrator{
		LLM:         model,
		SQL:         sql,
		RAG:         rag,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Mode:        cfg.Mode,
		Tools:       NewToolRegistry(SQLTool{Agent: sql}, RAGTool{Agent: rag}),
	}
	if o.Model == "" {
		o.Model = DefaultRouterModel
	}
	if o.Mode == "" {
		o.Mode = ModeRouter
	}
	return o
}

// Classify asks the router model which handler fits query.
func (o *Orchestrator) Classify(ctx context.Context, query string) (Route, error) {
	prompt, err := llm.Render(llm.PromptRouter, map[string]string{"query": query})
	if err != nil {
		return "", err
	}
	decision, err := llm.Complete(ctx, o.LLM, o.Model, llm.Temperature(o.Temperature), "", prompt)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	route := ParseDecision(decision)
	metrics.IncRouteDecision(string(route))
	telemetry.Info("orchestrator.route", map[string]any{
		"request_id": telemetry.RequestIDFrom(ctx),
		"decision":   telemetry.TruncateForLog(decision, 100),
		"route":      route,
	})
	return route, nil
}

// RouteQuery classifies query and returns the chosen handler's answer.
// Failures produce the fallback reply rather than an error.
func (o *Orchestrator) RouteQuery(ctx context.Context, query string) Reply {
	return o.Answer(ctx, query, nil, ModeRouter, nil)
}

// RouteWithHistory is RouteQuery with the prior conversation rendered into
// the question so follow-ups resolve.
func (o *Orchestrator) RouteWithHistory(ctx context.Context, query string, history []Turn) Reply {
	return o.Answer(ctx, query, history, ModeRouter, nil)
}

// Answer runs query in the given mode, reporting steps to emit. It always ends
// with a done event.
func (o *Orchestrator) Answer(ctx context.Context, query string, history []Turn, mode Mode, emit Emitter) Reply {
	start := time.Now()
	if mode == "" {
		mode = o.Mode
	}

	var reply Reply
	if mode == ModeTools {
		var err error
		reply, err = o.runTools(ctx, query, history, emit)
		if errors.Is(err, llm.ErrToolsUnsupported) {
			telemetry.Warn("orchestrator.tools_unsupported", map[string]any{"request_id": telemetry.RequestIDFrom(ctx)})
			reply = o.runRouter(ctx, query, history, emit)
		}
	} else {
		reply = o.runRouter(ctx, query, history, emit)
	}

	metrics.ObserveChatDurationMs(metrics.SinceMillis(start))
	emit.emit(Event{Type: EventDone, Route: reply.Route})
	return reply
}

func (o *Orchestrator) runRouter(ctx context.Context, query string, history []Turn, emit Emitter) Reply {
	question := withHistory(query, history)

	route, err := o.Classify(ctx, question)
	if err != nil {
		return o.fail(ctx, "", err, emit)
	}
	emit.emit(Event{Type: EventRoute, Route: route})

	switch route {
	case RouteSQL:
		emit.emit(Event{Type: EventToolStart, Route: route, Tool: ToolQueryJobDatabase, Input: question})
		out, err := o.SQL.Run(ctx, question)
		if err != nil {
			telemetry.Error("orchestrator.sql_failed", map[string]any{"request_id": telemetry.RequestIDFrom(ctx), "error": err})
			out = sqlagent.FormatError(err)
		}
		emit.emit(Event{Type: EventToolEnd, Route: route, Tool: ToolQueryJobDatabase, Output: out})
		return o.message(route, out, emit)
	case RouteRAG:
		emit.emit(Event{Type: EventToolStart, Route: route, Tool: ToolSearchJobKnowledge, Input: question})
		out, err := o.RAG.Run(ctx, question)
		if err != nil {
			emit.emit(Event{Type: EventToolEnd, Route: route, Tool: ToolSearchJobKnowledge, Error: err.Error()})
			return o.fail(ctx, route, err, emit)
		}
		emit.emit(Event{Type: EventToolEnd, Route: route, Tool: ToolSearchJobKnowledge, Output: out})
		return o.message(route, out, emit)
	default:
		system, _ := llm.PromptTemplate(llm.PromptChat)
		out, err := llm.Complete(ctx, o.LLM, o.Model, llm.Temperature(o.Temperature), system, question)
		if err != nil {
			return o.fail(ctx, RouteChat, err, emit)
		}
		return o.message(RouteChat, out, emit)
	}
}

func (o *Orchestrator) runTools(ctx context.Context, query string, history []Turn, emit Emitter) (Reply, error) {
	system, _ := llm.PromptTemplate(llm.PromptAgent)
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	for _, t := range trimHistory(history) {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: query})
	specs := o.Tools.Specs()

	for step := 0; step < MaxToolSteps; step++ {
		resp, err := o.LLM.Chat(ctx, llm.ChatRequest{
			Model:       o.Model,
			Messages:    msgs,
			Temperature: llm.Temperature(o.Temperature),
			Tools:       specs,
		})
		if errors.Is(err, llm.ErrToolsUnsupported) && step == 0 {
			return Reply{}, err
		}
		if err != nil {
			return o.fail(ctx, "", fmt.Errorf("agent step %d: %w", step+1, err), emit), nil
		}
		if len(resp.ToolCalls) == 0 {
			content := strings.TrimSpace(resp.Content)
			if content == "" {
				return o.fail(ctx, "", llm.ErrEmptyResponse, emit), nil
			}
			return o.message(RouteChat, content, emit), nil
		}

		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
		for _, call := range resp.ToolCalls {
			out := o.callTool(ctx, call, emit)
			msgs = append(msgs, llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Content: out})
		}
	}
	return o.fail(ctx, "", fmt.Errorf("agent stopped after %d steps", MaxToolSteps), emit), nil
}

func (o *Orchestrator) callTool(ctx context.Context, call llm.ToolCall, emit Emitter) string {
	route := toolRoute(call.Name)
	input := string(call.Arguments)
	emit.emit(Event{Type: EventToolStart, Route: route, Tool: call.Name, Input: input})
	metrics.IncToolCall(call.Name)

	tool, ok := o.Tools.Get(call.Name)
	if !ok {
		out := fmt.Sprintf("error: unknown tool %q", call.Name)
		emit.emit(Event{Type: EventToolEnd, Route: route, Tool: call.Name, Error: out})
		return out
	}
	out, err := tool.Execute(ctx, json.RawMessage(call.Arguments))
	if err != nil {
		telemetry.Error("orchestrator.tool_failed", map[string]any{
			"request_id": telemetry.RequestIDFrom(ctx),
			"tool":       call.Name,
			"error":      err,
		})
		metrics.IncAgentError(call.Name)
		msg := "error: " + err.Error()
		emit.emit(Event{Type: EventToolEnd, Route: route, Tool: call.Name, Error: msg})
		return msg
	}
	emit.emit(Event{Type: EventToolEnd, Route: route, Tool: call.Name, Output: out})
	return out
}

func (o *Orchestrator) message(route Route, content string, emit Emitter) Reply {
	emit.emit(Event{Type: EventMessage, Route: route, Content: content})
	return Reply{Route: route, Content: content}
}

func (o *Orchestrator) fail(ctx context.Context, route Route, err error, emit Emitter) Reply {
	telemetry.Error("orchestrator.failed", map[string]any{
		"request_id": telemetry.RequestIDFrom(ctx),
		"route":      route,
		"error":      err,
	})
	metrics.IncAgentError("orchestrator")
	emit.emit(Event{Type: EventError, Route: route, Error: err.Error()})
	emit.emit(Event{Type: EventMessage, Route: route, Content: FallbackReply})
	return Reply{Route: route, Content: FallbackReply, Failed: true}
}

func toolRoute(name string) Route {
	switch name {
	case ToolQueryJobDatabase:
		return RouteSQL
	case ToolSearchJobKnowledge:
		return RouteRAG
	}
	return ""
}

// withHistory renders prior turns and the new question into one prompt. With
// no history the query is returned unchanged.
func withHistory(query string, history []Turn) string {
	turns := trimHistory(history)
	if len(turns) == 0 {
		return query
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		speaker := "User"
		if t.Role == llm.RoleAssistant {
			speaker = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s", speaker, t.Content)
	}
	return llm.MustRender(llm.PromptHistory, map[string]string{
		"history": b.String(),
		"query":   query,
	})
}

func trimHistory(history []Turn) []Turn {
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	out := make([]Turn, 0, len(history))
	for _, t := range history {
		content := strings.TrimSpace(t.Content)
		if content == "" {
			continue
		}
		role := llm.RoleUser
		if t.Role == llm.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, Turn{Role: role, Content: telemetry.TruncateForLog(content, maxTurnChars)})
	}
	return out
}
