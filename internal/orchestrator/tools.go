package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"career-hub/internal/llm"
	"career-hub/internal/sqlagent"
)

const (
	ToolQueryJobDatabase   = "query_job_database"
	ToolSearchJobKnowledge = "search_job_knowledge"
)

// Tool is a capability the tool-calling model may invoke.
type Tool interface {
	Name() string
	Description() string
	Parameters() json.RawMessage
	Execute(ctx context.Context, input json.RawMessage) (string, error)
}

// ToolRegistry holds the tools offered to the model.
type ToolRegistry struct {
	tools map[string]Tool
}

// NewToolRegistry creates a registry with the given tools.
func NewToolRegistry(tools ...Tool) *ToolRegistry {
	r := &ToolRegistry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool, replacing any tool of the same name.
func (r *ToolRegistry) Register(t Tool) {
	r.tools[t.Name()] = t
}

// Get retrieves a tool by name.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Specs returns the tool definitions sorted by name.
func (r *ToolRegistry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.tools))
	for _, t := range r.tools {
		specs = append(specs, llm.ToolSpec{Name: t.Name(), Description: t.Description(), Parameters: t.Parameters()})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// Runner answers a natural-language question.
type Runner interface {
	Run(ctx context.Context, question string) (string, error)
}

type questionInput struct {
	Question string `json:"question" description:"The user's question, rewritten to be self-contained."`
}

var questionSchema = func() json.RawMessage {
	raw, err := llm.SchemaFor(questionInput{})
	if err != nil {
		panic(err)
	}
	return raw
}()

func parseQuestion(input json.RawMessage) (string, error) {
	var in questionInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("invalid tool input: %w", err)
	}
	q := strings.TrimSpace(in.Question)
	if q == "" {
		return "", fmt.Errorf("invalid tool input: question is required")
	}
	return q, nil
}

// SQLTool exposes the SQL agent.
type SQLTool struct{ Agent Runner }

func (SQLTool) Name() string { return ToolQueryJobDatabase }

func (SQLTool) Description() string {
	return "Query the job listings database for counts, statistics, salaries or lists of specific job records."
}

func (SQLTool) Parameters() json.RawMessage { return questionSchema }

// Execute reports agent failures as tool output so the model can explain them.
func (t SQLTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	q, err := parseQuestion(input)
	if err != nil {
		return "", err
	}
	out, err := t.Agent.Run(ctx, q)
	if err != nil {
		return sqlagent.FormatError(err), nil
	}
	return out, nil
}

// RAGTool exposes the RAG agent.
type RAGTool struct{ Agent Runner }

func (RAGTool) Name() string { return ToolSearchJobKnowledge }

func (RAGTool) Description() string {
	return "Search job descriptions for requirements, skills, responsibilities, career advice or company information."
}

func (RAGTool) Parameters() json.RawMessage { return questionSchema }

func (t RAGTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	q, err := parseQuestion(input)
	if err != nil {
		return "", err
	}
	return t.Agent.Run(ctx, q)
}
