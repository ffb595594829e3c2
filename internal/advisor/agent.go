package advisor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"career-hub/internal/llm"
	"career-hub/internal/shared/telemetry"
	"career-hub/internal/vectorstore"
)

const (
	DefaultModel = "gpt-4o-mini"
	// MatchLimit is how many postings are retrieved per résumé.
	MatchLimit = 5

	queryRunes     = 1000
	maxCVRunes     = 12000
	maxPostingRune = 1500
)

// Retriever finds postings similar to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) []vectorstore.Match
}

// Agent turns résumé text into a career recommendation.
type Agent struct {
	LLM       llm.ChatModel
	Model     string
	Retriever Retriever
}

// NewAgent constructs an Agent.
func NewAgent(model llm.ChatModel, modelName string, retriever Retriever) *Agent {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &Agent{LLM: model, Model: modelName, Retriever: retriever}
}

// Recommend retrieves postings matching the start of cvText and asks the model
// for a recommendation that references them.
func (a *Agent) Recommend(ctx context.Context, cvText string) (Recommendation, error) {
	cvText = strings.TrimSpace(cvText)
	if cvText == "" {
		return Recommendation{}, fmt.Errorf("%w: cv text is empty", ErrInvalidInput)
	}

	var matches []vectorstore.Match
	if a.Retriever != nil {
		matches = a.Retriever.Retrieve(ctx, truncateRunes(cvText, queryRunes), MatchLimit)
	}

	prompt, err := llm.Render(llm.PromptAdvisor, map[string]string{
		"cv":   truncateRunes(cvText, maxCVRunes),
		"jobs": formatPostings(matches),
	})
	if err != nil {
		return Recommendation{}, err
	}
	content, err := llm.Complete(ctx, a.LLM, a.Model, llm.Temperature(0.3), "", prompt)
	if err != nil {
		return Recommendation{}, fmt.Errorf("llm advise: %w", err)
	}

	telemetry.Info("advisor.recommend", map[string]any{
		"request_id": telemetry.RequestIDFrom(ctx),
		"matches":    len(matches),
		"model":      a.Model,
	})
	return Recommendation{Content: content, Matches: toJobMatches(matches), Model: a.Model}, nil
}

func formatPostings(matches []vectorstore.Match) string {
	if len(matches) == 0 {
		return "(no matching postings found)"
	}
	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s", i+1, truncateRunes(m.Text, maxPostingRune))
	}
	return b.String()
}

func toJobMatches(matches []vectorstore.Match) []JobMatch {
	out := make([]JobMatch, 0, len(matches))
	for _, m := range matches {
		out = append(out, JobMatch{
			JobID:    payloadString(m.Payload, "job_id"),
			Title:    payloadString(m.Payload, "title"),
			Company:  payloadString(m.Payload, "company"),
			Location: payloadString(m.Payload, "location"),
			URL:      payloadString(m.Payload, "url"),
			Score:    m.Score,
		})
	}
	return out
}

func payloadString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
