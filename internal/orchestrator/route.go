// Package orchestrator routes a user question to the SQL agent, the RAG agent
// or a direct conversational reply, and reports each step as an Event.
package orchestrator

import "strings"

// Route is a dispatch decision.
type Route string

const (
	RouteSQL  Route = "sql"
	RouteRAG  Route = "rag"
	RouteChat Route = "chat"
)

// FallbackReply is shown when routing or generation fails.
const FallbackReply = "Maaf, ada kendala teknis. Bisa ulangi pertanyaannya?"

// ParseDecision maps the router model's reply onto a Route. Anything that
// names neither tool is treated as conversation.
func ParseDecision(reply string) Route {
	switch {
	case strings.Contains(reply, "USE_SQL"):
		return RouteSQL
	case strings.Contains(reply, "USE_RAG"):
		return RouteRAG
	default:
		return RouteChat
	}
}

// Mode selects how questions are dispatched.
type Mode string

const (
	// ModeRouter classifies first, then calls one handler.
	ModeRouter Mode = "router"
	// ModeTools lets a tool-calling model decide which tools to run.
	ModeTools Mode = "tools"
)

// ParseMode normalizes a configured or requested mode, defaulting to router.
func ParseMode(raw string) Mode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "tools", "agent":
		return ModeTools
	default:
		return ModeRouter
	}
}
