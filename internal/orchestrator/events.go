package orchestrator

// EventType names a step reported while answering.
type EventType string

const (
	EventRoute     EventType = "route"
	EventToolStart EventType = "tool_start"
	EventToolEnd   EventType = "tool_end"
	EventMessage   EventType = "message"
	EventError     EventType = "error"
	EventDone      EventType = "done"
)

// Event is one step of answering a question. Only the fields relevant to the
// type are set.
type Event struct {
	Type    EventType `json:"type"`
	Route   Route     `json:"route,omitempty"`
	Tool    string    `json:"tool,omitempty"`
	Input   string    `json:"input,omitempty"`
	Output  string    `json:"output,omitempty"`
	Content string    `json:"content,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Emitter receives events in order. A nil Emitter discards them.
type Emitter func(Event)

func (e Emitter) emit(ev Event) {
	if e != nil {
		e(ev)
	}
}
