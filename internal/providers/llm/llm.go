package llm

import "context"

// Message is one entry of a conversation context.
type Message struct {
	Role    string `json:"role"` // system|user|assistant|function
	Content string `json:"content"`
	Name    string `json:"name,omitempty"` // function result messages
}

// ToolDefinition declares one callable function to the model.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is one function invocation the model requested during a turn.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// Event is one unit of streamed turn output.
type Event struct {
	// TextDelta carries an incremental piece of assistant text.
	TextDelta string
	// Done marks the end of the turn; ToolCalls holds any accumulated
	// function-call requests, complete only on the Done event.
	Done      bool
	ToolCalls []ToolCall
	Err       error
}

// Provider streams one conversational turn at a time. Cancellation via ctx is
// best-effort: the transport may keep delivering buffered chunks, so
// consumers must drop stale output themselves.
type Provider interface {
	// StreamTurn starts a turn over the given context and returns a channel
	// of events, closed after the Done (or error) event.
	StreamTurn(ctx context.Context, messages []Message, tools []ToolDefinition) <-chan Event
	Name() string
}

// Analyzer produces a single completion for post-call analysis prompts.
type Analyzer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
