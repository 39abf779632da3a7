package forgehand

// EventType identifies the kind of event emitted by an AgentStream.
type EventType string

const (
	EventAgentStart       EventType = "agent_start"
	EventTextDelta        EventType = "text_delta"
	EventTextComplete     EventType = "text_complete"
	EventToolCallStart    EventType = "tool_call_start"
	EventToolCallComplete EventType = "tool_call_complete"
	EventAgentError       EventType = "agent_error"
	EventAgentEnd         EventType = "agent_end"
)

// Event is the interface implemented by all events emitted through an
// AgentStream. Consumers switch on the concrete type rather than probing
// payload maps.
type Event interface {
	Type() EventType
}

// AgentStartEvent is emitted once when a run begins.
type AgentStartEvent struct {
	Message string
}

func (e *AgentStartEvent) Type() EventType { return EventAgentStart }

// TextDeltaEvent carries one streamed fragment of the model's response text.
type TextDeltaEvent struct {
	Delta string
}

func (e *TextDeltaEvent) Type() EventType { return EventTextDelta }

// TextCompleteEvent carries the full response text of one turn.
type TextCompleteEvent struct {
	Content string
}

func (e *TextCompleteEvent) Type() EventType { return EventTextComplete }

// ToolCallStartEvent is emitted when a tool call begins dispatch. It is
// emitted only once arguments are fully streamed, so consumers never see
// partial arguments.
type ToolCallStartEvent struct {
	CallID string
	Name   string
	Args   map[string]any
}

func (e *ToolCallStartEvent) Type() EventType { return EventToolCallStart }

// ToolCallCompleteEvent carries the result of one tool dispatch.
type ToolCallCompleteEvent struct {
	CallID  string
	Name    string
	Output  string
	IsError bool
}

func (e *ToolCallCompleteEvent) Type() EventType { return EventToolCallComplete }

// AgentErrorEvent reports a non-fatal stream error or the terminal
// turn-budget/budget failures. The stream always ends cleanly after it.
type AgentErrorEvent struct {
	Message string
}

func (e *AgentErrorEvent) Type() EventType { return EventAgentError }

// AgentEndEvent is emitted once when a run finishes, carrying the final
// response text if one was produced.
type AgentEndEvent struct {
	FinalResponse string
}

func (e *AgentEndEvent) Type() EventType { return EventAgentEnd }
