package chat

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a structured request from the model to invoke a named tool.
// Arguments is the raw JSON text exactly as it arrived on the wire; it is
// parsed into structured form at the single serialization boundary
// (ParseArguments), never eagerly.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry in the wire-format transcript sent to the chat
// completion endpoint. Content is always present; the protocol rejects
// null content, so "no content" is the empty string.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string     // set only on tool-role messages
	ToolCalls  []ToolCall // set only on assistant messages that requested tools
}

// Usage holds token counts reported by the endpoint for one exchange.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add returns the element-wise sum of two usage records.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens + o.PromptTokens,
		CompletionTokens: u.CompletionTokens + o.CompletionTokens,
		TotalTokens:      u.TotalTokens + o.TotalTokens,
	}
}

// ToolSchema describes one callable tool in the shape the chat endpoint
// expects: a name, a description, and a JSON Schema parameter object.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// StreamEventType tags events produced while consuming a streamed completion.
type StreamEventType string

const (
	EventTextDelta        StreamEventType = "text_delta"
	EventToolCallStart    StreamEventType = "tool_call_start"
	EventToolCallComplete StreamEventType = "tool_call_complete"
	EventMessageComplete  StreamEventType = "message_complete"
	EventError            StreamEventType = "error"
)

// StreamEvent is one tagged event from a streamed completion. Exactly the
// fields implied by Type are populated.
type StreamEvent struct {
	Type      StreamEventType
	TextDelta string
	ToolCall  *ToolCall
	Usage     *Usage
	Err       error
}
