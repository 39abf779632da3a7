package forgehand

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgehand/forgehand/chat"
	"github.com/forgehand/forgehand/permission"
)

// scriptedCompleter plays back canned stream events, one turn per call. When
// the script runs out the last turn repeats.
type scriptedCompleter struct {
	turns    [][]chat.StreamEvent
	calls    int
	requests [][]chat.Message
	schemas  [][]chat.ToolSchema
}

func (c *scriptedCompleter) ChatCompletion(ctx context.Context, messages []chat.Message, tools []chat.ToolSchema) *chat.Stream {
	c.requests = append(c.requests, append([]chat.Message(nil), messages...))
	c.schemas = append(c.schemas, tools)

	turn := c.turns[len(c.turns)-1]
	if c.calls < len(c.turns) {
		turn = c.turns[c.calls]
	}
	c.calls++

	ch := make(chan chat.StreamEvent, len(turn))
	for _, event := range turn {
		ch <- event
	}
	close(ch)
	return chat.NewStream(ch)
}

func textTurn(text string) []chat.StreamEvent {
	return []chat.StreamEvent{
		{Type: chat.EventTextDelta, TextDelta: text},
		{Type: chat.EventMessageComplete, Usage: &chat.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}},
	}
}

func toolTurn(calls ...*chat.ToolCall) []chat.StreamEvent {
	var events []chat.StreamEvent
	for _, call := range calls {
		events = append(events, chat.StreamEvent{Type: chat.EventToolCallStart, ToolCall: call})
	}
	for _, call := range calls {
		events = append(events, chat.StreamEvent{Type: chat.EventToolCallComplete, ToolCall: call})
	}
	return append(events, chat.StreamEvent{
		Type:  chat.EventMessageComplete,
		Usage: &chat.Usage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28},
	})
}

// collect drains a stream into a slice of events.
func collect(stream *AgentStream) []Event {
	var events []Event
	for stream.Next() {
		events = append(events, stream.Current())
	}
	return events
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type()
	}
	return types
}

func TestAgentRunEventOrdering(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{textTurn("All done.")}}
	agent := NewAgent(WithChatClient(completer))

	events := collect(agent.Run(context.Background(), "do the thing"))

	assert.Equal(t, []EventType{
		EventAgentStart,
		EventTextDelta,
		EventTextComplete,
		EventAgentEnd,
	}, eventTypes(events))

	start := events[0].(*AgentStartEvent)
	assert.Equal(t, "do the thing", start.Message)

	end := events[len(events)-1].(*AgentEndEvent)
	assert.Equal(t, "All done.", end.FinalResponse)
}

func TestAgentRunDispatchesTools(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{
		toolTurn(&chat.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"text": "hi"}`}),
		textTurn("Echoed."),
	}}
	agent := NewAgent(WithChatClient(completer))
	Register(agent.Tools(), echoTool())

	events := collect(agent.Run(context.Background(), "echo hi"))

	assert.Equal(t, []EventType{
		EventAgentStart,
		EventToolCallStart,
		EventToolCallComplete,
		EventTextDelta,
		EventTextComplete,
		EventAgentEnd,
	}, eventTypes(events))

	toolStart := events[1].(*ToolCallStartEvent)
	assert.Equal(t, "echo", toolStart.Name)
	assert.Equal(t, map[string]any{"text": "hi"}, toolStart.Args)

	toolDone := events[2].(*ToolCallCompleteEvent)
	assert.Equal(t, "hi", toolDone.Output)
	assert.False(t, toolDone.IsError)
}

func TestAgentRunDisabledTool(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{
		toolTurn(&chat.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"text": "hi"}`}),
		textTurn("ok"),
	}}
	agent := NewAgent(WithChatClient(completer), WithDisabledTools("echo"))
	Register(agent.Tools(), echoTool())

	events := collect(agent.Run(context.Background(), "echo hi"))

	var toolDone *ToolCallCompleteEvent
	for _, e := range events {
		if d, ok := e.(*ToolCallCompleteEvent); ok {
			toolDone = d
		}
	}
	require.NotNil(t, toolDone)
	assert.True(t, toolDone.IsError)
	assert.Contains(t, toolDone.Output, "disabled")

	// Disabled tools are not advertised to the model either.
	require.NotEmpty(t, completer.schemas)
	assert.Empty(t, completer.schemas[0])
}

func TestAgentRunMaxTurns(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{
		toolTurn(&chat.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"text": "again"}`}),
	}}
	agent := NewAgent(WithChatClient(completer), WithMaxTurns(2), WithLoopDetectionDisabled())
	Register(agent.Tools(), echoTool())

	events := collect(agent.Run(context.Background(), "loop forever"))

	var errEvent *AgentErrorEvent
	for _, e := range events {
		if ae, ok := e.(*AgentErrorEvent); ok {
			errEvent = ae
		}
	}
	require.NotNil(t, errEvent)
	assert.Contains(t, errEvent.Message, "Maximum turns (2) reached")
	assert.Equal(t, 2, completer.calls)
}

func TestAgentRunWithSessionAccumulatesHistory(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{
		textTurn("first answer"),
		textTurn("second answer"),
	}}
	agent := NewAgent(WithChatClient(completer))
	session := agent.NewSession()

	collect(agent.RunWithSession(context.Background(), session, "first question"))
	collect(agent.RunWithSession(context.Background(), session, "second question"))

	messages := session.Messages()
	require.Len(t, messages, 5)
	assert.Equal(t, chat.RoleSystem, messages[0].Role)
	assert.Equal(t, "first question", messages[1].Content)
	assert.Equal(t, "first answer", messages[2].Content)
	assert.Equal(t, "second question", messages[3].Content)
	assert.Equal(t, "second answer", messages[4].Content)

	// The second request carried the full history.
	require.Len(t, completer.requests, 2)
	assert.Len(t, completer.requests[1], 4)
}

func TestAgentSystemPromptDefault(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{textTurn("ok")}}
	agent := NewAgent(WithChatClient(completer))

	messages := agent.NewSession().Messages()
	require.NotEmpty(t, messages)
	assert.Equal(t, chat.RoleSystem, messages[0].Role)
	assert.Contains(t, messages[0].Content, "open-source contributor")
}

func TestAgentSystemPromptOverride(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{textTurn("ok")}}
	agent := NewAgent(WithChatClient(completer), WithSystemPrompt("You are a test fixture."))

	messages := agent.NewSession().Messages()
	require.NotEmpty(t, messages)
	assert.Equal(t, "You are a test fixture.", messages[0].Content)
}

func TestAgentPermissionConfirm(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{
		toolTurn(&chat.ToolCall{ID: "call_1", Name: "echo", Arguments: `{"text": "hi"}`}),
		textTurn("ok"),
	}}

	var asked []string
	agent := NewAgent(
		WithChatClient(completer),
		WithPermissionRules(permission.Rule{Pattern: "echo", Decision: permission.Ask}),
		WithConfirmFunc(func(ctx context.Context, toolName string, args map[string]any) bool {
			asked = append(asked, toolName)
			return false
		}),
	)
	Register(agent.Tools(), echoTool())

	events := collect(agent.Run(context.Background(), "echo hi"))

	var toolDone *ToolCallCompleteEvent
	for _, e := range events {
		if d, ok := e.(*ToolCallCompleteEvent); ok {
			toolDone = d
		}
	}
	require.NotNil(t, toolDone)
	assert.True(t, toolDone.IsError)
	assert.Contains(t, toolDone.Output, "denied by user")
	assert.Equal(t, []string{"echo"}, asked)
}

func TestAgentStreamSession(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{textTurn("ok")}}
	agent := NewAgent(WithChatClient(completer))

	stream := agent.Run(context.Background(), "hello")
	collect(stream)

	usage := stream.Session().Usage()
	assert.Equal(t, 15, usage.TotalTokens)
}

func TestAgentModelAccessor(t *testing.T) {
	agent := NewAgent(WithChatClient(&scriptedCompleter{turns: [][]chat.StreamEvent{textTurn("ok")}}),
		WithModel("gpt-4o-mini"))
	assert.Equal(t, "gpt-4o-mini", agent.Model())
}
