package chat

import "context"

// Stream is an iterator over events from one streamed chat completion.
// Usage:
//
//	stream := client.ChatCompletion(ctx, messages, tools)
//	for stream.Next() {
//	    event := stream.Current()
//	    // handle event
//	}
type Stream struct {
	events  chan StreamEvent
	current StreamEvent
	done    bool
}

// NewStream creates a Stream fed by the given channel. The producer closes
// the channel when the completion is finished. Exported so tests can script
// event sequences without a live endpoint.
func NewStream(events chan StreamEvent) *Stream {
	return &Stream{events: events}
}

// Next advances to the next event. Returns false when the stream is exhausted.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	event, ok := <-s.events
	if !ok {
		s.done = true
		return false
	}
	s.current = event
	return true
}

// Current returns the most recent event returned by Next.
func (s *Stream) Current() StreamEvent {
	return s.current
}

// errorStream returns a stream that yields a single error event.
func errorStream(err error) *Stream {
	ch := make(chan StreamEvent, 1)
	ch <- StreamEvent{Type: EventError, Err: err}
	close(ch)
	return NewStream(ch)
}

// Completer is the chat endpoint contract consumed by the agent loop. The
// loop never constructs or parses raw HTTP/JSON, only reads the typed
// event stream.
type Completer interface {
	ChatCompletion(ctx context.Context, messages []Message, tools []ToolSchema) *Stream
}
