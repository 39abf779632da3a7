package forgehand

import (
	"time"

	"github.com/forgehand/forgehand/chat"
	"github.com/forgehand/forgehand/internal/loopdetect"
	"github.com/forgehand/forgehand/internal/transcript"
)

// Session holds the conversational state carried across turns and across
// successive runs against the same agent: the transcript, the loop
// detector, and usage counters.
type Session struct {
	ID        string
	CreatedAt time.Time

	transcript *transcript.Manager
	detector   *loopdetect.Detector
}

func newSession(systemPrompt string, cfg transcript.Config, loopThreshold int) *Session {
	return &Session{
		ID:         generateID("sess"),
		CreatedAt:  time.Now(),
		transcript: transcript.New(systemPrompt, cfg),
		detector:   loopdetect.NewWithThreshold(loopThreshold),
	}
}

// Messages returns the current conversation in request order, with the
// ordering invariant enforced.
func (s *Session) Messages() []chat.Message {
	return s.transcript.Messages()
}

// Usage returns the cumulative token usage across all turns of the session.
func (s *Session) Usage() chat.Usage {
	return s.transcript.TotalUsage()
}

// Clear resets the conversation to just the system prompt and resets the
// loop detector. Usage counters are preserved.
func (s *Session) Clear() {
	s.transcript.Clear()
	s.detector.Reset()
}

// Clone creates a deep copy of the session with a new ID and timestamp.
// The conversation history is copied so the original session is unaffected.
func (s *Session) Clone() *Session {
	return &Session{
		ID:         generateID("sess"),
		CreatedAt:  time.Now(),
		transcript: s.transcript.Clone(),
		detector:   loopdetect.NewWithThreshold(s.detector.Threshold()),
	}
}
