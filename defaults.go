package forgehand

import "github.com/forgehand/forgehand/internal/transcript"

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o"

	// DefaultContextWindow is the assumed context window, in tokens, when
	// the model's window is not configured.
	DefaultContextWindow = 128_000

	// DefaultMaxOutputTokens bounds the completion length per request.
	DefaultMaxOutputTokens = 4096

	// DefaultMaxTurns bounds the number of request/response cycles in a
	// single run.
	DefaultMaxTurns = 50

	// DefaultLoopThreshold is the number of identical consecutive actions
	// that triggers loop-breaking.
	DefaultLoopThreshold = 3

	// DefaultStreamBufferSize is the capacity of the event channel behind
	// an AgentStream.
	DefaultStreamBufferSize = 64
)

const (
	// DefaultPruneProtectTokens is the newest span of tool-output tokens
	// never pruned.
	DefaultPruneProtectTokens = transcript.DefaultPruneProtectTokens

	// DefaultPruneMinimumTokens is the smallest reclaimable span worth a
	// pruning pass.
	DefaultPruneMinimumTokens = transcript.DefaultPruneMinimumTokens
)
