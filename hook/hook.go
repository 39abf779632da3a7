// Package hook defines public types for the agent hook system.
//
// Hooks let users register callbacks that fire before and after tool
// execution, at run boundaries, and around context compaction. The [Matcher]
// type binds a set of [Func] callbacks to a specific [Event] and an optional
// tool-name regex pattern.
package hook

import (
	"context"
	"encoding/json"
	"time"
)

// Event identifies when a hook fires.
type Event string

const (
	PreToolUse         Event = "PreToolUse"
	PostToolUse        Event = "PostToolUse"
	PostToolUseFailure Event = "PostToolUseFailure"
	Stop               Event = "Stop"
	RunStart           Event = "RunStart"
	RunEnd             Event = "RunEnd"
	PreCompact         Event = "PreCompact"
	PostCompact        Event = "PostCompact"
	UserPromptSubmit   Event = "UserPromptSubmit"
)

// Input is passed to hook functions.
type Input struct {
	SessionID string
	Event     Event
	ToolName  string          // Tool-related events.
	ToolInput json.RawMessage // PreToolUse, PostToolUse, PostToolUseFailure.
	ToolOutput string         // PostToolUse.
	ToolError  error          // PostToolUseFailure.

	// UserPromptSubmit hook
	Prompt string // The user's prompt text.

	// RunStart / RunEnd hooks
	RunID string // Unique run identifier.
}

// Result is returned by hook functions. A zero value means "no action".
type Result struct {
	Block        bool            // If true, blocks the tool from executing.
	Reason       string          // Human-readable reason for blocking.
	UpdatedInput json.RawMessage // If non-nil, replaces the tool input (PreToolUse only).
}

// Func is the signature for hook callbacks.
type Func func(ctx context.Context, input *Input) (*Result, error)

// Matcher defines which events a set of hooks should fire for.
type Matcher struct {
	Event   Event         // Which event to match.
	Pattern string        // Regex pattern for tool name (empty = match all).
	Hooks   []Func        // Functions to call (in order).
	Timeout time.Duration // Max time for all hooks in this matcher (0 = 30s default).
}
