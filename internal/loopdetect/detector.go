// Package loopdetect flags repetitive non-progress in the agent's recent
// actions: the same tool called with identical arguments over and over, or
// near-identical text responses. Detection is a corrective signal fed back
// into the conversation, never an error.
package loopdetect

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

const (
	// DefaultThreshold is the run length of identical actions that triggers
	// detection. A single repeat is legitimate (polling git status, re-reading
	// a file), so the threshold is never below 2.
	DefaultThreshold = 3

	// DefaultWindow bounds how much history is retained.
	DefaultWindow = 20
)

type action struct {
	kind      string // "tool_call" or "response"
	label     string // tool name, or "" for responses
	signature string
}

// Detector keeps a bounded log of recent actions and reports repetition runs.
type Detector struct {
	actions   []action
	window    int
	threshold int
}

// New creates a Detector with the default window and threshold.
func New() *Detector {
	return NewWithThreshold(DefaultThreshold)
}

// NewWithThreshold creates a Detector triggering on runs of at least n
// identical consecutive actions. Values below 2 are raised to 2.
func NewWithThreshold(n int) *Detector {
	if n < 2 {
		n = 2
	}
	return &Detector{window: DefaultWindow, threshold: n}
}

// Threshold returns the configured trigger threshold.
func (d *Detector) Threshold() int { return d.threshold }

// RecordToolCall logs a tool invocation. The signature covers the tool name
// and the canonicalized arguments, so the same tool with different arguments
// never matches.
func (d *Detector) RecordToolCall(name string, args map[string]any) {
	d.record(action{
		kind:      "tool_call",
		label:     name,
		signature: toolSignature(name, args),
	})
}

// RecordResponse logs a text response. Whitespace is normalized before
// hashing so trivial formatting differences do not defeat detection.
func (d *Detector) RecordResponse(text string) {
	d.record(action{
		kind:      "response",
		signature: responseSignature(text),
	})
}

func (d *Detector) record(a action) {
	d.actions = append(d.actions, a)
	if len(d.actions) > d.window {
		d.actions = d.actions[len(d.actions)-d.window:]
	}
}

// Check inspects the recent window and returns a human-readable diagnosis of
// a detected repetition run, or "" when none is found.
func (d *Detector) Check() string {
	if len(d.actions) < d.threshold {
		return ""
	}

	last := d.actions[len(d.actions)-1]
	run := 1
	for i := len(d.actions) - 2; i >= 0; i-- {
		if d.actions[i].signature != last.signature {
			break
		}
		run++
	}

	if run < d.threshold {
		return ""
	}

	if last.kind == "tool_call" {
		return fmt.Sprintf("the %q tool has been called %d times in a row with identical arguments without making progress", last.label, run)
	}
	return fmt.Sprintf("the last %d responses were nearly identical, suggesting the conversation is not making progress", run)
}

// Reset clears the action log. Called after a loop-breaker nudge so the same
// run is not reported twice.
func (d *Detector) Reset() {
	d.actions = nil
}

// toolSignature produces a deterministic digest of a tool call. Argument
// maps are serialized with sorted keys so logically equal calls hash equal.
func toolSignature(name string, args map[string]any) string {
	h := sha256.Sum256([]byte(canonicalArgs(args)))
	return fmt.Sprintf("tool:%s:%x", name, h[:8])
}

func canonicalArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		v, err := json.Marshal(args[k])
		if err != nil {
			v = []byte(fmt.Sprintf("%v", args[k]))
		}
		fmt.Fprintf(&b, "%q:%s", k, v)
	}
	b.WriteByte('}')
	return b.String()
}

func responseSignature(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("response:%x", h[:8])
}
