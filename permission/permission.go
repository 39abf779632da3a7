// Package permission gates tool execution behind mode-based policies,
// declarative rules, and an optional user callback.
package permission

import (
	"context"
	"encoding/json"
)

// Decision represents the outcome of a permission check.
type Decision int

const (
	Allow Decision = iota // Tool execution is permitted
	Deny                  // Tool execution is blocked
	Ask                   // User should be prompted for confirmation
)

// Mode controls the default permission behavior.
type Mode int

const (
	ModeDefault           Mode = iota // read=allow, write/exec=ask
	ModeAcceptEdits                   // read+write=allow, exec=ask
	ModeBypassPermissions             // all=allow
	ModePlan                          // read=allow, write+exec=deny
)

// Func is a user-provided permission callback.
// It receives the tool name and input, returns a Decision.
type Func func(ctx context.Context, toolName string, input json.RawMessage) (Decision, error)

// ReadOnlyTools lists tools classified as read-only.
// These are always allowed in Default and AcceptEdits modes.
var ReadOnlyTools = map[string]bool{
	"read_file":         true,
	"glob":              true,
	"grep":              true,
	"git_status":        true,
	"git_diff":          true,
	"git_log":           true,
	"git_branch_list":   true,
	"branch_memory":     true,
	"github_issue_view": true,
	"github_issue_list": true,
	"github_pr_view":    true,
}

// WriteTools lists tools classified as workspace write operations.
// Allowed in AcceptEdits and BypassPermissions modes.
var WriteTools = map[string]bool{
	"write_file": true,
	"edit_file":  true,
}

// Checker evaluates whether a tool can be used.
type Checker struct {
	mode       Mode
	rules      []Rule
	canUseTool Func // Optional user-provided callback, overrides mode-based check
}

// NewChecker creates a permission checker with the given mode.
func NewChecker(mode Mode, canUseTool Func) *Checker {
	return &Checker{mode: mode, canUseTool: canUseTool}
}

// NewCheckerWithRules creates a checker whose rules are consulted before the
// callback and the mode defaults.
func NewCheckerWithRules(mode Mode, rules []Rule, canUseTool Func) *Checker {
	return &Checker{mode: mode, rules: rules, canUseTool: canUseTool}
}

// Check evaluates whether the named tool with the given input is allowed.
// Rules are consulted first, then the user callback, then mode defaults.
func (c *Checker) Check(ctx context.Context, toolName string, input json.RawMessage) (Decision, error) {
	if d, matched := MatchRules(c.rules, toolName); matched {
		return d, nil
	}

	if c.canUseTool != nil {
		return c.canUseTool(ctx, toolName, input)
	}

	switch c.mode {
	case ModeBypassPermissions:
		return Allow, nil
	case ModePlan:
		if ReadOnlyTools[toolName] {
			return Allow, nil
		}
		return Deny, nil
	case ModeAcceptEdits:
		if ReadOnlyTools[toolName] || WriteTools[toolName] {
			return Allow, nil
		}
		return Ask, nil
	default: // ModeDefault
		if ReadOnlyTools[toolName] {
			return Allow, nil
		}
		return Ask, nil
	}
}

// Mode returns the current permission mode.
func (c *Checker) Mode() Mode {
	return c.mode
}

// SetMode updates the permission mode.
func (c *Checker) SetMode(mode Mode) {
	c.mode = mode
}
