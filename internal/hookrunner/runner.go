// Package hookrunner executes the hook matchers registered on an agent.
package hookrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	pubhook "github.com/forgehand/forgehand/hook"
)

const defaultTimeout = 30 * time.Second

// Runner dispatches hook callbacks by event, filtered by tool-name pattern.
type Runner struct {
	matchers []compiledMatcher
}

type compiledMatcher struct {
	event   pubhook.Event
	pattern *regexp.Regexp // nil matches every tool
	hooks   []pubhook.Func
	timeout time.Duration
}

// New compiles public Matcher definitions into a Runner. An invalid regex
// pattern fails the whole set.
func New(matchers []pubhook.Matcher) (*Runner, error) {
	compiled := make([]compiledMatcher, 0, len(matchers))
	for i, m := range matchers {
		cm := compiledMatcher{
			event:   m.Event,
			hooks:   m.Hooks,
			timeout: m.Timeout,
		}
		if cm.timeout == 0 {
			cm.timeout = defaultTimeout
		}
		if m.Pattern != "" {
			re, err := regexp.Compile(m.Pattern)
			if err != nil {
				return nil, fmt.Errorf("matcher[%d]: invalid pattern %q: %w", i, m.Pattern, err)
			}
			cm.pattern = re
		}
		compiled = append(compiled, cm)
	}
	return &Runner{matchers: compiled}, nil
}

// RunPreToolUse fires PreToolUse hooks for the tool. The first block wins
// and carries its reason; the last non-nil input rewrite wins.
func (r *Runner) RunPreToolUse(ctx context.Context, sessionID, toolName string, input json.RawMessage) (*pubhook.Result, error) {
	return r.dispatch(ctx, pubhook.PreToolUse, toolName, &pubhook.Input{
		SessionID: sessionID,
		Event:     pubhook.PreToolUse,
		ToolName:  toolName,
		ToolInput: input,
	})
}

// RunPostToolUse fires PostToolUse hooks after a successful tool call.
func (r *Runner) RunPostToolUse(ctx context.Context, sessionID, toolName string, input json.RawMessage, output string) error {
	_, err := r.dispatch(ctx, pubhook.PostToolUse, toolName, &pubhook.Input{
		SessionID:  sessionID,
		Event:      pubhook.PostToolUse,
		ToolName:   toolName,
		ToolInput:  input,
		ToolOutput: output,
	})
	return err
}

// RunPostToolFailure fires PostToolUseFailure hooks after a failed tool call.
func (r *Runner) RunPostToolFailure(ctx context.Context, sessionID, toolName string, input json.RawMessage, toolErr error) error {
	_, err := r.dispatch(ctx, pubhook.PostToolUseFailure, toolName, &pubhook.Input{
		SessionID: sessionID,
		Event:     pubhook.PostToolUseFailure,
		ToolName:  toolName,
		ToolInput: input,
		ToolError: toolErr,
	})
	return err
}

// RunUserPromptSubmit fires UserPromptSubmit hooks for an incoming prompt.
func (r *Runner) RunUserPromptSubmit(ctx context.Context, sessionID, prompt string) (*pubhook.Result, error) {
	return r.dispatch(ctx, pubhook.UserPromptSubmit, "", &pubhook.Input{
		SessionID: sessionID,
		Event:     pubhook.UserPromptSubmit,
		Prompt:    prompt,
	})
}

// RunStop fires Stop hooks when a run's loop finishes.
func (r *Runner) RunStop(ctx context.Context, sessionID string) error {
	_, err := r.dispatch(ctx, pubhook.Stop, "", &pubhook.Input{
		SessionID: sessionID,
		Event:     pubhook.Stop,
	})
	return err
}

// RunRunBoundary fires RunStart or RunEnd hooks.
func (r *Runner) RunRunBoundary(ctx context.Context, event pubhook.Event, sessionID, runID string) error {
	_, err := r.dispatch(ctx, event, "", &pubhook.Input{
		SessionID: sessionID,
		Event:     event,
		RunID:     runID,
	})
	return err
}

// dispatch walks the matchers for event in registration order. Each matching
// matcher's hooks run under that matcher's timeout. A hook error aborts the
// walk; a block short-circuits the remaining matchers.
func (r *Runner) dispatch(ctx context.Context, event pubhook.Event, toolName string, input *pubhook.Input) (*pubhook.Result, error) {
	var combined *pubhook.Result

	for _, m := range r.matchers {
		if m.event != event {
			continue
		}
		if m.pattern != nil && !m.pattern.MatchString(toolName) {
			continue
		}

		tctx, cancel := context.WithTimeout(ctx, m.timeout)
		res, err := runChain(tctx, m.hooks, input)
		cancel()

		if err != nil {
			return combined, err
		}
		combined = merge(combined, res)
		if combined != nil && combined.Block {
			break
		}
	}

	return combined, nil
}

// runChain executes one matcher's hooks in order, stopping at the first
// block, the first error, or context cancellation.
func runChain(ctx context.Context, hooks []pubhook.Func, input *pubhook.Input) (*pubhook.Result, error) {
	var combined *pubhook.Result

	for _, fn := range hooks {
		if err := ctx.Err(); err != nil {
			return combined, err
		}

		res, err := fn(ctx, input)
		if err != nil {
			return combined, err
		}
		combined = merge(combined, res)
		if combined != nil && combined.Block {
			return combined, nil
		}
	}

	return combined, nil
}

// merge folds one hook result into the accumulated result. The first block
// keeps its reason; input rewrites are last-wins.
func merge(combined, res *pubhook.Result) *pubhook.Result {
	if res == nil {
		return combined
	}
	if combined == nil {
		combined = &pubhook.Result{}
	}
	if res.Block && !combined.Block {
		combined.Block = true
		combined.Reason = res.Reason
	}
	if res.UpdatedInput != nil {
		combined.UpdatedInput = res.UpdatedInput
	}
	return combined
}
