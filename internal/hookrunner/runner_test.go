package hookrunner_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubhook "github.com/forgehand/forgehand/hook"
	"github.com/forgehand/forgehand/internal/hookrunner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
	return nil, nil
}

func blockHook(reason string) pubhook.Func {
	return func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
		return &pubhook.Result{Block: true, Reason: reason}, nil
	}
}

func allowHook() pubhook.Func {
	return func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
		return &pubhook.Result{}, nil
	}
}

func TestNewInvalidPattern(t *testing.T) {
	_, err := hookrunner.New([]pubhook.Matcher{
		{Event: pubhook.PreToolUse, Pattern: "[invalid", Hooks: []pubhook.Func{noop}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestEmptyRunnerReturnsNil(t *testing.T) {
	r, err := hookrunner.New(nil)
	require.NoError(t, err)

	res, err := r.RunPreToolUse(context.Background(), "sess", "bash", nil)
	require.NoError(t, err)
	assert.Nil(t, res, "empty runner should return nil result")
}

func TestBasicMatchByEvent(t *testing.T) {
	called := false
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.PreToolUse,
			Hooks: []pubhook.Func{
				func(_ context.Context, in *pubhook.Input) (*pubhook.Result, error) {
					called = true
					assert.Equal(t, "sess-1", in.SessionID)
					assert.Equal(t, pubhook.PreToolUse, in.Event)
					assert.Equal(t, "bash", in.ToolName)
					return nil, nil
				},
			},
		},
	})
	require.NoError(t, err)

	res, err := r.RunPreToolUse(context.Background(), "sess-1", "bash", nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Nil(t, res)
}

func TestEventMismatchSkips(t *testing.T) {
	called := false
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.Stop,
			Hooks: []pubhook.Func{
				func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
					called = true
					return nil, nil
				},
			},
		},
	})
	require.NoError(t, err)

	res, err := r.RunPreToolUse(context.Background(), "sess", "bash", nil)
	require.NoError(t, err)
	assert.False(t, called, "Stop matcher should not fire for PreToolUse")
	assert.Nil(t, res)
}

func TestRegexPatternMatching(t *testing.T) {
	var matched []string
	hook := func(_ context.Context, in *pubhook.Input) (*pubhook.Result, error) {
		matched = append(matched, in.ToolName)
		return nil, nil
	}

	r, err := hookrunner.New([]pubhook.Matcher{
		{Event: pubhook.PreToolUse, Pattern: `^bash$`, Hooks: []pubhook.Func{hook}},
		{Event: pubhook.PreToolUse, Pattern: `^read_`, Hooks: []pubhook.Func{hook}},
	})
	require.NoError(t, err)

	// "bash" matches first matcher
	_, err = r.RunPreToolUse(context.Background(), "s", "bash", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bash"}, matched)

	// "read_file" matches second matcher
	matched = nil
	_, err = r.RunPreToolUse(context.Background(), "s", "read_file", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"read_file"}, matched)

	// "curl" matches neither
	matched = nil
	_, err = r.RunPreToolUse(context.Background(), "s", "curl", nil)
	require.NoError(t, err)
	assert.Empty(t, matched)
}

func TestEmptyPatternMatchesAll(t *testing.T) {
	called := 0
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.PreToolUse,
			Hooks: []pubhook.Func{
				func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
					called++
					return nil, nil
				},
			},
		},
	})
	require.NoError(t, err)

	r.RunPreToolUse(context.Background(), "s", "bash", nil)
	r.RunPreToolUse(context.Background(), "s", "curl", nil)
	r.RunPreToolUse(context.Background(), "s", "anything", nil)
	assert.Equal(t, 3, called, "empty pattern should match all tool names")
}

func TestFirstBlockWins(t *testing.T) {
	thirdCalled := false
	r, err := hookrunner.New([]pubhook.Matcher{
		{Event: pubhook.PreToolUse, Hooks: []pubhook.Func{allowHook()}},
		{Event: pubhook.PreToolUse, Hooks: []pubhook.Func{blockHook("reason-1")}},
		{
			Event: pubhook.PreToolUse,
			Hooks: []pubhook.Func{
				func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
					thirdCalled = true
					return &pubhook.Result{Block: true, Reason: "reason-2"}, nil
				},
			},
		},
	})
	require.NoError(t, err)

	res, err := r.RunPreToolUse(context.Background(), "s", "bash", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Block)
	assert.Equal(t, "reason-1", res.Reason, "first block reason wins")
	assert.False(t, thirdCalled, "hooks after block should not execute")
}

func TestFirstBlockWinsWithinMatcher(t *testing.T) {
	secondCalled := false
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.PreToolUse,
			Hooks: []pubhook.Func{
				blockHook("inner-block"),
				func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
					secondCalled = true
					return nil, nil
				},
			},
		},
	})
	require.NoError(t, err)

	res, err := r.RunPreToolUse(context.Background(), "s", "bash", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.Block)
	assert.Equal(t, "inner-block", res.Reason)
	assert.False(t, secondCalled)
}

func TestTimeoutEnforcement(t *testing.T) {
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event:   pubhook.PreToolUse,
			Timeout: 50 * time.Millisecond,
			Hooks: []pubhook.Func{
				func(ctx context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(5 * time.Second):
						return nil, nil
					}
				},
			},
		},
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = r.RunPreToolUse(context.Background(), "s", "bash", nil)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, elapsed < 2*time.Second, "should timeout quickly, took %v", elapsed)
}

func TestUpdatedInputPropagation(t *testing.T) {
	input1 := json.RawMessage(`{"v":1}`)
	input2 := json.RawMessage(`{"v":2}`)

	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.PreToolUse,
			Hooks: []pubhook.Func{
				func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
					return &pubhook.Result{UpdatedInput: input1}, nil
				},
			},
		},
		{
			Event: pubhook.PreToolUse,
			Hooks: []pubhook.Func{
				func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
					return &pubhook.Result{UpdatedInput: input2}, nil
				},
			},
		},
	})
	require.NoError(t, err)

	res, err := r.RunPreToolUse(context.Background(), "s", "bash", nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.JSONEq(t, `{"v":2}`, string(res.UpdatedInput), "last non-nil UpdatedInput wins")
}

func TestRunPostToolUse(t *testing.T) {
	var captured *pubhook.Input
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.PostToolUse,
			Hooks: []pubhook.Func{
				func(_ context.Context, in *pubhook.Input) (*pubhook.Result, error) {
					captured = in
					return nil, nil
				},
			},
		},
	})
	require.NoError(t, err)

	inputJSON := json.RawMessage(`{"cmd":"ls"}`)
	err = r.RunPostToolUse(context.Background(), "sess-2", "bash", inputJSON, "file1\nfile2")
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, pubhook.PostToolUse, captured.Event)
	assert.Equal(t, "bash", captured.ToolName)
	assert.Equal(t, "file1\nfile2", captured.ToolOutput)
	assert.JSONEq(t, `{"cmd":"ls"}`, string(captured.ToolInput))
}

func TestRunPostToolFailure(t *testing.T) {
	var captured *pubhook.Input
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.PostToolUseFailure,
			Hooks: []pubhook.Func{
				func(_ context.Context, in *pubhook.Input) (*pubhook.Result, error) {
					captured = in
					return nil, nil
				},
			},
		},
	})
	require.NoError(t, err)

	toolErr := errors.New("command not found")
	err = r.RunPostToolFailure(context.Background(), "sess-3", "bash", nil, toolErr)
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, pubhook.PostToolUseFailure, captured.Event)
	assert.Equal(t, "bash", captured.ToolName)
	assert.Equal(t, toolErr, captured.ToolError)
}

func TestRunStop(t *testing.T) {
	called := false
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.Stop,
			Hooks: []pubhook.Func{
				func(_ context.Context, in *pubhook.Input) (*pubhook.Result, error) {
					called = true
					assert.Equal(t, pubhook.Stop, in.Event)
					assert.Equal(t, "sess-4", in.SessionID)
					return nil, nil
				},
			},
		},
	})
	require.NoError(t, err)

	err = r.RunStop(context.Background(), "sess-4")
	require.NoError(t, err)
	assert.True(t, called)
}

func TestMultipleMatchersForSameEvent(t *testing.T) {
	var order []int
	makeHook := func(id int) pubhook.Func {
		return func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
			order = append(order, id)
			return nil, nil
		}
	}

	r, err := hookrunner.New([]pubhook.Matcher{
		{Event: pubhook.PreToolUse, Hooks: []pubhook.Func{makeHook(1)}},
		{Event: pubhook.PreToolUse, Hooks: []pubhook.Func{makeHook(2)}},
		{Event: pubhook.PreToolUse, Hooks: []pubhook.Func{makeHook(3)}},
	})
	require.NoError(t, err)

	_, err = r.RunPreToolUse(context.Background(), "s", "bash", nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order, "hooks should execute in registration order")
}

func TestHookErrorStopsExecution(t *testing.T) {
	secondCalled := false
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.PreToolUse,
			Hooks: []pubhook.Func{
				func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
					return nil, errors.New("hook failed")
				},
			},
		},
		{
			Event: pubhook.PreToolUse,
			Hooks: []pubhook.Func{
				func(_ context.Context, _ *pubhook.Input) (*pubhook.Result, error) {
					secondCalled = true
					return nil, nil
				},
			},
		},
	})
	require.NoError(t, err)

	_, err = r.RunPreToolUse(context.Background(), "s", "bash", nil)
	require.Error(t, err)
	assert.Equal(t, "hook failed", err.Error())
	assert.False(t, secondCalled)
}

func TestRunUserPromptSubmit(t *testing.T) {
	var captured *pubhook.Input
	r, err := hookrunner.New([]pubhook.Matcher{
		{
			Event: pubhook.UserPromptSubmit,
			Hooks: []pubhook.Func{
				func(_ context.Context, in *pubhook.Input) (*pubhook.Result, error) {
					captured = in
					return nil, nil
				},
			},
		},
	})
	require.NoError(t, err)

	_, err = r.RunUserPromptSubmit(context.Background(), "sess-5", "fix the bug")
	require.NoError(t, err)
	require.NotNil(t, captured)
	assert.Equal(t, pubhook.UserPromptSubmit, captured.Event)
	assert.Equal(t, "fix the bug", captured.Prompt)
}

func TestRunRunBoundary(t *testing.T) {
	var events []pubhook.Event
	hook := func(_ context.Context, in *pubhook.Input) (*pubhook.Result, error) {
		events = append(events, in.Event)
		assert.Equal(t, "run-001", in.RunID)
		return nil, nil
	}

	r, err := hookrunner.New([]pubhook.Matcher{
		{Event: pubhook.RunStart, Hooks: []pubhook.Func{hook}},
		{Event: pubhook.RunEnd, Hooks: []pubhook.Func{hook}},
	})
	require.NoError(t, err)

	require.NoError(t, r.RunRunBoundary(context.Background(), pubhook.RunStart, "sess-6", "run-001"))
	require.NoError(t, r.RunRunBoundary(context.Background(), pubhook.RunEnd, "sess-6", "run-001"))
	assert.Equal(t, []pubhook.Event{pubhook.RunStart, pubhook.RunEnd}, events)
}
