package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forgehand "github.com/forgehand/forgehand"
	"github.com/forgehand/forgehand/chat"
	"github.com/forgehand/forgehand/memory"
)

func TestParseRemoteSlug(t *testing.T) {
	cases := []struct {
		remote string
		slug   string
		ok     bool
	}{
		{"https://github.com/golang/go.git", "golang/go", true},
		{"https://github.com/golang/go", "golang/go", true},
		{"git@github.com:golang/go.git", "golang/go", true},
		{"git@github.com:golang/go.git\n", "golang/go", true},
		{"https://gitlab.com/group/project.git", "", false},
		{"not a url", "", false},
	}
	for _, tc := range cases {
		slug, ok := parseRemoteSlug(tc.remote)
		assert.Equal(t, tc.ok, ok, tc.remote)
		assert.Equal(t, tc.slug, slug, tc.remote)
	}
}

func TestExtractURL(t *testing.T) {
	assert.Equal(t, "https://github.com/o/r/pull/7",
		extractURL("Created pull request: https://github.com/o/r/pull/7"))
	assert.Equal(t, "", extractURL("no link here"))
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "line one", firstLine("line one\nline two"))
	assert.Equal(t, "single", firstLine("single"))
}

func TestSummarizeArgs(t *testing.T) {
	assert.Equal(t, " (ls -la)", summarizeArgs(map[string]any{"command": "ls -la"}))
	assert.Equal(t, " (main.go)", summarizeArgs(map[string]any{"path": "main.go"}))
	assert.Equal(t, "", summarizeArgs(map[string]any{"count": 3}))

	long := strings.Repeat("x", 120)
	summary := summarizeArgs(map[string]any{"command": long})
	assert.Contains(t, summary, "...")
	assert.Less(t, len(summary), 100)
}

func TestTerminalConfirm(t *testing.T) {
	var out bytes.Buffer
	confirm := terminalConfirm(strings.NewReader("y\nno\n"), &out)

	assert.True(t, confirm(context.Background(), "bash", map[string]any{"command": "ls"}))
	assert.False(t, confirm(context.Background(), "bash", nil))
	// EOF denies.
	assert.False(t, confirm(context.Background(), "bash", nil))

	assert.Contains(t, out.String(), "Allow bash (ls)?")
}

func TestBranchForIssue(t *testing.T) {
	store := memory.NewStore(t.TempDir())
	require.NoError(t, store.Save(&memory.Record{BranchName: "fix/issue-12", IssueNumber: 12, Phase: "planning"}))
	require.NoError(t, store.Save(&memory.Record{BranchName: "fix/issue-34", IssueNumber: 34, Phase: "implementation"}))

	branch, err := branchForIssue(store, 34)
	require.NoError(t, err)
	assert.Equal(t, "fix/issue-34", branch)

	_, err = branchForIssue(store, 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no branch found for issue #99")
}

func TestApproveAll(t *testing.T) {
	assert.True(t, approveAll(context.Background(), "anything", nil))
}

// scriptedCompleter plays back canned stream events, one turn per call.
type scriptedCompleter struct {
	turns [][]chat.StreamEvent
	calls int
}

func (c *scriptedCompleter) ChatCompletion(ctx context.Context, messages []chat.Message, tools []chat.ToolSchema) *chat.Stream {
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

func toolTurn(id, name, args string) []chat.StreamEvent {
	call := &chat.ToolCall{ID: id, Name: name, Arguments: args}
	return []chat.StreamEvent{
		{Type: chat.EventToolCallStart, ToolCall: call},
		{Type: chat.EventToolCallComplete, ToolCall: call},
		{Type: chat.EventMessageComplete, Usage: &chat.Usage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28}},
	}
}

func TestRendererStreamsTextAndToolMarkers(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{
		toolTurn("call_1", "open_pr", `{"title": "Fix parser"}`),
		textTurn("Opened the pull request."),
	}}

	agent := forgehand.NewAgent(forgehand.WithChatClient(completer))
	forgehand.Register(agent.Tools(), forgehand.Tool[struct {
		Title string `json:"title"`
	}]{
		Name:        "open_pr",
		Description: "open a pull request",
		Run: func(ctx context.Context, input struct {
			Title string `json:"title"`
		}) forgehand.ToolResult {
			return forgehand.Ok("Created pull request: https://github.com/o/r/pull/7")
		},
	})

	var out, errOut bytes.Buffer
	r := newRenderer(&out, &errOut)

	err := r.consume(agent.Run(context.Background(), "open a PR"))
	require.NoError(t, err)

	assert.Contains(t, out.String(), "* open_pr")
	assert.Contains(t, out.String(), "Opened the pull request.")
	assert.Empty(t, errOut.String())
}

func TestRendererCapturesPRURL(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{
		toolTurn("call_1", "github_pr_create", `{"repo": "o/r", "title": "Fix"}`),
		textTurn("Done."),
	}}

	agent := forgehand.NewAgent(forgehand.WithChatClient(completer))
	forgehand.Register(agent.Tools(), forgehand.Tool[struct {
		Repo  string `json:"repo"`
		Title string `json:"title"`
	}]{
		Name:        "github_pr_create",
		Description: "open a pull request",
		Run: func(ctx context.Context, input struct {
			Repo  string `json:"repo"`
			Title string `json:"title"`
		}) forgehand.ToolResult {
			return forgehand.Ok("Created pull request: https://github.com/o/r/pull/42")
		},
	})

	var out, errOut bytes.Buffer
	r := newRenderer(&out, &errOut)

	require.NoError(t, r.consume(agent.Run(context.Background(), "go")))
	assert.Equal(t, "https://github.com/o/r/pull/42", r.createdPRURL())
}

func TestRendererReportsToolFailures(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{
		toolTurn("call_1", "missing_tool", `{}`),
		textTurn("Could not run the tool."),
	}}

	agent := forgehand.NewAgent(forgehand.WithChatClient(completer))

	var out, errOut bytes.Buffer
	r := newRenderer(&out, &errOut)

	require.NoError(t, r.consume(agent.Run(context.Background(), "go")))
	assert.Contains(t, errOut.String(), "missing_tool failed")
}

func TestRendererErrorWithoutResponse(t *testing.T) {
	completer := &scriptedCompleter{turns: [][]chat.StreamEvent{
		{{Type: chat.EventError, Err: context.DeadlineExceeded}},
	}}

	agent := forgehand.NewAgent(forgehand.WithChatClient(completer))

	var out, errOut bytes.Buffer
	r := newRenderer(&out, &errOut)

	err := r.consume(agent.Run(context.Background(), "go"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent stopped")
}
