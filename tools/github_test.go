package tools

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgehand/forgehand/internal/gh"
)

func stubClient(t *testing.T, payload string) *gh.Client {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub script requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "gh")
	script := "#!/bin/sh\ncat <<'PAYLOAD'\n" + payload + "\nPAYLOAD\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return gh.NewClientWithBin(path)
}

func TestGithubIssueView(t *testing.T) {
	client := stubClient(t, `{"number": 42, "title": "Broken link", "body": "The docs link 404s", "state": "open", "labels": [{"name": "docs"}]}`)

	tool := githubIssueViewTool(client)
	result := tool.Run(context.Background(), githubIssueViewInput{URL: "https://github.com/acme/widget/issues/42"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "Issue #42: Broken link")
	assert.Contains(t, result.Output, "State: open")
	assert.Contains(t, result.Output, "Labels: docs")
	assert.Contains(t, result.Output, "The docs link 404s")
}

func TestGithubIssueViewBadURL(t *testing.T) {
	tool := githubIssueViewTool(gh.NewClientWithBin(""))
	result := tool.Run(context.Background(), githubIssueViewInput{URL: "https://example.com/nope"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid GitHub issue URL")
}

func TestGithubIssueList(t *testing.T) {
	client := stubClient(t, `[
		{"number": 1, "title": "first", "state": "open", "labels": [{"name": "bug"}]},
		{"number": 2, "title": "second", "state": "open", "labels": []}
	]`)

	tool := githubIssueListTool(client)
	result := tool.Run(context.Background(), githubIssueListInput{Repo: "acme/widget"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "#1 [open] first (bug)")
	assert.Contains(t, result.Output, "#2 [open] second")
}

func TestGithubIssueListBadRepo(t *testing.T) {
	tool := githubIssueListTool(gh.NewClientWithBin(""))
	result := tool.Run(context.Background(), githubIssueListInput{Repo: "not-a-slug"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "expected owner/name")
}

func TestGithubPRCreate(t *testing.T) {
	client := stubClient(t, "https://github.com/acme/widget/pull/9")

	tool := githubPRCreateTool(client, Options{BaseBranch: "develop"})
	result := tool.Run(context.Background(), githubPRCreateInput{
		Repo:  "acme/widget",
		Title: "Fix broken link",
		Body:  "Fixes #42",
		Head:  "fix/issue-42",
	})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "https://github.com/acme/widget/pull/9")
}

func TestGithubPRView(t *testing.T) {
	client := stubClient(t, `{"state": "OPEN", "isDraft": false, "reviewDecision": "APPROVED", "url": "https://github.com/acme/widget/pull/9"}`)

	tool := githubPRViewTool(client)
	result := tool.Run(context.Background(), githubPRViewInput{Repo: "acme/widget", Number: 9})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "State: OPEN")
	assert.Contains(t, result.Output, "Review decision: APPROVED")
}

func TestGithubPRCommentsEmpty(t *testing.T) {
	client := stubClient(t, `[]`)

	tool := githubPRCommentsTool(client)
	result := tool.Run(context.Background(), githubPRCommentsInput{Repo: "acme/widget", Number: 9})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "No review comments.", result.Output)
}

func TestGithubToolsWithoutGH(t *testing.T) {
	tool := githubIssueViewTool(gh.NewClientWithBin(""))
	result := tool.Run(context.Background(), githubIssueViewInput{URL: "https://github.com/acme/widget/issues/1"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "gh auth login")
}
