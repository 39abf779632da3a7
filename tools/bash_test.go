package tools

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutBash(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("bash not available on windows")
	}
}

func TestBashEcho(t *testing.T) {
	skipWithoutBash(t)

	tool := bashTool(Options{WorkDir: t.TempDir()})
	result := tool.Run(context.Background(), bashInput{Command: "echo hello"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "hello")
}

func TestBashRunsInWorkDir(t *testing.T) {
	skipWithoutBash(t)
	dir := t.TempDir()

	tool := bashTool(Options{WorkDir: dir})
	result := tool.Run(context.Background(), bashInput{Command: "pwd"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, dir)
}

func TestBashNonZeroExit(t *testing.T) {
	skipWithoutBash(t)

	tool := bashTool(Options{WorkDir: t.TempDir()})
	result := tool.Run(context.Background(), bashInput{Command: "exit 3"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "exit code 3")
}

func TestBashTimeout(t *testing.T) {
	skipWithoutBash(t)

	timeout := 100
	tool := bashTool(Options{WorkDir: t.TempDir()})
	result := tool.Run(context.Background(), bashInput{Command: "sleep 5", Timeout: &timeout})

	// Either the deadline error or the killed process's exit code; in both
	// cases the result is a failure.
	assert.False(t, result.Success)
}

func TestBashEmptyCommand(t *testing.T) {
	tool := bashTool(Options{})
	result := tool.Run(context.Background(), bashInput{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "command is required")
}

func TestTruncateOutput(t *testing.T) {
	long := make([]byte, maxOutputBytes+100)
	for i := range long {
		long[i] = 'a'
	}
	out := truncateOutput(string(long))
	assert.Contains(t, out, "[output truncated]")
	assert.Less(t, len(out), maxOutputBytes+100)
}
