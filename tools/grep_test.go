package tools

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireRg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("rg"); err != nil {
		t.Skip("ripgrep (rg) not installed, skipping grep tests")
	}
}

func TestGrepFilesWithMatches(t *testing.T) {
	requireRg(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("goodbye world\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), []byte("nothing here\n"), 0o644))

	tool := grepTool(Options{WorkDir: dir})
	result := tool.Run(context.Background(), grepInput{Pattern: "world"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "a.txt")
	assert.Contains(t, result.Output, "b.txt")
	assert.NotContains(t, result.Output, "c.txt")
}

func TestGrepContentMode(t *testing.T) {
	requireRg(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.txt"), []byte("line1\nhello world\nline3\n"), 0o644))

	tool := grepTool(Options{WorkDir: dir})
	result := tool.Run(context.Background(), grepInput{Pattern: "hello", OutputMode: "content"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "2:hello world")
	assert.NotContains(t, result.Output, "line1")
}

func TestGrepCountMode(t *testing.T) {
	requireRg(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.txt"), []byte("match\nmatch\nother\n"), 0o644))

	tool := grepTool(Options{WorkDir: dir})
	result := tool.Run(context.Background(), grepInput{Pattern: "match", OutputMode: "count"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "2")
}

func TestGrepNoMatches(t *testing.T) {
	requireRg(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.txt"), []byte("nothing\n"), 0o644))

	tool := grepTool(Options{WorkDir: dir})
	result := tool.Run(context.Background(), grepInput{Pattern: "absent"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, "No matches found.", result.Output)
}

func TestGrepCaseInsensitive(t *testing.T) {
	requireRg(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.txt"), []byte("Hello World\n"), 0o644))

	tool := grepTool(Options{WorkDir: dir})
	result := tool.Run(context.Background(), grepInput{
		Pattern:         "hello",
		OutputMode:      "content",
		CaseInsensitive: true,
	})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "Hello World")
}

func TestGrepGlobFilter(t *testing.T) {
	requireRg(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "code.go"), []byte("func main()\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("func notes\n"), 0o644))

	tool := grepTool(Options{WorkDir: dir})
	result := tool.Run(context.Background(), grepInput{Pattern: "func", Glob: "*.go"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Output, "code.go")
	assert.NotContains(t, result.Output, "notes.txt")
}

func TestGrepRequiresPattern(t *testing.T) {
	tool := grepTool(Options{WorkDir: t.TempDir()})
	result := tool.Run(context.Background(), grepInput{})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "pattern is required")
}

func TestBuildRgArgs(t *testing.T) {
	two := 2
	args := buildRgArgs(grepInput{
		Pattern:         "TODO",
		Path:            "src",
		OutputMode:      "content",
		Glob:            "*.go",
		Type:            "go",
		Context:         &two,
		CaseInsensitive: true,
	})
	assert.Equal(t, []string{"-n", "-i", "--glob", "*.go", "--type", "go", "-C", "2", "TODO", "src"}, args)

	args = buildRgArgs(grepInput{Pattern: "TODO"})
	assert.Equal(t, []string{"-l", "TODO"}, args)
}
