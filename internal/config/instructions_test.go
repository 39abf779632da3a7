package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadInstructions_SingleDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "commit.md"), []byte("# Commit\nGit commit helper"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "review.md"), []byte("# Review\nCode review"), 0o644))

	instructions, err := LoadInstructions(dir)
	require.NoError(t, err)
	assert.Len(t, instructions, 2)

	names := make(map[string]bool)
	for _, s := range instructions {
		names[s.Name] = true
	}
	assert.True(t, names["commit"])
	assert.True(t, names["review"])
}

func TestLoadInstructions_SkipsNonMD(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "style.md"), []byte("valid"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))

	instructions, err := LoadInstructions(dir)
	require.NoError(t, err)
	assert.Len(t, instructions, 1)
	assert.Equal(t, "style", instructions[0].Name)
}

func TestLoadInstructions_MissingDirSkipped(t *testing.T) {
	instructions, err := LoadInstructions("/nonexistent/dir")
	require.NoError(t, err)
	assert.Empty(t, instructions)
}

func TestLoadInstructions_MultipleDirs(t *testing.T) {
	dir1 := t.TempDir()
	dir2 := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir1, "a.md"), []byte("guidance A"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir2, "b.md"), []byte("guidance B"), 0o644))

	instructions, err := LoadInstructions(dir1, dir2)
	require.NoError(t, err)
	assert.Len(t, instructions, 2)
}

func TestFormatInstructionsPrompt_Empty(t *testing.T) {
	result := FormatInstructionsPrompt(nil)
	assert.Equal(t, "", result)
}

func TestFormatInstructionsPrompt_WithInstructions(t *testing.T) {
	instructions := []Instruction{
		{Name: "commit", Content: "Git commit helper"},
		{Name: "review", Content: "Code review helper"},
	}

	result := FormatInstructionsPrompt(instructions)
	assert.Contains(t, result, "# Project Instructions")
	assert.Contains(t, result, "## commit")
	assert.Contains(t, result, "Git commit helper")
	assert.Contains(t, result, "## review")
	assert.Contains(t, result, "Code review helper")
}
