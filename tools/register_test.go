package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forgehand "github.com/forgehand/forgehand"
)

func TestRegisterAll(t *testing.T) {
	reg := forgehand.NewToolRegistry()
	RegisterAll(reg, Options{WorkDir: t.TempDir()})

	names := reg.Names()
	expected := []string{
		"read_file", "write_file", "edit_file", "glob", "grep",
		"bash",
		"git_status", "git_diff", "git_log", "git_add", "git_commit",
		"git_push", "git_fetch", "git_branch_list", "git_branch_create",
		"git_branch_switch", "git_merge", "git_rebase",
		"github_issue_view", "github_issue_list", "github_pr_create",
		"github_pr_view", "github_pr_comments",
		"branch_memory",
	}
	assert.Equal(t, expected, names)
}

func TestRegisteredSchemasHaveParameters(t *testing.T) {
	reg := forgehand.NewToolRegistry()
	RegisterAll(reg, Options{WorkDir: t.TempDir()})

	for _, schema := range reg.Schemas() {
		require.NotEmpty(t, schema.Name)
		require.NotEmpty(t, schema.Description, schema.Name)
		assert.Equal(t, "object", schema.Parameters["type"], schema.Name)
	}
}

func TestReadFileSchemaRequiresPath(t *testing.T) {
	reg := forgehand.NewToolRegistry()
	RegisterFileTools(reg, Options{WorkDir: t.TempDir()})

	for _, schema := range reg.Schemas() {
		if schema.Name != "read_file" {
			continue
		}
		required, _ := schema.Parameters["required"].([]string)
		assert.Contains(t, required, "path")
		return
	}
	t.Fatal("read_file not registered")
}
