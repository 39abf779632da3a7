package tools

import (
	"os"

	forgehand "github.com/forgehand/forgehand"
	"github.com/forgehand/forgehand/checkpoint"
	"github.com/forgehand/forgehand/internal/gh"
	"github.com/forgehand/forgehand/memory"
)

// Options configures the built-in tool set.
type Options struct {
	// WorkDir is the repository the tools operate in. Defaults to the
	// process working directory.
	WorkDir string

	// Checkpoint, when set, records file originals before write_file and
	// edit_file modify them, enabling rollback.
	Checkpoint *checkpoint.Tracker

	// GH is the GitHub CLI client used by the github_* tools. When nil a
	// default client is constructed.
	GH *gh.Client

	// BaseBranch is the default PR target branch. Defaults to "main".
	BaseBranch string

	// Memory is the branch memory store used by the branch_memory tool.
	// When nil a store rooted at the work directory is constructed.
	Memory *memory.Store
}

func (o Options) workDir() string {
	if o.WorkDir != "" {
		return o.WorkDir
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

func (o Options) memoryStore() *memory.Store {
	if o.Memory != nil {
		return o.Memory
	}
	return memory.NewStore(o.workDir())
}

// RegisterAll registers every built-in tool on the registry.
func RegisterAll(reg *forgehand.ToolRegistry, opts Options) {
	RegisterFileTools(reg, opts)
	RegisterBash(reg, opts)
	RegisterGitTools(reg, opts)
	RegisterGitHubTools(reg, opts)
	RegisterMemoryTools(reg, opts)
}

// RegisterFileTools registers read_file, write_file, edit_file, glob, and
// grep.
func RegisterFileTools(reg *forgehand.ToolRegistry, opts Options) {
	forgehand.Register(reg, readFileTool(opts))
	forgehand.Register(reg, writeFileTool(opts))
	forgehand.Register(reg, editFileTool(opts))
	forgehand.Register(reg, globTool(opts))
	forgehand.Register(reg, grepTool(opts))
}

// RegisterBash registers the bash tool.
func RegisterBash(reg *forgehand.ToolRegistry, opts Options) {
	forgehand.Register(reg, bashTool(opts))
}

// RegisterGitTools registers the git_* tools.
func RegisterGitTools(reg *forgehand.ToolRegistry, opts Options) {
	forgehand.Register(reg, gitStatusTool(opts))
	forgehand.Register(reg, gitDiffTool(opts))
	forgehand.Register(reg, gitLogTool(opts))
	forgehand.Register(reg, gitAddTool(opts))
	forgehand.Register(reg, gitCommitTool(opts))
	forgehand.Register(reg, gitPushTool(opts))
	forgehand.Register(reg, gitFetchTool(opts))
	forgehand.Register(reg, gitBranchListTool(opts))
	forgehand.Register(reg, gitBranchCreateTool(opts))
	forgehand.Register(reg, gitBranchSwitchTool(opts))
	forgehand.Register(reg, gitMergeTool(opts))
	forgehand.Register(reg, gitRebaseTool(opts))
}

// RegisterGitHubTools registers the github_* tools.
func RegisterGitHubTools(reg *forgehand.ToolRegistry, opts Options) {
	client := opts.GH
	if client == nil {
		client = gh.NewClient()
	}
	forgehand.Register(reg, githubIssueViewTool(client))
	forgehand.Register(reg, githubIssueListTool(client))
	forgehand.Register(reg, githubPRCreateTool(client, opts))
	forgehand.Register(reg, githubPRViewTool(client))
	forgehand.Register(reg, githubPRCommentsTool(client))
}

// RegisterMemoryTools registers the branch_memory tool.
func RegisterMemoryTools(reg *forgehand.ToolRegistry, opts Options) {
	forgehand.Register(reg, branchMemoryTool(opts))
}
