package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	forgehand "github.com/forgehand/forgehand"
)

// runGit executes one git subcommand in the work directory and returns
// combined output. Git is treated as a black box; output goes back to the
// model verbatim.
func runGit(ctx context.Context, opts Options, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = opts.workDir()

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(out.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", args[0], detail)
	}
	return out.String(), nil
}

type gitStatusInput struct{}

func gitStatusTool(opts Options) forgehand.Tool[gitStatusInput] {
	return forgehand.Tool[gitStatusInput]{
		Name:        "git_status",
		Description: "Show working tree status including current branch",
		Run: func(ctx context.Context, _ gitStatusInput) forgehand.ToolResult {
			out, err := runGit(ctx, opts, "status", "--branch", "--short")
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			if strings.TrimSpace(out) == "" {
				return forgehand.Ok("Working tree clean.")
			}
			return forgehand.Ok(out)
		},
	}
}

type gitDiffInput struct {
	Path   string `json:"path,omitempty" jsonschema:"description=Limit the diff to a path"`
	Staged bool   `json:"staged,omitempty" jsonschema:"description=Show staged changes instead of unstaged"`
}

func gitDiffTool(opts Options) forgehand.Tool[gitDiffInput] {
	return forgehand.Tool[gitDiffInput]{
		Name:        "git_diff",
		Description: "Show changes in the working tree or index",
		Run: func(ctx context.Context, input gitDiffInput) forgehand.ToolResult {
			args := []string{"diff"}
			if input.Staged {
				args = append(args, "--staged")
			}
			if input.Path != "" {
				args = append(args, "--", input.Path)
			}
			out, err := runGit(ctx, opts, args...)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			if strings.TrimSpace(out) == "" {
				return forgehand.Ok("No changes.")
			}
			return forgehand.Ok(truncateOutput(out))
		},
	}
}

type gitLogInput struct {
	Limit *int   `json:"limit,omitempty" jsonschema:"description=Number of commits to show (default 10)"`
	Path  string `json:"path,omitempty" jsonschema:"description=Limit the log to a path"`
}

func gitLogTool(opts Options) forgehand.Tool[gitLogInput] {
	return forgehand.Tool[gitLogInput]{
		Name:        "git_log",
		Description: "Show recent commit history",
		Run: func(ctx context.Context, input gitLogInput) forgehand.ToolResult {
			limit := 10
			if input.Limit != nil && *input.Limit > 0 {
				limit = *input.Limit
			}
			args := []string{"log", fmt.Sprintf("-%d", limit), "--oneline", "--decorate"}
			if input.Path != "" {
				args = append(args, "--", input.Path)
			}
			out, err := runGit(ctx, opts, args...)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(out)
		},
	}
}

type gitAddInput struct {
	Paths []string `json:"paths" jsonschema:"required,description=Paths to stage"`
}

func gitAddTool(opts Options) forgehand.Tool[gitAddInput] {
	return forgehand.Tool[gitAddInput]{
		Name:        "git_add",
		Description: "Stage files for commit",
		Run: func(ctx context.Context, input gitAddInput) forgehand.ToolResult {
			if len(input.Paths) == 0 {
				return forgehand.Errorf("paths is required")
			}
			args := append([]string{"add", "--"}, input.Paths...)
			if _, err := runGit(ctx, opts, args...); err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(fmt.Sprintf("Staged %d path(s).", len(input.Paths)))
		},
	}
}

type gitCommitInput struct {
	Message string `json:"message" jsonschema:"required,description=Commit message"`
	All     bool   `json:"all,omitempty" jsonschema:"description=Stage all modified files before committing"`
}

func gitCommitTool(opts Options) forgehand.Tool[gitCommitInput] {
	return forgehand.Tool[gitCommitInput]{
		Name:        "git_commit",
		Description: "Create a commit from staged changes",
		Run: func(ctx context.Context, input gitCommitInput) forgehand.ToolResult {
			if strings.TrimSpace(input.Message) == "" {
				return forgehand.Errorf("message is required")
			}
			args := []string{"commit", "-m", input.Message}
			if input.All {
				args = []string{"commit", "-a", "-m", input.Message}
			}
			out, err := runGit(ctx, opts, args...)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(out)
		},
	}
}

type gitPushInput struct {
	Branch      string `json:"branch,omitempty" jsonschema:"description=Branch to push (default current)"`
	SetUpstream bool   `json:"set_upstream,omitempty" jsonschema:"description=Set upstream to origin for a new branch"`
}

func gitPushTool(opts Options) forgehand.Tool[gitPushInput] {
	return forgehand.Tool[gitPushInput]{
		Name:        "git_push",
		Description: "Push the current or named branch to origin",
		Run: func(ctx context.Context, input gitPushInput) forgehand.ToolResult {
			args := []string{"push"}
			if input.SetUpstream {
				branch := input.Branch
				if branch == "" {
					current, err := CurrentBranch(ctx, opts.workDir())
					if err != nil {
						return forgehand.Errorf("%s", err.Error())
					}
					branch = current
				}
				args = append(args, "--set-upstream", "origin", branch)
			} else if input.Branch != "" {
				args = append(args, "origin", input.Branch)
			}
			out, err := runGit(ctx, opts, args...)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			if strings.TrimSpace(out) == "" {
				out = "Pushed."
			}
			return forgehand.Ok(out)
		},
	}
}

type gitFetchInput struct {
	Remote string `json:"remote,omitempty" jsonschema:"description=Remote to fetch (default origin)"`
}

func gitFetchTool(opts Options) forgehand.Tool[gitFetchInput] {
	return forgehand.Tool[gitFetchInput]{
		Name:        "git_fetch",
		Description: "Fetch refs from a remote",
		Run: func(ctx context.Context, input gitFetchInput) forgehand.ToolResult {
			remote := input.Remote
			if remote == "" {
				remote = "origin"
			}
			if _, err := runGit(ctx, opts, "fetch", remote); err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(fmt.Sprintf("Fetched from %s.", remote))
		},
	}
}

type gitBranchListInput struct{}

func gitBranchListTool(opts Options) forgehand.Tool[gitBranchListInput] {
	return forgehand.Tool[gitBranchListInput]{
		Name:        "git_branch_list",
		Description: "List local branches, marking the current one",
		Run: func(ctx context.Context, _ gitBranchListInput) forgehand.ToolResult {
			out, err := runGit(ctx, opts, "branch")
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(out)
		},
	}
}

type gitBranchCreateInput struct {
	Name string `json:"name" jsonschema:"required,description=Name of the branch to create and switch to"`
}

func gitBranchCreateTool(opts Options) forgehand.Tool[gitBranchCreateInput] {
	return forgehand.Tool[gitBranchCreateInput]{
		Name:        "git_branch_create",
		Description: "Create a new branch and switch to it",
		Run: func(ctx context.Context, input gitBranchCreateInput) forgehand.ToolResult {
			if input.Name == "" {
				return forgehand.Errorf("name is required")
			}
			if _, err := runGit(ctx, opts, "checkout", "-b", input.Name); err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(fmt.Sprintf("Switched to new branch %s.", input.Name))
		},
	}
}

type gitBranchSwitchInput struct {
	Name string `json:"name" jsonschema:"required,description=Name of the branch to switch to"`
}

func gitBranchSwitchTool(opts Options) forgehand.Tool[gitBranchSwitchInput] {
	return forgehand.Tool[gitBranchSwitchInput]{
		Name:        "git_branch_switch",
		Description: "Switch to an existing branch",
		Run: func(ctx context.Context, input gitBranchSwitchInput) forgehand.ToolResult {
			if input.Name == "" {
				return forgehand.Errorf("name is required")
			}
			if _, err := runGit(ctx, opts, "checkout", input.Name); err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(fmt.Sprintf("Switched to branch %s.", input.Name))
		},
	}
}

type gitMergeInput struct {
	Branch string `json:"branch" jsonschema:"required,description=Branch to merge into the current branch"`
}

func gitMergeTool(opts Options) forgehand.Tool[gitMergeInput] {
	return forgehand.Tool[gitMergeInput]{
		Name:        "git_merge",
		Description: "Merge a branch into the current branch",
		Run: func(ctx context.Context, input gitMergeInput) forgehand.ToolResult {
			if input.Branch == "" {
				return forgehand.Errorf("branch is required")
			}
			current, err := CurrentBranch(ctx, opts.workDir())
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			if input.Branch == current {
				return forgehand.Errorf("Cannot merge branch into itself")
			}
			if !branchExists(ctx, opts, input.Branch) {
				return forgehand.Errorf("Branch '%s' does not exist", input.Branch)
			}
			if _, err := runGit(ctx, opts, "merge", input.Branch); err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "conflict") {
					return forgehand.Errorf("Merge conflict detected: %s\nResolve conflicts manually, then commit the merge", err.Error())
				}
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(fmt.Sprintf("Successfully merged '%s' into '%s'", input.Branch, current))
		},
	}
}

type gitRebaseInput struct {
	Branch string `json:"branch" jsonschema:"required,description=Branch or commit to rebase the current branch onto"`
}

func gitRebaseTool(opts Options) forgehand.Tool[gitRebaseInput] {
	return forgehand.Tool[gitRebaseInput]{
		Name:        "git_rebase",
		Description: "Rebase the current branch onto another branch. Rewrites history, use with caution.",
		Run: func(ctx context.Context, input gitRebaseInput) forgehand.ToolResult {
			if input.Branch == "" {
				return forgehand.Errorf("branch is required")
			}
			current, err := CurrentBranch(ctx, opts.workDir())
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			if current == "main" || current == "master" {
				return forgehand.Errorf("Cannot rebase protected branch '%s'", current)
			}
			if !branchExists(ctx, opts, input.Branch) {
				return forgehand.Errorf("Branch or commit '%s' does not exist", input.Branch)
			}
			if _, err := runGit(ctx, opts, "rebase", input.Branch); err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "conflict") {
					return forgehand.Errorf("Rebase conflict detected: %s\nResolve conflicts manually, then run 'git rebase --continue'", err.Error())
				}
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(fmt.Sprintf("Successfully rebased '%s' onto '%s'", current, input.Branch))
		},
	}
}

// branchExists reports whether a branch or commit resolves in the repository.
func branchExists(ctx context.Context, opts Options, ref string) bool {
	_, err := runGit(ctx, opts, "rev-parse", "--verify", "--quiet", ref)
	return err == nil
}

// CurrentBranch returns the checked-out branch name for a repository.
func CurrentBranch(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository or git unavailable: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
