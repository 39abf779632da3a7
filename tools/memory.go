package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	forgehand "github.com/forgehand/forgehand"
	"github.com/forgehand/forgehand/memory"
)

type branchMemoryInput struct {
	Action  string `json:"action" jsonschema:"required,description=Action: 'switch','list','summary','get_context' or 'cleanup'"`
	Branch  string `json:"branch,omitempty" jsonschema:"description=Branch name (required for 'switch' and 'summary')"`
	DaysOld *int   `json:"days_old,omitempty" jsonschema:"description=Age threshold in days for 'cleanup' (default 30)"`
}

// branchMemoryTool exposes saved branch context to the model. It only reads
// and prunes the memory store; checking out a branch stays with
// git_branch_switch.
func branchMemoryTool(opts Options) forgehand.Tool[branchMemoryInput] {
	return forgehand.Tool[branchMemoryInput]{
		Name:        "branch_memory",
		Description: "Manage branch-level memory: load context when switching branches, list branches, get summaries, cleanup old memories",
		Run: func(ctx context.Context, input branchMemoryInput) forgehand.ToolResult {
			store := opts.memoryStore()
			switch input.Action {
			case "switch":
				if input.Branch == "" {
					return forgehand.Errorf("branch is required for 'switch' action")
				}
				return switchBranchMemory(store, input.Branch)
			case "list":
				return listBranchMemories(store)
			case "summary":
				if input.Branch == "" {
					return forgehand.Errorf("branch is required for 'summary' action")
				}
				return branchMemorySummary(store, input.Branch)
			case "get_context":
				return branchMemoryContext(ctx, store, input.Branch)
			case "cleanup":
				days := 30
				if input.DaysOld != nil && *input.DaysOld > 0 {
					days = *input.DaysOld
				}
				return cleanupBranchMemories(store, days)
			default:
				return forgehand.Errorf("Unknown action: %s. Valid actions: switch, list, summary, get_context, cleanup", input.Action)
			}
		},
	}
}

func switchBranchMemory(store *memory.Store, branch string) forgehand.ToolResult {
	record, err := store.Load(branch)
	if err != nil {
		return forgehand.Errorf("%s", err.Error())
	}
	if record == nil {
		return forgehand.Ok(fmt.Sprintf("Switched to branch: %s\nNo previous context found. Starting fresh.", branch))
	}
	return forgehand.Ok(fmt.Sprintf("Switched to branch: %s\nContext: %s\nPhase: %s\nIssue: #%d",
		branch, record.Summary(200), record.Phase, record.IssueNumber))
}

func listBranchMemories(store *memory.Store) forgehand.ToolResult {
	records, err := store.List()
	if err != nil {
		return forgehand.Errorf("%s", err.Error())
	}
	if len(records) == 0 {
		return forgehand.Ok("No branch memories found.")
	}

	lines := []string{"Branch Memories:"}
	for _, rec := range records {
		line := "  " + rec.BranchName
		if rec.IssueNumber != 0 {
			line += fmt.Sprintf(" (Issue #%d)", rec.IssueNumber)
		}
		line += fmt.Sprintf(" - %s - %s", rec.Phase, rec.Status)
		lines = append(lines, line)
	}
	return forgehand.Ok(strings.Join(lines, "\n"))
}

func branchMemorySummary(store *memory.Store, branch string) forgehand.ToolResult {
	record, err := store.Load(branch)
	if err != nil {
		return forgehand.Errorf("%s", err.Error())
	}
	if record == nil {
		return forgehand.Errorf("No memory found for branch: %s", branch)
	}

	lines := []string{
		"Branch Summary: " + record.BranchName,
		fmt.Sprintf("  Issue: #%d", record.IssueNumber),
		"  Phase: " + record.Phase,
		"  Status: " + record.Status,
		fmt.Sprintf("  Files Modified: %d", len(record.FilesModified)),
		fmt.Sprintf("  Completed Steps: %d", len(record.CompletedSteps)),
	}
	if record.ContextSummary != "" {
		lines = append(lines, "  Context: "+record.ContextSummary)
	}
	if record.PRURL != "" {
		lines = append(lines, "  PR: "+record.PRURL)
	}
	return forgehand.Ok(strings.Join(lines, "\n"))
}

func branchMemoryContext(ctx context.Context, store *memory.Store, branch string) forgehand.ToolResult {
	if branch == "" {
		current, err := store.CurrentBranch(ctx)
		if err != nil {
			return forgehand.Errorf("Not in a git repository")
		}
		branch = current
	}
	record, err := store.Load(branch)
	if err != nil {
		return forgehand.Errorf("%s", err.Error())
	}
	if record == nil {
		return forgehand.Ok("No context found for branch: " + branch)
	}
	return forgehand.Ok(fmt.Sprintf("Context for %s:\n%s", branch, record.Summary(500)))
}

func cleanupBranchMemories(store *memory.Store, days int) forgehand.ToolResult {
	records, err := store.List()
	if err != nil {
		return forgehand.Errorf("%s", err.Error())
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed := 0
	for _, rec := range records {
		stale := rec.UpdatedAt.Before(cutoff)
		merged := rec.Status == "merged"
		if !stale && !merged {
			continue
		}
		if err := store.Delete(rec.BranchName); err != nil {
			continue
		}
		removed++
	}
	return forgehand.Ok(fmt.Sprintf("Cleanup complete. Removed %d branch memories (merged or older than %d days).", removed, days))
}
