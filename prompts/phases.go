package prompts

import (
	"fmt"
	"sort"
	"strings"
)

// Phase prompts steer the model through one contribution phase at a time.
// Each returns the user-facing instruction injected when the phase begins.

// RepositoryUnderstanding asks the model to build or review repository
// knowledge before touching the issue.
func RepositoryUnderstanding(startHereExists bool) string {
	if startHereExists {
		return "Repository has been analyzed. START_HERE.md exists. " +
			"Review the repository structure and proceed to issue intake."
	}
	return "Analyze the repository structure. Use the glob, grep, and read_file tools to understand " +
		"the codebase architecture, entry points, test strategy, and CI setup. " +
		"Record what you learn before moving on."
}

// IssueIntake asks the model to fetch and restate the issue.
func IssueIntake(issueURL string) string {
	if issueURL == "" {
		return "Issue URL is required. Please provide a GitHub issue URL."
	}
	return fmt.Sprintf("Fetch and analyze GitHub issue: %s\n"+
		"Use the github_issue_view tool to get issue details. "+
		"Summarize what is being asked and what is explicitly out of scope.", issueURL)
}

// Planning asks for a fix plan with explicit no-code rules.
func Planning(issueTitle, issueBody string, keyFolders, entryPoints []string) string {
	folders := "None identified"
	if len(keyFolders) > 0 {
		sorted := append([]string(nil), keyFolders...)
		sort.Strings(sorted)
		folders = strings.Join(sorted, ", ")
	}
	entries := "None identified"
	if len(entryPoints) > 0 {
		entries = strings.Join(entryPoints, ", ")
	}

	return fmt.Sprintf(`Plan the fix for issue: %s

Issue Description:
%s

Repository Context:
- Key folders: %s
- Entry points: %s

Planning Requirements:
1. Use the grep and read_file tools to locate relevant code areas
2. Identify which files need to be modified
3. Identify which test files need updates
4. Form a step-by-step fix strategy
5. Explain why each area matters
6. Identify potential edge cases

CRITICAL: Do NOT write any code yet. Only plan. If the fix scope is unclear, ask ONE precise clarification question.`,
		issueTitle, clip(issueBody, 500), folders, entries)
}

// Implementation carries the scope-discipline rules into the coding phase.
func Implementation(issueTitle, branch string) string {
	if branch == "" {
		branch = "Not created yet"
	}
	return fmt.Sprintf(`Implement the fix for issue: %s

Current branch: %s

Implementation Rules (STRICT):
- Stay strictly within issue scope
- Do NOT add irrelevant comments
- Do NOT reformat unrelated files
- Do NOT do drive-by refactors
- Fix core logic, not symptoms
- Use existing patterns in the repo
- Keep diffs minimal and intentional

Steps:
1. Ensure you are on the correct branch (use git_branch_create or git_branch_switch if needed)
2. Make the minimal code changes required
3. Follow existing code patterns
4. Add necessary tests
5. Update documentation if needed

After making changes, proceed to verification.`, issueTitle, branch)
}

// Verification asks the model to run the repository's tests.
func Verification(testStrategy map[string]string) string {
	var b strings.Builder
	b.WriteString("Verify the fix with tests.\n\n")

	if len(testStrategy) > 0 {
		b.WriteString("Test commands identified:\n")
		kinds := make([]string, 0, len(testStrategy))
		for kind := range testStrategy {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(&b, "- %s: %s\n", kind, testStrategy[kind])
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No test strategy identified. Check START_HERE.md or CONTRIBUTING.md for test commands.\n\n")
	}

	b.WriteString("Verification Steps:\n" +
		"1. Run the test suite with the bash tool\n" +
		"2. If tests fail, fix regressions immediately\n" +
		"3. Re-run tests until all pass\n" +
		"4. Document any known limitations\n\n" +
		"After verification passes, proceed to validation.")
	return b.String()
}

// Validation asks the model to check the diff against the issue scope.
func Validation(issueTitle, issueBody string) string {
	return fmt.Sprintf(`Validate the fix against the original issue requirements.

Original Issue:
Title: %s
Description: %s

Validation Steps:
1. Use git_status to see all changes
2. Use git_diff to review the diff
3. Re-read the original issue
4. Explicitly verify:
   - Does this fully resolve what was asked?
   - Did I avoid unrelated changes?
   - Are there any edge cases I missed?

If the fix does not match the issue scope, adjust before committing.
After validation passes, proceed to commit and PR.`, issueTitle, clip(issueBody, 300))
}

// CommitAndPR walks through committing, pushing, and opening the PR.
func CommitAndPR(issueNumber int, issueTitle string) string {
	return fmt.Sprintf(`Create commit and open pull request.

Issue: #%d - %s

Commit Steps:
1. Use git_status to see all changes
2. Stage the changed files with git_add
3. Create a commit with a conventional message: type(scope): brief description
   Example: fix(auth): handle null session on refresh
4. Push the branch with git_push (set_upstream for a new branch)
5. If the push is rejected because the base branch moved, run git_fetch and
   use git_rebase to rebase onto it, resolve any conflicts, then push again

PR Steps:
1. Use github_pr_create to open the pull request
2. Reference the issue in the PR body: Fixes #%d
3. Include:
   - What was fixed
   - How it was verified
   - Any known limitations

After the PR is created, the workflow is complete.`, issueNumber, issueTitle, issueNumber)
}

func clip(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
