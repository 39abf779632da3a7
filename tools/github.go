package tools

import (
	"context"
	"fmt"
	"strings"

	forgehand "github.com/forgehand/forgehand"
	"github.com/forgehand/forgehand/internal/gh"
)

type githubIssueViewInput struct {
	URL string `json:"url" jsonschema:"required,description=GitHub issue URL (https://github.com/owner/repo/issues/number)"`
}

func githubIssueViewTool(client *gh.Client) forgehand.Tool[githubIssueViewInput] {
	return forgehand.Tool[githubIssueViewInput]{
		Name:        "github_issue_view",
		Description: "Fetch a GitHub issue's title, body, state, and labels",
		Run: func(ctx context.Context, input githubIssueViewInput) forgehand.ToolResult {
			repo, number, err := gh.ParseIssueURL(input.URL)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			issue, err := client.FetchIssue(ctx, repo, number)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(formatIssue(issue))
		},
	}
}

type githubIssueListInput struct {
	Repo  string `json:"repo" jsonschema:"required,description=Repository in owner/name form"`
	State string `json:"state,omitempty" jsonschema:"description=Issue state: open closed or all (default open)"`
	Limit *int   `json:"limit,omitempty" jsonschema:"description=Maximum issues to return (default 10)"`
}

func githubIssueListTool(client *gh.Client) forgehand.Tool[githubIssueListInput] {
	return forgehand.Tool[githubIssueListInput]{
		Name:        "github_issue_list",
		Description: "List issues in a GitHub repository",
		Run: func(ctx context.Context, input githubIssueListInput) forgehand.ToolResult {
			repo, err := splitRepo(input.Repo)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			limit := 10
			if input.Limit != nil && *input.Limit > 0 {
				limit = *input.Limit
			}
			issues, err := client.ListIssues(ctx, repo, input.State, limit)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			if len(issues) == 0 {
				return forgehand.Ok("No issues found.")
			}

			var b strings.Builder
			for _, issue := range issues {
				fmt.Fprintf(&b, "#%d [%s] %s", issue.Number, issue.State, issue.Title)
				if len(issue.Labels) > 0 {
					fmt.Fprintf(&b, " (%s)", strings.Join(issue.Labels, ", "))
				}
				b.WriteByte('\n')
			}
			return forgehand.Ok(b.String())
		},
	}
}

type githubPRCreateInput struct {
	Repo  string `json:"repo" jsonschema:"required,description=Repository in owner/name form"`
	Title string `json:"title" jsonschema:"required,description=Pull request title"`
	Body  string `json:"body" jsonschema:"required,description=Pull request body"`
	Head  string `json:"head" jsonschema:"required,description=Source branch"`
	Base  string `json:"base,omitempty" jsonschema:"description=Target branch (default main)"`
}

func githubPRCreateTool(client *gh.Client, opts Options) forgehand.Tool[githubPRCreateInput] {
	return forgehand.Tool[githubPRCreateInput]{
		Name:        "github_pr_create",
		Description: "Open a pull request",
		Run: func(ctx context.Context, input githubPRCreateInput) forgehand.ToolResult {
			repo, err := splitRepo(input.Repo)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			base := input.Base
			if base == "" {
				base = opts.BaseBranch
			}
			url, err := client.CreatePR(ctx, repo, input.Title, input.Body, input.Head, base)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			return forgehand.Ok(fmt.Sprintf("Created pull request: %s", url))
		},
	}
}

type githubPRViewInput struct {
	Repo   string `json:"repo" jsonschema:"required,description=Repository in owner/name form"`
	Number int    `json:"number" jsonschema:"required,description=Pull request number"`
}

func githubPRViewTool(client *gh.Client) forgehand.Tool[githubPRViewInput] {
	return forgehand.Tool[githubPRViewInput]{
		Name:        "github_pr_view",
		Description: "Show a pull request's state and review decision",
		Run: func(ctx context.Context, input githubPRViewInput) forgehand.ToolResult {
			repo, err := splitRepo(input.Repo)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			status, err := client.PRView(ctx, repo, input.Number)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}

			var b strings.Builder
			fmt.Fprintf(&b, "State: %s\n", status.State)
			if status.Draft {
				b.WriteString("Draft: yes\n")
			}
			if status.ReviewDecision != "" {
				fmt.Fprintf(&b, "Review decision: %s\n", status.ReviewDecision)
			}
			if status.URL != "" {
				fmt.Fprintf(&b, "URL: %s\n", status.URL)
			}
			return forgehand.Ok(b.String())
		},
	}
}

type githubPRCommentsInput struct {
	Repo   string `json:"repo" jsonschema:"required,description=Repository in owner/name form"`
	Number int    `json:"number" jsonschema:"required,description=Pull request number"`
}

func githubPRCommentsTool(client *gh.Client) forgehand.Tool[githubPRCommentsInput] {
	return forgehand.Tool[githubPRCommentsInput]{
		Name:        "github_pr_comments",
		Description: "List review comments on a pull request",
		Run: func(ctx context.Context, input githubPRCommentsInput) forgehand.ToolResult {
			repo, err := splitRepo(input.Repo)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			comments, err := client.PRComments(ctx, repo, input.Number)
			if err != nil {
				return forgehand.Errorf("%s", err.Error())
			}
			if len(comments) == 0 {
				return forgehand.Ok("No review comments.")
			}

			var b strings.Builder
			for _, comment := range comments {
				fmt.Fprintf(&b, "%s (%s):\n%s\n\n", comment.Author, comment.CreatedAt, comment.Body)
			}
			return forgehand.Ok(b.String())
		},
	}
}

func formatIssue(issue gh.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Issue #%d: %s\n", issue.Number, issue.Title)
	fmt.Fprintf(&b, "State: %s\n", issue.State)
	if len(issue.Labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(issue.Labels, ", "))
	}
	fmt.Fprintf(&b, "URL: %s\n\n%s\n", issue.URL, issue.Body)
	return b.String()
}

func splitRepo(slug string) (gh.Repo, error) {
	parts := strings.Split(slug, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return gh.Repo{}, fmt.Errorf("invalid repository %q (expected owner/name)", slug)
	}
	return gh.Repo{Owner: parts[0], Name: parts[1]}, nil
}
