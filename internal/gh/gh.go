// Package gh wraps the GitHub CLI. All GitHub access goes through the gh
// binary; there is no direct API client, so authentication and pagination
// stay gh's problem.
package gh

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

// Slug returns the owner/name form used by gh flags.
func (r Repo) Slug() string { return r.Owner + "/" + r.Name }

// Issue is the subset of issue fields the agent works with.
type Issue struct {
	Number int
	Title  string
	Body   string
	State  string
	Labels []string
	URL    string
}

// PRStatus describes a pull request's review state.
type PRStatus struct {
	State          string
	Draft          bool
	ReviewDecision string
	URL            string
}

// Comment is one review comment on a pull request.
type Comment struct {
	Author    string
	Body      string
	CreatedAt string
}

var issueURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/issues/(\d+)`)

// ParseIssueURL extracts the repository and issue number from a GitHub
// issue URL of the form https://github.com/owner/repo/issues/123.
func ParseIssueURL(issueURL string) (Repo, int, error) {
	m := issueURLPattern.FindStringSubmatch(issueURL)
	if m == nil {
		return Repo{}, 0, fmt.Errorf("invalid GitHub issue URL: %s (expected https://github.com/owner/repo/issues/number)", issueURL)
	}
	number, err := strconv.Atoi(m[3])
	if err != nil {
		return Repo{}, 0, fmt.Errorf("invalid issue number in URL: %s", issueURL)
	}
	return Repo{Owner: m[1], Name: m[2]}, number, nil
}

// Client runs gh subcommands. The zero value is not usable; construct with
// NewClient.
type Client struct {
	bin string
}

// NewClient locates the gh binary. The returned client reports availability
// through Available; callers surface a setup hint when gh is missing rather
// than failing hard at construction.
func NewClient() *Client {
	bin, err := exec.LookPath("gh")
	if err != nil {
		return &Client{}
	}
	return &Client{bin: bin}
}

// NewClientWithBin builds a client around a specific gh binary path.
// Used by tests to substitute a stub executable.
func NewClientWithBin(bin string) *Client {
	return &Client{bin: bin}
}

// Available reports whether the gh binary was found.
func (c *Client) Available() bool { return c.bin != "" }

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if c.bin == "" {
		return "", fmt.Errorf("GitHub CLI (gh) is not installed; install it and run: gh auth login")
	}

	cmd := exec.CommandContext(ctx, c.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return "", fmt.Errorf("gh %s: %s", args[0], detail)
	}
	return stdout.String(), nil
}

// FetchIssue retrieves one issue.
func (c *Client) FetchIssue(ctx context.Context, repo Repo, number int) (Issue, error) {
	out, err := c.run(ctx, "api", fmt.Sprintf("repos/%s/issues/%d", repo.Slug(), number))
	if err != nil {
		return Issue{}, err
	}
	return issueFromJSON(gjson.Parse(out), repo), nil
}

// ListIssues returns up to limit issues in the given state (open, closed,
// all).
func (c *Client) ListIssues(ctx context.Context, repo Repo, state string, limit int) ([]Issue, error) {
	if state == "" {
		state = "open"
	}
	if limit <= 0 {
		limit = 10
	}

	out, err := c.run(ctx, "api",
		fmt.Sprintf("repos/%s/issues?state=%s&per_page=%d", repo.Slug(), state, limit))
	if err != nil {
		return nil, err
	}

	var issues []Issue
	gjson.Parse(out).ForEach(func(_, item gjson.Result) bool {
		// The issues endpoint also returns pull requests; skip them.
		if item.Get("pull_request").Exists() {
			return true
		}
		issues = append(issues, issueFromJSON(item, repo))
		return len(issues) < limit
	})
	return issues, nil
}

// CreatePR opens a pull request from head into base and returns its URL.
func (c *Client) CreatePR(ctx context.Context, repo Repo, title, body, head, base string) (string, error) {
	if base == "" {
		base = "main"
	}
	out, err := c.run(ctx, "pr", "create",
		"--repo", repo.Slug(),
		"--title", title,
		"--body", body,
		"--head", head,
		"--base", base)
	if err != nil {
		return "", err
	}
	// gh prints the PR URL as the last line of stdout.
	lines := strings.Fields(strings.TrimSpace(out))
	if len(lines) == 0 {
		return "", fmt.Errorf("gh pr create produced no output")
	}
	return lines[len(lines)-1], nil
}

// PRView fetches the review state of a pull request.
func (c *Client) PRView(ctx context.Context, repo Repo, number int) (PRStatus, error) {
	out, err := c.run(ctx, "pr", "view", strconv.Itoa(number),
		"--repo", repo.Slug(),
		"--json", "state,isDraft,reviewDecision,url")
	if err != nil {
		return PRStatus{}, err
	}
	parsed := gjson.Parse(out)
	return PRStatus{
		State:          parsed.Get("state").String(),
		Draft:          parsed.Get("isDraft").Bool(),
		ReviewDecision: parsed.Get("reviewDecision").String(),
		URL:            parsed.Get("url").String(),
	}, nil
}

// PRComments lists review comments on a pull request.
func (c *Client) PRComments(ctx context.Context, repo Repo, number int) ([]Comment, error) {
	out, err := c.run(ctx, "api",
		fmt.Sprintf("repos/%s/pulls/%d/comments", repo.Slug(), number))
	if err != nil {
		return nil, err
	}

	var comments []Comment
	gjson.Parse(out).ForEach(func(_, item gjson.Result) bool {
		comments = append(comments, Comment{
			Author:    item.Get("user.login").String(),
			Body:      item.Get("body").String(),
			CreatedAt: item.Get("created_at").String(),
		})
		return true
	})
	return comments, nil
}

func issueFromJSON(item gjson.Result, repo Repo) Issue {
	issue := Issue{
		Number: int(item.Get("number").Int()),
		Title:  item.Get("title").String(),
		Body:   item.Get("body").String(),
		State:  item.Get("state").String(),
		URL:    item.Get("html_url").String(),
	}
	item.Get("labels").ForEach(func(_, label gjson.Result) bool {
		issue.Labels = append(issue.Labels, label.Get("name").String())
		return true
	})
	if issue.URL == "" {
		issue.URL = fmt.Sprintf("https://github.com/%s/issues/%d", repo.Slug(), issue.Number)
	}
	return issue
}
