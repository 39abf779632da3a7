package main

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"

	forgehand "github.com/forgehand/forgehand"
	"github.com/forgehand/forgehand/internal/budget"
)

// renderer writes agent stream events to the terminal. Response text is
// streamed as it arrives; tool activity is shown as single-line markers.
type renderer struct {
	out io.Writer
	err io.Writer

	streaming bool
	prURL     string
	errors    []string
}

func newRenderer(out, errOut io.Writer) *renderer {
	return &renderer{out: out, err: errOut}
}

// consume drains the stream, rendering each event. It returns an error only
// when the run ended with an agent error and produced no final response.
func (r *renderer) consume(stream *forgehand.AgentStream) error {
	var finalResponse string
	r.errors = r.errors[:0]

	for stream.Next() {
		switch event := stream.Current().(type) {
		case *forgehand.TextDeltaEvent:
			fmt.Fprint(r.out, event.Delta)
			r.streaming = true
		case *forgehand.TextCompleteEvent:
			if r.streaming {
				fmt.Fprintln(r.out)
				r.streaming = false
			}
		case *forgehand.ToolCallStartEvent:
			r.breakLine()
			fmt.Fprintf(r.out, "* %s%s\n", event.Name, summarizeArgs(event.Args))
		case *forgehand.ToolCallCompleteEvent:
			if event.IsError {
				fmt.Fprintf(r.err, "  %s failed: %s\n", event.Name, firstLine(event.Output))
			} else if event.Name == "github_pr_create" {
				r.prURL = extractURL(event.Output)
			}
		case *forgehand.AgentErrorEvent:
			r.breakLine()
			fmt.Fprintf(r.err, "Agent error: %s\n", event.Message)
			r.errors = append(r.errors, event.Message)
		case *forgehand.AgentEndEvent:
			finalResponse = event.FinalResponse
		}
	}

	if finalResponse == "" && len(r.errors) > 0 {
		return fmt.Errorf("agent stopped: %s", r.errors[len(r.errors)-1])
	}
	return nil
}

// createdPRURL returns the URL of a pull request opened during the last
// consumed run, or empty.
func (r *renderer) createdPRURL() string {
	return r.prURL
}

func (r *renderer) breakLine() {
	if r.streaming {
		fmt.Fprintln(r.out)
		r.streaming = false
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

var urlPattern = regexp.MustCompile(`https://\S+`)

func extractURL(s string) string {
	return urlPattern.FindString(s)
}

// printUsage prints cumulative token usage and, when the model's pricing is
// known, the estimated cost of the session.
func printUsage(client *forgehand.Client) {
	usage := client.Session().Usage()
	if usage.TotalTokens == 0 {
		return
	}
	fmt.Printf("\nTokens: %d in / %d out", usage.PromptTokens, usage.CompletionTokens)
	if pricing, ok := budget.DefaultPricing[client.Agent().Model()]; ok {
		cost := pricing.CostForInput(usage.PromptTokens).Add(pricing.CostForOutput(usage.CompletionTokens))
		fmt.Printf(" (est. $%s)", cost.StringFixed(4))
	}
	fmt.Println()
}

var remoteSlugPattern = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/\s]+?)(?:\.git)?$`)

// parseRemoteSlug extracts owner/name from a GitHub remote URL in either
// SSH or HTTPS form.
func parseRemoteSlug(remoteURL string) (string, bool) {
	m := remoteSlugPattern.FindStringSubmatch(strings.TrimSpace(remoteURL))
	if m == nil {
		return "", false
	}
	return m[1] + "/" + m[2], true
}

// originRepoSlug resolves owner/name from the origin remote of the
// repository at dir.
func originRepoSlug(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "remote", "get-url", "origin")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git remote get-url origin: %w", err)
	}
	slug, ok := parseRemoteSlug(string(out))
	if !ok {
		return "", fmt.Errorf("origin remote %q is not a GitHub repository", strings.TrimSpace(string(out)))
	}
	return slug, nil
}
