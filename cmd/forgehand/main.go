package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	forgehand "github.com/forgehand/forgehand"
	"github.com/forgehand/forgehand/checkpoint"
	"github.com/forgehand/forgehand/internal/gh"
	"github.com/forgehand/forgehand/memory"
	"github.com/forgehand/forgehand/tools"
	"github.com/forgehand/forgehand/workflow"
)

var rootCmd = &cobra.Command{
	Use:   "forgehand",
	Short: "forgehand - autonomous agent for GitHub issue work",
}

var workCmd = &cobra.Command{
	Use:   "work <issue-url>",
	Short: "Work on a GitHub issue from intake to pull request",
	Args:  cobra.ExactArgs(1),
	RunE:  runWork,
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume work on the current branch from saved state",
	RunE:  runResume,
}

var switchCmd = &cobra.Command{
	Use:   "switch <branch-or-issue>",
	Short: "Switch to another branch or issue and resume its work",
	Args:  cobra.ExactArgs(1),
	RunE:  runSwitch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show saved workflow state for this repository",
	RunE:  runStatus,
}

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List open issues for the repository",
	RunE:  runIssues,
}

var (
	repoDirFlag       string
	verboseFlag       bool
	modelFlag         string
	maxTurnsFlag      int
	budgetFlag        float64
	yesFlag           bool
	baseBranchFlag    string
	branchPatternFlag string
	repoFlag          string
	issueStateFlag    string
	issueLimitFlag    int
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&repoDirFlag, "repo-dir", "C", ".", "Repository working directory")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	for _, cmd := range []*cobra.Command{workCmd, resumeCmd, switchCmd} {
		cmd.Flags().StringVar(&modelFlag, "model", "", "Chat model to use")
		cmd.Flags().IntVar(&maxTurnsFlag, "max-turns", 0, "Maximum turns per phase")
		cmd.Flags().Float64Var(&budgetFlag, "budget", 0, "Maximum spend in USD (0 = unlimited)")
		cmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Approve all tool confirmations")
		cmd.Flags().StringVar(&baseBranchFlag, "base-branch", "main", "Base branch for pull requests")
		cmd.Flags().StringVar(&branchPatternFlag, "branch-pattern", "", "Feature branch name pattern, e.g. fix/issue-%d")
	}

	issuesCmd.Flags().StringVar(&repoFlag, "repo", "", "Repository as owner/name (default: origin remote)")
	issuesCmd.Flags().StringVar(&issueStateFlag, "state", "open", "Issue state filter")
	issuesCmd.Flags().IntVar(&issueLimitFlag, "limit", 30, "Maximum issues to list")

	rootCmd.AddCommand(workCmd, resumeCmd, switchCmd, statusCmd, issuesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verboseFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func runWork(cmd *cobra.Command, args []string) error {
	setupLogging()
	ctx := signalContext()

	github := gh.NewClient()
	if !github.Available() {
		return fmt.Errorf("GitHub CLI (gh) is not installed; install it and run: gh auth login")
	}

	wf := newWorkflow(github)
	state, err := wf.Start(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Working on issue #%d: %s\n", state.IssueNumber, state.Issue.Title)
	fmt.Printf("Branch: %s\n\n", state.BranchName)

	return driveAgent(ctx, wf, github)
}

func runResume(cmd *cobra.Command, args []string) error {
	setupLogging()
	ctx := signalContext()

	github := gh.NewClient()
	wf := newWorkflow(github)
	state, err := wf.Resume(ctx)
	if err != nil {
		return err
	}
	if state.IssueURL == "" {
		return fmt.Errorf("no saved work for the current branch; start with: forgehand work <issue-url>")
	}
	fmt.Printf("Resuming at phase %s (issue %s)\n\n", state.Phase, state.IssueURL)

	return driveAgent(ctx, wf, github)
}

func runSwitch(cmd *cobra.Command, args []string) error {
	setupLogging()
	ctx := signalContext()

	github := gh.NewClient()
	wf := newWorkflow(github)
	store := wf.Store()

	target := args[0]
	if issue, err := strconv.Atoi(target); err == nil {
		branch, err := branchForIssue(store, issue)
		if err != nil {
			return err
		}
		target = branch
	}

	checkout := exec.CommandContext(ctx, "git", "checkout", target)
	checkout.Dir = repoDirFlag
	if out, err := checkout.CombinedOutput(); err != nil {
		detail := strings.TrimSpace(string(out))
		if detail == "" {
			detail = err.Error()
		}
		return fmt.Errorf("cannot checkout branch %s: %s", target, detail)
	}
	fmt.Printf("Switched to branch: %s\n", target)

	record, err := store.Load(target)
	if err != nil {
		return err
	}
	if record == nil || record.IssueURL == "" {
		return fmt.Errorf("no saved work for branch %s; start with: forgehand work <issue-url>", target)
	}
	if summary := record.Summary(200); summary != "" {
		fmt.Printf("  %s\n", summary)
	}

	state, err := wf.Resume(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nResuming at phase %s (issue %s)\n\n", state.Phase, state.IssueURL)

	return driveAgent(ctx, wf, github)
}

// branchForIssue resolves an issue number to the branch whose saved record
// references it.
func branchForIssue(store *memory.Store, issue int) (string, error) {
	records, err := store.List()
	if err != nil {
		return "", err
	}
	for _, rec := range records {
		if rec.IssueNumber == issue {
			return rec.BranchName, nil
		}
	}
	return "", fmt.Errorf("no branch found for issue #%d; start with: forgehand work <issue-url>", issue)
}

func newWorkflow(github *gh.Client) *workflow.Workflow {
	var opts []workflow.Option
	if branchPatternFlag != "" {
		opts = append(opts, workflow.WithBranchPattern(branchPatternFlag))
	}
	return workflow.New(repoDirFlag, github, opts...)
}

// driveAgent runs one agent session per remaining workflow phase, rendering
// events as they stream, and prints a usage summary when the run ends.
func driveAgent(ctx context.Context, wf *workflow.Workflow, github *gh.Client) error {
	tracker := checkpoint.NewTracker()

	agentOpts := []forgehand.AgentOption{
		forgehand.WithInstructionDirs(filepath.Join(repoDirFlag, ".forgehand")),
	}
	if modelFlag != "" {
		agentOpts = append(agentOpts, forgehand.WithModel(modelFlag))
	}
	if maxTurnsFlag > 0 {
		agentOpts = append(agentOpts, forgehand.WithMaxTurns(maxTurnsFlag))
	}
	if budgetFlag > 0 {
		agentOpts = append(agentOpts, forgehand.WithBudget(decimal.NewFromFloat(budgetFlag)))
	}
	if !yesFlag {
		agentOpts = append(agentOpts, forgehand.WithConfirmFunc(terminalConfirm(os.Stdin, os.Stdout)))
	} else {
		agentOpts = append(agentOpts, forgehand.WithConfirmFunc(approveAll))
	}

	client := forgehand.NewClient(agentOpts...)
	tools.RegisterAll(client.Agent().Tools(), tools.Options{
		WorkDir:    repoDirFlag,
		Checkpoint: tracker,
		GH:         github,
		BaseBranch: baseBranchFlag,
		Memory:     wf.Store(),
	})

	renderer := newRenderer(os.Stdout, os.Stderr)

	for state := wf.State(); state.Phase != workflow.PhaseComplete; state = wf.State() {
		slog.Debug("starting phase", "phase", state.Phase)
		fmt.Printf("== Phase: %s ==\n", state.Phase)

		stream := client.Query(ctx, wf.PhasePrompt())
		if err := renderer.consume(stream); err != nil {
			printUsage(client)
			return err
		}
		if url := renderer.createdPRURL(); url != "" {
			wf.SetPRURL(ctx, url)
		}
		if ctx.Err() != nil {
			printUsage(client)
			return ctx.Err()
		}
		wf.MarkPhaseComplete(ctx)
	}

	final := wf.State()
	fmt.Println("\nWorkflow complete.")
	if final.PRURL != "" {
		fmt.Printf("Pull request: %s\n", final.PRURL)
	}
	printUsage(client)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	setupLogging()
	ctx := signalContext()

	wf := newWorkflow(gh.NewClient())
	records, err := wf.Store().List()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No saved work in this repository.")
		return nil
	}

	current, _ := wf.Store().CurrentBranch(ctx)
	for _, rec := range records {
		marker := " "
		if rec.BranchName == current {
			marker = "*"
		}
		fmt.Printf("%s %s\n", marker, rec.BranchName)
		fmt.Printf("    Issue:  %s\n", rec.IssueURL)
		fmt.Printf("    Phase:  %s (%s)\n", rec.Phase, rec.Status)
		if rec.PRURL != "" {
			fmt.Printf("    PR:     %s\n", rec.PRURL)
		}
		if summary := rec.Summary(200); summary != "" {
			fmt.Printf("    %s\n", summary)
		}
	}
	return nil
}

func runIssues(cmd *cobra.Command, args []string) error {
	setupLogging()
	ctx := signalContext()

	github := gh.NewClient()
	if !github.Available() {
		return fmt.Errorf("GitHub CLI (gh) is not installed; install it and run: gh auth login")
	}

	slug := repoFlag
	if slug == "" {
		var err error
		slug, err = originRepoSlug(ctx, repoDirFlag)
		if err != nil {
			return fmt.Errorf("cannot determine repository; pass --repo owner/name")
		}
	}
	parts := strings.SplitN(slug, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("invalid repository %q (expected owner/name)", slug)
	}
	repo := gh.Repo{Owner: parts[0], Name: parts[1]}

	issues, err := github.ListIssues(ctx, repo, issueStateFlag, issueLimitFlag)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Printf("No %s issues in %s.\n", issueStateFlag, repo.Slug())
		return nil
	}
	for _, issue := range issues {
		line := fmt.Sprintf("#%d %s", issue.Number, issue.Title)
		if len(issue.Labels) > 0 {
			line += fmt.Sprintf(" [%s]", strings.Join(issue.Labels, ", "))
		}
		fmt.Println(line)
	}
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

// terminalConfirm prompts on the terminal for each tool that requires
// confirmation. Anything other than y/yes denies the call.
func terminalConfirm(in io.Reader, out io.Writer) forgehand.ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(ctx context.Context, toolName string, args map[string]any) bool {
		fmt.Fprintf(out, "\nAllow %s%s? [y/N] ", toolName, summarizeArgs(args))
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}

func approveAll(ctx context.Context, toolName string, args map[string]any) bool {
	return true
}

// summarizeArgs renders the most recognizable argument for a confirmation
// prompt, preferring paths and commands over a full JSON dump.
func summarizeArgs(args map[string]any) string {
	for _, key := range []string{"command", "file_path", "path", "pattern"} {
		if v, ok := args[key].(string); ok && v != "" {
			if len(v) > 80 {
				v = v[:80] + "..."
			}
			return fmt.Sprintf(" (%s)", v)
		}
	}
	return ""
}
