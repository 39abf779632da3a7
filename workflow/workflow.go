// Package workflow orchestrates the phased contribution process: understand
// the repository, take in the issue, plan, implement, verify, validate, and
// open the PR. The workflow owns the state machine and per-branch
// persistence; the actual code work happens through the agent's tools,
// steered by phase prompts.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/forgehand/forgehand/internal/gh"
	"github.com/forgehand/forgehand/memory"
	"github.com/forgehand/forgehand/prompts"
)

// DefaultBranchPattern names feature branches from the issue number.
const DefaultBranchPattern = "fix/issue-%d"

// State is the current position in the workflow.
type State struct {
	Phase          Phase
	IssueURL       string
	IssueNumber    int
	Repo           gh.Repo
	Issue          *gh.Issue
	BranchName     string
	Analysis       *Analysis
	PRURL          string
	ContextSummary string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Workflow drives one contribution from issue URL to pull request.
type Workflow struct {
	repoDir       string
	github        *gh.Client
	store         *memory.Store
	branchPattern string
	state         State
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithBranchPattern overrides the feature branch naming pattern. The
// pattern must contain one %d verb for the issue number.
func WithBranchPattern(pattern string) Option {
	return func(w *Workflow) { w.branchPattern = pattern }
}

// WithStore overrides the branch memory store.
func WithStore(store *memory.Store) Option {
	return func(w *Workflow) { w.store = store }
}

// New creates a workflow for a repository. A nil client means GitHub
// operations fail with a setup hint when reached.
func New(repoDir string, client *gh.Client, opts ...Option) *Workflow {
	if client == nil {
		client = gh.NewClient()
	}
	w := &Workflow{
		repoDir:       repoDir,
		github:        client,
		store:         memory.NewStore(repoDir),
		branchPattern: DefaultBranchPattern,
		state: State{
			Phase:     PhaseRepositoryUnderstanding,
			CreatedAt: time.Now(),
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns a copy of the current workflow state.
func (w *Workflow) State() State { return w.state }

// Store returns the branch memory store backing this workflow.
func (w *Workflow) Store() *memory.Store { return w.store }

// Start begins work on an issue. It runs the first two phases directly:
// repository understanding (analyze or load the cached analysis) and issue
// intake (fetch the issue, rejecting closed ones), then hands over at the
// planning phase.
func (w *Workflow) Start(ctx context.Context, issueURL string) (State, error) {
	repo, number, err := gh.ParseIssueURL(issueURL)
	if err != nil {
		return w.state, err
	}
	w.state.IssueURL = issueURL
	w.state.Repo = repo
	w.state.IssueNumber = number

	// Phase 1: repository understanding.
	w.state.Phase = PhaseRepositoryUnderstanding
	analysis := LoadAnalysis(w.repoDir)
	if analysis == nil {
		analysis, err = AnalyzeRepository(w.repoDir)
		if err != nil {
			return w.state, fmt.Errorf("repository analysis: %w", err)
		}
	}
	w.state.Analysis = analysis
	w.touch(ctx)

	// Phase 2: issue intake.
	w.state.Phase = PhaseIssueIntake
	issue, err := w.github.FetchIssue(ctx, repo, number)
	if err != nil {
		return w.state, err
	}
	if issue.State == "closed" {
		return w.state, fmt.Errorf("issue #%d is already closed; cannot work on closed issues", number)
	}
	w.state.Issue = &issue
	w.state.BranchName = fmt.Sprintf(w.branchPattern, number)
	w.touch(ctx)

	// Phases 3-7 run through the agent.
	w.state.Phase = PhasePlanning
	w.touch(ctx)
	return w.state, nil
}

// Resume restores workflow state from the current branch's memory record.
// With no saved record the workflow stays at its initial phase.
func (w *Workflow) Resume(ctx context.Context) (State, error) {
	record, err := w.store.LoadCurrent(ctx)
	if err != nil {
		return w.state, err
	}
	if record == nil {
		return w.state, nil
	}

	w.state.Phase = ParsePhase(record.Phase)
	w.state.IssueURL = record.IssueURL
	w.state.IssueNumber = record.IssueNumber
	w.state.BranchName = record.BranchName
	w.state.PRURL = record.PRURL
	w.state.ContextSummary = record.ContextSummary
	w.state.CreatedAt = record.CreatedAt

	if record.IssueURL != "" {
		if repo, number, err := gh.ParseIssueURL(record.IssueURL); err == nil {
			w.state.Repo = repo
			w.state.IssueNumber = number
		}
	}
	if analysis := LoadAnalysis(w.repoDir); analysis != nil {
		w.state.Analysis = analysis
	}
	return w.state, nil
}

// MarkPhaseComplete records the finished phase and advances to the next.
func (w *Workflow) MarkPhaseComplete(ctx context.Context) State {
	completed := w.state.Phase
	w.state.Phase = completed.Next()
	w.touch(ctx)

	if branch := w.branchName(ctx); branch != "" {
		if record, err := w.store.Load(branch); err == nil && record != nil {
			record.AddCompletedStep("Completed phase: " + string(completed))
			_ = w.store.Save(record)
		}
	}
	return w.state
}

// SetPRURL records the opened pull request and persists it.
func (w *Workflow) SetPRURL(ctx context.Context, url string) {
	w.state.PRURL = url
	w.touch(ctx)
}

// PhasePrompt returns the instruction for the current phase.
func (w *Workflow) PhasePrompt() string {
	issueTitle, issueBody := "Unknown", ""
	if w.state.Issue != nil {
		issueTitle = w.state.Issue.Title
		issueBody = w.state.Issue.Body
	}

	switch w.state.Phase {
	case PhaseRepositoryUnderstanding:
		return prompts.RepositoryUnderstanding(w.state.Analysis != nil && w.state.Analysis.StartHereExists)
	case PhaseIssueIntake:
		return prompts.IssueIntake(w.state.IssueURL)
	case PhasePlanning:
		var folders, entries []string
		if w.state.Analysis != nil {
			folders = w.state.Analysis.KeyFolderNames()
			entries = w.state.Analysis.EntryPoints
		}
		return prompts.Planning(issueTitle, issueBody, folders, entries)
	case PhaseImplementation:
		return prompts.Implementation(issueTitle, w.state.BranchName)
	case PhaseVerification:
		var strategy map[string]string
		if w.state.Analysis != nil {
			strategy = w.state.Analysis.TestStrategy
		}
		return prompts.Verification(strategy)
	case PhaseValidation:
		return prompts.Validation(issueTitle, issueBody)
	case PhaseCommitAndPR:
		return prompts.CommitAndPR(w.state.IssueNumber, issueTitle)
	case PhaseComplete:
		return "The workflow is complete. The pull request has been opened."
	}
	return "Continue with the current workflow phase."
}

// touch stamps the state and persists it to branch memory.
func (w *Workflow) touch(ctx context.Context) {
	w.state.UpdatedAt = time.Now()

	branch := w.branchName(ctx)
	if branch == "" {
		return
	}

	record, err := w.store.Load(branch)
	if err != nil || record == nil {
		record = &memory.Record{BranchName: branch, CreatedAt: w.state.CreatedAt}
	}
	record.Phase = string(w.state.Phase)
	record.IssueURL = w.state.IssueURL
	record.IssueNumber = w.state.IssueNumber
	record.PRURL = w.state.PRURL
	if w.state.Issue != nil {
		record.WorkSummary = "Issue: " + w.state.Issue.Title
	}
	if w.state.Phase == PhaseComplete {
		record.Status = "complete"
	} else {
		record.Status = "in_progress"
	}
	record.ContextSummary = record.Summary(500)
	_ = w.store.Save(record)
}

// branchName prefers the workflow's feature branch, falling back to the
// checked-out branch.
func (w *Workflow) branchName(ctx context.Context) string {
	if w.state.BranchName != "" {
		return w.state.BranchName
	}
	branch, err := w.store.CurrentBranch(ctx)
	if err != nil {
		return ""
	}
	return branch
}
