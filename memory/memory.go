// Package memory persists per-branch workflow state under the repository's
// .forgehand/branches directory. Each branch gets one JSON file, keyed by a
// sanitized branch name, so work can be resumed after a restart or a branch
// switch.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Record is the on-disk state for one branch.
type Record struct {
	BranchName     string    `json:"branch_name"`
	IssueURL       string    `json:"issue_url,omitempty"`
	IssueNumber    int       `json:"issue_number,omitempty"`
	Phase          string    `json:"phase"`
	Status         string    `json:"status"`
	PRURL          string    `json:"pr_url,omitempty"`
	WorkSummary    string    `json:"work_summary,omitempty"`
	ContextSummary string    `json:"context_summary,omitempty"`
	CompletedSteps []string  `json:"completed_steps,omitempty"`
	FilesModified  []string  `json:"files_modified,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AddCompletedStep appends a step if it is not already recorded.
func (r *Record) AddCompletedStep(step string) {
	for _, s := range r.CompletedSteps {
		if s == step {
			return
		}
	}
	r.CompletedSteps = append(r.CompletedSteps, step)
}

// AddFileModified tracks a modified file path, deduplicated.
func (r *Record) AddFileModified(path string) {
	for _, f := range r.FilesModified {
		if f == path {
			return
		}
	}
	r.FilesModified = append(r.FilesModified, path)
}

// Summary renders a compact one-line description of the branch's work,
// truncated to maxLength characters.
func (r *Record) Summary(maxLength int) string {
	var parts []string
	if r.IssueNumber != 0 {
		parts = append(parts, fmt.Sprintf("Issue #%d", r.IssueNumber))
	}
	if r.Phase != "" {
		parts = append(parts, "Phase: "+r.Phase)
	}
	if r.WorkSummary != "" {
		parts = append(parts, r.WorkSummary)
	}
	if n := len(r.FilesModified); n > 0 {
		parts = append(parts, fmt.Sprintf("Modified %d file(s)", n))
	}
	if n := len(r.CompletedSteps); n > 0 {
		recent := r.CompletedSteps
		if n > 3 {
			recent = recent[n-3:]
		}
		parts = append(parts, "Completed: "+strings.Join(recent, ", "))
	}

	summary := strings.Join(parts, " | ")
	if maxLength > 3 {
		// Truncate on a rune boundary so multi-byte summaries stay valid.
		runes := []rune(summary)
		if len(runes) > maxLength {
			summary = string(runes[:maxLength-3]) + "..."
		}
	}
	return summary
}

// Store reads and writes branch records for one repository.
type Store struct {
	repoDir string
	dir     string
}

// NewStore creates a store rooted at the repository path. The backing
// directory is created on first save, not here.
func NewStore(repoDir string) *Store {
	return &Store{
		repoDir: repoDir,
		dir:     filepath.Join(repoDir, ".forgehand", "branches"),
	}
}

// CurrentBranch returns the repository's checked-out branch.
func (s *Store) CurrentBranch(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = s.repoDir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository or git unavailable: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Save writes a record, stamping UpdatedAt and backfilling CreatedAt.
func (s *Store) Save(record *Record) error {
	if record.BranchName == "" {
		return fmt.Errorf("record has no branch name")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	record.UpdatedAt = time.Now()
	if record.Status == "" {
		record.Status = "in_progress"
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal branch record: %w", err)
	}
	if err := os.WriteFile(s.path(record.BranchName), data, 0o644); err != nil {
		return fmt.Errorf("write branch record: %w", err)
	}
	return nil
}

// Load reads the record for a branch. A missing record returns (nil, nil);
// a corrupt one returns an error.
func (s *Store) Load(branch string) (*Record, error) {
	data, err := os.ReadFile(s.path(branch))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read branch record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("unmarshal branch record: %w", err)
	}
	return &record, nil
}

// LoadCurrent reads the record for the checked-out branch.
func (s *Store) LoadCurrent(ctx context.Context) (*Record, error) {
	branch, err := s.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}
	return s.Load(branch)
}

// Delete removes a branch record. Deleting a missing record is a no-op.
func (s *Store) Delete(branch string) error {
	err := os.Remove(s.path(branch))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete branch record: %w", err)
	}
	return nil
}

// List returns every stored record, skipping unreadable files.
func (s *Store) List() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list branch records: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records, nil
}

func (s *Store) path(branch string) string {
	return filepath.Join(s.dir, sanitizeBranch(branch)+".json")
}

// sanitizeBranch makes a branch name safe as a file name. Path separators
// and other unsafe characters become underscores.
func sanitizeBranch(branch string) string {
	var b strings.Builder
	for _, r := range branch {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
