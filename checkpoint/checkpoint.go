// Package checkpoint snapshots files before the agent modifies them so a
// botched implementation attempt can be rolled back before retrying.
package checkpoint

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"
)

// FileChange holds the pre-modification state of one file.
type FileChange struct {
	Path            string
	OriginalContent []byte
	OriginalMode    fs.FileMode
	OriginalExists  bool
}

// Tracker captures the original content of files before the write and edit
// tools touch them. Only the first write per path is captured, so a rewind
// always restores the state before the agent's first modification.
type Tracker struct {
	mu      sync.RWMutex
	changes map[string]*FileChange
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		changes: make(map[string]*FileChange),
	}
}

// RecordWrite snapshots a file ahead of a write. Paths already tracked are
// left alone so repeated edits keep the true original.
func (t *Tracker) RecordWrite(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.changes[path]; exists {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.changes[path] = &FileChange{Path: path}
			return nil
		}
		return fmt.Errorf("checkpoint: cannot read %s: %w", path, err)
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	t.changes[path] = &FileChange{
		Path:            path,
		OriginalContent: data,
		OriginalMode:    mode,
		OriginalExists:  true,
	}
	return nil
}

// Rewind restores every tracked file to its snapshot and forgets the
// snapshots. Files the agent created are removed; files it modified get
// their original content and mode back. The first failure is reported but
// the remaining files are still restored.
func (t *Tracker) Rewind() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var firstErr error
	for path, change := range t.changes {
		if err := restore(change); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("checkpoint: rewind %s: %w", path, err)
		}
	}

	t.changes = make(map[string]*FileChange)
	return firstErr
}

// Restore rolls back a single tracked path and forgets its snapshot.
// Untracked paths are a no-op.
func (t *Tracker) Restore(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	change, ok := t.changes[path]
	if !ok {
		return nil
	}
	delete(t.changes, path)

	if err := restore(change); err != nil {
		return fmt.Errorf("checkpoint: restore %s: %w", path, err)
	}
	return nil
}

func restore(change *FileChange) error {
	if !change.OriginalExists {
		err := os.Remove(change.Path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.WriteFile(change.Path, change.OriginalContent, change.OriginalMode)
}

// Changes returns the number of tracked files.
func (t *Tracker) Changes() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.changes)
}

// Paths returns the tracked paths in sorted order.
func (t *Tracker) Paths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	paths := make([]string, 0, len(t.changes))
	for p := range t.changes {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clear forgets all snapshots without touching the files.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.changes = make(map[string]*FileChange)
}
