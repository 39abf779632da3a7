package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	forgehand "github.com/forgehand/forgehand"
)

const (
	defaultReadLimit   = 2000
	maxLineLength      = 2000
	truncationSuffix   = "... [truncated]"
	lineNumberTabWidth = 6 // right-justified width for line numbers
)

// resolvePath makes relative tool paths relative to the work directory.
func resolvePath(opts Options, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(opts.workDir(), path)
}

type readFileInput struct {
	Path   string `json:"path" jsonschema:"required,description=The path to the file to read"`
	Offset *int   `json:"offset,omitempty" jsonschema:"description=The line number to start reading from (1-based)"`
	Limit  *int   `json:"limit,omitempty" jsonschema:"description=The number of lines to read"`
}

func readFileTool(opts Options) forgehand.Tool[readFileInput] {
	return forgehand.Tool[readFileInput]{
		Name:        "read_file",
		Description: "Read a file, returning line-numbered content",
		Run: func(_ context.Context, input readFileInput) forgehand.ToolResult {
			if input.Path == "" {
				return forgehand.Errorf("path is required")
			}

			f, err := os.Open(resolvePath(opts, input.Path))
			if err != nil {
				return forgehand.Errorf("failed to open file: %s", err.Error())
			}
			defer f.Close()

			limit := defaultReadLimit
			if input.Limit != nil && *input.Limit > 0 {
				limit = *input.Limit
			}
			offset := 1
			if input.Offset != nil && *input.Offset > 0 {
				offset = *input.Offset
			}

			scanner := bufio.NewScanner(f)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

			var b strings.Builder
			lineNum := 0
			linesOutput := 0
			for scanner.Scan() {
				lineNum++
				if lineNum < offset {
					continue
				}
				if linesOutput >= limit {
					break
				}
				line := scanner.Text()
				if len(line) > maxLineLength {
					line = line[:maxLineLength-len(truncationSuffix)] + truncationSuffix
				}
				fmt.Fprintf(&b, "%*d\t%s\n", lineNumberTabWidth, lineNum, line)
				linesOutput++
			}
			if err := scanner.Err(); err != nil {
				return forgehand.Errorf("error reading file: %s", err.Error())
			}
			if b.Len() == 0 {
				return forgehand.Ok("(empty file)")
			}
			return forgehand.Ok(b.String())
		},
	}
}

type writeFileInput struct {
	Path    string `json:"path" jsonschema:"required,description=The path to the file to write"`
	Content string `json:"content" jsonschema:"required,description=The content to write to the file"`
}

func writeFileTool(opts Options) forgehand.Tool[writeFileInput] {
	return forgehand.Tool[writeFileInput]{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories if needed",
		Run: func(_ context.Context, input writeFileInput) forgehand.ToolResult {
			if input.Path == "" {
				return forgehand.Errorf("path is required")
			}

			resolved := resolvePath(opts, input.Path)
			if opts.Checkpoint != nil {
				if err := opts.Checkpoint.RecordWrite(resolved); err != nil {
					return forgehand.Errorf("checkpoint failed: %s", err.Error())
				}
			}

			if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return forgehand.Errorf("failed to create directory: %s", err.Error())
			}
			if err := os.WriteFile(resolved, []byte(input.Content), 0o644); err != nil {
				return forgehand.Errorf("failed to write file: %s", err.Error())
			}
			return forgehand.Ok(fmt.Sprintf("Successfully wrote to %s", resolved))
		},
	}
}

type editFileInput struct {
	Path       string `json:"path" jsonschema:"required,description=The path to the file to modify"`
	OldString  string `json:"old_string" jsonschema:"required,description=The text to replace"`
	NewString  string `json:"new_string" jsonschema:"required,description=The replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace all occurrences"`
}

func editFileTool(opts Options) forgehand.Tool[editFileInput] {
	return forgehand.Tool[editFileInput]{
		Name:        "edit_file",
		Description: "Perform exact string replacements in a file",
		Run: func(_ context.Context, input editFileInput) forgehand.ToolResult {
			if input.Path == "" {
				return forgehand.Errorf("path is required")
			}
			if input.OldString == input.NewString {
				return forgehand.Errorf("old_string and new_string must be different")
			}

			resolved := resolvePath(opts, input.Path)
			data, err := os.ReadFile(resolved)
			if err != nil {
				return forgehand.Errorf("failed to read file: %s", err.Error())
			}

			content := string(data)
			count := strings.Count(content, input.OldString)
			if count == 0 {
				return forgehand.Errorf("old_string not found in file")
			}
			if !input.ReplaceAll && count > 1 {
				return forgehand.Errorf(
					"old_string appears %d times in file; use replace_all=true to replace all occurrences, or provide more context to make it unique",
					count)
			}

			if opts.Checkpoint != nil {
				if err := opts.Checkpoint.RecordWrite(resolved); err != nil {
					return forgehand.Errorf("checkpoint failed: %s", err.Error())
				}
			}

			var newContent string
			if input.ReplaceAll {
				newContent = strings.ReplaceAll(content, input.OldString, input.NewString)
			} else {
				newContent = strings.Replace(content, input.OldString, input.NewString, 1)
			}
			if err := os.WriteFile(resolved, []byte(newContent), 0o644); err != nil {
				return forgehand.Errorf("failed to write file: %s", err.Error())
			}
			return forgehand.Ok(fmt.Sprintf("Successfully replaced %d occurrence(s) in %s", count, resolved))
		},
	}
}

type globInput struct {
	Pattern string `json:"pattern" jsonschema:"required,description=The glob pattern to match files against"`
	Path    string `json:"path,omitempty" jsonschema:"description=The directory to search in"`
}

func globTool(opts Options) forgehand.Tool[globInput] {
	return forgehand.Tool[globInput]{
		Name:        "glob",
		Description: "Fast file pattern matching, sorted by modification time",
		Run: func(_ context.Context, input globInput) forgehand.ToolResult {
			if input.Pattern == "" {
				return forgehand.Errorf("pattern is required")
			}

			basePath := opts.workDir()
			if input.Path != "" {
				basePath = resolvePath(opts, input.Path)
			}
			absBase, err := filepath.Abs(basePath)
			if err != nil {
				return forgehand.Errorf("invalid path: %s", err.Error())
			}

			matches, err := doublestar.Glob(os.DirFS(absBase), input.Pattern)
			if err != nil {
				return forgehand.Errorf("glob error: %s", err.Error())
			}
			if len(matches) == 0 {
				return forgehand.Ok("No files matched the pattern.")
			}

			type fileEntry struct {
				path    string
				modTime int64
			}
			entries := make([]fileEntry, 0, len(matches))
			for _, m := range matches {
				fullPath := filepath.Join(absBase, m)
				info, err := os.Stat(fullPath)
				if err != nil {
					continue
				}
				entries = append(entries, fileEntry{path: fullPath, modTime: info.ModTime().UnixNano()})
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].modTime > entries[j].modTime
			})

			var b strings.Builder
			for _, e := range entries {
				b.WriteString(e.path)
				b.WriteByte('\n')
			}
			return forgehand.Ok(b.String())
		},
	}
}
