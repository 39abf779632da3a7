package tools

import (
	"context"
	"fmt"
	"os/exec"

	forgehand "github.com/forgehand/forgehand"
)

type grepInput struct {
	Pattern         string `json:"pattern" jsonschema:"required,description=The regex pattern to search for"`
	Path            string `json:"path,omitempty" jsonschema:"description=File or directory to search in"`
	OutputMode      string `json:"output_mode,omitempty" jsonschema:"description=Output mode: content or files_with_matches or count"`
	Glob            string `json:"glob,omitempty" jsonschema:"description=Glob pattern to filter files"`
	Type            string `json:"type,omitempty" jsonschema:"description=File type to search (e.g. go or py or js)"`
	Context         *int   `json:"context,omitempty" jsonschema:"description=Lines of context around matches"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty" jsonschema:"description=Case insensitive search"`
}

func grepTool(opts Options) forgehand.Tool[grepInput] {
	return forgehand.Tool[grepInput]{
		Name:        "grep",
		Description: "Search file contents using regex patterns",
		Run: func(ctx context.Context, input grepInput) forgehand.ToolResult {
			if input.Pattern == "" {
				return forgehand.Errorf("pattern is required")
			}

			rgPath, err := exec.LookPath("rg")
			if err != nil {
				return forgehand.Errorf("ripgrep (rg) is not installed. Install it with: brew install ripgrep (macOS) or apt install ripgrep (Linux)")
			}

			cmd := exec.CommandContext(ctx, rgPath, buildRgArgs(input)...)
			cmd.Dir = opts.workDir()

			output, err := cmd.CombinedOutput()
			text := string(output)
			if err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					// rg exit code 1 means no matches, 2 means error.
					if exitErr.ExitCode() == 1 {
						return forgehand.Ok("No matches found.")
					}
					return forgehand.Errorf("rg error: %s", text)
				}
				return forgehand.Errorf("failed to run rg: %s", err.Error())
			}

			if len(text) > maxOutputBytes {
				text = text[:maxOutputBytes] + "\n... [output truncated]"
			}
			return forgehand.Ok(text)
		},
	}
}

func buildRgArgs(input grepInput) []string {
	var args []string

	switch input.OutputMode {
	case "content":
		args = append(args, "-n")
	case "count":
		args = append(args, "-c")
	case "files_with_matches", "":
		args = append(args, "-l")
	}

	if input.CaseInsensitive {
		args = append(args, "-i")
	}
	if input.Glob != "" {
		args = append(args, "--glob", input.Glob)
	}
	if input.Type != "" {
		args = append(args, "--type", input.Type)
	}
	if input.Context != nil && *input.Context > 0 {
		args = append(args, "-C", fmt.Sprintf("%d", *input.Context))
	}

	args = append(args, input.Pattern)
	if input.Path != "" {
		args = append(args, input.Path)
	}
	return args
}
