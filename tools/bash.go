package tools

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"time"

	"github.com/creack/pty"

	forgehand "github.com/forgehand/forgehand"
)

const (
	defaultBashTimeoutMs = 120_000
	maxBashTimeoutMs     = 600_000
	maxOutputBytes       = 30_000
)

type bashInput struct {
	Command     string `json:"command" jsonschema:"required,description=The command to execute"`
	Description string `json:"description,omitempty" jsonschema:"description=Description of what this command does"`
	Timeout     *int   `json:"timeout,omitempty" jsonschema:"description=Timeout in milliseconds (max 600000)"`
}

func bashTool(opts Options) forgehand.Tool[bashInput] {
	return forgehand.Tool[bashInput]{
		Name:        "bash",
		Description: "Execute a bash command in the repository",
		Run: func(ctx context.Context, input bashInput) forgehand.ToolResult {
			if input.Command == "" {
				return forgehand.Errorf("command is required")
			}

			timeoutMs := defaultBashTimeoutMs
			if input.Timeout != nil {
				timeoutMs = *input.Timeout
				if timeoutMs <= 0 {
					timeoutMs = defaultBashTimeoutMs
				}
				if timeoutMs > maxBashTimeoutMs {
					timeoutMs = maxBashTimeoutMs
				}
			}

			cmdCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutMs)*time.Millisecond)
			defer cancel()

			cmd := exec.CommandContext(cmdCtx, "bash", "-c", input.Command)
			cmd.Dir = opts.workDir()

			// PTY capture keeps output interleaved the way a terminal
			// would show it. Fall back to plain execution if no PTY is
			// available.
			ptmx, err := pty.Start(cmd)
			if err != nil {
				return runWithoutPTY(cmdCtx, opts, input.Command, timeoutMs)
			}
			defer ptmx.Close()

			var buf bytes.Buffer
			_, _ = io.Copy(&buf, ptmx) // PTY read returns EIO on process exit, ignore

			waitErr := cmd.Wait()

			output := truncateOutput(buf.String())
			exitCode := 0
			if waitErr != nil {
				if exitErr, ok := waitErr.(*exec.ExitError); ok {
					exitCode = exitErr.ExitCode()
				} else if cmdCtx.Err() == context.DeadlineExceeded {
					return forgehand.Errorf("command timed out after %dms", timeoutMs)
				} else {
					exitCode = -1
				}
			}

			if exitCode != 0 {
				return forgehand.Errorf("exit code %d\n%s", exitCode, output)
			}
			return forgehand.Ok(output)
		},
	}
}

func runWithoutPTY(ctx context.Context, opts Options, command string, timeoutMs int) forgehand.ToolResult {
	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = opts.workDir()
	output, err := cmd.CombinedOutput()

	text := truncateOutput(string(output))
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if ctx.Err() == context.DeadlineExceeded {
			return forgehand.Errorf("command timed out after %dms", timeoutMs)
		} else {
			exitCode = -1
		}
	}

	if exitCode != 0 {
		return forgehand.Errorf("exit code %d\n%s", exitCode, text)
	}
	return forgehand.Ok(text)
}

func truncateOutput(text string) string {
	if len(text) > maxOutputBytes {
		return text[:maxOutputBytes] + "\n... [output truncated]"
	}
	return text
}
