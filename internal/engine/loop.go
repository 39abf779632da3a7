// Package engine contains the agent turn loop: the coroutine that drives one
// chat request/response cycle at a time, dispatches the tool calls the model
// requests, and feeds results back into the transcript until the model stops
// asking for tools or the turn budget runs out.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgehand/forgehand/chat"
	"github.com/forgehand/forgehand/internal/transcript"
)

// ToolExecutor executes a tool by name with parsed arguments. The returned
// output is model-facing text; isError marks a failed execution that the
// model should react to. A non-nil err means the executor itself failed
// (unknown tool, panic); the loop converts it into an error result, it is
// never fatal to the turn.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) (output string, isError bool, err error)
	Schemas() []chat.ToolSchema
}

// EventSink receives events from the loop. The loop calls these methods
// instead of importing root package event types, breaking the import cycle.
type EventSink interface {
	OnTextDelta(delta string)
	OnTextComplete(text string)
	OnToolCallStart(id, name string, args map[string]any)
	OnToolCallComplete(id, name, output string, isError bool)
	OnError(message string)
}

// Detector observes the stream of agent actions and flags repetitive
// non-progress. Nil disables detection.
type Detector interface {
	RecordToolCall(name string, args map[string]any)
	RecordResponse(text string)
	Check() string
	Reset()
}

// Summarizer condenses a transcript into a summary for compression. Nil
// disables compression.
type Summarizer interface {
	Summarize(ctx context.Context, messages []chat.Message) (string, chat.Usage, error)
}

// HookPreToolResult is the outcome of pre-tool hooks: the call may be blocked
// or its arguments replaced.
type HookPreToolResult struct {
	Block       bool
	Reason      string
	UpdatedArgs map[string]any
}

// HookRunner executes user-defined hooks around tool dispatch. Nil means no
// hooks.
type HookRunner interface {
	RunPreToolUse(ctx context.Context, toolName string, args map[string]any) (*HookPreToolResult, error)
	RunPostToolUse(ctx context.Context, toolName string, args map[string]any, output string, isError bool) error
}

// PermissionChecker decides whether a tool may run. Implementations resolve
// any interactive confirmation themselves; the loop only sees the decision.
// Nil means all tools are allowed.
type PermissionChecker interface {
	Check(ctx context.Context, toolName string, args map[string]any) (allowed bool, reason string, err error)
}

// BudgetChecker tracks cost and enforces a spend ceiling. Nil means no limit.
type BudgetChecker interface {
	RecordUsage(model string, usage chat.Usage)
	Exhausted() bool
}

// LoopConfig holds everything the turn loop needs to execute.
type LoopConfig struct {
	Client     chat.Completer
	Tools      ToolExecutor
	Transcript *transcript.Manager
	Model      string
	MaxTurns   int
	Sink       EventSink

	Detector   Detector
	Summarizer Summarizer
	Hooks      HookRunner
	Permission PermissionChecker
	Budget     BudgetChecker

	// LoopBreaker renders a detector diagnosis into the corrective user
	// message injected into the conversation. Required when Detector is set.
	LoopBreaker func(diagnosis string) string
}

// toolResultMessage pairs a call id with its model-facing result text,
// accumulated during dispatch and inserted at the assistant anchor in one
// pass.
type toolResultMessage struct {
	callID  string
	content string
}

// RunLoop runs turns until the model produces a final answer without tool
// calls, the turn budget is exhausted, or the context is cancelled. It runs
// in the calling goroutine and reports through the sink; no anticipated
// failure mode escapes as an error.
func RunLoop(ctx context.Context, cfg LoopConfig) {
	for turn := 0; turn < cfg.MaxTurns; turn++ {
		if ctx.Err() != nil {
			cfg.Sink.OnError(ctx.Err().Error())
			return
		}

		if cfg.Summarizer != nil && cfg.Transcript.NeedsCompression() {
			compress(ctx, cfg)
		}

		schemas := cfg.Tools.Schemas()

		stream := cfg.Client.ChatCompletion(ctx, cfg.Transcript.Messages(), schemas)

		var responseText strings.Builder
		var toolCalls []chat.ToolCall
		var usage *chat.Usage

		for stream.Next() {
			event := stream.Current()
			switch event.Type {
			case chat.EventTextDelta:
				responseText.WriteString(event.TextDelta)
				cfg.Sink.OnTextDelta(event.TextDelta)
			case chat.EventToolCallStart:
				// Swallowed: forwarding would expose partially-streamed
				// arguments. The complete call is emitted after dispatch
				// begins.
			case chat.EventToolCallComplete:
				if event.ToolCall != nil {
					toolCalls = append(toolCalls, *event.ToolCall)
				}
			case chat.EventMessageComplete:
				usage = event.Usage
			case chat.EventError:
				cfg.Sink.OnError(streamErrorText(event.Err))
			}
		}

		// Anchor for tool-result insertion: the index the assistant message
		// is about to occupy.
		anchor := cfg.Transcript.MessageCount()
		cfg.Transcript.AddAssistantMessage(responseText.String(), toolCalls)

		if responseText.Len() > 0 {
			cfg.Sink.OnTextComplete(responseText.String())
			if cfg.Detector != nil {
				cfg.Detector.RecordResponse(responseText.String())
			}
		}

		if len(toolCalls) == 0 {
			// Normal termination: a final answer with no tool requests.
			recordUsage(cfg, usage)
			cfg.Transcript.PruneToolOutputs()
			return
		}

		results := dispatchAll(ctx, cfg, toolCalls)
		for _, r := range results {
			cfg.Transcript.AddToolResult(r.callID, r.content, anchor)
		}

		if cfg.Detector != nil {
			if diagnosis := cfg.Detector.Check(); diagnosis != "" {
				cfg.Transcript.AddUserMessage(cfg.LoopBreaker(diagnosis))
				cfg.Detector.Reset()
			}
		}

		recordUsage(cfg, usage)

		if cfg.Budget != nil && cfg.Budget.Exhausted() {
			cfg.Sink.OnError("budget exhausted")
			return
		}

		cfg.Transcript.PruneToolOutputs()
	}

	cfg.Sink.OnError(fmt.Sprintf("Maximum turns (%d) reached", cfg.MaxTurns))
}

// dispatchAll executes the requested tool calls sequentially, in request
// order. Every call produces exactly one result message; execution
// failures, hook blocks, and permission denials all become error results the
// model can react to.
func dispatchAll(ctx context.Context, cfg LoopConfig, calls []chat.ToolCall) []toolResultMessage {
	results := make([]toolResultMessage, 0, len(calls))

	for _, call := range calls {
		if call.Name == "" {
			// Protocol violation from the model; fill the slot without
			// invoking anything so the transcript stays consistent.
			results = append(results, toolResultMessage{
				callID:  call.ID,
				content: "Error: Tool call missing name",
			})
			continue
		}

		args := chat.ParseArguments(call.Arguments)

		cfg.Sink.OnToolCallStart(call.ID, call.Name, args)
		if cfg.Detector != nil {
			cfg.Detector.RecordToolCall(call.Name, args)
		}

		output, isError := dispatch(ctx, cfg, call.Name, args)

		cfg.Sink.OnToolCallComplete(call.ID, call.Name, output, isError)
		results = append(results, toolResultMessage{callID: call.ID, content: output})
	}

	return results
}

// dispatch runs one tool call through hooks, permission, and the executor.
func dispatch(ctx context.Context, cfg LoopConfig, name string, args map[string]any) (output string, isError bool) {
	if cfg.Hooks != nil {
		hookResult, err := cfg.Hooks.RunPreToolUse(ctx, name, args)
		if err != nil {
			return fmt.Sprintf("Error: hook error: %s", err.Error()), true
		}
		if hookResult != nil {
			if hookResult.Block {
				reason := hookResult.Reason
				if reason == "" {
					reason = "blocked by hook"
				}
				return fmt.Sprintf("Error: tool blocked: %s", reason), true
			}
			if hookResult.UpdatedArgs != nil {
				args = hookResult.UpdatedArgs
			}
		}
	}

	if cfg.Permission != nil {
		allowed, reason, err := cfg.Permission.Check(ctx, name, args)
		if err != nil {
			return fmt.Sprintf("Error: permission error: %s", err.Error()), true
		}
		if !allowed {
			if reason == "" {
				reason = "denied by approval policy"
			}
			return fmt.Sprintf("Error: tool execution denied: %s", reason), true
		}
	}

	output, isError, err := cfg.Tools.Execute(ctx, name, args)
	if err != nil {
		output = fmt.Sprintf("Error: Tool execution failed: %s", err.Error())
		isError = true
	}

	if cfg.Hooks != nil {
		_ = cfg.Hooks.RunPostToolUse(ctx, name, args, output, isError)
	}

	return output, isError
}

// compress replaces the transcript with an LLM-generated summary. A failed
// summarization leaves the transcript untouched; the next turn retries.
func compress(ctx context.Context, cfg LoopConfig) {
	summary, usage, err := cfg.Summarizer.Summarize(ctx, cfg.Transcript.Messages())
	if err != nil || summary == "" {
		return
	}
	cfg.Transcript.ReplaceWithSummary(summary)
	cfg.Transcript.SetLatestUsage(usage)
	cfg.Transcript.AddUsage(usage)
	if cfg.Budget != nil {
		cfg.Budget.RecordUsage(cfg.Model, usage)
	}
}

func recordUsage(cfg LoopConfig, usage *chat.Usage) {
	if usage == nil {
		return
	}
	cfg.Transcript.SetLatestUsage(*usage)
	cfg.Transcript.AddUsage(*usage)
	if cfg.Budget != nil {
		cfg.Budget.RecordUsage(cfg.Model, *usage)
	}
}

func streamErrorText(err error) string {
	if err == nil {
		return "Unknown error occurred."
	}
	return err.Error()
}
