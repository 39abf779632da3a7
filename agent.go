package forgehand

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/forgehand/forgehand/chat"
	"github.com/forgehand/forgehand/hook"
	"github.com/forgehand/forgehand/internal/budget"
	"github.com/forgehand/forgehand/internal/config"
	"github.com/forgehand/forgehand/internal/engine"
	"github.com/forgehand/forgehand/internal/hookrunner"
	"github.com/forgehand/forgehand/internal/transcript"
	"github.com/forgehand/forgehand/permission"
	"github.com/forgehand/forgehand/prompts"
)

// Agent is a stateless execution engine holding configuration, tools, and
// hooks. The same Agent can be shared across goroutines and sessions.
type Agent struct {
	client chat.Completer
	tools  *ToolRegistry
	opts   agentOptions
}

// NewAgent creates a new Agent with the given options. The Agent holds no
// conversation state; that lives in sessions.
func NewAgent(opts ...AgentOption) *Agent {
	// Capture user-set values before applying defaults so explicit options
	// take precedence over settings files.
	var userSet agentOptions
	for _, fn := range opts {
		fn(&userSet)
	}

	resolved := resolveOptions(opts)

	if len(resolved.settingSources) > 0 {
		settings, err := config.LoadSettings(resolved.settingSources...)
		if err == nil {
			applySettings(&resolved, settings, &userSet)
		}
	}

	if resolved.systemPrompt == "" {
		resolved.systemPrompt = prompts.Identity
	}

	// Project guidance files are prepended to the system prompt.
	if len(resolved.instructionDirs) > 0 {
		instructions, err := config.LoadInstructions(resolved.instructionDirs...)
		if err == nil && len(instructions) > 0 {
			resolved.systemPrompt = config.FormatInstructionsPrompt(instructions) + resolved.systemPrompt
		}
	}

	client := resolved.chatClient
	if client == nil {
		apiKey := resolved.apiKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		client = chat.NewClient(chat.ClientConfig{
			APIKey:      apiKey,
			BaseURL:     resolved.baseURL,
			Model:       resolved.model,
			MaxTokens:   resolved.maxOutputTokens,
			Temperature: resolved.temperature,
		})
	}

	return &Agent{
		client: client,
		tools:  NewToolRegistry(),
		opts:   resolved,
	}
}

// applySettings merges loaded settings into resolved options. Options set
// explicitly via WithXxx take precedence over settings files.
func applySettings(o *agentOptions, s *config.Settings, userSet *agentOptions) {
	if userSet.model == "" && s.Model != "" {
		o.model = s.Model
	}
	if userSet.baseURL == "" && s.BaseURL != "" {
		o.baseURL = s.BaseURL
	}
	if userSet.systemPrompt == "" && s.SystemPrompt != "" {
		o.systemPrompt = s.SystemPrompt
	}
	if userSet.maxTurns == 0 && s.MaxTurns > 0 {
		o.maxTurns = s.MaxTurns
	}
	if userSet.contextWindow == 0 && s.ContextWindow > 0 {
		o.contextWindow = s.ContextWindow
	}
	if userSet.maxBudget.IsZero() && s.MaxBudgetUSD > 0 {
		o.maxBudget = decimal.NewFromFloat(s.MaxBudgetUSD)
	}
	if len(userSet.disabledTools) == 0 && len(s.DisabledTools) > 0 {
		o.disabledTools = s.DisabledTools
	}
	if userSet.permissionMode == permission.ModeDefault && s.PermissionMode != "" {
		o.permissionMode = parsePermissionMode(s.PermissionMode)
	}
}

func parsePermissionMode(s string) permission.Mode {
	switch s {
	case "acceptEdits":
		return permission.ModeAcceptEdits
	case "bypassPermissions":
		return permission.ModeBypassPermissions
	case "plan":
		return permission.ModePlan
	default:
		return permission.ModeDefault
	}
}

// Tools returns the agent's tool registry for registering custom tools.
func (a *Agent) Tools() *ToolRegistry {
	return a.tools
}

// Model returns the configured model.
func (a *Agent) Model() string {
	return a.opts.model
}

// NewSession creates a fresh session carrying the agent's system prompt and
// context configuration.
func (a *Agent) NewSession() *Session {
	return newSession(a.opts.systemPrompt, transcript.Config{
		ContextWindow: a.opts.contextWindow,
		ProtectTokens: a.opts.pruneProtectTokens,
		MinimumTokens: a.opts.pruneMinimumTokens,
		Estimator:     a.opts.estimator,
	}, a.opts.loopThreshold)
}

// Run starts a single-shot agent execution with a new session.
// Returns an AgentStream for iterating over events.
func (a *Agent) Run(ctx context.Context, prompt string) *AgentStream {
	return a.RunWithSession(ctx, a.NewSession(), prompt)
}

// RunWithSession starts an agent execution using an existing session.
// The session's conversation history is preserved and extended.
func (a *Agent) RunWithSession(ctx context.Context, session *Session, prompt string) *AgentStream {
	session.transcript.AddUserMessage(prompt)

	eventCh := make(chan Event, a.opts.streamBufferSize)
	stream := newStream(eventCh, session)
	sink := &channelSink{ch: eventCh}

	cfg := engine.LoopConfig{
		Client:     a.client,
		Tools:      &toolExecutorAdapter{registry: a.tools, disabled: a.opts.disabledTools},
		Transcript: session.transcript,
		Model:      a.opts.model,
		MaxTurns:   a.opts.maxTurns,
		Sink:       sink,
	}

	if !a.opts.loopDetectOff {
		cfg.Detector = session.detector
		cfg.LoopBreaker = prompts.LoopBreaker
	}

	if !a.opts.compressionOff {
		cfg.Summarizer = engine.NewChatSummarizer(a.client)
	}

	if !a.opts.maxBudget.IsZero() {
		cfg.Budget = budget.NewTracker(a.opts.maxBudget, a.opts.pricing)
	}

	var runner *hookrunner.Runner
	if len(a.opts.hookMatchers) > 0 {
		r, err := hookrunner.New(a.opts.hookMatchers)
		if err == nil {
			runner = r
			cfg.Hooks = &hookRunnerAdapter{runner: r, sessionID: session.ID}
		}
	}

	if a.opts.permissionMode != permission.ModeDefault || a.opts.permissionFunc != nil ||
		len(a.opts.permissionRules) > 0 || a.opts.confirm != nil {
		checker := permission.NewCheckerWithRules(a.opts.permissionMode, a.opts.permissionRules, a.opts.permissionFunc)
		cfg.Permission = &permissionAdapter{checker: checker, confirm: a.opts.confirm}
	}

	go func() {
		defer close(eventCh)

		runID := generateID("run")
		if runner != nil {
			_ = runner.RunRunBoundary(ctx, hook.RunStart, session.ID, runID)
		}
		eventCh <- &AgentStartEvent{Message: prompt}

		engine.RunLoop(ctx, cfg)

		if runner != nil {
			_ = runner.RunStop(ctx, session.ID)
			_ = runner.RunRunBoundary(ctx, hook.RunEnd, session.ID, runID)
		}
		eventCh <- &AgentEndEvent{FinalResponse: sink.finalResponse}
	}()

	return stream
}

// toolExecutorAdapter wraps ToolRegistry to satisfy the loop's executor
// contract, filtering disabled tools out of the advertised schemas.
type toolExecutorAdapter struct {
	registry *ToolRegistry
	disabled []string
}

func (t *toolExecutorAdapter) Execute(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	if t.isDisabled(name) {
		return fmt.Sprintf("Error: Tool %s is disabled", name), true, nil
	}
	return t.registry.Execute(ctx, name, args)
}

func (t *toolExecutorAdapter) Schemas() []chat.ToolSchema {
	all := t.registry.Schemas()
	if len(t.disabled) == 0 {
		return all
	}
	schemas := make([]chat.ToolSchema, 0, len(all))
	for _, s := range all {
		if !t.isDisabled(s.Name) {
			schemas = append(schemas, s)
		}
	}
	return schemas
}

func (t *toolExecutorAdapter) isDisabled(name string) bool {
	for _, d := range t.disabled {
		if d == name {
			return true
		}
	}
	return false
}

// channelSink implements the loop's event sink by sending typed events to
// the stream channel. It also remembers the last completed response text so
// the end event can carry it.
type channelSink struct {
	ch            chan Event
	finalResponse string
}

func (s *channelSink) OnTextDelta(delta string) {
	s.ch <- &TextDeltaEvent{Delta: delta}
}

func (s *channelSink) OnTextComplete(text string) {
	s.finalResponse = text
	s.ch <- &TextCompleteEvent{Content: text}
}

func (s *channelSink) OnToolCallStart(id, name string, args map[string]any) {
	s.ch <- &ToolCallStartEvent{CallID: id, Name: name, Args: args}
}

func (s *channelSink) OnToolCallComplete(id, name, output string, isError bool) {
	s.ch <- &ToolCallCompleteEvent{CallID: id, Name: name, Output: output, IsError: isError}
}

func (s *channelSink) OnError(message string) {
	s.ch <- &AgentErrorEvent{Message: message}
}

// hookRunnerAdapter bridges the loop's map-based arguments to the hook
// system's raw JSON inputs.
type hookRunnerAdapter struct {
	runner    *hookrunner.Runner
	sessionID string
}

func (h *hookRunnerAdapter) RunPreToolUse(ctx context.Context, toolName string, args map[string]any) (*engine.HookPreToolResult, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	result, err := h.runner.RunPreToolUse(ctx, h.sessionID, toolName, raw)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	out := &engine.HookPreToolResult{
		Block:  result.Block,
		Reason: result.Reason,
	}
	if result.UpdatedInput != nil {
		var updated map[string]any
		if err := json.Unmarshal(result.UpdatedInput, &updated); err == nil {
			out.UpdatedArgs = updated
		}
	}
	return out, nil
}

func (h *hookRunnerAdapter) RunPostToolUse(ctx context.Context, toolName string, args map[string]any, output string, isError bool) error {
	raw, _ := json.Marshal(args)
	if isError {
		return h.runner.RunPostToolFailure(ctx, h.sessionID, toolName, raw, fmt.Errorf("%s", output))
	}
	return h.runner.RunPostToolUse(ctx, h.sessionID, toolName, raw, output)
}

// permissionAdapter resolves permission decisions, delegating "ask" outcomes
// to the configured confirm callback.
type permissionAdapter struct {
	checker *permission.Checker
	confirm ConfirmFunc
}

func (p *permissionAdapter) Check(ctx context.Context, toolName string, args map[string]any) (bool, string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return false, "", err
	}
	decision, err := p.checker.Check(ctx, toolName, raw)
	if err != nil {
		return false, "", err
	}
	switch decision {
	case permission.Allow:
		return true, "", nil
	case permission.Deny:
		return false, "denied by permission policy", nil
	default: // Ask
		if p.confirm == nil {
			return false, "requires confirmation and no confirmation handler is configured", nil
		}
		if p.confirm(ctx, toolName, args) {
			return true, "", nil
		}
		return false, "denied by user", nil
	}
}
