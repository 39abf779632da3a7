package forgehand

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/forgehand/forgehand/chat"
	"github.com/forgehand/forgehand/hook"
	"github.com/forgehand/forgehand/internal/budget"
	"github.com/forgehand/forgehand/internal/transcript"
	"github.com/forgehand/forgehand/permission"
)

// AgentOption configures an Agent via the functional options pattern.
type AgentOption func(*agentOptions)

// ConfirmFunc resolves an "ask" permission decision. It is called with the
// tool name and parsed arguments and returns whether the call may proceed.
type ConfirmFunc func(ctx context.Context, toolName string, args map[string]any) bool

// agentOptions holds all configurable fields set via AgentOption functions.
type agentOptions struct {
	model           string
	apiKey          string
	baseURL         string
	systemPrompt    string
	contextWindow   int
	maxOutputTokens int
	maxTurns        int
	temperature     *float64

	pruneProtectTokens int
	pruneMinimumTokens int
	loopThreshold      int
	loopDetectOff      bool
	compressionOff     bool

	maxBudget decimal.Decimal
	pricing   map[string]budget.ModelPricing

	streamBufferSize int
	disabledTools    []string
	settingSources   []string
	instructionDirs  []string
	hookMatchers     []hook.Matcher

	permissionMode  permission.Mode
	permissionFunc  permission.Func
	permissionRules []permission.Rule
	confirm         ConfirmFunc

	chatClient chat.Completer
	estimator  transcript.Estimator
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (o *agentOptions) applyDefaults() {
	if o.model == "" {
		o.model = DefaultModel
	}
	if o.contextWindow == 0 {
		o.contextWindow = DefaultContextWindow
	}
	if o.maxOutputTokens == 0 {
		o.maxOutputTokens = DefaultMaxOutputTokens
	}
	if o.maxTurns == 0 {
		o.maxTurns = DefaultMaxTurns
	}
	if o.loopThreshold == 0 {
		o.loopThreshold = DefaultLoopThreshold
	}
	if o.streamBufferSize == 0 {
		o.streamBufferSize = DefaultStreamBufferSize
	}
	if o.pruneProtectTokens == 0 {
		o.pruneProtectTokens = DefaultPruneProtectTokens
	}
	if o.pruneMinimumTokens == 0 {
		o.pruneMinimumTokens = DefaultPruneMinimumTokens
	}
}

// resolveOptions applies all option functions and fills defaults.
func resolveOptions(opts []AgentOption) agentOptions {
	var o agentOptions
	for _, fn := range opts {
		fn(&o)
	}
	o.applyDefaults()
	return o
}

// --- Model & Context ---

// WithModel sets the chat model to use.
func WithModel(model string) AgentOption {
	return func(o *agentOptions) { o.model = model }
}

// WithAPIKey sets the API key. When unset, the OPENAI_API_KEY environment
// variable is used.
func WithAPIKey(key string) AgentOption {
	return func(o *agentOptions) { o.apiKey = key }
}

// WithBaseURL points the client at an alternative API endpoint, such as a
// local inference server.
func WithBaseURL(url string) AgentOption {
	return func(o *agentOptions) { o.baseURL = url }
}

// WithSystemPrompt sets the system prompt for new sessions.
func WithSystemPrompt(prompt string) AgentOption {
	return func(o *agentOptions) { o.systemPrompt = prompt }
}

// WithContextWindow sets the context window size in tokens.
func WithContextWindow(tokens int) AgentOption {
	return func(o *agentOptions) { o.contextWindow = tokens }
}

// WithMaxOutputTokens sets the maximum output tokens per response.
func WithMaxOutputTokens(tokens int) AgentOption {
	return func(o *agentOptions) { o.maxOutputTokens = tokens }
}

// WithMaxTurns sets the maximum number of agent loop turns per run.
func WithMaxTurns(n int) AgentOption {
	return func(o *agentOptions) { o.maxTurns = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) AgentOption {
	return func(o *agentOptions) { o.temperature = &t }
}

// --- Context management ---

// WithPruneThresholds overrides the tool-output pruning thresholds: protect
// is the newest span of tool-output tokens never pruned, minimum is the
// smallest reclaimable span worth a pass.
func WithPruneThresholds(protect, minimum int) AgentOption {
	return func(o *agentOptions) {
		o.pruneProtectTokens = protect
		o.pruneMinimumTokens = minimum
	}
}

// WithCompressionDisabled turns off transcript summarization entirely.
func WithCompressionDisabled() AgentOption {
	return func(o *agentOptions) { o.compressionOff = true }
}

// --- Loop detection ---

// WithLoopThreshold sets how many identical consecutive actions trigger
// loop-breaking. Values below 2 are clamped to 2.
func WithLoopThreshold(n int) AgentOption {
	return func(o *agentOptions) { o.loopThreshold = n }
}

// WithLoopDetectionDisabled turns off repetitive-action detection.
func WithLoopDetectionDisabled() AgentOption {
	return func(o *agentOptions) { o.loopDetectOff = true }
}

// --- Budget ---

// WithBudget sets the maximum budget in USD for a run. Zero means unlimited.
func WithBudget(maxUSD decimal.Decimal) AgentOption {
	return func(o *agentOptions) { o.maxBudget = maxUSD }
}

// WithPricing overrides the built-in per-model pricing table.
func WithPricing(pricing map[string]budget.ModelPricing) AgentOption {
	return func(o *agentOptions) { o.pricing = pricing }
}

// --- Tools ---

// WithDisabledTools disables specific tools by name.
func WithDisabledTools(names ...string) AgentOption {
	return func(o *agentOptions) { o.disabledTools = names }
}

// --- Configuration sources ---

// WithSettingSources sets the JSON settings files to merge, in order of
// increasing precedence.
func WithSettingSources(paths ...string) AgentOption {
	return func(o *agentOptions) { o.settingSources = paths }
}

// WithInstructionDirs sets directories of markdown guidance files prepended
// to the system prompt.
func WithInstructionDirs(dirs ...string) AgentOption {
	return func(o *agentOptions) { o.instructionDirs = dirs }
}

// --- Hooks ---

// WithHooks registers hook matchers that fire around tool execution and run
// boundaries.
func WithHooks(matchers ...hook.Matcher) AgentOption {
	return func(o *agentOptions) { o.hookMatchers = append(o.hookMatchers, matchers...) }
}

// --- Permissions ---

// WithPermissionMode sets the default permission behavior.
func WithPermissionMode(mode permission.Mode) AgentOption {
	return func(o *agentOptions) { o.permissionMode = mode }
}

// WithPermissionFunc sets a callback that overrides mode-based permission
// decisions.
func WithPermissionFunc(fn permission.Func) AgentOption {
	return func(o *agentOptions) { o.permissionFunc = fn }
}

// WithPermissionRules adds declarative allow/deny/ask rules consulted before
// the mode defaults.
func WithPermissionRules(rules ...permission.Rule) AgentOption {
	return func(o *agentOptions) { o.permissionRules = append(o.permissionRules, rules...) }
}

// WithConfirmFunc sets the callback that resolves "ask" decisions. Without
// one, tools that would ask are denied.
func WithConfirmFunc(fn ConfirmFunc) AgentOption {
	return func(o *agentOptions) { o.confirm = fn }
}

// --- Plumbing ---

// WithChatClient injects a chat completion client, replacing the default
// API-backed one. Mainly useful for tests and custom transports.
func WithChatClient(client chat.Completer) AgentOption {
	return func(o *agentOptions) { o.chatClient = client }
}

// WithTokenEstimator replaces the default token estimator used for pruning
// decisions.
func WithTokenEstimator(e transcript.Estimator) AgentOption {
	return func(o *agentOptions) { o.estimator = e }
}

// WithStreamBufferSize sets the event channel capacity of an AgentStream.
func WithStreamBufferSize(n int) AgentOption {
	return func(o *agentOptions) { o.streamBufferSize = n }
}
