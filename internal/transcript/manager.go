// Package transcript owns the ordered conversation history sent to the chat
// endpoint. It is the single component responsible for the protocol's message
// ordering contract: every assistant message that requested tools must be
// followed, contiguously, by one tool-result message per call id before any
// other role appears. The manager repairs violations rather than rejecting
// them; the remote API hard-rejects an inconsistent transcript, so local
// repair is the only recoverable path.
package transcript

import (
	"fmt"
	"time"

	"github.com/forgehand/forgehand/chat"
)

const (
	// DefaultPruneProtectTokens is how many tokens of the most recent tool
	// output are never pruned.
	DefaultPruneProtectTokens = 40_000

	// DefaultPruneMinimumTokens is the smallest reclaim worth committing a
	// prune for.
	DefaultPruneMinimumTokens = 20_000

	// compressionRatio of the context window at which compression triggers.
	compressionRatio = 0.8

	prunedPlaceholder = "[Old tool result content cleared]"
	gapFillContent    = "Error: Tool call was not processed"
)

// Message is one transcript entry. Content is never absent; the wire
// protocol requires the field, so "no content" is stored as the empty string.
type Message struct {
	Role       chat.Role
	Content    string
	ToolCallID string
	ToolCalls  []chat.ToolCall

	tokenCount int
	prunedAt   *time.Time
}

// Pruned reports whether this message's content was replaced by the pruning
// placeholder.
func (m *Message) Pruned() bool { return m.prunedAt != nil }

// Config holds the tunable thresholds of a Manager. Zero values take the
// package defaults.
type Config struct {
	ContextWindow int
	ProtectTokens int
	MinimumTokens int
	Estimator     Estimator
}

// Manager owns the mutable message list. It is not safe for concurrent use;
// the agent loop is a single coroutine and all mutations happen between its
// suspension points.
type Manager struct {
	systemPrompt  string
	messages      []*Message
	estimator     Estimator
	contextWindow int
	protectTokens int
	minimumTokens int

	latestUsage chat.Usage
	totalUsage  chat.Usage
}

// New creates a Manager with the given system prompt and configuration.
// The system prompt is prepended at read time, not stored in the mutable list.
func New(systemPrompt string, cfg Config) *Manager {
	if cfg.ContextWindow <= 0 {
		cfg.ContextWindow = 128_000
	}
	if cfg.ProtectTokens <= 0 {
		cfg.ProtectTokens = DefaultPruneProtectTokens
	}
	if cfg.MinimumTokens <= 0 {
		cfg.MinimumTokens = DefaultPruneMinimumTokens
	}
	if cfg.Estimator == nil {
		cfg.Estimator = HeuristicEstimator{}
	}
	return &Manager{
		systemPrompt:  systemPrompt,
		estimator:     cfg.Estimator,
		contextWindow: cfg.ContextWindow,
		protectTokens: cfg.ProtectTokens,
		minimumTokens: cfg.MinimumTokens,
	}
}

// MessageCount returns the number of stored messages, excluding the synthetic
// system message. The count doubles as the anchor index for tool-result
// insertion: capture it before AddAssistantMessage and pass it to
// AddToolResult.
func (m *Manager) MessageCount() int { return len(m.messages) }

// AddUserMessage appends a user message.
func (m *Manager) AddUserMessage(content string) {
	m.messages = append(m.messages, &Message{
		Role:       chat.RoleUser,
		Content:    content,
		tokenCount: m.estimator.Count(content),
	})
}

// AddAssistantMessage appends an assistant message. Content may legitimately
// be empty when the model issued only tool calls.
func (m *Manager) AddAssistantMessage(content string, toolCalls []chat.ToolCall) {
	m.messages = append(m.messages, &Message{
		Role:       chat.RoleAssistant,
		Content:    content,
		ToolCalls:  toolCalls,
		tokenCount: m.estimator.Count(content),
	})
}

// AddToolResult records the result of a tool call. With anchor < 0 the
// message is appended. With an anchor (the index of the assistant message
// that requested the call) the result is inserted immediately after that
// assistant message, past any tool results already stacked there, so results
// for one assistant turn stay contiguous in call order regardless of the
// order they arrive.
func (m *Manager) AddToolResult(callID, content string, anchor int) {
	item := &Message{
		Role:       chat.RoleTool,
		Content:    content,
		ToolCallID: callID,
		tokenCount: m.estimator.Count(content),
	}

	if anchor < 0 || anchor >= len(m.messages) {
		m.messages = append(m.messages, item)
		return
	}

	pos := anchor + 1
	for pos < len(m.messages) && m.messages[pos].Role == chat.RoleTool {
		pos++
	}
	m.insert(pos, item)
}

func (m *Manager) insert(pos int, item *Message) {
	m.messages = append(m.messages, nil)
	copy(m.messages[pos+1:], m.messages[pos:])
	m.messages[pos] = item
}

// Messages returns the caller-ready transcript, system prompt first. Before
// returning it runs the validation pass: any assistant tool call id without
// a contiguous following tool result gets a synthesized error result inserted
// right after the assistant message's existing tool-result block. The
// validator repairs, it never fails.
func (m *Manager) Messages() []chat.Message {
	m.validate()

	out := make([]chat.Message, 0, len(m.messages)+1)
	if m.systemPrompt != "" {
		out = append(out, chat.Message{Role: chat.RoleSystem, Content: m.systemPrompt})
	}
	for _, msg := range m.messages {
		out = append(out, chat.Message{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
			ToolCalls:  msg.ToolCalls,
		})
	}
	return out
}

// validate walks the transcript and gap-fills missing tool results. This is
// the single authoritative ordering pass; it runs unconditionally before
// every request.
func (m *Manager) validate() {
	for i := 0; i < len(m.messages); i++ {
		msg := m.messages[i]
		if msg.Role != chat.RoleAssistant || len(msg.ToolCalls) == 0 {
			continue
		}

		resulted := make(map[string]bool)
		end := i + 1
		for end < len(m.messages) && m.messages[end].Role == chat.RoleTool {
			resulted[m.messages[end].ToolCallID] = true
			end++
		}

		// Insert missing results at the end of the existing tool block,
		// preserving the order the calls were requested in.
		for _, tc := range msg.ToolCalls {
			if resulted[tc.ID] {
				continue
			}
			m.insert(end, &Message{
				Role:       chat.RoleTool,
				Content:    gapFillContent,
				ToolCallID: tc.ID,
				tokenCount: m.estimator.Count(gapFillContent),
			})
			end++
		}
		i = end - 1
	}
}

// NeedsCompression reports whether the latest exchange exceeded the
// compression threshold of the context window.
func (m *Manager) NeedsCompression() bool {
	return float64(m.latestUsage.TotalTokens) > float64(m.contextWindow)*compressionRatio
}

// SetLatestUsage records the usage of the most recent exchange.
func (m *Manager) SetLatestUsage(usage chat.Usage) { m.latestUsage = usage }

// AddUsage accumulates usage into the session total.
func (m *Manager) AddUsage(usage chat.Usage) { m.totalUsage = m.totalUsage.Add(usage) }

// LatestUsage returns the usage of the most recent exchange.
func (m *Manager) LatestUsage() chat.Usage { return m.latestUsage }

// TotalUsage returns the cumulative session usage.
func (m *Manager) TotalUsage() chat.Usage { return m.totalUsage }

// ReplaceWithSummary destructively replaces the transcript with three
// synthetic messages carrying the summary and continuation scaffolding. The
// old transcript's token accounting is discarded with it.
func (m *Manager) ReplaceWithSummary(summary string) {
	m.messages = nil

	restore := fmt.Sprintf(`# Context Restoration (Previous Session Compacted)

The previous conversation was compacted due to context length limits. Below is a detailed summary of the work done so far.

**CRITICAL: Actions listed under "COMPLETED ACTIONS" are already done. DO NOT repeat them.**

---

%s

---

Resume work from where we left off. Focus ONLY on the remaining tasks.`, summary)

	ack := `I've reviewed the context from the previous session. I understand:
- The original goal and what was requested
- Which actions are ALREADY COMPLETED (I will NOT repeat these)
- The current state of the project
- What still needs to be done

I'll continue with the REMAINING tasks only, starting from where we left off.`

	continuation := "Continue with the REMAINING work only. Do NOT repeat any completed actions. " +
		"Proceed with the next step as described in the context above."

	m.AddUserMessage(restore)
	m.messages = append(m.messages, &Message{
		Role:       chat.RoleAssistant,
		Content:    ack,
		tokenCount: m.estimator.Count(ack),
	})
	m.AddUserMessage(continuation)
}

// PruneToolOutputs frees transcript size without touching structure: old
// tool-result content is replaced by a placeholder while the message itself
// (and with it the ordering contract) stays in place.
//
// Policy: skipped until at least two user messages exist (never prune the
// first exchange). Scans newest to oldest accumulating tool-output tokens;
// once the protect window is exceeded, earlier tool messages are marked.
// The scan stops at the first already-pruned message, making successive
// prunes idempotent; the frontier only moves forward. The prune commits
// only if it reclaims at least the minimum threshold. Returns the number of
// messages pruned.
func (m *Manager) PruneToolOutputs() int {
	userCount := 0
	for _, msg := range m.messages {
		if msg.Role == chat.RoleUser {
			userCount++
		}
	}
	if userCount < 2 {
		return 0
	}

	var total, reclaimable int
	var toPrune []*Message

	for i := len(m.messages) - 1; i >= 0; i-- {
		msg := m.messages[i]
		if msg.Role != chat.RoleTool || msg.ToolCallID == "" {
			continue
		}
		if msg.Pruned() {
			break
		}

		total += msg.tokenCount
		if total > m.protectTokens {
			reclaimable += msg.tokenCount
			toPrune = append(toPrune, msg)
		}
	}

	if reclaimable < m.minimumTokens {
		return 0
	}

	now := time.Now()
	for _, msg := range toPrune {
		msg.Content = prunedPlaceholder
		msg.tokenCount = m.estimator.Count(prunedPlaceholder)
		msg.prunedAt = &now
	}
	return len(toPrune)
}

// Clear removes all stored messages.
func (m *Manager) Clear() {
	m.messages = nil
}

// Clone returns a deep copy of the manager, including pruning state and
// usage counters.
func (m *Manager) Clone() *Manager {
	clone := &Manager{
		systemPrompt:  m.systemPrompt,
		messages:      make([]*Message, len(m.messages)),
		estimator:     m.estimator,
		contextWindow: m.contextWindow,
		protectTokens: m.protectTokens,
		minimumTokens: m.minimumTokens,
		latestUsage:   m.latestUsage,
		totalUsage:    m.totalUsage,
	}
	for i, msg := range m.messages {
		copied := *msg
		copied.ToolCalls = append([]chat.ToolCall(nil), msg.ToolCalls...)
		if msg.prunedAt != nil {
			at := *msg.prunedAt
			copied.prunedAt = &at
		}
		clone.messages[i] = &copied
	}
	return clone
}
