package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/forgehand/forgehand/chat"
)

const summarySystemPrompt = `You are a conversation summarizer for a coding agent. Produce a structured summary of the conversation so the agent can resume work in a fresh context.

Structure the summary as:
## ORIGINAL GOAL
What was requested.
## COMPLETED ACTIONS
Every action already performed, with enough detail that none is repeated.
## CURRENT STATE
Repository, branch, and file state as of now.
## REMAINING TASKS
What still needs to be done, in order.

Be precise about file paths, branch names, and command results. Do not invent work that did not happen.`

// ChatSummarizer condenses a transcript by asking the chat endpoint for a
// structured summary. It implements Summarizer.
type ChatSummarizer struct {
	client chat.Completer
}

// NewChatSummarizer creates a summarizer backed by the given chat client.
func NewChatSummarizer(client chat.Completer) *ChatSummarizer {
	return &ChatSummarizer{client: client}
}

var _ Summarizer = (*ChatSummarizer)(nil)

// Summarize renders the transcript as plain text and requests a summary.
// No tools are offered; the summarization turn must produce text only.
func (s *ChatSummarizer) Summarize(ctx context.Context, messages []chat.Message) (string, chat.Usage, error) {
	request := []chat.Message{
		{Role: chat.RoleSystem, Content: summarySystemPrompt},
		{Role: chat.RoleUser, Content: renderTranscript(messages)},
	}

	stream := s.client.ChatCompletion(ctx, request, nil)

	var summary strings.Builder
	var usage chat.Usage

	for stream.Next() {
		event := stream.Current()
		switch event.Type {
		case chat.EventTextDelta:
			summary.WriteString(event.TextDelta)
		case chat.EventMessageComplete:
			if event.Usage != nil {
				usage = *event.Usage
			}
		case chat.EventError:
			return "", usage, fmt.Errorf("summarization failed: %w", event.Err)
		}
	}

	return summary.String(), usage, nil
}

// renderTranscript flattens the conversation into readable text for the
// summarization request. The system prompt is skipped since it describes the
// agent, not the work.
func renderTranscript(messages []chat.Message) string {
	var b strings.Builder
	b.WriteString("Summarize the following conversation:\n\n")

	for _, msg := range messages {
		switch msg.Role {
		case chat.RoleSystem:
			continue
		case chat.RoleAssistant:
			if msg.Content != "" {
				fmt.Fprintf(&b, "[assistant]\n%s\n\n", msg.Content)
			}
			for _, tc := range msg.ToolCalls {
				fmt.Fprintf(&b, "[assistant called tool %s(%s)]\n\n", tc.Name, tc.Arguments)
			}
		case chat.RoleTool:
			fmt.Fprintf(&b, "[tool result %s]\n%s\n\n", msg.ToolCallID, msg.Content)
		default:
			fmt.Fprintf(&b, "[user]\n%s\n\n", msg.Content)
		}
	}
	return b.String()
}
