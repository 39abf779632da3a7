package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"
)

// completions abstracts the OpenAI chat completion service so the client can
// be tested with a fake. Production code passes the real client.Chat.Completions.
type completions interface {
	NewStreaming(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[openai.ChatCompletionChunk]
}

// ClientConfig configures the OpenAI-backed chat client.
type ClientConfig struct {
	APIKey      string
	BaseURL     string // optional, for OpenAI-compatible endpoints
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Client is the production Completer backed by an OpenAI-compatible
// chat completion endpoint.
type Client struct {
	completions completions
	model       string
	maxTokens   int
	temperature *float64
}

var _ Completer = (*Client)(nil)

// NewClient creates a chat client talking to an OpenAI-compatible endpoint.
func NewClient(cfg ClientConfig) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)

	return &Client{
		completions: &client.Chat.Completions,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
}

// ChatCompletion starts a streaming completion and returns a typed event
// stream. Tool call fragments are accumulated by index; complete tool calls
// are emitted only once the upstream stream finishes, so consumers never see
// partially-streamed arguments.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, tools []ToolSchema) *Stream {
	if c.model == "" {
		return errorStream(errors.New("chat: no model configured"))
	}
	params := c.buildParams(messages, tools)

	events := make(chan StreamEvent, 16)
	stream := NewStream(events)

	go func() {
		defer close(events)
		c.consume(ctx, params, events)
	}()

	return stream
}

// toolCallAccumulator gathers the ID/name/argument fragments of one streamed
// tool call.
type toolCallAccumulator struct {
	id        string
	name      string
	arguments strings.Builder
	started   bool
}

func (c *Client) consume(ctx context.Context, params openai.ChatCompletionNewParams, events chan<- StreamEvent) {
	upstream := c.completions.NewStreaming(ctx, params)
	defer upstream.Close()

	calls := make(map[int]*toolCallAccumulator)
	var usage *Usage

	for upstream.Next() {
		chunk := upstream.Current()

		if chunk.Usage.TotalTokens > 0 {
			usage = &Usage{
				PromptTokens:     int(chunk.Usage.PromptTokens),
				CompletionTokens: int(chunk.Usage.CompletionTokens),
				TotalTokens:      int(chunk.Usage.TotalTokens),
			}
		}

		for _, choice := range chunk.Choices {
			delta := choice.Delta

			if delta.Content != "" {
				events <- StreamEvent{Type: EventTextDelta, TextDelta: delta.Content}
			}

			for _, tc := range delta.ToolCalls {
				idx := int(tc.Index)
				acc, ok := calls[idx]
				if !ok {
					acc = &toolCallAccumulator{}
					calls[idx] = acc
				}
				if tc.ID != "" {
					acc.id = tc.ID
				}
				if tc.Function.Name != "" {
					acc.name = tc.Function.Name
				}
				acc.arguments.WriteString(tc.Function.Arguments)

				if !acc.started {
					acc.started = true
					events <- StreamEvent{Type: EventToolCallStart, ToolCall: &ToolCall{
						ID:   acc.id,
						Name: acc.name,
					}}
				}
			}
		}
	}

	if err := upstream.Err(); err != nil {
		events <- StreamEvent{Type: EventError, Err: err}
		return
	}

	// Emit completed tool calls in request order.
	indices := make([]int, 0, len(calls))
	for idx := range calls {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, idx := range indices {
		acc := calls[idx]
		events <- StreamEvent{Type: EventToolCallComplete, ToolCall: &ToolCall{
			ID:        acc.id,
			Name:      acc.name,
			Arguments: acc.arguments.String(),
		}}
	}

	if usage != nil {
		events <- StreamEvent{Type: EventMessageComplete, Usage: usage}
	}
}

func (c *Client) buildParams(messages []Message, tools []ToolSchema) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: convertMessages(messages),
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: openai.Bool(true),
		},
	}

	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}
	if c.temperature != nil {
		params.Temperature = openai.Float(*c.temperature)
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}
	return params
}

func convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			result = append(result, buildAssistantMessage(msg))
		case RoleTool:
			result = append(result, openai.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

func buildAssistantMessage(msg Message) openai.ChatCompletionMessageParamUnion {
	assistant := openai.ChatCompletionAssistantMessageParam{
		Content: openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		},
	}

	if len(msg.ToolCalls) > 0 {
		toolCalls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			args := call.Arguments
			if args == "" {
				args = "{}"
			}
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      call.Name,
					Arguments: args,
				},
			})
		}
		assistant.ToolCalls = toolCalls
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func convertTools(tools []ToolSchema) []openai.ChatCompletionToolParam {
	result := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		tool := openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:       t.Name,
				Parameters: functionParameters(t.Parameters),
			},
		}
		if t.Description != "" {
			tool.Function.Description = openai.Opt(t.Description)
		}
		result = append(result, tool)
	}
	return result
}

func functionParameters(params map[string]any) shared.FunctionParameters {
	if len(params) == 0 {
		return shared.FunctionParameters{"type": "object"}
	}
	result := make(shared.FunctionParameters, len(params)+1)
	for k, v := range params {
		result[k] = v
	}
	if _, ok := result["type"]; !ok {
		result["type"] = "object"
	}
	return result
}

// MarshalArguments serializes structured arguments back into wire text.
func MarshalArguments(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
