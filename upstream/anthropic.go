package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/archgw/llmgateway/canonical"
)

// MessagesClient is the subset of the Anthropic SDK client this adapter
// needs, satisfied by *sdk.MessageService so tests can substitute a fake.
// Grounded on the teacher's anthropic.MessagesClient.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
	NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion]
}

// AnthropicClient dispatches canonical requests to the native Anthropic
// Messages API.
type AnthropicClient struct {
	msg MessagesClient
}

// NewAnthropicClient wraps an Anthropic SDK client.
func NewAnthropicClient(msg MessagesClient) *AnthropicClient {
	return &AnthropicClient{msg: msg}
}

// NewAnthropicClientFromAPIKey constructs a client from a bare API key.
func NewAnthropicClientFromAPIKey(apiKey string) *AnthropicClient {
	c := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClient(&c.Messages)
}

func (c *AnthropicClient) buildParams(req *canonical.Request) (sdk.MessageNewParams, error) {
	if len(req.Messages) == 0 {
		return sdk.MessageNewParams{}, errors.New("upstream/anthropic: messages are required")
	}
	if req.Sampling.MaxTokens <= 0 {
		return sdk.MessageNewParams{}, errors.New("upstream/anthropic: max_tokens must be positive")
	}

	var msgs []sdk.MessageParam
	for _, m := range req.Messages {
		blocks := make([]sdk.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch v := b.(type) {
			case canonical.TextBlock:
				blocks = append(blocks, sdk.NewTextBlock(v.Text))
			case canonical.ToolUseBlock:
				var input any
				if len(v.Input) > 0 {
					_ = json.Unmarshal(v.Input, &input)
				}
				blocks = append(blocks, sdk.NewToolUseBlock(v.ID, input, v.Name))
			case canonical.ToolResultBlock:
				blocks = append(blocks, sdk.NewToolResultBlock(v.ToolUseID, canonical.TextOnly(v.Content), v.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		switch m.Role {
		case canonical.RoleUser, canonical.RoleTool:
			msgs = append(msgs, sdk.NewUserMessage(blocks...))
		case canonical.RoleAssistant:
			msgs = append(msgs, sdk.NewAssistantMessage(blocks...))
		}
	}
	if len(msgs) == 0 {
		return sdk.MessageNewParams{}, errors.New("upstream/anthropic: at least one user/assistant message required")
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(req.Sampling.MaxTokens),
		Messages:  msgs,
	}
	if len(req.System) > 0 {
		params.System = []sdk.TextBlockParam{{Text: canonical.TextOnly(req.System)}}
	}
	if req.Sampling.Temperature != nil {
		params.Temperature = sdk.Float(*req.Sampling.Temperature)
	}
	if req.Sampling.TopP != nil {
		params.TopP = sdk.Float(*req.Sampling.TopP)
	}
	if len(req.Sampling.StopSequences) > 0 {
		params.StopSequences = req.Sampling.StopSequences
	}
	for _, t := range req.Tools {
		schema, err := toolInputSchema(t.InputSchema)
		if err != nil {
			return sdk.MessageNewParams{}, fmt.Errorf("upstream/anthropic: tool %q schema: %w", t.Name, err)
		}
		u := sdk.ToolUnionParamOfTool(schema, t.Name)
		if u.OfTool != nil {
			u.OfTool.Description = sdk.String(t.Description)
		}
		params.Tools = append(params.Tools, u)
	}
	if req.ToolChoice != nil {
		switch req.ToolChoice.Mode {
		case canonical.ToolChoiceAny:
			params.ToolChoice = sdk.ToolChoiceUnionParam{OfAny: &sdk.ToolChoiceAnyParam{}}
		case canonical.ToolChoiceTool:
			params.ToolChoice = sdk.ToolChoiceParamOfTool(req.ToolChoice.Name)
		case canonical.ToolChoiceNone:
			none := sdk.NewToolChoiceNoneParam()
			params.ToolChoice = sdk.ToolChoiceUnionParam{OfNone: &none}
		}
	}
	return params, nil
}

func toolInputSchema(schema json.RawMessage) (sdk.ToolInputSchemaParam, error) {
	if len(schema) == 0 {
		return sdk.ToolInputSchemaParam{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(schema, &m); err != nil {
		return sdk.ToolInputSchemaParam{}, err
	}
	return sdk.ToolInputSchemaParam{ExtraFields: m}, nil
}

// Complete issues a non-streaming Messages.New call.
func (c *AnthropicClient) Complete(ctx context.Context, req *canonical.Request) (*canonical.Response, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}
	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("upstream/anthropic: messages.new: %w", err)
	}
	return translateMessage(msg), nil
}

func translateMessage(msg *sdk.Message) *canonical.Response {
	resp := &canonical.Response{
		ID:         msg.ID,
		Model:      string(msg.Model),
		Role:       canonical.RoleAssistant,
		StopReason: canonical.StopReason(msg.StopReason),
		Usage: canonical.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Content = append(resp.Content, canonical.TextBlock{Text: block.Text})
		case "tool_use":
			resp.Content = append(resp.Content, canonical.ToolUseBlock{ID: block.ID, Name: block.Name, Input: block.Input})
		}
	}
	return resp
}

// Stream issues a streaming Messages.New call and adapts the SDK's typed
// event union into the (eventName, data) shape package sse expects,
// reconstructing each event's JSON body from the accessible SDK fields so
// downstream TransformAnthropicEvent sees the same shape a real Anthropic
// SSE body would carry.
func (c *AnthropicClient) Stream(ctx context.Context, req *canonical.Request) (EventStream, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}
	stream := c.msg.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("upstream/anthropic: messages.new stream: %w", err)
	}
	return &anthropicEventStream{ctx: ctx, stream: stream}, nil
}

type anthropicEventStream struct {
	ctx    context.Context
	stream *ssestream.Stream[sdk.MessageStreamEventUnion]
}

func (s *anthropicEventStream) Next(ctx context.Context) (string, string, bool, error) {
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return "", "", false, err
		}
		return "", "", false, nil
	}
	ev := s.stream.Current()
	name, data, err := encodeAnthropicEvent(ev)
	if err != nil {
		return "", "", false, err
	}
	if name == "" {
		return s.Next(ctx)
	}
	return name, data, true, nil
}

func (s *anthropicEventStream) Close() error {
	return s.stream.Close()
}

func encodeAnthropicEvent(ev sdk.MessageStreamEventUnion) (name, data string, err error) {
	switch v := ev.AsAny().(type) {
	case sdk.MessageStartEvent:
		payload := map[string]any{"type": "message_start", "message": map[string]any{"id": v.Message.ID, "model": string(v.Message.Model)}}
		b, err := json.Marshal(payload)
		return "message_start", string(b), err
	case sdk.ContentBlockStartEvent:
		block := map[string]any{}
		switch cb := v.ContentBlock.AsAny().(type) {
		case sdk.ToolUseBlock:
			block = map[string]any{"type": "tool_use", "id": cb.ID, "name": cb.Name}
		default:
			block = map[string]any{"type": "text", "text": ""}
		}
		payload := map[string]any{"type": "content_block_start", "index": v.Index, "content_block": block}
		b, err := json.Marshal(payload)
		return "content_block_start", string(b), err
	case sdk.ContentBlockDeltaEvent:
		var delta map[string]any
		switch d := v.Delta.AsAny().(type) {
		case sdk.TextDelta:
			delta = map[string]any{"type": "text_delta", "text": d.Text}
		case sdk.InputJSONDelta:
			delta = map[string]any{"type": "input_json_delta", "partial_json": d.PartialJSON}
		default:
			return "", "", nil
		}
		payload := map[string]any{"type": "content_block_delta", "index": v.Index, "delta": delta}
		b, err := json.Marshal(payload)
		return "content_block_delta", string(b), err
	case sdk.ContentBlockStopEvent:
		payload := map[string]any{"type": "content_block_stop", "index": v.Index}
		b, err := json.Marshal(payload)
		return "content_block_stop", string(b), err
	case sdk.MessageDeltaEvent:
		payload := map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": string(v.Delta.StopReason)},
			"usage": map[string]any{"output_tokens": v.Usage.OutputTokens},
		}
		b, err := json.Marshal(payload)
		return "message_delta", string(b), err
	case sdk.MessageStopEvent:
		return "message_stop", "{}", nil
	default:
		return "", "", nil
	}
}
