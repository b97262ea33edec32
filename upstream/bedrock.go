package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/archgw/llmgateway/canonical"
)

// RuntimeClient is the subset of the AWS Bedrock runtime client this adapter
// needs, satisfied by *bedrockruntime.Client. Grounded on the teacher's
// bedrock.RuntimeClient.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
	ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error)
}

// BedrockClient dispatches canonical requests to AWS Bedrock via Converse.
// Used both when the client asked for the Anthropic wire and when it asked
// for the OpenAI wire against a provider whose underlying model only speaks
// Converse (apiidentity.TargetPath routes both cases to /model/{id}/converse
// or /converse-stream).
type BedrockClient struct {
	runtime RuntimeClient
}

// NewBedrockClient wraps a Bedrock runtime client.
func NewBedrockClient(runtime RuntimeClient) *BedrockClient {
	return &BedrockClient{runtime: runtime}
}

func (c *BedrockClient) buildInput(req *canonical.Request) (*bedrockruntime.ConverseInput, error) {
	if len(req.Messages) == 0 {
		return nil, errors.New("upstream/bedrock: messages are required")
	}
	var messages []brtypes.Message
	for _, m := range req.Messages {
		blocks := make([]brtypes.ContentBlock, 0, len(m.Content))
		for _, b := range m.Content {
			switch v := b.(type) {
			case canonical.TextBlock:
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: v.Text})
			case canonical.ToolUseBlock:
				var input any
				if len(v.Input) > 0 {
					_ = json.Unmarshal(v.Input, &input)
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{Value: brtypes.ToolUseBlock{
					ToolUseId: &v.ID,
					Name:      &v.Name,
					Input:     document.NewLazyDocument(input),
				}})
			case canonical.ToolResultBlock:
				content := []brtypes.ToolResultContentBlock{&brtypes.ToolResultContentBlockMemberText{Value: canonical.TextOnly(v.Content)}}
				status := brtypes.ToolResultStatusSuccess
				if v.IsError {
					status = brtypes.ToolResultStatusError
				}
				blocks = append(blocks, &brtypes.ContentBlockMemberToolResult{Value: brtypes.ToolResultBlock{
					ToolUseId: &v.ToolUseID,
					Content:   content,
					Status:    status,
				}})
			}
		}
		if len(blocks) == 0 {
			continue
		}
		role := brtypes.ConversationRoleUser
		if m.Role == canonical.RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		messages = append(messages, brtypes.Message{Role: role, Content: blocks})
	}
	if len(messages) == 0 {
		return nil, errors.New("upstream/bedrock: at least one user/assistant message required")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  &req.Model,
		Messages: messages,
	}
	if len(req.System) > 0 {
		text := canonical.TextOnly(req.System)
		input.System = []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: text}}
	}
	cfg := &brtypes.InferenceConfiguration{}
	hasCfg := false
	if req.Sampling.MaxTokens > 0 {
		v := int32(req.Sampling.MaxTokens)
		cfg.MaxTokens = &v
		hasCfg = true
	}
	if req.Sampling.Temperature != nil {
		v := float32(*req.Sampling.Temperature)
		cfg.Temperature = &v
		hasCfg = true
	}
	if req.Sampling.TopP != nil {
		v := float32(*req.Sampling.TopP)
		cfg.TopP = &v
		hasCfg = true
	}
	if len(req.Sampling.StopSequences) > 0 {
		cfg.StopSequences = req.Sampling.StopSequences
		hasCfg = true
	}
	if hasCfg {
		input.InferenceConfig = cfg
	}

	if len(req.Tools) > 0 {
		toolConfig := &brtypes.ToolConfiguration{}
		for _, t := range req.Tools {
			var schema map[string]any
			if len(t.InputSchema) > 0 {
				_ = json.Unmarshal(t.InputSchema, &schema)
			}
			toolConfig.Tools = append(toolConfig.Tools, &brtypes.ToolMemberToolSpec{Value: brtypes.ToolSpec{
				Name:        &t.Name,
				Description: &t.Description,
				InputSchema: &brtypes.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			}})
		}
		if req.ToolChoice != nil {
			switch req.ToolChoice.Mode {
			case canonical.ToolChoiceAny:
				toolConfig.ToolChoice = &brtypes.ToolChoiceMemberAny{}
			case canonical.ToolChoiceTool:
				toolConfig.ToolChoice = &brtypes.ToolChoiceMemberTool{Value: brtypes.SpecificToolChoice{Name: &req.ToolChoice.Name}}
			}
		}
		input.ToolConfig = toolConfig
	}

	return input, nil
}

// Complete issues a Converse call and translates the response.
func (c *BedrockClient) Complete(ctx context.Context, req *canonical.Request) (*canonical.Response, error) {
	input, err := c.buildInput(req)
	if err != nil {
		return nil, err
	}
	out, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("upstream/bedrock: converse: %w", err)
	}
	return translateConverseOutput(req.Model, out), nil
}

func translateConverseOutput(modelID string, out *bedrockruntime.ConverseOutput) *canonical.Response {
	resp := &canonical.Response{
		Model: modelID,
		Role:  canonical.RoleAssistant,
	}
	if msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			switch v := block.(type) {
			case *brtypes.ContentBlockMemberText:
				resp.Content = append(resp.Content, canonical.TextBlock{Text: v.Value})
			case *brtypes.ContentBlockMemberToolUse:
				var input json.RawMessage
				if v.Value.Input != nil {
					if data, err := v.Value.Input.MarshalSmithyDocument(); err == nil {
						input = data
					}
				}
				id := ""
				if v.Value.ToolUseId != nil {
					id = *v.Value.ToolUseId
				}
				name := ""
				if v.Value.Name != nil {
					name = *v.Value.Name
				}
				resp.Content = append(resp.Content, canonical.ToolUseBlock{ID: id, Name: name, Input: input})
			}
		}
	}
	resp.StopReason = bedrockStopReasonToCanonical(out.StopReason)
	if out.Usage != nil {
		resp.Usage = canonical.Usage{
			PromptTokens:     int(derefInt32(out.Usage.InputTokens)),
			CompletionTokens: int(derefInt32(out.Usage.OutputTokens)),
			TotalTokens:      int(derefInt32(out.Usage.TotalTokens)),
		}
	}
	return resp
}

func derefInt32(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}

func bedrockStopReasonToCanonical(reason brtypes.StopReason) canonical.StopReason {
	switch reason {
	case brtypes.StopReasonEndTurn:
		return canonical.StopEndTurn
	case brtypes.StopReasonMaxTokens:
		return canonical.StopMaxTokens
	case brtypes.StopReasonToolUse:
		return canonical.StopToolUse
	case brtypes.StopReasonStopSequence:
		return canonical.StopSequence
	default:
		return canonical.StopUnspecified
	}
}

// Stream issues a ConverseStream call and adapts its events into the
// (eventName, data) shape package sse expects, synthesizing the same field
// names spec.md §4.1's Anthropic-shaped events carry so the request's
// original ClientAPI determines only how the resulting StreamEvents are
// re-serialized, not how they are parsed.
func (c *BedrockClient) Stream(ctx context.Context, req *canonical.Request) (EventStream, error) {
	input, err := c.buildInput(req)
	if err != nil {
		return nil, err
	}
	streamInput := &bedrockruntime.ConverseStreamInput{ModelId: input.ModelId, Messages: input.Messages, System: input.System, InferenceConfig: input.InferenceConfig, ToolConfig: input.ToolConfig}
	out, err := c.runtime.ConverseStream(ctx, streamInput)
	if err != nil {
		return nil, fmt.Errorf("upstream/bedrock: converse_stream: %w", err)
	}
	return &bedrockEventStream{stream: out.GetStream()}, nil
}

// bedrockRecord is one synthesized (eventName, data) pair queued for the
// caller; a single Bedrock event can expand into more than one record (the
// MessageStop event carries a stop reason that Anthropic's wire splits
// across two separate events, message_delta then message_stop).
type bedrockRecord struct {
	name string
	data string
}

type bedrockEventStream struct {
	stream  *bedrockruntime.ConverseStreamEventStream
	pending []bedrockRecord
}

func (s *bedrockEventStream) Next(ctx context.Context) (string, string, bool, error) {
	for len(s.pending) == 0 {
		select {
		case ev, ok := <-s.stream.Events():
			if !ok {
				return "", "", false, s.stream.Err()
			}
			records, err := encodeBedrockEvent(ev)
			if err != nil {
				return "", "", false, err
			}
			s.pending = records
		case <-ctx.Done():
			return "", "", false, ctx.Err()
		}
	}
	rec := s.pending[0]
	s.pending = s.pending[1:]
	return rec.name, rec.data, true, nil
}

func (s *bedrockEventStream) Close() error {
	return s.stream.Close()
}

func encodeBedrockEvent(ev brtypes.ConverseStreamOutput) ([]bedrockRecord, error) {
	switch v := ev.(type) {
	case *brtypes.ConverseStreamOutputMemberMessageStart:
		payload := map[string]any{"type": "message_start", "message": map[string]any{"id": "", "model": ""}}
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		return []bedrockRecord{{"message_start", string(b)}}, nil
	case *brtypes.ConverseStreamOutputMemberContentBlockStart:
		block := map[string]any{"type": "text", "text": ""}
		if tu, ok := v.Value.Start.(*brtypes.ContentBlockStartMemberToolUse); ok {
			name, id := "", ""
			if tu.Value.Name != nil {
				name = *tu.Value.Name
			}
			if tu.Value.ToolUseId != nil {
				id = *tu.Value.ToolUseId
			}
			block = map[string]any{"type": "tool_use", "id": id, "name": name}
		}
		payload := map[string]any{"type": "content_block_start", "index": v.Value.ContentBlockIndex, "content_block": block}
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		return []bedrockRecord{{"content_block_start", string(b)}}, nil
	case *brtypes.ConverseStreamOutputMemberContentBlockDelta:
		var delta map[string]any
		switch d := v.Value.Delta.(type) {
		case *brtypes.ContentBlockDeltaMemberText:
			delta = map[string]any{"type": "text_delta", "text": d.Value}
		case *brtypes.ContentBlockDeltaMemberToolUse:
			input := ""
			if d.Value.Input != nil {
				input = *d.Value.Input
			}
			delta = map[string]any{"type": "input_json_delta", "partial_json": input}
		default:
			return nil, nil
		}
		payload := map[string]any{"type": "content_block_delta", "index": v.Value.ContentBlockIndex, "delta": delta}
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		return []bedrockRecord{{"content_block_delta", string(b)}}, nil
	case *brtypes.ConverseStreamOutputMemberContentBlockStop:
		payload := map[string]any{"type": "content_block_stop", "index": v.Value.ContentBlockIndex}
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		return []bedrockRecord{{"content_block_stop", string(b)}}, nil
	case *brtypes.ConverseStreamOutputMemberMessageStop:
		deltaPayload := map[string]any{
			"type":  "message_delta",
			"delta": map[string]any{"stop_reason": string(bedrockStopReasonToCanonical(v.Value.StopReason))},
			"usage": map[string]any{"output_tokens": 0},
		}
		db, err := json.Marshal(deltaPayload)
		if err != nil {
			return nil, err
		}
		return []bedrockRecord{
			{"message_delta", string(db)},
			{"message_stop", "{}"},
		}, nil
	default:
		return nil, nil
	}
}
