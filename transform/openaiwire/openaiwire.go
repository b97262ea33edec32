// Package openaiwire parses and serializes the OpenAI `/v1/chat/completions`
// wire format into and out of canonical.Request/canonical.Response. This
// covers the non-streaming path only; the streaming chunk format is handled
// directly by package sse (TransformOpenAIChunk), which operates on raw SSE
// data lines rather than a fully-buffered body.
//
// Grounded on the teacher's `features/model/openai/client.go` translateResponse/
// encodeMessages pair, adapted here to translate OpenAI wire JSON against the
// canonical model instead of against goa-ai's runtime/agent/model types.
package openaiwire

import (
	"encoding/json"
	"fmt"

	"github.com/archgw/llmgateway/canonical"
)

type wireMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []wireToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function wireToolCallFunc `json:"function"`
}

type wireToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *wireImageURL   `json:"image_url,omitempty"`
}

type wireImageURL struct {
	URL string `json:"url"`
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type wireRequest struct {
	Model       string          `json:"model"`
	Messages    []wireMessage   `json:"messages"`
	Tools       []wireTool      `json:"tools,omitempty"`
	ToolChoice  json.RawMessage `json:"tool_choice,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

// ParseRequest decodes an OpenAI chat-completions request body into a
// canonical.Request. System messages are folded into Request.System rather
// than left in Messages, matching how the Anthropic wire separates system
// prompt from the turn list (spec.md §4.2 "system-prompt extraction").
func ParseRequest(body []byte) (*canonical.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("openaiwire: parse request: %w", err)
	}

	req := &canonical.Request{
		Model:  wr.Model,
		Stream: wr.Stream,
		Sampling: canonical.SamplingParams{
			Temperature:   wr.Temperature,
			TopP:          wr.TopP,
			MaxTokens:     wr.MaxTokens,
			StopSequences: wr.Stop,
		},
	}

	for _, m := range wr.Messages {
		blocks, err := decodeContent(m.Content)
		if err != nil {
			return nil, err
		}
		if m.ToolCallID != "" {
			req.Messages = append(req.Messages, canonical.Message{
				Role: canonical.RoleTool,
				Content: []canonical.ContentBlock{canonical.ToolResultBlock{
					ToolUseID: m.ToolCallID,
					Content:   blocks,
				}},
			})
			continue
		}
		for _, tc := range m.ToolCalls {
			blocks = append(blocks, canonical.ToolUseBlock{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: json.RawMessage(tc.Function.Arguments),
			})
		}
		role := canonical.Role(m.Role)
		if role == canonical.RoleSystem {
			req.System = append(req.System, blocks...)
			continue
		}
		req.Messages = append(req.Messages, canonical.Message{Role: role, Content: blocks})
	}

	for _, t := range wr.Tools {
		req.Tools = append(req.Tools, canonical.ToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: t.Function.Parameters,
		})
	}

	if len(wr.ToolChoice) > 0 {
		tc, err := decodeToolChoice(wr.ToolChoice)
		if err != nil {
			return nil, err
		}
		req.ToolChoice = tc
	}

	return req, nil
}

func decodeContent(raw json.RawMessage) ([]canonical.ContentBlock, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		return []canonical.ContentBlock{canonical.TextBlock{Text: s}}, nil
	}
	var parts []wireContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, fmt.Errorf("openaiwire: decode message content: %w", err)
	}
	var blocks []canonical.ContentBlock
	for _, p := range parts {
		switch p.Type {
		case "text":
			blocks = append(blocks, canonical.TextBlock{Text: p.Text})
		case "image_url":
			if p.ImageURL != nil {
				blocks = append(blocks, canonical.ImageBlock{Source: canonical.ImageSource{URL: p.ImageURL.URL}})
			}
		}
	}
	return blocks, nil
}

func decodeToolChoice(raw json.RawMessage) (*canonical.ToolChoice, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch s {
		case "auto":
			return &canonical.ToolChoice{Mode: canonical.ToolChoiceAuto}, nil
		case "none":
			return &canonical.ToolChoice{Mode: canonical.ToolChoiceNone}, nil
		case "required":
			return &canonical.ToolChoice{Mode: canonical.ToolChoiceAny}, nil
		}
		return nil, fmt.Errorf("openaiwire: unsupported tool_choice %q", s)
	}
	var named struct {
		Type     string `json:"type"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal(raw, &named); err != nil {
		return nil, fmt.Errorf("openaiwire: decode tool_choice: %w", err)
	}
	return &canonical.ToolChoice{Mode: canonical.ToolChoiceTool, Name: named.Function.Name}, nil
}

// SerializeRequest renders a canonical.Request as OpenAI chat-completions
// wire JSON, the shape dispatched to every OpenAI-wire-compatible provider
// (Groq, Zhipu, Qwen, Gemini, Azure OpenAI, Mistral, Deepseek, GitHub, XAI,
// TogetherAI — spec.md §4.1).
func SerializeRequest(req *canonical.Request) ([]byte, error) {
	wr := wireRequest{
		Model:     req.Model,
		Stream:    req.Stream,
		MaxTokens: req.Sampling.MaxTokens,
		Stop:      req.Sampling.StopSequences,
	}
	wr.Temperature = req.Sampling.Temperature
	wr.TopP = req.Sampling.TopP

	if len(req.System) > 0 {
		wr.Messages = append(wr.Messages, wireMessage{
			Role:    "system",
			Content: encodeTextContent(req.System),
		})
	}
	for _, m := range req.Messages {
		wm, err := encodeMessage(m)
		if err != nil {
			return nil, err
		}
		wr.Messages = append(wr.Messages, wm...)
	}
	for _, t := range req.Tools {
		wr.Tools = append(wr.Tools, wireTool{
			Type: "function",
			Function: wireFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	if req.ToolChoice != nil {
		raw, err := encodeToolChoice(*req.ToolChoice)
		if err != nil {
			return nil, err
		}
		wr.ToolChoice = raw
	}
	return json.Marshal(wr)
}

func encodeTextContent(blocks []canonical.ContentBlock) json.RawMessage {
	data, _ := json.Marshal(canonical.TextOnly(blocks))
	return data
}

func encodeMessage(m canonical.Message) ([]wireMessage, error) {
	if m.Role == canonical.RoleTool {
		for _, b := range m.Content {
			if tr, ok := b.(canonical.ToolResultBlock); ok {
				data, _ := json.Marshal(canonical.TextOnly(tr.Content))
				return []wireMessage{{Role: "tool", ToolCallID: tr.ToolUseID, Content: data}}, nil
			}
		}
	}

	var text []canonical.ContentBlock
	var calls []wireToolCall
	for _, b := range m.Content {
		switch v := b.(type) {
		case canonical.TextBlock:
			text = append(text, v)
		case canonical.ToolUseBlock:
			calls = append(calls, wireToolCall{
				ID:   v.ID,
				Type: "function",
				Function: wireToolCallFunc{
					Name:      v.Name,
					Arguments: string(v.Input),
				},
			})
		}
	}

	wm := wireMessage{Role: string(m.Role), ToolCalls: calls}
	if len(text) > 0 {
		wm.Content = encodeTextContent(text)
	}
	return []wireMessage{wm}, nil
}

func encodeToolChoice(tc canonical.ToolChoice) (json.RawMessage, error) {
	switch tc.Mode {
	case canonical.ToolChoiceAuto, "":
		return json.Marshal("auto")
	case canonical.ToolChoiceNone:
		return json.Marshal("none")
	case canonical.ToolChoiceAny:
		return json.Marshal("required")
	case canonical.ToolChoiceTool:
		return json.Marshal(struct {
			Type     string `json:"type"`
			Function struct {
				Name string `json:"name"`
			} `json:"function"`
		}{Type: "function", Function: struct {
			Name string `json:"name"`
		}{Name: tc.Name}})
	default:
		return nil, fmt.Errorf("openaiwire: unsupported tool choice mode %q", tc.Mode)
	}
}

type wireResponse struct {
	ID      string        `json:"id"`
	Model   string        `json:"model"`
	Choices []wireChoice  `json:"choices"`
	Usage   *wireUsage    `json:"usage,omitempty"`
}

type wireChoice struct {
	Index        int         `json:"index"`
	Message      wireMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type wireUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ParseResponse decodes an OpenAI chat-completions response body into a
// canonical.Response. Used when an OpenAI-wire upstream is dispatched to
// directly rather than through the SDK's typed response struct.
func ParseResponse(body []byte) (*canonical.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("openaiwire: parse response: %w", err)
	}
	if len(wr.Choices) == 0 {
		return nil, fmt.Errorf("openaiwire: response has no choices")
	}
	choice := wr.Choices[0]
	blocks, err := decodeContent(choice.Message.Content)
	if err != nil {
		return nil, err
	}
	for _, tc := range choice.Message.ToolCalls {
		blocks = append(blocks, canonical.ToolUseBlock{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: json.RawMessage(tc.Function.Arguments),
		})
	}
	resp := &canonical.Response{
		ID:         wr.ID,
		Model:      wr.Model,
		Role:       canonical.RoleAssistant,
		Content:    blocks,
		StopReason: openAIFinishReasonToCanonical(choice.FinishReason),
	}
	if wr.Usage != nil {
		resp.Usage = canonical.Usage{
			PromptTokens:     wr.Usage.PromptTokens,
			CompletionTokens: wr.Usage.CompletionTokens,
			TotalTokens:      wr.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// SerializeResponse renders a canonical.Response as an OpenAI chat-completions
// response body, the shape returned to a client that requested ClientAPI
// OpenAIChat regardless of which provider actually served the request.
func SerializeResponse(resp *canonical.Response) ([]byte, error) {
	var calls []wireToolCall
	var text []canonical.ContentBlock
	for _, b := range resp.Content {
		switch v := b.(type) {
		case canonical.TextBlock:
			text = append(text, v)
		case canonical.ToolUseBlock:
			calls = append(calls, wireToolCall{
				ID:   v.ID,
				Type: "function",
				Function: wireToolCallFunc{
					Name:      v.Name,
					Arguments: string(v.Input),
				},
			})
		}
	}
	msg := wireMessage{Role: "assistant", ToolCalls: calls}
	if len(text) > 0 {
		msg.Content = encodeTextContent(text)
	}
	wr := wireResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Choices: []wireChoice{{
			Index:        0,
			Message:      msg,
			FinishReason: canonicalStopReasonToOpenAI(resp.StopReason),
		}},
		Usage: &wireUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	return json.Marshal(wr)
}

func openAIFinishReasonToCanonical(reason string) canonical.StopReason {
	switch reason {
	case "stop":
		return canonical.StopEndTurn
	case "length":
		return canonical.StopMaxTokens
	case "tool_calls":
		return canonical.StopToolUse
	case "content_filter":
		return canonical.StopRefusal
	default:
		return canonical.StopUnspecified
	}
}

func canonicalStopReasonToOpenAI(reason canonical.StopReason) string {
	switch reason {
	case canonical.StopEndTurn:
		return "stop"
	case canonical.StopMaxTokens:
		return "length"
	case canonical.StopToolUse:
		return "tool_calls"
	case canonical.StopRefusal:
		return "content_filter"
	case canonical.StopSequence:
		return "stop"
	default:
		return "stop"
	}
}
