// Package anthropicwire parses and serializes the Anthropic `/v1/messages`
// wire format into and out of canonical.Request/canonical.Response, covering
// the non-streaming path. The streaming event format is handled directly by
// package sse (TransformAnthropicEvent / AnthropicBuffer).
//
// Grounded on the teacher's `features/model/anthropic/client.go`
// encodeMessages/translateResponse pair (github.com/anthropics/anthropic-sdk-go
// field shapes), adapted to translate raw wire JSON against the canonical
// model instead of goa-ai's runtime/agent/model types.
package anthropicwire

import (
	"encoding/json"
	"fmt"

	"github.com/archgw/llmgateway/canonical"
)

type wireTextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type wireImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type wireContentBlock struct {
	Type      string            `json:"type"`
	Text      string            `json:"text,omitempty"`
	Source    *wireImageSource  `json:"source,omitempty"`
	Title     string            `json:"title,omitempty"`
	ID        string            `json:"id,omitempty"`
	Name      string            `json:"name,omitempty"`
	Input     json.RawMessage   `json:"input,omitempty"`
	ToolUseID string            `json:"tool_use_id,omitempty"`
	IsError   bool              `json:"is_error,omitempty"`
	Content   json.RawMessage   `json:"content,omitempty"`
}

type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

type wireRequest struct {
	Model         string          `json:"model"`
	Messages      []wireMessage   `json:"messages"`
	System        json.RawMessage `json:"system,omitempty"`
	Tools         []wireTool      `json:"tools,omitempty"`
	ToolChoice    json.RawMessage `json:"tool_choice,omitempty"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int            `json:"top_k,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
}

// ParseRequest decodes an Anthropic Messages request body into a
// canonical.Request. The `system` field may be a plain string or a block
// array; both normalize into Request.System.
func ParseRequest(body []byte) (*canonical.Request, error) {
	var wr wireRequest
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("anthropicwire: parse request: %w", err)
	}

	req := &canonical.Request{
		Model:  wr.Model,
		Stream: wr.Stream,
		Sampling: canonical.SamplingParams{
			Temperature:   wr.Temperature,
			TopP:          wr.TopP,
			TopK:          wr.TopK,
			MaxTokens:     wr.MaxTokens,
			StopSequences: wr.StopSequences,
		},
	}

	if len(wr.System) > 0 {
		blocks, err := decodeSystem(wr.System)
		if err != nil {
			return nil, err
		}
		req.System = blocks
	}

	for _, m := range wr.Messages {
		blocks, err := decodeContentBlocks(m.Content)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, canonical.Message{Role: canonical.Role(m.Role), Content: blocks})
	}

	for _, t := range wr.Tools {
		req.Tools = append(req.Tools, canonical.ToolDefinition{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
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

func decodeSystem(raw json.RawMessage) ([]canonical.ContentBlock, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		return []canonical.ContentBlock{canonical.TextBlock{Text: s}}, nil
	}
	var blocks []wireTextBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil, fmt.Errorf("anthropicwire: decode system: %w", err)
	}
	out := make([]canonical.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, canonical.TextBlock{Text: b.Text})
	}
	return out, nil
}

func decodeContentBlocks(raw json.RawMessage) ([]canonical.ContentBlock, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return nil, nil
		}
		return []canonical.ContentBlock{canonical.TextBlock{Text: s}}, nil
	}
	var wbs []wireContentBlock
	if err := json.Unmarshal(raw, &wbs); err != nil {
		return nil, fmt.Errorf("anthropicwire: decode content: %w", err)
	}
	out := make([]canonical.ContentBlock, 0, len(wbs))
	for _, wb := range wbs {
		block, err := decodeBlock(wb)
		if err != nil {
			return nil, err
		}
		out = append(out, block)
	}
	return out, nil
}

func decodeBlock(wb wireContentBlock) (canonical.ContentBlock, error) {
	switch wb.Type {
	case "text":
		return canonical.TextBlock{Text: wb.Text}, nil
	case "image":
		return canonical.ImageBlock{Source: decodeImageSource(wb.Source)}, nil
	case "document":
		return canonical.DocumentBlock{Source: decodeImageSource(wb.Source), Title: wb.Title}, nil
	case "tool_use":
		return canonical.ToolUseBlock{ID: wb.ID, Name: wb.Name, Input: wb.Input}, nil
	case "tool_result":
		content, err := decodeToolResultContent(wb.Content)
		if err != nil {
			return nil, err
		}
		return canonical.ToolResultBlock{ToolUseID: wb.ToolUseID, IsError: wb.IsError, Content: content}, nil
	case "thinking":
		return canonical.ThinkingBlock{Text: wb.Text}, nil
	default:
		raw, err := json.Marshal(wb)
		if err != nil {
			return nil, err
		}
		return canonical.OpaqueBlock{Kind: wb.Type, Raw: raw}, nil
	}
}

func decodeImageSource(s *wireImageSource) canonical.ImageSource {
	if s == nil {
		return canonical.ImageSource{}
	}
	if s.Type == "url" {
		return canonical.ImageSource{URL: s.URL}
	}
	return canonical.ImageSource{MediaType: s.MediaType, Base64Data: s.Data}
}

func decodeToolResultContent(raw json.RawMessage) ([]canonical.ContentBlock, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []canonical.ContentBlock{canonical.TextBlock{Text: s}}, nil
	}
	return decodeContentBlocks(raw)
}

func decodeToolChoice(raw json.RawMessage) (*canonical.ToolChoice, error) {
	var named struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &named); err != nil {
		return nil, fmt.Errorf("anthropicwire: decode tool_choice: %w", err)
	}
	switch named.Type {
	case "auto":
		return &canonical.ToolChoice{Mode: canonical.ToolChoiceAuto}, nil
	case "any":
		return &canonical.ToolChoice{Mode: canonical.ToolChoiceAny}, nil
	case "none":
		return &canonical.ToolChoice{Mode: canonical.ToolChoiceNone}, nil
	case "tool":
		return &canonical.ToolChoice{Mode: canonical.ToolChoiceTool, Name: named.Name}, nil
	default:
		return nil, fmt.Errorf("anthropicwire: unsupported tool_choice type %q", named.Type)
	}
}

// SerializeRequest renders a canonical.Request as Anthropic Messages wire
// JSON, dispatched to the native Anthropic provider.
func SerializeRequest(req *canonical.Request) ([]byte, error) {
	wr := wireRequest{
		Model:         req.Model,
		Stream:        req.Stream,
		MaxTokens:     req.Sampling.MaxTokens,
		Temperature:   req.Sampling.Temperature,
		TopP:          req.Sampling.TopP,
		TopK:          req.Sampling.TopK,
		StopSequences: req.Sampling.StopSequences,
	}
	if len(req.System) > 0 {
		data, err := json.Marshal(systemBlocks(req.System))
		if err != nil {
			return nil, err
		}
		wr.System = data
	}
	for _, m := range req.Messages {
		data, err := json.Marshal(encodeBlocks(m.Content))
		if err != nil {
			return nil, err
		}
		wr.Messages = append(wr.Messages, wireMessage{Role: string(m.Role), Content: data})
	}
	for _, t := range req.Tools {
		wr.Tools = append(wr.Tools, wireTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	if req.ToolChoice != nil {
		data, err := encodeToolChoice(*req.ToolChoice)
		if err != nil {
			return nil, err
		}
		wr.ToolChoice = data
	}
	return json.Marshal(wr)
}

func systemBlocks(blocks []canonical.ContentBlock) []wireTextBlock {
	out := make([]wireTextBlock, 0, len(blocks))
	for _, b := range blocks {
		if t, ok := b.(canonical.TextBlock); ok {
			out = append(out, wireTextBlock{Type: "text", Text: t.Text})
		}
	}
	return out
}

func encodeBlocks(blocks []canonical.ContentBlock) []wireContentBlock {
	out := make([]wireContentBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, encodeBlock(b))
	}
	return out
}

func encodeBlock(b canonical.ContentBlock) wireContentBlock {
	switch v := b.(type) {
	case canonical.TextBlock:
		return wireContentBlock{Type: "text", Text: v.Text}
	case canonical.ImageBlock:
		return wireContentBlock{Type: "image", Source: encodeImageSource(v.Source)}
	case canonical.DocumentBlock:
		return wireContentBlock{Type: "document", Source: encodeImageSource(v.Source), Title: v.Title}
	case canonical.ToolUseBlock:
		return wireContentBlock{Type: "tool_use", ID: v.ID, Name: v.Name, Input: v.Input}
	case canonical.ToolResultBlock:
		content, _ := json.Marshal(encodeBlocks(v.Content))
		return wireContentBlock{Type: "tool_result", ToolUseID: v.ToolUseID, IsError: v.IsError, Content: content}
	case canonical.ThinkingBlock:
		return wireContentBlock{Type: "thinking", Text: v.Text}
	case canonical.OpaqueBlock:
		var wb wireContentBlock
		_ = json.Unmarshal(v.Raw, &wb)
		return wb
	default:
		return wireContentBlock{}
	}
}

func encodeImageSource(s canonical.ImageSource) *wireImageSource {
	if s.URL != "" {
		return &wireImageSource{Type: "url", URL: s.URL}
	}
	return &wireImageSource{Type: "base64", MediaType: s.MediaType, Data: s.Base64Data}
}

func encodeToolChoice(tc canonical.ToolChoice) (json.RawMessage, error) {
	switch tc.Mode {
	case canonical.ToolChoiceAuto, "":
		return json.Marshal(map[string]string{"type": "auto"})
	case canonical.ToolChoiceAny:
		return json.Marshal(map[string]string{"type": "any"})
	case canonical.ToolChoiceNone:
		return json.Marshal(map[string]string{"type": "none"})
	case canonical.ToolChoiceTool:
		return json.Marshal(map[string]string{"type": "tool", "name": tc.Name})
	default:
		return nil, fmt.Errorf("anthropicwire: unsupported tool choice mode %q", tc.Mode)
	}
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type wireResponse struct {
	ID         string            `json:"id"`
	Model      string            `json:"model"`
	Role       string            `json:"role"`
	Content    []wireContentBlock `json:"content"`
	StopReason string            `json:"stop_reason"`
	Usage      wireUsage         `json:"usage"`
}

// ParseResponse decodes an Anthropic Messages response body into a
// canonical.Response.
func ParseResponse(body []byte) (*canonical.Response, error) {
	var wr wireResponse
	if err := json.Unmarshal(body, &wr); err != nil {
		return nil, fmt.Errorf("anthropicwire: parse response: %w", err)
	}
	blocks := make([]canonical.ContentBlock, 0, len(wr.Content))
	for _, wb := range wr.Content {
		block, err := decodeBlock(wb)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return &canonical.Response{
		ID:         wr.ID,
		Model:      wr.Model,
		Role:       canonical.Role(wr.Role),
		Content:    blocks,
		StopReason: canonical.StopReason(wr.StopReason),
		Usage: canonical.Usage{
			PromptTokens:     wr.Usage.InputTokens,
			CompletionTokens: wr.Usage.OutputTokens,
			TotalTokens:      wr.Usage.InputTokens + wr.Usage.OutputTokens,
		},
	}, nil
}

// SerializeResponse renders a canonical.Response as an Anthropic Messages
// response body, the shape returned to a client that requested ClientAPI
// AnthropicMessages.
func SerializeResponse(resp *canonical.Response) ([]byte, error) {
	wr := wireResponse{
		ID:         resp.ID,
		Model:      resp.Model,
		Role:       string(resp.Role),
		Content:    encodeBlocks(resp.Content),
		StopReason: string(resp.StopReason),
		Usage: wireUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	return json.Marshal(wr)
}
