package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"github.com/archgw/llmgateway/canonical"
)

// ChatClient is the subset of the OpenAI SDK client this adapter needs,
// satisfied by *oai.ChatCompletionService so tests can substitute a fake.
// Grounded on the teacher's openai.ChatClient (there built against
// go-openai's CreateChatCompletion; adapted here to the pack's other
// reference — github.com/openai/openai-go's typed New/NewStreaming split,
// matching the Anthropic adapter's shape).
type ChatClient interface {
	New(ctx context.Context, body oai.ChatCompletionNewParams, opts ...option.RequestOption) (*oai.ChatCompletion, error)
	NewStreaming(ctx context.Context, body oai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[oai.ChatCompletionChunk]
}

// OpenAICompatClient dispatches canonical requests over the OpenAI chat
// completions wire, used both for native OpenAI and for every OpenAI-wire
// compatible provider (Groq, Zhipu, Qwen, Gemini, Azure OpenAI, Mistral,
// Deepseek, GitHub, XAI, TogetherAI — spec.md §4.1), the only difference
// between them being the base URL and auth header baked into the SDK client
// at construction.
type OpenAICompatClient struct {
	chat ChatClient
}

// NewOpenAICompatClient wraps an OpenAI-wire chat completions client.
func NewOpenAICompatClient(chat ChatClient) *OpenAICompatClient {
	return &OpenAICompatClient{chat: chat}
}

// NewOpenAICompatClientFromConfig constructs a client pointed at an
// arbitrary OpenAI-wire endpoint, the shape every non-native provider in
// spec.md §6's llm_providers[] table uses (an access key and an endpoint
// override).
func NewOpenAICompatClientFromConfig(accessKey, endpoint string) *OpenAICompatClient {
	opts := []option.RequestOption{option.WithAPIKey(accessKey)}
	if endpoint != "" {
		opts = append(opts, option.WithBaseURL(endpoint))
	}
	c := oai.NewClient(opts...)
	return NewOpenAICompatClient(&c.Chat.Completions)
}

// buildAssistantMessage walks an assistant turn's content blocks the same
// way anthropic.go's buildParams and bedrock.go's buildInput do, carrying
// any ToolUseBlock through as an OpenAI tool call param instead of
// collapsing the message to text-only — a prior assistant tool call must
// survive the round-trip for the client to later match it against its
// ToolResultBlock.
func buildAssistantMessage(content []canonical.ContentBlock) oai.ChatCompletionMessageParamUnion {
	text := canonical.TextOnly(content)
	var toolCalls []oai.ChatCompletionMessageToolCallParam
	for _, b := range content {
		tu, ok := b.(canonical.ToolUseBlock)
		if !ok {
			continue
		}
		toolCalls = append(toolCalls, oai.ChatCompletionMessageToolCallParam{
			ID:   tu.ID,
			Type: "function",
			Function: oai.ChatCompletionMessageToolCallFunctionParam{
				Name:      tu.Name,
				Arguments: string(tu.Input),
			},
		})
	}
	if len(toolCalls) == 0 {
		return oai.AssistantMessage(text)
	}
	assistantMsg := oai.ChatCompletionAssistantMessageParam{
		Role:      "assistant",
		ToolCalls: toolCalls,
	}
	if text != "" {
		assistantMsg.Content = oai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: oai.String(text),
		}
	}
	return oai.ChatCompletionMessageParamUnion{OfAssistant: &assistantMsg}
}

func buildChatParams(req *canonical.Request) (oai.ChatCompletionNewParams, error) {
	if len(req.Messages) == 0 {
		return oai.ChatCompletionNewParams{}, errors.New("upstream/openaicompat: messages are required")
	}
	var msgs []oai.ChatCompletionMessageParamUnion
	if len(req.System) > 0 {
		msgs = append(msgs, oai.SystemMessage(canonical.TextOnly(req.System)))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case canonical.RoleUser:
			msgs = append(msgs, oai.UserMessage(canonical.TextOnly(m.Content)))
		case canonical.RoleAssistant:
			msgs = append(msgs, buildAssistantMessage(m.Content))
		case canonical.RoleTool:
			for _, b := range m.Content {
				if tr, ok := b.(canonical.ToolResultBlock); ok {
					msgs = append(msgs, oai.ToolMessage(canonical.TextOnly(tr.Content), tr.ToolUseID))
				}
			}
		}
	}
	if len(msgs) == 0 {
		return oai.ChatCompletionNewParams{}, errors.New("upstream/openaicompat: at least one message required")
	}

	params := oai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: msgs,
	}
	if req.Sampling.MaxTokens > 0 {
		params.MaxTokens = oai.Int(int64(req.Sampling.MaxTokens))
	}
	if req.Sampling.Temperature != nil {
		params.Temperature = oai.Float(*req.Sampling.Temperature)
	}
	if req.Sampling.TopP != nil {
		params.TopP = oai.Float(*req.Sampling.TopP)
	}
	if len(req.Sampling.StopSequences) > 0 {
		params.Stop = oai.ChatCompletionNewParamsStopUnion{OfStringArray: req.Sampling.StopSequences}
	}
	for _, t := range req.Tools {
		var schema map[string]any
		if len(t.InputSchema) > 0 {
			_ = json.Unmarshal(t.InputSchema, &schema)
		}
		params.Tools = append(params.Tools, oai.ChatCompletionToolParam{
			Function: oai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: oai.String(t.Description),
				Parameters:  schema,
			},
		})
	}
	if req.ToolChoice != nil {
		switch req.ToolChoice.Mode {
		case canonical.ToolChoiceAuto:
			params.ToolChoice = oai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: oai.String("auto")}
		case canonical.ToolChoiceAny:
			params.ToolChoice = oai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: oai.String("required")}
		case canonical.ToolChoiceNone:
			params.ToolChoice = oai.ChatCompletionToolChoiceOptionUnionParam{OfAuto: oai.String("none")}
		case canonical.ToolChoiceTool:
			params.ToolChoice = oai.ChatCompletionToolChoiceOptionUnionParam{
				OfChatCompletionNamedToolChoice: &oai.ChatCompletionNamedToolChoiceParam{
					Function: oai.ChatCompletionNamedToolChoiceFunctionParam{Name: req.ToolChoice.Name},
				},
			}
		}
	}
	return params, nil
}

// Complete issues a non-streaming chat completion call.
func (c *OpenAICompatClient) Complete(ctx context.Context, req *canonical.Request) (*canonical.Response, error) {
	params, err := buildChatParams(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("upstream/openaicompat: chat.completions.new: %w", err)
	}
	return translateChatCompletion(resp), nil
}

func translateChatCompletion(resp *oai.ChatCompletion) *canonical.Response {
	out := &canonical.Response{
		ID:    resp.ID,
		Model: resp.Model,
		Role:  canonical.RoleAssistant,
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		if choice.Message.Content != "" {
			out.Content = append(out.Content, canonical.TextBlock{Text: choice.Message.Content})
		}
		for _, tc := range choice.Message.ToolCalls {
			out.Content = append(out.Content, canonical.ToolUseBlock{
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: json.RawMessage(tc.Function.Arguments),
			})
		}
		out.StopReason = openAIFinishReasonToCanonical(string(choice.FinishReason))
	}
	out.Usage = canonical.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return out
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

// Stream issues a streaming chat completion call and adapts each SDK chunk
// into the raw `data:` string package sse's TransformOpenAIChunk expects.
func (c *OpenAICompatClient) Stream(ctx context.Context, req *canonical.Request) (EventStream, error) {
	params, err := buildChatParams(req)
	if err != nil {
		return nil, err
	}
	stream := c.chat.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, fmt.Errorf("upstream/openaicompat: chat.completions.new stream: %w", err)
	}
	return &openAIEventStream{stream: stream}, nil
}

type openAIEventStream struct {
	stream *ssestream.Stream[oai.ChatCompletionChunk]
}

func (s *openAIEventStream) Next(ctx context.Context) (string, string, bool, error) {
	if !s.stream.Next() {
		if err := s.stream.Err(); err != nil {
			return "", "", false, err
		}
		return "", "", false, nil
	}
	chunk := s.stream.Current()
	data, err := json.Marshal(chunk)
	if err != nil {
		return "", "", false, err
	}
	return "", string(data), true, nil
}

func (s *openAIEventStream) Close() error {
	return s.stream.Close()
}
