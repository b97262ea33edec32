package upstream

import (
	"context"
	"encoding/json"
	"testing"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgw/llmgateway/canonical"
)

type fakeChatClient struct {
	resp *oai.ChatCompletion
	err  error
}

func (f *fakeChatClient) New(ctx context.Context, body oai.ChatCompletionNewParams, opts ...option.RequestOption) (*oai.ChatCompletion, error) {
	return f.resp, f.err
}

func (f *fakeChatClient) NewStreaming(ctx context.Context, body oai.ChatCompletionNewParams, opts ...option.RequestOption) *ssestream.Stream[oai.ChatCompletionChunk] {
	return nil
}

func TestOpenAICompatClientCompleteTranslatesChoice(t *testing.T) {
	resp := &oai.ChatCompletion{
		ID:    "chatcmpl-1",
		Model: "gpt-4o",
		Choices: []oai.ChatCompletionChoice{
			{
				Message:      oai.ChatCompletionMessage{Content: "hi there"},
				FinishReason: "stop",
			},
		},
		Usage: oai.CompletionUsage{PromptTokens: 5, CompletionTokens: 3, TotalTokens: 8},
	}
	client := NewOpenAICompatClient(&fakeChatClient{resp: resp})

	out, err := client.Complete(context.Background(), &canonical.Request{
		Model:    "gpt-4o",
		Messages: []canonical.Message{{Role: canonical.RoleUser, Content: []canonical.ContentBlock{canonical.TextBlock{Text: "hi"}}}},
	})
	require.NoError(t, err)
	require.Len(t, out.Content, 1)
	assert.Equal(t, canonical.TextBlock{Text: "hi there"}, out.Content[0])
	assert.Equal(t, canonical.StopEndTurn, out.StopReason)
	assert.Equal(t, 8, out.Usage.TotalTokens)
}

func TestOpenAICompatClientCompleteRejectsEmptyMessages(t *testing.T) {
	client := NewOpenAICompatClient(&fakeChatClient{})
	_, err := client.Complete(context.Background(), &canonical.Request{Model: "gpt-4o"})
	assert.Error(t, err)
}

func TestBuildChatParamsPreservesAssistantToolCalls(t *testing.T) {
	params, err := buildChatParams(&canonical.Request{
		Model: "gpt-4o",
		Messages: []canonical.Message{
			{Role: canonical.RoleUser, Content: []canonical.ContentBlock{canonical.TextBlock{Text: "what's the weather?"}}},
			{Role: canonical.RoleAssistant, Content: []canonical.ContentBlock{
				canonical.ToolUseBlock{ID: "call_1", Name: "get_weather", Input: json.RawMessage(`{"city":"SF"}`)},
			}},
			{Role: canonical.RoleTool, Content: []canonical.ContentBlock{
				canonical.ToolResultBlock{ToolUseID: "call_1", Content: []canonical.ContentBlock{canonical.TextBlock{Text: "72F"}}},
			}},
		},
	})
	require.NoError(t, err)
	require.Len(t, params.Messages, 3)

	body, err := json.Marshal(params.Messages[1])
	require.NoError(t, err)

	var decoded struct {
		Role      string `json:"role"`
		ToolCalls []struct {
			ID       string `json:"id"`
			Type     string `json:"type"`
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	}
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "assistant", decoded.Role)
	require.Len(t, decoded.ToolCalls, 1)
	assert.Equal(t, "call_1", decoded.ToolCalls[0].ID)
	assert.Equal(t, "function", decoded.ToolCalls[0].Type)
	assert.Equal(t, "get_weather", decoded.ToolCalls[0].Function.Name)
	assert.Equal(t, `{"city":"SF"}`, decoded.ToolCalls[0].Function.Arguments)
}

func TestOpenAIFinishReasonToCanonical(t *testing.T) {
	cases := map[string]canonical.StopReason{
		"stop":           canonical.StopEndTurn,
		"length":         canonical.StopMaxTokens,
		"tool_calls":     canonical.StopToolUse,
		"content_filter": canonical.StopRefusal,
		"unknown_value":  canonical.StopUnspecified,
	}
	for reason, want := range cases {
		assert.Equal(t, want, openAIFinishReasonToCanonical(reason))
	}
}
