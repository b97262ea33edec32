package openaiwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgw/llmgateway/canonical"
)

func TestParseRequestDecodesSimpleStringContent(t *testing.T) {
	body := []byte(`{
		"model": "gpt-4o",
		"messages": [
			{"role": "user", "content": "hi"}
		]
	}`)
	req, err := ParseRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", req.Model)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, canonical.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "hi", canonical.TextOnly(req.Messages[0].Content))
}

func TestParseResponseDecodesToolCalls(t *testing.T) {
	body := []byte(`{
		"id": "chatcmpl-1",
		"model": "gpt-4o",
		"choices": [{
			"index": 0,
			"message": {
				"role": "assistant",
				"tool_calls": [{
					"id": "call_1",
					"type": "function",
					"function": {"name": "lookup", "arguments": "{\"q\":\"x\"}"}
				}]
			},
			"finish_reason": "tool_calls"
		}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 2, "total_tokens": 12}
	}`)
	resp, err := ParseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, canonical.StopToolUse, resp.StopReason)
	require.Len(t, resp.Content, 1)
	tu, ok := resp.Content[0].(canonical.ToolUseBlock)
	require.True(t, ok)
	assert.Equal(t, "lookup", tu.Name)
	assert.Equal(t, 12, resp.Usage.TotalTokens)
}

func TestParseResponseRejectsNoChoices(t *testing.T) {
	body := []byte(`{"id": "chatcmpl-1", "model": "gpt-4o", "choices": []}`)
	_, err := ParseResponse(body)
	assert.Error(t, err)
}

func TestSerializeResponseEncodesTextAndToolCalls(t *testing.T) {
	resp := &canonical.Response{
		ID:    "chatcmpl-2",
		Model: "gpt-4o",
		Content: []canonical.ContentBlock{
			canonical.TextBlock{Text: "done"},
		},
		StopReason: canonical.StopEndTurn,
		Usage:      canonical.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4},
	}
	out, err := SerializeResponse(resp)
	require.NoError(t, err)

	reparsed, err := ParseResponse(out)
	require.NoError(t, err)
	assert.Equal(t, "done", canonical.TextOnly(reparsed.Content))
	assert.Equal(t, canonical.StopEndTurn, reparsed.StopReason)
	assert.Equal(t, 4, reparsed.Usage.TotalTokens)
}
