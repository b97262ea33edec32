package anthropicwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgw/llmgateway/canonical"
)

func TestParseRequestDecodesStringSystemAndTextMessages(t *testing.T) {
	body := []byte(`{
		"model": "claude-3-opus",
		"max_tokens": 256,
		"system": "be terse",
		"messages": [
			{"role": "user", "content": "hello"}
		]
	}`)
	req, err := ParseRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "claude-3-opus", req.Model)
	assert.Equal(t, 256, req.Sampling.MaxTokens)
	assert.Equal(t, "be terse", canonical.TextOnly(req.System))
	require.Len(t, req.Messages, 1)
	assert.Equal(t, canonical.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "hello", canonical.TextOnly(req.Messages[0].Content))
}

func TestParseRequestDecodesBlockArrayContent(t *testing.T) {
	body := []byte(`{
		"model": "claude-3-opus",
		"max_tokens": 100,
		"messages": [
			{"role": "user", "content": [{"type": "text", "text": "hi"}]}
		]
	}`)
	req, err := ParseRequest(body)
	require.NoError(t, err)
	require.Len(t, req.Messages[0].Content, 1)
	tb, ok := req.Messages[0].Content[0].(canonical.TextBlock)
	require.True(t, ok)
	assert.Equal(t, "hi", tb.Text)
}

func TestSerializeRequestThenParseRequestRoundTrips(t *testing.T) {
	original := &canonical.Request{
		Model: "claude-3-opus",
		Sampling: canonical.SamplingParams{
			MaxTokens: 512,
		},
		Messages: []canonical.Message{
			{Role: canonical.RoleUser, Content: []canonical.ContentBlock{canonical.TextBlock{Text: "ping"}}},
			{Role: canonical.RoleAssistant, Content: []canonical.ContentBlock{canonical.TextBlock{Text: "pong"}}},
		},
	}

	wire, err := SerializeRequest(original)
	require.NoError(t, err)

	parsed, err := ParseRequest(wire)
	require.NoError(t, err)

	assert.Equal(t, original.Model, parsed.Model)
	require.Len(t, parsed.Messages, 2)
	assert.Equal(t, canonical.RoleUser, parsed.Messages[0].Role)
	assert.Equal(t, "ping", canonical.TextOnly(parsed.Messages[0].Content))
	assert.Equal(t, canonical.RoleAssistant, parsed.Messages[1].Role)
	assert.Equal(t, "pong", canonical.TextOnly(parsed.Messages[1].Content))
}

func TestParseResponseDecodesTextAndToolUseBlocks(t *testing.T) {
	body := []byte(`{
		"id": "msg_1",
		"model": "claude-3-opus",
		"role": "assistant",
		"stop_reason": "end_turn",
		"content": [
			{"type": "text", "text": "answer"},
			{"type": "tool_use", "id": "tool_1", "name": "lookup", "input": {"q": "x"}}
		],
		"usage": {"input_tokens": 10, "output_tokens": 5}
	}`)
	resp, err := ParseResponse(body)
	require.NoError(t, err)
	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, canonical.StopEndTurn, resp.StopReason)
	require.Len(t, resp.Content, 2)
	assert.Equal(t, canonical.TextBlock{Text: "answer"}, resp.Content[0])
	tu, ok := resp.Content[1].(canonical.ToolUseBlock)
	require.True(t, ok)
	assert.Equal(t, "lookup", tu.Name)
}

func TestParseRequestRejectsMalformedJSON(t *testing.T) {
	_, err := ParseRequest([]byte(`{not json`))
	assert.Error(t, err)
}
