package sse

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lifecycleRegex encodes spec.md §4.5's ordering invariant, with the
// truncation relaxation (MessageDelta MessageStop may be absent).
var lifecycleRegex = regexp.MustCompile(
	`^message_start( content_block_start( content_block_delta)* content_block_stop)*( message_delta message_stop)?$`,
)

func eventNames(events []SseEvent) string {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.EventName
	}
	return strings.Join(names, " ")
}

func TestS3_CompleteOpenAIToAnthropicTextStream(t *testing.T) {
	buf := NewAnthropicBuffer()
	tracker := NewToolCallTracker()

	chunks := []string{
		`{"choices":[{"delta":{"role":"assistant","content":"Hello"}}]}`,
		`{"choices":[{"delta":{"content":" world"}}]}`,
		`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
	}

	for _, c := range chunks {
		buf.ObserveModelName(c)
		events, _, err := TransformOpenAIChunk(c, tracker)
		require.NoError(t, err)
		for _, ev := range events {
			buf.Handle(ev)
		}
	}
	buf.Flush()
	staged := buf.Drain()

	assert.Equal(t, "message_start content_block_start content_block_delta content_block_delta content_block_stop message_delta message_stop", eventNames(staged))
	assert.Regexp(t, lifecycleRegex, eventNames(staged))

	ms, ok := staged[0].Parsed.(MessageStart)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(ms.Message.ID, "msg_"))
}

func TestS4_TruncatedUpstreamNoMessageDelta(t *testing.T) {
	buf := NewAnthropicBuffer()
	tracker := NewToolCallTracker()

	chunks := []string{
		`{"choices":[{"delta":{"role":"assistant","content":"Hello"}}]}`,
		`{"choices":[{"delta":{"content":" world"}}]}`,
	}
	for _, c := range chunks {
		events, _, err := TransformOpenAIChunk(c, tracker)
		require.NoError(t, err)
		for _, ev := range events {
			buf.Handle(ev)
		}
	}
	buf.Flush()
	staged := buf.Drain()

	assert.Equal(t, "message_start content_block_start content_block_delta content_block_delta content_block_stop", eventNames(staged))
	assert.Regexp(t, lifecycleRegex, eventNames(staged))
}

func TestS5_ToolCallStream(t *testing.T) {
	buf := NewAnthropicBuffer()
	tracker := NewToolCallTracker()

	argChunks := []string{`{`, `\"location\":\"`, `San`, ` Francisco`, `,`, ` CA\"}`}
	var chunks []string
	chunks = append(chunks, `{"choices":[{"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_2Uzw0AEZQeOex2CP2TKjcLKc","function":{"name":"get_weather","arguments":""}}]}}]}`)
	for _, a := range argChunks {
		chunks = append(chunks, `{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"`+a+`"}}]}}]}`)
	}
	chunks = append(chunks, `{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`)

	for _, c := range chunks {
		events, _, err := TransformOpenAIChunk(c, tracker)
		require.NoError(t, err)
		for _, ev := range events {
			buf.Handle(ev)
		}
	}
	buf.Flush()
	staged := buf.Drain()

	assert.Equal(t,
		"message_start content_block_start content_block_delta content_block_delta content_block_delta content_block_delta content_block_delta content_block_delta content_block_stop message_delta message_stop",
		eventNames(staged),
	)
	assert.Regexp(t, lifecycleRegex, eventNames(staged))

	start, ok := staged[1].Parsed.(ContentBlockStart)
	require.True(t, ok)
	tu, ok := start.Block.(ToolUseBlockKind)
	require.True(t, ok)
	assert.Equal(t, "call_2Uzw0AEZQeOex2CP2TKjcLKc", tu.ID)
	assert.Equal(t, "get_weather", tu.Name)
	assert.Equal(t, 0, start.Index, "a tool call with no preceding text must claim content-block index 0")

	md, ok := staged[len(staged)-2].Parsed.(MessageDelta)
	require.True(t, ok)
	assert.Equal(t, "tool_use", md.StopReason)
}

func TestEmptyStreamNeverPanics(t *testing.T) {
	buf := NewAnthropicBuffer()
	buf.Flush()
	assert.Empty(t, buf.Drain())
}
