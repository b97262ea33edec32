package upstream

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgw/llmgateway/canonical"
)

type fakeMessagesClient struct {
	resp *sdk.Message
	err  error
}

func (f *fakeMessagesClient) New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error) {
	return f.resp, f.err
}

func (f *fakeMessagesClient) NewStreaming(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) *ssestream.Stream[sdk.MessageStreamEventUnion] {
	return nil
}

func TestAnthropicClientCompleteTranslatesTextBlock(t *testing.T) {
	resp := &sdk.Message{
		ID:         "msg_1",
		Model:      "claude-3-opus",
		StopReason: "end_turn",
		Usage:      sdk.Usage{InputTokens: 10, OutputTokens: 4},
		Content: []sdk.ContentBlockUnion{
			{Type: "text", Text: "hello"},
		},
	}
	client := NewAnthropicClient(&fakeMessagesClient{resp: resp})

	out, err := client.Complete(context.Background(), &canonical.Request{
		Model:    "claude-3-opus",
		Sampling: canonical.SamplingParams{MaxTokens: 100},
		Messages: []canonical.Message{{Role: canonical.RoleUser, Content: []canonical.ContentBlock{canonical.TextBlock{Text: "hi"}}}},
	})
	require.NoError(t, err)
	require.Len(t, out.Content, 1)
	assert.Equal(t, canonical.TextBlock{Text: "hello"}, out.Content[0])
	assert.Equal(t, 14, out.Usage.TotalTokens)
}

func TestAnthropicClientCompleteRequiresMaxTokens(t *testing.T) {
	client := NewAnthropicClient(&fakeMessagesClient{})
	_, err := client.Complete(context.Background(), &canonical.Request{
		Model:    "claude-3-opus",
		Messages: []canonical.Message{{Role: canonical.RoleUser, Content: []canonical.ContentBlock{canonical.TextBlock{Text: "hi"}}}},
	})
	assert.Error(t, err)
}

func TestAnthropicClientCompleteRequiresMessages(t *testing.T) {
	client := NewAnthropicClient(&fakeMessagesClient{})
	_, err := client.Complete(context.Background(), &canonical.Request{
		Model:    "claude-3-opus",
		Sampling: canonical.SamplingParams{MaxTokens: 100},
	})
	assert.Error(t, err)
}

func TestEncodeAnthropicEventMessageStop(t *testing.T) {
	name, data, err := encodeAnthropicEvent(sdk.MessageStreamEventUnion{Type: "message_stop"})
	require.NoError(t, err)
	assert.Equal(t, "message_stop", name)
	assert.Equal(t, "{}", data)
}
