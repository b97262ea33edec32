package upstream

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgw/llmgateway/canonical"
)

type fakeRuntimeClient struct {
	converseOut *bedrockruntime.ConverseOutput
	err         error
}

func (f *fakeRuntimeClient) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	return f.converseOut, f.err
}

func (f *fakeRuntimeClient) ConverseStream(ctx context.Context, params *bedrockruntime.ConverseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseStreamOutput, error) {
	return nil, f.err
}

func TestBedrockClientCompleteTranslatesTextMessage(t *testing.T) {
	text := "hi from bedrock"
	out := &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{
			Value: brtypes.Message{
				Role: brtypes.ConversationRoleAssistant,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: text},
				},
			},
		},
		StopReason: brtypes.StopReasonEndTurn,
	}
	client := NewBedrockClient(&fakeRuntimeClient{converseOut: out})

	resp, err := client.Complete(context.Background(), &canonical.Request{
		Model:    "anthropic.claude-3",
		Messages: []canonical.Message{{Role: canonical.RoleUser, Content: []canonical.ContentBlock{canonical.TextBlock{Text: "hi"}}}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Content, 1)
	assert.Equal(t, canonical.TextBlock{Text: text}, resp.Content[0])
	assert.Equal(t, canonical.StopEndTurn, resp.StopReason)
}

func TestBedrockClientCompleteRejectsEmptyMessages(t *testing.T) {
	client := NewBedrockClient(&fakeRuntimeClient{})
	_, err := client.Complete(context.Background(), &canonical.Request{Model: "anthropic.claude-3"})
	assert.Error(t, err)
}

func TestEncodeBedrockEventContentBlockDeltaText(t *testing.T) {
	records, err := encodeBedrockEvent(&brtypes.ConverseStreamOutputMemberContentBlockDelta{
		Value: brtypes.ContentBlockDeltaEvent{
			ContentBlockIndex: 0,
			Delta:             &brtypes.ContentBlockDeltaMemberText{Value: "partial"},
		},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "content_block_delta", records[0].name)
	assert.Contains(t, records[0].data, "partial")
}

func TestEncodeBedrockEventMessageStopEmitsDeltaThenStop(t *testing.T) {
	records, err := encodeBedrockEvent(&brtypes.ConverseStreamOutputMemberMessageStop{
		Value: brtypes.MessageStopEvent{StopReason: brtypes.StopReasonEndTurn},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "message_delta", records[0].name)
	assert.Equal(t, "message_stop", records[1].name)
}
