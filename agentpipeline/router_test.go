package agentpipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgw/llmgateway/canonical"
)

type fakeRouterCaller struct {
	resp *canonical.Response
	err  error
}

func (f fakeRouterCaller) Complete(ctx context.Context, req *canonical.Request) (*canonical.Response, error) {
	return f.resp, f.err
}

func textResponse(text string) *canonical.Response {
	return &canonical.Response{Content: []canonical.ContentBlock{canonical.TextBlock{Text: text}}}
}

var pipelines = []Pipeline{
	{Name: "research", Description: "multi-hop research", FilterChain: []string{"summarizer", "responder"}},
	{Name: "support", Description: "customer support", FilterChain: []string{"responder"}},
}

func TestSelectPipelineParsesValidDecision(t *testing.T) {
	caller := fakeRouterCaller{resp: textResponse("research|gpt-4o")}
	decision, err := SelectPipeline(context.Background(), caller, &canonical.Request{}, pipelines)
	require.NoError(t, err)
	assert.Equal(t, RouterDecision{PipelineID: "research", ModelID: "gpt-4o"}, decision)
}

func TestSelectPipelineFallsThroughOnEmptyResponse(t *testing.T) {
	caller := fakeRouterCaller{resp: textResponse("")}
	_, err := SelectPipeline(context.Background(), caller, &canonical.Request{}, pipelines)
	assert.ErrorIs(t, err, ErrRouterFallthrough)
}

func TestSelectPipelineFallsThroughOnUnparseableResponse(t *testing.T) {
	caller := fakeRouterCaller{resp: textResponse("I am not sure")}
	_, err := SelectPipeline(context.Background(), caller, &canonical.Request{}, pipelines)
	assert.ErrorIs(t, err, ErrRouterFallthrough)
}

func TestSelectPipelineFallsThroughOnUnknownPipelineID(t *testing.T) {
	caller := fakeRouterCaller{resp: textResponse("nonexistent|gpt-4o")}
	_, err := SelectPipeline(context.Background(), caller, &canonical.Request{}, pipelines)
	assert.ErrorIs(t, err, ErrRouterFallthrough)
}

func TestSelectPipelineWrapsCallerError(t *testing.T) {
	caller := fakeRouterCaller{err: errors.New("upstream down")}
	_, err := SelectPipeline(context.Background(), caller, &canonical.Request{}, pipelines)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRouterFallthrough)
}

func TestSelectPipelineNoPipelinesConfigured(t *testing.T) {
	caller := fakeRouterCaller{resp: textResponse("research|gpt-4o")}
	_, err := SelectPipeline(context.Background(), caller, &canonical.Request{}, nil)
	assert.ErrorIs(t, err, ErrRouterFallthrough)
}
