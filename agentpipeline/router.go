package agentpipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/archgw/llmgateway/canonical"
)

// ErrRouterFallthrough signals that the router LLM's response could not be
// parsed into a (pipeline_id, model_id) pair, or was empty — spec.md §4.9's
// "if parsing fails or response is empty, route falls through to
// provider-default behavior (no agent orchestration)". Callers treat this
// as a soft-fail, not a request error: the gateway proceeds as if routing
// preferences were never configured.
var ErrRouterFallthrough = fmt.Errorf("agentpipeline: router LLM response did not select a pipeline")

// RouterDecision is the parsed result of a router-LLM call.
type RouterDecision struct {
	PipelineID string
	ModelID    string
}

// RouterCaller issues the actual router-LLM completion call. Implemented by
// upstream.Client against the internal Arch provider (apiidentity.ProviderArch)
// so this package stays transport-agnostic and testable with a fake.
type RouterCaller interface {
	Complete(ctx context.Context, req *canonical.Request) (*canonical.Response, error)
}

// routerPromptTemplate renders the router-model instruction wrapping the
// conversation and the available pipelines, grounded on spec.md §4.9's
// "request built by the router-model template" — kept minimal since the
// exact prompt text is an implementation detail the router model is tuned
// against, not a wire contract.
func routerPromptTemplate(pipelines []Pipeline) string {
	var b strings.Builder
	b.WriteString("Select the best matching pipeline_id and model_id for this conversation. ")
	b.WriteString("Respond with exactly one line formatted as `pipeline_id|model_id`. ")
	b.WriteString("Available pipelines: ")
	for i, p := range pipelines {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Description != "" {
			fmt.Fprintf(&b, " (%s)", p.Description)
		}
	}
	return b.String()
}

// SelectPipeline calls the router LLM with the conversation plus a system
// instruction naming the candidate pipelines, and parses the response.
// Returns ErrRouterFallthrough (never wrapped) when the response is empty
// or unparseable, per spec.md §4.9.
func SelectPipeline(ctx context.Context, caller RouterCaller, req *canonical.Request, pipelines []Pipeline) (RouterDecision, error) {
	if len(pipelines) == 0 {
		return RouterDecision{}, ErrRouterFallthrough
	}

	routerReq := &canonical.Request{
		Model:    "arch-router",
		Messages: req.Messages,
		System:   append(append([]canonical.ContentBlock{}, req.System...), canonical.TextBlock{Text: routerPromptTemplate(pipelines)}),
		Sampling: canonical.SamplingParams{MaxTokens: 64},
	}

	resp, err := caller.Complete(ctx, routerReq)
	if err != nil {
		return RouterDecision{}, fmt.Errorf("agentpipeline: router LLM call: %w", err)
	}

	text := strings.TrimSpace(canonical.TextOnly(resp.Content))
	if text == "" {
		return RouterDecision{}, ErrRouterFallthrough
	}

	line := strings.SplitN(strings.SplitN(text, "\n", 2)[0], "|", 2)
	if len(line) != 2 {
		return RouterDecision{}, ErrRouterFallthrough
	}
	pipelineID := strings.TrimSpace(line[0])
	modelID := strings.TrimSpace(line[1])
	if pipelineID == "" || modelID == "" {
		return RouterDecision{}, ErrRouterFallthrough
	}

	found := false
	for _, p := range pipelines {
		if p.Name == pipelineID {
			found = true
			break
		}
	}
	if !found {
		return RouterDecision{}, ErrRouterFallthrough
	}

	return RouterDecision{PipelineID: pipelineID, ModelID: modelID}, nil
}
