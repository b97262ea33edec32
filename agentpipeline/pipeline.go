// Package agentpipeline implements the optional multi-agent request
// pipeline (spec.md §4.7): a filter chain of intermediate agents that each
// rewrite the conversation, followed by a single terminal agent whose
// response (streaming or not) becomes the client-facing response.
//
// Grounded on the original's
// `crates/brightstaff/src/handlers/pipeline_processor.rs` PipelineProcessor
// (process_filter_chain/send_agent_request/send_terminal_request), reworked
// against canonical.Request/Message instead of hermesllm's OpenAI types, and
// on the teacher's onion-style `features/model/gateway/server.go` for the
// header-forwarding HTTP dispatch idiom.
package agentpipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/archgw/llmgateway/canonical"
	"github.com/archgw/llmgateway/transform/openaiwire"
)

// UpstreamHostHeader names the agent a request should be routed to,
// mirroring the original's ARCH_UPSTREAM_HOST_HEADER constant
// (common::consts::ARCH_UPSTREAM_HOST_HEADER).
const UpstreamHostHeader = "x-arch-upstream-host"

// EnvoyRetryHeader is set on every filter-agent and terminal-agent dispatch
// (SUPPLEMENTED FEATURE: the original relies on an Envoy sidecar for
// retries; this rewrite sets a fixed retry budget on the re-entrant hop so
// the sidecar's retry policy applies to agent hops the same way it applies
// to the original inbound request).
const EnvoyRetryHeader = "x-envoy-retry"

// EnvoyRetryBudget is the retry count set on EnvoyRetryHeader for agent hops.
const EnvoyRetryBudget = "3"

// ErrAgentNotFound is returned when a pipeline names an agent absent from
// the agent map.
var ErrAgentNotFound = errors.New("agentpipeline: agent not found")

// Agent is one entry in the agents{} configuration map: a named endpoint
// the pipeline can route a turn to.
type Agent struct {
	Name string
}

// Pipeline is one `agent_pipelines[]` configuration entry.
type Pipeline struct {
	Name        string
	Description string
	Default     bool
	FilterChain []string
}

// TerminalAgent is the last entry of FilterChain, the one whose response
// streams back to the client.
func (p Pipeline) TerminalAgent() (string, bool) {
	if len(p.FilterChain) == 0 {
		return "", false
	}
	return p.FilterChain[len(p.FilterChain)-1], true
}

// filterAgents returns every FilterChain entry except the terminal one.
func (p Pipeline) filterAgents() []string {
	if len(p.FilterChain) == 0 {
		return nil
	}
	return p.FilterChain[:len(p.FilterChain)-1]
}

// Processor dispatches pipeline stages by re-entering the gateway's own
// `/v1/chat/completions` endpoint with an UpstreamHostHeader naming the
// target agent, exactly as the original routes agent hops through its own
// ingress rather than a separate client per agent.
type Processor struct {
	httpClient  *http.Client
	llmEndpoint string
}

// NewProcessor builds a Processor dispatching every agent hop to
// llmEndpoint (normally this gateway's own loopback chat-completions URL).
func NewProcessor(llmEndpoint string, httpClient *http.Client) *Processor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Processor{httpClient: httpClient, llmEndpoint: llmEndpoint}
}

// ProcessFilterChain runs every non-terminal agent in order, threading the
// growing message history from one agent's response into the next agent's
// request, per the original's process_filter_chain.
func (p *Processor) ProcessFilterChain(ctx context.Context, initial *canonical.Request, pipeline Pipeline, agents map[string]Agent, headers http.Header) ([]canonical.Message, error) {
	history := append([]canonical.Message(nil), initial.Messages...)
	for _, name := range pipeline.filterAgents() {
		agent, ok := agents[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrAgentNotFound, name)
		}
		next, err := p.sendAgentRequest(ctx, history, initial, agent, headers)
		if err != nil {
			return nil, err
		}
		history = next
	}
	return history, nil
}

// sendAgentRequest dispatches one filter-agent hop and decodes its reply.
// Filter agents respond with the rewritten message history JSON-encoded in
// the assistant message's text content (the original's convention of
// returning `Vec<Message>` as the completion body); a plain-text reply
// (anything that doesn't parse as that shape) is treated as a single new
// assistant turn appended to the existing history.
func (p *Processor) sendAgentRequest(ctx context.Context, history []canonical.Message, initial *canonical.Request, agent Agent, headers http.Header) ([]canonical.Message, error) {
	req := *initial
	req.Messages = history
	req.Stream = false

	body, err := openaiwire.SerializeRequest(&req)
	if err != nil {
		return nil, fmt.Errorf("agentpipeline: encode agent request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.llmEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header = cloneForwardHeaders(headers)
	httpReq.Header.Set(UpstreamHostHeader, agent.Name)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(EnvoyRetryHeader, EnvoyRetryBudget)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agentpipeline: dispatch to agent %q: %w", agent.Name, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("agentpipeline: read agent %q response: %w", agent.Name, err)
	}

	canonicalResp, err := openaiwire.ParseResponse(respBody)
	if err != nil {
		return nil, fmt.Errorf("agentpipeline: parse agent %q response: %w", agent.Name, err)
	}
	text := canonical.TextOnly(canonicalResp.Content)

	if rewritten, ok := tryDecodeRewrittenHistory(text); ok {
		return rewritten, nil
	}
	return append(history, canonical.Message{
		Role:    canonical.RoleAssistant,
		Content: []canonical.ContentBlock{canonical.TextBlock{Text: text}},
	}), nil
}

type rewrittenTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func tryDecodeRewrittenHistory(text string) ([]canonical.Message, bool) {
	var turns []rewrittenTurn
	if err := json.Unmarshal([]byte(text), &turns); err != nil || len(turns) == 0 {
		return nil, false
	}
	out := make([]canonical.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, canonical.Message{
			Role:    canonical.Role(t.Role),
			Content: []canonical.ContentBlock{canonical.TextBlock{Text: t.Content}},
		})
	}
	return out, true
}

// SendTerminalRequest dispatches the final, rewritten history to the
// terminal agent and returns the raw *http.Response so the caller can
// either buffer it (non-streaming) or pipe its body through package sse
// (streaming), per the original's send_terminal_request returning a
// reqwest::Response rather than a parsed body.
func (p *Processor) SendTerminalRequest(ctx context.Context, history []canonical.Message, initial *canonical.Request, terminalAgent Agent, headers http.Header) (*http.Response, error) {
	req := *initial
	req.Messages = history

	body, err := openaiwire.SerializeRequest(&req)
	if err != nil {
		return nil, fmt.Errorf("agentpipeline: encode terminal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.llmEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header = cloneForwardHeaders(headers)
	httpReq.Header.Set(UpstreamHostHeader, terminalAgent.Name)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(EnvoyRetryHeader, EnvoyRetryBudget)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("agentpipeline: dispatch to terminal agent %q: %w", terminalAgent.Name, err)
	}
	return resp, nil
}

// cloneForwardHeaders copies headers for an outbound agent hop, dropping
// Content-Length (the body is being re-encoded so the old length no longer
// applies — the same removal the original performs before re-sending).
// EnvoyRetryHeader is set separately by the caller after cloning.
func cloneForwardHeaders(headers http.Header) http.Header {
	out := headers.Clone()
	if out == nil {
		out = http.Header{}
	}
	out.Del("Content-Length")
	return out
}
