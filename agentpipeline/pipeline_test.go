package agentpipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archgw/llmgateway/canonical"
)

func openAIChunkResponse(text string) string {
	return `{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"` + text + `"},"finish_reason":"stop"}]}`
}

func TestProcessFilterChainRunsNonTerminalAgentsInOrder(t *testing.T) {
	var seenHosts []string
	var seenRetryHeaders []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenHosts = append(seenHosts, r.Header.Get(UpstreamHostHeader))
		seenRetryHeaders = append(seenRetryHeaders, r.Header.Get(EnvoyRetryHeader))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openAIChunkResponse("rewritten by " + r.Header.Get(UpstreamHostHeader))))
	}))
	defer srv.Close()

	proc := NewProcessor(srv.URL, nil)
	pipeline := Pipeline{Name: "research", FilterChain: []string{"summarizer", "responder"}}
	agents := map[string]Agent{
		"summarizer": {Name: "summarizer"},
		"responder":  {Name: "responder"},
	}

	history, err := proc.ProcessFilterChain(
		context.Background(),
		&canonical.Request{Messages: []canonical.Message{{Role: canonical.RoleUser, Content: []canonical.ContentBlock{canonical.TextBlock{Text: "hi"}}}}},
		pipeline,
		agents,
		http.Header{},
	)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, []string{"summarizer"}, seenHosts)
	assert.Equal(t, []string{"3"}, seenRetryHeaders)
}

func TestProcessFilterChainReturnsAgentNotFound(t *testing.T) {
	proc := NewProcessor("http://unused.invalid", nil)
	pipeline := Pipeline{Name: "research", FilterChain: []string{"ghost", "responder"}}

	_, err := proc.ProcessFilterChain(
		context.Background(),
		&canonical.Request{Messages: []canonical.Message{{Role: canonical.RoleUser}}},
		pipeline,
		map[string]Agent{},
		http.Header{},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestSendTerminalRequestDispatchesToNamedAgent(t *testing.T) {
	var gotHost, gotRetryHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Header.Get(UpstreamHostHeader)
		gotRetryHeader = r.Header.Get(EnvoyRetryHeader)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openAIChunkResponse("done")))
	}))
	defer srv.Close()

	proc := NewProcessor(srv.URL, nil)
	resp, err := proc.SendTerminalRequest(
		context.Background(),
		[]canonical.Message{{Role: canonical.RoleUser, Content: []canonical.ContentBlock{canonical.TextBlock{Text: "hi"}}}},
		&canonical.Request{},
		Agent{Name: "terminal-agent"},
		http.Header{},
	)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "terminal-agent", gotHost)
	assert.Equal(t, "3", gotRetryHeader)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
