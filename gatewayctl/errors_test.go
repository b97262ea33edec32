package gatewayctl

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorChainWalksWrappedCauses(t *testing.T) {
	root := errors.New("dial tcp: connection refused")
	mid := Wrap(KindUpstreamTransport, "dispatch to openai", root)
	outer := Wrap(KindUpstreamTransport, "complete request", mid)

	chain := outer.Chain()
	require.Len(t, chain, 3)
	assert.Contains(t, chain[0], "complete request")
	assert.Contains(t, chain[1], "dispatch to openai")
	assert.Contains(t, chain[2], "connection refused")
}

func TestHTTPStatusPerKind(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, New(KindRequestParsing, "x").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, New(KindUnsupportedEndpoint, "x").HTTPStatus())
	assert.Equal(t, http.StatusTooManyRequests, New(KindRatelimitExceeded, "x").HTTPStatus())
	assert.Equal(t, http.StatusBadGateway, New(KindUpstreamTransport, "x").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, New(KindRouterModel, "x").HTTPStatus())
}

func TestAsErrorExtractsWrappedGatewayError(t *testing.T) {
	ge := New(KindAgentNotFound, "agent missing")

	extracted, ok := AsError(ge)
	assert.True(t, ok)
	assert.Equal(t, KindAgentNotFound, extracted.Kind)

	_, ok = AsError(errors.New("plain error"))
	assert.False(t, ok)
}

func TestToBodyRendersTypeMessageAndChain(t *testing.T) {
	cause := errors.New("timeout")
	e := Wrap(KindUpstreamTransport, "dispatch failed", cause)
	body := e.ToBody()

	assert.Equal(t, string(KindUpstreamTransport), body.Type)
	assert.Equal(t, "dispatch failed", body.Message)
	assert.Len(t, body.ErrorChain, 2)
}
