// Package gatewayctl implements the per-request state machine of spec.md
// §4.9 (Accept → IdentifyApi → SelectProvider → AuthorizeRewrite →
// RatelimitCheck → DispatchUpstream → ReceiveResponse → (Streaming|
// Buffered) → Complete) and the §7 error taxonomy that propagates through
// it.
package gatewayctl

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of error kinds from spec.md §7's taxonomy table.
type Kind string

const (
	KindRequestParsing      Kind = "request_parsing"
	KindUnsupportedEndpoint Kind = "unsupported_endpoint"
	KindNoProviderAccessKey Kind = "no_provider_access_key"
	KindBadRequest          Kind = "bad_request"
	KindRatelimitExceeded   Kind = "ratelimit_exceeded"
	KindRouterModel         Kind = "router_model"
	KindAgentNotFound       Kind = "agent_not_found"
	KindNoContent           Kind = "no_content"
	KindResponseParsing     Kind = "response_parsing"
	KindUpstreamTransport   Kind = "upstream_transport"
	KindSerialization       Kind = "serialization"
)

// httpStatus is the client-visible status for each Kind, per spec.md §7.
// RouterModel has no HTTP status: it is a soft-fail the controller absorbs
// by skipping agent orchestration, never surfaced to the client as an
// error.
var httpStatus = map[Kind]int{
	KindRequestParsing:      http.StatusBadRequest,
	KindUnsupportedEndpoint: http.StatusNotFound,
	KindNoProviderAccessKey: http.StatusBadRequest,
	KindBadRequest:          http.StatusBadRequest,
	KindRatelimitExceeded:   http.StatusTooManyRequests,
	KindAgentNotFound:       http.StatusInternalServerError,
	KindNoContent:           http.StatusInternalServerError,
	KindResponseParsing:     http.StatusBadRequest,
	KindUpstreamTransport:   http.StatusBadGateway,
	KindSerialization:       http.StatusInternalServerError,
}

// Error is the sum-type error chain of spec.md §7, grounded on the
// teacher's `runtime/agent/model/provider_error.go` ProviderError: a Kind, a
// human message, and a wrapped cause, with Unwrap/errors.As support so
// callers can walk the full chain for the JSON error body.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New constructs a leaf Error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error that adds context while preserving cause for
// Unwrap/errors.As/Chain, matching spec.md §7 "each layer adding a
// contextual message".
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the client-visible status for e.Kind, or 500 if the
// kind has none registered (RouterModel, which is soft-fail-only).
func (e *Error) HTTPStatus() int {
	if s, ok := httpStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Chain walks Unwrap to produce the full `error_chain` array spec.md §7
// requires in the JSON error body: outermost message first.
func (e *Error) Chain() []string {
	var chain []string
	var cur error = e
	for cur != nil {
		chain = append(chain, cur.Error())
		var ge *Error
		if errors.As(cur, &ge) {
			cur = ge.Cause
			continue
		}
		break
	}
	return chain
}

// AsError extracts the *Error from err via errors.As, mirroring the
// teacher's AsProviderError helper.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// Body is the JSON shape spec.md §7 mandates for the error response.
type Body struct {
	Type       string   `json:"type"`
	Message    string   `json:"message"`
	ErrorChain []string `json:"error_chain"`
}

// ToBody renders e as the client-visible JSON error body.
func (e *Error) ToBody() Body {
	return Body{Type: string(e.Kind), Message: e.Message, ErrorChain: e.Chain()}
}
