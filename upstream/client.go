// Package upstream dispatches a canonical.Request to a concrete provider
// and returns either a buffered canonical.Response or a raw event stream for
// the sse pipeline to tokenize and translate. Three backings are provided:
// anthropic.go (native Anthropic Messages via anthropic-sdk-go), bedrock.go
// (AWS Bedrock Converse via aws-sdk-go-v2), and openaicompat.go (every
// OpenAI-wire-compatible provider dispatched through openai-go with a
// per-provider base URL).
//
// Grounded on the teacher's three-adapter split under features/model/
// (anthropic, bedrock, openai), each implementing the same Client-shaped
// interface against goa-ai's runtime/agent/model types; here the shared
// interface is Complete/Stream against canonical.Request/Response instead.
package upstream

import (
	"context"

	"github.com/archgw/llmgateway/canonical"
)

// Client dispatches requests to one upstream provider.
type Client interface {
	// Complete issues a non-streaming call and returns the full response.
	Complete(ctx context.Context, req *canonical.Request) (*canonical.Response, error)

	// Stream issues a streaming call and returns an EventStream the caller
	// drains until Next reports ok=false.
	Stream(ctx context.Context, req *canonical.Request) (EventStream, error)
}

// EventStream yields raw (eventName, data) pairs in the same shape a real
// Anthropic or OpenAI SSE body would, so package sse's transform functions
// can consume them uniformly regardless of which provider produced them.
// eventName is empty for OpenAI-shaped chunks (OpenAI SSE carries no `event:`
// field, only `data:`).
type EventStream interface {
	Next(ctx context.Context) (eventName, data string, ok bool, err error)
	Close() error
}
