// Package sse implements the streaming pipeline: tokenizing raw
// text/event-stream bytes (parser.go), translating each record between
// OpenAI chunk and Anthropic lifecycle shape (transform.go), and the
// lifecycle-injecting buffer that keeps a client-facing Anthropic stream
// well-formed regardless of how the upstream segmented it (buffer.go).
//
// Grounded on the Rust original's
// `hermesllm::apis::streaming_shapes::anthropic_streaming_buffer` for the
// buffer state machine, and on the teacher's
// `features/model/anthropic/stream.go` chunk-processor shape for the
// per-event dispatch pattern (a Handle(event) method switching on a tagged
// variant and appending to an internal staging slice).
package sse

import "encoding/json"

// SseEvent is the raw-line staging form described in spec.md §3: the
// original bytes, the transformed bytes once per-event translation has run,
// and (when the record decoded to a recognized lifecycle event) the parsed
// StreamEvent.
type SseEvent struct {
	EventName        string
	Data             string
	OriginalRawLine  string
	TransformedLine  string
	Parsed           StreamEvent
}

// StreamEvent is the canonical streaming carrier: the Anthropic lifecycle
// tagged variant used internally regardless of client/upstream wire format.
type StreamEvent interface {
	isStreamEvent()
	// Name is the Anthropic SSE `event:` field name this variant serializes
	// under, e.g. "message_start".
	Name() string
}

// MessageSkeleton is the partial Message object carried by MessageStart —
// only the fields known before any content has streamed in.
type MessageSkeleton struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Content []json.RawMessage `json:"content"`
	Usage   MessageUsage    `json:"usage"`
}

// MessageUsage mirrors Anthropic's usage object; all fields are zero in a
// synthesized MessageStart and filled in from the upstream in a real one.
type MessageUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type MessageStart struct {
	Message MessageSkeleton
}

// BlockKind is the content-block variant a ContentBlockStart announces.
type BlockKind interface{ isBlockKind() }

type TextBlockKind struct{ Text string }
type ToolUseBlockKind struct {
	ID   string
	Name string
}

func (TextBlockKind) isBlockKind()    {}
func (ToolUseBlockKind) isBlockKind() {}

type ContentBlockStart struct {
	Index int
	Block BlockKind
}

// Delta is the per-chunk payload of a ContentBlockDelta.
type Delta interface{ isDelta() }

type TextDelta struct{ Text string }
type InputJSONDelta struct{ PartialJSON string }

func (TextDelta) isDelta()      {}
func (InputJSONDelta) isDelta() {}

type ContentBlockDelta struct {
	Index int
	Delta Delta
}

type ContentBlockStop struct {
	Index int
}

type MessageDelta struct {
	StopReason string
	Usage      MessageUsage
}

type MessageStop struct{}

type Ping struct{}

func (MessageStart) isStreamEvent()      {}
func (ContentBlockStart) isStreamEvent() {}
func (ContentBlockDelta) isStreamEvent() {}
func (ContentBlockStop) isStreamEvent()  {}
func (MessageDelta) isStreamEvent()      {}
func (MessageStop) isStreamEvent()       {}
func (Ping) isStreamEvent()              {}

func (MessageStart) Name() string      { return "message_start" }
func (ContentBlockStart) Name() string { return "content_block_start" }
func (ContentBlockDelta) Name() string { return "content_block_delta" }
func (ContentBlockStop) Name() string  { return "content_block_stop" }
func (MessageDelta) Name() string      { return "message_delta" }
func (MessageStop) Name() string       { return "message_stop" }
func (Ping) Name() string              { return "ping" }
