package sse

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// AnthropicBuffer is the SSE Buffer of spec.md §4.5: a stateful sequencer
// that owns the invariant "a client expecting Anthropic lifecycle events
// sees a well-formed sequence regardless of how the upstream segmented its
// stream." It is single-threaded with respect to one response (spec.md §5)
// and therefore carries no internal lock, exactly like the teacher's
// streamers in `features/model/anthropic/stream.go` and
// `features/model/bedrock/stream.go`, which are likewise owned by exactly
// one receiving goroutine.
type AnthropicBuffer struct {
	modelName           string
	messageStarted      bool
	needsContentBlockStop bool
	openBlocks          []int // stack of content-block indices awaiting a stop, LIFO
	messageID           string
	staged              []SseEvent
}

// NewAnthropicBuffer constructs an empty buffer. The model name defaults to
// "unknown" until ObserveModelName or a real upstream MessageStart supplies
// one (spec.md §4.5 rule 1).
func NewAnthropicBuffer() *AnthropicBuffer {
	return &AnthropicBuffer{modelName: "unknown"}
}

// ObserveModelName implements spec.md §4.5 rule 5: on every incoming raw
// event whose data parses as JSON with a top-level model field, update the
// model name, but only while it is still the default.
func (b *AnthropicBuffer) ObserveModelName(rawData string) {
	if b.modelName != "unknown" {
		return
	}
	if name, ok := ExtractModelName(rawData); ok {
		b.modelName = name
	}
}

func newMessageID() string {
	id := uuid.New()
	return "msg_" + hex.EncodeToString(id[:])
}

// synthesizeMessageStart stages a MessageStart with a freshly generated
// message id, empty content, and all usage counters zero, per spec.md §4.5
// rule 1.
func (b *AnthropicBuffer) synthesizeMessageStart() {
	if b.messageID == "" {
		b.messageID = newMessageID()
	}
	b.stage(MessageStart{Message: MessageSkeleton{
		ID:      b.messageID,
		Type:    "message",
		Role:    "assistant",
		Model:   b.modelName,
		Content: []json.RawMessage{},
		Usage:   MessageUsage{},
	}})
	b.messageStarted = true
}

func (b *AnthropicBuffer) stage(ev StreamEvent) {
	b.staged = append(b.staged, SseEvent{EventName: ev.Name(), Parsed: ev})
}

// Handle feeds one already-transformed StreamEvent through the lifecycle
// state machine, staging whatever synthesized events and the event itself
// are required to keep the output well-formed. Call Drain after each Handle
// (or batch several Handle calls before one Drain) to obtain the bytes
// staged so far.
func (b *AnthropicBuffer) Handle(ev StreamEvent) {
	switch e := ev.(type) {
	case MessageStart:
		if !b.messageStarted {
			if e.Message.ID != "" {
				b.messageID = e.Message.ID
			}
			if e.Message.Model != "" {
				b.modelName = e.Message.Model
			}
		}
		b.stage(e)
		b.messageStarted = true

	case ContentBlockStart:
		if !b.messageStarted {
			b.synthesizeMessageStart()
		}
		b.stage(e)
		b.openBlocks = append(b.openBlocks, e.Index)
		b.needsContentBlockStop = true

	case ContentBlockDelta:
		if !b.messageStarted {
			b.synthesizeMessageStart()
			b.stage(ContentBlockStart{Index: 0, Block: TextBlockKind{Text: ""}})
			b.openBlocks = append(b.openBlocks, 0)
			b.needsContentBlockStop = true
		}
		b.stage(e)

	case ContentBlockStop:
		b.popOpenBlock(e.Index)
		b.stage(e)
		b.needsContentBlockStop = len(b.openBlocks) > 0

	case MessageDelta:
		b.drainOpenBlocks()
		b.stage(e)

	case MessageStop:
		b.drainOpenBlocks()
		b.stage(e)

	case Ping:
		// rule 6: skip, never stages output

	default:
		// Unrecognized event type: pass through raw without advancing
		// lifecycle flags (spec.md §4.5 Failure modes).
		b.stage(ev)
	}
}

// popOpenBlock removes index from the open-blocks stack if present,
// wherever it sits (a real upstream ContentBlockStop always targets the
// most recently opened block, but a defensive lookup costs nothing).
func (b *AnthropicBuffer) popOpenBlock(index int) {
	for i := len(b.openBlocks) - 1; i >= 0; i-- {
		if b.openBlocks[i] == index {
			b.openBlocks = append(b.openBlocks[:i], b.openBlocks[i+1:]...)
			return
		}
	}
}

// drainOpenBlocks synthesizes a ContentBlockStop for every still-open block
// in LIFO order, per spec.md §4.5 rule 3/"Tool-use interaction".
func (b *AnthropicBuffer) drainOpenBlocks() {
	for len(b.openBlocks) > 0 {
		idx := b.openBlocks[len(b.openBlocks)-1]
		b.openBlocks = b.openBlocks[:len(b.openBlocks)-1]
		b.stage(ContentBlockStop{Index: idx})
	}
	b.needsContentBlockStop = false
}

// Flush implements spec.md §4.5 rule 4: on stream end, if any content block
// is still open (a truncated upstream), synthesize its stop before handing
// back the final bytes.
func (b *AnthropicBuffer) Flush() {
	b.drainOpenBlocks()
}

// Drain returns and clears every event staged since the last Drain.
func (b *AnthropicBuffer) Drain() []SseEvent {
	out := b.staged
	b.staged = nil
	return out
}

// EncodeWireBytes renders a single StreamEvent in Anthropic SSE wire
// format: `event: <name>\ndata: <json>\n\n`.
func EncodeWireBytes(ev StreamEvent) ([]byte, error) {
	payload, err := anthropicWirePayload(ev)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("event: ")
	sb.WriteString(ev.Name())
	sb.WriteString("\ndata: ")
	sb.Write(body)
	sb.WriteString("\n\n")
	return []byte(sb.String()), nil
}

func anthropicWirePayload(ev StreamEvent) (any, error) {
	switch e := ev.(type) {
	case MessageStart:
		return map[string]any{"type": "message_start", "message": e.Message}, nil
	case ContentBlockStart:
		return map[string]any{"type": "content_block_start", "index": e.Index, "content_block": blockKindPayload(e.Block)}, nil
	case ContentBlockDelta:
		return map[string]any{"type": "content_block_delta", "index": e.Index, "delta": deltaPayload(e.Delta)}, nil
	case ContentBlockStop:
		return map[string]any{"type": "content_block_stop", "index": e.Index}, nil
	case MessageDelta:
		return map[string]any{"type": "message_delta", "delta": map[string]any{"stop_reason": e.StopReason}, "usage": e.Usage}, nil
	case MessageStop:
		return map[string]any{"type": "message_stop"}, nil
	case Ping:
		return map[string]any{"type": "ping"}, nil
	default:
		return map[string]any{}, nil
	}
}

func blockKindPayload(k BlockKind) any {
	switch b := k.(type) {
	case TextBlockKind:
		return map[string]any{"type": "text", "text": b.Text}
	case ToolUseBlockKind:
		return map[string]any{"type": "tool_use", "id": b.ID, "name": b.Name, "input": map[string]any{}}
	default:
		return map[string]any{}
	}
}

func deltaPayload(d Delta) any {
	switch v := d.(type) {
	case TextDelta:
		return map[string]any{"type": "text_delta", "text": v.Text}
	case InputJSONDelta:
		return map[string]any{"type": "input_json_delta", "partial_json": v.PartialJSON}
	default:
		return map[string]any{}
	}
}
