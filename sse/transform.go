package sse

import "encoding/json"

// openAIDeltaChunk is the wire shape of a single `chat.completion.chunk`
// record's JSON payload, as emitted by OpenAI and every OpenAI-wire
// compatible provider.
type openAIDeltaChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Role      string `json:"role"`
			Content   *string `json:"content"`
			Reasoning *string `json:"reasoning,omitempty"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// ToolCallTracker assigns stable Anthropic content-block indices to both
// the text block and OpenAI tool_calls[i] slots in the order they first
// appear in the stream, per spec.md §4.4's "index: i+1 or mapped" note.
// Whichever shows up first — text or the first tool call — claims index 0;
// there is no permanent reservation for either kind.
type ToolCallTracker struct {
	nextIndex     int
	textIndex     int // -1 until a text delta has actually been observed
	openaiToBlock map[int]int
}

// NewToolCallTracker returns a tracker with no indices yet assigned.
func NewToolCallTracker() *ToolCallTracker {
	return &ToolCallTracker{nextIndex: 0, textIndex: -1, openaiToBlock: map[int]int{}}
}

// textBlockIndex lazily reserves the content-block index for the text
// block on first use, then returns the same index on every later call.
func (t *ToolCallTracker) textBlockIndex() int {
	if t.textIndex < 0 {
		t.textIndex = t.nextIndex
		t.nextIndex++
	}
	return t.textIndex
}

func (t *ToolCallTracker) blockIndexFor(openaiIndex int) (idx int, firstSeen bool) {
	if idx, ok := t.openaiToBlock[openaiIndex]; ok {
		return idx, false
	}
	idx = t.nextIndex
	t.nextIndex++
	t.openaiToBlock[openaiIndex] = idx
	return idx, true
}

// OpenAIFinishReasonToAnthropic maps an OpenAI finish_reason to an Anthropic
// stop_reason per spec.md §4.4.
func OpenAIFinishReasonToAnthropic(reason string) string {
	switch reason {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "tool_calls":
		return "tool_use"
	case "content_filter":
		return "refusal"
	case "stop_sequence":
		return "stop_sequence"
	default:
		return "end_turn"
	}
}

// AnthropicStopReasonToOpenAI is the reverse mapping, used when serializing
// a final OpenAI chunk from an Anthropic-format upstream.
func AnthropicStopReasonToOpenAI(reason string) string {
	switch reason {
	case "end_turn":
		return "stop"
	case "max_tokens":
		return "length"
	case "tool_use":
		return "tool_calls"
	case "refusal":
		return "content_filter"
	case "stop_sequence":
		return "stop_sequence"
	default:
		return "stop"
	}
}

// TransformOpenAIChunk decodes one OpenAI chunk's `data:` payload and
// returns the (zero or more) StreamEvents it implies, plus the model name
// if the chunk carried one. A chunk that only carries `delta.role` with no
// content, tool_calls, or finish_reason yields no events — the client-facing
// lifecycle is only advanced by actual content, matching spec.md §4.4's
// "trigger (if not yet emitted)" phrasing, which the buffer (not the
// transformer) acts on.
func TransformOpenAIChunk(data string, tracker *ToolCallTracker) (events []StreamEvent, model string, err error) {
	var chunk openAIDeltaChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, "", err
	}
	model = chunk.Model
	if len(chunk.Choices) == 0 {
		return nil, model, nil
	}
	choice := chunk.Choices[0]

	if choice.Delta.Content != nil && *choice.Delta.Content != "" {
		events = append(events, ContentBlockDelta{Index: tracker.textBlockIndex(), Delta: TextDelta{Text: *choice.Delta.Content}})
	}
	if choice.Delta.Reasoning != nil && *choice.Delta.Reasoning != "" {
		events = append(events, ContentBlockDelta{Index: tracker.textBlockIndex(), Delta: TextDelta{Text: ""}})
	}

	for _, tc := range choice.Delta.ToolCalls {
		blockIdx, firstSeen := tracker.blockIndexFor(tc.Index)
		if firstSeen {
			events = append(events, ContentBlockStart{
				Index: blockIdx,
				Block: ToolUseBlockKind{ID: tc.ID, Name: tc.Function.Name},
			})
		}
		if tc.Function.Arguments != "" {
			events = append(events, ContentBlockDelta{
				Index: blockIdx,
				Delta: InputJSONDelta{PartialJSON: tc.Function.Arguments},
			})
		}
	}

	if choice.FinishReason != nil {
		events = append(events,
			MessageDelta{StopReason: OpenAIFinishReasonToAnthropic(*choice.FinishReason)},
			MessageStop{},
		)
	}
	return events, model, nil
}

// anthropicEventPayload is the union of every Anthropic SSE event body this
// gateway needs to decode. Unused fields for a given event type are left
// zero.
type anthropicEventPayload struct {
	Type    string `json:"type"`
	Message struct {
		ID    string `json:"id"`
		Model string `json:"model"`
	} `json:"message,omitempty"`
	Index        int `json:"index"`
	ContentBlock struct {
		Type string `json:"type"`
		Text string `json:"text"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block,omitempty"`
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta,omitempty"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage,omitempty"`
}

// TransformAnthropicEvent decodes one real Anthropic SSE record (eventName
// plus its `data:` payload) into the matching canonical StreamEvent, used
// whenever the upstream itself already speaks Anthropic lifecycle; the
// controller then re-encodes the event for either client wire format.
func TransformAnthropicEvent(eventName, data string) (StreamEvent, string, error) {
	var p anthropicEventPayload
	if data != "" {
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, "", err
		}
	}
	switch eventName {
	case "message_start":
		return MessageStart{Message: MessageSkeleton{ID: p.Message.ID, Model: p.Message.Model, Role: "assistant", Type: "message"}}, p.Message.Model, nil
	case "content_block_start":
		var kind BlockKind
		switch p.ContentBlock.Type {
		case "tool_use":
			kind = ToolUseBlockKind{ID: p.ContentBlock.ID, Name: p.ContentBlock.Name}
		default:
			kind = TextBlockKind{Text: p.ContentBlock.Text}
		}
		return ContentBlockStart{Index: p.Index, Block: kind}, "", nil
	case "content_block_delta":
		var d Delta
		switch p.Delta.Type {
		case "input_json_delta":
			d = InputJSONDelta{PartialJSON: p.Delta.PartialJSON}
		default:
			d = TextDelta{Text: p.Delta.Text}
		}
		return ContentBlockDelta{Index: p.Index, Delta: d}, "", nil
	case "content_block_stop":
		return ContentBlockStop{Index: p.Index}, "", nil
	case "message_delta":
		return MessageDelta{StopReason: p.Delta.StopReason, Usage: MessageUsage{OutputTokens: p.Usage.OutputTokens}}, "", nil
	case "message_stop":
		return MessageStop{}, "", nil
	case "ping":
		return Ping{}, "", nil
	default:
		return nil, "", nil
	}
}

// ExtractModelName looks for a top-level "model" string field in a raw
// `data:` payload without requiring the caller to know the event's full
// shape, per spec.md §4.5 rule 5.
func ExtractModelName(data string) (string, bool) {
	var probe struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal([]byte(data), &probe); err != nil {
		return "", false
	}
	if probe.Model == "" {
		return "", false
	}
	return probe.Model, true
}
