package sse

import (
	"encoding/json"
	"strings"
)

// OpenAIEmitter converts the canonical Anthropic-lifecycle StreamEvent
// stream into OpenAI `chat.completion.chunk` wire bytes. Unlike
// AnthropicBuffer it injects nothing — OpenAI's flatter delta shape needs
// only a pure per-event mapping (spec.md §4.4 "the reverse"), which is why
// this type lives beside, not inside, the buffer.
type OpenAIEmitter struct {
	id               string
	model            string
	roleEmitted      bool
	blockToOpenAI    map[int]int
	nextOpenAIIndex  int
}

// NewOpenAIEmitter constructs an emitter for one streaming response. id and
// model seed the envelope every chunk shares (spec.md §4.7 "same
// choices/created/id/model/object envelope").
func NewOpenAIEmitter(id, model string) *OpenAIEmitter {
	return &OpenAIEmitter{id: id, model: model, blockToOpenAI: map[int]int{}}
}

type openAIChunkOut struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Model   string             `json:"model"`
	Choices []openAIChoiceOut  `json:"choices"`
}

type openAIChoiceOut struct {
	Index        int            `json:"index"`
	Delta        openAIDeltaOut `json:"delta"`
	FinishReason *string        `json:"finish_reason"`
}

type openAIDeltaOut struct {
	Role      string               `json:"role,omitempty"`
	Content   *string              `json:"content,omitempty"`
	ToolCalls []openAIToolCallOut  `json:"tool_calls,omitempty"`
}

type openAIToolCallOut struct {
	Index    int                   `json:"index"`
	ID       string                `json:"id,omitempty"`
	Type     string                `json:"type,omitempty"`
	Function openAIToolFunctionOut `json:"function"`
}

type openAIToolFunctionOut struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// Handle converts one StreamEvent into zero or more serialized OpenAI SSE
// records. MessageStop yields the literal `data: [DONE]\n\n` terminator.
func (e *OpenAIEmitter) Handle(ev StreamEvent) ([]byte, error) {
	switch v := ev.(type) {
	case MessageStart:
		if v.Message.ID != "" {
			e.id = v.Message.ID
		}
		if v.Message.Model != "" {
			e.model = v.Message.Model
		}
		return e.encode(openAIDeltaOut{Role: "assistant"}, nil)

	case ContentBlockStart:
		if tu, ok := v.Block.(ToolUseBlockKind); ok {
			idx := e.assignToolIndex(v.Index)
			return e.encode(openAIDeltaOut{ToolCalls: []openAIToolCallOut{{
				Index: idx, ID: tu.ID, Type: "function",
				Function: openAIToolFunctionOut{Name: tu.Name},
			}}}, nil)
		}
		return nil, nil

	case ContentBlockDelta:
		switch d := v.Delta.(type) {
		case TextDelta:
			text := d.Text
			return e.encode(openAIDeltaOut{Content: &text}, nil)
		case InputJSONDelta:
			idx := e.assignToolIndex(v.Index)
			return e.encode(openAIDeltaOut{ToolCalls: []openAIToolCallOut{{
				Index: idx, Function: openAIToolFunctionOut{Arguments: d.PartialJSON},
			}}}, nil)
		}
		return nil, nil

	case ContentBlockStop:
		return nil, nil

	case MessageDelta:
		reason := AnthropicStopReasonToOpenAI(v.StopReason)
		return e.encode(openAIDeltaOut{}, &reason)

	case MessageStop:
		return []byte("data: [DONE]\n\n"), nil

	case Ping:
		return nil, nil

	default:
		return nil, nil
	}
}

func (e *OpenAIEmitter) assignToolIndex(blockIndex int) int {
	if idx, ok := e.blockToOpenAI[blockIndex]; ok {
		return idx
	}
	idx := e.nextOpenAIIndex
	e.nextOpenAIIndex++
	e.blockToOpenAI[blockIndex] = idx
	return idx
}

func (e *OpenAIEmitter) encode(delta openAIDeltaOut, finishReason *string) ([]byte, error) {
	out := openAIChunkOut{
		ID: e.id, Object: "chat.completion.chunk", Model: e.model,
		Choices: []openAIChoiceOut{{Index: 0, Delta: delta, FinishReason: finishReason}},
	}
	body, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	sb.WriteString("data: ")
	sb.Write(body)
	sb.WriteString("\n\n")
	return []byte(sb.String()), nil
}
