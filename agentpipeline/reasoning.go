package agentpipeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReasoningEmitter renders the debug "reasoning" overlay (spec.md §4.7):
// synthetic SSE records sharing the OpenAI chunk envelope
// (choices/created/id/model/object) but carrying a top-level
// `delta.reasoning` string instead of real content, so an OpenAI-compatible
// client can ignore them transparently while a debug-mode caller sees
// pipeline progress narrated inline with the stream.
type ReasoningEmitter struct {
	id      string
	model   string
	created int64
}

// NewReasoningEmitter builds an emitter sharing id/model/created with the
// real completion chunks the client will also receive, so all records in
// the stream look like they came from the same response object.
func NewReasoningEmitter(id, model string, created int64) *ReasoningEmitter {
	return &ReasoningEmitter{id: id, model: model, created: created}
}

type reasoningChunk struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []reasoningChoice  `json:"choices"`
}

type reasoningChoice struct {
	Index int            `json:"index"`
	Delta reasoningDelta `json:"delta"`
}

type reasoningDelta struct {
	Reasoning string `json:"reasoning"`
}

func (r *ReasoningEmitter) render(text string) []byte {
	chunk := reasoningChunk{
		ID:      r.id,
		Object:  "chat.completion.chunk",
		Created: r.created,
		Model:   r.model,
		Choices: []reasoningChoice{{Index: 0, Delta: reasoningDelta{Reasoning: text}}},
	}
	data, _ := json.Marshal(chunk)
	return append(append([]byte("data: "), data...), []byte("\n\n")...)
}

// Start narrates pipeline entry.
func (r *ReasoningEmitter) Start(pipeline string) []byte {
	return r.render(fmt.Sprintf("selected pipeline %q", pipeline))
}

// FilterStart narrates a filter agent about to run.
func (r *ReasoningEmitter) FilterStart(agent string) []byte {
	return r.render(fmt.Sprintf("running filter agent %q", agent))
}

// FilterSuccess narrates a filter agent's successful completion.
func (r *ReasoningEmitter) FilterSuccess(agent string, elapsed time.Duration) []byte {
	return r.render(fmt.Sprintf("filter agent %q succeeded in %dms", agent, elapsed.Milliseconds()))
}

// FilterFailure narrates a filter agent's failure.
func (r *ReasoningEmitter) FilterFailure(agent string, elapsed time.Duration, err error) []byte {
	return r.render(fmt.Sprintf("filter agent %q failed after %dms: %v", agent, elapsed.Milliseconds(), err))
}

// TerminalHandoff narrates control passing to the terminal agent.
func (r *ReasoningEmitter) TerminalHandoff(agent string) []byte {
	return r.render(fmt.Sprintf("handing off to terminal agent %q", agent))
}
