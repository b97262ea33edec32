// Package canonical defines the format-neutral in-memory representation of a
// chat request and response shared by the request/response transformers, the
// SSE pipeline, and the gateway controller. Wire-format parsers populate a
// Request or Response; wire-format serializers consume one. No package in
// this tree constructs canonical values directly from another provider's SDK
// types — that translation lives in transform/openaiwire and
// transform/anthropicwire.
package canonical

import "encoding/json"

// Role identifies the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// StopReason is the format-neutral reason generation stopped.
type StopReason string

const (
	StopEndTurn      StopReason = "end_turn"
	StopMaxTokens    StopReason = "max_tokens"
	StopSequence     StopReason = "stop_sequence"
	StopToolUse      StopReason = "tool_use"
	StopPauseTurn    StopReason = "pause_turn"
	StopRefusal      StopReason = "refusal"
	StopUnspecified  StopReason = ""
)

type (
	// ContentBlock is a single content element of a Message. Every concrete
	// block type below implements isContentBlock; callers type-switch on the
	// concrete value the same way the wire transformers do.
	ContentBlock interface {
		isContentBlock()
	}

	// TextBlock is plain text content.
	TextBlock struct {
		Text string
	}

	// ImageSource is either inline base64 data or a remote URL. Exactly one
	// of Base64Data or URL is set.
	ImageSource struct {
		MediaType  string // e.g. "image/png"; only set when Base64Data is used
		Base64Data string
		URL        string
	}

	// ImageBlock is an inline or remote image attachment.
	ImageBlock struct {
		Source ImageSource
	}

	// DocumentBlock is an inline or remote document attachment (Anthropic
	// document content blocks; OpenAI has no direct equivalent and drops
	// these on outbound conversion to OpenAI).
	DocumentBlock struct {
		Source ImageSource
		Title  string
	}

	// ToolUseBlock is an assistant-issued tool invocation request.
	ToolUseBlock struct {
		ID    string
		Name  string
		Input json.RawMessage
	}

	// ToolResultBlock carries the result of a prior ToolUseBlock, keyed by
	// ToolUseID. Content is itself a list of content blocks (almost always a
	// single TextBlock, but providers allow richer content).
	ToolResultBlock struct {
		ToolUseID string
		IsError   bool
		Content   []ContentBlock
	}

	// ThinkingBlock is an extended-reasoning trace. Anthropic emits these
	// natively; OpenAI has no wire representation so outbound conversion to
	// OpenAI drops them (optionally surfaced via the debug "reasoning"
	// overlay described in spec.md §4.7).
	ThinkingBlock struct {
		Text string
	}

	// OpaqueBlock passes a server-managed content block through unmodified
	// (ServerToolUse, WebSearchToolResult, CodeExecutionToolResult,
	// McpToolUse, McpToolResult, ContainerUpload). Kind preserves the
	// original wire `type` discriminant so serialization can round-trip it
	// without the transformer needing to understand its shape.
	OpaqueBlock struct {
		Kind string
		Raw  json.RawMessage
	}

	// Message is a single turn in the conversation.
	Message struct {
		Role Role
		// Content is either a single TextBlock (the common case when parsed
		// from a plain-string wire message) or the full ordered block list.
		Content []ContentBlock
	}

	// ToolDefinition describes a tool exposed to the model.
	ToolDefinition struct {
		Name        string
		Description string
		InputSchema json.RawMessage
	}

	// ToolChoiceMode selects how the model is steered toward tool use.
	ToolChoiceMode string
)

const (
	ToolChoiceAuto ToolChoiceMode = "auto"
	ToolChoiceAny  ToolChoiceMode = "any"
	ToolChoiceTool ToolChoiceMode = "tool"
	ToolChoiceNone ToolChoiceMode = "none"
)

// ToolChoice configures tool-use steering for a Request.
type ToolChoice struct {
	Mode ToolChoiceMode
	Name string // only meaningful when Mode == ToolChoiceTool
}

// SamplingParams carries optional sampling configuration. Zero values mean
// "use the provider default".
type SamplingParams struct {
	Temperature   *float64
	TopP          *float64
	TopK          *int
	MaxTokens     int
	StopSequences []string
}

// Usage reports token consumption for a call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Request is the format-neutral representation of an inbound chat-completion
// request. Invariant: len(Messages) >= 1. The wire parsers do not check it;
// the gateway controller rejects a request without messages after parsing,
// and each upstream Client rejects one again before dispatch.
type Request struct {
	Model      string
	Messages   []Message
	System     []ContentBlock
	Tools      []ToolDefinition
	ToolChoice *ToolChoice
	Sampling   SamplingParams
	Stream     bool
	Metadata   map[string]string
}

// Response is the result of a non-streaming invocation.
type Response struct {
	ID         string
	Model      string
	Role       Role
	Content    []ContentBlock
	StopReason StopReason
	Usage      Usage
}

func (TextBlock) isContentBlock()       {}
func (ImageBlock) isContentBlock()      {}
func (DocumentBlock) isContentBlock()   {}
func (ToolUseBlock) isContentBlock()    {}
func (ToolResultBlock) isContentBlock() {}
func (ThinkingBlock) isContentBlock()   {}
func (OpaqueBlock) isContentBlock()     {}

// TextOnly returns the concatenation of every TextBlock in blocks, ignoring
// non-text content. Used where a caller needs a flat string view (e.g.
// reading the agent pipeline's router-LLM reply).
func TextOnly(blocks []ContentBlock) string {
	var out string
	for _, b := range blocks {
		if t, ok := b.(TextBlock); ok {
			out += t.Text
		}
	}
	return out
}
