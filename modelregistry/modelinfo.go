// Package modelregistry is the process-wide model-id → metadata + provider
// set registry of spec.md §4.8: quota cooldown, suspension, and fallback
// resolution. It is a process-wide structure guarded by a single
// readers-writer lock (spec.md §5), grounded directly on the Rust original's
// `model_registry::registry::ModelRegistry` — two flat mapping tables with
// no direct object references between them, matching spec.md §9's
// re-architecture recommendation for the registry's cyclic-looking graph.
package modelregistry

import (
	"time"

	"github.com/archgw/llmgateway/apiidentity"
)

// Status is a model's lifecycle state.
type Status string

const (
	StatusActive     Status = "active"
	StatusBeta       Status = "beta"
	StatusDeprecated Status = "deprecated"
	StatusUnavailable Status = "unavailable"
)

// Capabilities are the feature flags spec.md §3 lists for ModelInfo.
type Capabilities struct {
	Vision          bool
	FunctionCalling bool
	Streaming       bool
}

// Pricing is per-million-token cost, when known.
type Pricing struct {
	Currency           string
	InputCostPer1M     float64
	OutputCostPer1M    float64
}

// ModelInfo is the static metadata for one model id.
type ModelInfo struct {
	ID                  string
	DisplayName         string
	Owner               string
	Provider            apiidentity.ProviderId
	ContextWindow       int
	MaxCompletionTokens int
	Capabilities        Capabilities
	Pricing             *Pricing
	ThinkingSupport     bool
	Status              Status
	LastUpdated         time.Time
}

// IsAvailable reports the status half of spec.md §4.8's availability
// formula: `status ∈ {Active, Beta}`.
func (m ModelInfo) IsAvailable() bool {
	return m.Status == StatusActive || m.Status == StatusBeta
}
