package modelregistry

import (
	"errors"
	"strings"
)

// ErrNoAvailableProviders is returned when no candidate model can be
// resolved at all, per spec.md §4.8 step 4.
var ErrNoAvailableProviders = errors.New("no available providers for requested model")

// Strategy picks a substitute model from the available list when the
// requested model itself isn't available.
type Strategy interface {
	SelectFallback(requested string, available []ModelInfo) (ModelInfo, bool)
}

// SameProviderFallback picks the first available model whose id shares the
// longest provider-id prefix with the requested id, per spec.md §4.8 step
// 3's SameProviderFallback description.
//
// The Rust original (model_registry/src/fallback.rs) instead splits on '-'
// and does a simple starts_with match against the first segment; this
// rewrite follows spec.md's prose (the authoritative document for this
// port) rather than the simpler original heuristic — see DESIGN.md.
type SameProviderFallback struct{}

func (SameProviderFallback) SelectFallback(requested string, available []ModelInfo) (ModelInfo, bool) {
	var best ModelInfo
	bestLen := -1
	found := false
	for _, m := range available {
		n := commonPrefixLen(requested, m.ID)
		if n > bestLen {
			best = m
			bestLen = n
			found = true
		}
	}
	if !found || bestLen == 0 {
		return ModelInfo{}, false
	}
	return best, true
}

func commonPrefixLen(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// CapabilityMatchFallback picks the available model maximizing
// `10*vision + 10*function_calling + 5*(context_window > 100_000)`, per
// spec.md §4.8 step 3, grounded on the original's `max_by_key` scoring.
type CapabilityMatchFallback struct{}

func capabilityScore(m ModelInfo) int {
	score := 0
	if m.Capabilities.Vision {
		score += 10
	}
	if m.Capabilities.FunctionCalling {
		score += 10
	}
	if m.ContextWindow > 100_000 {
		score += 5
	}
	return score
}

func (CapabilityMatchFallback) SelectFallback(_ string, available []ModelInfo) (ModelInfo, bool) {
	if len(available) == 0 {
		return ModelInfo{}, false
	}
	best := available[0]
	bestScore := capabilityScore(best)
	for _, m := range available[1:] {
		if s := capabilityScore(m); s > bestScore {
			best, bestScore = m, s
		}
	}
	return best, true
}

// CostOptimizedFallback picks the available priced model minimizing
// `input_cost_per_1m + output_cost_per_1m`, per spec.md §4.8 step 3.
type CostOptimizedFallback struct{}

func (CostOptimizedFallback) SelectFallback(_ string, available []ModelInfo) (ModelInfo, bool) {
	var best ModelInfo
	bestCost := 0.0
	found := false
	for _, m := range available {
		if m.Pricing == nil {
			continue
		}
		cost := m.Pricing.InputCostPer1M + m.Pricing.OutputCostPer1M
		if !found || cost < bestCost {
			best, bestCost, found = m, cost, true
		}
	}
	return best, found
}

// AliasMode controls how a ModelMapping entry is honored. This is the
// SUPPLEMENTED-FEATURES strict/flexible distinction carried over from the
// original's `ModelMapping::strict_mode` (model_registry/src/fallback.rs):
// in AliasModeStrict, an alias is only honored if the mapped model shares
// the requested model's provider-id prefix; AliasModeFlexible honors any
// mapping to an available model regardless of provider.
type AliasMode int

const (
	AliasModeFlexible AliasMode = iota
	AliasModeStrict
)

// ModelMapping is the `model_aliases` configuration table (spec.md §6).
type ModelMapping struct {
	mode     AliasMode
	mappings map[string]string
}

// NewModelMapping constructs an empty mapping in the given mode.
func NewModelMapping(mode AliasMode) *ModelMapping {
	return &ModelMapping{mode: mode, mappings: map[string]string{}}
}

// Add registers from → to.
func (m *ModelMapping) Add(from, to string) {
	m.mappings[from] = to
}

// Resolve returns the mapped target for requested, honoring AliasMode: in
// strict mode the mapping is only returned when it shares requested's
// provider-id prefix.
func (m *ModelMapping) Resolve(requested string) (string, bool) {
	target, ok := m.mappings[requested]
	if !ok {
		return "", false
	}
	if m.mode == AliasModeStrict {
		reqPrefix := providerPrefix(requested)
		if providerPrefix(target) != reqPrefix {
			return "", false
		}
	}
	return target, true
}

func providerPrefix(modelID string) string {
	if i := strings.IndexByte(modelID, '-'); i >= 0 {
		return modelID[:i]
	}
	return modelID
}

// Router resolves a requested model id against the available-model list,
// implementing spec.md §4.8 step 1-4 in order: exact match, alias mapping,
// strategy fallback, else ErrNoAvailableProviders.
type Router struct {
	Strategy Strategy
	Mapping  *ModelMapping
}

// NewRouter returns a Router using strategy (nil defaults to
// SameProviderFallback) and an optional mapping (nil disables aliasing).
func NewRouter(strategy Strategy, mapping *ModelMapping) *Router {
	if strategy == nil {
		strategy = SameProviderFallback{}
	}
	return &Router{Strategy: strategy, Mapping: mapping}
}

// ResolveModel implements spec.md §8 invariant 9: it returns a model m in
// available with m.IsAvailable() true (checked by the caller via the
// registry, since Router only sees the pre-filtered available slice), or
// ErrNoAvailableProviders.
func (r *Router) ResolveModel(requested string, available []ModelInfo) (ModelInfo, error) {
	for _, m := range available {
		if m.ID == requested {
			return m, nil
		}
	}
	if r.Mapping != nil {
		if target, ok := r.Mapping.Resolve(requested); ok {
			for _, m := range available {
				if m.ID == target {
					return m, nil
				}
			}
		}
	}
	if m, ok := r.Strategy.SelectFallback(requested, available); ok {
		return m, nil
	}
	return ModelInfo{}, ErrNoAvailableProviders
}
