package modelregistry

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/archgw/llmgateway/apiidentity"
)

// QuotaCooldown is the window a (client, model) pair is excluded from the
// model's effective-available count after a quota-exceeded signal, per
// spec.md §4.8 "Quota cooldown".
const QuotaCooldown = 5 * time.Minute

// ErrModelNotFound is returned by any operation referencing an unregistered
// model id.
type ErrModelNotFound struct{ ModelID string }

func (e ErrModelNotFound) Error() string { return fmt.Sprintf("model not found: %s", e.ModelID) }

// Registration is ModelInfo plus the live per-client bookkeeping spec.md §3
// describes for ModelRegistration.
type Registration struct {
	Info                 ModelInfo
	Count                int
	LastUpdated          time.Time
	QuotaExceededClients map[string]time.Time
	SuspendedClients     map[string]string
	Providers            map[string]int
}

func newRegistration(info ModelInfo) *Registration {
	return &Registration{
		Info:                 info,
		LastUpdated:          time.Now(),
		QuotaExceededClients: map[string]time.Time{},
		SuspendedClients:     map[string]string{},
		Providers:            map[string]int{},
	}
}

// EffectiveClients subtracts clients currently in quota cooldown and all
// suspended clients from Count, per spec.md §4.8.
func (r *Registration) EffectiveClients() int {
	available := r.Count
	now := time.Now()
	for _, quotaAt := range r.QuotaExceededClients {
		if now.Sub(quotaAt) < QuotaCooldown {
			available--
		}
	}
	available -= len(r.SuspendedClients)
	if available < 0 {
		return 0
	}
	return available
}

// IsAvailable implements spec.md §4.8's full availability formula:
// `(effective_clients > 0) OR (any quota entry still within cooldown) AND
// status ∈ {Active, Beta}`.
func (r *Registration) IsAvailable() bool {
	if !r.Info.IsAvailable() {
		return false
	}
	if r.EffectiveClients() > 0 {
		return true
	}
	now := time.Now()
	for _, quotaAt := range r.QuotaExceededClients {
		if now.Sub(quotaAt) < QuotaCooldown {
			return true
		}
	}
	return false
}

// Registry is the process-wide, RWMutex-guarded model registry. Tests
// construct a fresh one per run (spec.md §5 "must tolerate being
// re-initialized in tests") rather than relying on a package-level
// singleton.
type Registry struct {
	mu              sync.RWMutex
	models          map[string]*Registration
	clientModels    map[string]map[string]struct{}
	clientProviders map[string]apiidentity.ProviderId
	modelProviders  map[string]map[string]map[string]struct{} // model -> provider -> client set
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		models:          map[string]*Registration{},
		clientModels:    map[string]map[string]struct{}{},
		clientProviders: map[string]apiidentity.ProviderId{},
		modelProviders:  map[string]map[string]map[string]struct{}{},
	}
}

// RegisterModel adds or replaces a model's static metadata. Registering the
// same model id twice resets its registration, matching the original's
// idempotent `register_model` (spec.md §8 invariant 7).
func (r *Registry) RegisterModel(info ModelInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[info.ID] = newRegistration(info)
}

// RegisterModels registers each of models in order.
func (r *Registry) RegisterModels(models []ModelInfo) {
	for _, m := range models {
		r.RegisterModel(m)
	}
}

// RegisterClient associates clientID with provider and each of modelIDs. All
// referenced models must already be registered.
func (r *Registry) RegisterClient(clientID string, provider apiidentity.ProviderId, modelIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range modelIDs {
		if _, ok := r.models[id]; !ok {
			return ErrModelNotFound{ModelID: id}
		}
	}

	r.clientProviders[clientID] = provider
	providerName := string(provider)

	for _, id := range modelIDs {
		reg := r.models[id]
		reg.Count++
		reg.LastUpdated = time.Now()
		reg.Providers[providerName]++

		byProvider, ok := r.modelProviders[id]
		if !ok {
			byProvider = map[string]map[string]struct{}{}
			r.modelProviders[id] = byProvider
		}
		clients, ok := byProvider[providerName]
		if !ok {
			clients = map[string]struct{}{}
			byProvider[providerName] = clients
		}
		clients[clientID] = struct{}{}

		set, ok := r.clientModels[clientID]
		if !ok {
			set = map[string]struct{}{}
			r.clientModels[clientID] = set
		}
		set[id] = struct{}{}
	}
	return nil
}

// GetModel returns the static metadata for modelID.
func (r *Registry) GetModel(modelID string) (ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.models[modelID]
	if !ok {
		return ModelInfo{}, ErrModelNotFound{ModelID: modelID}
	}
	return reg.Info, nil
}

// GetAllModels returns every registered model's metadata, in no particular
// order.
func (r *Registry) GetAllModels() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, 0, len(r.models))
	for _, reg := range r.models {
		out = append(out, reg.Info)
	}
	return out
}

// GetAvailableModels returns every model currently available per
// Registration.IsAvailable.
func (r *Registry) GetAvailableModels() []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, 0, len(r.models))
	for _, reg := range r.models {
		if reg.IsAvailable() {
			out = append(out, reg.Info)
		}
	}
	return out
}

// GetModelsByProvider returns every model whose static Provider field
// equals provider and whose status is Active or Beta (ModelInfo.IsAvailable);
// client counts, quota cooldown and suspensions are not considered.
func (r *Registry) GetModelsByProvider(provider apiidentity.ProviderId) []ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelInfo, 0)
	for _, reg := range r.models {
		if reg.Info.Provider == provider && reg.Info.IsAvailable() {
			out = append(out, reg.Info)
		}
	}
	return out
}

// GetModelProviders returns the provider names registered for modelID,
// ordered by client count descending.
func (r *Registry) GetModelProviders(modelID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.models[modelID]
	if !ok {
		return nil, ErrModelNotFound{ModelID: modelID}
	}
	type pc struct {
		name  string
		count int
	}
	pairs := make([]pc, 0, len(reg.Providers))
	for name, count := range reg.Providers {
		pairs = append(pairs, pc{name, count})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].count > pairs[j].count })
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.name
	}
	return out, nil
}

// SetModelQuotaExceeded records a quota-exceeded signal for (clientID,
// modelID) at the current time, starting the 5-minute cooldown.
func (r *Registry) SetModelQuotaExceeded(clientID, modelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.models[modelID]
	if !ok {
		return ErrModelNotFound{ModelID: modelID}
	}
	reg.QuotaExceededClients[clientID] = time.Now()
	return nil
}

// SuspendClientModel marks (clientID, modelID) suspended with reason, until
// ResumeClientModel or UnregisterClient clears it.
func (r *Registry) SuspendClientModel(clientID, modelID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.models[modelID]
	if !ok {
		return ErrModelNotFound{ModelID: modelID}
	}
	reg.SuspendedClients[clientID] = reason
	return nil
}

// ResumeClientModel clears a prior suspension for (clientID, modelID).
func (r *Registry) ResumeClientModel(clientID, modelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.models[modelID]
	if !ok {
		return ErrModelNotFound{ModelID: modelID}
	}
	delete(reg.SuspendedClients, clientID)
	return nil
}

// UnregisterClient removes clientID from every model it was registered
// against, decrementing counts and clearing its quota/suspension entries.
func (r *Registry) UnregisterClient(clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	modelIDs, ok := r.clientModels[clientID]
	if ok {
		for id := range modelIDs {
			if reg, ok := r.models[id]; ok {
				if reg.Count > 0 {
					reg.Count--
				}
				delete(reg.QuotaExceededClients, clientID)
				delete(reg.SuspendedClients, clientID)
			}
		}
		delete(r.clientModels, clientID)
	}
	delete(r.clientProviders, clientID)
	return nil
}

// Stats is the SUPPLEMENTED-FEATURES registry snapshot, grounded on the
// original's `get_stats`.
type Stats struct {
	TotalModels     int
	AvailableModels int
	TotalClients    int
	UniqueProviders int
}

// Stats returns a point-in-time snapshot of registry size.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	available := 0
	providers := map[string]struct{}{}
	for _, reg := range r.models {
		if reg.IsAvailable() {
			available++
		}
		for name := range reg.Providers {
			providers[name] = struct{}{}
		}
	}
	return Stats{
		TotalModels:     len(r.models),
		AvailableModels: available,
		TotalClients:    len(r.clientModels),
		UniqueProviders: len(providers),
	}
}
