package modelregistry

import (
	"testing"
	"time"

	"github.com/archgw/llmgateway/apiidentity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gpt4() ModelInfo {
	return ModelInfo{ID: "gpt-4", Provider: apiidentity.ProviderOpenAI, Status: StatusActive}
}

func TestRegisterModelIdempotent(t *testing.T) {
	r := New()
	r.RegisterModel(gpt4())
	r.RegisterModel(gpt4())

	got, err := r.GetModel("gpt-4")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", got.ID)
	assert.Len(t, r.GetAllModels(), 1)
}

func TestRegisterClient(t *testing.T) {
	r := New()
	r.RegisterModel(gpt4())

	require.NoError(t, r.RegisterClient("client1", apiidentity.ProviderOpenAI, []string{"gpt-4"}))

	providers, err := r.GetModelProviders("gpt-4")
	require.NoError(t, err)
	assert.Contains(t, providers, "openai")
}

func TestRegisterClientUnknownModel(t *testing.T) {
	r := New()
	err := r.RegisterClient("client1", apiidentity.ProviderOpenAI, []string{"gpt-4"})
	assert.ErrorAs(t, err, &ErrModelNotFound{})
}

func TestQuotaCooldownExcludesClient(t *testing.T) {
	r := New()
	r.RegisterModel(gpt4())
	require.NoError(t, r.RegisterClient("client1", apiidentity.ProviderOpenAI, []string{"gpt-4"}))

	require.NoError(t, r.SetModelQuotaExceeded("client1", "gpt-4"))

	r.mu.RLock()
	reg := r.models["gpt-4"]
	r.mu.RUnlock()

	assert.Equal(t, 0, reg.EffectiveClients())
	assert.True(t, reg.IsAvailable(), "still available during cooldown so callers can back off")
}

func TestQuotaCooldownExpires(t *testing.T) {
	r := New()
	r.RegisterModel(gpt4())
	require.NoError(t, r.RegisterClient("client1", apiidentity.ProviderOpenAI, []string{"gpt-4"}))
	require.NoError(t, r.SetModelQuotaExceeded("client1", "gpt-4"))

	r.mu.Lock()
	r.models["gpt-4"].QuotaExceededClients["client1"] = time.Now().Add(-(QuotaCooldown + time.Second))
	r.mu.Unlock()

	r.mu.RLock()
	reg := r.models["gpt-4"]
	r.mu.RUnlock()

	assert.Equal(t, 1, reg.EffectiveClients())
}

func TestSuspendedClientExcludedFromAvailability(t *testing.T) {
	r := New()
	r.RegisterModel(gpt4())
	require.NoError(t, r.RegisterClient("client1", apiidentity.ProviderOpenAI, []string{"gpt-4"}))
	require.NoError(t, r.SuspendClientModel("client1", "gpt-4", "maintenance"))

	models := r.GetAvailableModels()
	assert.Empty(t, models)

	require.NoError(t, r.ResumeClientModel("client1", "gpt-4"))
	models = r.GetAvailableModels()
	assert.Len(t, models, 1)
}

func TestUnregisterClientClearsState(t *testing.T) {
	r := New()
	r.RegisterModel(gpt4())
	require.NoError(t, r.RegisterClient("client1", apiidentity.ProviderOpenAI, []string{"gpt-4"}))
	require.NoError(t, r.SetModelQuotaExceeded("client1", "gpt-4"))

	require.NoError(t, r.UnregisterClient("client1"))

	r.mu.RLock()
	reg := r.models["gpt-4"]
	r.mu.RUnlock()
	assert.Equal(t, 0, reg.Count)
	assert.Empty(t, reg.QuotaExceededClients)
}

func TestStats(t *testing.T) {
	r := New()
	r.RegisterModel(gpt4())
	require.NoError(t, r.RegisterClient("client1", apiidentity.ProviderOpenAI, []string{"gpt-4"}))

	s := r.Stats()
	assert.Equal(t, 1, s.TotalModels)
	assert.Equal(t, 1, s.AvailableModels)
	assert.Equal(t, 1, s.TotalClients)
	assert.Equal(t, 1, s.UniqueProviders)
}

func TestResolveModelExactMatch(t *testing.T) {
	router := NewRouter(nil, nil)
	available := []ModelInfo{gpt4()}
	m, err := router.ResolveModel("gpt-4", available)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4", m.ID)
}

func TestResolveModelFallbackSameProvider(t *testing.T) {
	router := NewRouter(SameProviderFallback{}, nil)
	available := []ModelInfo{{ID: "gpt-4o-mini", Provider: apiidentity.ProviderOpenAI, Status: StatusActive}}
	m, err := router.ResolveModel("gpt-4", available)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", m.ID)
}

func TestResolveModelNoAvailableProviders(t *testing.T) {
	router := NewRouter(nil, nil)
	_, err := router.ResolveModel("gpt-4", nil)
	assert.ErrorIs(t, err, ErrNoAvailableProviders)
}

func TestResolveModelAliasStrictRejectsCrossProvider(t *testing.T) {
	mapping := NewModelMapping(AliasModeStrict)
	mapping.Add("gpt-4", "claude-3-opus")
	router := NewRouter(SameProviderFallback{}, mapping)

	available := []ModelInfo{
		{ID: "claude-3-opus", Provider: apiidentity.ProviderAnthropic, Status: StatusActive},
	}
	_, err := router.ResolveModel("gpt-4", available)
	assert.ErrorIs(t, err, ErrNoAvailableProviders)
}
