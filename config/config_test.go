package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, yaml string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

func TestLoadParsesProvidersAndAgentPipelines(t *testing.T) {
	path := writeTempConfig(t, `
version: "1"
llm_providers:
  - name: openai-default
    provider_interface: openai
    access_key: sk-test
    model: gpt-4o
    default: true
  - name: claude
    provider_interface: anthropic
    access_key: sk-ant
    model: claude-3-5-sonnet
    routing_preferences: ["reasoning"]
overrides:
  use_agent_orchestrator: true
agent_pipelines:
  - name: research
    description: multi-hop research
    filter_chain: ["summarizer", "responder"]
agents:
  summarizer:
    name: summarizer-agent
  responder:
    name: responder-agent
mode: llm
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Len(t, cfg.LLMProviders, 2)
	def, ok := cfg.DefaultProvider()
	require.True(t, ok)
	assert.Equal(t, "openai-default", def.Name)

	claude, ok := cfg.ProviderByName("claude")
	require.True(t, ok)
	assert.Equal(t, []string{"reasoning"}, claude.RoutingPreferences)

	require.True(t, cfg.Overrides.UseAgentOrchestrator)
	require.Len(t, cfg.AgentPipelines, 1)
	assert.Equal(t, []string{"summarizer", "responder"}, cfg.AgentPipelines[0].FilterChain)
	assert.Equal(t, "summarizer-agent", cfg.Agents["summarizer"].Name)
}

func TestLoadRejectsMalformedPromptTargetSchema(t *testing.T) {
	path := writeTempConfig(t, `
version: "1"
llm_providers:
  - name: openai-default
    provider_interface: openai
    access_key: sk-test
    model: gpt-4o
    default: true
prompt_targets:
  - name: weather
    description: current weather
    parameters:
      type: object
      properties:
        city:
          type: 123
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestDefaultProviderFallsBackToFirst(t *testing.T) {
	cfg := &Config{LLMProviders: []LLMProvider{{Name: "a"}, {Name: "b"}}}
	p, ok := cfg.DefaultProvider()
	assert.True(t, ok)
	assert.Equal(t, "a", p.Name)
}
