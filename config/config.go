// Package config loads the gateway's YAML configuration, mirroring the
// schema table in spec.md §6. Loaded once at startup; there is no
// hot-reload (spec.md §5 "immutable thereafter from the data plane's
// view"), matching the teacher's pattern of constructing long-lived
// options structs once in main and threading them through explicitly
// (see `features/model/anthropic.Options`, `features/model/gateway.Option`)
// rather than reading a live config object.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/archgw/llmgateway/canonical"
)

// Config is the root configuration document.
type Config struct {
	Version       string                   `yaml:"version"`
	LLMProviders  []LLMProvider            `yaml:"llm_providers"`
	ModelAliases  map[string]AliasTarget   `yaml:"model_aliases"`
	Overrides     Overrides                `yaml:"overrides"`
	Ratelimits    []Ratelimit              `yaml:"ratelimits"`
	PromptTargets []PromptTarget           `yaml:"prompt_targets"`
	Mode          string                   `yaml:"mode"`
	Tracing       Tracing                  `yaml:"tracing"`
	AgentPipelines []AgentPipeline         `yaml:"agent_pipelines"`
	Agents         map[string]AgentConfig  `yaml:"agents"`
}

// AgentPipeline is one `agent_pipelines[]` entry (glossary: AgentPipeline),
// naming the filter chain consulted once `overrides.use_agent_orchestrator`
// and a provider's `routing_preferences` select agent mode. Not part of
// spec.md §6's condensed schema table; SUPPLEMENTED FEATURE restoring the
// original's `common::configuration::AgentPipeline`, whose `filter_chain`
// shape spec.md §3 and §4.7 describe but whose config-surface spec.md never
// spelled out.
type AgentPipeline struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Default     bool     `yaml:"default"`
	FilterChain []string `yaml:"filter_chain"`
}

// AgentConfig is one `agents{}` entry (glossary: Agent) naming an upstream
// host an AgentPipeline's filter_chain can address by id.
type AgentConfig struct {
	Name string `yaml:"name"`
}

// LLMProvider is one `llm_providers[]` entry.
type LLMProvider struct {
	Name              string   `yaml:"name"`
	ProviderInterface string   `yaml:"provider_interface"`
	AccessKey         string   `yaml:"access_key"`
	Model             string   `yaml:"model"`
	Default           bool     `yaml:"default"`
	Endpoint          string   `yaml:"endpoint"`
	Port              int      `yaml:"port"`
	BaseURLPathPrefix string   `yaml:"base_url_path_prefix"`
	RoutingPreferences []string `yaml:"routing_preferences"`
	RateLimits        *RateLimitRef `yaml:"rate_limits"`
}

// RateLimitRef names the per-provider token limit and selector header.
type RateLimitRef struct {
	Tokens   int    `yaml:"tokens"`
	Selector string `yaml:"selector"`
}

// AliasTarget is the `model_aliases{from → {target}}` mapping value.
type AliasTarget struct {
	Target string `yaml:"target"`
}

// Overrides is the `overrides` block.
type Overrides struct {
	UseAgentOrchestrator bool `yaml:"use_agent_orchestrator"`
}

// RatelimitUnit is the time unit a Ratelimit's token budget replenishes over.
type RatelimitUnit string

const (
	UnitSecond RatelimitUnit = "second"
	UnitMinute RatelimitUnit = "minute"
	UnitHour   RatelimitUnit = "hour"
)

// Ratelimit is one `ratelimits[]` entry: a per-model token budget.
type Ratelimit struct {
	Model  string        `yaml:"model"`
	Tokens int           `yaml:"tokens"`
	Unit   RatelimitUnit `yaml:"unit"`
}

// PromptTarget is one `prompt_targets[]` entry: a named tool schema. Load
// compiles its Parameters as a JSON Schema; the router-LLM prompt built by
// agentpipeline does not include prompt targets.
type PromptTarget struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Parameters  map[string]any `yaml:"parameters"`
}

// Tracing is the `tracing` block.
type Tracing struct {
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Load reads and parses the YAML configuration at path. Beyond what yaml.v3
// itself enforces, it only compiles each prompt_targets[].parameters
// document as a JSON Schema (validatePromptTargetSchemas); other semantic
// validation (provider interface names, alias targets) happens where the
// config is consumed (registry seeding, provider client construction), matching
// spec.md §6 "Exit codes: non-zero on config parse failure at startup" —
// syntactic failures fail fast here, semantic ones fail where they bite.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := validatePromptTargetSchemas(cfg.PromptTargets); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validatePromptTargetSchemas compiles each prompt_targets[].parameters
// document as a JSON Schema at load time, so a malformed tool schema fails
// startup rather than surfacing as an opaque tool-use error mid-request.
func validatePromptTargetSchemas(targets []PromptTarget) error {
	for _, t := range targets {
		if len(t.Parameters) == 0 {
			continue
		}
		raw, err := json.Marshal(t.Parameters)
		if err != nil {
			return fmt.Errorf("config: encode prompt_target %q parameters: %w", t.Name, err)
		}
		if err := canonical.ValidateToolSchema(raw); err != nil {
			return fmt.Errorf("config: prompt_target %q: %w", t.Name, err)
		}
	}
	return nil
}

// DefaultProvider returns the provider marked `default: true`, or the first
// provider whose provider_interface is not the internal "arch" router if
// none is marked, matching spec.md §4.9's SelectProvider fallback chain's
// final rung.
func (c *Config) DefaultProvider() (LLMProvider, bool) {
	for _, p := range c.LLMProviders {
		if p.Default {
			return p, true
		}
	}
	for _, p := range c.LLMProviders {
		if p.ProviderInterface != "arch" {
			return p, true
		}
	}
	return LLMProvider{}, false
}

// ProviderByName looks up a provider by its configured `name`, used when an
// explicit routing header pins a provider (spec.md §4.9).
func (c *Config) ProviderByName(name string) (LLMProvider, bool) {
	for _, p := range c.LLMProviders {
		if p.Name == name {
			return p, true
		}
	}
	return LLMProvider{}, false
}
