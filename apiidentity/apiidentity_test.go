package apiidentity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentifyClientAPI(t *testing.T) {
	api, ok := IdentifyClientAPI("/v1/chat/completions")
	assert.True(t, ok)
	assert.Equal(t, OpenAIChat, api)

	api, ok = IdentifyClientAPI("/v1/messages")
	assert.True(t, ok)
	assert.Equal(t, AnthropicMessages, api)

	_, ok = IdentifyClientAPI("/v1/unknown")
	assert.False(t, ok)
}

func TestTargetPathRuleTable(t *testing.T) {
	cases := []struct {
		name      string
		api       ClientAPI
		provider  ProviderId
		modelID   string
		reqPath   string
		streaming bool
		want      string
	}{
		{"anthropic native", AnthropicMessages, ProviderAnthropic, "claude-3", "/v1/messages", false, "/v1/messages"},
		{"bedrock anthropic buffered", AnthropicMessages, ProviderAmazonBedrock, "anthropic.claude", "/v1/messages", false, "/model/anthropic.claude/converse"},
		{"bedrock anthropic streaming", AnthropicMessages, ProviderAmazonBedrock, "anthropic.claude", "/v1/messages", true, "/model/anthropic.claude/converse-stream"},
		{"groq passthrough", OpenAIChat, ProviderGroq, "llama3", "/v1/chat/completions", false, "/openai/v1/chat/completions"},
		{"zhipu", OpenAIChat, ProviderZhipu, "glm-4", "/v1/chat/completions", false, "/api/paas/v4/chat/completions"},
		{"qwen", OpenAIChat, ProviderQwen, "qwen-max", "/v1/chat/completions", false, "/compatible-mode/v1/chat/completions"},
		{"azure", OpenAIChat, ProviderAzureOpenAI, "gpt-4o", "/v1/chat/completions", false, "/openai/deployments/gpt-4o/chat/completions?api-version=2025-01-01-preview"},
		{"gemini", OpenAIChat, ProviderGemini, "gemini-pro", "/v1/chat/completions", false, "/v1beta/openai/chat/completions"},
		{"bedrock openai buffered", OpenAIChat, ProviderAmazonBedrock, "anthropic.claude", "/v1/chat/completions", false, "/model/anthropic.claude/converse"},
		{"default openai", OpenAIChat, ProviderOpenAI, "gpt-4o", "/v1/chat/completions", false, "/v1/chat/completions"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := TargetPath(c.api, c.provider, c.modelID, c.reqPath, c.streaming, "")
			assert.Equal(t, c.want, got)
		})
	}
}

func TestTargetPathHonorsBaseURLPathPrefix(t *testing.T) {
	got := TargetPath(OpenAIChat, ProviderOpenAI, "gpt-4o", "/v1/chat/completions", false, "/proxy/")
	assert.Equal(t, "/proxy/v1/chat/completions", got)

	got = TargetPath(OpenAIChat, ProviderOpenAI, "gpt-4o", "/v1/chat/completions", false, "/")
	assert.Equal(t, "/v1/chat/completions", got)
}

func TestTargetPathAzureOverridePrefixReplacesDeploymentsSegment(t *testing.T) {
	got := TargetPath(OpenAIChat, ProviderAzureOpenAI, "gpt-4-deployment", "/v1/chat/completions", false, "/custom/azure/path")
	assert.Equal(t, "/custom/azure/path/gpt-4-deployment/chat/completions?api-version=2025-01-01-preview", got)

	got = TargetPath(OpenAIChat, ProviderAzureOpenAI, "gpt-4-deployment", "/v1/chat/completions", false, "/")
	assert.Equal(t, "/gpt-4-deployment/chat/completions?api-version=2025-01-01-preview", got)
}

func TestPreferredUpstreamAPI(t *testing.T) {
	assert.Equal(t, AnthropicMessages, PreferredUpstreamAPI(OpenAIChat, ProviderAnthropic))
	assert.Equal(t, OpenAIChat, PreferredUpstreamAPI(OpenAIChat, ProviderOpenAI))
	assert.Equal(t, AnthropicMessages, PreferredUpstreamAPI(AnthropicMessages, ProviderAmazonBedrock))
	assert.Equal(t, OpenAIChat, PreferredUpstreamAPI(OpenAIChat, ProviderAmazonBedrock))
}
