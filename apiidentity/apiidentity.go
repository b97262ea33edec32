// Package apiidentity maps an inbound request path to a ClientAPI and maps
// a (ClientAPI, ProviderId) pair to the upstream URL path the gateway
// dispatches to. It is the first thing the gateway controller consults
// (spec.md §4.9 Accept/IdentifyApi) and the last thing consulted before
// dispatch (SelectProvider/AuthorizeRewrite).
//
// Grounded on the original Rust `hermesllm::clients::endpoints` module
// (`SupportedAPIs`/`target_endpoint_for_provider`); expressed here as plain
// Go functions rather than a trait object, matching the free-function style
// of the teacher's `features/model/gateway` helpers.
package apiidentity

import (
	"fmt"
	"strings"
)

// ClientAPI is the wire format a client request (or a client-facing
// response) is expressed in.
type ClientAPI string

const (
	OpenAIChat       ClientAPI = "openai_chat"
	AnthropicMessages ClientAPI = "anthropic_messages"
)

// ProviderId is the closed set of upstream providers the gateway knows how
// to dispatch to. Arch is the internal agent-pipeline router, never an
// actual upstream target.
type ProviderId string

const (
	ProviderOpenAI        ProviderId = "openai"
	ProviderAnthropic     ProviderId = "anthropic"
	ProviderMistral       ProviderId = "mistral"
	ProviderDeepseek      ProviderId = "deepseek"
	ProviderGroq          ProviderId = "groq"
	ProviderGemini        ProviderId = "gemini"
	ProviderAzureOpenAI   ProviderId = "azure_openai"
	ProviderAmazonBedrock ProviderId = "amazon_bedrock"
	ProviderZhipu         ProviderId = "zhipu"
	ProviderQwen          ProviderId = "qwen"
	ProviderGitHub        ProviderId = "github"
	ProviderXAI           ProviderId = "xai"
	ProviderTogetherAI    ProviderId = "togetherai"
	ProviderArch          ProviderId = "arch"
)

// IdentifyClientAPI maps an inbound request path to a ClientAPI. Unknown
// paths return ok=false; the HTTP layer turns that into a 404.
func IdentifyClientAPI(path string) (ClientAPI, bool) {
	switch path {
	case "/v1/chat/completions":
		return OpenAIChat, true
	case "/v1/messages":
		return AnthropicMessages, true
	default:
		return "", false
	}
}

// TargetPath computes the upstream URL path for a (ClientAPI, ProviderId)
// pair, given the model id being dispatched, whether the call streams, the
// original inbound request path (needed for the Groq passthrough rule), and
// an optional base_url_path_prefix override from provider configuration.
//
// Rules are evaluated in the exact order of spec.md §4.1's table; the first
// matching condition wins.
func TargetPath(api ClientAPI, provider ProviderId, modelID, requestPath string, streaming bool, baseURLPathPrefix string) string {
	prefix, hasPrefix := normalizedPrefix(baseURLPathPrefix)
	// Azure mounts deployments under a fixed "/openai/deployments" segment;
	// an override replaces that segment rather than prepending in front of
	// it, per the original build_endpoint helper's per-provider prefix
	// substitution.
	if hasPrefix && api == OpenAIChat && provider == ProviderAzureOpenAI {
		return azureTargetPath(prefix, modelID)
	}
	suffix := ruleSuffix(api, provider, modelID, requestPath, streaming)
	if hasPrefix {
		return joinPrefix(prefix, suffix)
	}
	return suffix
}

// azureTargetPath builds the Azure OpenAI deployment path when a
// base_url_path_prefix override is supplied, substituting it for the
// provider's default "/openai/deployments" prefix.
func azureTargetPath(prefix, modelID string) string {
	return fmt.Sprintf("%s/%s/chat/completions?api-version=2025-01-01-preview", prefix, modelID)
}

// ruleSuffix evaluates the §4.1 rule table and returns the matching path,
// ignoring any base_url_path_prefix override — overriding the prefix never
// changes which rule fires, only where its result is mounted.
func ruleSuffix(api ClientAPI, provider ProviderId, modelID, requestPath string, streaming bool) string {
	switch {
	case api == AnthropicMessages && provider == ProviderAnthropic:
		return "/v1/messages"
	case api == AnthropicMessages && provider == ProviderAmazonBedrock && !streaming:
		return fmt.Sprintf("/model/%s/converse", modelID)
	case api == AnthropicMessages && provider == ProviderAmazonBedrock && streaming:
		return fmt.Sprintf("/model/%s/converse-stream", modelID)
	case api == OpenAIChat && provider == ProviderGroq && strings.HasPrefix(requestPath, "/v1/"):
		return "/openai" + requestPath
	case api == OpenAIChat && provider == ProviderZhipu:
		return "/api/paas/v4/chat/completions"
	case api == OpenAIChat && provider == ProviderQwen:
		return "/compatible-mode/v1/chat/completions"
	case api == OpenAIChat && provider == ProviderAzureOpenAI:
		return fmt.Sprintf("/openai/deployments/%s/chat/completions?api-version=2025-01-01-preview", modelID)
	case api == OpenAIChat && provider == ProviderGemini:
		return "/v1beta/openai/chat/completions"
	case api == OpenAIChat && provider == ProviderAmazonBedrock && !streaming:
		return fmt.Sprintf("/model/%s/converse", modelID)
	case api == OpenAIChat && provider == ProviderAmazonBedrock && streaming:
		return fmt.Sprintf("/model/%s/converse-stream", modelID)
	default:
		return "/v1/chat/completions"
	}
}

// normalizedPrefix reports whether a base_url_path_prefix override is
// present and, if so, returns its normalized form: pure-slash values
// normalize to empty, everything else is trimmed to a leading-slash,
// no-trailing-slash form.
func normalizedPrefix(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if strings.Trim(raw, "/") == "" {
		return "", true
	}
	trimmed := strings.TrimRight(raw, "/")
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	return trimmed, true
}

func joinPrefix(prefix, suffix string) string {
	return prefix + suffix
}

// PreferredUpstreamAPI returns the ClientAPI a provider natively speaks,
// given the client's requested ClientAPI. Providers that only speak one
// wire format force conversion when the client asked for the other; the
// Anthropic provider always stays on AnthropicMessages, every OpenAI-wire
// compatible provider always stays on OpenAIChat, and Bedrock (which this
// gateway dispatches to via Converse, not either wire format directly)
// reports whichever API the client asked for since both directions already
// funnel through Converse translation at the upstream client layer.
func PreferredUpstreamAPI(client ClientAPI, provider ProviderId) ClientAPI {
	switch provider {
	case ProviderAnthropic:
		return AnthropicMessages
	case ProviderAmazonBedrock:
		return client
	default:
		return OpenAIChat
	}
}
