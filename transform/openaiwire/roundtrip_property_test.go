package openaiwire

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/archgw/llmgateway/canonical"
)

// TestRequestRoundTripPreservesTextProperty verifies spec.md §8's
// format round-trip invariant for the OpenAI wire: for any user/assistant
// text-only conversation, SerializeRequest followed by ParseRequest
// reproduces the same model id, role sequence, and message text.
func TestRequestRoundTripPreservesTextProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	textGen := gen.AlphaString()

	properties.Property("serialize then parse preserves model and text turns", prop.ForAll(
		func(model string, texts []string) bool {
			if model == "" || len(texts) == 0 {
				return true
			}
			req := &canonical.Request{
				Model:    model,
				Sampling: canonical.SamplingParams{MaxTokens: 64},
			}
			for i, text := range texts {
				role := canonical.RoleUser
				if i%2 == 1 {
					role = canonical.RoleAssistant
				}
				req.Messages = append(req.Messages, canonical.Message{
					Role:    role,
					Content: []canonical.ContentBlock{canonical.TextBlock{Text: text}},
				})
			}

			body, err := SerializeRequest(req)
			if err != nil {
				return false
			}
			got, err := ParseRequest(body)
			if err != nil {
				return false
			}
			if got.Model != model || len(got.Messages) != len(req.Messages) {
				return false
			}
			for i, m := range got.Messages {
				if m.Role != req.Messages[i].Role {
					return false
				}
				if canonical.TextOnly(m.Content) != canonical.TextOnly(req.Messages[i].Content) {
					return false
				}
			}
			return true
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
		gen.SliceOf(textGen),
	))

	properties.TestingRun(t)
}
