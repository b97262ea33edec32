package gatewayctl

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/archgw/llmgateway/modelregistry"
)

// openAIModelEntry is the OpenAI-compatible shape `GET /v1/models` returns
// (spec.md §6), synthesized from the registry rather than stored verbatim.
type openAIModelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type openAIModelList struct {
	Object string              `json:"object"`
	Data   []openAIModelEntry  `json:"data"`
}

// modelDetail is the extended per-model shape `GET /v1/models/{id}` returns,
// carrying the full ModelInfo rather than just the OpenAI list projection.
type modelDetail struct {
	ID                  string   `json:"id"`
	DisplayName         string   `json:"display_name"`
	Owner               string   `json:"owner"`
	Provider            string   `json:"provider"`
	Status              string   `json:"status"`
	ContextWindow       int      `json:"context_window"`
	MaxCompletionTokens int      `json:"max_completion_tokens"`
	Vision              bool     `json:"vision"`
	FunctionCalling     bool     `json:"function_calling"`
	Streaming           bool     `json:"streaming"`
	ThinkingSupport     bool     `json:"thinking_support"`
}

func toModelDetail(m modelregistry.ModelInfo) modelDetail {
	return modelDetail{
		ID:                  m.ID,
		DisplayName:         m.DisplayName,
		Owner:               m.Owner,
		Provider:            string(m.Provider),
		Status:              string(m.Status),
		ContextWindow:       m.ContextWindow,
		MaxCompletionTokens: m.MaxCompletionTokens,
		Vision:              m.Capabilities.Vision,
		FunctionCalling:     m.Capabilities.FunctionCalling,
		Streaming:           m.Capabilities.Streaming,
		ThinkingSupport:     m.ThinkingSupport,
	}
}

// HandleListModels serves GET /v1/models: every registered model id in the
// OpenAI model-list envelope, regardless of availability — spec.md draws
// the available/unavailable distinction at model-resolution time (§4.8),
// not at listing time.
func (c *Controller) HandleListModels(w http.ResponseWriter, r *http.Request) {
	var entries []openAIModelEntry
	if c.Registry != nil {
		for _, m := range c.Registry.GetAllModels() {
			entries = append(entries, openAIModelEntry{
				ID:      m.ID,
				Object:  "model",
				Created: m.LastUpdated.Unix(),
				OwnedBy: m.Owner,
			})
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(openAIModelList{Object: "list", Data: entries})
}

// HandleGetModel serves GET /v1/models/{id}: the extended model info a
// plain list entry omits.
func (c *Controller) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if c.Registry == nil {
		c.writeError(w, New(KindBadRequest, "model registry not configured"))
		return
	}
	info, err := c.Registry.GetModel(id)
	if err != nil {
		c.writeError(w, Wrap(KindBadRequest, "model lookup", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(toModelDetail(info))
}
