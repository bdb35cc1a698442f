package config

import (
	"encoding/json"
	"net/http"

	"stockcheckertool/pkg/api/respond"
	"stockcheckertool/pkg/core/assumption"
	coreConfig "stockcheckertool/pkg/core/config"
)

type Response struct {
	ActiveScenario string                    `json:"active_scenario"`
	Book           json.RawMessage           `json:"book"`
	Defaults       coreConfig.MarketDefaults `json:"defaults"`
}

type SwitchRequest struct {
	Scenario string `json:"scenario"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	Book     *assumption.ScenarioBook
	Defaults coreConfig.MarketDefaults
}

// NewHandler creates a new config handler
func NewHandler(book *assumption.ScenarioBook, defaults coreConfig.MarketDefaults) *Handler {
	return &Handler{
		Book:     book,
		Defaults: defaults,
	}
}

// HandleConfig returns the scenario book and the market defaults.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "GET") {
		return
	}

	book, err := h.Book.ToJSON()
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, Response{
		ActiveScenario: h.Book.Active(),
		Book:           book,
		Defaults:       h.Defaults,
	})
}

// HandleSwitch changes the scenario used when a request names none.
func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	if respond.CORS(w, r, "POST") {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req SwitchRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if err := h.Book.SetActive(req.Scenario); err != nil {
		respond.JSON(w, http.StatusBadRequest, respond.ErrorBody{Error: err.Error()})
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"active_scenario": req.Scenario})
}
