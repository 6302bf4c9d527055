package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/filestructor/structor/internal/gemini"
	"github.com/filestructor/structor/internal/providers"
)

// HandleValidate checks a provider credential before a batch is started.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Provider string `json:"provider"`
		Model    string `json:"model"`
		Key      string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	svc, err := h.newOracle(request.Provider, request.Model, request.Key, h.config.Policy)
	if err != nil {
		h.writeJSONStatus(w, map[string]any{"ok": false, "error": err.Error()}, http.StatusBadRequest)
		return
	}
	if !svc.HasCredential() {
		h.writeJSONStatus(w, map[string]any{"ok": false, "error": "Missing key"}, http.StatusBadRequest)
		return
	}

	model, err := svc.Validate(r.Context())
	if err != nil {
		code := http.StatusUnauthorized
		switch {
		case errors.Is(err, gemini.ErrNoCompatibleModel):
			code = http.StatusNotFound
		case errors.Is(err, providers.ErrMissingAPIKey):
			code = http.StatusBadRequest
		}
		h.writeJSONStatus(w, map[string]any{"ok": false, "error": err.Error()}, code)
		return
	}

	h.writeJSON(w, map[string]any{"ok": true, "provider": svc.Provider(), "model": model})
}
