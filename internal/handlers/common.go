// Package handlers serves the batch rename HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/filestructor/structor/internal/config"
	"github.com/filestructor/structor/internal/naming"
	"github.com/filestructor/structor/internal/oracle"
	"github.com/filestructor/structor/internal/providers"
	"github.com/filestructor/structor/internal/storage"
)

// maxUploadMemory is the part of a multipart upload kept in memory.
const maxUploadMemory = 32 << 20

type Handler struct {
	// ctx outlives requests; batch loops run under it
	ctx       context.Context
	config    config.Config
	batches   *storage.BatchStore
	providers map[string]providers.Provider
}

// New returns a Handler whose batches run until ctx is done.
func New(ctx context.Context, cfg config.Config) *Handler {
	return &Handler{
		ctx:       ctx,
		config:    cfg,
		batches:   storage.New(),
		providers: make(map[string]providers.Provider),
	}
}

// RegisterProvider replaces the provider used for name by new batches and
// credential checks.
func (h *Handler) RegisterProvider(name string, p providers.Provider) {
	h.providers[strings.ToLower(name)] = p
}

// Routes returns the API routes.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/batches", h.HandleListBatches)
	mux.HandleFunc("POST /api/batches", h.HandleCreateBatch)
	mux.HandleFunc("GET /api/batches/{id}", h.HandleBatchDetail)
	mux.HandleFunc("DELETE /api/batches/{id}", h.HandleDeleteBatch)
	mux.HandleFunc("POST /api/batches/{id}/{action}", h.HandleBatchAction)
	mux.HandleFunc("POST /api/batches/{id}/items/{index}/rename", h.HandleRenameItem)
	mux.HandleFunc("GET /api/batches/{id}/export", h.HandleExport)
	mux.HandleFunc("GET /api/batches/{id}/manifest", h.HandleManifest)
	mux.HandleFunc("POST /api/validate", h.HandleValidate)
	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return mux
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// Batch helpers
func (h *Handler) getBatchOrError(w http.ResponseWriter, id string) (*storage.Batch, bool) {
	b, exists := h.batches.Get(id)
	if !exists {
		h.writeError(w, "Batch not found", http.StatusNotFound)
		return nil, false
	}
	return b, true
}

// newOracle builds the oracle for a request. Empty values fall back to the
// server configuration; the configured model only applies to the configured
// provider.
func (h *Handler) newOracle(provider, model, apiKey string, policy naming.Policy) (*oracle.Service, error) {
	if provider == "" {
		provider = h.config.Provider
	}
	provider = strings.ToLower(provider)
	if err := config.CheckProvider(provider); err != nil {
		if _, ok := h.providers[provider]; !ok {
			return nil, err
		}
	}
	if model == "" && provider == h.config.Provider {
		model = h.config.Model
	}
	if apiKey == "" {
		apiKey = h.config.APIKey
	}

	svc := oracle.NewService(oracle.Config{
		Provider: provider,
		Model:    model,
		APIKey:   apiKey,
		Policy:   policy,
	})
	for name, p := range h.providers {
		svc.Register(name, p)
	}
	return svc, nil
}
