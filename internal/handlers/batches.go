package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/filestructor/structor/internal/batch"
	"github.com/filestructor/structor/internal/importer"
	"github.com/filestructor/structor/internal/naming"
	"github.com/filestructor/structor/internal/preview"
	"github.com/filestructor/structor/internal/storage"
)

// BatchSummary is the list view of a batch.
type BatchSummary struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Provider  string      `json:"provider"`
	Policy    string      `json:"policy"`
	State     batch.State `json:"state"`
	Progress  int         `json:"progress"`
	Renamed   int         `json:"renamed"`
	Total     int         `json:"total"`
}

// BatchDetail is a batch with its per-item state.
type BatchDetail struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	Policy   string `json:"policy"`
	batch.Snapshot
}

func detail(b *storage.Batch) BatchDetail {
	return BatchDetail{
		ID:       b.ID,
		Provider: b.Oracle.Provider(),
		Model:    b.Oracle.Model(),
		Policy:   b.Orchestrator.Policy().Name,
		Snapshot: b.Orchestrator.Snapshot(),
	}
}

func (h *Handler) HandleListBatches(w http.ResponseWriter, r *http.Request) {
	batches := h.batches.List()
	list := make([]BatchSummary, 0, len(batches))
	for _, b := range batches {
		snap := b.Orchestrator.Snapshot()
		list = append(list, BatchSummary{
			ID:        b.ID,
			CreatedAt: b.CreatedAt,
			Provider:  b.Oracle.Provider(),
			Policy:    b.Orchestrator.Policy().Name,
			State:     snap.State,
			Progress:  snap.Progress,
			Renamed:   snap.Renamed,
			Total:     snap.Total,
		})
	}
	h.writeJSON(w, list)
}

// HandleCreateBatch imports a multipart upload: vector files under "files",
// optional raster previews under "previews" and optional "provider",
// "model", "key" and "policy" values.
func (h *Handler) HandleCreateBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		h.writeError(w, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			slog.Warn("Unable to remove upload files", "err", err)
		}
	}()

	policy := h.config.Policy
	if name := r.FormValue("policy"); name != "" {
		p, err := naming.PolicyByName(name)
		if err != nil {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		policy = p
	}

	svc, err := h.newOracle(r.FormValue("provider"), r.FormValue("model"), r.FormValue("key"), policy)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	previews := preview.NewStore()
	files, err := importer.Multipart(r.MultipartForm, previews)
	if err != nil {
		code := http.StatusBadRequest
		if !errors.Is(err, importer.ErrNoVectorFiles) && !errors.Is(err, importer.ErrFileTooLarge) {
			code = http.StatusInternalServerError
		}
		h.writeError(w, err.Error(), code)
		return
	}

	orch := batch.New(svc, policy, batch.WithPreviewer(previews))
	orch.Load(files)
	id := h.batches.Add(&storage.Batch{
		Orchestrator: orch,
		Oracle:       svc,
		Previews:     previews,
	})
	slog.Info("Batch created", "batch_id", id, "files", len(files), "previews", previews.Len(), "provider", svc.Provider())

	h.writeJSON(w, map[string]any{
		"batch_id": id,
		"files":    len(files),
		"previews": previews.Len(),
		"policy":   policy.Name,
	})
}

func (h *Handler) HandleBatchDetail(w http.ResponseWriter, r *http.Request) {
	b, ok := h.getBatchOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	h.writeJSON(w, detail(b))
}

func (h *Handler) HandleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	if !h.batches.Delete(r.PathValue("id")) {
		h.writeError(w, "Batch not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleBatchAction applies start, pause, resume, toggle, stop or clear and
// returns the resulting batch state.
func (h *Handler) HandleBatchAction(w http.ResponseWriter, r *http.Request) {
	b, ok := h.getBatchOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	switch action := r.PathValue("action"); action {
	case "start":
		if !b.Oracle.HasCredential() {
			h.writeError(w, "Missing API key", http.StatusBadRequest)
			return
		}
		if _, err := b.Orchestrator.Start(h.ctx); err != nil {
			code := http.StatusBadRequest
			if errors.Is(err, batch.ErrAlreadyRunning) {
				code = http.StatusConflict
			}
			h.writeError(w, err.Error(), code)
			return
		}
	case "pause":
		b.Orchestrator.Pause()
	case "resume":
		b.Orchestrator.Resume()
	case "toggle":
		b.Orchestrator.TogglePause()
	case "stop":
		b.Orchestrator.Stop()
	case "clear":
		b.Orchestrator.Clear()
	default:
		h.writeError(w, "Unknown action: "+action, http.StatusNotFound)
		return
	}

	h.writeJSON(w, detail(b))
}

// HandleRenameItem regenerates the title of one item and waits for it.
func (h *Handler) HandleRenameItem(w http.ResponseWriter, r *http.Request) {
	b, ok := h.getBatchOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		h.writeError(w, "Invalid item index", http.StatusBadRequest)
		return
	}
	if !b.Oracle.HasCredential() {
		h.writeError(w, "Missing API key", http.StatusBadRequest)
		return
	}

	title, err := b.Orchestrator.RenameOne(r.Context(), index)
	switch {
	case errors.Is(err, batch.ErrIndexOutOfRange):
		h.writeError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, batch.ErrBatchReplaced):
		h.writeError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		h.writeError(w, "Failed to rename item: "+err.Error(), http.StatusBadGateway)
		return
	}

	h.writeJSON(w, map[string]any{
		"index": index,
		"title": title,
	})
}
