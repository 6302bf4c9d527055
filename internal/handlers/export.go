package handlers

import (
	"bytes"
	"net/http"

	"github.com/filestructor/structor/internal/export"
	"github.com/filestructor/structor/internal/report"
)

// HandleExport streams the batch as a ZIP of renamed files.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	b, ok := h.getBatchOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	entries := b.Orchestrator.Entries()
	if len(entries) == 0 {
		h.writeError(w, "No files to export", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteZip(&buf, entries); err != nil {
		h.writeError(w, "Failed to build archive: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.DefaultArchiveName+`"`)
	_, _ = w.Write(buf.Bytes())
}

// HandleManifest returns the YAML rename manifest of the batch.
func (h *Handler) HandleManifest(w http.ResponseWriter, r *http.Request) {
	b, ok := h.getBatchOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	m := report.NewManifest(report.RunConfig{
		Provider: b.Oracle.Provider(),
		Model:    b.Oracle.Model(),
		Policy:   b.Orchestrator.Policy().Name,
		Source:   b.ID,
	}, b.Orchestrator.Snapshot(), b.Orchestrator.Entries())

	var buf bytes.Buffer
	if err := report.EncodeYAML(&buf, m); err != nil {
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(buf.Bytes())
}
