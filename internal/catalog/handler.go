package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/ccna-trainer/backend/internal/loader"
	"github.com/ccna-trainer/backend/internal/models"
)

const (
	exportVersion  = 1
	maxImportBytes = 50 << 20
)

// Forgetter drops state derived from the previous question set.
// *explainer.Explainer satisfies it.
type Forgetter interface {
	Forget()
}

type Handler struct {
	catalog    *Catalog
	normalizer loader.Normalizer
	onSwap     Forgetter
}

// NewHandler serves category listing and the admin catalog endpoints.
// onSwap may be nil.
func NewHandler(c *Catalog, defaultCategory string, onSwap Forgetter) *Handler {
	return &Handler{
		catalog:    c,
		normalizer: loader.Normalizer{DefaultCategory: defaultCategory},
		onSwap:     onSwap,
	}
}

func (h *Handler) RegisterRoutes(public, admin *mux.Router) {
	public.HandleFunc("/categories", h.ListCategories).Methods("GET")

	admin.HandleFunc("/reload", h.Reload).Methods("POST")
	admin.HandleFunc("/import", h.Import).Methods("POST")
	admin.HandleFunc("/export", h.Export).Methods("GET")
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Categories())
}

func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	resp, err := h.catalog.Reload(r.Context())
	switch {
	case errors.Is(err, loader.ErrEmptyDataset):
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, loader.ErrLoadFailure):
		log.Printf("[handler] Reload error: %v", err)
		writeJSON(w, http.StatusBadGateway, models.ErrorResponse{Error: "Failed to load questions: " + err.Error()})
		return
	case err != nil:
		log.Printf("[handler] Reload error: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Reload failed"})
		return
	}

	h.swapped()
	writeJSON(w, http.StatusOK, resp)
}

// Import replaces the catalog with an uploaded sheet. The body is either a
// multipart form with a "file" field or the raw CSV, XLSX or JSON document.
// An export envelope is accepted as JSON.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	format, err := loader.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	body, name, contentType, err := readUpload(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid upload: " + err.Error()})
		return
	}
	if format == loader.FormatAuto {
		format = formatFromName(name)
	}

	rows, err := decodeImport(body, format, contentType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body: " + err.Error()})
		return
	}

	questions, stats := h.normalizer.Load(rows)
	if len(questions) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, models.ErrorResponse{Error: loader.ErrEmptyDataset.Error()})
		return
	}

	h.catalog.Replace(r.Context(), "import:"+name, questions)
	h.swapped()

	writeJSON(w, http.StatusOK, models.ImportResult{
		TotalInPayload: stats.Rows,
		Imported:       stats.Loaded,
		Skipped:        len(stats.Dropped),
	})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	source, _ := h.catalog.Source()
	questions := h.catalog.Questions()
	if questions == nil {
		questions = []models.Question{}
	}
	writeJSON(w, http.StatusOK, models.ExportEnvelope{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Source:     source,
		Questions:  questions,
	})
}

func (h *Handler) swapped() {
	if h.onSwap != nil {
		h.onSwap.Forget()
	}
}

// ── Helpers ────────────────────────────────────────────

func readUpload(r *http.Request) (body []byte, name, contentType string, err error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", "", err
		}
		defer file.Close()
		body, err = io.ReadAll(file)
		return body, header.Filename, header.Header.Get("Content-Type"), err
	}
	body, err = io.ReadAll(r.Body)
	return body, "upload", r.Header.Get("Content-Type"), err
}

func formatFromName(name string) loader.Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return loader.FormatXLSX
	case ".csv", ".tsv":
		return loader.FormatCSV
	case ".json":
		return loader.FormatJSON
	}
	return loader.FormatAuto
}

// decodeImport reads an export envelope when the body is one, otherwise
// hands the body to the sheet decoders.
func decodeImport(body []byte, format loader.Format, contentType string) ([]models.Row, error) {
	if format == loader.FormatJSON || format == loader.FormatAuto {
		trimmed := bytes.TrimSpace(body)
		if len(trimmed) > 0 && trimmed[0] == '{' {
			var envelope models.ExportEnvelope
			if err := json.Unmarshal(trimmed, &envelope); err == nil && envelope.Version > 0 {
				rows := make([]models.Row, 0, len(envelope.Questions))
				for _, q := range envelope.Questions {
					rows = append(rows, loader.RowFromQuestion(q))
				}
				return rows, nil
			}
		}
	}
	return loader.Decode(body, format, contentType)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
