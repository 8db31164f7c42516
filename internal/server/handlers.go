package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/valuation-cli/internal/model"
	"github.com/sells-group/valuation-cli/internal/store"
)

var reportStatuses = map[model.ReportStatus]bool{
	model.ReportStatusDraft:     true,
	model.ReportStatusInReview:  true,
	model.ReportStatusFinalized: true,
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ReportFilter{
		ClientID: q.Get("client_id"),
		Status:   model.ReportStatus(q.Get("status")),
	}
	var err error
	if v := q.Get("limit"); v != "" {
		if filter.Limit, err = strconv.Atoi(v); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid limit", err.Error())
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if filter.Offset, err = strconv.Atoi(v); err != nil {
			writeError(w, r, http.StatusBadRequest, "Invalid offset", err.Error())
			return
		}
	}

	reports, err := s.store.ListReports(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) createReport(w http.ResponseWriter, r *http.Request) {
	var rec model.ReportRecord
	if err := decodeJSON(r, &rec); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if rec.Status != "" && !reportStatuses[rec.Status] {
		writeError(w, r, http.StatusUnprocessableEntity, "Invalid status", string(rec.Status))
		return
	}

	out, err := s.store.CreateReport(r.Context(), &rec)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) replaceReport(w http.ResponseWriter, r *http.Request) {
	var rec model.ReportRecord
	if err := decodeJSON(r, &rec); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if rec.ID != "" && rec.ID != id {
		writeError(w, r, http.StatusBadRequest, "Report id mismatch", rec.ID+" != "+id)
		return
	}
	if rec.Status != "" && !reportStatuses[rec.Status] {
		writeError(w, r, http.StatusUnprocessableEntity, "Invalid status", string(rec.Status))
		return
	}
	rec.ID = id

	out, err := s.store.UpdateReport(r.Context(), &rec)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// reportPatch is a partial update: sections are shallow-merged, other
// fields replace when present.
type reportPatch struct {
	Sections       map[string]model.Section `json:"sections"`
	Status         model.ReportStatus       `json:"status"`
	CurrentStep    *string                  `json:"current_step"`
	CompletedSteps []string                 `json:"completed_steps"`
}

func (s *Server) patchReport(w http.ResponseWriter, r *http.Request) {
	var patch reportPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if patch.Status != "" && !reportStatuses[patch.Status] {
		writeError(w, r, http.StatusUnprocessableEntity, "Invalid status", string(patch.Status))
		return
	}

	rec, err := s.store.GetReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	for key, partial := range patch.Sections {
		rec.Data.Merge(key, partial)
	}
	if patch.Status != "" {
		rec.Status = patch.Status
	}
	if patch.CurrentStep != nil {
		rec.CurrentStep = *patch.CurrentStep
	}
	if patch.CompletedSteps != nil {
		rec.CompletedSteps = patch.CompletedSteps
	}

	out, err := s.store.UpdateReport(r.Context(), rec)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.DeleteReport(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (s *Server) listClients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.store.ListClients(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

func (s *Server) createClient(w http.ResponseWriter, r *http.Request) {
	var c model.Client
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if c.Name == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "name is required", "")
		return
	}
	out, err := s.store.CreateClient(r.Context(), &c)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) uploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid multipart body", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file is required", err.Error())
		return
	}
	defer file.Close() //nolint:errcheck

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Could not read file", err.Error())
		return
	}
	if len(content) == 0 {
		s.metrics.recordUpload(false)
		writeError(w, r, http.StatusUnprocessableEntity, "File is empty", header.Filename)
		return
	}

	out, err := s.store.SaveFile(r.Context(), &model.UploadedFile{
		ReportID:    r.FormValue("report_id"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, content)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	s.metrics.recordUpload(true)
	writeJSON(w, http.StatusCreated, out)
}
