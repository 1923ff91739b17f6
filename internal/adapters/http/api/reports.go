package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tasting/internal/domain/model"
)

func (s *Server) handleListItemReports(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_item_reports"
	reports, err := s.deps.ListItemReports(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleSubmitReport accepts a report. Absent fields take the defaults of a
// fresh tasting form.
func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit_report"
	in := model.DefaultReportInput()
	if err := decodeJSON(r, &in); err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	submissionID := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	res, err := s.deps.SubmitReport(r.Context(), sessionFrom(r), chi.URLParam(r, "itemID"), in, submissionID)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	if res.Duplicate {
		writeJSON(w, http.StatusOK, res)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleReplaceReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.replace_report"
	in := model.DefaultReportInput()
	if err := decodeJSON(r, &in); err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	res, err := s.deps.ReplaceReport(r.Context(), sessionFrom(r), chi.URLParam(r, "itemID"), chi.URLParam(r, "key"), in)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_report"
	res, err := s.deps.DeleteReport(r.Context(), chi.URLParam(r, "itemID"), chi.URLParam(r, "key"))
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleMyReports(w http.ResponseWriter, r *http.Request) {
	const op = "api.my_reports"
	reports, err := s.deps.ListParticipantReports(r.Context(), sessionFrom(r))
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, reports)
}
