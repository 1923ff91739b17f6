package api

import (
	"net/http"
)

type inferRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleInferLabel(w http.ResponseWriter, r *http.Request) {
	const op = "api.infer_label"
	var req inferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, s.deps.InferCategory(r.Context(), req.Text))
}

type reconcileResponse struct {
	Enqueued int `json:"enqueued"`
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	const op = "api.reconcile"
	n, err := s.deps.Reconcile(r.Context())
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, reconcileResponse{Enqueued: n})
}
