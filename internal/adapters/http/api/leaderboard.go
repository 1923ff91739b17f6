package api

import (
	"net/http"
)

// handleItemLeaderboard handles GET /leaderboard/items?limit=N.
func (s *Server) handleItemLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.item_leaderboard"
	n, err := s.parseLimit(r)
	if err != nil {
		writeFailure(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := s.deps.ItemLeaderboard(r.Context(), n)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleParticipantLeaderboard handles GET /leaderboard/participants?limit=N.
func (s *Server) handleParticipantLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.participant_leaderboard"
	n, err := s.parseLimit(r)
	if err != nil {
		writeFailure(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	entries, err := s.deps.ParticipantLeaderboard(r.Context(), n)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleCommunity handles GET /community?limit=N.
func (s *Server) handleCommunity(w http.ResponseWriter, r *http.Request) {
	const op = "api.community"
	n, err := s.parseLimit(r)
	if err != nil {
		writeFailure(w, r, WrapKind(op, ErrBadRequest, err))
		return
	}
	community, err := s.deps.Community(r.Context(), n)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, community)
}
