package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/tasting/internal/domain/model"
)

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_items"
	filter := model.ItemFilter{Category: model.Category(r.URL.Query().Get("category"))}
	items, err := s.deps.ListItems(r.Context(), filter)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_item"
	var in model.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	item, err := s.deps.CreateItem(r.Context(), in)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/items/"+item.ID)
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_item"
	item, err := s.deps.GetItem(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_item"
	var in model.ItemInput
	if err := decodeJSON(r, &in); err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	item, err := s.deps.UpdateItem(r.Context(), chi.URLParam(r, "itemID"), in)
	if err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	const op = "api.delete_item"
	if err := s.deps.DeleteItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		writeFailure(w, r, Wrap(op, err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
