package http

import (
	"net/http"

	"paydo/internal/core"
)

type assetRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.app.Assets(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if assets == nil {
		assets = []core.Asset{}
	}
	writeJSON(w, http.StatusOK, assets)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := s.app.CreateAsset(r.Context(), core.Asset{
		Name:  sanitizeInput(req.Name),
		Value: core.ParseAmount(req.Value),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	var req assetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	a := core.Asset{ID: id, Name: sanitizeInput(req.Name), Value: core.ParseAmount(req.Value)}
	if err := s.app.UpdateAsset(r.Context(), a); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset id")
		return
	}
	if err := s.app.DeleteAsset(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
