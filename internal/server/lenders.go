package server

import (
	"errors"
	"net/http"

	"lendmatch/pkg/types"
)

type lendersResponse struct {
	Lenders []*types.Lender `json:"lenders"`
	Total   int             `json:"total"`
}

func (s *Service) handleGetLenders(w http.ResponseWriter, r *http.Request) {
	lenders, err := s.lenders.Lenders(r.Context())
	if err != nil {
		s.internalError(w, r, err, "Failed to get lenders")
		return
	}

	s.writeJSON(w, http.StatusOK, lendersResponse{Lenders: lenders, Total: len(lenders)})
}

func (s *Service) handleGetLender(w http.ResponseWriter, r *http.Request) {
	lenderID, ok := parseID(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid lender ID")
		return
	}

	lender, err := s.lenders.Lender(r.Context(), lenderID)
	if errors.Is(err, types.ErrLenderNotFound) {
		s.writeError(w, http.StatusNotFound, "Lender not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err, "Failed to get lender")
		return
	}

	s.writeJSON(w, http.StatusOK, lender)
}
