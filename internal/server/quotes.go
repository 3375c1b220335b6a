package server

import (
	"errors"
	"net/http"

	"lendmatch/pkg/types"
)

func (s *Service) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := parseID(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	snapshot, err := s.matcher.Snapshot(r.Context(), quoteID)
	if errors.Is(err, types.ErrQuoteNotFound) {
		s.writeError(w, http.StatusNotFound, "Quote not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err, "Failed to get quote")
		return
	}

	s.writeJSON(w, http.StatusOK, snapshot)
}
