package server

import (
	"errors"
	"net/http"

	"lendmatch/pkg/types"
)

func (s *Service) handlePostQuoteMatch(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := parseID(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	summary, err := s.matcher.Match(r.Context(), quoteID)
	switch {
	case errors.Is(err, types.ErrQuoteNotFound):
		s.writeError(w, http.StatusNotFound, "Quote not found")
		return
	case errors.Is(err, types.ErrMatchInProgress):
		s.writeError(w, http.StatusConflict, "Matching already in progress for this quote")
		return
	case err != nil:
		s.internalError(w, r, err, "Failed to match quote with lenders")
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Service) handleGetQuoteMatches(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := parseID(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "Invalid quote ID")
		return
	}

	summary, err := s.matcher.Matches(r.Context(), quoteID)
	if errors.Is(err, types.ErrQuoteNotFound) {
		s.writeError(w, http.StatusNotFound, "Quote not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err, "Failed to get lender matches")
		return
	}

	s.writeJSON(w, http.StatusOK, summary)
}
