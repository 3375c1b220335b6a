package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (s *Service) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) writeError(w http.ResponseWriter, status int, message string, details ...string) {
	s.writeJSON(w, status, errorResponse{Error: message, Details: details})
}

// internalError logs the cause and answers 500 with a generic message.
func (s *Service) internalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"method":     r.Method,
		"path":       r.URL.Path,
		"request_id": requestID(r.Context()),
	}).Error(message)
	s.writeError(w, http.StatusInternalServerError, message)
}

// parseID accepts positive base-10 integers only.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
