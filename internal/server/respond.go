package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
)

const maxChatBody = 1 << 20

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error     errorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Error:     errorDetail{Code: code, Message: message},
		RequestID: GetRequestID(r.Context()),
	})
}

// writeDomainError maps registry errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	AddError(r.Context(), err)
	switch {
	case errors.Is(err, domain.ErrUnknownSession):
		writeError(w, r, http.StatusNotFound, "unknown_session", err.Error())
	case errors.Is(err, domain.ErrAlreadyRunning):
		writeError(w, r, http.StatusConflict, "already_running", err.Error())
	case errors.Is(err, domain.ErrEmptyMessage):
		writeError(w, r, http.StatusBadRequest, "empty_message", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func decodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxChatBody))
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
