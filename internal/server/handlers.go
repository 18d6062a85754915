package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	RunID string `json:"run_id"`
}

// handleChat handles POST /sessions/{id}/chat.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	connID := chi.URLParam(r, "id")
	AddLogField(r.Context(), "session_id", connID)

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		AddError(r.Context(), err)
		writeError(w, r, http.StatusBadRequest, "invalid_request", "body must be {\"message\": \"...\"}")
		return
	}

	runID, err := s.sessions.Message(connID, req.Message)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	AddLogField(r.Context(), "run_id", runID)
	writeJSON(w, http.StatusAccepted, chatResponse{RunID: runID})
}

// handleRecords handles GET /records.
func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		AddError(r.Context(), err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list records")
		return
	}
	if records == nil {
		records = []*domain.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.hub.Len(),
	})
}
