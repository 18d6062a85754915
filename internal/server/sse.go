package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
)

// writeFrame writes one server-sent event.
func writeFrame(w io.Writer, ev domain.OutboundEvent) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Name, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Name, data)
	return err
}

// handleEvents handles GET /events. Each request is one client connection:
// it gets a fresh id, a session in the registry and a queue in the hub, all
// of which are released when the client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "streaming not supported")
		return
	}

	connID := uuid.NewString()
	AddLogField(r.Context(), "session_id", connID)

	queue, err := s.hub.Register(connID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	defer s.hub.Unregister(connID)

	if err := s.sessions.Connect(connID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	defer s.sessions.Disconnect(connID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Long-lived stream; the server write timeout must not apply.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	connected := domain.OutboundEvent{Name: domain.OutboundConnected, Data: domain.ConnectedData{ID: connID}}
	if err := writeFrame(w, connected); err != nil {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(s.keepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev := <-queue:
			if err := writeFrame(w, ev); err != nil {
				s.logger.Warn("event write failed",
					slog.String("session_id", connID),
					slog.String("event", string(ev.Name)),
					slog.String("error", err.Error()))
				return
			}
			flusher.Flush()
		}
	}
}
