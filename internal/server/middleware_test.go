package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestRequestIDMiddleware(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRequestID(r.Context()) == "" {
			t.Error("Expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	RequestIDMiddleware(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected X-Request-ID header to be set")
	}
}

func TestRequestIDMiddleware_IncomingHeader(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{"valid uuid is kept", "7d4f0a55-2b1f-4f5e-9a54-2f0c8f1f3a11", true},
		{"garbage is replaced", "not-an-id", false},
		{"missing is generated", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
			req := httptest.NewRequest("GET", "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			RequestIDMiddleware(handler).ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			if got == "" {
				t.Fatal("no request id")
			}
			if (got == tt.incoming) != tt.reuse {
				t.Errorf("request id = %q, incoming %q, reuse %v", got, tt.incoming, tt.reuse)
			}
		})
	}
}

func TestGetRequestID_NotSet(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("Expected empty string, got %q", id)
	}
}

func TestTimeoutMiddleware(t *testing.T) {
	cancelled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Deadline(); !ok {
			t.Error("Expected context to have deadline")
		}
		select {
		case <-r.Context().Done():
			cancelled = true
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	TimeoutMiddleware(10*time.Millisecond)(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if !cancelled {
		t.Error("Expected context to be cancelled due to timeout")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AddLogField(r.Context(), "session_id", "abc")
		AddLogField(r.Context(), "empty_field", "")
		AddError(r.Context(), errors.New("store unavailable"))
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	})

	rec := httptest.NewRecorder()
	RequestIDMiddleware(LoggingMiddleware(logger)(handler)).ServeHTTP(rec, httptest.NewRequest("GET", "/records", nil))

	out := buf.String()
	for _, want := range []string{"request completed", "/records", "session_id=abc", "store unavailable", "status=503", "bytes=4", "level=ERROR"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "empty_field") {
		t.Errorf("empty field logged: %s", out)
	}
}

func TestAddLogField_NoMiddleware(t *testing.T) {
	AddLogField(context.Background(), "key", "value")
	AddError(context.Background(), nil)
}

func TestLoggingResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	var w http.ResponseWriter = &loggingResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	f, ok := w.(http.Flusher)
	if !ok {
		t.Fatal("logging writer must implement http.Flusher")
	}
	f.Flush()
	if !rec.Flushed {
		t.Error("Flush was not forwarded")
	}
}
