package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoggerRecordsStatus(t *testing.T) {
	var captured int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec, ok := w.(*statusRecorder)
		if !ok {
			t.Fatal("response writer not wrapped")
		}
		w.WriteHeader(http.StatusNotFound)
		captured = rec.status
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Logger(logger)(next)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if captured != http.StatusNotFound {
		t.Errorf("recorded status = %d, want %d", captured, http.StatusNotFound)
	}
	if w.Code != http.StatusNotFound {
		t.Errorf("response status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestLoggerDefaultsToOK(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Logger(logger)(next)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("response status = %d, want %d", w.Code, http.StatusOK)
	}
}
