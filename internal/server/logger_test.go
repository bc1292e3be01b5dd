package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/verte-zerg/codetype/internal/logging"
)

func TestRequestLoggerOmitsQuery(t *testing.T) {
	var buf bytes.Buffer
	handler := requestLogger(logging.NewJSON(&buf, slog.LevelInfo))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws/practice?token=secret-jwt&category=js", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "secret-jwt") || strings.Contains(out, "token=") {
		t.Fatalf("query leaked into log: %s", out)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", out, err)
	}
	if rec["msg"] != "request" || rec["path"] != "/ws/practice" || rec["method"] != "GET" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["status"] != float64(http.StatusTeapot) || rec["bytes"] != float64(5) {
		t.Fatalf("unexpected status or size %v", rec)
	}
}

func TestRequestLoggerDefaultsStatus(t *testing.T) {
	var buf bytes.Buffer
	handler := requestLogger(logging.NewJSON(&buf, slog.LevelInfo))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/categories", nil))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec["status"] != float64(http.StatusOK) {
		t.Fatalf("expected 200 for a handler that never writes, got %v", rec["status"])
	}
}
