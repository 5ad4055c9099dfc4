package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/glowcart/glowcart-backend/pkg/logger"
	"github.com/glowcart/glowcart-backend/pkg/metrics"
)

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: io.Discard})
}

func TestRequestIDKeepsUsableInboundID(t *testing.T) {
	var seen string
	h := RequestID(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "edge-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "edge-42" || rec.Header().Get(requestIDHeader) != "edge-42" {
		t.Fatalf("expected inbound id to propagate, ctx=%q header=%q", seen, rec.Header().Get(requestIDHeader))
	}
}

func TestRequestIDReplacesUnusableInboundID(t *testing.T) {
	for _, inbound := range []string{"", "has space", strings.Repeat("a", maxRequestIDLen+1), "tab\tid"} {
		var seen string
		h := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = RequestIDFromContext(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(requestIDHeader, inbound)
		h.ServeHTTP(httptest.NewRecorder(), req)

		if seen == "" || seen == inbound {
			t.Fatalf("inbound %q: expected a generated id, got %q", inbound, seen)
		}
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	h := Recoverer(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "INTERNAL_ERROR" || strings.Contains(body.Error.Message, "boom") {
		t.Fatalf("unexpected error body %s", rec.Body.String())
	}
}

func TestRecovererRepanicsOnAbortHandler(t *testing.T) {
	h := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		rec := recover()
		err, ok := rec.(error)
		if !ok || !errors.Is(err, http.ErrAbortHandler) {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Fatal("expected panic")
}

func TestAccessLogRecordsRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Format: logger.FormatJSON, Output: buf})

	r := chi.NewRouter()
	r.Use(AccessLog(logg, httpMetrics))
	r.Patch("/items/{productId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, "nope")
	})
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPatch, "/items/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one access line: %v; got %s", err, buf.String())
	}
	if entry["route"] != "/items/{productId}" || entry["level"] != "warn" || entry["bytes"] != float64(4) {
		t.Fatalf("unexpected access line %v", entry)
	}

	expected := `
# HELP http_requests_total HTTP requests by route and status class.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="/health/live",status="2xx"} 1
http_requests_total{method="PATCH",route="/items/{productId}",status="4xx"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "http_requests_total"); err != nil {
		t.Fatal(err)
	}
}
