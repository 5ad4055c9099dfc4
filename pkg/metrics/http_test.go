package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsGroupsByRouteAndStatusClass(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe(http.MethodPatch, "/api/v1/cart/items/{productId}", http.StatusOK, 10*time.Millisecond)
	m.Observe(http.MethodPatch, "/api/v1/cart/items/{productId}", http.StatusNoContent, 10*time.Millisecond)
	m.Observe(http.MethodPatch, "/api/v1/cart/items/{productId}", http.StatusConflict, 10*time.Millisecond)
	m.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	mfs := gather(t, reg)
	cases := []struct {
		labels map[string]string
		want   float64
	}{
		{map[string]string{"route": "/api/v1/cart/items/{productId}", "status": "2xx"}, 2},
		{map[string]string{"route": "/api/v1/cart/items/{productId}", "status": "4xx"}, 1},
		{map[string]string{"route": "unmatched", "method": "GET", "status": "4xx"}, 1},
	}
	for _, tc := range cases {
		s, err := series(mfs, "http_requests_total", tc.labels)
		if err != nil {
			t.Fatal(err)
		}
		if got := s.GetCounter().GetValue(); got != tc.want {
			t.Fatalf("%v = %v, want %v", tc.labels, got, tc.want)
		}
	}

	s, err := series(mfs, "http_request_duration_seconds", map[string]string{"method": "PATCH"})
	if err != nil {
		t.Fatal(err)
	}
	if s.GetHistogram().GetSampleCount() != 3 {
		t.Fatalf("latency samples = %d, want 3", s.GetHistogram().GetSampleCount())
	}
}

func TestStatusClass(t *testing.T) {
	for status, want := range map[int]string{200: "2xx", 503: "5xx", 0: "unknown", 700: "unknown"} {
		if got := statusClass(status); got != want {
			t.Fatalf("statusClass(%d) = %q, want %q", status, got, want)
		}
	}
}
