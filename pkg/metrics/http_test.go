package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	m.Observe(http.MethodPost, "/api/v1/requirements/{requirementId}/accept", http.StatusOK, 120*time.Millisecond)
	m.Observe(http.MethodPost, "/api/v1/requirements/{requirementId}/accept", http.StatusUnprocessableEntity, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "http_requests_total", "status", "422"); err != nil || got != 1 {
		t.Fatalf("expected one 422, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "http_request_duration_seconds", "route", "/api/v1/requirements/{requirementId}/accept"); err != nil || got < 0.129 || got > 0.131 {
		t.Fatalf("expected latency sum 0.13, got %f (%v)", got, err)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
}
