package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesJobCollectors(t *testing.T) {
	metrics := NewMetrics()
	_ = metrics.Jobs().Track("session_refresh").End(nil)

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_jobs_total{job="session_refresh",status="success"} 1`) {
		t.Fatalf("expected job run to be recorded, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestObserveDecision(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveDecision("permission", true)
	metrics.ObserveDecision("permission", false)
	metrics.ObserveDecision("permission", false)

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_authz_decisions_total{check="permission",outcome="deny"} 2`) {
		t.Fatalf("expected deny decisions, got: %s", body)
	}
	if !strings.Contains(body, `odyssey_authz_decisions_total{check="permission",outcome="allow"} 1`) {
		t.Fatalf("expected allow decision, got: %s", body)
	}

	var nilMetrics *Metrics
	nilMetrics.ObserveDecision("level", true)
}
