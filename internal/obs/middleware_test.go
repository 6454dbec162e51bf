package obs_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/noah-isme/toko-discount/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("toko", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/health/ready"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/health/ready", "204"))
	if total != 1 {
		t.Fatalf("expected counter to be 1, got %v", total)
	}

	samples := testutil.CollectAndCount(metrics.ReqDur)
	if samples == 0 {
		t.Fatalf("expected histogram sample")
	}

	if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
		t.Fatalf("expected no in-flight requests, got %v", val)
	}
}

func TestHTTPMetricsUsesChiPatternAfterRouting(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("toko", nil, registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Post("/api/v1/discounts/{kind}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/discounts/compute", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, "/api/v1/discounts/{kind}", "200"))
	if total != 1 {
		t.Fatalf("expected route pattern label, got counter %v", total)
	}
}

func TestMetricsReuseExistingCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewDiscountMetrics("toko", registry)
	second := obs.NewDiscountMetrics("toko", registry)

	first.ComputeTotal.WithLabelValues("ok").Inc()
	if got := testutil.ToFloat64(second.ComputeTotal.WithLabelValues("ok")); got != 1 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}

func TestParseBucketsCSV(t *testing.T) {
	got := obs.ParseBucketsCSV(" 5, 10,bad,-1, 250")
	want := []float64{5, 10, 250}
	if len(got) != len(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v got %v", want, got)
		}
	}
	if obs.ParseBucketsCSV("  ") != nil {
		t.Fatalf("expected nil for blank input")
	}
}

func TestHTTPMetricsSkipsScrapePath(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("toko", nil, registry)
	handler := obs.HTTPObs{Metrics: metrics, Skip: obs.SkipPaths("/metrics")}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if n := testutil.CollectAndCount(metrics.ReqTotal); n != 0 {
		t.Fatalf("expected scrape to be skipped, got %d series", n)
	}

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if n := testutil.CollectAndCount(metrics.ReqTotal); n != 1 {
		t.Fatalf("expected one series, got %d", n)
	}
}

func TestStatusRecorderUnwrap(t *testing.T) {
	rr := httptest.NewRecorder()
	recorder := obs.NewStatusRecorder(rr)
	if recorder.Unwrap() != http.ResponseWriter(rr) {
		t.Fatalf("expected unwrap to return the wrapped writer")
	}
	_, _ = recorder.Write([]byte("abc"))
	if recorder.BytesWritten() != 3 || recorder.Status() != http.StatusOK {
		t.Fatalf("unexpected recorder state: %d bytes, status %d", recorder.BytesWritten(), recorder.Status())
	}
}
