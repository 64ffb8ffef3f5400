package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewTwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m1, err := New(reg)
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	m2, err := New(reg)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}

	m1.TransactionsIssued.Inc()
	m2.TransactionsIssued.Inc()
	if got := testutil.ToFloat64(m1.TransactionsIssued); got != 2 {
		t.Errorf("issued = %v, want 2 (shared collector)", got)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/shops", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := m.Middleware(mux)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/shops?search=x", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope", nil))

	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "GET /api/shops", "418")); got != 1 {
		t.Errorf("matched count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")); got != 1 {
		t.Errorf("unmatched count = %v, want 1", got)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m, _ := New(prometheus.NewRegistry())
	m.Rejected("expired")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `pointqr_validation_rejections_total{reason="expired"} 1`) {
		t.Errorf("metrics output missing rejection counter:\n%s", body)
	}
}
