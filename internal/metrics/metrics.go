// Package metrics exposes the ledger's Prometheus collectors.
package metrics

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	TransactionsIssued   prometheus.Counter
	TransactionsRedeemed prometheus.Counter
	TransactionsExpired  prometheus.Counter
	ValidationRejections *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPDuration         *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the ledger collectors on reg. Collectors that are already registered
// are reused, so calling New twice on the same registry is safe.
func New(reg *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{gatherer: reg}

	var err error
	if m.TransactionsIssued, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pointqr_transactions_issued_total",
		Help: "Point grants recorded as pending transactions.",
	})); err != nil {
		return nil, err
	}
	if m.TransactionsRedeemed, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pointqr_transactions_redeemed_total",
		Help: "Transactions redeemed by a customer.",
	})); err != nil {
		return nil, err
	}
	if m.TransactionsExpired, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pointqr_transactions_expired_total",
		Help: "Pending transactions that passed their expiry.",
	})); err != nil {
		return nil, err
	}
	if m.ValidationRejections, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pointqr_validation_rejections_total",
		Help: "Validate requests that did not redeem, by reason.",
	}, []string{"reason"})); err != nil {
		return nil, err
	}
	if m.HTTPRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pointqr_http_requests_total",
		Help: "HTTP requests served.",
	}, []string{"method", "path", "status"})); err != nil {
		return nil, err
	}
	if m.HTTPDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pointqr_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Rejected counts a validate request that did not redeem.
func (m *Metrics) Rejected(reason string) {
	m.ValidationRejections.WithLabelValues(reason).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("hijack: %T does not support hijacking", w.ResponseWriter)
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Middleware records request counts and latency. It must wrap the ServeMux directly
// so the matched route pattern is available as the path label.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(r.Method, path, strconv.Itoa(sw.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
