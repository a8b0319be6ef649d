package webhdfs

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Login results, used as the "result" label.
const (
	loginResultSuccess  = "success"
	loginResultRejected = "rejected"
	loginResultError    = "error"
)

// Request outcomes, used as the "outcome" label.
const (
	outcomeSuccess          = "success"
	outcomeTransport        = "transport_error"
	outcomeLoginFailed      = "login_failed"
	outcomeAccessDenied     = "access_denied"
	outcomeNotFound         = "not_found"
	outcomeRemote           = "remote_error"
	outcomeUnexpectedStatus = "unexpected_status"
	outcomeOther            = "other"
)

// Metrics provides Prometheus metrics for sessions and requests.
// All methods are nil-safe: calls on a nil *Metrics are no-ops.
type Metrics struct {
	// LoginsTotal counts login exchanges, labeled by result
	// ("success", "rejected", "error").
	LoginsTotal *prometheus.CounterVec

	// RequestsTotal counts dispatched requests, labeled by op and outcome.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes request latency in seconds, including any
	// login performed on the request's behalf.
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers client metrics with the given Prometheus
// registerer. If reg is nil, metrics are created but not registered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhdfs",
			Subsystem: "client",
			Name:      "logins_total",
			Help:      "Total number of gateway login exchanges",
		}, []string{"result"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "webhdfs",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of filesystem API requests",
		}, []string{"op", "outcome"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "webhdfs",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of filesystem API requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~20s
		}, []string{"op"}),
	}

	if reg != nil {
		m.LoginsTotal = registerOrExisting(reg, m.LoginsTotal)
		m.RequestsTotal = registerOrExisting(reg, m.RequestsTotal)
		m.RequestDuration = registerOrExisting(reg, m.RequestDuration)
	}

	return m
}

// registerOrExisting registers c, or returns the collector already registered
// under the same descriptor so that several clients can share one registry.
func registerOrExisting[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	err := reg.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}

	panic(err)
}

func (m *Metrics) recordLogin(result string) {
	if m == nil {
		return
	}

	m.LoginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) recordRequest(op, outcome string, d time.Duration) {
	if m == nil {
		return
	}

	m.RequestsTotal.WithLabelValues(op, outcome).Inc()
	m.RequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// outcomeOf maps a Do result to its outcome label.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrTransport):
		return outcomeTransport
	case errors.Is(err, ErrLoginFailed):
		return outcomeLoginFailed
	case errors.Is(err, ErrAccessControl):
		return outcomeAccessDenied
	case errors.Is(err, ErrFileNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrRemote):
		return outcomeRemote
	case errors.Is(err, ErrUnexpectedStatus):
		return outcomeUnexpectedStatus
	default:
		return outcomeOther
	}
}
