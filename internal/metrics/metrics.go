// Package metrics exports daemon telemetry to Prometheus. A nil *Metrics
// records nothing, so components can run without a registry in tests.
package metrics

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tele"

// Outcome labels for remote requests.
const (
	OutcomeOK        = "ok"
	OutcomeRemote    = "remote_error"
	OutcomeTransport = "transport_error"
	OutcomeClosed    = "closed"
)

// Metrics holds every collector the daemon exports.
type Metrics struct {
	remoteRequests  *prometheus.CounterVec
	remoteDuration  *prometheus.HistogramVec
	staleResponses  *prometheus.CounterVec
	thumbnailResult *prometheus.CounterVec
	authState       *prometheus.GaugeVec

	mu         sync.Mutex
	authStates []string
}

// New registers the daemon collectors on reg. Collectors already registered
// on reg are reused.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	var err error
	m := &Metrics{}
	if m.remoteRequests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_requests_total",
		Help:      "Remote requests completed, by request kind and outcome.",
	}, []string{"kind", "outcome"})); err != nil {
		return nil, err
	}
	if m.remoteDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_request_duration_seconds",
		Help:      "Latency between dispatch and completion of remote requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if m.staleResponses, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stale_responses_total",
		Help:      "Responses discarded because a newer request superseded them.",
	}, []string{"component"})); err != nil {
		return nil, err
	}
	if m.thumbnailResult, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "thumbnail_resolutions_total",
		Help:      "Thumbnail resolution attempts, by outcome.",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if m.authState, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "auth_state",
		Help:      "1 for the current authorization state, 0 otherwise.",
	}, []string{"state"})); err != nil {
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
		return zero, fmt.Errorf("register metric: %w", err)
	}
	return c, nil
}

// ObserveRemote records a completed remote request.
func (m *Metrics) ObserveRemote(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.remoteRequests.WithLabelValues(kind, outcome).Inc()
	m.remoteDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// Stale counts a discarded stale response for the named component.
func (m *Metrics) Stale(component string) {
	if m == nil {
		return
	}
	m.staleResponses.WithLabelValues(component).Inc()
}

// Thumbnail counts a thumbnail resolution attempt.
func (m *Metrics) Thumbnail(outcome string) {
	if m == nil {
		return
	}
	m.thumbnailResult.WithLabelValues(outcome).Inc()
}

// SetAuthState flips the auth_state gauge to the given state.
func (m *Metrics) SetAuthState(state string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.authStates {
		m.authState.WithLabelValues(s).Set(0)
	}
	m.authState.WithLabelValues(state).Set(1)
	for _, s := range m.authStates {
		if s == state {
			return
		}
	}
	m.authStates = append(m.authStates, state)
}
