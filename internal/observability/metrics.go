package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Turns                *prometheus.CounterVec
	HandlerErrors        *prometheus.CounterVec
	DisambiguationEvents *prometheus.CounterVec
	CallbackResumes      prometheus.Counter
	TurnDuration         prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Turns: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed turns by outcome.",
		}, []string{"outcome"}),
		HandlerErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Handler errors by error type.",
		}, []string{"type"}),
		DisambiguationEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disambiguation_events_total",
			Help:      "Disambiguation lifecycle events.",
		}, []string{"event"}),
		CallbackResumes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_resumes_total",
			Help:      "Conversations resumed through the callback handoff.",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_ms",
			Help:      "End to end turn processing time in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
	}
}

func (m *Metrics) ObserveTurnDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.TurnDuration.Observe(float64(d.Milliseconds()))
}

// CountTurn records one finished turn. Outcomes are "ok", "error" and
// "parse_error".
func (m *Metrics) CountTurn(outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CountHandlerError(errType string) {
	if m == nil {
		return
	}
	m.HandlerErrors.WithLabelValues(errType).Inc()
}

func (m *Metrics) CountDisambiguation(event string) {
	if m == nil {
		return
	}
	m.DisambiguationEvents.WithLabelValues(event).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
