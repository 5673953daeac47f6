package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg            *prom.Registry
	transitions    *prom.CounterVec
	effects        *prom.CounterVec
	activeSessions prom.Gauge
}

// NewPrometheusRecorder constructs and registers metrics on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		transitions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "spinecare",
			Name:      "timer_transitions_total",
			Help:      "Timer state transitions by event",
		}, []string{"event"}),
		effects: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "spinecare",
			Name:      "completion_effects_total",
			Help:      "Completion side effects by kind and result",
		}, []string{"kind", "result"}),
		activeSessions: prom.NewGauge(prom.GaugeOpts{
			Namespace: "spinecare",
			Name:      "active_sessions",
			Help:      "Open exercise sessions",
		}),
	}
	reg.MustRegister(pr.transitions, pr.effects, pr.activeSessions)
	return pr
}

func (p *PrometheusRecorder) IncTransition(event string) {
	p.transitions.WithLabelValues(event).Inc()
}

func (p *PrometheusRecorder) IncEffect(kind string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	p.effects.WithLabelValues(kind, result).Inc()
}

func (p *PrometheusRecorder) SetActiveSessions(n int) {
	p.activeSessions.Set(float64(n))
}

// Handler serves the recorder's registry in the Prometheus text format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
