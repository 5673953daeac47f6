package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	prom "github.com/prometheus/client_golang/prometheus"
)

// TestPrometheusRecorderExposesMetrics verifies recorded values show up on
// the scrape endpoint with the expected labels.
func TestPrometheusRecorderExposesMetrics(t *testing.T) {
	pr := NewPrometheusRecorder(prom.NewRegistry())
	pr.IncTransition("start")
	pr.IncTransition("start")
	pr.IncEffect("completed", true)
	pr.IncEffect("reset", false)
	pr.SetActiveSessions(3)

	rec := httptest.NewRecorder()
	pr.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`spinecare_timer_transitions_total{event="start"} 2`,
		`spinecare_completion_effects_total{kind="completed",result="success"} 1`,
		`spinecare_completion_effects_total{kind="reset",result="failure"} 1`,
		`spinecare_active_sessions 3`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

// TestNoopRecorderSatisfiesInterface is a compile-time style check that both
// recorders can be injected where a Recorder is expected.
func TestNoopRecorderSatisfiesInterface(t *testing.T) {
	var _ Recorder = NoopRecorder{}
	var _ Recorder = (*PrometheusRecorder)(nil)
}
