// Package metrics records timer and session activity.
//
// Components take a Recorder and default to NoopRecorder, so metrics stay
// optional. The Prometheus implementation is swapped in by main when
// metrics.enabled is set.
package metrics

// Recorder defines the observability hooks used by timers and sessions.
type Recorder interface {
	// IncTransition counts a timer state change (start, pause, resume, reset, bind, finish).
	IncTransition(event string)
	// IncEffect counts a completion side effect by kind and outcome.
	IncEffect(kind string, ok bool)
	// SetActiveSessions reports how many exercise sessions are open.
	SetActiveSessions(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(string)   {}
func (NoopRecorder) IncEffect(string, bool) {}
func (NoopRecorder) SetActiveSessions(int)  {}
