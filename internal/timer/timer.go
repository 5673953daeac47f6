// Package timer implements the per-exercise countdown.
//
// A Timer is bound to one exercise at a time and moves through
// idle → running ⇄ paused → finished. It decrements once per tick while
// running. At zero it marks the exercise completed through Effects. Reset
// clears the completion flag again.
//
// Each running stretch owns a tick goroutine tagged with a generation
// number. Pause, Reset, Bind and Dispose bump the generation, cancel the
// goroutine and wait for it to exit before returning. A tick that was
// already in flight sees a stale generation and is dropped, so an old
// binding can never touch a newer one.
package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/claude/spinecare/internal/metrics"
	"github.com/claude/spinecare/internal/observable"
)

// Status is the countdown state.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// Snapshot is the observable timer state.
type Snapshot struct {
	ExerciseID string `json:"exercise_id"`
	Status     Status `json:"status"`
	Remaining  int    `json:"remaining_seconds"`
	Duration   int    `json:"duration_seconds"`
}

// Display returns the remaining time as MM:SS.
func (s Snapshot) Display() string {
	return FormatClock(s.Remaining)
}

// EffectKind names a completion side effect.
type EffectKind string

const (
	EffectCompleted EffectKind = "completed"
	EffectReset     EffectKind = "reset"
)

// Effects persists completion flags. Calls are best effort: the timer logs
// and counts failures but never undoes its own transition.
type Effects interface {
	MarkExerciseCompleted(ctx context.Context, exerciseID string) error
	ResetExerciseCompletion(ctx context.Context, exerciseID string) error
}

// Options configures a Timer. Zero values get defaults.
type Options struct {
	Clock         clockwork.Clock
	TickInterval  time.Duration
	EffectTimeout time.Duration
	Logger        *slog.Logger
	Recorder      metrics.Recorder
	// OnEffect runs after every side effect attempt, on the goroutine that
	// fired it. It must not call back into the Timer.
	OnEffect func(kind EffectKind, exerciseID string, err error)
}

// Timer is a countdown state machine for one bound exercise.
type Timer struct {
	effects       Effects
	clock         clockwork.Clock
	tick          time.Duration
	effectTimeout time.Duration
	log           *slog.Logger
	rec           metrics.Recorder
	onEffect      func(EffectKind, string, error)

	mu       sync.Mutex
	snap     Snapshot
	gen      uint64
	stop     context.CancelFunc
	done     chan struct{}
	disposed bool

	state *observable.Value[Snapshot]
}

// New creates an unbound idle Timer.
func New(effects Effects, opts Options) *Timer {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	if opts.EffectTimeout <= 0 {
		opts.EffectTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	snap := Snapshot{Status: StatusIdle}
	return &Timer{
		effects:       effects,
		clock:         opts.Clock,
		tick:          opts.TickInterval,
		effectTimeout: opts.EffectTimeout,
		log:           opts.Logger,
		rec:           opts.Recorder,
		onEffect:      opts.OnEffect,
		snap:          snap,
		state:         observable.New(snap),
	}
}

// Snapshot returns the current state.
func (t *Timer) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}

// Subscribe streams state changes, starting with the current state.
// The channel closes when the Timer is disposed or cancel is called.
func (t *Timer) Subscribe() (<-chan Snapshot, func()) {
	return t.state.Subscribe()
}

// Bind attaches the timer to an exercise, cancelling any countdown.
// Rebinding the same exercise while idle changes nothing.
// Negative durations are treated as zero.
func (t *Timer) Bind(exerciseID string, durationSeconds int) {
	durationSeconds = max(durationSeconds, 0)

	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	if t.snap.ExerciseID == exerciseID && t.snap.Status == StatusIdle && t.snap.Duration == durationSeconds {
		t.mu.Unlock()
		return
	}
	done := t.cancelLocked()
	t.snap = Snapshot{
		ExerciseID: exerciseID,
		Status:     StatusIdle,
		Remaining:  durationSeconds,
		Duration:   durationSeconds,
	}
	t.publishLocked()
	t.mu.Unlock()

	wait(done)
	t.rec.IncTransition("bind")
}

// Start begins counting down from idle. It does nothing in any other state
// or when there is no time left; a finished timer must be Reset first.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed || t.snap.Status != StatusIdle || t.snap.Remaining <= 0 {
		return
	}
	t.runLocked()
	t.rec.IncTransition("start")
}

// Pause stops a running countdown and keeps the remaining time.
func (t *Timer) Pause() {
	t.mu.Lock()
	if t.disposed || t.snap.Status != StatusRunning {
		t.mu.Unlock()
		return
	}
	done := t.cancelLocked()
	t.snap.Status = StatusPaused
	t.publishLocked()
	t.mu.Unlock()

	wait(done)
	t.rec.IncTransition("pause")
}

// Resume continues a paused countdown from where it stopped.
func (t *Timer) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed || t.snap.Status != StatusPaused || t.snap.Remaining <= 0 {
		return
	}
	t.runLocked()
	t.rec.IncTransition("resume")
}

// Reset stops the countdown, restores the full duration and clears the
// exercise's completion flag. An unbound timer has nothing to reset.
func (t *Timer) Reset() {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	done := t.cancelLocked()
	t.snap.Status = StatusIdle
	t.snap.Remaining = t.snap.Duration
	t.publishLocked()
	exerciseID := t.snap.ExerciseID
	t.mu.Unlock()

	// A finishing run may still be persisting its completion; let it land
	// first so the reset wins.
	wait(done)
	t.rec.IncTransition("reset")
	if exerciseID != "" {
		t.fire(EffectReset, exerciseID)
	}
}

// Dispose cancels any pending tick and closes subscriptions. The Timer
// ignores every call afterwards.
func (t *Timer) Dispose() {
	t.mu.Lock()
	if t.disposed {
		t.mu.Unlock()
		return
	}
	t.disposed = true
	done := t.cancelLocked()
	t.mu.Unlock()

	wait(done)
	t.state.Close()
}

// runLocked moves to running and launches a tick goroutine for a new
// generation. The ticker is created here, not in the goroutine, so the
// first tick is scheduled before the caller regains control.
func (t *Timer) runLocked() {
	t.gen++
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	ticker := t.clock.NewTicker(t.tick)

	t.stop = cancel
	t.done = done
	t.snap.Status = StatusRunning
	t.publishLocked()

	go t.run(ctx, t.gen, ticker, done)
}

// cancelLocked invalidates the current generation and returns the channel
// to wait on for its goroutine to exit. The result may be nil.
func (t *Timer) cancelLocked() chan struct{} {
	t.gen++
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
	done := t.done
	t.done = nil
	return done
}

func (t *Timer) publishLocked() {
	t.state.Set(t.snap)
}

func (t *Timer) run(ctx context.Context, gen uint64, ticker clockwork.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			exerciseID, finished, ok := t.advance(gen)
			if !ok {
				return
			}
			if finished {
				t.rec.IncTransition("finish")
				t.fire(EffectCompleted, exerciseID)
				return
			}
		}
	}
}

// advance applies one tick if gen is still current. ok is false when the
// tick is stale and the goroutine should exit.
func (t *Timer) advance(gen uint64) (exerciseID string, finished, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen || t.snap.Status != StatusRunning {
		return "", false, false
	}
	if t.snap.Remaining > 0 {
		t.snap.Remaining--
	}
	if t.snap.Remaining == 0 {
		t.snap.Status = StatusFinished
		finished = true
	}
	t.publishLocked()
	return t.snap.ExerciseID, finished, true
}

// fire runs one side effect with its own deadline. It is detached from the
// run's cancellation so a completion reached just before a pause or rebind
// is still persisted.
func (t *Timer) fire(kind EffectKind, exerciseID string) {
	ctx, cancel := context.WithTimeout(context.Background(), t.effectTimeout)
	defer cancel()

	var err error
	switch kind {
	case EffectCompleted:
		err = t.effects.MarkExerciseCompleted(ctx, exerciseID)
	case EffectReset:
		err = t.effects.ResetExerciseCompletion(ctx, exerciseID)
	}

	t.rec.IncEffect(string(kind), err == nil)
	if err != nil {
		t.log.Warn("completion effect failed", "effect", kind, "exercise_id", exerciseID, "error", err)
	} else {
		t.log.Debug("completion effect applied", "effect", kind, "exercise_id", exerciseID)
	}
	if t.onEffect != nil {
		t.onEffect(kind, exerciseID, err)
	}
}

func wait(done chan struct{}) {
	if done != nil {
		<-done
	}
}
