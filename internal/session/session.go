// Package session holds the per-client controllers that sit between the
// HTTP layer and the timer: one ExerciseSession per open exercise screen
// and a SetView per set listing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/claude/spinecare/internal/metrics"
	"github.com/claude/spinecare/internal/models"
	"github.com/claude/spinecare/internal/timer"
)

// ErrExerciseNotFound is returned when a requested exercise does not exist.
var ErrExerciseNotFound = errors.New("exercise not found")

// Catalog is the read side of exercise storage.
type Catalog interface {
	GetExercise(ctx context.Context, id string) (models.Exercise, bool, error)
	ListExercisesForSet(ctx context.Context, setID string) ([]models.Exercise, error)
}

// Options configures sessions created directly or through a Registry.
type Options struct {
	Clock         clockwork.Clock
	TickInterval  time.Duration
	EffectTimeout time.Duration
	Logger        *slog.Logger
	Recorder      metrics.Recorder

	// OnEffect runs after the session has mirrored a completion effect onto
	// its local exercise copy.
	OnEffect func(kind timer.EffectKind, exerciseID string, err error)
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Recorder == nil {
		o.Recorder = metrics.NoopRecorder{}
	}
	return o
}

// ExerciseSession drives one timer and keeps a local copy of the bound
// exercise whose completion flag follows the effects the timer applies.
type ExerciseSession struct {
	catalog  Catalog
	timer    *timer.Timer
	log      *slog.Logger
	onEffect func(kind timer.EffectKind, exerciseID string, err error)

	mu       sync.Mutex
	exercise *models.Exercise
}

// NewExerciseSession creates an unbound session.
func NewExerciseSession(catalog Catalog, effects timer.Effects, opts Options) *ExerciseSession {
	opts = opts.withDefaults()
	s := &ExerciseSession{catalog: catalog, log: opts.Logger, onEffect: opts.OnEffect}
	s.timer = timer.New(effects, timer.Options{
		Clock:         opts.Clock,
		TickInterval:  opts.TickInterval,
		EffectTimeout: opts.EffectTimeout,
		Logger:        opts.Logger,
		Recorder:      opts.Recorder,
		OnEffect:      s.applyEffect,
	})
	return s
}

// Load fetches the exercise and binds the timer to it. When the exercise
// does not exist the binding is cleared and the timer reports idle at zero.
func (s *ExerciseSession) Load(ctx context.Context, exerciseID string) error {
	e, found, err := s.catalog.GetExercise(ctx, exerciseID)
	if err != nil {
		return fmt.Errorf("loading exercise %s: %w", exerciseID, err)
	}
	if !found {
		s.mu.Lock()
		s.exercise = nil
		s.mu.Unlock()
		s.timer.Bind("", 0)
		s.log.Debug("exercise not found", "exercise_id", exerciseID)
		return fmt.Errorf("%w: %s", ErrExerciseNotFound, exerciseID)
	}

	s.mu.Lock()
	s.exercise = &e
	s.mu.Unlock()
	s.timer.Bind(e.ID, e.DurationSeconds)
	return nil
}

func (s *ExerciseSession) Start()  { s.timer.Start() }
func (s *ExerciseSession) Pause()  { s.timer.Pause() }
func (s *ExerciseSession) Resume() { s.timer.Resume() }
func (s *ExerciseSession) Reset()  { s.timer.Reset() }

// State returns the timer snapshot.
func (s *ExerciseSession) State() timer.Snapshot {
	return s.timer.Snapshot()
}

// Subscribe streams timer snapshots until the session is disposed.
func (s *ExerciseSession) Subscribe() (<-chan timer.Snapshot, func()) {
	return s.timer.Subscribe()
}

// Exercise returns the local copy of the bound exercise.
func (s *ExerciseSession) Exercise() (models.Exercise, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exercise == nil {
		return models.Exercise{}, false
	}
	e := *s.exercise
	e.Instructions = append([]string(nil), s.exercise.Instructions...)
	return e, true
}

// Dispose stops the timer and closes subscriptions.
func (s *ExerciseSession) Dispose() {
	s.timer.Dispose()
}

// applyEffect mirrors a completion effect onto the local copy whether or
// not the write succeeded; the timer has already logged any failure. It
// ignores effects for an exercise that is no longer bound.
func (s *ExerciseSession) applyEffect(kind timer.EffectKind, exerciseID string, err error) {
	s.mu.Lock()
	if s.exercise != nil && s.exercise.ID == exerciseID {
		s.exercise.IsCompleted = kind == timer.EffectCompleted
	}
	s.mu.Unlock()

	if s.onEffect != nil {
		s.onEffect(kind, exerciseID, err)
	}
}
