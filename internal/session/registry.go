package session

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/claude/spinecare/internal/timer"
)

// Registry owns the open exercise sessions, keyed by a random UUID, and the
// set views watching them. Every completion effect applied by one of its
// sessions is mirrored into the watched views, so their progress follows
// the timers without a storage round trip.
type Registry struct {
	catalog Catalog
	effects timer.Effects
	opts    Options

	mu       sync.Mutex
	sessions map[string]*ExerciseSession
	views    map[*SetView]struct{}
	closed   bool
}

// ErrRegistryClosed is returned by Create and WatchSet after Close.
var ErrRegistryClosed = errors.New("session registry closed")

// NewRegistry creates an empty registry.
func NewRegistry(catalog Catalog, effects timer.Effects, opts Options) *Registry {
	r := &Registry{
		catalog:  catalog,
		effects:  effects,
		sessions: make(map[string]*ExerciseSession),
		views:    make(map[*SetView]struct{}),
	}
	opts = opts.withDefaults()
	next := opts.OnEffect
	opts.OnEffect = func(kind timer.EffectKind, exerciseID string, err error) {
		r.mirrorEffect(kind, exerciseID)
		if next != nil {
			next(kind, exerciseID, err)
		}
	}
	r.opts = opts
	return r
}

// Create opens a session bound to exerciseID. When the exercise is missing
// the session is disposed and returned unregistered together with
// ErrExerciseNotFound, so callers can still report its idle state.
func (r *Registry) Create(ctx context.Context, exerciseID string) (string, *ExerciseSession, error) {
	s := NewExerciseSession(r.catalog, r.effects, r.opts)
	if err := s.Load(ctx, exerciseID); err != nil {
		s.Dispose()
		return "", s, err
	}

	id := uuid.New().String()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		s.Dispose()
		return "", nil, ErrRegistryClosed
	}
	r.sessions[id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.opts.Recorder.SetActiveSessions(n)
	r.opts.Logger.Debug("session created", "session_id", id, "exercise_id", exerciseID)
	return id, s, nil
}

// Get returns the session with the given id.
func (r *Registry) Get(id string) (*ExerciseSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Delete disposes and forgets a session. It reports whether it existed.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return false
	}
	s.Dispose()
	r.opts.Recorder.SetActiveSessions(n)
	return true
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// WatchSet loads setID into a SetView that tracks completion effects from
// every session in the registry. release stops tracking and closes the
// view's subscriptions; it is safe to call more than once.
func (r *Registry) WatchSet(ctx context.Context, setID string) (*SetView, func(), error) {
	v := NewSetView(r.catalog, r.opts.Logger)

	// Register before loading; marks that arrive during the load are
	// replayed onto the fetched rows.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, nil, ErrRegistryClosed
	}
	r.views[v] = struct{}{}
	r.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.views, v)
			r.mu.Unlock()
			v.Close()
		})
	}

	if _, err := v.Load(ctx, setID); err != nil {
		release()
		return nil, nil, err
	}
	return v, release, nil
}

// RefreshSets reloads every watched view from storage. Call it after
// completion flags change outside a session, such as a bulk reset or a
// catalog import.
func (r *Registry) RefreshSets(ctx context.Context) error {
	var errs []error
	for _, v := range r.watched() {
		if _, err := v.Refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close disposes every session and closes every watched view. Create and
// WatchSet fail afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	views := r.views
	r.sessions = make(map[string]*ExerciseSession)
	r.views = make(map[*SetView]struct{})
	r.closed = true
	r.mu.Unlock()

	for _, s := range sessions {
		s.Dispose()
	}
	for v := range views {
		v.Close()
	}
	r.opts.Recorder.SetActiveSessions(0)
	r.opts.Logger.Info("sessions closed", "count", len(sessions), "set_views", len(views))
}

func (r *Registry) watched() []*SetView {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*SetView, 0, len(r.views))
	for v := range r.views {
		out = append(out, v)
	}
	return out
}

// mirrorEffect marks exerciseID in every watched view that contains it.
func (r *Registry) mirrorEffect(kind timer.EffectKind, exerciseID string) {
	completed := kind == timer.EffectCompleted
	for _, v := range r.watched() {
		if v.MarkLocal(exerciseID, completed) {
			r.opts.Logger.Debug("set progress updated", "set_id", v.SetID(), "exercise_id", exerciseID, "progress", v.Progress())
		}
	}
}
