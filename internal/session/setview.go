package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/spinecare/internal/models"
	"github.com/claude/spinecare/internal/progress"
)

// SetView holds the ordered exercises of one set and their completion
// percentage. Subscribers see the percentage change as completion flags are
// marked locally or reloaded.
type SetView struct {
	catalog Catalog
	log     *slog.Logger
	tracker *progress.Tracker

	// mu serializes changes to the tracked records.
	mu      sync.Mutex
	setID   string
	loading int
	pending map[string]bool // marks received while a load was in flight
}

// NewSetView creates an empty view at 0%.
func NewSetView(catalog Catalog, log *slog.Logger) *SetView {
	return &SetView{catalog: catalog, log: log, tracker: progress.NewTracker()}
}

// Load fetches the set's exercises in order and recomputes progress.
// An unknown set yields no exercises and 0%.
func (v *SetView) Load(ctx context.Context, setID string) ([]models.Exercise, error) {
	v.mu.Lock()
	v.loading++
	if v.pending == nil {
		v.pending = make(map[string]bool)
	}
	v.mu.Unlock()

	records, err := v.catalog.ListExercisesForSet(ctx, setID)

	v.mu.Lock()
	v.loading--
	if err == nil {
		for i := range records {
			if c, ok := v.pending[records[i].ID]; ok {
				records[i].IsCompleted = c
			}
		}
	}
	if v.loading == 0 {
		v.pending = nil
	}
	if err != nil {
		v.mu.Unlock()
		return nil, fmt.Errorf("loading set %s: %w", setID, err)
	}
	v.setID = setID
	p := v.tracker.Update(records)
	v.mu.Unlock()

	v.log.Debug("set loaded", "set_id", setID, "exercises", len(records), "progress", p)
	return records, nil
}

// Refresh reloads the current set.
func (v *SetView) Refresh(ctx context.Context) ([]models.Exercise, error) {
	setID := v.SetID()
	if setID == "" {
		return nil, nil
	}
	return v.Load(ctx, setID)
}

// SetID returns the id of the loaded set, or "" before the first Load.
func (v *SetView) SetID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.setID
}

// MarkLocal sets one exercise's completion flag in the view without
// touching storage. It reports whether the exercise is part of the set.
func (v *SetView) MarkLocal(exerciseID string, completed bool) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.pending != nil {
		v.pending[exerciseID] = completed
	}
	records := v.tracker.Records()
	found := false
	for i := range records {
		if records[i].ID == exerciseID {
			records[i].IsCompleted = completed
			found = true
		}
	}
	if found {
		v.tracker.Update(records)
	}
	return found
}

// Exercises returns the last loaded records.
func (v *SetView) Exercises() []models.Exercise {
	return v.tracker.Records()
}

// Progress returns the current completion percentage.
func (v *SetView) Progress() float64 {
	return v.tracker.Percent()
}

// Subscribe streams the completion percentage until the view is closed.
func (v *SetView) Subscribe() (<-chan float64, func()) {
	return v.tracker.Subscribe()
}

// Close ends every subscription.
func (v *SetView) Close() {
	v.tracker.Close()
}
