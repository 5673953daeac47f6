// Package progress computes completion percentages for exercise sets.
package progress

import (
	"sync"

	"github.com/claude/spinecare/internal/models"
	"github.com/claude/spinecare/internal/observable"
)

// Percent returns the share of completed records as a value in [0, 100].
// An empty sequence is 0.
func Percent(records []models.Exercise) float64 {
	if len(records) == 0 {
		return 0
	}
	completed := 0
	for _, r := range records {
		if r.IsCompleted {
			completed++
		}
	}
	return float64(completed) / float64(len(records)) * 100
}

// Tracker recomputes the percentage every time it is handed a record
// sequence. It remembers only the last input.
type Tracker struct {
	mu      sync.Mutex
	records []models.Exercise
	value   *observable.Value[float64]
}

// NewTracker returns a Tracker at 0%.
func NewTracker() *Tracker {
	return &Tracker{value: observable.New(0.0)}
}

// Update replaces the tracked records and publishes the new percentage.
// The slice is copied so later caller mutations cannot skew the result.
func (t *Tracker) Update(records []models.Exercise) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append([]models.Exercise(nil), records...)
	p := Percent(t.records)
	t.value.Set(p)
	return p
}

// Records returns a copy of the last records passed to Update.
func (t *Tracker) Records() []models.Exercise {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]models.Exercise(nil), t.records...)
}

// Percent returns the last published percentage.
func (t *Tracker) Percent() float64 {
	return t.value.Get()
}

// Subscribe streams percentages, starting with the current one.
func (t *Tracker) Subscribe() (<-chan float64, func()) {
	return t.value.Subscribe()
}

// Close closes every subscriber channel.
func (t *Tracker) Close() {
	t.value.Close()
}
