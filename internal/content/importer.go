package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/claude/spinecare/internal/models"
	"github.com/claude/spinecare/internal/storage"
)

// Result holds the outcome of a catalog import.
type Result struct {
	ExercisesReceived int    `json:"exercises_received"`
	ExercisesUpserted int    `json:"exercises_upserted"`
	SetsReceived      int    `json:"sets_received"`
	SetsUpserted      int    `json:"sets_upserted"`
	DryRun            bool   `json:"dry_run,omitempty"`
	Message           string `json:"message,omitempty"`
}

// Importer writes a validated catalog into the database. Exercises go first
// so set items always reference existing rows. Existing completion flags
// are kept.
type Importer struct {
	db     *storage.DB
	log    *slog.Logger
	dryRun bool
}

// NewImporter creates an Importer. db may be nil when dryRun is set.
func NewImporter(db *storage.DB, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, log: log, dryRun: dryRun}
}

// Import upserts every exercise and set in c.
func (imp *Importer) Import(ctx context.Context, c *models.Catalog) (*Result, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	res := &Result{
		ExercisesReceived: len(c.Exercises),
		SetsReceived:      len(c.Sets),
		DryRun:            imp.dryRun,
	}
	if imp.dryRun {
		res.Message = fmt.Sprintf("dry run: would import %d exercises and %d sets", len(c.Exercises), len(c.Sets))
		return res, nil
	}

	for _, e := range c.Exercises {
		if err := imp.db.UpsertExercise(ctx, e); err != nil {
			return res, fmt.Errorf("importing exercise %s: %w", e.ID, err)
		}
		res.ExercisesUpserted++
	}
	for _, s := range c.Sets {
		if err := imp.db.UpsertExerciseSet(ctx, s); err != nil {
			return res, fmt.Errorf("importing set %s: %w", s.ID, err)
		}
		res.SetsUpserted++
	}

	res.Message = fmt.Sprintf("imported %d exercises and %d sets", res.ExercisesUpserted, res.SetsUpserted)
	imp.log.Info("catalog imported",
		"exercises", res.ExercisesUpserted,
		"sets", res.SetsUpserted,
	)
	return res, nil
}
