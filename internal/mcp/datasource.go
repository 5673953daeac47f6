package mcp

import (
	"context"

	"github.com/claude/spinecare/internal/models"
	"github.com/claude/spinecare/internal/storage"
)

// DataSource abstracts the catalog for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListExercises(ctx context.Context) ([]models.Exercise, error)
	GetExercise(ctx context.Context, id string) (models.Exercise, bool, error)
	ListExerciseSets(ctx context.Context) ([]models.ExerciseSet, error)
	GetExerciseSet(ctx context.Context, id string) (models.ExerciseSet, bool, error)
	ListExercisesForSet(ctx context.Context, setID string) ([]models.Exercise, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
