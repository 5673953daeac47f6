package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claude/spinecare/internal/models"
)

const exerciseColumns = `e.id, e.title, e.description, e.video_id, e.duration_seconds,
	e.difficulty, e.instructions, e.is_completed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner) (models.Exercise, error) {
	var (
		e            models.Exercise
		difficulty   string
		instructions string
	)
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.VideoID, &e.DurationSeconds,
		&difficulty, &instructions, &e.IsCompleted); err != nil {
		return models.Exercise{}, err
	}
	e.Difficulty = models.Difficulty(difficulty)
	if err := json.Unmarshal([]byte(instructions), &e.Instructions); err != nil {
		return models.Exercise{}, fmt.Errorf("decoding instructions for %s: %w", e.ID, err)
	}
	return e, nil
}

// UpsertExercise inserts an exercise or updates its content fields.
// The completion flag of an existing row is left untouched so re-seeding
// never erases progress.
func (db *DB) UpsertExercise(ctx context.Context, e models.Exercise) error {
	instructions := e.Instructions
	if instructions == nil {
		instructions = []string{}
	}
	data, err := json.Marshal(instructions)
	if err != nil {
		return fmt.Errorf("encoding instructions for %s: %w", e.ID, err)
	}

	_, err = db.SQL.ExecContext(ctx, db.rebind(
		`INSERT INTO exercises (id, title, description, video_id, duration_seconds, difficulty, instructions)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			video_id = excluded.video_id,
			duration_seconds = excluded.duration_seconds,
			difficulty = excluded.difficulty,
			instructions = excluded.instructions,
			updated_at = CURRENT_TIMESTAMP`),
		e.ID, e.Title, e.Description, e.VideoID, e.DurationSeconds, string(e.Difficulty), string(data))
	if err != nil {
		return fmt.Errorf("upserting exercise %s: %w", e.ID, err)
	}
	return nil
}

// GetExercise fetches one exercise. The bool is false when no such exercise exists.
func (db *DB) GetExercise(ctx context.Context, id string) (models.Exercise, bool, error) {
	row := db.SQL.QueryRowContext(ctx, db.rebind(
		`SELECT `+exerciseColumns+` FROM exercises e WHERE e.id = ?`), id)
	e, err := scanExercise(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Exercise{}, false, nil
	}
	if err != nil {
		return models.Exercise{}, false, fmt.Errorf("querying exercise %s: %w", id, err)
	}
	return e, true, nil
}

// ListExercises returns every exercise ordered by title.
func (db *DB) ListExercises(ctx context.Context) ([]models.Exercise, error) {
	rows, err := db.SQL.QueryContext(ctx,
		`SELECT `+exerciseColumns+` FROM exercises e ORDER BY e.title`)
	if err != nil {
		return nil, fmt.Errorf("querying exercises: %w", err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// ListExercisesForSet returns the exercises of a set in set order.
// An unknown set yields an empty slice, not an error.
func (db *DB) ListExercisesForSet(ctx context.Context, setID string) ([]models.Exercise, error) {
	rows, err := db.SQL.QueryContext(ctx, db.rebind(
		`SELECT `+exerciseColumns+`
		 FROM exercise_set_items i
		 JOIN exercises e ON e.id = i.exercise_id
		 WHERE i.set_id = ?
		 ORDER BY i.position`), setID)
	if err != nil {
		return nil, fmt.Errorf("querying exercises for set %s: %w", setID, err)
	}
	defer rows.Close()

	result := []models.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning exercise: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// MarkExerciseCompleted sets the completion flag of one exercise.
func (db *DB) MarkExerciseCompleted(ctx context.Context, id string) error {
	return db.setCompletion(ctx, id, true)
}

// ResetExerciseCompletion clears the completion flag of one exercise.
func (db *DB) ResetExerciseCompletion(ctx context.Context, id string) error {
	return db.setCompletion(ctx, id, false)
}

func (db *DB) setCompletion(ctx context.Context, id string, completed bool) error {
	res, err := db.SQL.ExecContext(ctx, db.rebind(
		`UPDATE exercises SET is_completed = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		completed, id)
	if err != nil {
		return fmt.Errorf("updating completion for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating completion for %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating completion: exercise %s not found", id)
	}
	return nil
}

// ResetAllCompletions clears every completion flag. Returns the number of
// exercises that were completed before the reset.
func (db *DB) ResetAllCompletions(ctx context.Context) (int64, error) {
	res, err := db.SQL.ExecContext(ctx, db.rebind(
		`UPDATE exercises SET is_completed = ?, updated_at = CURRENT_TIMESTAMP WHERE is_completed = ?`),
		false, true)
	if err != nil {
		return 0, fmt.Errorf("resetting completions: %w", err)
	}
	return res.RowsAffected()
}
