package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/claude/spinecare/internal/models"
)

// UpsertExerciseSet inserts or updates a set and replaces its ordered items.
func (db *DB) UpsertExerciseSet(ctx context.Context, s models.ExerciseSet) error {
	tx, err := db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning set transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, db.rebind(
		`INSERT INTO exercise_sets (id, name, description, estimated_minutes)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			estimated_minutes = excluded.estimated_minutes`),
		s.ID, s.Name, s.Description, s.EstimatedMinutes)
	if err != nil {
		return fmt.Errorf("upserting exercise set %s: %w", s.ID, err)
	}

	if _, err := tx.ExecContext(ctx, db.rebind(
		`DELETE FROM exercise_set_items WHERE set_id = ?`), s.ID); err != nil {
		return fmt.Errorf("clearing items for set %s: %w", s.ID, err)
	}

	for i, exerciseID := range s.ExerciseIDs {
		if _, err := tx.ExecContext(ctx, db.rebind(
			`INSERT INTO exercise_set_items (set_id, position, exercise_id) VALUES (?, ?, ?)`),
			s.ID, i, exerciseID); err != nil {
			return fmt.Errorf("inserting item %s into set %s: %w", exerciseID, s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing set %s: %w", s.ID, err)
	}
	return nil
}

// ListExerciseSets returns every set ordered by name, with exercise ids in set order.
func (db *DB) ListExerciseSets(ctx context.Context) ([]models.ExerciseSet, error) {
	rows, err := db.SQL.QueryContext(ctx,
		`SELECT id, name, description, estimated_minutes FROM exercise_sets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("querying exercise sets: %w", err)
	}

	result := []models.ExerciseSet{}
	for rows.Next() {
		var s models.ExerciseSet
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.EstimatedMinutes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning exercise set: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating exercise sets: %w", err)
	}
	// Close before issuing item queries; SQLite runs on a single connection.
	rows.Close()

	for i := range result {
		ids, err := db.setExerciseIDs(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].ExerciseIDs = ids
	}
	return result, nil
}

// GetExerciseSet fetches one set. The bool is false when no such set exists.
func (db *DB) GetExerciseSet(ctx context.Context, id string) (models.ExerciseSet, bool, error) {
	var s models.ExerciseSet
	err := db.SQL.QueryRowContext(ctx, db.rebind(
		`SELECT id, name, description, estimated_minutes FROM exercise_sets WHERE id = ?`), id).
		Scan(&s.ID, &s.Name, &s.Description, &s.EstimatedMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ExerciseSet{}, false, nil
	}
	if err != nil {
		return models.ExerciseSet{}, false, fmt.Errorf("querying exercise set %s: %w", id, err)
	}

	ids, err := db.setExerciseIDs(ctx, id)
	if err != nil {
		return models.ExerciseSet{}, false, err
	}
	s.ExerciseIDs = ids
	return s, true, nil
}

func (db *DB) setExerciseIDs(ctx context.Context, setID string) ([]string, error) {
	rows, err := db.SQL.QueryContext(ctx, db.rebind(
		`SELECT exercise_id FROM exercise_set_items WHERE set_id = ? ORDER BY position`), setID)
	if err != nil {
		return nil, fmt.Errorf("querying items for set %s: %w", setID, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning set item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
