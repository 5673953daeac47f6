package models

import (
	"fmt"
	"strings"
)

// Difficulty grades how demanding an exercise is.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty normalizes a difficulty name. Lookup is case-insensitive so
// catalogs may use "BEGINNER" or "Beginner".
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return d, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// Exercise is one timed exercise with its completion flag.
type Exercise struct {
	ID              string     `json:"id" yaml:"id"`
	Title           string     `json:"title" yaml:"title"`
	Description     string     `json:"description" yaml:"description"`
	VideoID         string     `json:"video_id,omitempty" yaml:"video_id"`
	DurationSeconds int        `json:"duration_seconds" yaml:"duration_seconds"`
	Difficulty      Difficulty `json:"difficulty" yaml:"difficulty"`
	Instructions    []string   `json:"instructions" yaml:"instructions"`
	IsCompleted     bool       `json:"is_completed" yaml:"-"`
}

// Validate checks the fields the timer and storage depend on.
func (e *Exercise) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("exercise id is required")
	}
	if e.DurationSeconds <= 0 {
		return fmt.Errorf("exercise %s: duration_seconds must be positive, got %d", e.ID, e.DurationSeconds)
	}
	d, err := ParseDifficulty(string(e.Difficulty))
	if err != nil {
		return fmt.Errorf("exercise %s: %w", e.ID, err)
	}
	e.Difficulty = d
	return nil
}

// ExerciseSet is a named, ordered group of exercises.
type ExerciseSet struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Description      string   `json:"description" yaml:"description"`
	ExerciseIDs      []string `json:"exercise_ids" yaml:"exercise_ids"`
	EstimatedMinutes int      `json:"estimated_minutes" yaml:"estimated_minutes"`
}

// Validate checks the set against the exercises it references.
// known may be nil to skip the reference check.
func (s *ExerciseSet) Validate(known map[string]bool) error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("exercise set id is required")
	}
	if s.EstimatedMinutes < 0 {
		return fmt.Errorf("exercise set %s: estimated_minutes must not be negative", s.ID)
	}
	seen := make(map[string]bool, len(s.ExerciseIDs))
	for _, id := range s.ExerciseIDs {
		if seen[id] {
			return fmt.Errorf("exercise set %s: duplicate exercise %s", s.ID, id)
		}
		seen[id] = true
		if known != nil && !known[id] {
			return fmt.Errorf("exercise set %s: unknown exercise %s", s.ID, id)
		}
	}
	return nil
}

// Catalog is the static content document: every exercise and set.
type Catalog struct {
	Exercises []Exercise    `json:"exercises" yaml:"exercises"`
	Sets      []ExerciseSet `json:"sets" yaml:"sets"`
}

// Validate checks every exercise and set and the references between them.
func (c *Catalog) Validate() error {
	known := make(map[string]bool, len(c.Exercises))
	for i := range c.Exercises {
		if err := c.Exercises[i].Validate(); err != nil {
			return err
		}
		if known[c.Exercises[i].ID] {
			return fmt.Errorf("duplicate exercise id %s", c.Exercises[i].ID)
		}
		known[c.Exercises[i].ID] = true
	}
	sets := make(map[string]bool, len(c.Sets))
	for i := range c.Sets {
		if err := c.Sets[i].Validate(known); err != nil {
			return err
		}
		if sets[c.Sets[i].ID] {
			return fmt.Errorf("duplicate exercise set id %s", c.Sets[i].ID)
		}
		sets[c.Sets[i].ID] = true
	}
	return nil
}
