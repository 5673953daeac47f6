package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/spinecare/internal/models"
)

// memSource is an in-memory DataSource.
type memSource struct {
	exercises []models.Exercise
	sets      []models.ExerciseSet
	err       error
}

func newMemSource() *memSource {
	return &memSource{
		exercises: []models.Exercise{
			{ID: "plank_001", Title: "Plank", DurationSeconds: 30, Difficulty: models.DifficultyBeginner, IsCompleted: true},
			{ID: "bridge_001", Title: "Bridge", DurationSeconds: 60, Difficulty: models.DifficultyIntermediate},
			{ID: "bird_dog_001", Title: "Bird Dog", DurationSeconds: 60, Difficulty: models.DifficultyBeginner, IsCompleted: true},
		},
		sets: []models.ExerciseSet{
			{ID: "core_strength_set", Name: "Core Strength", ExerciseIDs: []string{"plank_001", "bridge_001", "bird_dog_001"}},
			{ID: "empty_set", Name: "Empty"},
		},
	}
}

func (m *memSource) ListExercises(context.Context) ([]models.Exercise, error) {
	return m.exercises, m.err
}

func (m *memSource) GetExercise(_ context.Context, id string) (models.Exercise, bool, error) {
	for _, e := range m.exercises {
		if e.ID == id {
			return e, true, m.err
		}
	}
	return models.Exercise{}, false, m.err
}

func (m *memSource) ListExerciseSets(context.Context) ([]models.ExerciseSet, error) {
	return m.sets, m.err
}

func (m *memSource) GetExerciseSet(_ context.Context, id string) (models.ExerciseSet, bool, error) {
	for _, s := range m.sets {
		if s.ID == id {
			return s, true, m.err
		}
	}
	return models.ExerciseSet{}, false, m.err
}

func (m *memSource) ListExercisesForSet(ctx context.Context, setID string) ([]models.Exercise, error) {
	set, _, err := m.GetExerciseSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	var out []models.Exercise
	for _, id := range set.ExerciseIDs {
		e, _, _ := m.GetExercise(ctx, id)
		out = append(out, e)
	}
	return out, nil
}

func newHandlers(ds DataSource) *handlers {
	return &handlers{ds: ds, log: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

// TestListExerciseSetsProgress verifies each set carries its completion
// percentage and an empty set reports 0.
func TestListExerciseSetsProgress(t *testing.T) {
	h := newHandlers(newMemSource())
	res, err := h.listExerciseSets(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}

	var sets []models.SetSummary
	if err := json.Unmarshal([]byte(resultText(t, res)), &sets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("got %d sets, want 2", len(sets))
	}
	if math.Abs(sets[0].Progress-66.67) > 0.01 {
		t.Errorf("core progress = %f, want 66.67", sets[0].Progress)
	}
	if sets[1].Progress != 0 {
		t.Errorf("empty set progress = %f, want 0", sets[1].Progress)
	}
}

func TestGetExerciseSet(t *testing.T) {
	h := newHandlers(newMemSource())

	res, err := h.getExerciseSet(context.Background(), callRequest(map[string]any{"id": "core_strength_set"}))
	if err != nil {
		t.Fatal(err)
	}
	var detail models.SetDetail
	if err := json.Unmarshal([]byte(resultText(t, res)), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(detail.Exercises) != 3 || detail.Exercises[1].ID != "bridge_001" {
		t.Errorf("exercises = %v", detail.Exercises)
	}

	res, _ = h.getExerciseSet(context.Background(), callRequest(map[string]any{"id": "nope"}))
	if !res.IsError || !strings.Contains(resultText(t, res), "not found") {
		t.Errorf("unknown set: IsError=%v text=%q", res.IsError, resultText(t, res))
	}

	res, _ = h.getExerciseSet(context.Background(), callRequest(nil))
	if !res.IsError {
		t.Error("missing id should be a tool error")
	}
}

func TestGetExercise(t *testing.T) {
	h := newHandlers(newMemSource())
	res, err := h.getExercise(context.Background(), callRequest(map[string]any{"id": "plank_001"}))
	if err != nil {
		t.Fatal(err)
	}
	var e models.Exercise
	if err := json.Unmarshal([]byte(resultText(t, res)), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !e.IsCompleted || e.DurationSeconds != 30 {
		t.Errorf("exercise = %+v", e)
	}
}

// TestToolQueryError verifies data source failures surface as tool errors
// rather than protocol errors.
func TestToolQueryError(t *testing.T) {
	src := newMemSource()
	src.err = errors.New("database is locked")
	h := newHandlers(src)

	res, err := h.listExerciseSets(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("protocol error: %v", err)
	}
	if !res.IsError {
		t.Error("expected tool error")
	}
}

// TestCatalogResource verifies the catalog resource lists exercises and sets.
func TestCatalogResource(t *testing.T) {
	h := newHandlers(newMemSource())
	var req mcp.ReadResourceRequest
	req.Params.URI = "spinecare://catalog"

	contents, err := h.catalog(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents type = %T", contents[0])
	}
	var c models.Catalog
	if err := json.Unmarshal([]byte(text.Text), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(c.Exercises) != 3 || len(c.Sets) != 2 {
		t.Errorf("catalog = %d exercises, %d sets", len(c.Exercises), len(c.Sets))
	}
	if text.URI != "spinecare://catalog" {
		t.Errorf("uri = %q", text.URI)
	}
}

// TestNewRegistersTools verifies the server builds with the in-memory source.
func TestNewRegistersTools(t *testing.T) {
	s := New(newMemSource(), "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if s == nil {
		t.Fatal("New returned nil")
	}
}
