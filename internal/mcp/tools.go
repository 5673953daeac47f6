package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/spinecare/internal/models"
	"github.com/claude/spinecare/internal/progress"
)

var toolListExerciseSets = mcp.NewTool("list_exercise_sets",
	mcp.WithDescription("List all exercise sets with their description, estimated minutes and completion progress (0-100)."),
)

var toolGetExerciseSet = mcp.NewTool("get_exercise_set",
	mcp.WithDescription("Get one exercise set with its exercises in order and its completion progress (0-100)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Exercise set id (e.g. beginner_set, core_strength_set, flexibility_set)")),
)

var toolGetExercise = mcp.NewTool("get_exercise",
	mcp.WithDescription("Get one exercise: duration, difficulty, step-by-step instructions, video id and completion flag."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Exercise id (e.g. plank_001)")),
)

func (h *handlers) listExerciseSets(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sets, err := h.ds.ListExerciseSets(ctx)
	if err != nil {
		h.log.Error("mcp list_exercise_sets", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	out := make([]models.SetSummary, 0, len(sets))
	for _, set := range sets {
		records, err := h.ds.ListExercisesForSet(ctx, set.ID)
		if err != nil {
			h.log.Error("mcp list_exercise_sets", "set_id", set.ID, "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		out = append(out, models.SetSummary{ExerciseSet: set, Progress: progress.Percent(records)})
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExerciseSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	set, found, err := h.ds.GetExerciseSet(ctx, id)
	if err != nil {
		h.log.Error("mcp get_exercise_set", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if !found {
		return mcp.NewToolResultError("exercise set not found: " + id), nil
	}

	records, err := h.ds.ListExercisesForSet(ctx, id)
	if err != nil {
		h.log.Error("mcp get_exercise_set", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if records == nil {
		records = []models.Exercise{}
	}

	result, err := mcp.NewToolResultJSON(models.SetDetail{Set: set, Exercises: records, Progress: progress.Percent(records)})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getExercise(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	e, found, err := h.ds.GetExercise(ctx, id)
	if err != nil {
		h.log.Error("mcp get_exercise", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	if !found {
		return mcp.NewToolResultError("exercise not found: " + id), nil
	}

	result, err := mcp.NewToolResultJSON(e)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
