package models

// SetSummary is an exercise set with its completion percentage.
type SetSummary struct {
	ExerciseSet
	Progress float64 `json:"progress"`
}

// SetDetail is a set, its exercises in order and its completion percentage.
type SetDetail struct {
	Set       ExerciseSet `json:"set"`
	Exercises []Exercise  `json:"exercises"`
	Progress  float64     `json:"progress"`
}
