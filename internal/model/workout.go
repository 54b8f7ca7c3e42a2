package model

import "time"

type Exercise struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	MuscleGroup string `json:"muscle_group"`
	Notes       string `json:"notes"`
	Active      bool   `json:"active"`
}

// ScheduledExercise is one exercise planned on a weekday of the weekly program.
type ScheduledExercise struct {
	ID           int64        `json:"id"`
	UserID       int64        `json:"user_id"`
	ExerciseID   int64        `json:"exercise_id"`
	ExerciseName string       `json:"exercise_name"`
	MuscleGroup  string       `json:"muscle_group"`
	Weekday      time.Weekday `json:"weekday"`
	Position     int          `json:"position"`
	PlannedSets  int          `json:"planned_sets"`
	PlannedReps  string       `json:"planned_reps"`
	Active       bool         `json:"active"`
}

// WorkoutSet is a single logged series of a scheduled exercise.
type WorkoutSet struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ScheduleID   int64     `json:"schedule_id"`
	ExerciseName string    `json:"exercise_name,omitempty"`
	Date         time.Time `json:"date"`
	SetNumber    int       `json:"set_number"`
	WeightKg     float64   `json:"weight_kg"`
	Reps         int       `json:"reps"`
	CreatedAt    time.Time `json:"created_at"`
}

// ExerciseProgress is the heaviest set of an exercise on one day.
type ExerciseProgress struct {
	ExerciseID   int64     `json:"exercise_id"`
	ExerciseName string    `json:"exercise_name"`
	Date         time.Time `json:"date"`
	MaxWeightKg  float64   `json:"max_weight_kg"`
	TotalReps    int       `json:"total_reps"`
}
