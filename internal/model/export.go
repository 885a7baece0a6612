package model

import "time"

// ResultsExport is the top-level JSON structure for session history export.
type ResultsExport struct {
	ExportedAt time.Time         `json:"exported_at"`
	Exercises  []ExerciseResults `json:"exercises"`
}

// ExerciseResults holds the recorded sessions of one exercise.
type ExerciseResults struct {
	ExerciseID          string          `json:"exercise_id"`
	Sessions            []SessionResult `json:"sessions"`
	TotalQuestions      int             `json:"total_questions"`
	TotalCorrectAnswers int             `json:"total_correct_answers"`
}
