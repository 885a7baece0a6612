package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pavelanni/eartrainer/internal/model"
)

// ExportResults groups all recorded sessions by exercise, in order of each
// exercise's first session.
func (s *Store) ExportResults(ctx context.Context) (model.ResultsExport, error) {
	results, err := s.ListSessionResults(ctx, "")
	if err != nil {
		return model.ResultsExport{}, fmt.Errorf("list session results: %w", err)
	}

	export := model.ResultsExport{ExportedAt: time.Now()}
	index := make(map[string]int)
	for _, r := range results {
		i, ok := index[r.ExerciseID]
		if !ok {
			i = len(export.Exercises)
			index[r.ExerciseID] = i
			export.Exercises = append(export.Exercises, model.ExerciseResults{ExerciseID: r.ExerciseID})
		}
		ex := &export.Exercises[i]
		ex.Sessions = append(ex.Sessions, r)
		ex.TotalQuestions += r.TotalQuestions
		ex.TotalCorrectAnswers += r.TotalCorrectAnswers
	}
	return export, nil
}
