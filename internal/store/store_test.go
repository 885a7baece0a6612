package store

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/pavelanni/eartrainer/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func recordTestResult(t *testing.T, s *Store, exerciseID string, questions, correct int) int64 {
	t.Helper()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id, err := s.RecordSessionResult(context.Background(), model.SessionResult{
		ExerciseID:          exerciseID,
		TotalQuestions:      questions,
		TotalCorrectAnswers: correct,
		StartedAt:           start,
		FinishedAt:          start.Add(5 * time.Minute),
	})
	if err != nil {
		t.Fatalf("recordTestResult: %v", err)
	}
	return id
}

func TestExerciseSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Nothing saved yet.
	got, err := s.GetExerciseSettings(ctx, "notes-in-key")
	if err != nil {
		t.Fatalf("GetExerciseSettings: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil settings, got %+v", got)
	}

	want := model.ExerciseSettingsData{
		GlobalSettings: model.GlobalExerciseSettings{PlayCadence: false},
		ExerciseSettings: model.ExerciseSettings{
			"key":              model.StringValue("G"),
			"numberOfSegments": model.NumberValue(3),
			"includedAnswers":  model.ListValue("Do", "Mi", "Sol"),
			"droneOn":          model.BoolValue(true),
		},
	}
	if err := s.SaveExerciseSettings(ctx, "notes-in-key", want); err != nil {
		t.Fatalf("SaveExerciseSettings: %v", err)
	}

	got, err = s.GetExerciseSettings(ctx, "notes-in-key")
	if err != nil {
		t.Fatalf("GetExerciseSettings: %v", err)
	}
	if got == nil || !reflect.DeepEqual(*got, want) {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", got, want)
	}

	// Other exercises are unaffected.
	other, err := s.GetExerciseSettings(ctx, "interval")
	if err != nil {
		t.Fatalf("GetExerciseSettings: %v", err)
	}
	if other != nil {
		t.Errorf("expected nil settings for another exercise, got %+v", other)
	}
}

func TestExerciseSettingsOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := model.ExerciseSettingsData{
		GlobalSettings:   model.GlobalExerciseSettings{PlayCadence: true},
		ExerciseSettings: model.ExerciseSettings{"key": model.StringValue("C")},
	}
	second := model.ExerciseSettingsData{
		GlobalSettings:   model.GlobalExerciseSettings{PlayCadence: false},
		ExerciseSettings: model.ExerciseSettings{"key": model.StringValue("D")},
	}
	for _, d := range []model.ExerciseSettingsData{first, second} {
		if err := s.SaveExerciseSettings(ctx, "notes-in-key", d); err != nil {
			t.Fatalf("SaveExerciseSettings: %v", err)
		}
	}

	got, err := s.GetExerciseSettings(ctx, "notes-in-key")
	if err != nil {
		t.Fatalf("GetExerciseSettings: %v", err)
	}
	if !reflect.DeepEqual(*got, second) {
		t.Errorf("expected latest settings %+v, got %+v", second, *got)
	}
}

func TestExerciseSettingsEmptyMaps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		data model.ExerciseSettingsData
	}{
		{"nil map", model.ExerciseSettingsData{
			GlobalSettings: model.GlobalExerciseSettings{PlayCadence: false},
		}},
		{"empty map", model.ExerciseSettingsData{
			GlobalSettings:   model.GlobalExerciseSettings{PlayCadence: true},
			ExerciseSettings: model.ExerciseSettings{},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.SaveExerciseSettings(ctx, "triad-quality", tt.data); err != nil {
				t.Fatalf("SaveExerciseSettings: %v", err)
			}
			got, err := s.GetExerciseSettings(ctx, "triad-quality")
			if err != nil {
				t.Fatalf("GetExerciseSettings: %v", err)
			}
			if got == nil || !reflect.DeepEqual(*got, tt.data) {
				t.Errorf("round trip mismatch:\n got  %#v\n want %#v", got, tt.data)
			}
		})
	}
}

func TestNewFailsOnBadPath(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing", "eartrainer.db"))
	if err == nil {
		t.Fatal("expected an error for a database in a missing directory")
	}
}

func TestSessionResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	list, err := s.ListSessionResults(ctx, "")
	if err != nil {
		t.Fatalf("ListSessionResults: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected empty list, got %d", len(list))
	}

	id1 := recordTestResult(t, s, "notes-in-key", 10, 7)
	recordTestResult(t, s, "interval", 4, 4)
	recordTestResult(t, s, "notes-in-key", 5, 5)

	all, err := s.ListSessionResults(ctx, "")
	if err != nil {
		t.Fatalf("ListSessionResults: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 results, got %d", len(all))
	}
	if all[0].ID != id1 {
		t.Errorf("expected first result id %d, got %d", id1, all[0].ID)
	}
	if !all[0].StartedAt.Equal(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected started_at %v", all[0].StartedAt)
	}
	if all[0].FinishedAt.Sub(all[0].StartedAt) != 5*time.Minute {
		t.Errorf("unexpected duration %v", all[0].FinishedAt.Sub(all[0].StartedAt))
	}

	notes, err := s.ListSessionResults(ctx, "notes-in-key")
	if err != nil {
		t.Fatalf("ListSessionResults: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes-in-key results, got %d", len(notes))
	}
	for _, r := range notes {
		if r.ExerciseID != "notes-in-key" {
			t.Errorf("unexpected exercise %q", r.ExerciseID)
		}
	}
}

func TestExportResults(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recordTestResult(t, s, "notes-in-key", 10, 7)
	recordTestResult(t, s, "interval", 4, 4)
	recordTestResult(t, s, "notes-in-key", 5, 5)

	export, err := s.ExportResults(ctx)
	if err != nil {
		t.Fatalf("ExportResults: %v", err)
	}
	if len(export.Exercises) != 2 {
		t.Fatalf("expected 2 exercises, got %d", len(export.Exercises))
	}

	tests := []struct {
		exerciseID string
		sessions   int
		questions  int
		correct    int
	}{
		{"notes-in-key", 2, 15, 12},
		{"interval", 1, 4, 4},
	}
	for i, tt := range tests {
		got := export.Exercises[i]
		if got.ExerciseID != tt.exerciseID {
			t.Errorf("exercise %d: expected %q, got %q", i, tt.exerciseID, got.ExerciseID)
			continue
		}
		if len(got.Sessions) != tt.sessions || got.TotalQuestions != tt.questions || got.TotalCorrectAnswers != tt.correct {
			t.Errorf("%s: got %d sessions %d/%d, want %d sessions %d/%d",
				tt.exerciseID, len(got.Sessions), got.TotalCorrectAnswers, got.TotalQuestions,
				tt.sessions, tt.correct, tt.questions)
		}
	}
	if export.ExportedAt.IsZero() {
		t.Error("expected exported_at to be set")
	}
}

func TestPreferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.GetPreference(ctx, PrefLastExercise)
	if err != nil {
		t.Fatalf("GetPreference: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value, got %q", v)
	}

	for _, want := range []string{"interval", "notes-in-key"} {
		if err := s.SetPreference(ctx, PrefLastExercise, want); err != nil {
			t.Fatalf("SetPreference: %v", err)
		}
		got, err := s.GetPreference(ctx, PrefLastExercise)
		if err != nil {
			t.Fatalf("GetPreference: %v", err)
		}
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	}
}
