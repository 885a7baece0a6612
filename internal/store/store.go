// Package store persists exercise settings and practice history in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pavelanni/eartrainer/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exercise_settings (
		exercise_id TEXT PRIMARY KEY,
		global_settings TEXT NOT NULL,
		exercise_settings TEXT,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		exercise_id TEXT NOT NULL,
		total_questions INTEGER NOT NULL DEFAULT 0,
		total_correct_answers INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_results_exercise ON session_results(exercise_id);

	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetExerciseSettings returns the settings saved for an exercise.
// Returns nil and nil error if nothing was saved.
func (s *Store) GetExerciseSettings(ctx context.Context, exerciseID string) (*model.ExerciseSettingsData, error) {
	var global string
	var exercise sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT global_settings, exercise_settings FROM exercise_settings WHERE exercise_id = ?`, exerciseID,
	).Scan(&global, &exercise)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data model.ExerciseSettingsData
	if err := json.Unmarshal([]byte(global), &data.GlobalSettings); err != nil {
		return nil, fmt.Errorf("decode global settings of %s: %w", exerciseID, err)
	}
	if exercise.Valid {
		if err := json.Unmarshal([]byte(exercise.String), &data.ExerciseSettings); err != nil {
			return nil, fmt.Errorf("decode exercise settings of %s: %w", exerciseID, err)
		}
	}
	return &data, nil
}

// SaveExerciseSettings inserts or replaces the settings of an exercise.
// A nil exercise settings map is stored as NULL and loads back as nil.
func (s *Store) SaveExerciseSettings(ctx context.Context, exerciseID string, data model.ExerciseSettingsData) error {
	global, err := json.Marshal(data.GlobalSettings)
	if err != nil {
		return fmt.Errorf("encode global settings: %w", err)
	}
	var exercise sql.NullString
	if data.ExerciseSettings != nil {
		b, err := json.Marshal(data.ExerciseSettings)
		if err != nil {
			return fmt.Errorf("encode exercise settings: %w", err)
		}
		exercise = sql.NullString{String: string(b), Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exercise_settings (exercise_id, global_settings, exercise_settings, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(exercise_id) DO UPDATE SET global_settings = ?, exercise_settings = ?, updated_at = ?`,
		exerciseID, string(global), exercise, time.Now(),
		string(global), exercise, time.Now(),
	)
	return err
}

// RecordSessionResult stores a finished practice session.
func (s *Store) RecordSessionResult(ctx context.Context, r model.SessionResult) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO session_results (exercise_id, total_questions, total_correct_answers, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?)`,
		r.ExerciseID, r.TotalQuestions, r.TotalCorrectAnswers, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListSessionResults returns recorded sessions, oldest first.
// An empty exerciseID means all exercises.
func (s *Store) ListSessionResults(ctx context.Context, exerciseID string) ([]model.SessionResult, error) {
	query := `SELECT id, exercise_id, total_questions, total_correct_answers, started_at, finished_at
		FROM session_results WHERE 1=1`
	var args []any
	if exerciseID != "" {
		query += ` AND exercise_id = ?`
		args = append(args, exerciseID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []model.SessionResult
	for rows.Next() {
		var r model.SessionResult
		if err := rows.Scan(&r.ID, &r.ExerciseID, &r.TotalQuestions, &r.TotalCorrectAnswers, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
