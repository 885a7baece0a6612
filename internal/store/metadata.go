package store

import (
	"context"
	"database/sql"
	"errors"
)

// PrefLastExercise remembers the exercise practised most recently.
const PrefLastExercise = "last_exercise"

// SetPreference upserts a key-value pair in the preferences table.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = ?`,
		key, value, value,
	)
	return err
}

// GetPreference returns the value for a preference key.
// Returns empty string and nil error if the key is missing.
func (s *Store) GetPreference(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}
