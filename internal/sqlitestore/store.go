// Package sqlitestore persists weights, predictions and feedback in a local
// SQLite file. It backs single-node deployments and the vigilctl CLI.
package sqlitestore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS risk_weights (
	user_id     TEXT PRIMARY KEY,
	weights     TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS risk_predictions (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	risk_score     INTEGER NOT NULL,
	confidence     INTEGER NOT NULL,
	reason         TEXT NOT NULL,
	factors        TEXT NOT NULL,
	data_points    INTEGER NOT NULL,
	matched_event  TEXT,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_predictions_user ON risk_predictions(user_id, created_at);

CREATE TABLE IF NOT EXISTS risk_feedback (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id        TEXT NOT NULL,
	prediction_id  TEXT NOT NULL,
	factors        TEXT NOT NULL,
	outcome        TEXT NOT NULL CHECK (outcome IN ('helpful', 'false_alarm')),
	created_at     TEXT NOT NULL,
	FOREIGN KEY (prediction_id) REFERENCES risk_predictions(id)
);
CREATE INDEX IF NOT EXISTS idx_feedback_user ON risk_feedback(user_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_feedback_prediction ON risk_feedback(prediction_id);
`

// Fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store manages risk state in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
