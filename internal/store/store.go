package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS risk_weights (
	user_id     TEXT PRIMARY KEY,
	weights     JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS risk_predictions (
	id             UUID PRIMARY KEY,
	user_id        TEXT NOT NULL,
	risk_score     INTEGER NOT NULL,
	confidence     INTEGER NOT NULL,
	reason         TEXT NOT NULL,
	factors        JSONB NOT NULL,
	data_points    INTEGER NOT NULL,
	matched_event  JSONB,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS risk_predictions_user_idx ON risk_predictions (user_id, created_at);

CREATE TABLE IF NOT EXISTS risk_feedback (
	id             UUID PRIMARY KEY,
	user_id        TEXT NOT NULL,
	prediction_id  UUID NOT NULL REFERENCES risk_predictions(id),
	factors        JSONB NOT NULL,
	outcome        TEXT NOT NULL CHECK (outcome IN ('helpful', 'false_alarm')),
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS risk_feedback_user_idx ON risk_feedback (user_id, created_at);
CREATE UNIQUE INDEX IF NOT EXISTS risk_feedback_prediction_idx ON risk_feedback (prediction_id);
`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
