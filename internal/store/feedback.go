package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// ApplyFeedback records fb and stores w as the user's weights in a single
// transaction. A second feedback for the same prediction is rejected with
// risk.ErrFeedbackExists.
func (s *Store) ApplyFeedback(ctx context.Context, userID string, fb risk.Feedback, w risk.Weights) error {
	factors, err := json.Marshal(fb.PredictionFactors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin feedback tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO risk_feedback (id, user_id, prediction_id, factors, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.New(), userID, fb.PredictionID, factors, string(fb.Outcome), fb.Timestamp,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return risk.ErrFeedbackExists
	}
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	if _, err := tx.Exec(ctx, upsertWeightsSQL, userID, raw); err != nil {
		return fmt.Errorf("upsert weights: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit feedback tx: %w", err)
	}
	return nil
}

// ListFeedback returns the user's feedback recorded at or after since,
// oldest first.
func (s *Store) ListFeedback(ctx context.Context, userID string, since time.Time) ([]risk.Feedback, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT prediction_id, factors, outcome, created_at
		FROM risk_feedback
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at ASC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []risk.Feedback
	for rows.Next() {
		var fb risk.Feedback
		var factors []byte
		var outcome string
		if err := rows.Scan(&fb.PredictionID, &factors, &outcome, &fb.Timestamp); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		if err := json.Unmarshal(factors, &fb.PredictionFactors); err != nil {
			return nil, fmt.Errorf("decode factors: %w", err)
		}
		fb.Outcome = risk.Outcome(outcome)
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return out, nil
}
