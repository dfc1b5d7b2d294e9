package sqlitestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

// ApplyFeedback inserts fb and upserts w inside one transaction.
func (s *Store) ApplyFeedback(ctx context.Context, userID string, fb risk.Feedback, w risk.Weights) error {
	factors, err := json.Marshal(fb.PredictionFactors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin feedback tx: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM risk_feedback WHERE prediction_id = ?)`,
		fb.PredictionID.String(),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check feedback: %w", err)
	}
	if exists {
		return risk.ErrFeedbackExists
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO risk_feedback (user_id, prediction_id, factors, outcome, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		userID, fb.PredictionID.String(), string(factors), string(fb.Outcome), formatTime(fb.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertWeightsSQL, userID, string(raw), formatTime(time.Now())); err != nil {
		return fmt.Errorf("upsert weights: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit feedback tx: %w", err)
	}
	return nil
}

// ListFeedback returns records at or after since, oldest first.
func (s *Store) ListFeedback(ctx context.Context, userID string, since time.Time) ([]risk.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prediction_id, factors, outcome, created_at
		FROM risk_feedback
		WHERE user_id = ? AND created_at >= ?
		ORDER BY created_at ASC, id ASC`,
		userID, formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}
	defer rows.Close()

	var out []risk.Feedback
	for rows.Next() {
		var predictionID, factors, outcome, createdAt string
		if err := rows.Scan(&predictionID, &factors, &outcome, &createdAt); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}

		fb := risk.Feedback{Outcome: risk.Outcome(outcome)}
		if fb.PredictionID, err = uuid.Parse(predictionID); err != nil {
			return nil, fmt.Errorf("parse prediction id: %w", err)
		}
		if fb.Timestamp, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(factors), &fb.PredictionFactors); err != nil {
			return nil, fmt.Errorf("decode factors: %w", err)
		}
		out = append(out, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return out, nil
}
