package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

const upsertWeightsSQL = `
	INSERT INTO risk_weights (user_id, weights, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET weights = excluded.weights, updated_at = excluded.updated_at`

// GetWeights returns nil if the user has no adapted weights.
func (s *Store) GetWeights(ctx context.Context, userID string) (risk.Weights, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT weights FROM risk_weights WHERE user_id = ?`, userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select weights: %w", err)
	}

	var w risk.Weights
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	return w, nil
}

func (s *Store) SaveWeights(ctx context.Context, userID string, w risk.Weights) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	_, err = s.db.ExecContext(ctx, upsertWeightsSQL, userID, string(raw), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("upsert weights: %w", err)
	}
	return nil
}

func (s *Store) DeleteWeights(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM risk_weights WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("delete weights: %w", err)
	}
	return nil
}
