package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

const upsertWeightsSQL = `
	INSERT INTO risk_weights (user_id, weights, updated_at)
	VALUES ($1, $2, now())
	ON CONFLICT (user_id)
	DO UPDATE SET
		weights = $2,
		updated_at = now()`

// GetWeights fetches a user's adapted weights. Returns nil if the user has
// none yet.
func (s *Store) GetWeights(ctx context.Context, userID string) (risk.Weights, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT weights FROM risk_weights WHERE user_id = $1`, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select weights: %w", err)
	}

	var w risk.Weights
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode weights: %w", err)
	}
	return w, nil
}

// SaveWeights creates or replaces a user's weights. Concurrent writers are
// last-write-wins.
func (s *Store) SaveWeights(ctx context.Context, userID string, w risk.Weights) error {
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	_, err = s.pool.Exec(ctx, upsertWeightsSQL, userID, raw)
	if err != nil {
		return fmt.Errorf("upsert weights: %w", err)
	}
	return nil
}

// DeleteWeights drops a user's adapted weights so defaults apply again.
func (s *Store) DeleteWeights(ctx context.Context, userID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM risk_weights WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete weights: %w", err)
	}
	return nil
}
