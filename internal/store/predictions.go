package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

// RecordPrediction stores a scored prediction so feedback can reference it.
func (s *Store) RecordPrediction(ctx context.Context, p *risk.Prediction) error {
	factors, err := json.Marshal(p.Result.Factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	var matched []byte
	if p.Result.MatchedPastEvent != nil {
		if matched, err = json.Marshal(p.Result.MatchedPastEvent); err != nil {
			return fmt.Errorf("encode matched event: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO risk_predictions (id, user_id, risk_score, confidence, reason, factors, data_points, matched_event, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.UserID, p.Result.RiskScore, p.Result.Confidence, p.Result.Reason,
		factors, p.Result.DataPoints, matched, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// GetPrediction fetches a prediction by ID. Returns nil if it does not exist.
func (s *Store) GetPrediction(ctx context.Context, id uuid.UUID) (*risk.Prediction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, risk_score, confidence, reason, factors, data_points, matched_event, created_at
		FROM risk_predictions WHERE id = $1`, id)

	var p risk.Prediction
	var factors, matched []byte
	err := row.Scan(&p.ID, &p.UserID, &p.Result.RiskScore, &p.Result.Confidence, &p.Result.Reason,
		&factors, &p.Result.DataPoints, &matched, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select prediction: %w", err)
	}

	if err := json.Unmarshal(factors, &p.Result.Factors); err != nil {
		return nil, fmt.Errorf("decode factors: %w", err)
	}
	if len(matched) > 0 {
		var ev risk.PastEvent
		if err := json.Unmarshal(matched, &ev); err != nil {
			return nil, fmt.Errorf("decode matched event: %w", err)
		}
		p.Result.MatchedPastEvent = &ev
	}
	return &p, nil
}
