package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

func (s *Store) RecordPrediction(ctx context.Context, p *risk.Prediction) error {
	factors, err := json.Marshal(p.Result.Factors)
	if err != nil {
		return fmt.Errorf("encode factors: %w", err)
	}
	var matched sql.NullString
	if p.Result.MatchedPastEvent != nil {
		raw, err := json.Marshal(p.Result.MatchedPastEvent)
		if err != nil {
			return fmt.Errorf("encode matched event: %w", err)
		}
		matched = sql.NullString{String: string(raw), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_predictions (id, user_id, risk_score, confidence, reason, factors, data_points, matched_event, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.UserID, p.Result.RiskScore, p.Result.Confidence, p.Result.Reason,
		string(factors), p.Result.DataPoints, matched, formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// GetPrediction returns nil if no prediction has the given ID.
func (s *Store) GetPrediction(ctx context.Context, id uuid.UUID) (*risk.Prediction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, risk_score, confidence, reason, factors, data_points, matched_event, created_at
		FROM risk_predictions WHERE id = ?`, id.String())

	var (
		p              risk.Prediction
		rawID, factors string
		matched        sql.NullString
		createdAt      string
	)
	err := row.Scan(&rawID, &p.UserID, &p.Result.RiskScore, &p.Result.Confidence, &p.Result.Reason,
		&factors, &p.Result.DataPoints, &matched, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select prediction: %w", err)
	}

	if p.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("parse prediction id: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(factors), &p.Result.Factors); err != nil {
		return nil, fmt.Errorf("decode factors: %w", err)
	}
	if matched.Valid {
		var ev risk.PastEvent
		if err := json.Unmarshal([]byte(matched.String), &ev); err != nil {
			return nil, fmt.Errorf("decode matched event: %w", err)
		}
		p.Result.MatchedPastEvent = &ev
	}
	return &p, nil
}
