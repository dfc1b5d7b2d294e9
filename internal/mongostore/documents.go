package mongostore

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

type weightsDoc struct {
	UserID    string             `bson:"_id"`
	Weights   map[string]float64 `bson:"weights"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

type predictionDoc struct {
	ID           string             `bson:"_id"`
	UserID       string             `bson:"user_id"`
	RiskScore    int                `bson:"risk_score"`
	Confidence   int                `bson:"confidence"`
	Reason       string             `bson:"reason"`
	Factors      map[string]float64 `bson:"factors"`
	DataPoints   int                `bson:"data_points"`
	MatchedEvent *pastEventDoc      `bson:"matched_event,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
}

type pastEventDoc struct {
	DaysSinceStart  int  `bson:"days_since_start"`
	WasAdverseEvent bool `bson:"was_adverse_event"`
}

type feedbackDoc struct {
	UserID       string             `bson:"user_id"`
	PredictionID string             `bson:"prediction_id"`
	Factors      map[string]float64 `bson:"factors"`
	Outcome      string             `bson:"outcome"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func encodeFactors(m map[risk.Factor]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for f, v := range m {
		out[string(f)] = v
	}
	return out
}

func decodeFactors(m map[string]float64) map[risk.Factor]float64 {
	out := make(map[risk.Factor]float64, len(m))
	for f, v := range m {
		out[risk.Factor(f)] = v
	}
	return out
}

func toPredictionDoc(p *risk.Prediction) predictionDoc {
	doc := predictionDoc{
		ID:         p.ID.String(),
		UserID:     p.UserID,
		RiskScore:  p.Result.RiskScore,
		Confidence: p.Result.Confidence,
		Reason:     p.Result.Reason,
		Factors:    encodeFactors(p.Result.Factors),
		DataPoints: p.Result.DataPoints,
		CreatedAt:  p.CreatedAt.UTC(),
	}
	if ev := p.Result.MatchedPastEvent; ev != nil {
		doc.MatchedEvent = &pastEventDoc{DaysSinceStart: ev.DaysSinceStart, WasAdverseEvent: ev.WasAdverseEvent}
	}
	return doc
}

func (d predictionDoc) toPrediction() (*risk.Prediction, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("parse prediction id: %w", err)
	}
	p := &risk.Prediction{
		ID:     id,
		UserID: d.UserID,
		Result: risk.Result{
			RiskScore:  d.RiskScore,
			Confidence: d.Confidence,
			Reason:     d.Reason,
			Factors:    decodeFactors(d.Factors),
			DataPoints: d.DataPoints,
		},
		CreatedAt: d.CreatedAt,
	}
	if d.MatchedEvent != nil {
		p.Result.MatchedPastEvent = &risk.PastEvent{
			DaysSinceStart:  d.MatchedEvent.DaysSinceStart,
			WasAdverseEvent: d.MatchedEvent.WasAdverseEvent,
		}
	}
	return p, nil
}
