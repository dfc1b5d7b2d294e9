// Package storetest checks a predictor.Store implementation against the
// persistence contract. Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/vigil/internal/predictor"
	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

// Run exercises s. Each subtest uses a fresh user ID so backends may share
// state between runs.
func Run(t *testing.T, s predictor.Store) {
	t.Helper()
	t.Run("weights round trip", func(t *testing.T) { testWeights(t, s) })
	t.Run("prediction round trip", func(t *testing.T) { testPredictions(t, s) })
	t.Run("feedback log", func(t *testing.T) { testFeedback(t, s) })
	t.Run("feedback once per prediction", func(t *testing.T) { testFeedbackOnce(t, s) })
}

func userID() string {
	return "storetest-" + uuid.New().String()[:8]
}

func testWeights(t *testing.T, s predictor.Store) {
	ctx := context.Background()
	user := userID()

	w, err := s.GetWeights(ctx, user)
	if err != nil {
		t.Fatalf("GetWeights on new user: %v", err)
	}
	if w != nil {
		t.Fatalf("expected nil weights for new user, got %v", w)
	}

	want := risk.DefaultWeights()
	want[risk.FactorEnergyDrop] = 23.75
	if err := s.SaveWeights(ctx, user, want); err != nil {
		t.Fatalf("SaveWeights: %v", err)
	}

	got, err := s.GetWeights(ctx, user)
	if err != nil {
		t.Fatalf("GetWeights: %v", err)
	}
	if got[risk.FactorEnergyDrop] != 23.75 || got[risk.FactorPurgePhase] != 15 {
		t.Errorf("unexpected weights %v", got)
	}

	// Upsert replaces.
	want[risk.FactorEnergyDrop] = 22.5625
	if err := s.SaveWeights(ctx, user, want); err != nil {
		t.Fatalf("SaveWeights (update): %v", err)
	}
	got, err = s.GetWeights(ctx, user)
	if err != nil {
		t.Fatalf("GetWeights after update: %v", err)
	}
	if got[risk.FactorEnergyDrop] != 22.5625 {
		t.Errorf("expected updated weight 22.5625, got %f", got[risk.FactorEnergyDrop])
	}

	if err := s.DeleteWeights(ctx, user); err != nil {
		t.Fatalf("DeleteWeights: %v", err)
	}
	got, err = s.GetWeights(ctx, user)
	if err != nil {
		t.Fatalf("GetWeights after delete: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil weights after delete, got %v", got)
	}
}

func testPredictions(t *testing.T, s predictor.Store) {
	ctx := context.Background()

	missing, err := s.GetPrediction(ctx, uuid.New())
	if err != nil {
		t.Fatalf("GetPrediction on missing id: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing prediction, got %+v", missing)
	}

	p := &risk.Prediction{
		ID:     uuid.New(),
		UserID: userID(),
		Result: risk.Result{
			RiskScore:  35,
			Confidence: 40,
			Reason:     "Similar to past setback at day 18 + In emotional purging phase",
			Factors: map[risk.Factor]float64{
				risk.FactorHistoricalPattern: 20,
				risk.FactorPurgePhase:        15,
			},
			DataPoints:       12,
			MatchedPastEvent: &risk.PastEvent{DaysSinceStart: 18, WasAdverseEvent: true},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if err := s.RecordPrediction(ctx, p); err != nil {
		t.Fatalf("RecordPrediction: %v", err)
	}

	got, err := s.GetPrediction(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPrediction: %v", err)
	}
	if got == nil {
		t.Fatal("expected prediction, got nil")
	}
	if got.UserID != p.UserID || got.Result.RiskScore != 35 || got.Result.Confidence != 40 {
		t.Errorf("unexpected prediction %+v", got)
	}
	if got.Result.Reason != p.Result.Reason {
		t.Errorf("expected reason %q, got %q", p.Result.Reason, got.Result.Reason)
	}
	if len(got.Result.Factors) != 2 || got.Result.Factors[risk.FactorPurgePhase] != 15 {
		t.Errorf("unexpected factors %v", got.Result.Factors)
	}
	if got.Result.DataPoints != 12 {
		t.Errorf("expected 12 data points, got %d", got.Result.DataPoints)
	}
	if got.Result.MatchedPastEvent == nil || got.Result.MatchedPastEvent.DaysSinceStart != 18 {
		t.Errorf("unexpected matched event %+v", got.Result.MatchedPastEvent)
	}
	if !got.CreatedAt.Equal(p.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", p.CreatedAt, got.CreatedAt)
	}
}

func testFeedback(t *testing.T, s predictor.Store) {
	ctx := context.Background()
	user := userID()
	now := time.Now().UTC().Truncate(time.Millisecond)

	// Feedback references real predictions in backends with foreign keys.
	record := func(at time.Time, outcome risk.Outcome) {
		t.Helper()
		p := &risk.Prediction{
			ID:        uuid.New(),
			UserID:    user,
			Result:    risk.Result{RiskScore: 10, Reason: "Weekend (less structure)", Factors: map[risk.Factor]float64{risk.FactorWeekend: 10}},
			CreatedAt: at,
		}
		if err := s.RecordPrediction(ctx, p); err != nil {
			t.Fatalf("RecordPrediction: %v", err)
		}
		fb := risk.Feedback{
			PredictionID:      p.ID,
			PredictionFactors: p.Result.Factors,
			Outcome:           outcome,
			Timestamp:         at,
		}
		if err := s.ApplyFeedback(ctx, user, fb, risk.DefaultWeights()); err != nil {
			t.Fatalf("ApplyFeedback: %v", err)
		}
	}

	record(now.AddDate(0, 0, -40), risk.OutcomeHelpful)
	record(now.AddDate(0, 0, -5), risk.OutcomeFalseAlarm)
	record(now.Add(-time.Hour), risk.OutcomeHelpful)

	all, err := s.ListFeedback(ctx, user, time.Time{})
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if !all[0].Timestamp.Before(all[2].Timestamp) {
		t.Errorf("expected oldest first, got %v then %v", all[0].Timestamp, all[2].Timestamp)
	}

	recent, err := s.ListFeedback(ctx, user, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("ListFeedback (window): %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records in window, got %d", len(recent))
	}
	if recent[0].Outcome != risk.OutcomeFalseAlarm || recent[1].Outcome != risk.OutcomeHelpful {
		t.Errorf("unexpected outcomes %q, %q", recent[0].Outcome, recent[1].Outcome)
	}
	if recent[0].PredictionFactors[risk.FactorWeekend] != 10 {
		t.Errorf("unexpected factors %v", recent[0].PredictionFactors)
	}

	other, err := s.ListFeedback(ctx, userID(), time.Time{})
	if err != nil {
		t.Fatalf("ListFeedback (other user): %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no feedback for another user, got %d", len(other))
	}
}

func testFeedbackOnce(t *testing.T, s predictor.Store) {
	ctx := context.Background()
	user := userID()
	now := time.Now().UTC().Truncate(time.Millisecond)

	p := &risk.Prediction{
		ID:        uuid.New(),
		UserID:    user,
		Result:    risk.Result{RiskScore: 20, Reason: "Evening hours (high-risk time)", Factors: map[risk.Factor]float64{risk.FactorEveningHours: 20}},
		CreatedAt: now,
	}
	if err := s.RecordPrediction(ctx, p); err != nil {
		t.Fatalf("RecordPrediction: %v", err)
	}
	fb := risk.Feedback{
		PredictionID:      p.ID,
		PredictionFactors: p.Result.Factors,
		Outcome:           risk.OutcomeHelpful,
		Timestamp:         now,
	}

	first := risk.DefaultWeights()
	first[risk.FactorEveningHours] = 21
	if err := s.ApplyFeedback(ctx, user, fb, first); err != nil {
		t.Fatalf("ApplyFeedback: %v", err)
	}
	got, err := s.GetWeights(ctx, user)
	if err != nil {
		t.Fatalf("GetWeights: %v", err)
	}
	if got[risk.FactorEveningHours] != 21 {
		t.Fatalf("expected weights saved with feedback, got %v", got)
	}

	second := risk.DefaultWeights()
	second[risk.FactorEveningHours] = 22.05
	fb.Timestamp = now.Add(time.Minute)
	err = s.ApplyFeedback(ctx, user, fb, second)
	if !errors.Is(err, risk.ErrFeedbackExists) {
		t.Fatalf("expected ErrFeedbackExists, got %v", err)
	}

	got, err = s.GetWeights(ctx, user)
	if err != nil {
		t.Fatalf("GetWeights after duplicate: %v", err)
	}
	if got[risk.FactorEveningHours] != 21 {
		t.Errorf("expected weights unchanged by duplicate, got %f", got[risk.FactorEveningHours])
	}
	all, err := s.ListFeedback(ctx, user, time.Time{})
	if err != nil {
		t.Fatalf("ListFeedback: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 feedback record, got %d", len(all))
	}
}
