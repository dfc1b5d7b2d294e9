// Package predictor runs risk scoring and weight adaptation for individual
// users on top of a persistence backend, and dispatches alerts when a score
// crosses the configured threshold.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/vigil/internal/hermes"
	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

var (
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrUserMismatch       = errors.New("prediction belongs to another user")
)

// DefaultAccuracyWindowDays applies when callers pass a non-positive window.
const DefaultAccuracyWindowDays = 30

// Store persists weights, predictions and the feedback log per user.
// Lookups that find nothing return (nil, nil).
type Store interface {
	GetWeights(ctx context.Context, userID string) (risk.Weights, error)
	SaveWeights(ctx context.Context, userID string, w risk.Weights) error
	DeleteWeights(ctx context.Context, userID string) error
	RecordPrediction(ctx context.Context, p *risk.Prediction) error
	GetPrediction(ctx context.Context, id uuid.UUID) (*risk.Prediction, error)
	// ApplyFeedback records fb and stores w as the user's weights in one
	// step: either both persist or neither does. It returns
	// risk.ErrFeedbackExists if the prediction already has feedback.
	ApplyFeedback(ctx context.Context, userID string, fb risk.Feedback, w risk.Weights) error
	ListFeedback(ctx context.Context, userID string, since time.Time) ([]risk.Feedback, error)
}

// WeightCache fronts the store for weight reads. A miss returns (nil, nil).
type WeightCache interface {
	Get(ctx context.Context, userID string) (risk.Weights, error)
	Set(ctx context.Context, userID string, w risk.Weights) error
	Invalidate(ctx context.Context, userID string) error
}

// Publisher emits events on the message bus.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier delivers an alert to the user and returns a message reference
// that later reactions can point at.
type Notifier interface {
	PostAlert(ctx context.Context, p *risk.Prediction, message string) (string, error)
}

// Coach writes the alert copy shown to the user.
type Coach interface {
	Compose(ctx context.Context, res risk.Result) string
}

// Options carries the optional collaborators. Nil fields are skipped.
type Options struct {
	Cache          WeightCache
	Publisher      Publisher
	Notifier       Notifier
	Coach          Coach
	AlertThreshold int
	Now            func() time.Time
}

type Service struct {
	store     Store
	policy    risk.Policy
	cache     WeightCache
	publisher Publisher
	notifier  Notifier
	coach     Coach
	threshold int
	now       func() time.Time
	logger    *slog.Logger

	mu            sync.Mutex
	pendingAlerts map[string]pendingAlert // keyed by notifier message ref
}

type pendingAlert struct {
	UserID       string
	PredictionID uuid.UUID
}

func New(s Store, policy risk.Policy, opts Options, logger *slog.Logger) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:         s,
		policy:        policy,
		cache:         opts.Cache,
		publisher:     opts.Publisher,
		notifier:      opts.Notifier,
		coach:         opts.Coach,
		threshold:     opts.AlertThreshold,
		now:           now,
		logger:        logger,
		pendingAlerts: make(map[string]pendingAlert),
	}
}

// Policy returns the calibration the service scores with.
func (s *Service) Policy() risk.Policy {
	return s.policy
}

// Predict scores a snapshot against the user's current weights and records
// the prediction. Out-of-range snapshots are rejected with
// risk.ErrInvalidSnapshot. A zero EvaluationTime is filled with the current
// time.
func (s *Service) Predict(ctx context.Context, userID string, snap risk.Snapshot) (*risk.Prediction, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	if snap.EvaluationTime.IsZero() {
		snap.EvaluationTime = s.now()
	}

	w, err := s.loadWeights(ctx, userID)
	if err != nil {
		return nil, err
	}

	pred := &risk.Prediction{
		ID:        uuid.New(),
		UserID:    userID,
		Result:    risk.Score(snap, w, s.policy),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.RecordPrediction(ctx, pred); err != nil {
		return nil, fmt.Errorf("record prediction: %w", err)
	}

	s.logger.Info("risk scored",
		"user_id", userID,
		"prediction_id", pred.ID,
		"risk_score", pred.Result.RiskScore,
		"confidence", pred.Result.Confidence,
		"factors", len(pred.Result.Factors),
	)

	if s.threshold > 0 && pred.Result.RiskScore >= s.threshold {
		s.dispatchAlert(ctx, pred)
	}
	return pred, nil
}

// dispatchAlert publishes and posts an alert. Failures are logged only; the
// prediction itself already succeeded.
func (s *Service) dispatchAlert(ctx context.Context, pred *risk.Prediction) {
	message := pred.Result.Reason
	if s.coach != nil {
		message = s.coach.Compose(ctx, pred.Result)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(hermes.SubjectRiskAlert, hermes.RiskAlert{
			UserID:       pred.UserID,
			PredictionID: pred.ID.String(),
			RiskScore:    pred.Result.RiskScore,
			Confidence:   pred.Result.Confidence,
			Reason:       pred.Result.Reason,
			Message:      message,
			Timestamp:    pred.CreatedAt,
		}); err != nil {
			s.logger.Error("failed to publish risk alert", "prediction_id", pred.ID, "error", err)
		}
	}

	if s.notifier != nil {
		ref, err := s.notifier.PostAlert(ctx, pred, message)
		if err != nil {
			s.logger.Error("failed to post risk alert", "prediction_id", pred.ID, "error", err)
			return
		}
		s.mu.Lock()
		s.pendingAlerts[ref] = pendingAlert{UserID: pred.UserID, PredictionID: pred.ID}
		s.mu.Unlock()
	}

	s.logger.Info("risk alert dispatched", "user_id", pred.UserID, "prediction_id", pred.ID, "risk_score", pred.Result.RiskScore)
}

// SubmitFeedback records whether a prediction was accurate and nudges the
// weights of the factors that fired in it. Returns the adapted weights, or
// risk.ErrFeedbackExists if the prediction was already judged.
func (s *Service) SubmitFeedback(ctx context.Context, userID string, predictionID uuid.UUID, outcome string) (risk.Weights, error) {
	o, err := risk.ParseOutcome(outcome)
	if err != nil {
		return nil, err
	}

	pred, err := s.store.GetPrediction(ctx, predictionID)
	if err != nil {
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	if pred == nil {
		return nil, ErrPredictionNotFound
	}
	if pred.UserID != userID {
		return nil, ErrUserMismatch
	}

	fb := risk.Feedback{
		PredictionID:      pred.ID,
		PredictionFactors: pred.Result.Factors,
		Outcome:           o,
		Timestamp:         s.now().UTC(),
	}

	current, err := s.loadWeights(ctx, userID)
	if err != nil {
		return nil, err
	}
	adapted, err := risk.Adapt(current, fb, s.policy)
	if err != nil {
		return nil, err
	}
	if err := s.store.ApplyFeedback(ctx, userID, fb, adapted); err != nil {
		if errors.Is(err, risk.ErrFeedbackExists) {
			return nil, err
		}
		return nil, fmt.Errorf("apply feedback: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, adapted); err != nil {
			s.logger.Warn("failed to refresh weight cache", "user_id", userID, "error", err)
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(hermes.SubjectWeightsAdapted, map[string]any{
			"user_id":       userID,
			"prediction_id": pred.ID.String(),
			"outcome":       string(o),
			"weights":       adapted,
		}); err != nil {
			s.logger.Error("failed to publish weights adapted", "error", err)
		}
	}

	s.logger.Info("feedback applied",
		"user_id", userID,
		"prediction_id", pred.ID,
		"outcome", string(o),
		"factors", len(fb.PredictionFactors),
	)
	return adapted, nil
}

// Accuracy reports the helpful share of the user's feedback over the
// trailing window.
func (s *Service) Accuracy(ctx context.Context, userID string, windowDays int) (risk.AccuracyReport, error) {
	if windowDays <= 0 {
		windowDays = DefaultAccuracyWindowDays
	}
	now := s.now()
	log, err := s.store.ListFeedback(ctx, userID, risk.WindowStart(now, windowDays))
	if err != nil {
		return risk.AccuracyReport{}, fmt.Errorf("list feedback: %w", err)
	}
	return risk.Accuracy(log, windowDays, now), nil
}

// Weights returns the user's current weights.
func (s *Service) Weights(ctx context.Context, userID string) (risk.Weights, error) {
	return s.loadWeights(ctx, userID)
}

// ResetWeights discards the user's adapted weights and returns the defaults.
func (s *Service) ResetWeights(ctx context.Context, userID string) (risk.Weights, error) {
	if err := s.store.DeleteWeights(ctx, userID); err != nil {
		return nil, fmt.Errorf("delete weights: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, userID); err != nil {
			s.logger.Warn("failed to invalidate weight cache", "user_id", userID, "error", err)
		}
	}
	s.logger.Info("weights reset", "user_id", userID)
	return risk.DefaultWeights().Normalize(s.policy), nil
}

func (s *Service) loadWeights(ctx context.Context, userID string) (risk.Weights, error) {
	if s.cache != nil {
		w, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("weight cache read failed", "user_id", userID, "error", err)
		} else if w != nil {
			return w.Normalize(s.policy), nil
		}
	}

	w, err := s.store.GetWeights(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get weights: %w", err)
	}
	w = w.Normalize(s.policy)

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, w); err != nil {
			s.logger.Warn("weight cache write failed", "user_id", userID, "error", err)
		}
	}
	return w, nil
}
