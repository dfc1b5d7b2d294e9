package predictor

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/vigil/internal/hermes"
	"github.com/MikeSquared-Agency/vigil/internal/slack"
)

// HandleFeedbackEvent is the NATS handler for vigil.feedback.submitted.
func (s *Service) HandleFeedbackEvent(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.FeedbackEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		s.logger.Error("failed to parse feedback event", "subject", subject, "error", err)
		return
	}

	predictionID, err := uuid.Parse(evt.PredictionID)
	if err != nil {
		s.logger.Error("invalid prediction id", "prediction_id", evt.PredictionID, "error", err)
		return
	}

	if _, err := s.SubmitFeedback(ctx, evt.UserID, predictionID, evt.Outcome); err != nil {
		s.logger.Error("feedback event rejected",
			"user_id", evt.UserID,
			"prediction_id", evt.PredictionID,
			"outcome", evt.Outcome,
			"error", err,
		)
	}
}

// HandleReaction turns reactions on alert messages into feedback.
// Reactions on messages we did not post are ignored.
func (s *Service) HandleReaction(subject string, data []byte) {
	ctx := context.Background()

	evt, err := slack.ParseReactionEvent(data, s.logger)
	if err != nil {
		s.logger.Error("failed to parse reaction", "error", err)
		return
	}

	outcome, ok := slack.ParseReaction(evt.Reaction).Outcome()
	if !ok {
		return // not a feedback reaction
	}

	s.mu.Lock()
	alert, found := s.pendingAlerts[evt.MessageTS]
	if found {
		delete(s.pendingAlerts, evt.MessageTS)
	}
	s.mu.Unlock()
	if !found {
		return
	}

	s.logger.Info("processing alert reaction",
		"reaction", evt.Reaction,
		"outcome", string(outcome),
		"prediction_id", alert.PredictionID,
	)

	if _, err := s.SubmitFeedback(ctx, alert.UserID, alert.PredictionID, string(outcome)); err != nil {
		s.logger.Error("reaction feedback failed", "prediction_id", alert.PredictionID, "error", err)
	}
}
