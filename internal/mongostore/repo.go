package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

func (s *Store) GetWeights(ctx context.Context, userID string) (risk.Weights, error) {
	var doc weightsDoc
	err := s.weights.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find weights: %w", err)
	}
	return risk.Weights(decodeFactors(doc.Weights)), nil
}

func (s *Store) SaveWeights(ctx context.Context, userID string, w risk.Weights) error {
	doc := weightsDoc{UserID: userID, Weights: encodeFactors(w), UpdatedAt: time.Now().UTC()}
	_, err := s.weights.ReplaceOne(ctx, bson.M{"_id": userID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert weights: %w", err)
	}
	return nil
}

func (s *Store) DeleteWeights(ctx context.Context, userID string) error {
	if _, err := s.weights.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("delete weights: %w", err)
	}
	return nil
}

func (s *Store) RecordPrediction(ctx context.Context, p *risk.Prediction) error {
	if _, err := s.predictions.InsertOne(ctx, toPredictionDoc(p)); err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *Store) GetPrediction(ctx context.Context, id uuid.UUID) (*risk.Prediction, error) {
	var doc predictionDoc
	err := s.predictions.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find prediction: %w", err)
	}
	return doc.toPrediction()
}

// ApplyFeedback inserts the feedback document, then upserts the weights. If
// the weights write fails the feedback document is removed again, so a retry
// is not rejected as a duplicate. Multi-document transactions need a replica
// set, which a standalone deployment does not have.
func (s *Store) ApplyFeedback(ctx context.Context, userID string, fb risk.Feedback, w risk.Weights) error {
	predictionID := fb.PredictionID.String()
	n, err := s.feedback.CountDocuments(ctx, bson.M{"prediction_id": predictionID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count feedback: %w", err)
	}
	if n > 0 {
		return risk.ErrFeedbackExists
	}

	doc := feedbackDoc{
		UserID:       userID,
		PredictionID: predictionID,
		Factors:      encodeFactors(fb.PredictionFactors),
		Outcome:      string(fb.Outcome),
		CreatedAt:    fb.Timestamp.UTC(),
	}
	res, err := s.feedback.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return risk.ErrFeedbackExists
	}
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}

	if err := s.SaveWeights(ctx, userID, w); err != nil {
		if _, delErr := s.feedback.DeleteOne(ctx, bson.M{"_id": res.InsertedID}); delErr != nil {
			return errors.Join(err, fmt.Errorf("remove feedback: %w", delErr))
		}
		return err
	}
	return nil
}

func (s *Store) ListFeedback(ctx context.Context, userID string, since time.Time) ([]risk.Feedback, error) {
	filter := bson.M{
		"user_id":    userID,
		"created_at": bson.M{"$gte": since.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := s.feedback.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find feedback: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []feedbackDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode feedback: %w", err)
	}

	out := make([]risk.Feedback, 0, len(docs))
	for _, d := range docs {
		predictionID, err := uuid.Parse(d.PredictionID)
		if err != nil {
			return nil, fmt.Errorf("parse prediction id: %w", err)
		}
		out = append(out, risk.Feedback{
			PredictionID:      predictionID,
			PredictionFactors: decodeFactors(d.Factors),
			Outcome:           risk.Outcome(d.Outcome),
			Timestamp:         d.CreatedAt,
		})
	}
	return out, nil
}
