// Package mongostore persists weights, predictions and feedback in MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	weightsCollection     = "risk_weights"
	predictionsCollection = "risk_predictions"
	feedbackCollection    = "risk_feedback"
)

type Store struct {
	client      *mongo.Client
	weights     *mongo.Collection
	predictions *mongo.Collection
	feedback    *mongo.Collection
}

// Connect dials uri and pings the server before returning.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return New(client, database), nil
}

// New wraps an already connected client.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:      client,
		weights:     db.Collection(weightsCollection),
		predictions: db.Collection(predictionsCollection),
		feedback:    db.Collection(feedbackCollection),
	}
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	byUserTime := bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}
	if _, err := s.predictions.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: byUserTime}); err != nil {
		return fmt.Errorf("create prediction index: %w", err)
	}
	if _, err := s.feedback.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: byUserTime}); err != nil {
		return fmt.Errorf("create feedback index: %w", err)
	}
	onePerPrediction := mongo.IndexModel{
		Keys:    bson.D{{Key: "prediction_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := s.feedback.Indexes().CreateOne(ctx, onePerPrediction); err != nil {
		return fmt.Errorf("create feedback prediction index: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
