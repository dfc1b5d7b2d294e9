//go:build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/MikeSquared-Agency/vigil/internal/storetest"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM risk_feedback WHERE user_id LIKE 'storetest-%'")
		s.pool.Exec(ctx, "DELETE FROM risk_predictions WHERE user_id LIKE 'storetest-%'")
		s.pool.Exec(ctx, "DELETE FROM risk_weights WHERE user_id LIKE 'storetest-%'")
		s.Close()
	})
	return s
}

func TestIntegration_StoreContract(t *testing.T) {
	storetest.Run(t, setupTestStore(t))
}
