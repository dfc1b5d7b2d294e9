package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/vigil/internal/predictor"
	"github.com/MikeSquared-Agency/vigil/internal/risk"
	"github.com/MikeSquared-Agency/vigil/internal/sqlitestore"
)

var saturdayNight = time.Date(2026, 10, 17, 22, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	db, err := sqlitestore.Open(filepath.Join(t.TempDir(), "vigil.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := predictor.New(db, risk.DefaultPolicy(), predictor.Options{
		Now: func() time.Time { return saturdayNight },
	}, discardLogger())
	srv := NewServer(8760, token, svc, discardLogger())
	srv.now = func() time.Time { return saturdayNight }
	return srv
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func weekendSnapshot() map[string]any {
	return map[string]any{
		"current_streak_days": 20,
		"recent_behavior_log": []map[string]any{
			{"timestamp": "2026-10-15T20:00:00Z", "energy_level": 8},
			{"timestamp": "2026-10-16T20:00:00Z", "energy_level": 8},
			{"timestamp": "2026-10-17T20:00:00Z", "energy_level": 8},
		},
		"evaluation_time": "2026-10-17T22:00:00Z",
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(t, srv, "GET", "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	body := decode[map[string]string](t, w)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(t, srv, "GET", "/api/v1/vigil/status", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	body := decode[map[string]any](t, w)
	if body["agent"] != "vigil" {
		t.Errorf("expected agent vigil, got %v", body["agent"])
	}
	if factors, _ := body["factors"].([]any); len(factors) != len(risk.AllFactors) {
		t.Errorf("expected %d factors, got %v", len(risk.AllFactors), body["factors"])
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	if w := do(t, srv, "GET", "/nonexistent", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestCreatePrediction(t *testing.T) {
	srv := newTestServer(t, "")

	w := do(t, srv, "POST", "/api/v1/users/u1/predictions", weekendSnapshot())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	pred := decode[risk.Prediction](t, w)
	if pred.UserID != "u1" || pred.ID == uuid.Nil {
		t.Errorf("unexpected prediction identity %+v", pred)
	}
	if pred.Result.RiskScore != 45 {
		t.Errorf("expected risk score 45, got %d", pred.Result.RiskScore)
	}
	if pred.Result.Reason != "Evening hours (higher risk time) + Weekend (less structure) + In emotional purging phase" {
		t.Errorf("unexpected reason %q", pred.Result.Reason)
	}
}

func TestCreatePrediction_TimeZone(t *testing.T) {
	srv := newTestServer(t, "")

	// 22:00 UTC is 18:00 in New York, before the evening window.
	w := do(t, srv, "POST", "/api/v1/users/u1/predictions?tz=America/New_York", weekendSnapshot())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	pred := decode[risk.Prediction](t, w)
	if pred.Result.RiskScore != 25 {
		t.Errorf("expected risk score 25, got %d", pred.Result.RiskScore)
	}
	if _, ok := pred.Result.Factors[risk.FactorEveningHours]; ok {
		t.Error("evening hours should not fire at 18:00 local")
	}
}

func TestCreatePrediction_DefaultsEvaluationTime(t *testing.T) {
	srv := newTestServer(t, "")
	snap := weekendSnapshot()
	delete(snap, "evaluation_time")

	w := do(t, srv, "POST", "/api/v1/users/u1/predictions", snap)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if pred := decode[risk.Prediction](t, w); pred.Result.RiskScore != 45 {
		t.Errorf("expected risk score 45, got %d", pred.Result.RiskScore)
	}
}

func TestCreatePrediction_BadRequests(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name string
		path string
		body any
	}{
		{"invalid json", "/api/v1/users/u1/predictions", "{not json"},
		{"unknown tz", "/api/v1/users/u1/predictions?tz=Mars/Olympus", weekendSnapshot()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, srv, "POST", tt.path, tt.body); w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestCreatePrediction_InvalidSnapshot(t *testing.T) {
	srv := newTestServer(t, "")

	tests := []struct {
		name  string
		patch map[string]any
	}{
		{"negative streak", map[string]any{"current_streak_days": -40}},
		{"energy off scale", map[string]any{"recent_behavior_log": []map[string]any{
			{"timestamp": "2026-10-15T20:00:00Z", "energy_level": 500},
			{"timestamp": "2026-10-16T20:00:00Z", "energy_level": 0},
			{"timestamp": "2026-10-17T20:00:00Z", "energy_level": -90},
		}}},
		{"anxiety off scale", map[string]any{"emotional_state": map[string]any{"anxiety": 99, "mood_stability": 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := weekendSnapshot()
			for k, v := range tt.patch {
				snap[k] = v
			}
			w := do(t, srv, "POST", "/api/v1/users/u1/predictions", snap)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if body := decode[map[string]string](t, w); body["error"] == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestSubmitFeedback(t *testing.T) {
	srv := newTestServer(t, "")
	pred := decode[risk.Prediction](t, do(t, srv, "POST", "/api/v1/users/u1/predictions", weekendSnapshot()))

	w := do(t, srv, "POST", "/api/v1/users/u1/feedback", feedbackRequest{
		PredictionID: pred.ID.String(),
		Outcome:      "false_alarm",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[weightsResponse](t, w)
	if resp.Weights[risk.FactorWeekend] != 9.5 {
		t.Errorf("expected weekend weight 9.5, got %v", resp.Weights)
	}
	if resp.Weights[risk.FactorEnergyDrop] != 25 {
		t.Errorf("expected untouched energy weight 25, got %f", resp.Weights[risk.FactorEnergyDrop])
	}

	// Weights persist across requests.
	got := decode[weightsResponse](t, do(t, srv, "GET", "/api/v1/users/u1/weights", nil))
	if got.Weights[risk.FactorWeekend] != 9.5 {
		t.Errorf("expected persisted weekend weight 9.5, got %v", got.Weights)
	}
}

func TestSubmitFeedback_Errors(t *testing.T) {
	srv := newTestServer(t, "")
	pred := decode[risk.Prediction](t, do(t, srv, "POST", "/api/v1/users/u1/predictions", weekendSnapshot()))

	tests := []struct {
		name string
		user string
		body any
		want int
	}{
		{"invalid json", "u1", "nope", http.StatusBadRequest},
		{"bad prediction id", "u1", feedbackRequest{PredictionID: "abc", Outcome: "helpful"}, http.StatusBadRequest},
		{"invalid outcome", "u1", feedbackRequest{PredictionID: pred.ID.String(), Outcome: "maybe"}, http.StatusBadRequest},
		{"unknown prediction", "u1", feedbackRequest{PredictionID: uuid.NewString(), Outcome: "helpful"}, http.StatusNotFound},
		{"other user", "u2", feedbackRequest{PredictionID: pred.ID.String(), Outcome: "helpful"}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, srv, "POST", "/api/v1/users/"+tt.user+"/feedback", tt.body)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
			if body := decode[map[string]string](t, w); body["error"] == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestSubmitFeedback_Duplicate(t *testing.T) {
	srv := newTestServer(t, "")
	pred := decode[risk.Prediction](t, do(t, srv, "POST", "/api/v1/users/u1/predictions", weekendSnapshot()))
	body := feedbackRequest{PredictionID: pred.ID.String(), Outcome: "false_alarm"}

	if w := do(t, srv, "POST", "/api/v1/users/u1/feedback", body); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for i := 0; i < 3; i++ {
		w := do(t, srv, "POST", "/api/v1/users/u1/feedback", body)
		if w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
		}
	}

	got := decode[weightsResponse](t, do(t, srv, "GET", "/api/v1/users/u1/weights", nil))
	if got.Weights[risk.FactorWeekend] != 9.5 {
		t.Errorf("expected weekend weight 9.5 after one adaptation, got %v", got.Weights)
	}
	rep := decode[risk.AccuracyReport](t, do(t, srv, "GET", "/api/v1/users/u1/accuracy", nil))
	if rep.TotalPredictions != 1 {
		t.Errorf("expected 1 judged prediction, got %d", rep.TotalPredictions)
	}
}

func TestAccuracyEndpoint(t *testing.T) {
	srv := newTestServer(t, "")
	for _, outcome := range []string{"helpful", "helpful", "false_alarm", "helpful"} {
		pred := decode[risk.Prediction](t, do(t, srv, "POST", "/api/v1/users/u1/predictions", weekendSnapshot()))
		do(t, srv, "POST", "/api/v1/users/u1/feedback", feedbackRequest{PredictionID: pred.ID.String(), Outcome: outcome})
	}

	w := do(t, srv, "GET", "/api/v1/users/u1/accuracy?window_days=7", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	rep := decode[risk.AccuracyReport](t, w)
	if rep.Accuracy != 75 || rep.TotalPredictions != 4 || rep.WindowDays != 7 {
		t.Errorf("unexpected report %+v", rep)
	}

	if w := do(t, srv, "GET", "/api/v1/users/u1/accuracy?window_days=zero", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad window, got %d", w.Code)
	}

	empty := decode[risk.AccuracyReport](t, do(t, srv, "GET", "/api/v1/users/nobody/accuracy", nil))
	if empty.Accuracy != 0 || empty.TotalPredictions != 0 || empty.WindowDays != 30 {
		t.Errorf("unexpected empty report %+v", empty)
	}
}

func TestResetWeights(t *testing.T) {
	srv := newTestServer(t, "")
	pred := decode[risk.Prediction](t, do(t, srv, "POST", "/api/v1/users/u1/predictions", weekendSnapshot()))
	do(t, srv, "POST", "/api/v1/users/u1/feedback", feedbackRequest{PredictionID: pred.ID.String(), Outcome: "helpful"})

	w := do(t, srv, "DELETE", "/api/v1/users/u1/weights", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[weightsResponse](t, w)
	for f, v := range risk.DefaultWeights() {
		if resp.Weights[f] != v {
			t.Errorf("%s: expected default %f, got %f", f, v, resp.Weights[f])
		}
	}
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t, "s3cret")

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic s3cret", http.StatusUnauthorized},
		{"valid", "Bearer s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/v1/users/u1/weights", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			srv.router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}

	// Health stays open.
	if w := do(t, srv, "GET", "/health", nil); w.Code != http.StatusOK {
		t.Errorf("expected open health endpoint, got %d", w.Code)
	}
}
