package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/vigil/internal/predictor"
	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

type Server struct {
	router *chi.Mux
	http   *http.Server
	svc    *predictor.Service
	now    func() time.Time
	logger *slog.Logger
}

func NewServer(port int, apiToken string, svc *predictor.Service, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		svc:    svc,
		now:    time.Now,
		logger: logger,
	}
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/vigil/status", s.status)

	router.Route("/api/v1/users/{userID}", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Post("/predictions", s.createPrediction)
		r.Post("/feedback", s.submitFeedback)
		r.Get("/accuracy", s.accuracy)
		r.Get("/weights", s.getWeights)
		r.Delete("/weights", s.resetWeights)
	})

	return s
}

func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// BearerAuthMiddleware rejects requests without the expected token. An empty
// token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || got != token {
				writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":   "vigil",
		"status":  "active",
		"factors": risk.AllFactors,
		"policy":  s.svc.Policy(),
	})
}

func (s *Server) createPrediction(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var snap risk.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if tz := r.URL.Query().Get("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid tz: %v", err))
			return
		}
		if snap.EvaluationTime.IsZero() {
			snap.EvaluationTime = s.now()
		}
		snap.EvaluationTime = snap.EvaluationTime.In(loc)
	}

	pred, err := s.svc.Predict(r.Context(), userID, snap)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pred)
}

type feedbackRequest struct {
	PredictionID string `json:"prediction_id"`
	Outcome      string `json:"outcome"`
}

type weightsResponse struct {
	UserID  string       `json:"user_id"`
	Weights risk.Weights `json:"weights"`
}

func (s *Server) submitFeedback(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}
	predictionID, err := uuid.Parse(req.PredictionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid prediction_id")
		return
	}

	weights, err := s.svc.SubmitFeedback(r.Context(), userID, predictionID, req.Outcome)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weightsResponse{UserID: userID, Weights: weights})
}

func (s *Server) accuracy(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	window := predictor.DefaultAccuracyWindowDays
	if raw := r.URL.Query().Get("window_days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "window_days must be a positive integer")
			return
		}
		window = n
	}

	rep, err := s.svc.Accuracy(r.Context(), userID, window)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) getWeights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	weights, err := s.svc.Weights(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weightsResponse{UserID: userID, Weights: weights})
}

func (s *Server) resetWeights(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	weights, err := s.svc.ResetWeights(r.Context(), userID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, weightsResponse{UserID: userID, Weights: weights})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, risk.ErrInvalidOutcome), errors.Is(err, risk.ErrInvalidSnapshot):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, risk.ErrFeedbackExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, predictor.ErrPredictionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, predictor.ErrUserMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
