// Package risk scores the likelihood of an imminent setback from recent
// behavioral telemetry and adapts its factor weights from outcome feedback.
//
// Everything in this package is pure: no I/O, no wall clock. Callers supply
// the evaluation time on the Snapshot and persist Weights and Feedback
// themselves.
package risk

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Factor names one independent behavioral signal.
type Factor string

const (
	FactorEnergyDrop             Factor = "energyDrop"
	FactorEveningHours           Factor = "eveningHours"
	FactorWeekend                Factor = "weekend"
	FactorEmotionalVulnerability Factor = "emotionalVulnerability"
	FactorHistoricalPattern      Factor = "historicalPattern"
	FactorPurgePhase             Factor = "purgePhase"
)

// AllFactors lists every factor in evaluation order. Reasons are joined in
// this order.
var AllFactors = []Factor{
	FactorEnergyDrop,
	FactorEveningHours,
	FactorWeekend,
	FactorEmotionalVulnerability,
	FactorHistoricalPattern,
	FactorPurgePhase,
}

// Valid reports whether f is a known factor.
func (f Factor) Valid() bool {
	for _, k := range AllFactors {
		if k == f {
			return true
		}
	}
	return false
}

// BehaviorEntry is one self-reported energy reading.
type BehaviorEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	EnergyLevel int       `json:"energy_level"`
}

// EmotionalState is the latest emotional self-report (1..10 scales).
type EmotionalState struct {
	Anxiety       int `json:"anxiety"`
	MoodStability int `json:"mood_stability"`
}

// EmotionalEntry is a historical emotional self-report. Only the count of
// these feeds confidence.
type EmotionalEntry struct {
	Timestamp time.Time `json:"timestamp"`
	EmotionalState
}

// PastEvent records the streak length at which a past setback happened.
type PastEvent struct {
	DaysSinceStart  int  `json:"days_since_start"`
	WasAdverseEvent bool `json:"was_adverse_event"`
}

// Snapshot is the immutable bundle of a user's behavioral facts for one
// scoring call. A nil CurrentStreakDays means there is no baseline yet.
type Snapshot struct {
	CurrentStreakDays *int             `json:"current_streak_days,omitempty"`
	RecentBehaviorLog []BehaviorEntry  `json:"recent_behavior_log,omitempty"`
	EmotionalState    *EmotionalState  `json:"emotional_state,omitempty"`
	EmotionalLog      []EmotionalEntry `json:"emotional_log,omitempty"`
	EventHistory      []PastEvent      `json:"event_history,omitempty"`
	EvaluationTime    time.Time        `json:"evaluation_time"`
}

// ErrInvalidSnapshot wraps every Snapshot validation failure.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Self-reported scales run from MinScale to MaxScale inclusive.
const (
	MinScale = 1
	MaxScale = 10
)

// Validate reports the first value outside its domain. Score itself accepts
// any snapshot; callers taking input from outside validate first.
func (s Snapshot) Validate() error {
	if s.CurrentStreakDays != nil && *s.CurrentStreakDays < 0 {
		return fmt.Errorf("%w: current_streak_days %d must not be negative", ErrInvalidSnapshot, *s.CurrentStreakDays)
	}
	for i, e := range s.RecentBehaviorLog {
		if !onScale(e.EnergyLevel) {
			return fmt.Errorf("%w: recent_behavior_log[%d].energy_level %d outside %d-%d", ErrInvalidSnapshot, i, e.EnergyLevel, MinScale, MaxScale)
		}
	}
	if s.EmotionalState != nil {
		if err := s.EmotionalState.validate("emotional_state"); err != nil {
			return err
		}
	}
	for i, e := range s.EmotionalLog {
		if err := e.EmotionalState.validate(fmt.Sprintf("emotional_log[%d]", i)); err != nil {
			return err
		}
	}
	for i, ev := range s.EventHistory {
		if ev.DaysSinceStart < 0 {
			return fmt.Errorf("%w: event_history[%d].days_since_start %d must not be negative", ErrInvalidSnapshot, i, ev.DaysSinceStart)
		}
	}
	return nil
}

func (e EmotionalState) validate(field string) error {
	if !onScale(e.Anxiety) {
		return fmt.Errorf("%w: %s.anxiety %d outside %d-%d", ErrInvalidSnapshot, field, e.Anxiety, MinScale, MaxScale)
	}
	if !onScale(e.MoodStability) {
		return fmt.Errorf("%w: %s.mood_stability %d outside %d-%d", ErrInvalidSnapshot, field, e.MoodStability, MinScale, MaxScale)
	}
	return nil
}

func onScale(v int) bool {
	return v >= MinScale && v <= MaxScale
}

// Result is the output of a single scoring call. Factors only holds the
// factors that triggered, keyed to the weight they contributed.
type Result struct {
	RiskScore        int                `json:"risk_score"`
	Confidence       int                `json:"confidence"`
	Reason           string             `json:"reason"`
	Factors          map[Factor]float64 `json:"factors"`
	DataPoints       int                `json:"data_points"`
	MatchedPastEvent *PastEvent         `json:"matched_past_event,omitempty"`
}

// Prediction is a scored Result tied to a user, as recorded by callers so
// feedback can reference it later.
type Prediction struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Result    Result    `json:"result"`
	CreatedAt time.Time `json:"created_at"`
}

// Outcome is the post-hoc judgment of a prediction.
type Outcome string

const (
	OutcomeHelpful    Outcome = "helpful"
	OutcomeFalseAlarm Outcome = "false_alarm"
)

// ErrInvalidOutcome is returned for any outcome other than helpful or
// false_alarm.
var ErrInvalidOutcome = errors.New("invalid feedback outcome")

// ParseOutcome converts a raw outcome string, rejecting unknown values.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeHelpful, OutcomeFalseAlarm:
		return Outcome(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOutcome, s)
	}
}

// ErrFeedbackExists is returned when a prediction already has feedback. Each
// prediction is judged at most once.
var ErrFeedbackExists = errors.New("feedback already recorded for prediction")

// Feedback is an append-only record of whether a prediction was accurate.
type Feedback struct {
	PredictionID      uuid.UUID          `json:"prediction_id"`
	PredictionFactors map[Factor]float64 `json:"prediction_factors"`
	Outcome           Outcome            `json:"outcome"`
	Timestamp         time.Time          `json:"timestamp"`
}
