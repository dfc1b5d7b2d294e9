package risk

import (
	"reflect"
	"strings"
	"testing"
)

func TestScore_PurgePhaseOnly(t *testing.T) {
	s := Snapshot{
		CurrentStreakDays: streak(20),
		RecentBehaviorLog: energyLog(8, 8, 8),
		EvaluationTime:    tuesdayAfternoon,
	}

	got := Score(s, DefaultWeights(), DefaultPolicy())

	if got.RiskScore != 15 {
		t.Errorf("expected risk score 15, got %d", got.RiskScore)
	}
	if got.Reason != "In emotional purging phase" {
		t.Errorf("unexpected reason %q", got.Reason)
	}
	want := map[Factor]float64{FactorPurgePhase: 15}
	if !reflect.DeepEqual(got.Factors, want) {
		t.Errorf("factors = %v, want %v", got.Factors, want)
	}
	if got.DataPoints != 3 {
		t.Errorf("expected 3 data points, got %d", got.DataPoints)
	}
	if got.Confidence != 10 {
		t.Errorf("expected confidence 10, got %d", got.Confidence)
	}
}

func TestScore_SaturdayNight(t *testing.T) {
	s := Snapshot{
		CurrentStreakDays: streak(20),
		RecentBehaviorLog: energyLog(8, 8, 8),
		EvaluationTime:    saturdayNight,
	}

	got := Score(s, DefaultWeights(), DefaultPolicy())

	if got.RiskScore != 45 {
		t.Errorf("expected risk score 45, got %d", got.RiskScore)
	}
	want := "Evening hours (higher risk time) + Weekend (less structure) + In emotional purging phase"
	if got.Reason != want {
		t.Errorf("reason = %q, want %q", got.Reason, want)
	}
	if len(got.Factors) != 3 {
		t.Errorf("expected 3 factors, got %v", got.Factors)
	}
}

func TestScore_EnergyDropOnly(t *testing.T) {
	s := Snapshot{
		CurrentStreakDays: streak(5),
		RecentBehaviorLog: energyLog(9, 6, 5),
		EvaluationTime:    tuesdayAfternoon,
	}

	got := Score(s, DefaultWeights(), DefaultPolicy())

	if got.RiskScore != 25 {
		t.Errorf("expected risk score 25, got %d", got.RiskScore)
	}
	if !strings.Contains(got.Reason, "Energy dropped 4 points in last 3 days") {
		t.Errorf("unexpected reason %q", got.Reason)
	}
	if _, ok := got.Factors[FactorEnergyDrop]; !ok || len(got.Factors) != 1 {
		t.Errorf("expected only energyDrop, got %v", got.Factors)
	}
}

func TestScore_HistoricalMatch(t *testing.T) {
	past := PastEvent{DaysSinceStart: 18, WasAdverseEvent: true}
	s := Snapshot{
		CurrentStreakDays: streak(20),
		EventHistory:      []PastEvent{past},
		EvaluationTime:    tuesdayAfternoon,
	}

	got := Score(s, DefaultWeights(), DefaultPolicy())

	if _, ok := got.Factors[FactorHistoricalPattern]; !ok {
		t.Fatalf("expected historicalPattern to fire, got %v", got.Factors)
	}
	if got.MatchedPastEvent == nil || *got.MatchedPastEvent != past {
		t.Errorf("MatchedPastEvent = %+v, want %+v", got.MatchedPastEvent, past)
	}
	if got.DataPoints != 2 {
		t.Errorf("history should count double, got %d data points", got.DataPoints)
	}
}

func TestScore_NoBaseline(t *testing.T) {
	s := Snapshot{
		RecentBehaviorLog: energyLog(9, 6, 5),
		EventHistory:      []PastEvent{{DaysSinceStart: 3}},
		EvaluationTime:    saturdayNight,
	}

	got := Score(s, DefaultWeights(), DefaultPolicy())

	if got.RiskScore != 0 || got.Confidence != 0 || got.DataPoints != 0 {
		t.Errorf("expected zero result, got %+v", got)
	}
	if got.Reason != ReasonInsufficientData {
		t.Errorf("unexpected reason %q", got.Reason)
	}
	if got.Factors == nil || len(got.Factors) != 0 {
		t.Errorf("expected empty non-nil factors, got %v", got.Factors)
	}
}

func TestScore_NothingTriggered(t *testing.T) {
	s := Snapshot{CurrentStreakDays: streak(2), EvaluationTime: tuesdayAfternoon}

	got := Score(s, DefaultWeights(), DefaultPolicy())

	if got.Reason != ReasonNoRisk {
		t.Errorf("unexpected reason %q", got.Reason)
	}
	if got.RiskScore != 0 || len(got.Factors) != 0 {
		t.Errorf("expected no risk, got %+v", got)
	}
}

func TestScore_Bounds(t *testing.T) {
	heavy := Weights{}
	for _, f := range AllFactors {
		heavy[f] = 35
	}
	everything := Snapshot{
		CurrentStreakDays: streak(20),
		RecentBehaviorLog: energyLog(10, 5, 1),
		EmotionalState:    &EmotionalState{Anxiety: 10, MoodStability: 1},
		EmotionalLog:      make([]EmotionalEntry, 40),
		EventHistory:      []PastEvent{{DaysSinceStart: 20, WasAdverseEvent: true}},
		EvaluationTime:    saturdayNight,
	}

	got := Score(everything, heavy, DefaultPolicy())

	if got.RiskScore != 100 {
		t.Errorf("expected risk score capped at 100, got %d", got.RiskScore)
	}
	if got.Confidence != 95 {
		t.Errorf("expected confidence capped at 95, got %d", got.Confidence)
	}
	if len(got.Factors) != len(AllFactors) {
		t.Errorf("expected every factor to fire, got %v", got.Factors)
	}
}

func TestScore_NegativeWeightsFloorAtZero(t *testing.T) {
	w := Weights{FactorPurgePhase: -40}
	s := Snapshot{CurrentStreakDays: streak(20), EvaluationTime: tuesdayAfternoon}

	got := Score(s, w, DefaultPolicy())

	if got.RiskScore != 0 {
		t.Errorf("expected floor at 0, got %d", got.RiskScore)
	}
}

func TestScore_Deterministic(t *testing.T) {
	s := Snapshot{
		CurrentStreakDays: streak(19),
		RecentBehaviorLog: energyLog(9, 6, 5),
		EmotionalState:    &EmotionalState{Anxiety: 9, MoodStability: 2},
		EventHistory:      []PastEvent{{DaysSinceStart: 17, WasAdverseEvent: true}},
		EvaluationTime:    saturdayNight,
	}
	w := DefaultWeights()

	first := Score(s, w, DefaultPolicy())
	second := Score(s, w, DefaultPolicy())

	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical results:\n%+v\n%+v", first, second)
	}
}

func TestScore_AdaptedWeightsRound(t *testing.T) {
	w := DefaultWeights()
	w[FactorEnergyDrop] = 23.75
	s := Snapshot{
		CurrentStreakDays: streak(5),
		RecentBehaviorLog: energyLog(9, 6, 5),
		EvaluationTime:    tuesdayAfternoon,
	}

	got := Score(s, w, DefaultPolicy())

	if got.RiskScore != 24 {
		t.Errorf("expected 23.75 to round to 24, got %d", got.RiskScore)
	}
	if got.Factors[FactorEnergyDrop] != 23.75 {
		t.Errorf("expected factor contribution 23.75, got %f", got.Factors[FactorEnergyDrop])
	}
}

func TestDataPoints(t *testing.T) {
	s := Snapshot{
		RecentBehaviorLog: energyLog(1, 2, 3, 4),
		EmotionalLog:      make([]EmotionalEntry, 5),
		EventHistory:      make([]PastEvent, 3),
	}
	if got := DataPoints(s); got != 15 {
		t.Errorf("expected 4+5+2*3=15, got %d", got)
	}
}
