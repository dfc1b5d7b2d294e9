package risk

import (
	"math"
	"time"
)

// Adapt returns the weights after applying one feedback record. Only the
// factors that fired in the referenced prediction move: helpful feedback
// scales them up by the adapt rate, false alarms scale them down, and the
// result is clamped to the policy bounds. w itself is never modified.
func Adapt(w Weights, fb Feedback, p Policy) (Weights, error) {
	if _, err := ParseOutcome(string(fb.Outcome)); err != nil {
		return nil, err
	}

	factor := 1 + p.AdaptRate
	if fb.Outcome == OutcomeFalseAlarm {
		factor = 1 - p.AdaptRate
	}

	out := w.Clone()
	for f := range fb.PredictionFactors {
		cur, ok := out[f]
		if !ok {
			continue
		}
		out[f] = clampWeight(cur*factor, p)
	}
	return out, nil
}

// AccuracyReport summarizes feedback inside a trailing window.
type AccuracyReport struct {
	Accuracy         int `json:"accuracy"`
	TotalPredictions int `json:"total_predictions"`
	Helpful          int `json:"helpful"`
	FalseAlarms      int `json:"false_alarms"`
	WindowDays       int `json:"window_days"`
}

// Accuracy reports the helpful share of feedback recorded in the last
// windowDays days before now. An empty window yields a zero report.
func Accuracy(log []Feedback, windowDays int, now time.Time) AccuracyReport {
	rep := AccuracyReport{WindowDays: windowDays}
	cutoff := WindowStart(now, windowDays)
	for _, fb := range log {
		if fb.Timestamp.Before(cutoff) {
			continue
		}
		switch fb.Outcome {
		case OutcomeHelpful:
			rep.Helpful++
		case OutcomeFalseAlarm:
			rep.FalseAlarms++
		default:
			continue
		}
		rep.TotalPredictions++
	}
	if rep.TotalPredictions == 0 {
		return rep
	}
	rep.Accuracy = int(math.Round(100 * float64(rep.Helpful) / float64(rep.TotalPredictions)))
	return rep
}

// WindowStart is the earliest timestamp inside a trailing window.
func WindowStart(now time.Time, windowDays int) time.Time {
	return now.Add(-time.Duration(windowDays) * 24 * time.Hour)
}
