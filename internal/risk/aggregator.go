package risk

import (
	"math"
	"strings"
)

const (
	ReasonInsufficientData = "Insufficient data for prediction"
	ReasonNoRisk           = "No significant risk factors detected"
)

// Score runs every extractor against s and sums the weights of the factors
// that triggered. Weights missing a factor contribute nothing for it.
func Score(s Snapshot, w Weights, p Policy) Result {
	if s.CurrentStreakDays == nil {
		return Result{
			Reason:  ReasonInsufficientData,
			Factors: map[Factor]float64{},
		}
	}

	res := Result{Factors: map[Factor]float64{}}
	var total float64
	var reasons []string
	for _, extract := range Extractors() {
		sig := extract(s, p)
		if !sig.IsRisk {
			continue
		}
		contribution := w[sig.Factor] * sig.Score
		total += contribution
		res.Factors[sig.Factor] = contribution
		reasons = append(reasons, sig.Reason)
		if sig.Matched != nil {
			res.MatchedPastEvent = sig.Matched
		}
	}

	res.RiskScore = int(math.Round(clampFloat(total, 0, float64(p.MaxRiskScore))))
	res.DataPoints = DataPoints(s)
	res.Confidence = confidence(res.DataPoints, p)

	if len(reasons) == 0 {
		res.Reason = ReasonNoRisk
	} else {
		res.Reason = strings.Join(reasons, " + ")
	}
	return res
}

// DataPoints counts the evidence behind a snapshot. Historical events count
// double.
func DataPoints(s Snapshot) int {
	return len(s.RecentBehaviorLog) + len(s.EmotionalLog) + 2*len(s.EventHistory)
}

func confidence(dataPoints int, p Policy) int {
	c := int(math.Round(float64(dataPoints) / p.ConfidenceDivisor * 100))
	if c > p.ConfidenceCap {
		return p.ConfidenceCap
	}
	return c
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
