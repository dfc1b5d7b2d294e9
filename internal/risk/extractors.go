package risk

import (
	"fmt"
	"time"
)

// Signal is one extractor's verdict. Score is 1 for a triggered signal and 0
// otherwise; the aggregator scales it by the factor weight.
type Signal struct {
	Factor  Factor
	IsRisk  bool
	Score   float64
	Reason  string
	Matched *PastEvent
}

// Extractor inspects one slice of a snapshot. Implementations must not
// mutate the snapshot and must not read the wall clock.
type Extractor func(s Snapshot, p Policy) Signal

// Extractors returns every extractor in AllFactors order.
func Extractors() []Extractor {
	return []Extractor{
		EnergyDrop,
		EveningHours,
		Weekend,
		EmotionalVulnerability,
		HistoricalPattern,
		PurgePhase,
	}
}

func triggered(f Factor, reason string) Signal {
	return Signal{Factor: f, IsRisk: true, Score: 1, Reason: reason}
}

// EnergyDrop compares the first and last energy readings in the trailing
// window.
func EnergyDrop(s Snapshot, p Policy) Signal {
	n := len(s.RecentBehaviorLog)
	if n < p.EnergyWindow {
		return Signal{Factor: FactorEnergyDrop}
	}
	recent := s.RecentBehaviorLog[n-p.EnergyWindow:]
	drop := recent[0].EnergyLevel - recent[len(recent)-1].EnergyLevel
	if drop < p.EnergyDropThreshold {
		return Signal{Factor: FactorEnergyDrop}
	}
	return triggered(FactorEnergyDrop, fmt.Sprintf("Energy dropped %d points in last %d days", drop, p.EnergyWindow))
}

// EveningHours triggers inside the evening window, inclusive, in the
// evaluation time's own location.
func EveningHours(s Snapshot, p Policy) Signal {
	if !inHourWindow(s.EvaluationTime.Hour(), p.EveningStartHour, p.EveningEndHour) {
		return Signal{Factor: FactorEveningHours}
	}
	return triggered(FactorEveningHours, "Evening hours (higher risk time)")
}

// inHourWindow handles windows that wrap past midnight (start > end).
func inHourWindow(h, start, end int) bool {
	if start <= end {
		return h >= start && h <= end
	}
	return h >= start || h <= end
}

// Weekend triggers on Saturday and Sunday.
func Weekend(s Snapshot, p Policy) Signal {
	switch s.EvaluationTime.Weekday() {
	case time.Saturday, time.Sunday:
		return triggered(FactorWeekend, "Weekend (less structure)")
	}
	return Signal{Factor: FactorWeekend}
}

// EmotionalVulnerability needs both high anxiety and low mood stability.
func EmotionalVulnerability(s Snapshot, p Policy) Signal {
	es := s.EmotionalState
	if es == nil {
		return Signal{Factor: FactorEmotionalVulnerability}
	}
	if es.Anxiety > p.AnxietyThreshold && es.MoodStability < p.MoodStabilityThreshold {
		return triggered(FactorEmotionalVulnerability, "High anxiety with low mood stability")
	}
	return Signal{Factor: FactorEmotionalVulnerability}
}

// HistoricalPattern matches the first past event whose streak length is
// within tolerance of the current streak.
func HistoricalPattern(s Snapshot, p Policy) Signal {
	if len(s.EventHistory) == 0 || s.CurrentStreakDays == nil {
		return Signal{Factor: FactorHistoricalPattern}
	}
	current := *s.CurrentStreakDays
	for i := range s.EventHistory {
		ev := s.EventHistory[i]
		if abs(ev.DaysSinceStart-current) > p.HistoricalTolerance {
			continue
		}
		sig := triggered(FactorHistoricalPattern, fmt.Sprintf("Similar to past setback at day %d", ev.DaysSinceStart))
		sig.Matched = &ev
		return sig
	}
	return Signal{Factor: FactorHistoricalPattern}
}

// PurgePhase triggers inside the purge window, inclusive.
func PurgePhase(s Snapshot, p Policy) Signal {
	if s.CurrentStreakDays == nil {
		return Signal{Factor: FactorPurgePhase}
	}
	d := *s.CurrentStreakDays
	if d < p.PurgeMinDays || d > p.PurgeMaxDays {
		return Signal{Factor: FactorPurgePhase}
	}
	return triggered(FactorPurgePhase, "In emotional purging phase")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
