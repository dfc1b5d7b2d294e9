package risk

import (
	"errors"
	"fmt"
)

// ErrInvalidPolicy wraps every Policy validation failure.
var ErrInvalidPolicy = errors.New("invalid risk policy")

// Policy holds the calibration constants for extraction, aggregation and
// adaptation. The defaults were tuned by hand; deployments in other domains
// override them through a policy file.
type Policy struct {
	AdaptRate float64 `json:"adapt_rate" yaml:"adapt_rate"`
	MinWeight float64 `json:"min_weight" yaml:"min_weight"`
	MaxWeight float64 `json:"max_weight" yaml:"max_weight"`

	EnergyWindow        int `json:"energy_window" yaml:"energy_window"`
	EnergyDropThreshold int `json:"energy_drop_threshold" yaml:"energy_drop_threshold"`

	// The evening window is inclusive on both ends. A start hour after the
	// end hour wraps past midnight, so 22-2 covers 22:00 through 02:59.
	EveningStartHour int `json:"evening_start_hour" yaml:"evening_start_hour"`
	EveningEndHour   int `json:"evening_end_hour" yaml:"evening_end_hour"`

	AnxietyThreshold       int `json:"anxiety_threshold" yaml:"anxiety_threshold"`
	MoodStabilityThreshold int `json:"mood_stability_threshold" yaml:"mood_stability_threshold"`

	HistoricalTolerance int `json:"historical_tolerance" yaml:"historical_tolerance"`

	PurgeMinDays int `json:"purge_min_days" yaml:"purge_min_days"`
	PurgeMaxDays int `json:"purge_max_days" yaml:"purge_max_days"`

	// ConfidenceDivisor is the data volume considered fully informative.
	ConfidenceDivisor float64 `json:"confidence_divisor" yaml:"confidence_divisor"`
	ConfidenceCap     int     `json:"confidence_cap" yaml:"confidence_cap"`
	MaxRiskScore      int     `json:"max_risk_score" yaml:"max_risk_score"`
}

// DefaultPolicy returns the stock calibration.
func DefaultPolicy() Policy {
	return Policy{
		AdaptRate:              0.05,
		MinWeight:              5,
		MaxWeight:              35,
		EnergyWindow:           3,
		EnergyDropThreshold:    3,
		EveningStartHour:       20,
		EveningEndHour:         23,
		AnxietyThreshold:       7,
		MoodStabilityThreshold: 4,
		HistoricalTolerance:    3,
		PurgeMinDays:           15,
		PurgeMaxDays:           45,
		ConfidenceDivisor:      30,
		ConfidenceCap:          95,
		MaxRiskScore:           100,
	}
}

// Validate reports the first inconsistency in p.
func (p Policy) Validate() error {
	switch {
	case p.AdaptRate <= 0 || p.AdaptRate >= 1:
		return fmt.Errorf("%w: adapt_rate %g must be in (0,1)", ErrInvalidPolicy, p.AdaptRate)
	case p.MinWeight <= 0:
		return fmt.Errorf("%w: min_weight %g must be positive", ErrInvalidPolicy, p.MinWeight)
	case p.MinWeight >= p.MaxWeight:
		return fmt.Errorf("%w: min_weight %g must be below max_weight %g", ErrInvalidPolicy, p.MinWeight, p.MaxWeight)
	case p.EnergyWindow < 2:
		return fmt.Errorf("%w: energy_window %d must be at least 2", ErrInvalidPolicy, p.EnergyWindow)
	case p.EnergyDropThreshold <= 0:
		return fmt.Errorf("%w: energy_drop_threshold %d must be positive", ErrInvalidPolicy, p.EnergyDropThreshold)
	case !validHour(p.EveningStartHour) || !validHour(p.EveningEndHour):
		return fmt.Errorf("%w: evening hours %d-%d must be within 0-23", ErrInvalidPolicy, p.EveningStartHour, p.EveningEndHour)
	case p.HistoricalTolerance < 0:
		return fmt.Errorf("%w: historical_tolerance %d must not be negative", ErrInvalidPolicy, p.HistoricalTolerance)
	case p.PurgeMinDays < 0 || p.PurgeMinDays > p.PurgeMaxDays:
		return fmt.Errorf("%w: purge window %d-%d", ErrInvalidPolicy, p.PurgeMinDays, p.PurgeMaxDays)
	case p.ConfidenceDivisor <= 0:
		return fmt.Errorf("%w: confidence_divisor %g must be positive", ErrInvalidPolicy, p.ConfidenceDivisor)
	case p.ConfidenceCap < 0 || p.ConfidenceCap > 100:
		return fmt.Errorf("%w: confidence_cap %d must be within 0-100", ErrInvalidPolicy, p.ConfidenceCap)
	case p.MaxRiskScore <= 0:
		return fmt.Errorf("%w: max_risk_score %d must be positive", ErrInvalidPolicy, p.MaxRiskScore)
	}
	return nil
}

func validHour(h int) bool {
	return h >= 0 && h <= 23
}
