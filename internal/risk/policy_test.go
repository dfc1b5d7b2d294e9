package risk

import (
	"errors"
	"testing"
)

func TestDefaultPolicy_Valid(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Policy)
	}{
		{"zero rate", func(p *Policy) { p.AdaptRate = 0 }},
		{"rate of one", func(p *Policy) { p.AdaptRate = 1 }},
		{"min above max", func(p *Policy) { p.MinWeight = 40 }},
		{"non-positive min", func(p *Policy) { p.MinWeight = 0 }},
		{"tiny energy window", func(p *Policy) { p.EnergyWindow = 1 }},
		{"evening hour out of range", func(p *Policy) { p.EveningEndHour = 24 }},
		{"evening start out of range", func(p *Policy) { p.EveningStartHour = -1 }},
		{"purge reversed", func(p *Policy) { p.PurgeMinDays = 50 }},
		{"zero divisor", func(p *Policy) { p.ConfidenceDivisor = 0 }},
		{"cap above 100", func(p *Policy) { p.ConfidenceCap = 120 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPolicy()
			tt.mutate(&p)
			if err := p.Validate(); !errors.Is(err, ErrInvalidPolicy) {
				t.Errorf("expected ErrInvalidPolicy, got %v", err)
			}
		})
	}
}

func TestPolicyValidate_EveningWrapsMidnight(t *testing.T) {
	p := DefaultPolicy()
	p.EveningStartHour, p.EveningEndHour = 22, 2
	if err := p.Validate(); err != nil {
		t.Errorf("expected overnight window to be valid, got %v", err)
	}
}

func TestWeightsNormalize(t *testing.T) {
	w := Weights{
		FactorEnergyDrop: 50,
		FactorWeekend:    1,
		"unknown":        12,
	}

	got := w.Normalize(DefaultPolicy())

	if len(got) != len(AllFactors) {
		t.Errorf("expected every factor present, got %v", got)
	}
	if got[FactorEnergyDrop] != 35 {
		t.Errorf("expected energyDrop clamped to 35, got %f", got[FactorEnergyDrop])
	}
	if got[FactorWeekend] != 5 {
		t.Errorf("expected weekend clamped to 5, got %f", got[FactorWeekend])
	}
	if got[FactorPurgePhase] != 15 {
		t.Errorf("expected purgePhase default 15, got %f", got[FactorPurgePhase])
	}
	if _, ok := got["unknown"]; ok {
		t.Error("expected unknown factor dropped")
	}
}

func TestDefaultWeightsWithinBounds(t *testing.T) {
	p := DefaultPolicy()
	for f, v := range DefaultWeights() {
		if v < p.MinWeight || v > p.MaxWeight {
			t.Errorf("default weight %s=%f outside bounds", f, v)
		}
	}
}
