package risk

// Weights maps each factor to the points it adds to the risk score when it
// triggers.
type Weights map[Factor]float64

// DefaultWeights returns the starting weights for a new user.
func DefaultWeights() Weights {
	return Weights{
		FactorEnergyDrop:             25,
		FactorEveningHours:           20,
		FactorWeekend:                10,
		FactorEmotionalVulnerability: 30,
		FactorHistoricalPattern:      20,
		FactorPurgePhase:             15,
	}
}

// Clone returns an independent copy of w.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	for f, v := range w {
		out[f] = v
	}
	return out
}

// Normalize returns a copy of w holding every known factor, filling gaps
// from DefaultWeights, dropping unknown keys and clamping to the policy
// bounds. Stored weights pass through here on load.
func (w Weights) Normalize(p Policy) Weights {
	out := DefaultWeights()
	for f, v := range w {
		if !f.Valid() {
			continue
		}
		out[f] = v
	}
	for f, v := range out {
		out[f] = clampWeight(v, p)
	}
	return out
}

func clampWeight(v float64, p Policy) float64 {
	if v < p.MinWeight {
		return p.MinWeight
	}
	if v > p.MaxWeight {
		return p.MaxWeight
	}
	return v
}
