package domain

import "time"

// DispatchSettings drive automatic assignment behavior. They are re-read on
// each automatic-assignment attempt so admin changes take effect on the next
// dispatch.
type DispatchSettings struct {
	MaxDistanceMiles   float64
	MaxCandidates      int
	DistanceStepsMiles []float64

	// Promoted from hardcoded constants in the original design.
	ConflictWindow time.Duration
	LeadTime       time.Duration
}

// Default dispatch settings, used when the company profile does not
// specify them.
const (
	DefaultMaxDistanceMiles = 6.0
	DefaultMaxCandidates    = 20
	DefaultConflictWindow   = 20 * time.Minute
	DefaultLeadTime         = 15 * time.Minute
)

// DefaultDistanceStepsMiles is the default expanding-radius schedule.
var DefaultDistanceStepsMiles = []float64{1, 2, 3, 4, 5, 6}

// DefaultDispatchSettings returns the fallback configuration.
func DefaultDispatchSettings() DispatchSettings {
	steps := make([]float64, len(DefaultDistanceStepsMiles))
	copy(steps, DefaultDistanceStepsMiles)
	return DispatchSettings{
		MaxDistanceMiles:   DefaultMaxDistanceMiles,
		MaxCandidates:      DefaultMaxCandidates,
		DistanceStepsMiles: steps,
		ConflictWindow:     DefaultConflictWindow,
		LeadTime:           DefaultLeadTime,
	}
}
