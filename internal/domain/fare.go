package domain

import "time"

// RoundingMode controls how a metered fare total is rounded.
type RoundingMode string

const (
	RoundNone       RoundingMode = "none"
	RoundNearest10c RoundingMode = "nearest_0.1"
	RoundNearest25c RoundingMode = "nearest_0.25"
	RoundNearest50c RoundingMode = "nearest_0.5"
	RoundNearest1   RoundingMode = "nearest_1"
)

// FeeConfig is a named surcharge available for trip completion.
type FeeConfig struct {
	Name   string
	Amount float64
}

// FareConfig is the company-wide metered fare structure. There is a single
// row of this per deployment.
type FareConfig struct {
	BaseFare          float64
	FarePerMile       float64
	WaitTimePerMinute float64
	ExtraPassenger    float64
	MinimumFare       float64
	SurgeEnabled      bool
	SurgeMultiplier   float64
	MeterRoundingMode RoundingMode
	OtherFees         []FeeConfig
	UpdatedAt         time.Time
}

// FlatRate is a fixed-price fare option (e.g. airport runs). Only active
// flat rates may be applied at completion.
type FlatRate struct {
	ID            string
	Name          string
	DistanceLabel string
	Amount        float64
	Active        bool
}
