package domain

import "time"

// GeoPoint is a geographic coordinate pair in [lon, lat] order, matching the
// ordering used by the geospatial index.
type GeoPoint struct {
	Lon float64
	Lat float64
}

// DriverLocation is a live position report with optional telemetry.
type DriverLocation struct {
	Point     GeoPoint
	UpdatedAt time.Time
	Speed     float64
	Heading   float64
	Accuracy  float64
}
