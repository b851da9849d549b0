package geo

import "math"

// Earth radius in miles, matching the constant used across the fleet tooling.
const earthRadiusMiles = 3958.8

// MetersPerMile converts miles to meters for APIs that speak metric.
const MetersPerMile = 1609.34

// HaversineMiles returns the great-circle distance in miles between two
// points given as (lat, lng) pairs.
func HaversineMiles(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMiles * c
}

// MilesToMeters converts a distance in miles to meters.
func MilesToMeters(miles float64) float64 {
	return miles * MetersPerMile
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
