package geo

import (
	"context"
	"fmt"

	"googlemaps.github.io/maps"

	"dispatch/internal/domain"
)

// Geocoder resolves street addresses to coordinates and estimates driving
// distance between two points. Both calls are best-effort: the booking layer
// falls back to straight-line estimates when they fail. A non-nil hint biases
// ambiguous addresses toward results near that point.
type Geocoder interface {
	Geocode(ctx context.Context, address string, hint *domain.GeoPoint) (domain.GeoPoint, error)
	DrivingDistanceMiles(ctx context.Context, origin, destination domain.GeoPoint) (float64, error)
}

// MapsGeocoder implements Geocoder over the Google Maps web services.
type MapsGeocoder struct {
	client *maps.Client
}

// NewMapsGeocoder creates a new MapsGeocoder with the given API key.
func NewMapsGeocoder(apiKey string) (*MapsGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &MapsGeocoder{client: client}, nil
}

// geocodeBiasDegrees is the half-width of the viewport handed to the Maps API
// when a proximity hint is supplied, roughly 17 miles of latitude.
const geocodeBiasDegrees = 0.25

// Geocode resolves an address to a point.
func (g *MapsGeocoder) Geocode(ctx context.Context, address string, hint *domain.GeoPoint) (domain.GeoPoint, error) {
	req := &maps.GeocodingRequest{Address: address}
	if hint != nil {
		req.Bounds = &maps.LatLngBounds{
			NorthEast: maps.LatLng{Lat: hint.Lat + geocodeBiasDegrees, Lng: hint.Lon + geocodeBiasDegrees},
			SouthWest: maps.LatLng{Lat: hint.Lat - geocodeBiasDegrees, Lng: hint.Lon - geocodeBiasDegrees},
		}
	}
	results, err := g.client.Geocode(ctx, req)
	if err != nil {
		return domain.GeoPoint{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return domain.GeoPoint{}, fmt.Errorf("no geocode result for %q", address)
	}

	loc := results[0].Geometry.Location
	return domain.GeoPoint{Lon: loc.Lng, Lat: loc.Lat}, nil
}

// DrivingDistanceMiles estimates the driving distance between two points.
func (g *MapsGeocoder) DrivingDistanceMiles(ctx context.Context, origin, destination domain.GeoPoint) (float64, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Lat, origin.Lon),
		Destination: fmt.Sprintf("%f,%f", destination.Lat, destination.Lon),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := g.client.Directions(ctx, r)
	if err != nil {
		return 0, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, fmt.Errorf("no route found")
	}

	meters := 0
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
	}
	return float64(meters) / MetersPerMile, nil
}

var _ Geocoder = (*MapsGeocoder)(nil)
