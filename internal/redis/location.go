package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const driverLocationKey = "drivers:locations"

// NearbyDriver is one geo-index hit, nearest first.
type NearbyDriver struct {
	DriverID      string
	Lat           float64
	Lng           float64
	DistanceMiles float64
}

// LocationStore handles the driver geo index in Redis. Only Online drivers on
// Active roster records are indexed; presence transitions add and remove
// members.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a driver's location using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	return s.client.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// FindNearbyDrivers returns drivers within radiusMiles of the point, nearest
// first, at most count entries. count <= 0 means no limit.
func (s *LocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusMiles float64, count int) ([]NearbyDriver, error) {
	results, err := s.client.GeoRadius(ctx, driverLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusMiles,
		Unit:      "mi",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
		Count:     count,
	}).Result()
	if err != nil {
		return nil, err
	}

	drivers := make([]NearbyDriver, 0, len(results))
	for _, r := range results {
		drivers = append(drivers, NearbyDriver{
			DriverID:      r.Name,
			Lat:           r.Latitude,
			Lng:           r.Longitude,
			DistanceMiles: r.Dist,
		})
	}

	return drivers, nil
}

// RemoveLocation removes a driver from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	return s.client.ZRem(ctx, driverLocationKey, driverID).Err()
}
