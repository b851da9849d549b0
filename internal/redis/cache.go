package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheStore handles roster snapshot caching in Redis.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// ActiveCacheTTL is short because availability flips frequently.
const ActiveCacheTTL = 30 * time.Second

const activeCachePrefix = "cache:active:"

// CachedActive is the roster snapshot the dispatch engine needs when
// evaluating a candidate: identity, eligibility and compliance.
type CachedActive struct {
	ID           string `json:"id"`
	DriverID     string `json:"driver_id"`
	CabNumber    string `json:"cab_number"`
	Status       string `json:"status"`
	Availability string `json:"availability"`
	IsCompliant  bool   `json:"is_compliant"`
}

// GetActive retrieves a roster snapshot from cache. A miss returns nil, nil.
func (s *CacheStore) GetActive(ctx context.Context, driverID string) (*CachedActive, error) {
	key := activeCachePrefix + driverID
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var active CachedActive
	if err := json.Unmarshal(data, &active); err != nil {
		return nil, err
	}
	return &active, nil
}

// SetActive stores a roster snapshot in cache.
func (s *CacheStore) SetActive(ctx context.Context, active *CachedActive) error {
	key := activeCachePrefix + active.DriverID
	data, err := json.Marshal(active)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ActiveCacheTTL).Err()
}

// InvalidateActive removes a roster snapshot from cache. Called on every
// roster write so readers never see a pairing that has since changed.
func (s *CacheStore) InvalidateActive(ctx context.Context, driverID string) error {
	key := activeCachePrefix + driverID
	return s.client.Del(ctx, key).Err()
}
