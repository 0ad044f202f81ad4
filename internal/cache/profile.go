// Package cache holds the optional redis-backed driver-profile cache. The
// same driver often appears in both parks; caching the profile spares one
// platform call per duplicate.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NikitaKurabtsev/taxi-reports/internal/domain"
)

const profileKeyPrefix = "cache:driver-profile:"

// DefaultTTL applies when the config does not set one.
const DefaultTTL = 5 * time.Minute

// ProfileStore caches driver profiles in Redis.
type ProfileStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProfileStore connects to the given redis address.
func NewProfileStore(addr string, ttl time.Duration) *ProfileStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ProfileStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// Get retrieves a cached profile. A miss returns (nil, nil).
func (s *ProfileStore) Get(ctx context.Context, driverID string) (*domain.DriverProfile, error) {
	data, err := s.client.Get(ctx, profileKeyPrefix+driverID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var profile domain.DriverProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Set stores a profile under the configured TTL.
func (s *ProfileStore) Set(ctx context.Context, driverID string, profile domain.DriverProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, profileKeyPrefix+driverID, data, s.ttl).Err()
}

// Close releases the redis connection.
func (s *ProfileStore) Close() error {
	return s.client.Close()
}
