package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

// CacheRepository defines the interface for caching operations.
// This follows the hexagonal architecture pattern where the core defines interfaces
// and the data layer provides implementations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Increment atomically adds one to a counter and sets its TTL when the
	// counter is created. Returns the new value.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}

const statusKeyPrefix = "status:"

// StatusCache keeps terminal handle statuses so repeated polls skip Postgres.
// Terminal statuses never change, so entries are never invalidated, only expired.
type StatusCache struct {
	cache CacheRepository
	ttl   time.Duration
}

// NewStatusCache creates a StatusCache. A zero TTL or nil cache disables it.
func NewStatusCache(cache CacheRepository, ttl time.Duration) *StatusCache {
	return &StatusCache{cache: cache, ttl: ttl}
}

// Enabled reports whether lookups can hit.
func (c *StatusCache) Enabled() bool {
	return c != nil && c.cache != nil && c.ttl > 0
}

// Get returns the cached status for handle, or nil on a miss.
func (c *StatusCache) Get(ctx context.Context, handle string) (*model.HandleStatus, error) {
	if !c.Enabled() || handle == "" {
		return nil, nil
	}
	raw, err := c.cache.Get(ctx, statusKeyPrefix+handle)
	if err != nil || len(raw) == 0 {
		return nil, err
	}
	var st model.HandleStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode cached status: %w", err)
	}
	return &st, nil
}

// Put stores st when it is terminal. Non-terminal statuses are ignored.
func (c *StatusCache) Put(ctx context.Context, st *model.HandleStatus) error {
	if !c.Enabled() || st == nil || !st.Terminal() || st.Handle == "" {
		return nil
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	return c.cache.Set(ctx, statusKeyPrefix+st.Handle, raw, c.ttl)
}

const rateLimitKeyPrefix = "ratelimit:"

// SubmitRateLimiter is a fixed one-minute window counter per principal.
type SubmitRateLimiter struct {
	cache     CacheRepository
	perMinute int
	now       func() time.Time
}

// NewSubmitRateLimiter creates a limiter. perMinute <= 0 disables limiting.
func NewSubmitRateLimiter(cache CacheRepository, perMinute int) *SubmitRateLimiter {
	return &SubmitRateLimiter{cache: cache, perMinute: perMinute, now: time.Now}
}

// Allow counts one submission for principal and reports whether it fits the window.
func (l *SubmitRateLimiter) Allow(ctx context.Context, principal string) (bool, error) {
	if l == nil || l.cache == nil || l.perMinute <= 0 {
		return true, nil
	}
	window := l.now().UTC().Unix() / 60
	key := rateLimitKeyPrefix + principal + ":" + strconv.FormatInt(window, 10)
	n, err := l.cache.Increment(ctx, key, 2*time.Minute)
	if err != nil {
		return false, err
	}
	return n <= int64(l.perMinute), nil
}
