// Package cache stores model responses in Redis so identical submissions do
// not trigger a second billable analysis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "helios:analysis:"
	DefaultTTL = 24 * time.Hour
)

// ErrCorruptEntry is returned by Get when the stored value cannot be decoded.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// Entry is a cached model response. The raw object is cached rather than the
// normalized analysis so date defaults are recomputed on every read.
type Entry struct {
	Raw      map[string]any `json:"raw"`
	Model    string         `json:"model"`
	Provider string         `json:"provider"`
	CachedAt time.Time      `json:"cached_at"`
}

// AnalysisCache wraps a Redis client.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalysisCache creates a cache. A non-positive ttl uses DefaultTTL.
func NewAnalysisCache(client *redis.Client, ttl time.Duration) *AnalysisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &AnalysisCache{client: client, ttl: ttl}
}

// NewRedisClient opens a client and pings it.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Key fingerprints everything that influences the model response.
func Key(text, model, question, sector string, dataPoints []string) string {
	points := append([]string(nil), dataPoints...)
	sort.Strings(points)

	h := sha256.New()
	for _, part := range []string{text, model, question, sector, strings.Join(points, "\x1f")} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the entry for key. A miss is (nil, false, nil).
func (c *AnalysisCache) Get(ctx context.Context, key string) (*Entry, bool, error) {
	b, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrCorruptEntry, err)
	}
	return &e, true, nil
}

// Set stores e under key with the cache TTL.
func (c *AnalysisCache) Set(ctx context.Context, key string, e Entry) error {
	if e.CachedAt.IsZero() {
		e.CachedAt = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (c *AnalysisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}
