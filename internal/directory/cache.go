// Package directory decorates the fleet directory reads with an optional
// Redis cache. Directory data changes rarely (fleet file syncs), so short
// TTLs are safe; every miss falls through to the store.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetops/internal/model"
)

// Source is the uncached directory, normally the SQLite store.
type Source interface {
	ListActiveVehicles(ctx context.Context, terminal string) ([]model.Vehicle, error)
	ListActiveDrivers(ctx context.Context, terminal string) ([]model.Driver, error)
	GetVehicle(ctx context.Context, id string) (*model.Vehicle, error)
	GetRoute(ctx context.Context, id string) (*model.Route, error)
}

// Cached is a read-through cache over a Source. With a nil client or zero
// TTL it degrades to a transparent passthrough.
type Cached struct {
	source   Source
	redis    *redis.Client
	cacheTTL time.Duration
}

// NewCached wraps source.
func NewCached(source Source) *Cached {
	return &Cached{source: source}
}

// UseRedisCache configures optional Redis caching for directory reads.
func (c *Cached) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func (c *Cached) ListActiveVehicles(ctx context.Context, terminal string) ([]model.Vehicle, error) {
	cacheKey := fmt.Sprintf("vehicles:%s", terminal)
	var vehicles []model.Vehicle
	if c.readCache(ctx, cacheKey, &vehicles) {
		return vehicles, nil
	}

	vehicles, err := c.source.ListActiveVehicles(ctx, terminal)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, vehicles)
	return vehicles, nil
}

func (c *Cached) ListActiveDrivers(ctx context.Context, terminal string) ([]model.Driver, error) {
	cacheKey := fmt.Sprintf("drivers:%s", terminal)
	var drivers []model.Driver
	if c.readCache(ctx, cacheKey, &drivers) {
		return drivers, nil
	}

	drivers, err := c.source.ListActiveDrivers(ctx, terminal)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, drivers)
	return drivers, nil
}

// GetVehicle is not cached: it feeds capacity defaulting on schedule writes,
// where a stale read would be copied into a persisted schedule.
func (c *Cached) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	return c.source.GetVehicle(ctx, id)
}

func (c *Cached) GetRoute(ctx context.Context, id string) (*model.Route, error) {
	cacheKey := fmt.Sprintf("route:%s", id)
	var route model.Route
	if c.readCache(ctx, cacheKey, &route) {
		return &route, nil
	}

	r, err := c.source.GetRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	c.writeCache(ctx, cacheKey, r)
	return r, nil
}

func (c *Cached) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), out) == nil
}

func (c *Cached) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	c.redis.Set(ctx, key, string(data), c.cacheTTL)
}
