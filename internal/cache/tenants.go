// Package cache provides a read-through cache for tenant slug lookups, which
// sit on every request path. Redis-backed when configured, with an
// in-process TTL map otherwise.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "lstd:tenxa_slug:"

// Resolver is the authoritative slug lookup behind the cache.
type Resolver interface {
	TenantIDBySlug(ctx context.Context, slug string) (int64, error)
}

type entry struct {
	id        int64
	expiresAt time.Time
}

type Tenants struct {
	resolver Resolver
	redis    *redis.Client
	ttl      time.Duration

	mu    sync.RWMutex
	local map[string]entry
}

// NewTenants builds the cache. redisClient may be nil; the cache then runs
// purely in-process.
func NewTenants(resolver Resolver, redisClient *redis.Client, ttl time.Duration) *Tenants {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Tenants{
		resolver: resolver,
		redis:    redisClient,
		ttl:      ttl,
		local:    make(map[string]entry),
	}
}

// ResolveSlug maps a tenant slug to its id. Lookup errors from the cache
// layers fall through to the resolver; only resolver errors surface.
func (t *Tenants) ResolveSlug(ctx context.Context, slug string) (int64, error) {
	t.mu.RLock()
	cached, ok := t.local[slug]
	t.mu.RUnlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.id, nil
	}

	if t.redis != nil {
		raw, err := t.redis.Get(ctx, keyPrefix+slug).Result()
		if err == nil {
			if id, parseErr := strconv.ParseInt(raw, 10, 64); parseErr == nil {
				t.storeLocal(slug, id)
				return id, nil
			}
		}
	}

	id, err := t.resolver.TenantIDBySlug(ctx, slug)
	if err != nil {
		return 0, err
	}

	t.storeLocal(slug, id)
	if t.redis != nil {
		// Best effort; a failed write just means a future cache miss.
		t.redis.Set(ctx, keyPrefix+slug, fmt.Sprintf("%d", id), t.ttl)
	}
	return id, nil
}

func (t *Tenants) storeLocal(slug string, id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.local[slug] = entry{id: id, expiresAt: time.Now().Add(t.ttl)}
}
