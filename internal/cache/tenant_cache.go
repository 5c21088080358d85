// Package cache provides a Redis-backed lookaside cache for institute
// lookups by subdomain. The cache is optional; a nil client disables it and
// every method degrades to a miss.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gwon-omega/eduflow-server/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const subdomainKeyPrefix = "tenant:subdomain:"

// TenantCache caches institute rows keyed by subdomain.
type TenantCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTenantCache builds a cache over client. client may be nil.
func NewTenantCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *TenantCache {
	return &TenantCache{
		client: client,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "tenant_cache")),
	}
}

// GetBySubdomain returns the cached institute for subdomain, or (nil, false)
// on a miss. Cache errors are logged and treated as misses.
func (c *TenantCache) GetBySubdomain(ctx context.Context, subdomain string) (*model.Institute, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, subdomainKeyPrefix+subdomain).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("Tenant cache read failed", zap.String("subdomain", subdomain), zap.Error(err))
		}
		return nil, false
	}

	var inst model.Institute
	if err := json.Unmarshal(raw, &inst); err != nil {
		c.logger.Warn("Tenant cache entry corrupt", zap.String("subdomain", subdomain), zap.Error(err))
		return nil, false
	}
	return &inst, true
}

// SetBySubdomain stores the institute under its subdomain with the cache TTL.
func (c *TenantCache) SetBySubdomain(ctx context.Context, inst *model.Institute) {
	if c == nil || c.client == nil || inst == nil {
		return
	}

	raw, err := json.Marshal(inst)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, subdomainKeyPrefix+inst.Subdomain, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Tenant cache write failed", zap.String("subdomain", inst.Subdomain), zap.Error(err))
	}
}

// Invalidate drops the cached entry for subdomain, e.g. after settings or
// status changes.
func (c *TenantCache) Invalidate(ctx context.Context, subdomain string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, subdomainKeyPrefix+subdomain).Err(); err != nil {
		c.logger.Warn("Tenant cache invalidation failed", zap.String("subdomain", subdomain), zap.Error(err))
	}
}
