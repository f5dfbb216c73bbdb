// Package cache wraps store repositories with a Redis read-through cache.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"dothework/internal/domain"
	"dothework/internal/store"
)

const keyPrefix = "dothework:catalog:"

// ServiceCache caches the service catalog. Redis failures fall through to
// the wrapped repository.
type ServiceCache struct {
	next store.ServiceRepository
	rdb  redis.Cmdable
	ttl  time.Duration
	log  *slog.Logger
}

func NewServiceCache(next store.ServiceRepository, rdb redis.Cmdable, ttl time.Duration, log *slog.Logger) *ServiceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &ServiceCache{
		next: next,
		rdb:  rdb,
		ttl:  ttl,
		log:  log.With(slog.String("component", "cache.services")),
	}
}

func serviceKey(id uuid.UUID) string {
	return keyPrefix + "service:" + id.String()
}

func listKey(activeOnly bool) string {
	if activeOnly {
		return keyPrefix + "list:active"
	}
	return keyPrefix + "list:all"
}

func (c *ServiceCache) ListServices(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	key := listKey(activeOnly)
	var cached []domain.Service
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := c.next.ListServices(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, rows)
	return rows, nil
}

func (c *ServiceCache) GetService(ctx context.Context, serviceID uuid.UUID) (domain.Service, error) {
	key := serviceKey(serviceID)
	var cached domain.Service
	if c.load(ctx, key, &cached) {
		return cached, nil
	}

	s, err := c.next.GetService(ctx, serviceID)
	if err != nil {
		return domain.Service{}, err
	}
	c.store(ctx, key, s)
	return s, nil
}

func (c *ServiceCache) UpsertService(ctx context.Context, s domain.Service) (domain.Service, error) {
	saved, err := c.next.UpsertService(ctx, s)
	if err != nil {
		return domain.Service{}, err
	}
	if err := c.rdb.Del(ctx, serviceKey(saved.ID), listKey(true), listKey(false)).Err(); err != nil {
		c.log.Warn("cache invalidation failed", slog.Any("err", err), slog.String("service_id", saved.ID.String()))
	}
	return saved, nil
}

func (c *ServiceCache) load(ctx context.Context, key string, dst any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("cache read failed", slog.Any("err", err), slog.String("key", key))
		}
		return false
	}
	if err := msgpack.Unmarshal(raw, dst); err != nil {
		c.log.Warn("cache entry undecodable", slog.Any("err", err), slog.String("key", key))
		return false
	}
	return true
}

func (c *ServiceCache) store(ctx context.Context, key string, v any) {
	raw, err := msgpack.Marshal(v)
	if err != nil {
		c.log.Warn("cache encode failed", slog.Any("err", err), slog.String("key", key))
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", slog.Any("err", err), slog.String("key", key))
	}
}
