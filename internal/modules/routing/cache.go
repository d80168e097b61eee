// README: Short-lived in-memory cache of provider directions keyed by endpoints.
package routing

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"wayfinder/internal/maps"
	"wayfinder/internal/metrics"
	"wayfinder/internal/types"
)

const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

type Cache struct {
	lru *expirable.LRU[string, maps.Directions]
}

func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{lru: expirable.NewLRU[string, maps.Directions](size, nil, ttl)}
}

func (c *Cache) Get(origin, destination types.Point) (maps.Directions, bool) {
	d, ok := c.lru.Get(cacheKey(origin, destination))
	if ok {
		metrics.CacheHits.WithLabelValues("route").Inc()
	} else {
		metrics.CacheMisses.WithLabelValues("route").Inc()
	}
	return d, ok
}

func (c *Cache) Add(origin, destination types.Point, d maps.Directions) {
	c.lru.Add(cacheKey(origin, destination), d)
}

func cacheKey(origin, destination types.Point) string {
	return origin.String() + ";" + destination.String()
}
