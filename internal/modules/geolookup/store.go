// README: Geocode cache backed by Redis string keys with TTL.
package geolookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"wayfinder/internal/types"
)

const (
	reverseKeyPrefix = "geolookup:reverse:%.6f:%.6f"
	searchKeyPrefix  = "geolookup:search:%d:%s"
	defaultTTL       = 24 * time.Hour
)

// Cache is the lookup cache used by Service. Misses return ok=false with a nil error.
type Cache interface {
	GetReverse(ctx context.Context, p types.Point) (Entry, bool, error)
	PutReverse(ctx context.Context, p types.Point, place Entry) error
	GetSearch(ctx context.Context, query string, limit int) ([]Entry, bool, error)
	PutSearch(ctx context.Context, query string, limit int, places []Entry) error
}

type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStore(redis *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Store{redis: redis, ttl: ttl}
}

func (s *Store) GetReverse(ctx context.Context, p types.Point) (Entry, bool, error) {
	var c Entry
	ok, err := s.getJSON(ctx, reverseKey(p), &c)
	return c, ok, err
}

func (s *Store) PutReverse(ctx context.Context, p types.Point, place Entry) error {
	return s.setJSON(ctx, reverseKey(p), place)
}

func (s *Store) GetSearch(ctx context.Context, query string, limit int) ([]Entry, bool, error) {
	var c []Entry
	ok, err := s.getJSON(ctx, searchKey(query, limit), &c)
	return c, ok, err
}

func (s *Store) PutSearch(ctx context.Context, query string, limit int, places []Entry) error {
	return s.setJSON(ctx, searchKey(query, limit), places)
}

func (s *Store) getJSON(ctx context.Context, key string, out any) (bool, error) {
	raw, err := s.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		// Unreadable entries are dropped so the next lookup repopulates them.
		_ = s.redis.Del(ctx, key).Err()
		return false, fmt.Errorf("decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, raw, s.ttl).Err()
}

func reverseKey(p types.Point) string {
	return fmt.Sprintf(reverseKeyPrefix, p.Lng, p.Lat)
}

func searchKey(query string, limit int) string {
	return fmt.Sprintf(searchKeyPrefix, limit, normalizeQuery(query))
}

// normalizeQuery lowercases and collapses whitespace so "Central  Park" and
// "central park" share an entry.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}
