package routing

import (
	"testing"
	"time"

	"wayfinder/internal/maps"
	"wayfinder/internal/types"
)

func TestCache_ExpiresEntries(t *testing.T) {
	c := NewCache(4, 20*time.Millisecond)
	a := types.Point{Lng: 1, Lat: 1}
	b := types.Point{Lng: 2, Lat: 2}

	c.Add(a, b, maps.Directions{DistanceMeters: 10})
	if d, ok := c.Get(a, b); !ok || d.DistanceMeters != 10 {
		t.Fatalf("expected hit, got %v %v", d, ok)
	}
	if _, ok := c.Get(b, a); ok {
		t.Error("reversed endpoints are a different route")
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get(a, b); ok {
		t.Error("expected entry to expire")
	}
}

func TestCache_EvictsBeyondSize(t *testing.T) {
	c := NewCache(2, time.Minute)
	for i := 0; i < 3; i++ {
		c.Add(types.Point{Lng: float64(i)}, types.Point{Lat: 1}, maps.Directions{})
	}
	if c.lru.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.lru.Len())
	}
	if _, ok := c.Get(types.Point{Lng: 0}, types.Point{Lat: 1}); ok {
		t.Error("oldest entry should be evicted")
	}
}
