package geolookup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"wayfinder/internal/types"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, ttl), mr
}

func TestStore_ReverseRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Minute)
	p := types.Point{Lng: -74.0, Lat: 40.71}

	if _, ok, err := s.GetReverse(ctx, p); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	want := Entry{Name: "123 Main St", Address: "123 Main St, NYC", Point: p}
	if err := s.PutReverse(ctx, p, want); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.GetReverse(ctx, p)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	// Sub-micro-degree jitter shares the entry.
	if _, ok, _ := s.GetReverse(ctx, types.Point{Lng: -74.0000001, Lat: 40.7100001}); !ok {
		t.Error("expected rounded coordinates to hit")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := s.GetReverse(ctx, p); ok {
		t.Error("expected entry to expire")
	}
}

func TestStore_SearchNormalization(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, 0)
	entries := []Entry{{Name: "Central Park"}, {Name: "Central Park Zoo"}}

	if err := s.PutSearch(ctx, "Central Park", 5, entries); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.GetSearch(ctx, "central  park", 5)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(got) != 2 || got[1].Name != "Central Park Zoo" {
		t.Errorf("unexpected entries %+v", got)
	}
	if _, ok, _ := s.GetSearch(ctx, "central park", 3); ok {
		t.Error("different limits must not share an entry")
	}
}

func TestStore_CorruptEntryIsDropped(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t, time.Minute)
	p := types.Point{Lng: 1, Lat: 2}

	if err := mr.Set(reverseKey(p), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, ok, err := s.GetReverse(ctx, p); ok || err == nil {
		t.Fatalf("expected decode error, got ok=%v err=%v", ok, err)
	}
	if mr.Exists(reverseKey(p)) {
		t.Error("corrupt entry should be deleted")
	}
}
