// README: GeoLookup service resolves clicks, GPS fixes and free text to Locations.
package geolookup

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"wayfinder/internal/geo"
	"wayfinder/internal/maps"
	"wayfinder/internal/metrics"
	"wayfinder/internal/types"
)

// DefaultLimit is the candidate count used when callers pass no limit.
const DefaultLimit = maps.MaxCandidates

type Service struct {
	geocoder maps.Geocoder
	cache    Cache
	log      *zap.Logger
}

// NewService wires a geocoder with an optional cache (nil disables caching).
func NewService(geocoder maps.Geocoder, cache Cache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{geocoder: geocoder, cache: cache, log: log}
}

// ReverseGeocode never fails. When the provider cannot name the point, the
// returned Location is named after the formatted coordinates. The result's
// Coordinates always equal p.
func (s *Service) ReverseGeocode(ctx context.Context, p types.Point) Location {
	if entry, ok := s.cachedReverse(ctx, p); ok {
		loc := entry.location()
		loc.Coordinates = p
		return loc
	}

	place, err := s.geocoder.Reverse(ctx, p)
	if err == nil && strings.TrimSpace(place.Name) == "" {
		err = fmt.Errorf("empty place name for %s", p)
	}
	if err != nil {
		s.log.Warn("reverse geocode failed, using coordinates",
			zap.Stringer("point", p), zap.Error(fmt.Errorf("%w: %v", ErrLookupFailed, err)))
		return synthesize(p)
	}

	address := place.Address
	if address == "" {
		address = place.Name
	}
	entry := Entry{Name: place.Name, Address: address, Point: p, ProviderID: place.ProviderID}
	if s.cache != nil {
		if err := s.cache.PutReverse(ctx, p, entry); err != nil {
			s.log.Warn("geocode cache write failed", zap.Error(err))
		}
	}
	return entry.location()
}

// SearchCandidates returns at most limit candidates in provider rank order.
// Blank queries return nothing without calling the provider; provider errors
// are logged and also return nothing.
func (s *Service) SearchCandidates(ctx context.Context, query string, limit int) []Location {
	if strings.TrimSpace(query) == "" {
		return []Location{}
	}
	if limit <= 0 || limit > maps.MaxCandidates {
		limit = DefaultLimit
	}

	if entries, ok := s.cachedSearch(ctx, query, limit); ok {
		return locations(entries)
	}

	places, err := s.geocoder.Search(ctx, query, limit)
	if err != nil {
		s.log.Warn("candidate search failed",
			zap.String("query", query), zap.Error(fmt.Errorf("%w: %v", ErrLookupFailed, err)))
		return []Location{}
	}
	if len(places) > limit {
		places = places[:limit]
	}

	entries := make([]Entry, 0, len(places))
	for _, p := range places {
		address := p.Address
		if address == "" {
			address = p.Name
		}
		entries = append(entries, Entry{Name: p.Name, Address: address, Point: p.Position, ProviderID: p.ProviderID})
	}
	if s.cache != nil && len(entries) > 0 {
		if err := s.cache.PutSearch(ctx, query, limit, entries); err != nil {
			s.log.Warn("geocode cache write failed", zap.Error(err))
		}
	}
	return locations(entries)
}

func (s *Service) cachedReverse(ctx context.Context, p types.Point) (Entry, bool) {
	if s.cache == nil {
		return Entry{}, false
	}
	entry, ok, err := s.cache.GetReverse(ctx, p)
	if err != nil {
		s.log.Warn("geocode cache read failed", zap.Error(err))
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues("geocode_reverse").Inc()
		return Entry{}, false
	}
	metrics.CacheHits.WithLabelValues("geocode_reverse").Inc()
	return entry, true
}

func (s *Service) cachedSearch(ctx context.Context, query string, limit int) ([]Entry, bool) {
	if s.cache == nil {
		return nil, false
	}
	entries, ok, err := s.cache.GetSearch(ctx, query, limit)
	if err != nil {
		s.log.Warn("geocode cache read failed", zap.Error(err))
	}
	if !ok {
		metrics.CacheMisses.WithLabelValues("geocode_search").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("geocode_search").Inc()
	return entries, true
}

// synthesize builds the stand-in Location used when a point cannot be named.
func synthesize(p types.Point) Location {
	label := geo.FormatCoordinates(p)
	return Location{ID: newID(), Name: label, Address: label, Coordinates: p}
}

func locations(entries []Entry) []Location {
	out := make([]Location, len(entries))
	for i, e := range entries {
		out[i] = e.location()
	}
	return out
}
