package maps

import (
	"context"
	"fmt"
	"strings"
	"time"

	gmaps "googlemaps.github.io/maps"

	"wayfinder/internal/metrics"
	"wayfinder/internal/types"
)

// PlacesService is a Geocoder backed by Google Places text search and
// Google reverse geocoding.
type PlacesService struct {
	client   *gmaps.Client
	language string
	region   string
}

// NewPlacesService creates a new PlacesService with the given API Key.
func NewPlacesService(apiKey, language, region string, opts ...gmaps.ClientOption) (*PlacesService, error) {
	client, err := gmaps.NewClient(append([]gmaps.ClientOption{gmaps.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &PlacesService{client: client, language: language, region: region}, nil
}

// Search runs a text search and keeps Google's ranking, truncated to limit.
func (s *PlacesService) Search(ctx context.Context, query string, limit int) (_ []Place, err error) {
	defer metrics.ObserveProvider("google", "search", time.Now(), &err)

	r := &gmaps.TextSearchRequest{
		Query:    query,
		Language: s.language,
		Region:   s.region,
	}
	resp, err := s.client.TextSearch(ctx, r)
	if err != nil {
		if isZeroResults(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: places api error: %v", ErrUnavailable, err)
	}

	limit = clampLimit(limit)
	var results []Place
	for _, result := range resp.Results {
		name := result.Name
		address := strings.TrimSpace(result.FormattedAddress)
		if address == "" {
			address = name
		}
		if name == "" {
			name, _ = SplitDisplayName(address)
		}
		results = append(results, Place{
			ProviderID: result.PlaceID,
			Name:       name,
			Address:    address,
			Position:   fromLatLng(result.Geometry.Location),
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Reverse resolves p to the most specific address Google knows.
func (s *PlacesService) Reverse(ctx context.Context, p types.Point) (_ *Place, err error) {
	defer metrics.ObserveProvider("google", "reverse", time.Now(), &err)

	results, err := s.client.ReverseGeocode(ctx, &gmaps.GeocodingRequest{
		LatLng:   &gmaps.LatLng{Lat: p.Lat, Lng: p.Lng},
		Language: s.language,
		Region:   s.region,
	})
	if err != nil {
		if isZeroResults(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: geocoding api error: %v", ErrUnavailable, err)
	}
	if len(results) == 0 || results[0].FormattedAddress == "" {
		return nil, ErrNotFound
	}

	first := results[0]
	name, address := SplitDisplayName(first.FormattedAddress)
	return &Place{
		ProviderID: first.PlaceID,
		Name:       name,
		Address:    address,
		Position:   fromLatLng(first.Geometry.Location),
	}, nil
}

func isZeroResults(err error) bool {
	return strings.Contains(err.Error(), "ZERO_RESULTS")
}
