package maps

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gmaps "googlemaps.github.io/maps"

	"wayfinder/internal/types"
)

func newTestPlaces(t *testing.T, h http.HandlerFunc) *PlacesService {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	s, err := NewPlacesService("test-key", "en", "us", gmaps.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new places service: %v", err)
	}
	return s
}

const textSearchSix = `{"status":"OK","results":[
  {"place_id":"p1","name":"Central Park","formatted_address":"New York, NY, USA","geometry":{"location":{"lat":40.7829,"lng":-73.9654}}},
  {"place_id":"p2","name":"","formatted_address":"Central Station, 89 E 42nd St, New York","geometry":{"location":{"lat":40.7527,"lng":-73.9772}}},
  {"place_id":"p3","name":"Central Cafe","formatted_address":"","geometry":{"location":{"lat":40.70,"lng":-74.00}}},
  {"place_id":"p4","name":"Central Library","formatted_address":"Brooklyn, NY","geometry":{"location":{"lat":40.67,"lng":-73.96}}},
  {"place_id":"p5","name":"Central Market","formatted_address":"Queens, NY","geometry":{"location":{"lat":40.74,"lng":-73.86}}},
  {"place_id":"p6","name":"Central Pier","formatted_address":"Staten Island, NY","geometry":{"location":{"lat":40.64,"lng":-74.07}}}
]}`

func TestPlacesSearch(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		limit     int
		wantNames []string
		wantErr   error
	}{
		{
			name:      "keeps rank order and clamps to five",
			body:      textSearchSix,
			limit:     20,
			wantNames: []string{"Central Park", "Central Station", "Central Cafe", "Central Library", "Central Market"},
		},
		{
			name:      "honours a smaller limit",
			body:      textSearchSix,
			limit:     2,
			wantNames: []string{"Central Park", "Central Station"},
		},
		{
			name:      "zero results is an empty answer",
			body:      `{"status":"ZERO_RESULTS","results":[]}`,
			limit:     5,
			wantNames: nil,
		},
		{
			name:    "denied request is unavailable",
			body:    `{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`,
			limit:   5,
			wantErr: ErrUnavailable,
		},
		{
			name:    "garbage body is unavailable",
			body:    `<html>oops</html>`,
			limit:   5,
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/place/textsearch/json") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.Query().Get("query") != "Central" {
					t.Errorf("unexpected query %s", r.URL.RawQuery)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			got, err := s.Search(context.Background(), "Central", tt.limit)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.wantNames) {
				t.Fatalf("expected %d places, got %d: %+v", len(tt.wantNames), len(got), got)
			}
			for i, want := range tt.wantNames {
				if got[i].Name != want {
					t.Errorf("place %d name = %q, want %q", i, got[i].Name, want)
				}
			}
		})
	}
}

func TestPlacesSearch_FieldMapping(t *testing.T) {
	s := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(textSearchSix))
	})
	got, err := s.Search(context.Background(), "Central", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got[0].ProviderID != "p1" || got[0].Address != "New York, NY, USA" {
		t.Errorf("unexpected first place %+v", got[0])
	}
	if got[0].Position != (types.Point{Lng: -73.9654, Lat: 40.7829}) {
		t.Errorf("unexpected position %v", got[0].Position)
	}
	// Blank name falls back to the first segment of the address.
	if got[1].Name != "Central Station" || got[1].Address != "Central Station, 89 E 42nd St, New York" {
		t.Errorf("unexpected nameless place %+v", got[1])
	}
	// Blank address falls back to the name.
	if got[2].Address != "Central Cafe" {
		t.Errorf("unexpected addressless place %+v", got[2])
	}
}

func TestPlacesReverse(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantName string
		wantAddr string
		wantErr  error
	}{
		{
			name:     "splits the formatted address",
			body:     `{"status":"OK","results":[{"place_id":"g1","formatted_address":"123 Main St, NYC","geometry":{"location":{"lat":40.7101,"lng":-74.0002}}}]}`,
			wantName: "123 Main St",
			wantAddr: "123 Main St, NYC",
		},
		{
			name:    "zero results is not found",
			body:    `{"status":"ZERO_RESULTS","results":[]}`,
			wantErr: ErrNotFound,
		},
		{
			name:    "blank address is not found",
			body:    `{"status":"OK","results":[{"place_id":"g1","formatted_address":"","geometry":{"location":{"lat":1,"lng":1}}}]}`,
			wantErr: ErrNotFound,
		},
		{
			name:    "over quota is unavailable",
			body:    `{"status":"OVER_QUERY_LIMIT","results":[]}`,
			wantErr: ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestPlaces(t, func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasSuffix(r.URL.Path, "/geocode/json") {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				if r.URL.Query().Get("latlng") == "" {
					t.Errorf("missing latlng in %s", r.URL.RawQuery)
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})

			p, err := s.Reverse(context.Background(), types.Point{Lng: -74.0, Lat: 40.71})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Name != tt.wantName || p.Address != tt.wantAddr || p.ProviderID != "g1" {
				t.Errorf("unexpected place %+v", p)
			}
		})
	}
}
