package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"wayfinder/internal/metrics"
	"wayfinder/internal/types"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

type NominatimConfig struct {
	BaseURL   string
	UserAgent string
	Language  string
	// RatePerSecond caps outgoing requests; the public instance allows one per second.
	RatePerSecond float64
	Timeout       time.Duration
}

// Nominatim is a Geocoder backed by the OpenStreetMap Nominatim HTTP API.
type Nominatim struct {
	client    *http.Client
	baseURL   string
	userAgent string
	language  string
	limiter   *rate.Limiter
	log       *zap.Logger
}

func NewNominatim(cfg NominatimConfig, log *zap.Logger) *Nominatim {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultNominatimURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "wayfinder/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Nominatim{
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		language:  cfg.Language,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log,
	}
}

// nominatimPlace mirrors the parts of the jsonv2 search/reverse payload we use.
type nominatimPlace struct {
	PlaceID     int64  `json:"place_id"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (n *Nominatim) Search(ctx context.Context, query string, limit int) (_ []Place, err error) {
	defer metrics.ObserveProvider("nominatim", "search", time.Now(), &err)

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(clampLimit(limit)))

	var raw []nominatimPlace
	if err := n.get(ctx, "/search", params, &raw); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		p, err := r.toPlace()
		if err != nil {
			n.log.Warn("skipping malformed nominatim result", zap.Int64("place_id", r.PlaceID), zap.Error(err))
			continue
		}
		if r.Name != "" {
			p.Name = r.Name
		}
		places = append(places, p)
	}
	return places, nil
}

func (n *Nominatim) Reverse(ctx context.Context, pt types.Point) (_ *Place, err error) {
	defer metrics.ObserveProvider("nominatim", "reverse", time.Now(), &err)

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(pt.Lat, 'f', 6, 64))
	params.Set("lon", strconv.FormatFloat(pt.Lng, 'f', 6, 64))
	params.Set("format", "jsonv2")

	var raw nominatimPlace
	if err := n.get(ctx, "/reverse", params, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, raw.Error)
	}
	p, err := raw.toPlace()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (n *Nominatim) get(ctx context.Context, path string, params url.Values, out any) error {
	if n.language != "" {
		params.Set("accept-language", n.language)
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", n.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", n.userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: nominatim status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode nominatim payload: %v", ErrUnavailable, err)
	}
	return nil
}

func (r nominatimPlace) toPlace() (Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("%w: invalid latitude %q", ErrUnavailable, r.Lat)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("%w: invalid longitude %q", ErrUnavailable, r.Lon)
	}
	if strings.TrimSpace(r.DisplayName) == "" {
		return Place{}, fmt.Errorf("%w: empty display name", ErrUnavailable)
	}
	name, address := SplitDisplayName(r.DisplayName)
	return Place{
		ProviderID: strconv.FormatInt(r.PlaceID, 10),
		Name:       name,
		Address:    address,
		Position:   types.Point{Lng: lon, Lat: lat},
	}, nil
}
