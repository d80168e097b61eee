package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Errorf("http.addr = %q", cfg.HTTP.Addr)
	}
	if cfg.Routing.Fallback {
		t.Error("straight-line fallback must be opt-in")
	}
	if cfg.Interaction.SearchDebounce != 300*time.Millisecond {
		t.Errorf("search debounce = %v", cfg.Interaction.SearchDebounce)
	}
	if cfg.Position.Timeout != 10*time.Second || cfg.Position.MaxAge != 10*time.Minute {
		t.Errorf("position config = %+v", cfg.Position)
	}
	if cfg.Routing.CacheTTL != 5*time.Minute || cfg.Routing.CacheSize != 256 {
		t.Errorf("routing cache config = %+v", cfg.Routing)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WAYFINDER_ROUTING_FALLBACK", "true")
	t.Setenv("WAYFINDER_INTERACTION_SEARCH_DEBOUNCE", "150ms")
	t.Setenv("WAYFINDER_HTTP_ADDR", ":9090")
	t.Setenv("WAYFINDER_ROUTING_FALLBACK_SPEED_KMH", "50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Routing.Fallback {
		t.Error("fallback override ignored")
	}
	if cfg.Interaction.SearchDebounce != 150*time.Millisecond {
		t.Errorf("debounce override ignored: %v", cfg.Interaction.SearchDebounce)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("addr override ignored: %q", cfg.HTTP.Addr)
	}
	if cfg.Routing.FallbackSpeedKmh != 50 {
		t.Errorf("speed override ignored: %v", cfg.Routing.FallbackSpeedKmh)
	}
}

func TestLoad_GoogleRequiresKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("WAYFINDER_ROUTING_PROVIDER", "google")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "google.api_key") {
		t.Fatalf("expected missing api key error, got %v", err)
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"http.addr", "log.level", "geocoding.provider", "routing.provider", "position.timeout"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s:\n%s", want, err)
		}
	}
}
