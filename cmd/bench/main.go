// README: Smoke and load runner against a live wayfinder API; prints one line per case and a summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	cfg := loadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	results := NewRunner(cfg).RunAll(ctx)

	fmt.Println("\n== Summary ==")
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Status]++
	}
	fmt.Printf("PASS=%d FAIL=%d SKIP=%d\n", counts[statusPass], counts[statusFail], counts[statusSkip])

	if counts[statusFail] > 0 || (cfg.Strict && counts[statusSkip] > 0) {
		os.Exit(1)
	}
}

type Config struct {
	BaseURL     string
	DSN         string
	RedisAddr   string
	Strict      bool
	Timeout     time.Duration
	Concurrency int
	Duration    time.Duration
	// Center is the point clicks are scattered around during the load case.
	CenterLng float64
	CenterLat float64
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "base-url", envOr("WAYFINDER_BENCH_BASE_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&cfg.DSN, "dsn", envOr("WAYFINDER_DB_DSN", ""), "Postgres DSN; empty skips the history checks")
	flag.StringVar(&cfg.RedisAddr, "redis", envOr("WAYFINDER_REDIS_ADDR", ""), "Redis address; empty skips the cache checks")
	flag.BoolVar(&cfg.Strict, "strict", envOr("WAYFINDER_BENCH_STRICT", "false") == "true", "Treat skipped cases as failures")
	flag.DurationVar(&cfg.Timeout, "timeout", envDuration("WAYFINDER_BENCH_TIMEOUT", 2*time.Minute), "Total timeout")
	flag.IntVar(&cfg.Concurrency, "concurrency", envInt("WAYFINDER_BENCH_CONCURRENCY", 10), "Concurrent sessions in the load case")
	flag.DurationVar(&cfg.Duration, "duration", envDuration("WAYFINDER_BENCH_DURATION", 10*time.Second), "Duration of the load case")
	flag.Float64Var(&cfg.CenterLng, "lng", -73.9857, "Load case center longitude")
	flag.Float64Var(&cfg.CenterLat, "lat", 40.7484, "Load case center latitude")
	flag.Parse()
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return def
}
