// README: Bench cases: environment checks, the click/search/directions flow, and a click load test.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer func() { _ = r.redis.Close() }()
	}

	cases := r.cases()
	results := make([]Result, 0, len(cases))
	for _, tc := range cases {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency.Round(time.Millisecond))
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres reachable, recent_searches present", Run: checkHistoryTable},
		{Name: "Env: Redis reachable", Run: checkRedis},
		{Name: "API: health", Run: checkHealth},
		{Name: "Flow: click selects a location", Run: clickFlow},
		{Name: "Flow: search returns candidates", Run: searchFlow},
		{Name: "Flow: directions between two candidates", Run: directionsFlow},
		{Name: "API: unknown session -> 404", Run: unknownSession},
		{Name: "Perf: concurrent map clicks", Run: clickLoad},
	}
}

func checkHistoryTable(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var exists bool
	err := r.db.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'recent_searches')",
	).Scan(&exists)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if !exists {
		return Result{Status: statusFail, Note: "missing table: recent_searches"}
	}
	return Result{Status: statusPass}
}

func checkRedis(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	n, _ := r.redis.Keys(ctx, "geolookup:*").Result()
	return Result{Status: statusPass, Note: fmt.Sprintf("cached_geocodes=%d", len(n))}
}

func checkHealth(ctx context.Context, r *Runner) Result {
	start := time.Now()
	status, _, err := r.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if status != http.StatusOK {
		return Result{Status: statusFail, Note: fmt.Sprintf("status=%d", status)}
	}
	return Result{Status: statusPass, Latency: time.Since(start)}
}

func clickFlow(ctx context.Context, r *Runner) Result {
	id, err := r.createSession(ctx)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	defer r.deleteSession(ctx, id)

	start := time.Now()
	if err := r.expect(ctx, http.MethodPost, "/api/sessions/"+id+"/click",
		map[string]float64{"lng": r.cfg.CenterLng, "lat": r.cfg.CenterLat}, http.StatusAccepted); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	b, err := r.awaitOutbox(ctx, id, func(b outboxBatch) bool { return b.has("set_marker") })
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	return Result{Status: statusPass, Latency: time.Since(start), Note: fmt.Sprintf("effects=%d", len(b.Effects))}
}

func searchFlow(ctx context.Context, r *Runner) Result {
	id, err := r.createSession(ctx)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	defer r.deleteSession(ctx, id)

	start := time.Now()
	if err := r.expect(ctx, http.MethodPost, "/api/sessions/"+id+"/search",
		map[string]string{"text": "Central Park"}, http.StatusAccepted); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	b, err := r.awaitOutbox(ctx, id, func(b outboxBatch) bool { return b.Candidates != nil })
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if len(b.Candidates.Candidates) > 5 {
		return Result{Status: statusFail, Note: fmt.Sprintf("candidates=%d exceeds 5", len(b.Candidates.Candidates))}
	}
	return Result{Status: statusPass, Latency: time.Since(start), Note: fmt.Sprintf("candidates=%d", len(b.Candidates.Candidates))}
}

func directionsFlow(ctx context.Context, r *Runner) Result {
	id, err := r.createSession(ctx)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	defer r.deleteSession(ctx, id)
	base := "/api/sessions/" + id

	if err := r.expect(ctx, http.MethodPost, base+"/search", map[string]string{"text": "Central"}, http.StatusAccepted); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	b, err := r.awaitOutbox(ctx, id, func(b outboxBatch) bool { return b.Candidates != nil })
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if len(b.Candidates.Candidates) < 2 {
		return Result{Status: statusSkip, Note: "need two candidates"}
	}

	steps := []struct {
		method, path string
		body         any
		want         int
	}{
		{http.MethodPost, base + "/directions/open", nil, http.StatusOK},
		{http.MethodPut, base + "/directions/origin", map[string]int{"candidate": 0}, http.StatusOK},
		{http.MethodPut, base + "/directions/destination", map[string]int{"candidate": 1}, http.StatusOK},
		{http.MethodPost, base + "/directions", nil, http.StatusAccepted},
	}
	start := time.Now()
	for _, s := range steps {
		if err := r.expect(ctx, s.method, s.path, s.body, s.want); err != nil {
			return Result{Status: statusFail, Note: err.Error()}
		}
	}
	b, err = r.awaitOutbox(ctx, id, func(b outboxBatch) bool { return b.has("draw_polyline") || len(b.Notices) > 0 })
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if !b.has("draw_polyline") {
		return Result{Status: statusFail, Note: "notice: " + b.Notices[0].Kind}
	}
	return Result{Status: statusPass, Latency: time.Since(start)}
}

func unknownSession(ctx context.Context, r *Runner) Result {
	status, _, err := r.do(ctx, http.MethodGet, "/api/sessions/00000000-0000-4000-8000-000000000000/state", nil)
	if err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if status != http.StatusNotFound {
		return Result{Status: statusFail, Note: fmt.Sprintf("status=%d", status)}
	}
	return Result{Status: statusPass}
}

// clickLoad runs one session per worker, clicking random points near the center.
func clickLoad(ctx context.Context, r *Runner) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	var mu sync.Mutex
	var latencies []time.Duration

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.cfg.Concurrency; i++ {
		g.Go(func() error {
			id, err := r.createSession(gctx)
			if err != nil {
				return err
			}
			defer r.deleteSession(context.WithoutCancel(gctx), id)

			for time.Now().Before(end) && gctx.Err() == nil {
				p := map[string]float64{
					"lng": r.cfg.CenterLng + (rand.Float64()-0.5)*0.02,
					"lat": r.cfg.CenterLat + (rand.Float64()-0.5)*0.02,
				}
				start := time.Now()
				if err := r.expect(gctx, http.MethodPost, "/api/sessions/"+id+"/click", p, http.StatusAccepted); err != nil {
					errCount.Add(1)
					continue
				}
				count.Add(1)
				mu.Lock()
				latencies = append(latencies, time.Since(start))
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{Status: statusFail, Note: err.Error()}
	}
	if count.Load() == 0 {
		return Result{Status: statusFail, Note: "no requests completed"}
	}
	slices.Sort(latencies)
	p95 := latencies[len(latencies)*95/100]
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: statusPass, Note: fmt.Sprintf("rps=%.1f p95=%s errors=%d", rps, p95.Round(time.Millisecond), errCount.Load())}
}

type outboxBatch struct {
	Effects []struct {
		Kind string `json:"kind"`
	} `json:"effects"`
	Notices []struct {
		Kind string `json:"kind"`
	} `json:"notices"`
	Candidates *struct {
		Candidates []json.RawMessage `json:"candidates"`
	} `json:"candidates"`
}

func (b outboxBatch) has(kind string) bool {
	for _, e := range b.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// awaitOutbox drains the outbox until cond holds on the accumulated batches.
func (r *Runner) awaitOutbox(ctx context.Context, id string, cond func(outboxBatch) bool) (outboxBatch, error) {
	var acc outboxBatch
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		status, body, err := r.do(ctx, http.MethodGet, "/api/sessions/"+id+"/outbox", nil)
		if err != nil {
			return acc, err
		}
		if status != http.StatusOK {
			return acc, fmt.Errorf("outbox status=%d", status)
		}
		var b outboxBatch
		if err := json.Unmarshal(body, &b); err != nil {
			return acc, fmt.Errorf("decode outbox: %w", err)
		}
		acc.Effects = append(acc.Effects, b.Effects...)
		acc.Notices = append(acc.Notices, b.Notices...)
		if b.Candidates != nil {
			acc.Candidates = b.Candidates
		}
		if cond(acc) {
			return acc, nil
		}
		select {
		case <-ctx.Done():
			return acc, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
	return acc, fmt.Errorf("outbox condition not met within 10s")
}

func (r *Runner) createSession(ctx context.Context) (string, error) {
	status, body, err := r.do(ctx, http.MethodPost, "/api/sessions", nil)
	if err != nil {
		return "", err
	}
	if status != http.StatusCreated {
		return "", fmt.Errorf("create session status=%d", status)
	}
	var resp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	return resp.ID, nil
}

func (r *Runner) deleteSession(ctx context.Context, id string) {
	_, _, _ = r.do(ctx, http.MethodDelete, "/api/sessions/"+id, nil)
}

func (r *Runner) expect(ctx context.Context, method, path string, payload any, want int) error {
	status, body, err := r.do(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if status != want {
		return fmt.Errorf("%s %s: status=%d body=%s", method, path, status, bytes.TrimSpace(body))
	}
	return nil
}

func (r *Runner) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, body)
	if err != nil {
		return 0, nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}
