// README: Entry point; loads config, wires providers and sessions, serves HTTP until signalled.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"wayfinder/internal/config"
	httptransport "wayfinder/internal/http"
	"wayfinder/internal/infra"
	"wayfinder/internal/maps"
	"wayfinder/internal/modules/geolookup"
	"wayfinder/internal/modules/history"
	"wayfinder/internal/modules/interaction"
	"wayfinder/internal/modules/position"
	"wayfinder/internal/modules/routing"
	"wayfinder/internal/modules/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := infra.NewLogger(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	geocoder, err := newGeocoder(cfg, log)
	if err != nil {
		log.Fatal("geocoder init failed", zap.Error(err))
	}
	router, err := newRouter(cfg, log)
	if err != nil {
		log.Fatal("router init failed", zap.Error(err))
	}

	var geoCache geolookup.Cache
	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Warn("redis unavailable, geocode cache disabled", zap.Error(err))
		} else {
			defer func() { _ = redisClient.Close() }()
			geoCache = geolookup.NewStore(redisClient, cfg.Geocoding.CacheTTL)
		}
	}
	lookup := geolookup.NewService(geocoder, geoCache, log.Named("geolookup"))

	routes := routing.NewCalculator(router,
		routing.NewCache(cfg.Routing.CacheSize, cfg.Routing.CacheTTL),
		routing.Config{
			Fallback:         cfg.Routing.Fallback,
			FallbackSpeedKmh: cfg.Routing.FallbackSpeedKmh,
			ProviderTimeout:  cfg.Routing.Timeout,
		},
		log.Named("routing"))

	var historySvc *history.Service
	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			log.Fatal("database connection failed", zap.Error(err))
		}
		defer dbPool.Close()

		store := history.NewStore(dbPool)
		if err := store.EnsureSchema(ctx); err != nil {
			log.Fatal("recent searches schema failed", zap.Error(err))
		}
		historySvc = history.NewService(store, log.Named("history"))
	}

	sessions := session.NewManager(lookup, routes, historySvc, session.Config{
		IdleTTL:      cfg.Session.IdleTTL,
		ReapInterval: cfg.Session.ReapInterval,
		Interaction: interaction.Config{
			SearchDebounce: cfg.Interaction.SearchDebounce,
			SearchLimit:    cfg.Interaction.SearchLimit,
		},
		Position: position.Config{Timeout: cfg.Position.Timeout, MaxAge: cfg.Position.MaxAge},
	}, log.Named("session"))
	go sessions.RunReaper(ctx)

	api := httptransport.NewServer(httptransport.ServerDeps{
		Sessions: sessions,
		History:  historySvc,
		Log:      log.Named("http"),
	})
	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("geocoding", cfg.Geocoding.Provider),
			zap.String("routing", cfg.Routing.Provider),
			zap.Bool("fallback", cfg.Routing.Fallback))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}
	sessions.Close(shutdownCtx)
	log.Info("stopped")
}

func newGeocoder(cfg *config.Config, log *zap.Logger) (maps.Geocoder, error) {
	if cfg.Geocoding.Provider == "google" {
		return maps.NewPlacesService(cfg.Google.APIKey, cfg.Geocoding.Language, cfg.Google.Region)
	}
	return maps.NewNominatim(maps.NominatimConfig{
		BaseURL:       cfg.Geocoding.BaseURL,
		UserAgent:     cfg.Geocoding.UserAgent,
		Language:      cfg.Geocoding.Language,
		RatePerSecond: cfg.Geocoding.RatePerSecond,
		Timeout:       cfg.Geocoding.Timeout,
	}, log.Named("nominatim")), nil
}

func newRouter(cfg *config.Config, log *zap.Logger) (maps.Router, error) {
	if cfg.Routing.Provider == "google" {
		return maps.NewRouteService(cfg.Google.APIKey, cfg.Geocoding.Language, cfg.Google.Region)
	}
	return maps.NewOSRM(cfg.Routing.BaseURL, cfg.Routing.Timeout, log.Named("osrm")), nil
}
