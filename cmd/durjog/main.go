package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/durjog/durjog-map/internal/adapter/http"
	kafkaadapter "github.com/durjog/durjog-map/internal/adapter/kafka"
	"github.com/durjog/durjog-map/internal/adapter/mapbox"
	mongoadapter "github.com/durjog/durjog-map/internal/adapter/mongo"
	redisadapter "github.com/durjog/durjog-map/internal/adapter/redis"
	"github.com/durjog/durjog-map/internal/auth"
	"github.com/durjog/durjog-map/internal/config"
	"github.com/durjog/durjog-map/internal/observability"
	"github.com/durjog/durjog-map/internal/pipeline"
	"github.com/durjog/durjog-map/internal/refresh"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles, err := config.LoadViewProfiles(cfg.ViewProfilesFile)
	if err != nil {
		return err
	}

	mongoClient, err := mongoadapter.Connect(ctx, cfg.MongoURI, cfg.MongoTimeout)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logger.Error("mongo disconnect error", "error", err)
		}
	}()

	store := mongoadapter.NewStore(mongoClient.Database(cfg.MongoDatabase), cfg.ReportListLimit, logger)
	if err := store.EnsureIndexes(ctx); err != nil {
		return err
	}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var opts []refresh.Option
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			return err
		}
		opts = append(opts, refresh.WithGeocoder(geocoder))
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var snapshots *redisadapter.SnapshotStore
	if cfg.RedisAddr != "" {
		rdb := redisadapter.NewClient(cfg.RedisAddr)
		defer rdb.Close()
		snapshots = redisadapter.NewSnapshotStore(rdb, cfg.RedisSnapshotKey, 3*cfg.RefreshInterval, logger)
		opts = append(opts, refresh.WithSinks(snapshots))
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		opts = append(opts, refresh.WithSinks(writer))
	}

	refresher, err := refresh.New(store, profiles, cfg.RefreshInterval, logger, metrics, opts...)
	if err != nil {
		return err
	}
	if snapshots != nil {
		restoreSnapshot(ctx, refresher, snapshots, logger)
	}

	deps := httpadapter.Deps{
		Reports:  store,
		Content:  store,
		Clusters: refresher,
		Ready:    []httpadapter.ReadinessChecker{store, refresher},
	}
	if snapshots != nil {
		deps.Ready = append(deps.Ready, snapshots)
	}
	if cfg.AuthJWTSecret != "" {
		deps.Verifier = auth.NewVerifier(cfg.AuthJWTSecret, nil)
	} else {
		logger.Warn("AUTH_JWT_SECRET not set, report edits are unauthenticated")
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, deps, logger, metrics)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start the refresh loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := refresher.Run(ctx); err != nil {
			logger.Error("refresher error", "error", err)
		}
	}()

	// Start the ingest pipeline when Kafka is configured.
	var reader *kafkaadapter.Reader
	if cfg.KafkaEnabled() {
		reader = kafkaadapter.NewReader(cfg, logger)
		p := pipeline.New(reader, pipeline.NewTransformer(), store, logger, metrics, cfg.BatchSize,
			pipeline.WithOnStored(func(int) { refresher.Trigger() }))
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
			logger.Info("ingest pipeline stopped", "stored_any", p.Ready())
		}()
	} else {
		logger.Info("kafka disabled, report ingest topic not consumed")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("refresher did not stop before shutdown timeout")
	}

	logger.Info("shutdown complete")
	return nil
}

// restoreSnapshot seeds the refresher with the last published snapshot so
// the map is served immediately after a restart.
func restoreSnapshot(ctx context.Context, r *refresh.Refresher, s *redisadapter.SnapshotStore, logger *slog.Logger) {
	loadCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	snap, err := s.LoadSnapshot(loadCtx)
	if err != nil {
		logger.Warn("load cached snapshot failed", "error", err)
		return
	}
	if snap == nil {
		return
	}
	if r.Restore(snap) {
		logger.Info("restored cached snapshot", "snapshot_id", snap.ID, "taken_at", snap.TakenAt.Format(time.RFC3339))
	}
}
