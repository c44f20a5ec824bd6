package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/bike-crash-explorer/internal/adapter/http"
	"github.com/couchcryptid/bike-crash-explorer/internal/adapter/tiles"
	"github.com/couchcryptid/bike-crash-explorer/internal/config"
	"github.com/couchcryptid/bike-crash-explorer/internal/dataset"
	"github.com/couchcryptid/bike-crash-explorer/internal/geo"
	"github.com/couchcryptid/bike-crash-explorer/internal/observability"
	"github.com/couchcryptid/bike-crash-explorer/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	projector, err := geo.NewProjector(cfg.GeoBounds)
	if err != nil {
		logger.Error("invalid geographic bounds", "error", err)
		os.Exit(1)
	}

	opts := dataset.Options{LatField: cfg.LatField, LonField: cfg.LonField}
	store := dataset.NewStore(cfg.DataPath, opts, projector, clock, metrics, logger)

	// The viewer has nothing to show without data, so a failed first load is fatal.
	if err := store.Init(context.Background()); err != nil {
		logger.Error("failed to load dataset", "path", cfg.DataPath, "error", err)
		os.Exit(1)
	}

	p := pipeline.New(store, projector, cfg.GridSize, clock, logger, metrics)

	// Basemap tiles are feature-flagged via TILES_ENABLED.
	var fetcher tiles.Fetcher
	if cfg.TilesEnabled {
		client := tiles.NewClient(cfg.TilesTimeout, metrics, logger)
		fetcher = tiles.NewCachedClient(client, cfg.TilesCacheSize, metrics)
		metrics.TilesEnabled.Set(1)
		logger.Info("basemap tiles enabled", "cache_size", cfg.TilesCacheSize, "timeout", cfg.TilesTimeout)
	} else {
		metrics.TilesEnabled.Set(0)
		logger.Info("basemap tiles disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, httpadapter.Options{
		BasemapStyle: cfg.BasemapStyle,
		DarkMode:     cfg.DarkMode,
		Tiles:        fetcher,
		TilesMax:     cfg.TilesMax,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// SIGHUP re-reads the dataset file in place.
	g.Go(func() error {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				if _, err := p.Reload(gctx); err != nil {
					logger.Warn("keeping previous dataset", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server error", "error", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already called

	}
	logger.Info("shutdown complete")
}
