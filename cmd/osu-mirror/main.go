// Command osu-mirror: a read-through caching mirror for osu! beatmapsets.
//
// Serves /d/{id} archive downloads backed by a local or S3 cache with
// multi-mirror failover, v1/v2 metadata APIs over a SQLite catalog, and a
// background crawler that keeps the catalog in sync with the osu! API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/osumirror/osu-mirror/internal/api"
	"github.com/osumirror/osu-mirror/internal/config"
	"github.com/osumirror/osu-mirror/internal/crawler"
	"github.com/osumirror/osu-mirror/internal/db"
	"github.com/osumirror/osu-mirror/internal/mirror"
	"github.com/osumirror/osu-mirror/internal/osuapi"
	"github.com/osumirror/osu-mirror/internal/storage"
)

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}
	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func main() {
	log := newLogger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := db.Open(cfg.Database.URL, cfg.Database.MaxConnections, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer store.Close()

	var archive storage.Store
	switch cfg.Storage.Backend {
	case "s3":
		archive, err = storage.NewS3(ctx, cfg.Storage.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize s3 storage")
		}
	default:
		archive, err = storage.NewLocal(cfg.Storage.Local.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize local storage")
		}
	}
	log.Info().Str("backend", archive.Name()).Msg("storage ready")

	osuClient := osuapi.New(cfg.Osu.ClientID, cfg.Osu.ClientSecret, log)
	osuapi.StartReplenisher(ctx)

	if cfg.Crawler.Enabled {
		interval := time.Duration(cfg.Crawler.SyncIntervalSeconds) * time.Second
		crawler.NewScheduler(store, osuClient, interval, log).Start(ctx)
	} else {
		log.Info().Msg("crawler disabled")
	}

	downloader := mirror.NewDownloader(log)
	server := api.NewServer(cfg, store, archive, osuClient, downloader, log)

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown incomplete")
	}
}
