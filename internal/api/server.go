// Package api is the HTTP surface of the mirror: the archive download
// pipeline, the legacy v1 metadata API, the modern v2 metadata API and the
// operational endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/osumirror/osu-mirror/internal/config"
	"github.com/osumirror/osu-mirror/internal/crawler"
	"github.com/osumirror/osu-mirror/internal/db"
	"github.com/osumirror/osu-mirror/internal/metrics"
	"github.com/osumirror/osu-mirror/internal/osuapi"
	"github.com/osumirror/osu-mirror/internal/ratelimit"
	"github.com/osumirror/osu-mirror/internal/storage"
)

// Router-level limit applied to every route, matching the public mirror's
// published policy. The config values drive the tighter per-surface limits.
const (
	globalRateMax    = 60
	globalRateWindow = time.Minute

	downloadRateWindow = 10 * time.Minute
)

// upstreamClient is the slice of the osu! API client the handlers need for
// on-demand metadata fill-in.
type upstreamClient interface {
	GetBeatmapset(ctx context.Context, id int64) (*osuapi.Beatmapset, error)
}

// archiveDownloader fetches an archive from the community mirrors.
type archiveDownloader interface {
	Download(ctx context.Context, id int64, noVideo bool) ([]byte, error)
}

type Server struct {
	cfg     *config.Config
	store   *db.Store
	archive storage.Store
	osu     upstreamClient
	mirrors archiveDownloader
	log     zerolog.Logger

	globalLimiter   *ratelimit.Limiter
	apiLimiter      *ratelimit.Limiter
	downloadLimiter *ratelimit.Limiter
}

func NewServer(cfg *config.Config, store *db.Store, archive storage.Store, osu upstreamClient, mirrors archiveDownloader, log zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		store:   store,
		archive: archive,
		osu:     osu,
		mirrors: mirrors,
		log:     log.With().Str("component", "api").Logger(),

		globalLimiter:   ratelimit.New(globalRateMax, globalRateWindow),
		apiLimiter:      ratelimit.New(cfg.RateLimit.RequestsPerMinute, time.Minute),
		downloadLimiter: ratelimit.New(cfg.RateLimit.DownloadsPer10Min, downloadRateWindow),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))
	r.Use(ratelimit.Middleware(s.globalLimiter, s.log, metrics.RateLimitRejectionsTotal.Inc))

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(s.downloadLimiter, s.log, metrics.RateLimitRejectionsTotal.Inc))
		r.Get("/d/{id}", s.handleDownload)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(ratelimit.Middleware(s.apiLimiter, s.log, metrics.RateLimitRejectionsTotal.Inc))
		r.Get("/search", s.handleSearchV1)
		r.Get("/beatmaps/{id}", s.handleBeatmapV1)
		r.Get("/beatmaps/md5/{md5}", s.handleBeatmapByMD5V1)
		r.Get("/beatmapsets/{id}", s.handleBeatmapsetV1)
	})

	r.Route("/v2", func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(ratelimit.Middleware(s.apiLimiter, s.log, metrics.RateLimitRejectionsTotal.Inc))
		r.Get("/search", s.handleSearchV2)
		r.Get("/beatmapsets/{id}", s.handleBeatmapsetV2)
	})

	r.NotFound(s.handleNotFound)
	return r
}

// getOrFetchSet returns the set from the local catalog, falling back to the
// authoritative API on a miss and persisting the result for next time.
// Returns nil when the set does not exist anywhere.
func (s *Server) getOrFetchSet(ctx context.Context, id int64) (*db.Beatmapset, error) {
	set, err := s.store.GetBeatmapset(ctx, id)
	if err != nil {
		return nil, err
	}
	if set != nil {
		return set, nil
	}

	s.log.Info().Int64("set", id).Msg("beatmapset not found locally, fetching from osu! API")
	apiSet, err := s.osu.GetBeatmapset(ctx, id)
	if err != nil {
		s.log.Warn().Int64("set", id).Err(err).Msg("failed to fetch beatmapset from API")
		return nil, nil
	}
	if err := crawler.SaveBeatmapset(ctx, s.store, apiSet); err != nil {
		s.log.Error().Int64("set", id).Err(err).Msg("failed to persist beatmapset metadata")
		return nil, err
	}
	return s.store.GetBeatmapset(ctx, id)
}
