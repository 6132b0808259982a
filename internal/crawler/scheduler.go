package crawler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/osumirror/osu-mirror/internal/db"
	"github.com/osumirror/osu-mirror/internal/metrics"
)

// workerSpec pins one sync worker: a persistent cursor id, the raw upstream
// query it walks, and its interval as a multiple of the base interval (or an
// absolute override).
type workerSpec struct {
	id       string
	query    string
	multiple int
	override time.Duration
}

var workers = []workerSpec{
	{id: "ranked_sync", query: "status=ranked", multiple: 1},
	{id: "loved_sync", query: "status=loved", multiple: 2},
	{id: "qualified_sync", query: "status=qualified", multiple: 1},
	{id: "pending_sync", query: "status=pending", multiple: 2},
	{id: "graveyard_sync", query: "status=graveyard&sort=updated_asc", multiple: 3},
	{id: "any_updated_desc_sync", query: "sort=updated_desc", override: 30 * time.Second},
	{id: "any_updated_asc_sync", query: "sort=updated_asc", multiple: 3},
}

// Scheduler runs the sync workers until its context is cancelled.
type Scheduler struct {
	store  *db.Store
	client searcher
	log    zerolog.Logger
	base   time.Duration
}

func NewScheduler(store *db.Store, client searcher, base time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		client: client,
		log:    log.With().Str("component", "crawler").Logger(),
		base:   base,
	}
}

// Start launches one goroutine per worker and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info().Dur("base_interval", s.base).Msg("starting sync scheduler")
	for _, w := range workers {
		interval := w.override
		if interval == 0 {
			interval = s.base * time.Duration(w.multiple)
		}
		s.log.Info().Str("worker", w.id).Str("query", w.query).Dur("interval", interval).Msg("spawning worker")
		go s.run(ctx, w, interval)
	}
}

// run loops one worker. The first delivered tick is discarded so the first
// cycle happens two intervals after start, staggering the initial burst of
// upstream calls behind the budget's first refill.
func (s *Scheduler) run(ctx context.Context, w workerSpec, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	select {
	case <-ctx.Done():
		return
	case <-ticker.C:
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := s.cycle(ctx, w); err != nil {
			s.log.Error().Str("worker", w.id).Str("query", w.query).Err(err).Msg("sync cycle failed")
			metrics.SyncCyclesTotal.WithLabelValues(w.id, "error").Inc()
			continue
		}
		s.log.Info().Str("worker", w.id).Str("query", w.query).Msg("sync cycle completed")
		metrics.SyncCyclesTotal.WithLabelValues(w.id, "ok").Inc()
	}
}

// cycle loads the worker's cursor, syncs one page and persists the new
// cursor. A failed page leaves the stored cursor untouched so the next cycle
// retries the same page.
func (s *Scheduler) cycle(ctx context.Context, w workerSpec) error {
	cursor, err := s.store.LoadCursor(ctx, w.id)
	if err != nil {
		return err
	}
	next, err := syncPage(ctx, s.store, s.client, s.log, w.query, cursor)
	if err != nil {
		return err
	}
	return s.store.SaveCursor(ctx, w.id, next)
}
