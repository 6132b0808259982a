package crawler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/osumirror/osu-mirror/internal/db"
	"github.com/osumirror/osu-mirror/internal/osuapi"
)

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	s, err := db.Open(":memory:", 1, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strptr(s string) *string { return &s }

func apiSet(id int64) osuapi.Beatmapset {
	return osuapi.Beatmapset{
		ID:      id,
		Title:   "Test Song",
		Artist:  "Test Artist",
		Creator: "mapper",
		Status:  "ranked",
		Beatmaps: []osuapi.Beatmap{
			{ID: id * 10, BeatmapsetID: id, Version: "Normal", Mode: "osu", TotalLength: 120},
		},
	}
}

// fakeSearcher serves scripted pages and records the cursors it was asked for.
type fakeSearcher struct {
	pages   map[string]*osuapi.SearchResponse
	cursors []*string
	err     error
}

func (f *fakeSearcher) SearchBeatmapsets(ctx context.Context, query string, cursor *string) (*osuapi.SearchResponse, error) {
	f.cursors = append(f.cursors, cursor)
	if f.err != nil {
		return nil, f.err
	}
	key := ""
	if cursor != nil {
		key = *cursor
	}
	page, ok := f.pages[key]
	if !ok {
		return &osuapi.SearchResponse{}, nil
	}
	return page, nil
}

func TestSaveBeatmapset_conversion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	set := apiSet(99)
	set.Availability = &osuapi.Availability{DownloadDisabled: true}
	if err := SaveBeatmapset(ctx, store, &set); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetBeatmapset(ctx, 99)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("set not saved")
	}
	if got.Title != "Test Song" || !got.DownloadDisabled {
		t.Errorf("saved = %q disabled=%v", got.Title, got.DownloadDisabled)
	}
	if len(got.Beatmaps) != 1 || got.Beatmaps[0].TotalLength == nil || *got.Beatmaps[0].TotalLength != 120 {
		t.Errorf("beatmaps = %+v", got.Beatmaps)
	}
}

func TestSaveBeatmapset_missingAvailabilityAllowsDownloads(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	set := apiSet(7)
	if err := SaveBeatmapset(ctx, store, &set); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetBeatmapset(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	if got.DownloadDisabled {
		t.Error("missing availability should default to downloads allowed")
	}
}

func TestCycle_advancesCursor(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	first := apiSet(1)
	second := apiSet(2)
	f := &fakeSearcher{pages: map[string]*osuapi.SearchResponse{
		"":      {Beatmapsets: []osuapi.Beatmapset{first}, CursorString: strptr("page2")},
		"page2": {Beatmapsets: []osuapi.Beatmapset{second}, CursorString: strptr("page3")},
	}}
	s := NewScheduler(store, f, time.Minute, zerolog.Nop())
	w := workerSpec{id: "ranked_sync", query: "status=ranked"}

	if err := s.cycle(ctx, w); err != nil {
		t.Fatal(err)
	}
	if err := s.cycle(ctx, w); err != nil {
		t.Fatal(err)
	}

	// The second cycle resumed from the first cycle's cursor.
	if len(f.cursors) != 2 || f.cursors[0] != nil || f.cursors[1] == nil || *f.cursors[1] != "page2" {
		t.Fatalf("cursors seen = %v", f.cursors)
	}
	cur, err := store.LoadCursor(ctx, "ranked_sync")
	if err != nil {
		t.Fatal(err)
	}
	if cur == nil || *cur != "page3" {
		t.Errorf("persisted cursor = %v, want page3", cur)
	}

	for _, id := range []int64{1, 2} {
		got, err := store.GetBeatmapset(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil {
			t.Errorf("set %d not saved", id)
		}
	}
}

func TestCycle_failedSearchKeepsCursor(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	if err := store.SaveCursor(ctx, "ranked_sync", strptr("stay")); err != nil {
		t.Fatal(err)
	}

	f := &fakeSearcher{err: errors.New("upstream down")}
	s := NewScheduler(store, f, time.Minute, zerolog.Nop())
	if err := s.cycle(ctx, workerSpec{id: "ranked_sync", query: "status=ranked"}); err == nil {
		t.Fatal("expected cycle error")
	}
	cur, err := store.LoadCursor(ctx, "ranked_sync")
	if err != nil {
		t.Fatal(err)
	}
	if cur == nil || *cur != "stay" {
		t.Errorf("cursor after failed cycle = %v, want unchanged", cur)
	}
}

// timedSearcher records when each search lands.
type timedSearcher struct {
	mu    sync.Mutex
	times []time.Time
}

func (f *timedSearcher) SearchBeatmapsets(ctx context.Context, query string, cursor *string) (*osuapi.SearchResponse, error) {
	f.mu.Lock()
	f.times = append(f.times, time.Now())
	f.mu.Unlock()
	return &osuapi.SearchResponse{}, nil
}

func (f *timedSearcher) callTimes() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.times...)
}

func TestRun_firstCycleStaggered(t *testing.T) {
	store := newTestStore(t)
	f := &timedSearcher{}
	s := NewScheduler(store, f, time.Minute, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const interval = 100 * time.Millisecond
	start := time.Now()
	go s.run(ctx, workerSpec{id: "ranked_sync", query: "status=ranked"}, interval)

	// The first delivered tick is discarded, so nothing may happen before
	// two full intervals have passed.
	time.Sleep(interval + interval/2)
	if n := len(f.callTimes()); n != 0 {
		t.Fatalf("worker searched %d times within the stagger window", n)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(f.callTimes()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never ran a cycle")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if elapsed := f.callTimes()[0].Sub(start); elapsed < 2*interval-10*time.Millisecond {
		t.Errorf("first cycle after %v, want >= %v", elapsed, 2*interval)
	}
	cancel()
}

func TestWorkerSpecs(t *testing.T) {
	if len(workers) != 7 {
		t.Fatalf("workers = %d, want 7", len(workers))
	}
	intervals := map[string]time.Duration{}
	base := time.Minute
	for _, w := range workers {
		iv := w.override
		if iv == 0 {
			iv = base * time.Duration(w.multiple)
		}
		intervals[w.id] = iv
	}
	want := map[string]time.Duration{
		"ranked_sync":           time.Minute,
		"loved_sync":            2 * time.Minute,
		"qualified_sync":        time.Minute,
		"pending_sync":          2 * time.Minute,
		"graveyard_sync":        3 * time.Minute,
		"any_updated_desc_sync": 30 * time.Second,
		"any_updated_asc_sync":  3 * time.Minute,
	}
	for id, iv := range want {
		if intervals[id] != iv {
			t.Errorf("%s interval = %v, want %v", id, intervals[id], iv)
		}
	}
}
