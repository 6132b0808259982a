// Package crawler keeps the local metadata catalog in sync with the
// authoritative API. A fixed set of workers each walks one slice of the
// catalog page by page, persisting an opaque cursor between cycles.
package crawler

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/osumirror/osu-mirror/internal/db"
	"github.com/osumirror/osu-mirror/internal/osuapi"
)

// searcher is the slice of the API client the sync path needs.
type searcher interface {
	SearchBeatmapsets(ctx context.Context, query string, cursor *string) (*osuapi.SearchResponse, error)
}

// SaveBeatmapset converts one upstream set and persists it with its
// difficulties. A missing availability block means downloads are allowed.
func SaveBeatmapset(ctx context.Context, store *db.Store, api *osuapi.Beatmapset) error {
	set := &db.Beatmapset{
		ID:             api.ID,
		Title:          api.Title,
		TitleUnicode:   api.TitleUnicode,
		Artist:         api.Artist,
		ArtistUnicode:  api.ArtistUnicode,
		Creator:        api.Creator,
		CreatorID:      api.UserID,
		GenreID:        api.GenreID,
		LanguageID:     api.LanguageID,
		Rating:         api.Rating,
		Source:         api.Source,
		Tags:           api.Tags,
		Status:         api.Status,
		RankedDate:     api.RankedDate,
		SubmittedDate:  api.SubmittedDate,
		LastUpdated:    api.LastUpdated,
		BPM:            api.BPM,
		Video:          api.Video,
		Storyboard:     api.Storyboard,
		NSFW:           api.NSFW,
		FavouriteCount: api.FavouriteCount,
		PlayCount:      api.PlayCount,
	}
	if api.Availability != nil {
		set.DownloadDisabled = api.Availability.DownloadDisabled
	}
	for _, m := range api.Beatmaps {
		total := m.TotalLength
		set.Beatmaps = append(set.Beatmaps, db.Beatmap{
			ID:               m.ID,
			BeatmapsetID:     m.BeatmapsetID,
			Version:          m.Version,
			Mode:             m.Mode,
			ModeInt:          m.ModeInt,
			DifficultyRating: m.DifficultyRating,
			AR:               m.AR,
			CS:               m.CS,
			Drain:            m.Drain,
			Accuracy:         m.Accuracy,
			BPM:              m.BPM,
			TotalLength:      &total,
			HitLength:        m.HitLength,
			MaxCombo:         m.MaxCombo,
			CountCircles:     m.CountCircles,
			CountSliders:     m.CountSliders,
			CountSpinners:    m.CountSpinners,
			Checksum:         m.Checksum,
		})
	}
	return store.SaveBeatmapset(ctx, set)
}

// syncPage fetches one search page and persists every set on it. Individual
// save failures are logged and skipped; a failed fetch aborts the page so
// the cursor does not advance past unsaved results.
func syncPage(ctx context.Context, store *db.Store, client searcher, log zerolog.Logger, query string, cursor *string) (*string, error) {
	log.Info().Str("query", query).Msg("syncing beatmapsets")

	page, err := client.SearchBeatmapsets(ctx, query, cursor)
	if err != nil {
		return nil, fmt.Errorf("search page: %w", err)
	}
	log.Info().Str("query", query).Int("count", len(page.Beatmapsets)).Msg("fetched beatmapsets")

	for i := range page.Beatmapsets {
		set := &page.Beatmapsets[i]
		if err := SaveBeatmapset(ctx, store, set); err != nil {
			log.Error().Int64("set", set.ID).Err(err).Msg("failed to save beatmapset")
		}
	}
	return page.CursorString, nil
}
