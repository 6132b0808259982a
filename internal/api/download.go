package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/osumirror/osu-mirror/internal/metrics"
)

// parseBoolParam reads the relaxed boolean grammar of the download flags: an
// empty value means true (bare "?nv"), "1"/"0" and case-insensitive
// "true"/"false" are accepted, anything else is ignored.
func parseBoolParam(v string) (bool, bool) {
	switch v {
	case "", "1":
		return true, true
	case "0":
		return false, true
	}
	switch strings.ToLower(v) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// parseNoVideo resolves the no-video flag from the query string: "nv" wins
// over "novideo", an unparseable value falls through, absence means false.
func parseNoVideo(q url.Values) bool {
	for _, key := range []string{"nv", "novideo"} {
		if vs, ok := q[key]; ok && len(vs) > 0 {
			if b, ok := parseBoolParam(vs[0]); ok {
				return b
			}
		}
	}
	return false
}

// sanitizeFilename replaces the characters that break Content-Disposition or
// common filesystems.
func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

func writeArchive(w http.ResponseWriter, data []byte, filename, cacheStatus string) {
	w.Header().Set("Content-Type", "application/x-osu-beatmap-archive")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.Header().Set("X-Cache-Status", cacheStatus)
	w.Write(data)
}

// handleDownload serves GET /d/{id}: resolve metadata (filling in from the
// authoritative API when unknown), serve the cached archive on a hit, or
// pull it from the community mirrors, cache it and record the bookkeeping.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid beatmapset id")
		return
	}
	noVideo := parseNoVideo(r.URL.Query())
	s.log.Info().Int64("set", id).Bool("no_video", noVideo).Msg("download request")

	set, err := s.getOrFetchSet(ctx, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if set == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Beatmapset %d not found", id))
		return
	}
	if set.DownloadDisabled {
		writeError(w, http.StatusNotFound, "Download disabled")
		return
	}

	baseName := fmt.Sprintf("%d %s - %s", id, set.Artist, set.Title)
	if noVideo {
		baseName += " [no video]"
	}
	filename := sanitizeFilename(baseName + ".osz")

	if data, err := s.archive.Get(ctx, id, noVideo); err == nil && data != nil {
		s.log.Info().Int64("set", id).Bool("no_video", noVideo).Msg("cache hit")
		metrics.DownloadsTotal.WithLabelValues("HIT").Inc()
		if err := s.store.TouchCacheMetadata(ctx, id); err != nil {
			s.log.Warn().Int64("set", id).Err(err).Msg("failed to touch cache metadata")
		}
		writeArchive(w, data, filename, "HIT")
		return
	}

	s.log.Info().Int64("set", id).Bool("no_video", noVideo).Msg("cache miss")
	data, err := s.mirrors.Download(ctx, id, noVideo)
	if err != nil {
		s.log.Error().Int64("set", id).Err(err).Msg("mirror download failed")
		metrics.DownloadsTotal.WithLabelValues("FAIL").Inc()
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	metrics.DownloadsTotal.WithLabelValues("MISS").Inc()

	// Caching is best effort; the client still gets its archive.
	if err := s.archive.Put(ctx, id, noVideo, data); err != nil {
		s.log.Error().Int64("set", id).Err(err).Msg("failed to cache beatmapset")
	}
	storagePath := fmt.Sprintf("%d/%d.osz", id/1000, id)
	if err := s.store.UpsertCacheMetadata(ctx, id, int64(len(data)), storagePath, s.archive.Name(), noVideo); err != nil {
		s.log.Warn().Int64("set", id).Err(err).Msg("failed to record cache metadata")
	}

	writeArchive(w, data, filename, "MISS")
}
