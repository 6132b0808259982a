package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/osumirror/osu-mirror/internal/db"
)

const (
	defaultSearchLimit = 50
	maxSearchLimit     = 100
)

type searchParams struct {
	query  string
	status *string
	limit  int64
	offset int64
}

func parseSearchParams(r *http.Request) searchParams {
	q := r.URL.Query()
	p := searchParams{
		query: q.Get("q"),
		limit: defaultSearchLimit,
	}
	if v := q.Get("status"); v != "" {
		p.status = &v
	}
	// Negative values would reach SQLite as LIMIT -1 (unlimited); floor both
	// at zero instead.
	if v, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil && v >= 0 {
		p.limit = v
	}
	if v, err := strconv.ParseInt(q.Get("offset"), 10, 64); err == nil && v >= 0 {
		p.offset = v
	}
	return p
}

func (p searchParams) cappedLimit() int64 {
	if p.limit > maxSearchLimit {
		return maxSearchLimit
	}
	return p.limit
}

// handleSearchV1 serves GET /v1/search: matching sets fanned out to one row
// per difficulty, truncated at the requested limit.
func (s *Server) handleSearchV1(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := parseSearchParams(r)

	sets, err := s.store.SearchBeatmapsets(ctx, p.query, p.status, p.cappedLimit(), p.offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows := make([]beatmapV1, 0)
outer:
	for i := range sets {
		full, err := s.store.GetBeatmapset(ctx, sets[i].ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
		if full == nil {
			continue
		}
		for j := range full.Beatmaps {
			rows = append(rows, beatmapV1Row(full, &full.Beatmaps[j]))
			if int64(len(rows)) >= p.limit {
				break outer
			}
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

// rowForBeatmap loads the parent set for one difficulty and flattens the
// pair; a missing difficulty or orphaned parent yields an empty list.
func (s *Server) rowForBeatmap(w http.ResponseWriter, r *http.Request, m *db.Beatmap, err error) {
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if m == nil {
		writeJSON(w, http.StatusOK, []beatmapV1{})
		return
	}
	set, err := s.store.GetBeatmapset(r.Context(), m.BeatmapsetID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if set == nil {
		writeJSON(w, http.StatusOK, []beatmapV1{})
		return
	}
	writeJSON(w, http.StatusOK, []beatmapV1{beatmapV1Row(set, m)})
}

func (s *Server) handleBeatmapV1(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusOK, []beatmapV1{})
		return
	}
	m, err := s.store.GetBeatmap(r.Context(), id)
	s.rowForBeatmap(w, r, m, err)
}

func (s *Server) handleBeatmapByMD5V1(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.GetBeatmapByChecksum(r.Context(), chi.URLParam(r, "md5"))
	s.rowForBeatmap(w, r, m, err)
}

// handleBeatmapsetV1 serves GET /v1/beatmapsets/{id}: every difficulty of
// one set as legacy rows, filling the catalog from the authoritative API on
// a local miss. Unknown sets yield an empty list, not a 404.
func (s *Server) handleBeatmapsetV1(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusOK, []beatmapV1{})
		return
	}
	set, err := s.getOrFetchSet(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	rows := make([]beatmapV1, 0)
	if set != nil {
		for i := range set.Beatmaps {
			rows = append(rows, beatmapV1Row(set, &set.Beatmaps[i]))
		}
	}
	writeJSON(w, http.StatusOK, rows)
}
