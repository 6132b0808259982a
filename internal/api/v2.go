package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleSearchV2 serves GET /v2/search: a paged search over the local
// catalog in the modern wire shape, with the total match count alongside.
func (s *Server) handleSearchV2(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := parseSearchParams(r)

	total, err := s.store.CountBeatmapsets(ctx, p.query, p.status)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	sets, err := s.store.SearchBeatmapsets(ctx, p.query, p.status, p.cappedLimit(), p.offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	mapped := make([]beatmapsetV2, 0, len(sets))
	for i := range sets {
		full, err := s.store.GetBeatmapset(ctx, sets[i].ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
		if full == nil {
			continue
		}
		mapped = append(mapped, beatmapsetV2FromModel(full))
		if int64(len(mapped)) >= p.limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, searchResponseV2{
		Beatmapsets: mapped,
		Search:      searchMetaV2{Sort: "ranked_desc"},
		Total:       total,
	})
}

// handleBeatmapsetV2 serves GET /v2/beatmapsets/{id}: one set in the modern
// shape, filling the catalog from the authoritative API on a local miss.
// Unknown sets yield a JSON null body.
func (s *Server) handleBeatmapsetV2(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	set, err := s.getOrFetchSet(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	if set == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, beatmapsetV2FromModel(set))
}
