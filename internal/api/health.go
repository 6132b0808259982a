package api

import "net/http"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	database := "connected"
	if err := s.store.Ping(r.Context()); err != nil {
		database = "error"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":          "running",
		"database":        database,
		"storage_backend": s.archive.Name(),
	})
}
