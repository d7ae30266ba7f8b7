package api

import "net/http"

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		writeError(w, http.StatusServiceUnavailable, "monitoring not running")
		return
	}
	writeJSON(w, http.StatusOK, s.status.Report())
}
