package api

import "net/http"

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	if err := s.restart(); err != nil {
		writeError(w, http.StatusInternalServerError, "restart_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
