package api

import (
	"encoding/json"
	"net/http"
)

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"groups":       s.coord.GroupIDs(),
		"currentGroup": s.coord.ActiveGroup(),
	})
}

func (s *Server) handleSwitchGroup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		GroupID string `json:"groupId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.GroupID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "groupId is required")
		return
	}

	if err := s.coord.SwitchGroup(body.GroupID); err != nil {
		writeError(w, http.StatusBadRequest, "switch_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"currentGroup": s.coord.ActiveGroup(),
	})
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	group, ok := s.coord.Group(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown_group", "no such router group: "+id)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"group":    group,
		"isActive": s.coord.ActiveGroup() == id,
	})
}
