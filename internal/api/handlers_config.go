package api

import (
	"encoding/json"
	"io"
	"net/http"

	"ccr-hq/gateway/internal/configkernel"
	"ccr-hq/gateway/internal/gwconfig"
)

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	snap := s.coord.CurrentSnapshot()
	writeJSON(w, http.StatusOK, snap.Version.Config)
}

func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "could not read request body")
		return
	}

	doc, err := gwconfig.Decode("config.json", body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_config", err.Error())
		return
	}
	gwconfig.ApplyDefaults(&doc.Config)

	result, err := s.coord.ApplyUpdate(r.Context(), doc, configkernel.SourceAPI)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	if !result.Success {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":    false,
			"message":    "configuration rejected validation",
			"validation": result.Validation,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "configuration updated",
	})
}

func (s *Server) handleConfigTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleHotReload(w http.ResponseWriter, r *http.Request) {
	result, err := s.coord.HotReload(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	resp := map[string]any{
		"success":    result.Success,
		"validation": result.Validation,
	}
	if result.Success {
		resp["version"] = result.Version
	}
	if result.Err != nil {
		resp["error"] = result.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfigStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.coord.CurrentSnapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  s.coord.GetState(),
		"version": snap.Version,
		"metadata": map[string]any{
			"activeGroup":        snap.ActiveGroup,
			"customRouterLoaded": snap.CustomRouterLoaded,
			"providerHealth":     s.coord.ProviderHealthSnapshot(),
		},
		"hotReloadEnabled": s.coord.HotReloadEnabled(),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var cfg gwconfig.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "candidate config must be valid JSON")
		return
	}
	gwconfig.ApplyDefaults(&cfg)

	result := s.coord.ValidateCandidate(r.Context(), cfg)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"validation": result,
		"byCategory": result.ByCategory(),
	})
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VersionID string `json:"versionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.VersionID == "" {
		writeError(w, http.StatusBadRequest, "invalid_body", "versionId is required")
		return
	}

	if _, err := s.coord.RollbackToVersion(body.VersionID); err != nil {
		status := http.StatusInternalServerError
		if _, ok := err.(*configkernel.VersionError); ok {
			status = http.StatusNotFound
		}
		writeError(w, status, "rollback_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "rolled back to version " + body.VersionID,
	})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	versions := s.coord.Versions()
	current := ""
	for _, v := range versions {
		if v.IsActive {
			current = v.ID
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"current": current,
		"metadata": map[string]any{
			"count":       len(versions),
			"maxVersions": s.coord.MaxVersions(),
		},
		"versions": versions,
	})
}

func (s *Server) handleVersionDiff(w http.ResponseWriter, r *http.Request) {
	from := r.PathValue("from")
	to := r.PathValue("to")

	diff, err := s.coord.VersionDiff(from, to)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown_version", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"diff": diff})
}
