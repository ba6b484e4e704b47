package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/campus-power-core/internal/audit"
	"github.com/nerrad567/campus-power-core/internal/setting"
)

// SettingRequest is the body of PUT /api/settings/{key}.
type SettingRequest struct {
	Value *string `json:"value"`
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	if !s.settingsConfigured(w) {
		return
	}

	list, err := s.settings.List(r.Context())
	if err != nil {
		s.logger.Error("listing settings", "error", err)
		writeInternalError(w, "failed to list settings")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	if !s.settingsConfigured(w) {
		return
	}

	st, err := s.settings.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		if errors.Is(err, setting.ErrSettingNotFound) {
			writeNotFound(w, "setting not found")
			return
		}
		s.logger.Error("reading setting", "error", err)
		writeInternalError(w, "failed to read setting")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handlePutSetting creates or replaces a setting.
func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	if !s.settingsConfigured(w) {
		return
	}

	var req SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeValidationError(w, "value is required")
		return
	}

	key := chi.URLParam(r, "key")
	st, err := s.settings.Set(r.Context(), key, *req.Value)
	if err != nil {
		if errors.Is(err, setting.ErrInvalidKey) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("saving setting", "key", key, "error", err)
		writeInternalError(w, "failed to save setting")
		return
	}

	s.logger.Info("setting saved", "key", key)
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntitySetting,
		EntityID:   key,
		Details:    map[string]any{"value": st.Value},
	})
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) settingsConfigured(w http.ResponseWriter) bool {
	if s.settings == nil {
		writeUnavailable(w, "settings are not configured")
		return false
	}
	return true
}
