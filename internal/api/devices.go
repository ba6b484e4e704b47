package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/campus-power-core/internal/audit"
	"github.com/nerrad567/campus-power-core/internal/device"
	"github.com/nerrad567/campus-power-core/internal/relay"
)

// ControlRequest is the body of POST /api/devices/{id}/control.
// Value defaults to 0 when omitted.
type ControlRequest struct {
	Status *bool    `json:"status"`
	Value  *float64 `json:"value,omitempty"`
}

// handleListDevices returns every device ordered by room then id.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	d, err := s.devices.Get(r.Context(), id)
	if err != nil {
		s.writeDeviceError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleControlDevice routes an HTTP control intent through the relay, the
// same path dashboard WebSocket intents take.
func (s *Server) handleControlDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Status == nil {
		writeValidationError(w, "status is required")
		return
	}

	intent := relay.Intent{DeviceID: id, Status: *req.Status}
	if req.Value != nil {
		intent.Value = *req.Value
	}

	d, err := s.relay.Control(r.Context(), intent)
	if err != nil {
		s.writeDeviceError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handlePatchDevice renames a device or moves it to another room.
func (s *Server) handlePatchDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	var patch device.MetadataPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d, err := s.devices.UpdateMetadata(r.Context(), id, patch)
	if err != nil {
		s.writeDeviceError(w, id, err)
		return
	}

	s.logger.Info("device metadata updated", "device_id", id)
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionUpdate,
		EntityType: audit.EntityDevice,
		EntityID:   strconv.Itoa(id),
		Details:    patchDetails(patch),
	})
	s.hub.Broadcast(relay.EventDeviceUpdate, d)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeviceLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := deviceIDParam(w, r)
	if !ok {
		return
	}

	filter, err := parseLogFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	filter.DeviceID = id
	s.writeLogs(w, r, filter)
}

// handleListLogs returns the action log, newest first.
// Query: device_id, action (mqtt_sync|web_override), limit.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLogFilter(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	s.writeLogs(w, r, filter)
}

func (s *Server) writeLogs(w http.ResponseWriter, r *http.Request, filter device.LogFilter) {
	entries, err := s.devices.ListLogs(r.Context(), filter)
	if err != nil {
		if errors.Is(err, device.ErrInvalidAction) {
			writeBadRequest(w, "action must be mqtt_sync or web_override")
			return
		}
		s.logger.Error("listing action logs", "error", err)
		writeInternalError(w, "failed to list logs")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleListRooms groups devices by room with on/off counts.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices for rooms", "error", err)
		writeInternalError(w, "failed to list rooms")
		return
	}
	writeJSON(w, http.StatusOK, device.GroupByRoom(devices))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.List(r.Context())
	if err != nil {
		s.logger.Error("listing devices for summary", "error", err)
		writeInternalError(w, "failed to build summary")
		return
	}
	writeJSON(w, http.StatusOK, device.Summarize(devices))
}

func (s *Server) writeDeviceError(w http.ResponseWriter, id int, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, device.ErrInvalidDeviceID), errors.Is(err, device.ErrInvalidDevice):
		writeValidationError(w, err.Error())
	case errors.Is(err, relay.ErrStoreUnavailable):
		s.logger.Error("device store unavailable", "device_id", id, "error", err)
		writeUnavailable(w, "device store unavailable")
	default:
		s.logger.Error("device request failed", "device_id", id, "error", err)
		writeInternalError(w, "device request failed")
	}
}

// deviceIDParam parses the {id} URL parameter, writing a 400 on failure.
func deviceIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := device.ParseDeviceID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "device id must be a positive integer")
		return 0, false
	}
	return id, true
}

func parseLogFilter(r *http.Request) (device.LogFilter, error) {
	q := r.URL.Query()
	var filter device.LogFilter

	if v := q.Get("device_id"); v != "" {
		id, err := device.ParseDeviceID(v)
		if err != nil {
			return filter, errors.New("device_id must be a positive integer")
		}
		filter.DeviceID = id
	}
	if v := q.Get("action"); v != "" {
		filter.Action = device.ActionKind(v)
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return filter, errors.New("limit must be a positive integer")
		}
		filter.Limit = n
	}
	return filter, nil
}
