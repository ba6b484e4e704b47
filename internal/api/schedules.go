package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/campus-power-core/internal/audit"
	"github.com/nerrad567/campus-power-core/internal/schedule"
)

// ScheduleRequest is the body of schedule create and replace requests.
type ScheduleRequest struct {
	Name       string   `json:"name"`
	TargetType string   `json:"target_type"`
	Target     string   `json:"target"`
	Action     string   `json:"action"`
	Time       string   `json:"time"`
	Days       []string `json:"days"`
	Active     *bool    `json:"active,omitempty"`
}

func (req ScheduleRequest) toSchedule() *schedule.Schedule {
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return &schedule.Schedule{
		Name:       req.Name,
		TargetType: schedule.TargetType(req.TargetType),
		Target:     req.Target,
		Action:     schedule.Action(req.Action),
		TimeOfDay:  req.Time,
		Weekdays:   req.Days,
		Active:     active,
	}
}

// handleListSchedules lists schedules. Query: target_type, target, active=true.
func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	if !s.schedulesConfigured(w) {
		return
	}

	q := r.URL.Query()
	filter := schedule.ListFilter{
		TargetType: schedule.TargetType(q.Get("target_type")),
		Target:     q.Get("target"),
		ActiveOnly: q.Get("active") == "true",
	}

	list, err := s.schedules.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing schedules", "error", err)
		writeInternalError(w, "failed to list schedules")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	if !s.schedulesConfigured(w) {
		return
	}
	id, ok := scheduleIDParam(w, r)
	if !ok {
		return
	}

	sch, err := s.schedules.Get(r.Context(), id)
	if err != nil {
		s.writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sch)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	if !s.schedulesConfigured(w) {
		return
	}

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	sch := req.toSchedule()
	if err := s.schedules.Create(r.Context(), sch); err != nil {
		s.writeScheduleError(w, err)
		return
	}

	s.logger.Info("schedule created", "schedule_id", sch.ID, "target", sch.Target, "action", sch.Action)
	s.recordAudit(r, scheduleAudit(audit.ActionCreate, sch))
	writeJSON(w, http.StatusCreated, sch)
}

// handleUpdateSchedule replaces a schedule.
func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	if !s.schedulesConfigured(w) {
		return
	}
	id, ok := scheduleIDParam(w, r)
	if !ok {
		return
	}

	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	sch := req.toSchedule()
	sch.ID = id
	if err := s.schedules.Update(r.Context(), sch); err != nil {
		s.writeScheduleError(w, err)
		return
	}

	updated, err := s.schedules.Get(r.Context(), id)
	if err != nil {
		s.writeScheduleError(w, err)
		return
	}
	s.recordAudit(r, scheduleAudit(audit.ActionUpdate, updated))
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if !s.schedulesConfigured(w) {
		return
	}
	id, ok := scheduleIDParam(w, r)
	if !ok {
		return
	}

	if err := s.schedules.Delete(r.Context(), id); err != nil {
		s.writeScheduleError(w, err)
		return
	}
	s.logger.Info("schedule deleted", "schedule_id", id)
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionDelete,
		EntityType: audit.EntitySchedule,
		EntityID:   strconv.FormatInt(id, 10),
	})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) schedulesConfigured(w http.ResponseWriter) bool {
	if s.schedules == nil {
		writeUnavailable(w, "schedules are not configured")
		return false
	}
	return true
}

func (s *Server) writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrScheduleNotFound):
		writeNotFound(w, "schedule not found")
	case errors.Is(err, schedule.ErrInvalidSchedule):
		writeValidationError(w, err.Error())
	default:
		s.logger.Error("schedule request failed", "error", err)
		writeInternalError(w, "schedule request failed")
	}
}

func scheduleIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "schedule id must be a positive integer")
		return 0, false
	}
	return id, true
}
