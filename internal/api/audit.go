package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/campus-power-core/internal/audit"
	"github.com/nerrad567/campus-power-core/internal/device"
	"github.com/nerrad567/campus-power-core/internal/schedule"
)

// recordAudit stores an audit entry for the authenticated operator.
// Failures are logged; the request has already succeeded.
func (s *Server) recordAudit(r *http.Request, e audit.Entry) {
	if s.audit == nil {
		return
	}
	if e.Username == "" {
		if claims, ok := claimsFromContext(r.Context()); ok {
			e.Username = claims.Subject
		}
	}
	if err := s.audit.Record(r.Context(), &e); err != nil {
		s.logger.Error("recording audit entry", "action", e.Action, "entity_type", e.EntityType, "error", err)
	}
}

// handleListAudit returns the operator audit trail, newest first.
// Query: action, entity_type, entity_id, username, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeUnavailable(w, "audit trail is not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		Username:   q.Get("username"),
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, name+" must be a non-negative integer")
			return
		}
		*dst = n
	}

	res, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing audit entries", "error", err)
		writeInternalError(w, "failed to list audit entries")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func scheduleAudit(action string, sch *schedule.Schedule) audit.Entry {
	return audit.Entry{
		Action:     action,
		EntityType: audit.EntitySchedule,
		EntityID:   strconv.FormatInt(sch.ID, 10),
		Details: map[string]any{
			"target_type": string(sch.TargetType),
			"target":      sch.Target,
			"action":      string(sch.Action),
			"time":        sch.TimeOfDay,
			"active":      sch.Active,
		},
	}
}

func patchDetails(p device.MetadataPatch) map[string]any {
	details := make(map[string]any)
	if p.Name != nil {
		details["name"] = *p.Name
	}
	if p.Room != nil {
		details["room"] = *p.Room
	}
	if p.Category != nil {
		details["category"] = string(*p.Category)
	}
	return details
}
