package schedule

import "time"

// TargetType selects what a schedule switches.
type TargetType string

// Target types.
const (
	TargetRoom   TargetType = "room"
	TargetDevice TargetType = "device"
)

// Action is what a schedule does when it fires.
type Action string

// Schedule actions.
const (
	ActionTurnOn  Action = "turn_on"
	ActionTurnOff Action = "turn_off"
)

// Weekday names in week order, Monday first.
var weekdayOrder = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Schedule is a stored timer rule. Nothing in this service fires it; the
// rows are kept for dashboards and external automation.
type Schedule struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	TargetType TargetType `json:"target_type"`
	Target     string     `json:"target"`
	Action     Action     `json:"action"`
	TimeOfDay  string     `json:"time"`
	Weekdays   []string   `json:"days"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ListFilter narrows List. Zero values mean "any".
type ListFilter struct {
	TargetType TargetType
	Target     string
	ActiveOnly bool
}
