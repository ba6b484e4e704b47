package device

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Category classifies a device. The unit of Device.Value depends on it.
type Category string

// Device categories.
const (
	// CategoryLight is a lamp; Value is its power draw in watts.
	CategoryLight Category = "light"

	// CategoryAC is an air-conditioning unit; Value is its setpoint in °C.
	CategoryAC Category = "ac"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryLight || c == CategoryAC
}

// Device is a controllable load on the campus network.
//
// ID is the join key everywhere: the trailing MQTT topic segment, the
// database primary key and the id in real-time payloads.
type Device struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	Category  Category   `json:"category"`
	Status    bool       `json:"status"`
	Value     float64    `json:"value"`
	Room      string     `json:"room"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UpsertResult reports whether Update created the device row.
type UpsertResult int

const (
	// Updated means the device already existed.
	Updated UpsertResult = iota
	// Created means the device was created with naming defaults.
	Created
)

func (r UpsertResult) String() string {
	if r == Created {
		return "created"
	}
	return "updated"
}

// StateUpdate is a status/value change applied to a device.
// Nil fields leave the stored value untouched (or use the create default).
type StateUpdate struct {
	Status *bool
	Value  *float64

	// SeenAt stamps last_seen. Zero means now.
	SeenAt time.Time
}

// SetState builds a StateUpdate that sets both status and value.
func SetState(status bool, value float64) StateUpdate {
	return StateUpdate{Status: &status, Value: &value}
}

// MetadataPatch changes descriptive fields without touching state.
type MetadataPatch struct {
	Name     *string   `json:"name,omitempty"`
	Room     *string   `json:"room,omitempty"`
	Category *Category `json:"category,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p MetadataPatch) Empty() bool {
	return p.Name == nil && p.Room == nil && p.Category == nil
}

// maxNameLength bounds device names and room labels.
const maxNameLength = 100

// Validate checks the patch fields that are set.
func (p MetadataPatch) Validate() error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" || len(name) > maxNameLength {
			return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidDevice, maxNameLength)
		}
	}
	if p.Room != nil && len(strings.TrimSpace(*p.Room)) > maxNameLength {
		return fmt.Errorf("%w: room must be at most %d characters", ErrInvalidDevice, maxNameLength)
	}
	if p.Category != nil && !p.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidDevice, *p.Category)
	}
	return nil
}

// Naming derives defaults for devices created implicitly by telemetry or
// control. One reserved identifier is the room's AC unit; every other
// identifier is a lamp.
type Naming struct {
	ACDeviceID  int
	DefaultRoom string
}

// DefaultNaming matches the stock campus wiring: device 5 is the AC unit.
var DefaultNaming = Naming{ACDeviceID: 5, DefaultRoom: "Unassigned"}

// Defaults returns the name, category and room for a new device.
func (n Naming) Defaults(id int) (name string, category Category, room string) {
	room = n.DefaultRoom
	if id == n.ACDeviceID {
		return "AC Unit", CategoryAC, room
	}
	return "Lamp " + strconv.Itoa(id), CategoryLight, room
}

// MaxDeviceID is the largest identifier the store accepts. Both dialects
// key devices with a 32-bit INTEGER column.
const MaxDeviceID = math.MaxInt32

// ParseDeviceID parses a device identifier from a topic segment or URL
// parameter. Only the canonical form [1-9][0-9]* is accepted, so one
// device never answers to two spellings.
func ParseDeviceID(s string) (int, error) {
	if s == "" || s[0] < '1' || s[0] > '9' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDeviceID, s)
		}
	}
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidDeviceID, s)
	}
	return int(id), nil
}

// ValidateDeviceID checks an identifier that arrived already decoded,
// for example from a JSON payload.
func ValidateDeviceID(id int) error {
	if id <= 0 || id > MaxDeviceID {
		return fmt.Errorf("%w: %d", ErrInvalidDeviceID, id)
	}
	return nil
}
