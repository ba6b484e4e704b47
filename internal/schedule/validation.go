package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/campus-power-core/internal/device"
)

const maxNameLength = 100

var timeOfDayRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validate checks s and normalises its weekdays into week order.
func Validate(s *Schedule) error {
	if s == nil {
		return ErrInvalidSchedule
	}

	s.Name = strings.TrimSpace(s.Name)
	if len(s.Name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidSchedule, maxNameLength)
	}

	switch s.TargetType {
	case TargetRoom:
		s.Target = strings.TrimSpace(s.Target)
		if s.Target == "" {
			return fmt.Errorf("%w: room target is required", ErrInvalidSchedule)
		}
	case TargetDevice:
		id, err := device.ParseDeviceID(s.Target)
		if err != nil {
			return fmt.Errorf("%w: device target: %v", ErrInvalidSchedule, err)
		}
		s.Target = strconv.Itoa(id)
	default:
		return fmt.Errorf("%w: target_type must be room or device, got %q", ErrInvalidSchedule, s.TargetType)
	}

	if s.Action != ActionTurnOn && s.Action != ActionTurnOff {
		return fmt.Errorf("%w: action must be turn_on or turn_off, got %q", ErrInvalidSchedule, s.Action)
	}

	if !timeOfDayRegex.MatchString(s.TimeOfDay) {
		return fmt.Errorf("%w: time must be HH:MM, got %q", ErrInvalidSchedule, s.TimeOfDay)
	}

	days, err := NormaliseWeekdays(s.Weekdays)
	if err != nil {
		return err
	}
	s.Weekdays = days
	return nil
}

// NormaliseWeekdays lower-cases, de-duplicates and orders weekday names.
// Full names ("Monday") are accepted and shortened.
func NormaliseWeekdays(days []string) ([]string, error) {
	if len(days) == 0 {
		return nil, fmt.Errorf("%w: at least one weekday is required", ErrInvalidSchedule)
	}

	seen := make(map[string]bool, len(days))
	for _, d := range days {
		key := strings.ToLower(strings.TrimSpace(d))
		if len(key) > 3 {
			key = key[:3]
		}
		if !isWeekday(key) {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, d)
		}
		seen[key] = true
	}

	out := make([]string, 0, len(seen))
	for _, d := range weekdayOrder {
		if seen[d] {
			out = append(out, d)
		}
	}
	return out, nil
}

func isWeekday(s string) bool {
	for _, d := range weekdayOrder {
		if d == s {
			return true
		}
	}
	return false
}
