package schedule

import (
	"errors"
	"reflect"
	"testing"
)

func validSchedule() *Schedule {
	return &Schedule{
		Name:       "Lecture hall off",
		TargetType: TargetRoom,
		Target:     "Hall A",
		Action:     ActionTurnOff,
		TimeOfDay:  "22:30",
		Weekdays:   []string{"mon", "fri"},
		Active:     true,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Schedule)
		wantErr bool
	}{
		{"valid room", func(*Schedule) {}, false},
		{"valid device", func(s *Schedule) { s.TargetType = TargetDevice; s.Target = "12" }, false},
		{"device target not numeric", func(s *Schedule) { s.TargetType = TargetDevice; s.Target = "lamp" }, true},
		{"device target zero", func(s *Schedule) { s.TargetType = TargetDevice; s.Target = "0" }, true},
		{"empty room", func(s *Schedule) { s.Target = "  " }, true},
		{"unknown target type", func(s *Schedule) { s.TargetType = "floor" }, true},
		{"unknown action", func(s *Schedule) { s.Action = "dim" }, true},
		{"time without colon", func(s *Schedule) { s.TimeOfDay = "2230" }, true},
		{"hour out of range", func(s *Schedule) { s.TimeOfDay = "24:00" }, true},
		{"minute out of range", func(s *Schedule) { s.TimeOfDay = "12:60" }, true},
		{"midnight", func(s *Schedule) { s.TimeOfDay = "00:00" }, false},
		{"no weekdays", func(s *Schedule) { s.Weekdays = nil }, true},
		{"bad weekday", func(s *Schedule) { s.Weekdays = []string{"funday"} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSchedule()
			tt.mutate(s)
			err := Validate(s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("Validate() error = %v, want ErrInvalidSchedule", err)
			}
		})
	}
}

func TestValidate_NilSchedule(t *testing.T) {
	if err := Validate(nil); !errors.Is(err, ErrInvalidSchedule) {
		t.Errorf("Validate(nil) error = %v, want ErrInvalidSchedule", err)
	}
}

func TestNormaliseWeekdays(t *testing.T) {
	got, err := NormaliseWeekdays([]string{"Sunday", "mon", "MON", " wed "})
	if err != nil {
		t.Fatalf("NormaliseWeekdays() error = %v", err)
	}
	want := []string{"mon", "wed", "sun"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormaliseWeekdays() = %v, want %v", got, want)
	}
}
