// Package schedule stores on/off timer rules for rooms and single devices.
//
// A schedule names a target (a room, or a device identifier), an action
// (turn_on or turn_off), a time of day in HH:MM and the weekdays it applies
// to. This service only stores and validates schedules; firing them is left
// to an external runner.
package schedule
