// Package audit records operator changes made through the HTTP API.
//
// Device state changes are already captured by the device action log;
// this trail covers who logged in and who edited schedules, settings and
// device metadata.
package audit
