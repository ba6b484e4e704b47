package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDeviceID is returned when an identifier is not a positive integer.
	ErrInvalidDeviceID = errors.New("device: invalid id")

	// ErrInvalidDevice is returned when device field validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidAction is returned when an action log kind is not recognised.
	ErrInvalidAction = errors.New("device: invalid action")
)
