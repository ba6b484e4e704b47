package relay

import "errors"

var (
	// ErrStoreUnavailable is returned when neither the write nor the
	// fallback read reached the device store.
	ErrStoreUnavailable = errors.New("relay: device store unavailable")

	// ErrMalformedTelemetry is returned for payloads that are not a JSON
	// object with a usable status or value.
	ErrMalformedTelemetry = errors.New("relay: malformed telemetry")
)
