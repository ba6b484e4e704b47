// Package device provides the device store for Campus Power Core.
//
// A device is identified by a positive integer that is shared by the
// hardware topic suffix, the database row and real-time payloads. Devices
// are never registered explicitly: the first telemetry message or control
// intent that names an unknown identifier creates the row with defaults
// from Naming (one reserved id is the AC unit, every other id a lamp).
//
// # Persistence
//
// SQLRepository runs unchanged on SQLite and PostgreSQL through
// database.DB, which rebinds ? placeholders for the active dialect.
//
//	repo := device.NewSQLRepository(db, device.Naming{ACDeviceID: 5, DefaultRoom: "Unassigned"})
//	d, result, err := repo.Update(ctx, 12, device.SetState(true, 40))
//	if result == device.Created {
//	    // first time we hear of device 12
//	}
//
// The action log is append-only: every applied telemetry message is
// recorded as mqtt_sync and every control intent as web_override.
package device
