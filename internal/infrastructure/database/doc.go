// Package database provides the SQL connection used by the device store.
//
// This package manages:
//   - SQLite (mattn/go-sqlite3) with WAL mode for single-node deployments
//   - PostgreSQL (pgx stdlib driver) selected by driver "postgres" or DATABASE_URL
//   - Placeholder rebinding so repositories write ? everywhere
//   - Schema migrations embedded per dialect
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - SQLite database file permissions are set to 0600
//
// Usage:
//
//	db, err := database.Open(database.Config{Driver: "sqlite", Path: "./data/campuspower.db", WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration Strategy:
//
// Each dialect has its own directory of YYYYMMDD_HHMMSS_name.up.sql and
// .down.sql files. Versions must match across dialects so both backends
// describe the same schema.
package database
