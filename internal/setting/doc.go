// Package setting stores dashboard settings as key/value pairs.
//
// Each key holds a single value; Set replaces it and stamps updated_at.
// No history is kept.
package setting
