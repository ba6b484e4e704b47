// Package auth authenticates dashboard operators.
//
// Operators are declared in configuration with Argon2id password hashes and
// log in for a short-lived HS256 access token. Tokens guard the write
// endpoints for schedules, settings and device metadata; device reads,
// control and the real-time channel stay open to every dashboard.
package auth
