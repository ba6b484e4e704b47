package auth

import (
	"errors"
	"fmt"
	"regexp"
)

// usernamePattern allows alphanumerics, dots, hyphens and underscores.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role is a dashboard operator's authorisation tier.
type Role string

const (
	// RoleOperator may edit schedules, settings and device metadata.
	RoleOperator Role = "operator"

	// RoleAdmin may do everything an operator can. Reserved for future
	// account management endpoints.
	RoleAdmin Role = "admin"
)

// ParseRole maps a configured role name to a Role. Empty means operator.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleOperator, nil
	case RoleOperator, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// User is a dashboard operator account.
type User struct {
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
	ErrTokenInvalid       = errors.New("invalid token")
)
