package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/config"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/logging"
)

// fallbackUsername is the account created when no users are configured.
const fallbackUsername = "admin"

// Directory holds the configured dashboard operators. It is read-only
// after construction.
type Directory struct {
	users map[string]*User

	// dummyHash is verified against when the username is unknown so that
	// lookups for missing users cost the same as wrong passwords.
	dummyOnce sync.Once
	dummyHash string
}

// NewDirectory builds a directory from configured users. When none are
// configured a single admin account with a random password is created
// and the password is logged once at warn level.
func NewDirectory(users []config.UserConfig, logger *logging.Logger) (*Directory, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	d := &Directory{users: make(map[string]*User, len(users))}
	for _, u := range users {
		if !IsValidUsername(u.Username) {
			return nil, fmt.Errorf("invalid username %q", u.Username)
		}
		if _, _, _, err := decodePHC(u.PasswordHash); err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Username, err)
		}
		role, err := ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", u.Username, err)
		}
		d.users[u.Username] = &User{Username: u.Username, Role: role, PasswordHash: u.PasswordHash}
	}

	if len(d.users) == 0 {
		password, err := randomPassword()
		if err != nil {
			return nil, err
		}
		hash, err := HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hashing fallback password: %w", err)
		}
		d.users[fallbackUsername] = &User{Username: fallbackUsername, Role: RoleAdmin, PasswordHash: hash}

		logger.Warn("no dashboard users configured, created fallback account",
			"username", fallbackUsername,
			"password", password,
			"action_required", "configure security.users",
		)
	}

	return d, nil
}

// Authenticate checks a username and password.
// It returns ErrInvalidCredentials for both unknown users and wrong passwords.
func (d *Directory) Authenticate(username, password string) (*User, error) {
	u, ok := d.users[username]
	if !ok {
		d.burnVerify(password)
		return nil, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, u.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Lookup returns a user by name.
func (d *Directory) Lookup(username string) (*User, bool) {
	u, ok := d.users[username]
	return u, ok
}

// Len returns the number of accounts.
func (d *Directory) Len() int {
	return len(d.users)
}

func (d *Directory) burnVerify(password string) {
	d.dummyOnce.Do(func() {
		d.dummyHash, _ = HashPassword("unused") //nolint:errcheck // failure only skips the timing pad
	})
	if d.dummyHash != "" {
		VerifyPassword(password, d.dummyHash) //nolint:errcheck // result intentionally ignored
	}
}

func randomPassword() (string, error) {
	b := make([]byte, 16) //nolint:mnd // 128-bit password
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating fallback password: %w", err)
	}
	return hex.EncodeToString(b), nil
}
