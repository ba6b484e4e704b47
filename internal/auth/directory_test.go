package auth

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/campus-power-core/internal/infrastructure/config"
	"github.com/nerrad567/campus-power-core/internal/infrastructure/logging"
)

func TestDirectory_Authenticate(t *testing.T) {
	hash, err := HashPassword("lights-out")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	dir, err := NewDirectory([]config.UserConfig{
		{Username: "facilities", PasswordHash: hash, Role: "operator"},
	}, nil)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}

	u, err := dir.Authenticate("facilities", "lights-out")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if u.Role != RoleOperator {
		t.Errorf("Role = %q, want operator", u.Role)
	}

	if _, err := dir.Authenticate("facilities", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := dir.Authenticate("nobody", "lights-out"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestNewDirectory_FallbackAccount(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, config.LoggingConfig{Level: "info", Format: "json"}, "test")

	dir, err := NewDirectory(nil, logger)
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	if dir.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", dir.Len())
	}
	u, ok := dir.Lookup(fallbackUsername)
	if !ok || u.Role != RoleAdmin {
		t.Fatalf("fallback user = %+v, %v", u, ok)
	}
	if !strings.Contains(buf.String(), "fallback account") {
		t.Errorf("fallback password should be logged, got %q", buf.String())
	}
}

func TestNewDirectory_Rejects(t *testing.T) {
	hash, err := HashPassword("x")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	tests := []struct {
		name string
		user config.UserConfig
	}{
		{"bad username", config.UserConfig{Username: "has space", PasswordHash: hash}},
		{"plaintext password", config.UserConfig{Username: "ops", PasswordHash: "secret"}},
		{"unknown role", config.UserConfig{Username: "ops", PasswordHash: hash, Role: "root"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDirectory([]config.UserConfig{tt.user}, nil); err == nil {
				t.Error("NewDirectory() should fail")
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"", RoleOperator, false},
		{"operator", RoleOperator, false},
		{"admin", RoleAdmin, false},
		{"owner", "", true},
	}
	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseRole(%q) = %q, %v", tt.in, got, err)
		}
	}
}
