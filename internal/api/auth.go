package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/campus-power-core/internal/audit"
	"github.com/nerrad567/campus-power-core/internal/auth"
)

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        auth.User `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.users == nil {
		writeUnavailable(w, "authentication is not configured")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("login failed", "username", req.Username)
			writeUnauthorized(w, "invalid username or password")
			return
		}
		s.logger.Error("login error", "username", req.Username, "error", err)
		writeInternalError(w, "authentication failed")
		return
	}

	ttl := time.Duration(s.secCfg.JWT.AccessTokenTTL) * time.Minute
	token, expires, err := auth.IssueToken(user, s.secCfg.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("issuing token", "username", user.Username, "error", err)
		writeInternalError(w, "failed to issue token")
		return
	}

	s.logger.Info("login succeeded", "username", user.Username, "role", user.Role)
	s.recordAudit(r, audit.Entry{
		Action:     audit.ActionLogin,
		EntityType: audit.EntitySession,
		Username:   user.Username,
	})
	writeJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expires.UTC(),
		User:        *user,
	})
}
