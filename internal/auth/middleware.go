// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/tomtom215/cityofrecipes/internal/config"
	"github.com/tomtom215/cityofrecipes/internal/logging"
)

// Header names used in none mode.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, err error)

// Middleware authenticates requests.
type Middleware struct {
	mode    string
	jwt     *JWTManager
	onError ErrorWriter
}

// NewMiddleware creates the middleware for cfg.AuthMode. jwtManager may be
// nil in none mode.
func NewMiddleware(cfg *config.SecurityConfig, jwtManager *JWTManager, onError ErrorWriter) (*Middleware, error) {
	switch cfg.AuthMode {
	case "none":
	case "jwt":
		if jwtManager == nil {
			return nil, fmt.Errorf("jwt auth mode requires a JWT manager")
		}
	default:
		return nil, fmt.Errorf("invalid auth mode: %q", cfg.AuthMode)
	}
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, err error) {
			http.Error(w, err.Error(), status)
		}
	}
	return &Middleware{mode: cfg.AuthMode, jwt: jwtManager, onError: onError}, nil
}

// Mode returns the configured auth mode.
func (m *Middleware) Mode() string {
	return m.mode
}

// Authenticate rejects requests without a valid identity with 401 and
// stores the Subject in the request context otherwise.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := m.identify(r)
		if err != nil {
			logging.Ctx(r.Context()).Debug().Err(err).Msg("authentication failed")
			m.onError(w, r, http.StatusUnauthorized, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

func (m *Middleware) identify(r *http.Request) (*Subject, error) {
	if m.mode == "none" {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id == "" {
			return nil, ErrNoCredentials
		}
		role := strings.TrimSpace(r.Header.Get(HeaderUserRole))
		if role == "" {
			role = RoleUser
		}
		return &Subject{ID: id, Username: id, Role: role}, nil
	}

	token, err := extractToken(r)
	if err != nil {
		return nil, err
	}
	claims, err := m.jwt.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	role := claims.Role
	if role == "" {
		role = RoleUser
	}
	return &Subject{ID: claims.Subject, Username: claims.Username, Role: role}, nil
}

// extractToken reads the Bearer token, falling back to the token cookie.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie("token")
		if err != nil || cookie.Value == "" {
			return "", ErrNoCredentials
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("%w: invalid authorization header", ErrInvalidCredentials)
	}
	return parts[1], nil
}
