// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package authz

import (
	"errors"
	"net/http"

	"github.com/tomtom215/cityofrecipes/internal/auth"
	"github.com/tomtom215/cityofrecipes/internal/logging"
)

// ErrForbidden is reported when the caller's role lacks the permission.
var ErrForbidden = errors.New("insufficient permissions")

// Middleware gates handlers on the authenticated subject's role.
type Middleware struct {
	enforcer *Enforcer
	onError  auth.ErrorWriter
}

// NewMiddleware creates authorization middleware. A nil onError falls back
// to http.Error.
func NewMiddleware(enforcer *Enforcer, onError auth.ErrorWriter) *Middleware {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, status int, err error) {
			http.Error(w, err.Error(), status)
		}
	}
	return &Middleware{enforcer: enforcer, onError: onError}
}

// Authorize returns middleware that allows the request only when the
// subject placed in the context by auth.Middleware may perform action on
// object.
func (m *Middleware) Authorize(object, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.SubjectFromContext(r.Context())
			if subject == nil {
				m.onError(w, r, http.StatusUnauthorized, auth.ErrNoCredentials)
				return
			}

			allowed, err := m.enforcer.Enforce(subject.Role, object, action)
			if err != nil {
				logging.Ctx(r.Context()).Error().Err(err).Msg("authorization check failed")
				m.onError(w, r, http.StatusInternalServerError, err)
				return
			}
			if !allowed {
				logging.Ctx(r.Context()).Info().
					Str("user_id", subject.ID).
					Str("role", subject.Role).
					Str("object", object).
					Str("action", action).
					Msg("authorization denied")
				m.onError(w, r, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
