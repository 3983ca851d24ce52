// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

package authz

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/cityofrecipes/internal/auth"
	"github.com/tomtom215/cityofrecipes/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func newEnforcer(t *testing.T) *Enforcer {
	t.Helper()
	e, err := NewEnforcer()
	if err != nil {
		t.Fatalf("NewEnforcer() error = %v", err)
	}
	return e
}

func TestEnforcer_EmbeddedPolicy(t *testing.T) {
	e := newEnforcer(t)

	tests := []struct {
		role, object, action string
		want                 bool
	}{
		{auth.RoleUser, ObjectRecipes, ActionCreate, true},
		{auth.RoleUser, ObjectRatings, ActionCreate, true},
		{auth.RoleUser, ObjectContestEntries, ActionCreate, true},
		{auth.RoleUser, ObjectContests, ActionCreate, false},
		{auth.RoleUser, ObjectContests, ActionFinalize, false},
		{auth.RoleUser, ObjectCategories, ActionCreate, false},
		{auth.RoleUser, ObjectUsers, ActionCreate, false},
		{auth.RoleAdmin, ObjectContests, ActionCreate, true},
		{auth.RoleAdmin, ObjectContests, ActionFinalize, true},
		{auth.RoleAdmin, ObjectCategories, ActionCreate, true},
		{auth.RoleAdmin, ObjectUsers, ActionCreate, true},
		{auth.RoleAdmin, ObjectRatings, ActionCreate, true},
		{"guest", ObjectRecipes, ActionCreate, false},
	}
	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.object+"/"+tt.action, func(t *testing.T) {
			got, err := e.Enforce(tt.role, tt.object, tt.action)
			if err != nil {
				t.Fatalf("Enforce() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Enforce() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewEnforcerFromStrings_MalformedPolicy(t *testing.T) {
	if _, err := NewEnforcerFromStrings(embeddedModel, "p, user"); err == nil {
		t.Error("expected error for malformed policy line")
	}
	if _, err := NewEnforcerFromStrings("not a model", ""); err == nil {
		t.Error("expected error for invalid model")
	}
}

func TestAuthorize(t *testing.T) {
	mw := NewMiddleware(newEnforcer(t), nil)
	h := mw.Authorize(ObjectContests, ActionFinalize)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		subject *auth.Subject
		want    int
	}{
		{"admin allowed", &auth.Subject{ID: "a1", Role: auth.RoleAdmin}, http.StatusNoContent},
		{"user forbidden", &auth.Subject{ID: "u1", Role: auth.RoleUser}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.subject != nil {
				r = r.WithContext(auth.ContextWithSubject(r.Context(), tt.subject))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
