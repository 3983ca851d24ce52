// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package auth identifies the caller of a request.
//
// Two modes are supported:
//
//  1. jwt: a Bearer token in the Authorization header, or the "token"
//     cookie, signed with HS256. The subject claim is the user id.
//  2. none: development only. The identity comes from the X-User-ID and
//     X-User-Role headers.
package auth

import (
	"context"
	"errors"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Standard authentication errors
var (
	ErrNoCredentials      = errors.New("no credentials provided")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExpiredCredentials = errors.New("credentials expired")
)

// Subject is the authenticated caller.
type Subject struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the subject holds the admin role.
func (s *Subject) IsAdmin() bool {
	return s != nil && s.Role == RoleAdmin
}

type contextKey struct{}

// ContextWithSubject stores s in ctx.
func ContextWithSubject(ctx context.Context, s *Subject) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// SubjectFromContext returns the caller, or nil for anonymous requests.
func SubjectFromContext(ctx context.Context) *Subject {
	s, _ := ctx.Value(contextKey{}).(*Subject)
	return s
}
