// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package api exposes the contest, rating and directory operations over
// HTTP. Every response uses the same envelope.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/cityofrecipes/internal/apperrors"
	"github.com/tomtom215/cityofrecipes/internal/auth"
	"github.com/tomtom215/cityofrecipes/internal/authz"
	"github.com/tomtom215/cityofrecipes/internal/logging"
	"github.com/tomtom215/cityofrecipes/internal/validation"
)

// APIResponse is the standardized response wrapper for all API endpoints.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an error response.
type APIError struct {
	// Code is a machine-readable error code
	Code string `json:"code"`

	// Message is a human-readable error message
	Message string `json:"message"`

	// Details contains additional error details (optional)
	Details any `json:"details,omitempty"`

	// RequestID is the request ID for tracing
	RequestID string `json:"request_id,omitempty"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Transport-level error codes. Domain failures carry apperrors codes.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrCodeNotReady         = "SERVICE_UNAVAILABLE"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

func meta(r *http.Request) *APIMeta {
	return &APIMeta{
		RequestID: logging.RequestIDFromContext(r.Context()),
		Timestamp: time.Now().UTC(),
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response")
	}
}

func respondData(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, r, status, APIResponse{Success: true, Data: data, Meta: meta(r)})
}

func respondErrorDetails(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	m := meta(r)
	writeJSON(w, r, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			Details:   details,
			RequestID: m.RequestID,
		},
		Meta: m,
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondErrorDetails(w, r, status, code, message, nil)
}

// statusForKind maps an error kind to its HTTP status.
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindPermissionDenied:
		return http.StatusForbidden
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondAppError writes err using its kind and code. Internal failures are
// logged and their message is not exposed.
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperrors.KindOf(err)
	status := statusForKind(kind)

	if kind == apperrors.KindInternal {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, r, status, apperrors.CodeInternal, "internal server error")
		return
	}

	var details any
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		details = verr.Details()
	}

	message := err.Error()
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	respondErrorDetails(w, r, status, apperrors.CodeOf(err), message, details)
}

// writeAccessError renders authentication and authorization failures in the
// standard envelope.
func writeAccessError(w http.ResponseWriter, r *http.Request, status int, err error) {
	switch {
	case status == http.StatusUnauthorized:
		message := "authentication required"
		if errors.Is(err, auth.ErrExpiredCredentials) {
			message = "token expired"
		} else if errors.Is(err, auth.ErrInvalidCredentials) {
			message = "invalid credentials"
		}
		respondError(w, r, status, ErrCodeUnauthorized, message)
	case errors.Is(err, authz.ErrForbidden):
		respondError(w, r, status, ErrCodeForbidden, "insufficient permissions")
	default:
		respondAppError(w, r, err)
	}
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(apperrors.KindInvalid, apperrors.CodeInvalidInput, "invalid JSON body", err)
	}
	return nil
}
