// CityOfRecipes - Recipe Sharing and Contest Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cityofrecipes

// Package apperrors defines the error kinds returned by the contest and
// rating services. Handlers map a Kind to an HTTP status; everything that is
// not an *Error is treated as Internal.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindPermissionDenied
	KindConflict
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindPermissionDenied:
		return "permission_denied"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	default:
		return "internal"
	}
}

// Stable error codes surfaced to API clients.
const (
	CodeContestNotFound      = "CONTEST_NOT_FOUND"
	CodeRecipeNotFound       = "RECIPE_NOT_FOUND"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeCategoryNotFound     = "CATEGORY_NOT_FOUND"
	CodeNotRecipeAuthor      = "NOT_RECIPE_AUTHOR"
	CodeAlreadyParticipating = "ALREADY_PARTICIPATING"
	CodeContestClosed        = "CONTEST_CLOSED"
	CodeCategoryMismatch     = "CATEGORY_MISMATCH"
	CodeIngredientsMissing   = "INGREDIENTS_MISSING"
	CodeNotEnoughRatings     = "NOT_ENOUGH_RATINGS"
	CodeInvalidDateRange     = "INVALID_DATE_RANGE"
	CodeSlugTaken            = "SLUG_TAKEN"
	CodeInvalidStars         = "INVALID_STARS"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeInternal             = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, format string, args ...any) *Error {
	return newError(KindNotFound, code, format, args...)
}

func PermissionDenied(code, format string, args ...any) *Error {
	return newError(KindPermissionDenied, code, format, args...)
}

func Conflict(code, format string, args ...any) *Error {
	return newError(KindConflict, code, format, args...)
}

func Invalid(code, format string, args ...any) *Error {
	return newError(KindInvalid, code, format, args...)
}

// Wrap attaches kind and code to an underlying error.
func Wrap(kind Kind, code, msg string, err error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

// Internal wraps a storage or delivery failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the first *Error in err's chain, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
