package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoggedIn is returned when an operation needs an identity and none is cached.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrQuizNotFound indicates the quiz id is absent from the loaded catalog.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrStudentNotFound indicates the roster has no entry for the id.
	ErrStudentNotFound = errors.New("student not found")
	// ErrCatalogLoading is returned when the quiz catalog has not finished loading.
	// Callers must keep showing a loading state, never redirect away.
	ErrCatalogLoading = errors.New("quiz catalog not loaded yet")
	// ErrQuizAttempted guards the single-attempt rule: the quiz already
	// carries a resolved attempt for this student.
	ErrQuizAttempted = errors.New("quiz already attempted")
)

// AuthError signals invalid credentials or an expired/invalid token.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication failed"
	}
	return e.Message
}

// RequestError is a non-2xx response from the portal, carrying the
// server-provided message when one was present.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

// ValidationError reports client-side input validation failures detected
// before any network call.
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }
