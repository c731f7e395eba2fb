// Package services holds the application logic that sits between the entry
// points (CLI commands, HTTP handlers) and the API clients and repositories:
// the award run pipeline and the account login flow.
//
// This file centralizes the service-level error values. Translating them
// into exit codes, log lines or HTTP statuses is left to the callers.
package services

import "errors"

// Award run errors.
var (
	// ErrConfigMissing indicates that required credentials are absent. It is
	// returned before any network call is made.
	ErrConfigMissing = errors.New("required configuration missing")

	// ErrFetchFailure indicates that a user's check-ins could not be read.
	// A run records it per user and moves on.
	ErrFetchFailure = errors.New("checkin fetch failed")

	// ErrAwardAuthFailure indicates that the badge API rejected the issuer
	// credentials. It aborts the award phase.
	ErrAwardAuthFailure = errors.New("badge API authentication failed")
)

// Account errors.
var (
	// ErrInvalidCode is returned when the login callback carries no code.
	ErrInvalidCode = errors.New("authorization code is empty")

	// ErrLoginFailed wraps failures of the token exchange or profile lookup.
	ErrLoginFailed = errors.New("login failed")
)
