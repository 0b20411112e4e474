// Package services defines the business logic for the fact ledger, streak
// accounting, and stats reporting. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrUserNotFound indicates that the target user id does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrForbidden is returned when the caller's verified identity does not
	// own the target user record.
	ErrForbidden = errors.New("cannot access other user's data")

	// ErrEmptyContent is returned when a fact is submitted with blank content.
	ErrEmptyContent = errors.New("fact content is empty")

	// ErrInvalidLimit is returned when a list limit falls outside [1, 500].
	ErrInvalidLimit = errors.New("limit must be between 1 and 500")

	// ErrBusy is returned when an append could not acquire the per-user
	// serialization slot within the configured wait. The caller should retry.
	ErrBusy = errors.New("user is busy with another append")
)
