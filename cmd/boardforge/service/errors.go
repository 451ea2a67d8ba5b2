package service

import "errors"

// Sentinel errors mapped to HTTP statuses at the gate.
var (
	// ErrNotFound means a referenced prototype, version, part or grant
	// row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the caller is authenticated but not permitted.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation means the request payload failed a validation rule.
	ErrValidation = errors.New("validation failed")
)
