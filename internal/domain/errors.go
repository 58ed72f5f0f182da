package domain

import "errors"

var (
	// ErrValidation marks caller-input errors that must be rejected at the boundary.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks lookups for records that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks state transitions rejected because of the current record state.
	ErrConflict = errors.New("conflict")

	// ErrMaintenanceRunning is returned when a maintenance job is triggered while
	// another one is still RUNNING. It is retryable and distinct from fatal failures.
	ErrMaintenanceRunning = errors.New("maintenance job already running")
)
