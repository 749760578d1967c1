package dataexport

import "errors"

var (
	// Store errors.
	ErrNoStore         = errors.New("dataexport: no store configured")
	ErrStoreClosed     = errors.New("dataexport: store closed")
	ErrMigrationFailed = errors.New("dataexport: migration failed")

	// Not found errors.
	ErrTriggerNotFound = errors.New("dataexport: trigger not found")
	ErrConfigNotFound  = errors.New("dataexport: export configuration not found")
	ErrWorkerNotFound  = errors.New("dataexport: worker not found")

	// Conflict errors.
	ErrDuplicateTrigger = errors.New("dataexport: duplicate trigger")

	// Configuration-time errors. Surfaced synchronously to the caller of
	// Apply before any store mutation happens.
	ErrInvalidConfiguration = errors.New("dataexport: invalid export configuration")
	ErrInvalidArgument      = errors.New("dataexport: invalid argument")

	// Fire-time errors.
	ErrScheduling       = errors.New("dataexport: scheduling operation failed")
	ErrMissingParameter = errors.New("dataexport: required job parameter missing")
)
