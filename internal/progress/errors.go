package progress

import "errors"

var (
	// ErrMissingUserID indicates a required user id was absent.
	ErrMissingUserID = errors.New("user id is required")
	// ErrNotFound indicates no progress is stored for the user.
	ErrNotFound = errors.New("progress not found")
	// ErrInvalidInput indicates the provided data failed validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSyncDisabled indicates cloud sync is not configured.
	ErrSyncDisabled = errors.New("cloud sync is not enabled")
)
