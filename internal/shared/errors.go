package shared

import "errors"

// Sentinel errors wrapped by domain packages so the HTTP boundary can map
// failures to status codes without knowing every domain error.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates the request was rejected before any write.
	ErrValidation = errors.New("validation failed")
	// ErrStateConflict indicates a lifecycle transition was not permitted.
	ErrStateConflict = errors.New("state conflict")
	// ErrDuplicate indicates a uniqueness conflict that survived retries.
	ErrDuplicate = errors.New("duplicate entry")
)
