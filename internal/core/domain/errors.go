package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown integration key.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrSyncInProgress indicates a sync is already running for the connection.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrNoDocumentIDs indicates a sync was requested without root ids.
	ErrNoDocumentIDs = errors.New("No document IDs provided for sync")

	// ErrConnectionNotFound indicates the connection is archived or unknown.
	ErrConnectionNotFound = errors.New("connection not found")

	// ErrUserNotFound indicates an event carries no owning user.
	ErrUserNotFound = errors.New("user id not found")

	// ErrSyncNotFound indicates the sync record no longer exists.
	ErrSyncNotFound = errors.New("sync not found")

	// ErrStepTimeout indicates a step exceeded its deadline.
	ErrStepTimeout = errors.New("step timed out")

	// ErrStopWalk is returned by a walk visitor to end traversal early.
	ErrStopWalk = errors.New("stop walk")

	// ErrAuthInvalid indicates the caller or provider token is invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// ErrRateLimited indicates the provider API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrConnectorClosed indicates the connector has been closed.
	ErrConnectorClosed = errors.New("connector closed")
)

// NonRetriableError marks a failure that must not be retried.
type NonRetriableError struct {
	Err error
}

func (e *NonRetriableError) Error() string {
	return e.Err.Error()
}

func (e *NonRetriableError) Unwrap() error {
	return e.Err
}

// NonRetriable wraps err so that retry policies give up immediately.
// A nil err stays nil.
func NonRetriable(err error) error {
	if err == nil {
		return nil
	}
	var nre *NonRetriableError
	if errors.As(err, &nre) {
		return err
	}
	return &NonRetriableError{Err: err}
}

// NonRetriablef formats a message and marks it non-retriable.
func NonRetriablef(format string, args ...any) error {
	return &NonRetriableError{Err: fmt.Errorf(format, args...)}
}

// IsNonRetriable reports whether err, or anything it wraps, is non-retriable.
func IsNonRetriable(err error) bool {
	var nre *NonRetriableError
	return errors.As(err, &nre)
}

// ConnectionArchivedError builds the failure raised when a connection
// disappears during a sync.
func ConnectionArchivedError(connectionID string) error {
	return NonRetriable(fmt.Errorf("%w: Connection %q was archived during sync process",
		ErrConnectionNotFound, connectionID))
}

// SyncMissingError builds the failure raised when the sync record is gone.
func SyncMissingError(syncID string) error {
	return NonRetriable(fmt.Errorf("%w: Sync with id %q not found", ErrSyncNotFound, syncID))
}

// ErrorMessage returns the human-readable part of err for storage on a
// failed Sync. Sentinel prefixes and anything wrapped around them are
// dropped because the remaining message already names the subject.
func ErrorMessage(err error) string {
	if err == nil {
		return DefaultSyncErrorMessage
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrConnectionNotFound, ErrSyncNotFound, ErrStepTimeout} {
		prefix := sentinel.Error() + ": "
		if i := strings.Index(msg, prefix); i >= 0 && len(msg) > i+len(prefix) {
			return msg[i+len(prefix):]
		}
	}
	if msg == "" {
		return DefaultSyncErrorMessage
	}
	return msg
}
