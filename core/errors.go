package core

import "fmt"

// AuthError means the remote service rejected the credentials or returned a
// malformed sign-in response. Never retried; the message is surfaced to the
// caller as-is.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return "auth: " + e.Message }

// RemoteError is a transport or non-success response from the leaderboard
// service. Status is the upstream HTTP status, or 0 when no response was
// received at all. Any RemoteError aborts the synchronization in progress
// without partial persistence.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status == 0 {
		return "remote: " + e.Message
	}
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Message)
}

// StorageError means the persistence backend is unavailable or failed an
// operation. Data absence is never a StorageError.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError rejects a request before any I/O happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return "validation: " + e.Field + ": " + e.Message }
