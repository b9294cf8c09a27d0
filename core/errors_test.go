package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	var ae *AuthError
	err := fmt.Errorf("login: %w", &AuthError{Message: "bad credentials"})
	if !errors.As(err, &ae) || ae.Message != "bad credentials" {
		t.Fatalf("AuthError not recoverable: %v", err)
	}

	var re *RemoteError
	err = fmt.Errorf("fetch: %w", &RemoteError{Status: 503, Message: "unavailable"})
	if !errors.As(err, &re) || re.Status != 503 {
		t.Fatalf("RemoteError not recoverable: %v", err)
	}

	inner := errors.New("disk full")
	var se *StorageError
	err = &StorageError{Op: "upsert scores", Err: inner}
	if !errors.As(err, &se) || !errors.Is(err, inner) {
		t.Fatalf("StorageError should wrap its cause: %v", err)
	}
}

func TestRemoteErrorMessages(t *testing.T) {
	e := &RemoteError{Status: 0, Message: "connection refused"}
	if e.Error() != "remote: connection refused" {
		t.Fatalf("unexpected: %s", e.Error())
	}
	e = &RemoteError{Status: 404, Message: "not found"}
	if e.Error() != "remote: status 404: not found" {
		t.Fatalf("unexpected: %s", e.Error())
	}
}
