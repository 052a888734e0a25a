package domain

import (
	"errors"

	"google.golang.org/api/googleapi"
)

var (
	// ErrNotAuthenticated means the user has no usable Gmail credential
	// (no refresh token, or the refresh exchange was rejected). Fatal to
	// a sync pass; the user must go through the OAuth flow again.
	ErrNotAuthenticated = errors.New("user not authenticated with Gmail")

	// ErrRemoteFetch means mailbox enumeration failed partway. The pass
	// aborts without reconciling: a partial reference list would make the
	// reconciler delete records for messages that still exist remotely.
	ErrRemoteFetch = errors.New("failed to fetch messages from Gmail")

	// ErrPermissionDenied means Gmail rejected an operation for missing
	// authorization scope. Not retryable; the caller should ask the user
	// to re-authenticate with the required scope.
	ErrPermissionDenied = errors.New("insufficient Gmail permissions")

	// ErrDuplicateEmail means a record with the same Gmail id already
	// exists. The unique index makes concurrent normalization of the same
	// reference race-safe; callers treat this as a skip, not a failure.
	ErrDuplicateEmail = errors.New("email already exists")

	ErrEmailNotFound = errors.New("email not found")
	ErrUserNotFound  = errors.New("user not found")
)

// IsPermissionDenied reports whether err is a Gmail 403, which indicates a
// missing OAuth scope rather than a transient failure.
func IsPermissionDenied(err error) bool {
	if errors.Is(err, ErrPermissionDenied) {
		return true
	}
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == 403
}
