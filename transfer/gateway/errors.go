package gateway

import (
	"errors"
	"fmt"
)

// ErrClockNotSet is returned by LastModified when the bucket has no
// last-modified value yet. An empty bucket is a normal condition, not a
// failure: callers are expected to create the clock by advancing it.
var ErrClockNotSet = errors.New("bucket has no last-modified value")

// AuthorizationError is a credential rejection (401/403) from the signing
// authority. It is always fatal and never retried; the message is meant to be
// shown to the user so they can re-enter credentials.
type AuthorizationError struct {
	StatusCode int
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization rejected by storage gateway (HTTP %d): check the access token", e.StatusCode)
}

// TransferError is any other non-success response from the gateway or the
// object store during sign, upload, download or finalize. It carries the
// offending status and response body for diagnostics. Quota rejections from
// the gateway surface here too.
type TransferError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Err)
	}
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
