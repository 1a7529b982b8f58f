package assets

import (
	"errors"
	"fmt"
)

var (
	ErrNoRoot           = errors.New("assets: root directory missing")
	ErrRootNotDir       = errors.New("assets: root is not a directory")
	ErrAssetTooLarge    = errors.New("asset too large")
	ErrKeyTooLong       = errors.New("asset key too long")
	ErrTooManyAssets    = errors.New("too many assets")
	ErrReservedOutput   = errors.New("reserved server output in assets")
	ErrUnknownHash      = errors.New("requested file does not exist")
	ErrMissingToken     = errors.New("missing completion token")
	ErrUploadIncomplete = errors.New("upload incomplete")
	ErrTokenExpired     = errors.New("upload token expired")
)

// ValidationError is raised by the pre-pass, before any network call
type ValidationError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Err, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", e.Err, e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NegotiationError means the remote state could not be determined. Nothing was uploaded
type NegotiationError struct {
	Op  string
	Err error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("negotiate %s: %s", e.Op, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// UploadError reports a failed bucket. Buckets before it stay uploaded
type UploadError struct {
	Bucket    int // 1-based index of the failed bucket
	Completed int
	Total     int
	Expired   bool // session token expired before the failure
	Err       error
}

func (e *UploadError) Error() string {
	msg := fmt.Sprintf("upload bucket %d/%d failed after %d of %d buckets uploaded: %s",
		e.Bucket, e.Total, e.Completed, e.Total, e.Err)
	if e.Expired {
		msg += " (upload took too long; uploaded buckets are kept and the next attempt resumes from them)"
	}
	return msg
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError is a warning: new content is live, stale cleanup is retried next sync
type DeleteError struct {
	Keys int
	Err  error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("remove %d stale assets: %s", e.Keys, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// CredentialError means no completion credential could be obtained
type CredentialError struct {
	Err error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("complete asset upload: %s", e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }
