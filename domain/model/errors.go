package model

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrNotFound          = errors.New("not found")
	ErrTransientNetwork  = errors.New("transient network failure")
	ErrMalformedResponse = errors.New("malformed response")
	ErrCacheCorruption   = errors.New("cache snapshot corrupted")
	ErrSyncInProgress    = errors.New("sync already in progress for scope")
	ErrNoCredentials     = errors.New("no API credentials configured")
)

// Sync stages reported in SyncError.Stage
const (
	StageResolveChannel = "resolve-channel"
	StageAcquireLock    = "acquire-lock"
	StageReadSnapshot   = "read-snapshot"
	StageListVideos     = "list-videos"
	StageVideoDetails   = "video-details"
	StageListComments   = "list-comments"
	StageReadComments   = "read-comments"
	StageCommit         = "commit"
)

// SyncError is the single user-visible failure of a sync cycle.
type SyncError struct {
	Stage     string
	Retryable bool
	Err       error
}

func NewSyncError(stage string, err error) *SyncError {
	return &SyncError{Stage: stage, Retryable: IsRetryable(err), Err: err}
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed at %s (retryable=%t): %v", e.Stage, e.Retryable, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether running the same cycle again may succeed.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrTransientNetwork),
		errors.Is(err, ErrCacheCorruption),
		errors.Is(err, ErrSyncInProgress),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	default:
		return false
	}
}
