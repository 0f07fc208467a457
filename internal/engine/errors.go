package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidThreads    = errors.New("thread count must be at least 1")
	ErrUnknownLength     = errors.New("remote content length is unknown")
	ErrRangeNotSupported = errors.New("server does not support range requests")
	ErrRangeIgnored      = errors.New("server ignored the range request and sent the full content")
	ErrRangeMismatch     = errors.New("server returned a different range than requested")
	ErrShortChunk        = errors.New("chunk size mismatch")
	ErrNotFound          = errors.New("resource not found")
	ErrForbidden         = errors.New("access forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrServerError       = errors.New("server error")
	ErrOutputInUse       = errors.New("output path is held by another download")
)

// PlanningError is returned before any chunk is fetched.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %v", e.Err)
}

func (e *PlanningError) Unwrap() error {
	return e.Err
}

// FetchError is attributable to the chunk at Index.
type FetchError struct {
	Index int
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// MergeError happens after every chunk was fetched. Index is -1 when the
// failure is not tied to a single chunk.
type MergeError struct {
	Index int
	Err   error
}

func (e *MergeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("merge failed: %v", e.Err)
	}
	return fmt.Sprintf("merge failed at chunk %d: %v", e.Index, e.Err)
}

func (e *MergeError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether retrying the request cannot change the outcome.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrRangeIgnored) ||
		errors.Is(err, ErrRangeNotSupported) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrUnauthorized)
}
