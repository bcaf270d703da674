package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested cache record does not exist
	ErrNotFound = errors.New("wallpaper not found")

	// ErrNoEligibleWallpaper indicates the candidate pool is empty after filtering
	ErrNoEligibleWallpaper = errors.New("no eligible wallpaper")

	// ErrSourceUnreachable indicates the wallpaper source could not be reached
	ErrSourceUnreachable = errors.New("wallpaper source unreachable")

	// ErrRateLimited indicates the source rejected the request for rate limiting
	ErrRateLimited = errors.New("wallpaper source rate limited")

	// ErrInvalidResponse indicates the source returned a malformed body
	ErrInvalidResponse = errors.New("invalid source response")

	// ErrInvalidImageData indicates downloaded bytes failed checksum verification
	ErrInvalidImageData = errors.New("image data failed checksum verification")

	// ErrCommandTimeout indicates a custom command exceeded its time budget
	ErrCommandTimeout = errors.New("custom command timed out")

	// ErrApplyFailed indicates the OS apply capability reported failure
	ErrApplyFailed = errors.New("wallpaper apply failed")
)

// RateLimitError carries the source's retry-after hint when one was given.
// It matches ErrRateLimited under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration // 0 when the source gave no hint
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("wallpaper source rate limited, retry after %s", e.RetryAfter)
	}
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// CacheIOError wraps a filesystem or index failure inside the cache.
// Fatal for the triggering operation only; the process continues.
type CacheIOError struct {
	Op   string // "put", "evict", "load", ...
	Path string
	Err  error
}

func (e *CacheIOError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *CacheIOError) Unwrap() error { return e.Err }
