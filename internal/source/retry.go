// Package source wraps the remote wallpaper capability with the retry
// policy the rest of the system relies on: bounded attempts with
// exponential backoff on unreachable sources, rate-limit hints honored,
// malformed responses surfaced immediately.
package source

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wallter/wallter/internal/domain"
)

const (
	defaultRetryMax = 3
	defaultBackoff  = 500 * time.Millisecond
	maxBackoff      = 30 * time.Second
)

// Retrying decorates a domain.Source with the retry policy. It is
// itself a domain.Source.
type Retrying struct {
	inner    domain.Source
	retryMax int           // attempts beyond the first
	backoff  time.Duration // initial backoff, doubled per attempt
	logger   *slog.Logger

	// sleep is swappable so tests can observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps src. retryMax <= 0 and backoff <= 0 fall back to
// defaults.
func NewRetrying(src domain.Source, retryMax int, backoff time.Duration, logger *slog.Logger) *Retrying {
	if retryMax <= 0 {
		retryMax = defaultRetryMax
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{
		inner:    src,
		retryMax: retryMax,
		backoff:  backoff,
		logger:   logger,
		sleep:    sleepCtx,
	}
}

// Name returns the wrapped source's identifier.
func (r *Retrying) Name() string { return r.inner.Name() }

// Search retries the wrapped Search per the policy.
func (r *Retrying) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Candidate, error) {
	var out []domain.Candidate
	err := r.do(ctx, "search", func() error {
		var err error
		out, err = r.inner.Search(ctx, criteria)
		return err
	})
	return out, err
}

// Fetch retries the wrapped Fetch per the policy.
func (r *Retrying) Fetch(ctx context.Context, candidate domain.Candidate) ([]byte, error) {
	var out []byte
	err := r.do(ctx, "fetch", func() error {
		var err error
		out, err = r.inner.Fetch(ctx, candidate)
		return err
	})
	return out, err
}

func (r *Retrying) do(ctx context.Context, op string, fn func() error) error {
	delay := r.backoff
	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt >= r.retryMax {
			return lastErr
		}

		wait := delay
		var rl *domain.RateLimitError
		if errors.As(lastErr, &rl) && rl.RetryAfter > 0 {
			wait = rl.RetryAfter
		}
		r.logger.Warn("source request failed, backing off",
			"op", op, "attempt", attempt+1, "wait", wait, "error", lastErr)

		if err := r.sleep(ctx, wait); err != nil {
			return err
		}
		if delay *= 2; delay > maxBackoff {
			delay = maxBackoff
		}
	}
}

// retryable reports whether the error is transient. Invalid responses
// are data errors and never retried.
func retryable(err error) bool {
	return errors.Is(err, domain.ErrSourceUnreachable) || errors.Is(err, domain.ErrRateLimited)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
