package source

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallter/wallter/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedSource returns one queued error per call, then succeeds.
type scriptedSource struct {
	errs  []error
	calls int
}

func (s *scriptedSource) Name() string { return "scripted" }

func (s *scriptedSource) Search(ctx context.Context, criteria domain.SearchCriteria) ([]domain.Candidate, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return []domain.Candidate{{ID: "ok"}}, nil
}

func (s *scriptedSource) Fetch(ctx context.Context, candidate domain.Candidate) ([]byte, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return []byte("bytes"), nil
}

func (s *scriptedSource) next() error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

// instrument replaces the sleeper and records requested waits.
func instrument(r *Retrying) *[]time.Duration {
	var waits []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return &waits
}

func TestRetryOnUnreachable(t *testing.T) {
	inner := &scriptedSource{errs: []error{domain.ErrSourceUnreachable, domain.ErrSourceUnreachable}}
	r := NewRetrying(inner, 3, 100*time.Millisecond, testLogger())
	waits := instrument(r)

	out, err := r.Search(context.Background(), domain.SearchCriteria{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *waits,
		"backoff doubles per attempt")
}

func TestRetryExhaustedReturnsLastError(t *testing.T) {
	inner := &scriptedSource{errs: []error{
		domain.ErrSourceUnreachable,
		domain.ErrSourceUnreachable,
		domain.ErrSourceUnreachable,
	}}
	r := NewRetrying(inner, 2, time.Millisecond, testLogger())
	instrument(r)

	_, err := r.Search(context.Background(), domain.SearchCriteria{})
	assert.ErrorIs(t, err, domain.ErrSourceUnreachable)
	assert.Equal(t, 3, inner.calls, "first attempt plus retryMax retries")
}

func TestInvalidResponseNotRetried(t *testing.T) {
	inner := &scriptedSource{errs: []error{domain.ErrInvalidResponse}}
	r := NewRetrying(inner, 3, time.Millisecond, testLogger())
	instrument(r)

	_, err := r.Fetch(context.Background(), domain.Candidate{ID: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryHonorsRateLimitHint(t *testing.T) {
	inner := &scriptedSource{errs: []error{&domain.RateLimitError{RetryAfter: 7 * time.Second}}}
	r := NewRetrying(inner, 3, 100*time.Millisecond, testLogger())
	waits := instrument(r)

	_, err := r.Fetch(context.Background(), domain.Candidate{ID: "x"})
	require.NoError(t, err)
	require.Len(t, *waits, 1)
	assert.Equal(t, 7*time.Second, (*waits)[0], "server hint overrides the backoff")
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	inner := &scriptedSource{errs: []error{domain.ErrSourceUnreachable, domain.ErrSourceUnreachable}}
	r := NewRetrying(inner, 3, time.Hour, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Search(ctx, domain.SearchCriteria{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls, "no further attempts after cancellation")
}
