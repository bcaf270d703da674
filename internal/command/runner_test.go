package command

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallter/wallter/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func skipOnWindows(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test commands assume a POSIX shell")
	}
}

func TestRunCapturesOutput(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(5*time.Second, testLogger())

	res, err := r.Run(context.Background(), domain.PhasePre, "echo hello", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Output)
}

func TestRunPassesEnvironment(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(5*time.Second, testLogger())

	res, err := r.Run(context.Background(), domain.PhasePost,
		`echo "$WALLTER_WALLPAPER"`, map[string]string{"WALLTER_WALLPAPER": "/tmp/w.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/w.jpg\n", res.Output)
}

func TestRunEmptyCommandIsNoop(t *testing.T) {
	r := NewRunner(time.Second, testLogger())

	res, err := r.Run(context.Background(), domain.PhasePre, "   ", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.CommandResult{}, res)
}

func TestRunReportsNonZeroExit(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(5*time.Second, testLogger())

	res, err := r.Run(context.Background(), domain.PhasePre, "exit 3", nil)
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.NotErrorIs(t, err, domain.ErrCommandTimeout)
}

func TestRunTimeout(t *testing.T) {
	skipOnWindows(t)
	r := NewRunner(100*time.Millisecond, testLogger())

	start := time.Now()
	_, err := r.Run(context.Background(), domain.PhasePre, "sleep 5", nil)
	assert.ErrorIs(t, err, domain.ErrCommandTimeout)
	assert.Less(t, time.Since(start), 3*time.Second, "overrun kills the command, not the caller")
}
