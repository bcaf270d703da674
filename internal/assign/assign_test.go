package assign

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallter/wallter/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(id string, w, h int) domain.WallpaperRecord {
	return domain.WallpaperRecord{ID: id, Checksum: id, Width: w, Height: h}
}

func monitor(id, w, h int) domain.Monitor {
	return domain.Monitor{
		ID: id, Name: fmt.Sprintf("M%d", id),
		Width: w, Height: h,
		Orientation: domain.OrientationOf(w, h),
		Scale:       1.0,
	}
}

func TestAssignPicksBestAspectFit(t *testing.T) {
	a := New(testLogger())

	pool := []domain.WallpaperRecord{
		record("portrait", 1080, 1920),
		record("landscape", 1920, 1080),
	}
	monitors := []domain.Monitor{monitor(1, 1920, 1080)}

	out, err := a.Assign(pool, monitors)
	require.NoError(t, err)
	assert.Equal(t, "landscape", out[1].ID)
}

func TestAssignEmptyPool(t *testing.T) {
	a := New(testLogger())

	_, err := a.Assign(nil, []domain.Monitor{monitor(1, 1920, 1080)})
	assert.ErrorIs(t, err, domain.ErrNoEligibleWallpaper)
}

func TestAssignDistinctPerMonitor(t *testing.T) {
	a := New(testLogger())

	pool := []domain.WallpaperRecord{
		record("a", 1920, 1080),
		record("b", 1920, 1080),
	}
	monitors := []domain.Monitor{monitor(1, 1920, 1080), monitor(2, 1920, 1080)}

	out, err := a.Assign(pool, monitors)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NotEqual(t, out[1].ID, out[2].ID)
}

func TestAssignDeterministicOnTies(t *testing.T) {
	pool := []domain.WallpaperRecord{
		record("first", 1920, 1080),
		record("second", 1920, 1080),
	}
	monitors := []domain.Monitor{monitor(1, 1920, 1080)}

	for i := 0; i < 5; i++ {
		a := New(testLogger())
		out, err := a.Assign(pool, monitors)
		require.NoError(t, err)
		assert.Equal(t, "first", out[1].ID, "ties break on input order")
	}
}

func TestAssignRepeatsLeastRecentlyAssigned(t *testing.T) {
	a := New(testLogger())

	pool := []domain.WallpaperRecord{record("only-a", 1920, 1080), record("only-b", 1920, 1080)}
	monitors := []domain.Monitor{
		monitor(1, 1920, 1080),
		monitor(2, 1920, 1080),
		monitor(3, 1920, 1080),
	}

	out, err := a.Assign(pool, monitors)
	require.NoError(t, err)
	require.Len(t, out, 3)

	// the pool is exhausted after two monitors; the third repeats the
	// record handed out first
	assert.Equal(t, out[1].ID, out[3].ID)
}

func TestScorePenalties(t *testing.T) {
	mon := monitor(1, 1920, 1080)

	perfect := Score(record("x", 1920, 1080), mon)
	assert.Equal(t, 0.0, perfect)

	small := Score(record("x", 1280, 720), mon)
	assert.InDelta(t, resolutionPenalty, small, 1e-9, "undersized adds the resolution penalty")

	rotated := Score(record("x", 1080, 1920), mon)
	assert.Greater(t, rotated, orientationPenalty, "orientation mismatch adds its penalty on top of aspect distance")

	// scale raises the effective resolution requirement
	scaled := mon
	scaled.Scale = 2.0
	assert.InDelta(t, resolutionPenalty, Score(record("x", 1920, 1080), scaled), 1e-9)
}

func TestScorePrefersPenalizedOverNothing(t *testing.T) {
	a := New(testLogger())

	// only a poorly fitting record exists; it still gets assigned
	pool := []domain.WallpaperRecord{record("bad", 640, 960)}
	out, err := a.Assign(pool, []domain.Monitor{monitor(1, 3840, 2160)})
	require.NoError(t, err)
	assert.Equal(t, "bad", out[1].ID)
}
