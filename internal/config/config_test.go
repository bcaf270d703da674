package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallter/wallter/internal/domain"
)

func TestIntervalDuration(t *testing.T) {
	tests := []struct {
		name     string
		interval Interval
		want     time.Duration
	}{
		{"seconds", Interval{Value: 90, Unit: UnitSeconds}, 90 * time.Second},
		{"minutes", Interval{Value: 5, Unit: UnitMinutes}, 5 * time.Minute},
		{"hours", Interval{Value: 2, Unit: UnitHours}, 2 * time.Hour},
		{"days", Interval{Value: 1, Unit: UnitDays}, 24 * time.Hour},
		{"unknown unit falls back to seconds", Interval{Value: 30, Unit: "fortnights"}, 30 * time.Second},
		{"zero clamps to floor", Interval{Value: 0, Unit: UnitSeconds}, MinInterval},
		{"negative clamps to floor", Interval{Value: -5, Unit: UnitMinutes}, MinInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.interval.Duration())
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "wallhaven", cfg.Source.Name)
	assert.Equal(t, "110", cfg.Source.Categories)
	assert.Equal(t, "100", cfg.Source.Purity)
	assert.Equal(t, 60*time.Second, cfg.Slideshow.Interval.Duration())
	assert.Equal(t, RotationSequential, cfg.Slideshow.Policy)
	assert.True(t, cfg.Slideshow.Checkpoint)
	assert.NotEmpty(t, cfg.Paths.DownloadsDir)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadMonitors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Monitors = []MonitorConfig{{ID: 1, Width: 0, Height: 1080}}
	assert.Error(t, cfg.Validate())

	cfg.Monitors = []MonitorConfig{
		{ID: 1, Width: 1920, Height: 1080},
		{ID: 1, Width: 2560, Height: 1440},
	}
	assert.ErrorContains(t, cfg.Validate(), "duplicate")
}

func TestValidateRejectsUnknownPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Slideshow.Policy = "shuffle"
	assert.Error(t, cfg.Validate())
}

func TestValidateRequiresDownloadsDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Paths.DownloadsDir = ""
	assert.ErrorContains(t, cfg.Validate(), "downloads_dir")
}

func TestMonitorDomainConversion(t *testing.T) {
	m := MonitorConfig{ID: 2, Name: "HDMI-1", Width: 1080, Height: 1920, Primary: true}
	mon := m.Domain()

	assert.Equal(t, domain.Portrait, mon.Orientation)
	assert.Equal(t, 1.0, mon.Scale, "missing scale defaults to 1.0")
	assert.True(t, mon.Primary)

	m.Scale = 1.5
	mon = m.Domain()
	assert.Equal(t, 1620, mon.EffectiveWidth())
	assert.Equal(t, 2880, mon.EffectiveHeight())
}

func TestSourceCriteria(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source.Query = "forest"
	cfg.Source.AtLeast = "2560x1440"

	criteria := cfg.Source.Criteria()
	assert.Equal(t, "forest", criteria.Query)
	assert.Equal(t, "2560x1440", criteria.AtLeast)
	assert.Equal(t, domain.SortRandom, criteria.Sorting)
}
