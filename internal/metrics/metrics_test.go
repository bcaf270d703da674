package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.TickFired(time.Second)
	c.TickSkipped()
	c.DownloadDone(true)
	c.DownloadDone(false)
	c.ApplyFailed()
	c.CommandTimedOut()
	c.Evicted(3)
	c.SetCacheSize(10, 1024)
}

func TestCountersIncrement(t *testing.T) {
	c := NewCollector()

	c.TickFired(250 * time.Millisecond)
	c.TickFired(100 * time.Millisecond)
	c.TickSkipped()
	c.DownloadDone(true)
	c.DownloadDone(false)
	c.ApplyFailed()
	c.CommandTimedOut()
	c.Evicted(4)
	c.SetCacheSize(42, 1<<20)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ticksTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ticksSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.downloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.downloadFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.applyFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commandTimeouts))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.evictions))
	assert.Equal(t, 42.0, testutil.ToFloat64(c.cacheEntries))
	assert.Equal(t, float64(1<<20), testutil.ToFloat64(c.cacheBytes))
}

func TestHandlerServesRegistry(t *testing.T) {
	c := NewCollector()
	c.TickFired(time.Second)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "wallter_ticks_total 1")
}

func TestSeparateRegistries(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	a.TickFired(time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(a.ticksTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.ticksTotal))
}
