// Package metrics exposes the slideshow pipeline's counters and
// gauges in Prometheus format. A nil *Collector is valid and records
// nothing, so components take one without caring whether metrics are
// enabled.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the pipeline metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	ticksTotal       prometheus.Counter
	ticksSkipped     prometheus.Counter
	tickDuration     prometheus.Histogram
	downloads        prometheus.Counter
	downloadFailures prometheus.Counter
	applyFailures    prometheus.Counter
	commandTimeouts  prometheus.Counter
	evictions        prometheus.Counter
	cacheEntries     prometheus.Gauge
	cacheBytes       prometheus.Gauge
}

// NewCollector creates and registers the metric set.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallter_ticks_total",
			Help: "Slideshow ticks fired.",
		}),
		ticksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallter_ticks_skipped_total",
			Help: "Ticks skipped for lack of an eligible wallpaper.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "wallter_tick_duration_seconds",
			Help:    "Wall time of one slideshow tick.",
			Buckets: prometheus.DefBuckets,
		}),
		downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallter_downloads_total",
			Help: "Wallpapers downloaded and cached.",
		}),
		downloadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallter_download_failures_total",
			Help: "Failed wallpaper downloads.",
		}),
		applyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallter_apply_failures_total",
			Help: "Per-monitor apply failures.",
		}),
		commandTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallter_command_timeouts_total",
			Help: "Custom commands killed for exceeding their timeout.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wallter_evictions_total",
			Help: "Cache entries evicted.",
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wallter_cache_entries",
			Help: "Records currently in the cache index.",
		}),
		cacheBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wallter_cache_bytes",
			Help: "Bytes currently stored in the cache.",
		}),
	}
	c.registry.MustRegister(
		c.ticksTotal, c.ticksSkipped, c.tickDuration,
		c.downloads, c.downloadFailures,
		c.applyFailures, c.commandTimeouts, c.evictions,
		c.cacheEntries, c.cacheBytes,
	)
	return c
}

// Handler serves the registry in Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) TickFired(took time.Duration) {
	if c == nil {
		return
	}
	c.ticksTotal.Inc()
	c.tickDuration.Observe(took.Seconds())
}

func (c *Collector) TickSkipped() {
	if c == nil {
		return
	}
	c.ticksSkipped.Inc()
}

func (c *Collector) DownloadDone(ok bool) {
	if c == nil {
		return
	}
	if ok {
		c.downloads.Inc()
	} else {
		c.downloadFailures.Inc()
	}
}

func (c *Collector) ApplyFailed() {
	if c == nil {
		return
	}
	c.applyFailures.Inc()
}

func (c *Collector) CommandTimedOut() {
	if c == nil {
		return
	}
	c.commandTimeouts.Inc()
}

func (c *Collector) Evicted(count int) {
	if c == nil {
		return
	}
	c.evictions.Add(float64(count))
}

func (c *Collector) SetCacheSize(entries int, bytes int64) {
	if c == nil {
		return
	}
	c.cacheEntries.Set(float64(entries))
	c.cacheBytes.Set(float64(bytes))
}
