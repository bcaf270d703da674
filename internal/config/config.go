package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/wallter/wallter/internal/domain"
)

// Config holds all application configuration. Components receive it (or a
// section of it) at construction and treat it as immutable for the run.
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Monitors  []MonitorConfig `mapstructure:"monitors"`
	Source    SourceConfig    `mapstructure:"source"`
	Slideshow SlideshowConfig `mapstructure:"slideshow"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// PathsConfig holds the local filesystem layout.
type PathsConfig struct {
	HomeDir      string `mapstructure:"home_dir"`      // root for everything below
	DownloadsDir string `mapstructure:"downloads_dir"` // cache files + index
	FavoritesDir string `mapstructure:"favorites_dir"` // mirror of favorite-marked files
	WallpaperDir string `mapstructure:"wallpaper_dir"` // user-provided local images
}

// MonitorConfig describes one display as declared in the config file.
// Detection is an external concern; the core only consumes the list.
type MonitorConfig struct {
	ID      int     `mapstructure:"id"`
	Name    string  `mapstructure:"name"`
	Width   int     `mapstructure:"width"`
	Height  int     `mapstructure:"height"`
	Scale   float64 `mapstructure:"scale"`
	X       int     `mapstructure:"x"`
	Y       int     `mapstructure:"y"`
	Primary bool    `mapstructure:"primary"`
}

// Domain converts the declared monitor into its domain form.
func (m MonitorConfig) Domain() domain.Monitor {
	scale := m.Scale
	if scale <= 0 {
		scale = 1.0
	}
	return domain.Monitor{
		ID:          m.ID,
		Name:        m.Name,
		Width:       m.Width,
		Height:      m.Height,
		Orientation: domain.OrientationOf(m.Width, m.Height),
		Scale:       scale,
		X:           m.X,
		Y:           m.Y,
		Primary:     m.Primary,
	}
}

// SourceConfig holds the remote source settings and default search params.
type SourceConfig struct {
	Name        string `mapstructure:"name"`     // only "wallhaven" is built in
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	Query       string `mapstructure:"query"`
	Categories  string `mapstructure:"categories"`
	Purity      string `mapstructure:"purity"`
	Sorting     string `mapstructure:"sorting"`
	Order       string `mapstructure:"order"`
	TopRange    string `mapstructure:"top_range"`
	AtLeast     string `mapstructure:"atleast"`
	Resolutions string `mapstructure:"resolutions"`
	Ratios      string `mapstructure:"ratios"`
	Colors      string `mapstructure:"colors"`

	RetryMax     int           `mapstructure:"retry_max"`     // attempts beyond the first
	RetryBackoff time.Duration `mapstructure:"retry_backoff"` // initial backoff
	FetchWorkers int           `mapstructure:"fetch_workers"`
}

// Criteria builds the default search criteria from the configured params.
func (s SourceConfig) Criteria() domain.SearchCriteria {
	return domain.SearchCriteria{
		Query:       s.Query,
		Categories:  s.Categories,
		Purity:      s.Purity,
		Sorting:     domain.Sorting(s.Sorting),
		Order:       s.Order,
		TopRange:    s.TopRange,
		AtLeast:     s.AtLeast,
		Resolutions: s.Resolutions,
		Ratios:      s.Ratios,
		Colors:      s.Colors,
	}
}

// IntervalUnit names the configured slideshow interval unit.
type IntervalUnit string

const (
	UnitSeconds IntervalUnit = "seconds"
	UnitMinutes IntervalUnit = "minutes"
	UnitHours   IntervalUnit = "hours"
	UnitDays    IntervalUnit = "days"
)

// Interval is the rotation period as value + unit.
type Interval struct {
	Value int          `mapstructure:"value"`
	Unit  IntervalUnit `mapstructure:"unit"`
}

// MinInterval is the floor every configured interval is clamped to.
// Zero or fractional-below-floor intervals must never busy-loop the timer.
const MinInterval = time.Second

// Duration converts the interval to a canonical duration, clamped to
// MinInterval. Unknown units fall back to seconds.
func (i Interval) Duration() time.Duration {
	var unit time.Duration
	switch i.Unit {
	case UnitMinutes:
		unit = time.Minute
	case UnitHours:
		unit = time.Hour
	case UnitDays:
		unit = 24 * time.Hour
	default:
		unit = time.Second
	}
	d := time.Duration(i.Value) * unit
	if d < MinInterval {
		return MinInterval
	}
	return d
}

// RotationPolicy selects how the slideshow picks the next record.
type RotationPolicy string

const (
	RotationSequential RotationPolicy = "sequential"
	RotationRandom     RotationPolicy = "random" // random without immediate repeat
)

// SlideshowConfig drives the scheduler.
type SlideshowConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	Interval       Interval       `mapstructure:"interval"`
	Policy         RotationPolicy `mapstructure:"policy"`
	FavoritesOnly  bool           `mapstructure:"favorites_only"`
	MinPoolSize    int            `mapstructure:"min_pool_size"` // below this, top up from the source
	Checkpoint     bool           `mapstructure:"checkpoint"`    // persist position for resume
	PreCommands    []string       `mapstructure:"pre_commands"`
	PostCommands   []string       `mapstructure:"post_commands"`
	CommandTimeout time.Duration  `mapstructure:"command_timeout"`
	ApplyCommand   string         `mapstructure:"apply_command"` // override OS default, {path}/{monitor} placeholders
}

// CacheConfig bounds the downloads cache.
type CacheConfig struct {
	MaxEntries   int   `mapstructure:"max_entries"` // 0 = unbounded
	MaxBytes     int64 `mapstructure:"max_bytes"`   // 0 = unbounded
	AdoptOrphans bool  `mapstructure:"adopt_orphans"`
}

// MetricsConfig controls the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	home := defaultHomeDir()
	return &Config{
		Paths: PathsConfig{
			HomeDir:      home,
			DownloadsDir: filepath.Join(home, "downloads"),
			FavoritesDir: filepath.Join(home, "favorites"),
			WallpaperDir: filepath.Join(home, "wallpaper"),
		},
		Source: SourceConfig{
			Name:         "wallhaven",
			BaseURL:      "https://wallhaven.cc/api/v1",
			Categories:   "110", // general + anime
			Purity:       "100", // sfw only
			Sorting:      string(domain.SortRandom),
			RetryMax:     3,
			RetryBackoff: 500 * time.Millisecond,
			FetchWorkers: 4,
		},
		Slideshow: SlideshowConfig{
			Enabled:        true,
			Interval:       Interval{Value: 60, Unit: UnitSeconds},
			Policy:         RotationSequential,
			MinPoolSize:    5,
			Checkpoint:     true,
			CommandTimeout: 10 * time.Second,
		},
		Cache: CacheConfig{
			MaxEntries:   200,
			MaxBytes:     0,
			AdoptOrphans: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9184",
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultHomeDir returns the wallpaper home for the current OS.
func defaultHomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Pictures", "Wallter")
}

// defaultLogPath returns the default log file path for the current OS.
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "wallter", "wallter.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "wallter", "wallter.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS.
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "wallter")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "wallter")
	}
}

// LoadConfig loads configuration from file and environment.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("WALLTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the configuration to the default config file.
func SaveConfig(cfg *Config) error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	viper.Set("paths.home_dir", cfg.Paths.HomeDir)
	viper.Set("paths.downloads_dir", cfg.Paths.DownloadsDir)
	viper.Set("paths.favorites_dir", cfg.Paths.FavoritesDir)
	viper.Set("paths.wallpaper_dir", cfg.Paths.WallpaperDir)

	viper.Set("source.name", cfg.Source.Name)
	viper.Set("source.base_url", cfg.Source.BaseURL)
	viper.Set("source.api_key", cfg.Source.APIKey)
	viper.Set("source.query", cfg.Source.Query)
	viper.Set("source.categories", cfg.Source.Categories)
	viper.Set("source.purity", cfg.Source.Purity)
	viper.Set("source.sorting", cfg.Source.Sorting)

	viper.Set("slideshow.enabled", cfg.Slideshow.Enabled)
	viper.Set("slideshow.interval.value", cfg.Slideshow.Interval.Value)
	viper.Set("slideshow.interval.unit", string(cfg.Slideshow.Interval.Unit))
	viper.Set("slideshow.policy", string(cfg.Slideshow.Policy))

	viper.Set("cache.max_entries", cfg.Cache.MaxEntries)
	viper.Set("cache.max_bytes", cfg.Cache.MaxBytes)

	viper.Set("metrics.enabled", cfg.Metrics.Enabled)
	viper.Set("metrics.addr", cfg.Metrics.Addr)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects settings the core cannot run with. It normalizes
// nothing; clamping (interval floor, scale) happens at the point of use.
func (c *Config) Validate() error {
	if c.Paths.DownloadsDir == "" {
		return fmt.Errorf("paths.downloads_dir must be set")
	}
	seen := make(map[int]bool, len(c.Monitors))
	for _, m := range c.Monitors {
		if m.Width <= 0 || m.Height <= 0 {
			return fmt.Errorf("monitor %d: width and height must be positive", m.ID)
		}
		if seen[m.ID] {
			return fmt.Errorf("monitor %d: duplicate id", m.ID)
		}
		seen[m.ID] = true
	}
	switch c.Slideshow.Policy {
	case RotationSequential, RotationRandom, "":
	default:
		return fmt.Errorf("slideshow.policy %q: must be sequential or random", c.Slideshow.Policy)
	}
	return nil
}

// DomainMonitors converts all declared monitors.
func (c *Config) DomainMonitors() []domain.Monitor {
	out := make([]domain.Monitor, 0, len(c.Monitors))
	for _, m := range c.Monitors {
		out = append(out, m.Domain())
	}
	return out
}

// EnsureDirs creates the configured directory layout. Only the downloads
// directory is load-bearing; failure there is fatal for startup.
func (c *Config) EnsureDirs() error {
	if err := os.MkdirAll(c.Paths.DownloadsDir, 0755); err != nil {
		return fmt.Errorf("downloads directory unusable: %w", err)
	}
	for _, dir := range []string{c.Paths.HomeDir, c.Paths.FavoritesDir, c.Paths.WallpaperDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}
