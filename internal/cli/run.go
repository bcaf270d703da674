package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wallter/wallter/internal/assign"
	"github.com/wallter/wallter/internal/cache"
	"github.com/wallter/wallter/internal/command"
	"github.com/wallter/wallter/internal/config"
	"github.com/wallter/wallter/internal/domain"
	"github.com/wallter/wallter/internal/fetch"
	"github.com/wallter/wallter/internal/metrics"
	"github.com/wallter/wallter/internal/platform"
	"github.com/wallter/wallter/internal/slideshow"
	"github.com/wallter/wallter/internal/source"
	"github.com/wallter/wallter/internal/source/wallhaven"
)

func buildRunCommand() *cobra.Command {
	var oneshot bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the wallpaper slideshow",
		Long: `Open the cache, merge local wallpapers, and rotate wallpapers across
the configured monitors until interrupted. With --oneshot a single
rotation is applied and the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSlideshow(oneshot)
		},
	}

	cmd.Flags().BoolVar(&oneshot, "oneshot", false, "apply one rotation and exit")
	return cmd
}

func runSlideshow(oneshot bool) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	logger.Info("starting wallter", "version", Version)

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	monitors := cfg.DomainMonitors()
	if len(monitors) == 0 {
		return fmt.Errorf("no monitors configured; add a monitors section to the config file")
	}

	store, err := cache.Open(cfg.Paths.DownloadsDir, cache.Options{
		FavoritesDir: cfg.Paths.FavoritesDir,
		AdoptOrphans: cfg.Cache.AdoptOrphans,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to open wallpaper cache: %w", err)
	}
	defer store.Close()

	if cfg.Paths.WallpaperDir != "" {
		if n, err := store.MergeLocalDir(cfg.Paths.WallpaperDir); err != nil {
			logger.Warn("merging local wallpapers failed", "error", err)
		} else if n > 0 {
			logger.Info("merged local wallpapers", "count", n)
		}
	}

	var collector *metrics.Collector
	if cfg.Metrics.Enabled {
		collector = metrics.NewCollector()
		go serveMetrics(cfg.Metrics, collector, logger)
	}

	src := buildSource(cfg, logger)
	fetcher := fetch.New(src, store, cfg.Source.FetchWorkers, logger, collector)
	assigner := assign.New(logger)
	applier := platform.NewCommandApplier(cfg.Slideshow.ApplyCommand, logger)
	runner := command.NewRunner(cfg.Slideshow.CommandTimeout, logger)

	if oneshot {
		return applyOnce(store, fetcher, assigner, applier, cfg, monitors, logger)
	}

	sched := slideshow.New(store, assigner, applier, runner, fetcher,
		monitors, cfg.Slideshow, cfg.Source.Criteria(), logger, collector)
	sched.SetEvictPolicy(cache.EvictPolicy{
		MaxEntries: cfg.Cache.MaxEntries,
		MaxBytes:   cfg.Cache.MaxBytes,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start slideshow: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigChan:
		logger.Info("received signal, stopping", "signal", sig.String())
		if err := sched.Stop(); err != nil && !errors.Is(err, slideshow.ErrStopped) {
			logger.Warn("stopping slideshow", "error", err)
		}
	case <-sched.Done():
	}
	<-sched.Done()
	logger.Info("wallter stopped")
	return nil
}

// applyOnce performs a single assignment across all monitors without
// starting the timer loop.
func applyOnce(
	store *cache.Store,
	fetcher *fetch.Fetcher,
	assigner *assign.Assigner,
	applier domain.Applier,
	cfg *config.Config,
	monitors []domain.Monitor,
	logger *slog.Logger,
) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := store.List(cache.FilterAll)
	if err != nil {
		return err
	}
	if len(pool) == 0 {
		if _, err := fetcher.TopUp(ctx, cfg.Source.Criteria()); err != nil {
			return fmt.Errorf("cache is empty and fetching failed: %w", err)
		}
		if pool, err = store.List(cache.FilterAll); err != nil {
			return err
		}
	}

	assignment, err := assigner.Assign(pool, monitors)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, mon := range monitors {
		rec, ok := assignment[mon.ID]
		if !ok {
			continue
		}
		if err := applier.Apply(ctx, mon, rec.Path); err != nil {
			logger.Error("applying wallpaper failed", "monitor", mon.ID, "error", err)
			continue
		}
		fmt.Printf("monitor %d (%s): %s\n", mon.ID, mon.Name, rec.Path)
		if err := store.MarkSet(rec.ID, now); err != nil {
			logger.Warn("recording set time failed", "wallpaper", rec.ID, "error", err)
		}
	}
	return nil
}

// buildSource assembles the remote source with retry wrapping.
func buildSource(cfg *config.Config, logger *slog.Logger) domain.Source {
	client := wallhaven.NewClient(cfg.Source.BaseURL, cfg.Source.APIKey, logger)
	return source.NewRetrying(client, cfg.Source.RetryMax, cfg.Source.RetryBackoff, logger)
}

func serveMetrics(cfg config.MetricsConfig, collector *metrics.Collector, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	logger.Info("metrics listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		logger.Error("metrics server failed", "error", err)
	}
}
