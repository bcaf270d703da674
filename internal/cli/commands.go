package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/wallter/wallter/internal/cache"
	"github.com/wallter/wallter/internal/config"
	"github.com/wallter/wallter/internal/domain"
	"github.com/wallter/wallter/internal/fetch"
	"github.com/wallter/wallter/internal/platform"
)

// openStore is the shared preamble for commands that work on the cache.
func openStore(cfg *config.Config, logger *slog.Logger) (*cache.Store, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}
	store, err := cache.Open(cfg.Paths.DownloadsDir, cache.Options{
		FavoritesDir: cfg.Paths.FavoritesDir,
		AdoptOrphans: cfg.Cache.AdoptOrphans,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallpaper cache: %w", err)
	}
	return store, nil
}

func buildSearchCommand() *cobra.Command {
	var query string
	var page int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search the wallpaper source without downloading",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			criteria := cfg.Source.Criteria()
			if query != "" {
				criteria.Query = query
			}
			criteria.Page = page

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			src := buildSource(cfg, logger)
			candidates, err := src.Search(ctx, criteria)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if len(candidates) == 0 {
				fmt.Println("no results")
				return nil
			}
			for _, c := range candidates {
				fmt.Printf("%-10s %5dx%-5d %8s  %s\n",
					c.ID, c.Width, c.Height, byteSize(c.FileSize), c.PageURL)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search query, overrides the configured one")
	cmd.Flags().IntVarP(&page, "page", "p", 0, "result page")
	return cmd
}

func buildFetchCommand() *cobra.Command {
	var query string
	var count int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Search and download wallpapers into the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			criteria := cfg.Source.Criteria()
			if query != "" {
				criteria.Query = query
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			src := buildSource(cfg, logger)
			candidates, err := src.Search(ctx, criteria)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if count > 0 && len(candidates) > count {
				candidates = candidates[:count]
			}

			fetcher := fetch.New(src, store, cfg.Source.FetchWorkers, logger, nil)
			records := fetcher.FetchAll(ctx, candidates)
			for _, rec := range records {
				fmt.Printf("%-10s %5dx%-5d  %s\n", rec.ID, rec.Width, rec.Height, rec.Path)
			}
			fmt.Printf("downloaded %d/%d wallpapers\n", len(records), len(candidates))

			policy := cache.EvictPolicy{MaxEntries: cfg.Cache.MaxEntries, MaxBytes: cfg.Cache.MaxBytes}
			if n, err := store.Evict(policy); err != nil {
				logger.Warn("cache eviction failed", "error", err)
			} else if n > 0 {
				fmt.Printf("evicted %d wallpapers to stay within cache bounds\n", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "search query, overrides the configured one")
	cmd.Flags().IntVarP(&count, "count", "n", 0, "download at most N results (0 = all)")
	return cmd
}

func buildListCommand() *cobra.Command {
	var favoritesOnly bool
	var pattern string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached wallpapers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			filter := cache.FilterAll
			if favoritesOnly {
				filter = cache.FilterFavorites
			}

			var records []domain.WallpaperRecord
			if pattern != "" {
				records, err = store.Match(pattern, filter)
			} else {
				records, err = store.List(filter)
			}
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("cache is empty")
				return nil
			}
			for _, rec := range records {
				marker := " "
				if rec.Favorite {
					marker = "*"
				}
				fmt.Printf("%s %-12s %5dx%-5d %8s %-8s %s\n",
					marker, rec.ID, rec.Width, rec.Height,
					byteSize(rec.FileSize), rec.Origin, lastSet(rec))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&favoritesOnly, "favorites", "f", false, "only favorites")
	cmd.Flags().StringVarP(&pattern, "match", "m", "", "fuzzy match on id, category, and colors")
	return cmd
}

func buildApplyCommand() *cobra.Command {
	var monitorID int

	cmd := &cobra.Command{
		Use:   "apply <id>",
		Short: "Set one cached wallpaper on a monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Get(args[0])
			if err != nil {
				return fmt.Errorf("wallpaper %q: %w", args[0], err)
			}
			mon, err := pickMonitor(cfg.DomainMonitors(), monitorID)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			applier := platform.NewCommandApplier(cfg.Slideshow.ApplyCommand, logger)
			if err := applier.Apply(ctx, mon, rec.Path); err != nil {
				return err
			}
			if err := store.MarkSet(rec.ID, time.Now().UTC()); err != nil {
				logger.Warn("recording set time failed", "error", err)
			}
			fmt.Printf("monitor %d (%s): %s\n", mon.ID, mon.Name, rec.Path)
			return nil
		},
	}

	cmd.Flags().IntVarP(&monitorID, "monitor", "M", -1, "monitor id (default: primary)")
	return cmd
}

func pickMonitor(monitors []domain.Monitor, id int) (domain.Monitor, error) {
	if len(monitors) == 0 {
		return domain.Monitor{}, fmt.Errorf("no monitors configured")
	}
	if id < 0 {
		for _, m := range monitors {
			if m.Primary {
				return m, nil
			}
		}
		return monitors[0], nil
	}
	for _, m := range monitors {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Monitor{}, fmt.Errorf("monitor %d not found in config", id)
}

func buildFavoriteCommand() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "favorite <id>",
		Short: "Mark or unmark a cached wallpaper as favorite",
		Long: `Favorites are never evicted and are mirrored into the favorites
directory so they survive even a cleared cache.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.MarkFavorite(args[0], !remove); err != nil {
				return fmt.Errorf("wallpaper %q: %w", args[0], err)
			}
			if remove {
				fmt.Printf("removed %s from favorites\n", args[0])
			} else {
				fmt.Printf("marked %s as favorite\n", args[0])
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&remove, "remove", "r", false, "unmark instead")
	return cmd
}

func buildEvictCommand() *cobra.Command {
	var maxEntries int
	var maxBytes int64

	cmd := &cobra.Command{
		Use:   "evict",
		Short: "Trim the cache to its configured bounds",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			policy := cache.EvictPolicy{MaxEntries: cfg.Cache.MaxEntries, MaxBytes: cfg.Cache.MaxBytes}
			if maxEntries > 0 {
				policy.MaxEntries = maxEntries
			}
			if maxBytes > 0 {
				policy.MaxBytes = maxBytes
			}
			n, err := store.Evict(policy)
			if err != nil {
				return err
			}
			fmt.Printf("evicted %d wallpapers\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxEntries, "max-entries", 0, "override configured entry bound")
	cmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "override configured byte bound")
	return cmd
}

func buildStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache and configuration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats()
			if err != nil {
				return err
			}

			fmt.Printf("cache:      %s\n", store.Dir())
			fmt.Printf("entries:    %d (%d favorites), %s\n",
				stats.Entries, stats.Favorites, byteSize(stats.TotalBytes))
			fmt.Printf("source:     %s (%s)\n", cfg.Source.Name, cfg.Source.BaseURL)
			fmt.Printf("slideshow:  every %s, %s rotation\n",
				cfg.Slideshow.Interval.Duration(), cfg.Slideshow.Policy)
			fmt.Printf("monitors:   %d configured\n", len(cfg.Monitors))
			for _, m := range cfg.Monitors {
				mon := m.Domain()
				primary := ""
				if mon.Primary {
					primary = " primary"
				}
				fmt.Printf("  %d %-8s %s %s%s\n",
					mon.ID, mon.Name, mon.Resolution(), mon.Orientation, primary)
			}
			return nil
		},
	}
}

func lastSet(rec domain.WallpaperRecord) string {
	if rec.LastSetAt.IsZero() {
		return "never set"
	}
	return "set " + rec.LastSetAt.Local().Format("2006-01-02 15:04")
}

func byteSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
