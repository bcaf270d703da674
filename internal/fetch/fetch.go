// Package fetch drives candidates from the source into the cache on a
// bounded worker pool. Duplicate content collapses inside the cache's
// per-checksum serialization; the pool only provides parallel
// throughput.
package fetch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wallter/wallter/internal/cache"
	"github.com/wallter/wallter/internal/domain"
	"github.com/wallter/wallter/internal/metrics"
)

const defaultWorkers = 4

// Fetcher downloads candidates and stores them.
type Fetcher struct {
	source  domain.Source
	store   *cache.Store
	workers int
	logger  *slog.Logger
	metrics *metrics.Collector
}

// New creates a Fetcher. workers <= 0 falls back to the default.
func New(source domain.Source, store *cache.Store, workers int, logger *slog.Logger, collector *metrics.Collector) *Fetcher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		source:  source,
		store:   store,
		workers: workers,
		logger:  logger,
		metrics: collector,
	}
}

// FetchAll downloads every candidate through the worker pool and
// returns the records that ended up cached (including pre-existing
// duplicates). Individual failures are logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context, candidates []domain.Candidate) []domain.WallpaperRecord {
	if len(candidates) == 0 {
		return nil
	}

	jobs := make(chan domain.Candidate)
	results := make(chan domain.WallpaperRecord, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for candidate := range jobs {
				rec, err := f.fetchOne(ctx, candidate)
				if err != nil {
					f.metrics.DownloadDone(false)
					f.logger.Warn("fetch failed", "id", candidate.ID, "error", err)
					continue
				}
				f.metrics.DownloadDone(true)
				results <- rec
			}
		}()
	}

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		jobs <- candidate
	}
	close(jobs)
	wg.Wait()
	close(results)

	records := make([]domain.WallpaperRecord, 0, len(candidates))
	for rec := range results {
		records = append(records, rec)
	}
	return records
}

// TopUp searches with the given criteria and caches the results.
func (f *Fetcher) TopUp(ctx context.Context, criteria domain.SearchCriteria) ([]domain.WallpaperRecord, error) {
	candidates, err := f.source.Search(ctx, criteria)
	if err != nil {
		return nil, err
	}
	return f.FetchAll(ctx, candidates), nil
}

func (f *Fetcher) fetchOne(ctx context.Context, candidate domain.Candidate) (domain.WallpaperRecord, error) {
	data, err := f.source.Fetch(ctx, candidate)
	if err != nil {
		return domain.WallpaperRecord{}, err
	}
	return f.store.Put(cache.Checksum(data), data, cache.PutMeta{
		ID:        candidate.ID,
		SourceURL: candidate.URL,
		Width:     candidate.Width,
		Height:    candidate.Height,
		FileType:  candidate.FileType,
		Category:  candidate.Category,
		Purity:    candidate.Purity,
		Colors:    candidate.Colors,
	})
}
