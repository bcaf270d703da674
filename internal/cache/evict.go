package cache

import (
	"os"
	"sort"

	"github.com/wallter/wallter/internal/domain"
)

// EvictPolicy bounds the cache. Zero values mean unbounded on that
// axis; both zero makes Evict a no-op.
type EvictPolicy struct {
	MaxEntries int
	MaxBytes   int64
}

// Evict removes least-recently-set, non-favorite downloaded entries
// until the cache is under the policy's bounds. Favorites and local
// (user-owned) files are never removed. Returns the number evicted.
//
// The file is deleted before its index entry; a failure between the
// two leaves an orphan entry that the next load's reconcile prunes.
func (s *Store) Evict(policy EvictPolicy) (int, error) {
	if policy.MaxEntries <= 0 && policy.MaxBytes <= 0 {
		return 0, nil
	}

	records, err := s.List(FilterAll)
	if err != nil {
		return 0, err
	}

	entries := len(records)
	var bytes int64
	var victims []domain.WallpaperRecord
	for _, rec := range records {
		bytes += rec.FileSize
		if rec.Favorite || rec.Origin != domain.OriginDownload {
			continue
		}
		victims = append(victims, rec)
	}

	// Least recently set first; never-set entries sort before all set
	// ones, oldest download first among them.
	sort.Slice(victims, func(i, j int) bool {
		a, b := victims[i], victims[j]
		if a.LastSetAt.IsZero() != b.LastSetAt.IsZero() {
			return a.LastSetAt.IsZero()
		}
		if !a.LastSetAt.Equal(b.LastSetAt) {
			return a.LastSetAt.Before(b.LastSetAt)
		}
		return a.DownloadedAt.Before(b.DownloadedAt)
	})

	over := func() bool {
		if policy.MaxEntries > 0 && entries > policy.MaxEntries {
			return true
		}
		if policy.MaxBytes > 0 && bytes > policy.MaxBytes {
			return true
		}
		return false
	}

	evicted := 0
	for _, victim := range victims {
		if !over() {
			break
		}
		if err := os.Remove(victim.Path); err != nil && !os.IsNotExist(err) {
			return evicted, &domain.CacheIOError{Op: "evict", Path: victim.Path, Err: err}
		}
		if err := s.deleteEntry(victim.Checksum); err != nil {
			return evicted, err
		}
		entries--
		bytes -= victim.FileSize
		evicted++
		s.logger.Info("evicted wallpaper", "id", victim.ID, "path", victim.Path)
	}
	return evicted, nil
}
