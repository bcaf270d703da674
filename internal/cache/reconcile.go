package cache

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/wallter/wallter/internal/domain"
)

// reconcile makes index and filesystem agree on load. Entries whose
// file is gone or whose contents no longer hash to the key are pruned;
// cache-owned files without an entry are re-adopted when configured.
func (s *Store) reconcile() error {
	records, err := s.List(FilterAll)
	if err != nil {
		return err
	}

	known := make(map[string]bool, len(records)) // file base name -> indexed
	pruned := 0
	for _, rec := range records {
		data, err := os.ReadFile(rec.Path)
		switch {
		case err != nil:
			// Missing or unreadable file: the entry is an orphan.
		case Checksum(data) != rec.Checksum:
			// Contents changed underneath us; the entry lies.
		default:
			known[filepath.Base(rec.Path)] = true
			continue
		}
		if err := s.deleteEntry(rec.Checksum); err != nil {
			return err
		}
		pruned++
		s.logger.Warn("pruned stale cache entry", "id", rec.ID, "path", rec.Path)
	}

	adopted := 0
	if s.opts.AdoptOrphans {
		adopted, err = s.adoptOrphans(known)
		if err != nil {
			return err
		}
	}

	if pruned > 0 || adopted > 0 {
		s.logger.Info("cache reconciled", "pruned", pruned, "adopted", adopted)
	}
	return nil
}

// adoptOrphans indexes image files sitting in the downloads directory
// without an entry (e.g. after a lost index).
func (s *Store) adoptOrphans(known map[string]bool) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, &domain.CacheIOError{Op: "load", Path: s.dir, Err: err}
	}

	adopted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || known[name] || name == indexFile || strings.HasPrefix(name, ".") {
			continue
		}
		if !isImageName(name) {
			continue
		}
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable orphan", "path", path, "error", err)
			continue
		}
		sum := Checksum(data)
		if _, ok := s.getByChecksum(sum); ok {
			continue // duplicate content already indexed
		}
		width, height := imageDimensions(data)
		rec := domain.WallpaperRecord{
			ID:           sum,
			Checksum:     sum,
			Origin:       domain.OriginDownload,
			Path:         path,
			Width:        width,
			Height:       height,
			FileSize:     int64(len(data)),
			DownloadedAt: modTime(entry),
		}
		if err := s.saveRecord(rec); err != nil {
			return adopted, err
		}
		adopted++
	}
	return adopted, nil
}

func modTime(entry os.DirEntry) time.Time {
	if info, err := entry.Info(); err == nil {
		return info.ModTime().UTC()
	}
	return time.Now().UTC()
}

func isImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp", ".gif":
		return true
	}
	return false
}

// Stats summarizes the cache for status output and metrics gauges.
type Stats struct {
	Entries    int
	Favorites  int
	TotalBytes int64
}

// Stats walks the index and tallies entry counts and bytes.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWallpapers).ForEach(func(_, v []byte) error {
			var rec domain.WallpaperRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			st.Entries++
			st.TotalBytes += rec.FileSize
			if rec.Favorite {
				st.Favorites++
			}
			return nil
		})
	})
	if err != nil {
		return Stats{}, &domain.CacheIOError{Op: "stats", Path: s.dir, Err: err}
	}
	return st, nil
}
