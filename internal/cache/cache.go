// Package cache owns the on-disk wallpaper files and their metadata
// index. Files are content-addressed by SHA-256; the index lives in a
// BoltDB file next to them. All metadata mutations go through the
// Store's API; other components only read record snapshots.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	bolt "go.etcd.io/bbolt"

	"github.com/wallter/wallter/internal/domain"
)

// Bucket names
var (
	bucketWallpapers = []byte("wallpapers")
	bucketSlideshow  = []byte("slideshow")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const indexFile = "index.db"

// Options tune Store behavior beyond the downloads directory itself.
type Options struct {
	// FavoritesDir receives a copy of every favorite-marked file.
	// Empty disables the mirror.
	FavoritesDir string

	// AdoptOrphans re-indexes files found in the downloads directory
	// without an index entry instead of ignoring them.
	AdoptOrphans bool
}

// Store implements the wallpaper cache over a directory + BoltDB index.
type Store struct {
	dir  string
	opts Options
	db   *bolt.DB

	logger *slog.Logger

	// Per-checksum locks serialize concurrent puts of the same content
	// so two simultaneous downloads produce one file and one entry.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens (or creates) the cache in dir and reconciles the index
// against the filesystem. Failure here is the one fatal startup error
// the core has.
func Open(dir string, opts Options, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &domain.CacheIOError{Op: "open", Path: dir, Err: err}
	}

	dbPath := filepath.Join(dir, indexFile)
	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, &domain.CacheIOError{Op: "open", Path: dbPath, Err: fmt.Errorf("failed to open bolt db: %w", err)}
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketWallpapers, bucketSlideshow} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, &domain.CacheIOError{Op: "open", Path: dbPath, Err: err}
	}

	s := &Store{
		dir:    dir,
		opts:   opts,
		db:     db,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
	if err := s.reconcile(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the index.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the downloads directory the store owns.
func (s *Store) Dir() string { return s.dir }

// Checksum returns the SHA-256 hex digest used as the cache key.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// PutMeta carries the source metadata recorded alongside the bytes.
type PutMeta struct {
	ID        string // source id; falls back to checksum
	SourceURL string
	Width     int
	Height    int
	FileType  string // content type, decides the file extension
	Category  string
	Purity    string
	Colors    []string
}

// Put stores data under its checksum. If an entry with the same
// checksum exists the stored record is returned unchanged. Otherwise
// the bytes are written to a temp file, verified, atomically renamed
// into place, and only then indexed, so a crash mid-download never
// leaves a corrupt entry behind.
func (s *Store) Put(checksum string, data []byte, meta PutMeta) (domain.WallpaperRecord, error) {
	if Checksum(data) != checksum {
		return domain.WallpaperRecord{}, domain.ErrInvalidImageData
	}

	lock := s.lockFor(checksum)
	lock.Lock()
	defer lock.Unlock()

	if rec, ok := s.getByChecksum(checksum); ok {
		s.logger.Debug("cache hit on put", "checksum", checksum, "id", rec.ID)
		return rec, nil
	}

	name := checksum + extensionFor(meta.FileType, meta.SourceURL)
	dst := filepath.Join(s.dir, name)
	if err := writeFileAtomic(s.dir, name, data); err != nil {
		return domain.WallpaperRecord{}, &domain.CacheIOError{Op: "put", Path: dst, Err: err}
	}

	id := meta.ID
	if id == "" {
		id = checksum
	}
	rec := domain.WallpaperRecord{
		ID:           id,
		Checksum:     checksum,
		SourceURL:    meta.SourceURL,
		Origin:       domain.OriginDownload,
		Path:         dst,
		Width:        meta.Width,
		Height:       meta.Height,
		FileSize:     int64(len(data)),
		Category:     meta.Category,
		Purity:       meta.Purity,
		Colors:       meta.Colors,
		DownloadedAt: time.Now().UTC(),
	}
	if err := s.saveRecord(rec); err != nil {
		// Index write failed after the file landed; remove the file so
		// filesystem and index stay in agreement.
		os.Remove(dst)
		return domain.WallpaperRecord{}, err
	}

	s.logger.Info("cached wallpaper", "id", rec.ID, "checksum", checksum, "bytes", rec.FileSize)
	return rec, nil
}

// Get returns the record whose ID or checksum matches id.
func (s *Store) Get(id string) (domain.WallpaperRecord, error) {
	if rec, ok := s.getByChecksum(id); ok {
		return rec, nil
	}
	var found *domain.WallpaperRecord
	s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWallpapers).ForEach(func(_, v []byte) error {
			var rec domain.WallpaperRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil // skip undecodable entries
			}
			if rec.ID == id {
				found = &rec
			}
			return nil
		})
	})
	if found == nil {
		return domain.WallpaperRecord{}, domain.ErrNotFound
	}
	return *found, nil
}

// Filter selects which records List returns.
type Filter int

const (
	FilterAll Filter = iota
	FilterFavorites
	FilterNonFavorites
)

// List returns records matching the filter, ordered by download time
// then checksum for a stable result.
func (s *Store) List(filter Filter) ([]domain.WallpaperRecord, error) {
	var out []domain.WallpaperRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWallpapers).ForEach(func(_, v []byte) error {
			var rec domain.WallpaperRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return nil
			}
			switch filter {
			case FilterFavorites:
				if !rec.Favorite {
					return nil
				}
			case FilterNonFavorites:
				if rec.Favorite {
					return nil
				}
			}
			out = append(out, rec)
			return nil
		})
	})
	if err != nil {
		return nil, &domain.CacheIOError{Op: "list", Path: s.dir, Err: err}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DownloadedAt.Equal(out[j].DownloadedAt) {
			return out[i].DownloadedAt.Before(out[j].DownloadedAt)
		}
		return out[i].Checksum < out[j].Checksum
	})
	return out, nil
}

// MarkFavorite flips the favorite flag and keeps the favorites mirror
// directory in step.
func (s *Store) MarkFavorite(id string, favorite bool) error {
	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	if rec.Favorite == favorite {
		return nil
	}
	rec.Favorite = favorite
	if err := s.saveRecord(rec); err != nil {
		return err
	}
	s.mirrorFavorite(rec)
	return nil
}

// MarkSet stamps the record with the time it was applied to a monitor.
func (s *Store) MarkSet(id string, at time.Time) error {
	rec, err := s.Get(id)
	if err != nil {
		return err
	}
	rec.LastSetAt = at.UTC()
	return s.saveRecord(rec)
}

func (s *Store) saveRecord(rec domain.WallpaperRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return &domain.CacheIOError{Op: "index", Path: rec.Path, Err: err}
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWallpapers).Put([]byte(rec.Checksum), data)
	})
	if err != nil {
		return &domain.CacheIOError{Op: "index", Path: rec.Path, Err: err}
	}
	return nil
}

func (s *Store) getByChecksum(checksum string) (domain.WallpaperRecord, bool) {
	var rec domain.WallpaperRecord
	var ok bool
	s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketWallpapers).Get([]byte(checksum))
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &rec); err != nil {
			return nil
		}
		ok = true
		return nil
	})
	return rec, ok
}

func (s *Store) deleteEntry(checksum string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketWallpapers).Delete([]byte(checksum))
	})
}

func (s *Store) lockFor(checksum string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[checksum]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[checksum] = lock
	}
	return lock
}

// mirrorFavorite copies the file into the favorites directory on
// favorite, and removes the copy on unfavorite. Best-effort: the flag
// in the index is authoritative.
func (s *Store) mirrorFavorite(rec domain.WallpaperRecord) {
	if s.opts.FavoritesDir == "" {
		return
	}
	dst := filepath.Join(s.opts.FavoritesDir, filepath.Base(rec.Path))
	if !rec.Favorite {
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("failed to remove favorite mirror", "path", dst, "error", err)
		}
		return
	}
	if err := os.MkdirAll(s.opts.FavoritesDir, 0755); err != nil {
		s.logger.Warn("failed to create favorites dir", "path", s.opts.FavoritesDir, "error", err)
		return
	}
	if err := copyFile(rec.Path, dst); err != nil {
		s.logger.Warn("failed to mirror favorite", "path", dst, "error", err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// extensionFor picks a file extension from the content type, falling
// back to the URL's extension, then ".img".
func extensionFor(fileType, sourceURL string) string {
	if fileType != "" {
		if exts, err := mime.ExtensionsByType(fileType); err == nil && len(exts) > 0 {
			// Prefer the conventional short forms.
			for _, want := range []string{".jpg", ".png", ".webp"} {
				for _, ext := range exts {
					if ext == want {
						return ext
					}
				}
			}
			return exts[0]
		}
	}
	if ext := strings.ToLower(filepath.Ext(sourceURL)); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".img"
}

// writeFileAtomic writes data to a temp file in dir and renames it
// into place. The temp file lives in the same directory so the rename
// is atomic on the same filesystem.
func writeFileAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(0644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(dir, name))
}
