package cache

import (
	"bytes"
	"image"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/wallter/wallter/internal/domain"
)

// MergeLocalDir indexes user-provided images from dir into the
// eligible pool. The files stay where they are; only index entries are
// created, with a local origin so eviction never touches the files.
// Returns the number of newly indexed images.
func (s *Store) MergeLocalDir(dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, &domain.CacheIOError{Op: "merge", Path: dir, Err: err}
	}

	merged := 0
	for _, entry := range entries {
		if entry.IsDir() || !isImageName(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable local image", "path", path, "error", err)
			continue
		}
		sum := Checksum(data)

		lock := s.lockFor(sum)
		lock.Lock()
		if _, ok := s.getByChecksum(sum); ok {
			lock.Unlock()
			continue
		}
		width, height := imageDimensions(data)
		rec := domain.WallpaperRecord{
			ID:           sum,
			Checksum:     sum,
			Origin:       domain.OriginLocal,
			Path:         path,
			Width:        width,
			Height:       height,
			FileSize:     int64(len(data)),
			DownloadedAt: modTime(entry),
		}
		err = s.saveRecord(rec)
		lock.Unlock()
		if err != nil {
			return merged, err
		}
		merged++
		s.logger.Debug("merged local wallpaper", "path", path, "checksum", sum)
	}
	if merged > 0 {
		s.logger.Info("merged local wallpapers", "dir", dir, "count", merged)
	}
	return merged, nil
}

// imageDimensions decodes just the image header. Unknown formats
// yield 0x0, which the assigner treats as a penalty, not an exclusion.
func imageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
