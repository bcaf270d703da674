package cache

import (
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/wallter/wallter/internal/domain"
)

var keyCheckpoint = []byte("checkpoint")

// Checkpoint is the slideshow's persisted position, written after each
// tick when checkpointing is enabled so a restarted slideshow resumes
// where it left off. Unknown fields are ignored on load.
type Checkpoint struct {
	SessionID string    `json:"session_id"`
	Order     []string  `json:"order"`    // record ids in rotation order
	Position  int       `json:"position"` // index of the last shown record
	LastID    string    `json:"last_id"`
	SavedAt   time.Time `json:"saved_at"`
}

// SaveCheckpoint persists the slideshow position.
func (s *Store) SaveCheckpoint(cp Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return &domain.CacheIOError{Op: "checkpoint", Path: s.dir, Err: err}
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSlideshow).Put(keyCheckpoint, data)
	})
	if err != nil {
		return &domain.CacheIOError{Op: "checkpoint", Path: s.dir, Err: err}
	}
	return nil
}

// LoadCheckpoint returns the stored position, if any.
func (s *Store) LoadCheckpoint() (Checkpoint, bool) {
	var cp Checkpoint
	var ok bool
	s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSlideshow).Get(keyCheckpoint)
		if v == nil {
			return nil
		}
		if err := json.Unmarshal(v, &cp); err != nil {
			s.logger.Warn("discarding undecodable checkpoint", "error", err)
			return nil
		}
		ok = true
		return nil
	})
	return cp, ok
}

// ClearCheckpoint drops the stored position.
func (s *Store) ClearCheckpoint() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSlideshow).Delete(keyCheckpoint)
	})
}
