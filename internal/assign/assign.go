// Package assign maps cached wallpapers onto the configured monitor
// set. Scoring favors "best available" over "none available": poor
// aspect or resolution fits are penalized, never excluded.
package assign

import (
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/wallter/wallter/internal/domain"
)

// Score penalties. A mismatch costs more than any realistic
// aspect-ratio distance so well-fitting candidates always win, but a
// penalized candidate still beats an empty monitor.
const (
	resolutionPenalty  = 2.0 // candidate smaller than the scaled monitor
	orientationPenalty = 1.0 // portrait image on a landscape monitor etc.
)

// Assigner binds wallpapers to monitors. It remembers when each record
// was last handed out so that an undersized pool repeats
// least-recently-assigned images first.
type Assigner struct {
	logger *slog.Logger

	mu   sync.Mutex
	seq  uint64
	last map[string]uint64 // checksum -> assignment sequence
}

// New creates an Assigner.
func New(logger *slog.Logger) *Assigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assigner{
		logger: logger,
		last:   make(map[string]uint64),
	}
}

// Assign maps each monitor to the lowest-scoring unassigned candidate.
// A candidate leaves the pool once assigned, so monitors in the same
// cycle get distinct images unless the pool is smaller than the
// monitor set. Ties break on input order, making the result
// deterministic for fixed inputs.
func (a *Assigner) Assign(pool []domain.WallpaperRecord, monitors []domain.Monitor) (map[int]domain.WallpaperRecord, error) {
	if len(pool) == 0 {
		return nil, domain.ErrNoEligibleWallpaper
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	remaining := make([]domain.WallpaperRecord, len(pool))
	copy(remaining, pool)

	out := make(map[int]domain.WallpaperRecord, len(monitors))
	for _, monitor := range monitors {
		if len(remaining) == 0 {
			remaining = a.refill(pool)
		}

		best := 0
		bestScore := math.Inf(1)
		for i, rec := range remaining {
			if s := Score(rec, monitor); s < bestScore {
				best, bestScore = i, s
			}
		}

		chosen := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)

		a.seq++
		a.last[chosen.Checksum] = a.seq
		out[monitor.ID] = chosen

		a.logger.Debug("assigned wallpaper",
			"monitor", monitor.Name, "id", chosen.ID, "score", bestScore)
	}
	return out, nil
}

// refill rebuilds the unassigned pool for repeat rounds, least
// recently assigned first (stable on input order for the never-seen).
func (a *Assigner) refill(pool []domain.WallpaperRecord) []domain.WallpaperRecord {
	next := make([]domain.WallpaperRecord, len(pool))
	copy(next, pool)
	sort.SliceStable(next, func(i, j int) bool {
		return a.last[next[i].Checksum] < a.last[next[j].Checksum]
	})
	return next
}

// Score rates how well a record fits a monitor; lower is better.
// Aspect-ratio distance is the base; insufficient resolution (after
// scale) and orientation mismatch add fixed penalties.
func Score(rec domain.WallpaperRecord, monitor domain.Monitor) float64 {
	score := math.Abs(rec.Aspect() - monitor.Aspect())
	if rec.Width < monitor.EffectiveWidth() || rec.Height < monitor.EffectiveHeight() {
		score += resolutionPenalty
	}
	if rec.Orientation() != monitor.Orientation {
		score += orientationPenalty
	}
	return score
}
