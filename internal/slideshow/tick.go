package slideshow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/wallter/wallter/internal/cache"
	"github.com/wallter/wallter/internal/config"
	"github.com/wallter/wallter/internal/domain"
)

// tick performs one rotation: refresh the pool if it ran low, pick the
// next window of records, assign them to monitors, and apply with the
// configured commands around the transition. Failures inside the tick
// are logged and absorbed so the timer keeps firing.
func (s *Scheduler) tick(ctx context.Context) {
	started := time.Now()
	tickID := uuid.NewString()[:8]
	log := s.logger.With("session", s.sessionID, "tick", tickID)

	pool, err := s.eligiblePool()
	if err != nil {
		log.Error("listing wallpaper pool failed", "error", err)
		s.metrics.TickSkipped()
		return
	}

	if s.fetcher != nil && len(pool) < s.cfg.MinPoolSize {
		if refreshed := s.topUp(ctx, log, len(pool)); refreshed != nil {
			pool = refreshed
		}
	}

	s.syncOrder(pool)
	if len(s.order) == 0 {
		log.Warn("no eligible wallpapers, skipping tick")
		s.metrics.TickSkipped()
		return
	}

	s.advance()
	window := s.window(pool)

	assignment, err := s.assigner.Assign(window, s.monitors)
	if err != nil {
		log.Error("assignment failed", "error", err)
		s.metrics.TickSkipped()
		return
	}

	env := s.commandEnv(tickID, assignment)
	s.runCommands(ctx, log, domain.PhasePre, s.cfg.PreCommands, env)

	applied := make([]domain.WallpaperRecord, 0, len(assignment))
	for _, mon := range s.monitors {
		if s.stopping.Load() {
			log.Info("stop requested, aborting tick", "applied", len(applied))
			break
		}
		rec, ok := assignment[mon.ID]
		if !ok {
			continue
		}
		if err := s.applier.Apply(ctx, mon, rec.Path); err != nil {
			log.Error("applying wallpaper failed",
				"monitor", mon.ID, "wallpaper", rec.ID, "error", err)
			s.metrics.ApplyFailed()
			continue // partial failure: remaining monitors still update
		}
		log.Info("wallpaper applied", "monitor", mon.ID, "wallpaper", rec.ID, "path", rec.Path)
		applied = append(applied, rec)
	}

	s.runCommands(ctx, log, domain.PhasePost, s.cfg.PostCommands, env)

	now := time.Now().UTC()
	for _, rec := range applied {
		if err := s.store.MarkSet(rec.ID, now); err != nil {
			log.Warn("recording set time failed", "wallpaper", rec.ID, "error", err)
		}
	}

	if s.cfg.Checkpoint {
		s.saveCheckpoint(log, now)
	}

	s.metrics.TickFired(time.Since(started))
}

// eligiblePool lists the records the rotation may draw from.
func (s *Scheduler) eligiblePool() ([]domain.WallpaperRecord, error) {
	filter := cache.FilterAll
	if s.cfg.FavoritesOnly {
		filter = cache.FilterFavorites
	}
	return s.store.List(filter)
}

func recordIDs(pool []domain.WallpaperRecord) []string {
	ids := make([]string, len(pool))
	for i, rec := range pool {
		ids[i] = rec.ID
	}
	return ids
}

// topUp asks the fetcher for fresh downloads and re-lists the pool.
// Source trouble is not fatal: the slideshow keeps rotating whatever
// the cache already holds.
func (s *Scheduler) topUp(ctx context.Context, log *slog.Logger, have int) []domain.WallpaperRecord {
	log.Info("pool below minimum, fetching", "have", have, "want", s.cfg.MinPoolSize)
	if _, err := s.fetcher.TopUp(ctx, s.criteria); err != nil {
		log.Warn("pool top-up failed, continuing with cached wallpapers", "error", err)
	}

	if s.evict.MaxEntries > 0 || s.evict.MaxBytes > 0 {
		if n, err := s.store.Evict(s.evict); err != nil {
			log.Warn("cache eviction failed", "error", err)
		} else if n > 0 {
			log.Info("evicted wallpapers", "count", n)
			s.metrics.Evicted(n)
		}
	}
	if stats, err := s.store.Stats(); err == nil {
		s.metrics.SetCacheSize(stats.Entries, stats.TotalBytes)
	}

	pool, err := s.eligiblePool()
	if err != nil {
		log.Error("re-listing pool after top-up failed", "error", err)
		return nil
	}
	return pool
}

// syncOrder reconciles the rotation order with the current pool:
// vanished records drop out, newcomers append at the end, and the
// position follows the last shown record when it survived.
func (s *Scheduler) syncOrder(pool []domain.WallpaperRecord) {
	present := make(map[string]bool, len(pool))
	for _, rec := range pool {
		present[rec.ID] = true
	}

	kept := s.order[:0]
	for _, id := range s.order {
		if present[id] {
			kept = append(kept, id)
			delete(present, id)
		}
	}
	s.order = kept
	for _, rec := range pool {
		if present[rec.ID] {
			s.order = append(s.order, rec.ID)
		}
	}

	s.pos = -1
	for i, id := range s.order {
		if id == s.last {
			s.pos = i
			break
		}
	}
}

// advance moves the position to the next record per the rotation
// policy. Random rotation never repeats the immediately previous pick
// while more than one record is eligible.
func (s *Scheduler) advance() {
	n := len(s.order)
	switch {
	case n == 1:
		s.pos = 0
	case s.cfg.Policy == config.RotationRandom:
		next := s.rng.Intn(n)
		for next == s.pos {
			next = s.rng.Intn(n)
		}
		s.pos = next
	default: // sequential, wrapping
		s.pos = (s.pos + 1) % n
	}
	s.last = s.order[s.pos]
}

// window hands the assigner one record per monitor, walking the
// rotation order forward from the current position.
func (s *Scheduler) window(pool []domain.WallpaperRecord) []domain.WallpaperRecord {
	byID := make(map[string]domain.WallpaperRecord, len(pool))
	for _, rec := range pool {
		byID[rec.ID] = rec
	}

	size := len(s.monitors)
	if size > len(s.order) {
		size = len(s.order)
	}
	window := make([]domain.WallpaperRecord, 0, size)
	for i := 0; i < size; i++ {
		id := s.order[(s.pos+i)%len(s.order)]
		if rec, ok := byID[id]; ok {
			window = append(window, rec)
		}
	}
	return window
}

// commandEnv builds the environment handed to pre and post commands.
func (s *Scheduler) commandEnv(tickID string, assignment map[int]domain.WallpaperRecord) map[string]string {
	env := map[string]string{
		"WALLTER_SESSION": s.sessionID,
		"WALLTER_TICK":    tickID,
	}
	for id, rec := range assignment {
		key := "WALLTER_WALLPAPER_" + strconv.Itoa(id)
		env[key] = rec.Path
		if rec.ID == s.last {
			env["WALLTER_WALLPAPER"] = rec.Path
		}
	}
	if _, ok := env["WALLTER_WALLPAPER"]; !ok && len(assignment) > 0 {
		// Fall back to the primary monitor's wallpaper, then the
		// lowest assigned monitor id.
		pick := -1
		for id := range assignment {
			if pick == -1 || id < pick {
				pick = id
			}
		}
		for _, mon := range s.monitors {
			if mon.Primary {
				if _, ok := assignment[mon.ID]; ok {
					pick = mon.ID
				}
				break
			}
		}
		env["WALLTER_WALLPAPER"] = assignment[pick].Path
	}
	return env
}

// runCommands executes the configured hooks for one phase. A timeout
// or failure aborts only the offending command, never the tick.
func (s *Scheduler) runCommands(ctx context.Context, log *slog.Logger, phase domain.CommandPhase, commands []string, env map[string]string) {
	for _, command := range commands {
		res, err := s.runner.Run(ctx, phase, command, env)
		if err != nil {
			if errors.Is(err, domain.ErrCommandTimeout) {
				log.Warn("command timed out", "phase", phase, "command", command)
				s.metrics.CommandTimedOut()
				continue
			}
			log.Warn("command failed",
				"phase", phase, "command", command,
				"exit_code", res.ExitCode, "error", err)
		}
	}
}

func (s *Scheduler) resumeCheckpoint() {
	cp, ok := s.store.LoadCheckpoint()
	if !ok {
		return
	}

	present := make(map[string]bool, len(s.order))
	for _, id := range s.order {
		present[id] = true
	}
	resumed := make([]string, 0, len(cp.Order))
	for _, id := range cp.Order {
		if present[id] {
			resumed = append(resumed, id)
			delete(present, id)
		}
	}
	for _, id := range s.order {
		if present[id] {
			resumed = append(resumed, id)
		}
	}
	s.order = resumed
	s.last = cp.LastID
	s.pos = -1
	for i, id := range s.order {
		if id == cp.LastID {
			s.pos = i
			break
		}
	}
	s.logger.Info("resumed slideshow checkpoint",
		"saved_at", cp.SavedAt, "position", s.pos, "pool", len(s.order))
}

func (s *Scheduler) saveCheckpoint(log *slog.Logger, now time.Time) {
	cp := cache.Checkpoint{
		SessionID: s.sessionID,
		Order:     s.order,
		Position:  s.pos,
		LastID:    s.last,
		SavedAt:   now,
	}
	if err := s.store.SaveCheckpoint(cp); err != nil {
		log.Warn("saving checkpoint failed", "error", err)
	}
}
