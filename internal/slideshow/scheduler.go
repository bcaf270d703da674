// Package slideshow drives the periodic wallpaper rotation: it owns
// the eligible pool ordering, asks the assigner to bind images to
// monitors, and invokes the apply and custom-command capabilities
// around each transition.
package slideshow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wallter/wallter/internal/assign"
	"github.com/wallter/wallter/internal/cache"
	"github.com/wallter/wallter/internal/config"
	"github.com/wallter/wallter/internal/domain"
	"github.com/wallter/wallter/internal/fetch"
	"github.com/wallter/wallter/internal/metrics"
)

// State of the scheduler's lifecycle.
type State int

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateStopped // terminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var (
	// ErrNotIdle is returned when Start is called twice.
	ErrNotIdle = errors.New("scheduler already started")
	// ErrStopped is returned for control calls after Stop.
	ErrStopped = errors.New("scheduler is stopped")
)

type ctlOp int

const (
	opPause ctlOp = iota
	opResume
	opStop
)

type ctlMsg struct {
	op    ctlOp
	reply chan error
}

// Scheduler rotates wallpapers on a single timer loop. Downloads run
// on the fetcher's pool; everything else is cooperative on the loop
// goroutine.
type Scheduler struct {
	store    *cache.Store
	assigner *assign.Assigner
	applier  domain.Applier
	runner   domain.CommandRunner
	fetcher  *fetch.Fetcher // nil disables pool top-up
	monitors []domain.Monitor
	cfg      config.SlideshowConfig
	criteria domain.SearchCriteria
	logger   *slog.Logger
	metrics  *metrics.Collector

	sessionID string
	interval  time.Duration
	rng       *rand.Rand

	mu    sync.Mutex
	state State
	ctl   chan ctlMsg
	done  chan struct{}

	// stopping is observed between monitors so an in-flight tick
	// aborts cleanly instead of leaving a monitor half-updated.
	stopping atomic.Bool

	// rotation state, touched only by the loop goroutine after Start
	order []string // record ids in rotation order
	pos   int      // index of the record shown last
	last  string   // id of the record shown last

	evict cache.EvictPolicy // applied after top-ups, zero value disables
}

// SetEvictPolicy makes the scheduler trim the cache after each top-up.
// Must be called before Start.
func (s *Scheduler) SetEvictPolicy(policy cache.EvictPolicy) {
	s.evict = policy
}

// New wires a Scheduler. fetcher and collector may be nil.
func New(
	store *cache.Store,
	assigner *assign.Assigner,
	applier domain.Applier,
	runner domain.CommandRunner,
	fetcher *fetch.Fetcher,
	monitors []domain.Monitor,
	cfg config.SlideshowConfig,
	criteria domain.SearchCriteria,
	logger *slog.Logger,
	collector *metrics.Collector,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:     store,
		assigner:  assigner,
		applier:   applier,
		runner:    runner,
		fetcher:   fetcher,
		monitors:  monitors,
		cfg:       cfg,
		criteria:  criteria,
		logger:    logger,
		metrics:   collector,
		sessionID: uuid.NewString(),
		interval:  cfg.Interval.Duration(), // clamped to the 1s floor
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		state:     StateIdle,
		ctl:       make(chan ctlMsg),
		done:      make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the loop has exited.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Start transitions Idle -> Running: it builds the rotation order from
// the cache's eligible pool (resuming a checkpoint when enabled) and
// launches the tick loop. The first rotation happens one interval
// after Start.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		if s.state == StateStopped {
			return ErrStopped
		}
		return ErrNotIdle
	}
	if len(s.monitors) == 0 {
		return fmt.Errorf("no monitors configured")
	}

	pool, err := s.eligiblePool()
	if err != nil {
		return err
	}
	s.order = recordIDs(pool)
	s.pos = -1 // the first tick advances to index 0

	if s.cfg.Checkpoint {
		s.resumeCheckpoint()
	}

	s.state = StateRunning
	s.logger.Info("slideshow started",
		"session", s.sessionID, "interval", s.interval,
		"policy", s.cfg.Policy, "pool", len(s.order), "monitors", len(s.monitors))

	go s.loop(ctx)
	return nil
}

// Pause suspends tick firing without losing position.
func (s *Scheduler) Pause() error { return s.control(opPause) }

// Resume continues tick firing after a Pause.
func (s *Scheduler) Resume() error { return s.control(opResume) }

// Stop cancels the timer and transitions to the terminal Stopped
// state. An in-flight tick aborts at the next monitor boundary.
func (s *Scheduler) Stop() error {
	s.stopping.Store(true)
	return s.control(opStop)
}

func (s *Scheduler) control(op ctlOp) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	switch state {
	case StateIdle:
		return fmt.Errorf("scheduler not started")
	case StateStopped:
		if op == opStop {
			return nil // idempotent
		}
		return ErrStopped
	}

	msg := ctlMsg{op: op, reply: make(chan error, 1)}
	select {
	case s.ctl <- msg:
		return <-msg.reply
	case <-s.done:
		if op == opStop {
			return nil
		}
		return ErrStopped
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-s.ctl:
			if stop := s.handleControl(msg); stop {
				return
			}
		case <-ticker.C:
			if s.State() != StateRunning {
				continue // paused: position is retained, ticks skipped
			}
			s.tick(ctx)
		case <-ctx.Done():
			s.setState(StateStopped)
			s.logger.Info("slideshow stopped", "session", s.sessionID, "reason", "context canceled")
			return
		}
	}
}

func (s *Scheduler) handleControl(msg ctlMsg) bool {
	switch msg.op {
	case opPause:
		s.setState(StatePaused)
		s.logger.Info("slideshow paused", "session", s.sessionID)
		msg.reply <- nil
	case opResume:
		s.setState(StateRunning)
		s.logger.Info("slideshow resumed", "session", s.sessionID)
		msg.reply <- nil
	case opStop:
		s.setState(StateStopped)
		s.logger.Info("slideshow stopped", "session", s.sessionID)
		msg.reply <- nil
		return true
	}
	return false
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
