package sequencer

import (
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cl607/cl607"
)

type (
	// Clock is the audio timebase notes are scheduled on.
	Clock interface {
		Now() float64
	}

	// Scheduler runs the look-ahead loop in its own goroutine. The State is
	// touched only by that goroutine; everything else reaches it through
	// channels: snapshots (latest wins), pattern and chain mode changes as
	// messages, and positions published back without blocking.
	Scheduler struct {
		clock    Clock
		trigger  TriggerFunc
		logger   *slog.Logger
		interval time.Duration
		rng      *rand.Rand

		snapshots chan Snapshot
		messages  chan any
		positions chan Position
		position  atomic.Pointer[Position]

		mu   sync.Mutex // guards stop and done
		stop chan struct{}
		done chan struct{}
	}

	// SchedulerConfig holds the optional settings of a Scheduler.
	SchedulerConfig struct {
		Logger   *slog.Logger
		Interval time.Duration // TickInterval when zero
		Rand     *rand.Rand    // randomizer source; must not be shared
	}

	selectPatternMsg struct{ key cl607.PatternKey }
	chainModeMsg     struct{ mode ChainMode }
)

func NewScheduler(clock Clock, trigger TriggerFunc, cfg SchedulerConfig) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = TickInterval
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(rand.Int63()))
	}
	s := &Scheduler{
		clock:     clock,
		trigger:   trigger,
		logger:    cfg.Logger,
		interval:  cfg.Interval,
		rng:       cfg.Rand,
		snapshots: make(chan Snapshot, 1),
		messages:  make(chan any, 64),
		positions: make(chan Position, 16),
	}
	s.position.Store(&Position{})
	return s
}

// Start begins playback from step 0 of the given pattern at the current
// clock time. A running loop is stopped first.
func (s *Scheduler) Start(snap Snapshot, pattern cl607.PatternKey, mode ChainMode) {
	s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	// drop anything queued for the previous run
loop:
	for {
		select {
		case <-s.snapshots:
		case <-s.messages:
		default:
			break loop
		}
	}
	state := NewState(s.clock.Now(), pattern, mode, s.rng)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.logger.Debug("scheduler started", "pattern", pattern, "chain", mode, "tempo", snap.Tempo)
	go s.run(state, snap, s.stop, s.done)
}

// Stop cancels the loop and waits for it to exit. Notes already handed to
// the engine keep ringing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
	pos := *s.position.Load()
	pos.Playing = false
	s.publish(pos)
	s.logger.Debug("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Update hands a new snapshot to the loop; only the latest one is kept.
func (s *Scheduler) Update(snap Snapshot) { cl607.SendLatest(s.snapshots, snap) }

// SelectPattern switches the pattern manually; the chain counter resets.
func (s *Scheduler) SelectPattern(k cl607.PatternKey) {
	cl607.TrySend(s.messages, any(selectPatternMsg{k}))
}

// SetChainMode changes the chain mode; the chain counter resets.
func (s *Scheduler) SetChainMode(m ChainMode) {
	cl607.TrySend(s.messages, any(chainModeMsg{m}))
}

// Position returns the most recently published position.
func (s *Scheduler) Position() Position { return *s.position.Load() }

// Positions delivers published positions to one reader. Positions are
// dropped when the reader falls behind.
func (s *Scheduler) Positions() <-chan Position { return s.positions }

func (s *Scheduler) run(state State, snap Snapshot, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.receive(&state, &snap)
		if state.Advance(s.clock.Now(), &snap, s.trigger) {
			s.logger.Debug("chain switched pattern", "pattern", state.Pattern)
		}
		s.publish(state.Position())
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) receive(state *State, snap *Snapshot) {
	for {
		select {
		case v := <-s.snapshots:
			*snap = v
		case msg := <-s.messages:
			switch m := msg.(type) {
			case selectPatternMsg:
				state.Pattern = m.key
				state.Chain.Reset()
			case chainModeMsg:
				state.Chain.SetMode(m.mode)
			}
		default:
			return
		}
	}
}

func (s *Scheduler) publish(pos Position) {
	s.position.Store(&pos)
	cl607.TrySend(s.positions, pos)
}
