// Package maintenance runs the client's periodic background tasks.
package maintenance

import (
	"errors"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/zcw199604/kafka/types"
)

var (
	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("scheduler already started")

	// ErrInvalidInterval is returned when a task is added with a non-positive interval.
	ErrInvalidInterval = errors.New("task interval must be positive")
)

type task struct {
	name     string
	interval time.Duration
	fn       func()
}

// Scheduler runs named tasks at fixed intervals until stopped.
//
// Tasks run on their own goroutines. A task is never run concurrently with itself;
// ticks that arrive while it is still running are dropped.
type Scheduler struct {
	clock  clock.WithTicker
	logger types.Logger

	mu      sync.Mutex
	tasks   []task
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler driven by clk.
//
// Parameters:
//   - clk: Clock providing tickers (clock.RealClock{} in production)
//   - logger: Logger for task lifecycle messages
func NewScheduler(clk clock.WithTicker, logger types.Logger) *Scheduler {
	return &Scheduler{
		clock:  clk,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Add registers a task. Tasks added after Start are ignored.
//
// Returns:
//   - error: ErrInvalidInterval if interval is not positive
func (s *Scheduler) Add(name string, interval time.Duration, fn func()) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.logger.Warn("ignoring maintenance task added after start", "task", name)
		return nil
	}
	s.tasks = append(s.tasks, task{name: name, interval: interval, fn: fn})

	return nil
}

// Start launches one goroutine per registered task.
//
// Returns:
//   - error: ErrAlreadyStarted if Start was already called
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	if s.stopped {
		return nil
	}

	for _, t := range s.tasks {
		ticker := s.clock.NewTicker(t.interval)
		s.wg.Go(func() {
			s.run(t, ticker)
		})
	}

	return nil
}

// Stop cancels every task and waits for running ones to return.
// It is safe to call Stop before Start and more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) run(t task, ticker clock.Ticker) {
	defer ticker.Stop()

	s.logger.Debug("maintenance task scheduled", "task", t.name, "interval", t.interval)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C():
			t.fn()
		}
	}
}
