package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/zcw199604/kafka/types"
)

// Close shuts the client down and waits without a deadline.
//
// Returns:
//   - error: ErrStreams if the shutdown could not be initiated
func (s *Streams) Close() error {
	_, err := s.close(context.Background(), forever)
	return err
}

// CloseWithTimeout shuts the client down and waits up to timeout for it to stop.
//
// Teardown runs on its own goroutine and proceeds even when the wait gives
// up. A zero timeout initiates the shutdown and returns at once. Calls made
// from a worker goroutine should carry WithWorkerIdentity so the teardown does
// not wait for the calling worker.
//
// Parameters:
//   - ctx: Context for cancellation of the wait, optionally carrying the caller's worker identity
//   - timeout: Maximum time to wait
//
// Returns:
//   - bool: Whether the client reached its terminal state in time
//   - error: ErrIllegalArgument for a negative timeout, ctx.Err() if ctx ended the wait
//
// Example:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	if stopped, err := streams.CloseWithTimeout(ctx, 30*time.Second); err != nil || !stopped {
//	    log.Printf("streams did not stop cleanly: %v", err)
//	}
func (s *Streams) CloseWithTimeout(ctx context.Context, timeout time.Duration) (bool, error) {
	if timeout < 0 {
		return false, fmt.Errorf("%w: timeout must not be negative, got %v", ErrIllegalArgument, timeout)
	}

	return s.close(ctx, timeout)
}

func (s *Streams) close(ctx context.Context, timeout time.Duration) (bool, error) {
	s.logger.Debug("stopping streams client", "client_id", s.clientID, "timeout", timeout)

	s.lifecycleMu.Lock()
	current := s.State()
	switch {
	case current.HasCompletedShutdown():
		s.lifecycleMu.Unlock()
		s.logger.Info("streams client is already stopped, skipping close", "state", current)

		return true, nil

	case current.IsShuttingDown():
		s.lifecycleMu.Unlock()
		target := StateNotRunning
		if current == StatePendingError {
			target = StateError
		}
		s.logger.Info("streams client is already shutting down, waiting for it to finish", "state", current)

		return s.awaitTermination(ctx, target, timeout)
	}

	ok, err := s.setState(StatePendingShutdown)
	s.lifecycleMu.Unlock()
	if err != nil {
		return false, fmt.Errorf("%w: failed to shut down: %w", ErrStreams, err)
	}
	if !ok {
		return false, fmt.Errorf("%w: failed to shut down while in state %s", ErrStreams, s.State())
	}

	caller := workerIdentity(ctx)
	go s.teardown(false, caller)

	return s.awaitTermination(ctx, StateNotRunning, timeout)
}

func (s *Streams) awaitTermination(ctx context.Context, target State, timeout time.Duration) (bool, error) {
	if timeout == 0 {
		return true, nil
	}

	reached, err := s.waitOnState(ctx, target, timeout)
	if err != nil {
		return false, err
	}
	if !reached {
		s.logger.Info("streams client did not stop within the timeout", "target", target, "state", s.State(), "timeout", timeout)
		return false, nil
	}
	s.logger.Info("streams client stopped completely", "client_id", s.clientID, "state", target)

	return true, nil
}

// joinWorkers waits for every worker except caller to exit and returns one
// error per worker that did not end up dead.
func (s *Streams) joinWorkers(workers []*workerEntry, caller string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	for _, e := range workers {
		if e.name == caller {
			continue
		}
		g.Go(func() error {
			<-e.worker.Done()
			if st := e.worker.State(); st != types.WorkerDead && st != types.WorkerCreated {
				mu.Lock()
				multierr.AppendInto(&errs, fmt.Errorf("worker %s exited in state %s", e.name, st))
				mu.Unlock()

				return nil
			}
			s.logger.Debug("worker stopped", "worker", e.name)

			return nil
		})
	}
	_ = g.Wait()

	return errs
}

// closeToError starts an error shutdown in the background.
func (s *Streams) closeToError() {
	ok, err := s.setState(StatePendingError)
	if err != nil {
		s.logger.Error("failed to start error shutdown", "error", err)
		return
	}
	if !ok {
		s.logger.Info("skipping error shutdown since the client is already shutting down", "state", s.State())
		return
	}

	go s.teardown(true, "")
}

// teardown stops every component and moves the client to its terminal state.
//
// The worker named by caller is signalled but not waited for.
func (s *Streams) teardown(toError bool, caller string) {
	start := s.clock.Now()
	s.maintenance.Stop()

	workers := s.snapshot()
	for _, e := range workers {
		e.worker.Shutdown()
	}
	s.logger.Info("shutdown of all workers initiated", "workers", len(workers))
	s.topology.WakeupWorkers()

	errs := s.joinWorkers(workers, caller)

	if s.global != nil {
		s.global.Shutdown()
		<-s.global.Done()
		s.logger.Info("global worker stopped")
	}

	if err := s.stateDir.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to close state directory: %w", err))
	}
	if err := s.admin.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("failed to close admin client: %w", err))
	}
	if errs != nil {
		s.logger.Error("errors during streams client shutdown", "error", errs)
	}

	s.metrics.RecordShutdownDuration(s.clock.Since(start).Seconds(), !toError)
	s.metrics.Close()

	final := StateNotRunning
	if toError {
		final = StateError
	}
	if _, err := s.setState(final); err != nil {
		s.logger.Error("failed to complete shutdown", "error", err)
	}
}
