package kafka

import (
	"context"
	"fmt"
	"math"
	"time"
)

// forever is the timeout meaning no deadline.
const forever = time.Duration(math.MaxInt64)

// stateChange is an accepted transition awaiting listener delivery.
type stateChange struct {
	from State
	to   State
}

// State returns the current client state.
func (s *Streams) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	return s.state
}

// setState moves the client to next and notifies the listener.
//
// Must not be called while holding the worker state table lock; use
// commitState there and notify after unlocking.
//
// Returns:
//   - bool: false when the transition was quietly refused
//   - error: ErrInvalidTransition for a transition outside the successor graph
func (s *Streams) setState(next State) (bool, error) {
	ok, err := s.commitState(next)
	s.notifyListener()

	return ok, err
}

// commitState applies a transition and queues the listener notification.
func (s *Streams) commitState(next State) (bool, error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	old := s.state
	if old.RefusesQuietly(next) {
		s.logger.Debug("ignoring state transition", "client_id", s.clientID, "from", old, "to", next)
		return false, nil
	}
	if !old.IsValidTransition(next) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, old, next)
	}

	s.state = next
	close(s.stateChanged)
	s.stateChanged = make(chan struct{})
	s.pending = append(s.pending, stateChange{from: old, to: next})

	s.logger.Info("state transition", "client_id", s.clientID, "from", old, "to", next)
	s.metrics.RecordStateTransition(old, next)

	return true, nil
}

// notifyListener delivers queued transitions in commit order.
//
// Delivery runs outside the state lock. A goroutine that finds another one
// delivering leaves its transitions to it, so a listener calling back into
// the client never deadlocks.
func (s *Streams) notifyListener() {
	for {
		if !s.notifyMu.TryLock() {
			return
		}

		for {
			s.stateMu.Lock()
			if len(s.pending) == 0 {
				s.stateMu.Unlock()
				break
			}
			change := s.pending[0]
			s.pending = s.pending[1:]
			listener := s.stateListener
			s.stateMu.Unlock()

			if listener != nil {
				listener(change.to, change.from)
			}
		}
		s.notifyMu.Unlock()

		// A transition committed between the drain and the unlock would be
		// stranded otherwise.
		s.stateMu.Lock()
		empty := len(s.pending) == 0
		s.stateMu.Unlock()
		if empty {
			return
		}
	}
}

// waitOnState blocks until the client reaches target.
//
// A timeout of forever waits without a deadline. Waiting ends early when
// the client reaches a terminal state other than target.
//
// Returns:
//   - bool: Whether target was reached
//   - error: ctx.Err() when ctx is done first
func (s *Streams) waitOnState(ctx context.Context, target State, timeout time.Duration) (bool, error) {
	var deadline <-chan time.Time
	if timeout != forever {
		timer := s.clock.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C()
	}

	for {
		s.stateMu.Lock()
		current, changed := s.state, s.stateChanged
		s.stateMu.Unlock()

		if current == target {
			return true, nil
		}
		if current.HasCompletedShutdown() {
			return false, nil
		}

		select {
		case <-changed:
		case <-deadline:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// WaitState waits until the client reaches the expected state.
//
// Parameters:
//   - expectedState: State to wait for
//   - timeout: Maximum time to wait
//
// Returns:
//   - <-chan error: Receives nil once reached, context.DeadlineExceeded on
//     timeout, or ErrIllegalState when a terminal state makes it unreachable
//
// Example:
//
//	if err := <-streams.WaitState(kafka.StateRunning, 30*time.Second); err != nil {
//	    log.Fatal("client did not reach running state")
//	}
func (s *Streams) WaitState(expectedState State, timeout time.Duration) <-chan error {
	ch := make(chan error, 1) // Buffered to prevent goroutine leak

	go func() {
		defer close(ch)

		reached, err := s.waitOnState(context.Background(), expectedState, timeout)
		switch {
		case err != nil:
			ch <- err
		case reached:
			ch <- nil
		case s.State().HasCompletedShutdown():
			ch <- fmt.Errorf("%w: client stopped in state %s while waiting for %s", ErrIllegalState, s.State(), expectedState)
		default:
			ch <- context.DeadlineExceeded
		}
	}()

	return ch
}
