package streamstest

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zcw199604/kafka/types"
)

// StateDirectory is an in-memory state directory counting its calls.
type StateDirectory struct {
	processID uuid.UUID

	mu          sync.Mutex
	cleanerRuns int
	cleans      int
	closed      bool
	initErr     error
	lastDelay   time.Duration
}

var _ types.StateDirectory = (*StateDirectory)(nil)

// NewStateDirectory creates a directory with a random process id.
func NewStateDirectory() *StateDirectory {
	return &StateDirectory{processID: uuid.New()}
}

// FailInitialization makes InitializeProcessID return err.
func (d *StateDirectory) FailInitialization(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.initErr = err
}

// InitializeProcessID returns the directory's process id.
func (d *StateDirectory) InitializeProcessID() (uuid.UUID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.initErr != nil {
		return uuid.Nil, d.initErr
	}

	return d.processID, nil
}

// CleanRemovedTasks counts the call.
func (d *StateDirectory) CleanRemovedTasks(delay time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cleanerRuns++
	d.lastDelay = delay

	return nil
}

// Clean counts the call.
func (d *StateDirectory) Clean() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cleans++

	return nil
}

// Close marks the directory closed.
func (d *StateDirectory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	return nil
}

// CleanerRuns returns how many times CleanRemovedTasks ran.
func (d *StateDirectory) CleanerRuns() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.cleanerRuns
}

// Cleans returns how many times Clean ran.
func (d *StateDirectory) Cleans() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.cleans
}

// Closed reports whether Close was called.
func (d *StateDirectory) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.closed
}

// CleanerDelay returns the delay passed to the last CleanRemovedTasks call.
func (d *StateDirectory) CleanerDelay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.lastDelay
}
