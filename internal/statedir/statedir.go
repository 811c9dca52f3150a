// Package statedir implements the local persistent state directory of a client.
//
// Layout under the configured root:
//
//	<root>/<applicationId>/kafka-streams-process-metadata
//	<root>/<applicationId>/<subtopology>_<partition>/...
//
// Task directories holding a ".lock" file are in use by a worker and are never
// removed by the cleaner.
package statedir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"k8s.io/utils/clock"

	"github.com/zcw199604/kafka/types"
)

const (
	processFileName = "kafka-streams-process-metadata"
	taskLockFile    = ".lock"
)

var taskDirPattern = regexp.MustCompile(`^\d+_\d+$`)

type processMetadata struct {
	ProcessID uuid.UUID `json:"processId"`
}

// Directory is the default types.StateDirectory implementation.
type Directory struct {
	appDir string
	clock  clock.PassiveClock
	logger types.Logger

	mu     sync.Mutex
	closed bool
}

// Compile-time assertion that Directory implements StateDirectory.
var _ types.StateDirectory = (*Directory)(nil)

// New opens (creating if needed) the state directory of applicationID under root.
//
// Parameters:
//   - root: State directory root (Config.StateDir)
//   - applicationID: Application id, used as the sub-directory name
//   - clk: Clock used to age task directories
//   - logger: Logger for cleanup messages
//
// Returns:
//   - *Directory: The opened directory
//   - error: Any error creating the directory
func New(root, applicationID string, clk clock.PassiveClock, logger types.Logger) (*Directory, error) {
	if root == "" || applicationID == "" {
		return nil, fmt.Errorf("%w: state directory root and application id are required", types.ErrIllegalArgument)
	}

	appDir := filepath.Join(root, applicationID)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory %s: %w", appDir, err)
	}

	return &Directory{appDir: appDir, clock: clk, logger: logger}, nil
}

// Path returns the application state directory.
func (d *Directory) Path() string {
	return d.appDir
}

// InitializeProcessID loads the persisted process id, creating and persisting
// a new random one when none exists.
func (d *Directory) InitializeProcessID() (uuid.UUID, error) {
	if err := d.ensureOpen(); err != nil {
		return uuid.Nil, err
	}

	path := filepath.Join(d.appDir, processFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var meta processMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return uuid.Nil, fmt.Errorf("corrupt process metadata %s: %w", path, err)
		}
		if meta.ProcessID != uuid.Nil {
			d.logger.Info("reading process id from state directory", "process_id", meta.ProcessID)
			return meta.ProcessID, nil
		}
	case !errors.Is(err, os.ErrNotExist):
		return uuid.Nil, fmt.Errorf("failed to read process metadata %s: %w", path, err)
	}

	meta := processMetadata{ProcessID: uuid.New()}
	data, err = json.Marshal(meta)
	if err != nil {
		return uuid.Nil, err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return uuid.Nil, fmt.Errorf("failed to write process metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return uuid.Nil, fmt.Errorf("failed to persist process metadata: %w", err)
	}
	d.logger.Info("created new process id", "process_id", meta.ProcessID)

	return meta.ProcessID, nil
}

// CleanRemovedTasks deletes unlocked task directories not modified within delay.
func (d *Directory) CleanRemovedTasks(delay time.Duration) error {
	if err := d.ensureOpen(); err != nil {
		return err
	}

	dirs, err := d.taskDirs()
	if err != nil {
		return err
	}

	now := d.clock.Now()
	var errs error
	for _, dir := range dirs {
		if isLocked(dir) {
			continue
		}

		info, err := os.Stat(dir)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if now.Sub(info.ModTime()) <= delay {
			continue
		}

		d.logger.Info("deleting obsolete task directory", "dir", filepath.Base(dir), "idle", now.Sub(info.ModTime()))
		errs = multierr.Append(errs, os.RemoveAll(dir))
	}

	return errs
}

// Clean removes every unlocked task directory. It is allowed after Close.
func (d *Directory) Clean() error {
	dirs, err := d.taskDirs()
	if err != nil {
		return err
	}

	var errs error
	for _, dir := range dirs {
		if isLocked(dir) {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s", types.ErrStateDirLocked, filepath.Base(dir)))
			continue
		}
		errs = multierr.Append(errs, os.RemoveAll(dir))
	}

	return errs
}

// Close releases the directory. Further process id and cleaner calls return ErrIllegalState.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true

	return nil
}

func (d *Directory) ensureOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return fmt.Errorf("%w: state directory %s is closed", types.ErrIllegalState, d.appDir)
	}

	return nil
}

func (d *Directory) taskDirs() ([]string, error) {
	entries, err := os.ReadDir(d.appDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list state directory %s: %w", d.appDir, err)
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && taskDirPattern.MatchString(e.Name()) {
			dirs = append(dirs, filepath.Join(d.appDir, e.Name()))
		}
	}

	return dirs, nil
}

func isLocked(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, taskLockFile))
	return err == nil
}
