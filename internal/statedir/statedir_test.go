package statedir

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	testingclock "k8s.io/utils/clock/testing"

	"github.com/zcw199604/kafka/internal/logging"
	"github.com/zcw199604/kafka/types"
)

func newDir(t *testing.T, clk *testingclock.FakeClock) *Directory {
	t.Helper()

	d, err := New(t.TempDir(), "app", clk, logging.NewTest(t))
	require.NoError(t, err)

	return d
}

func mkTaskDir(t *testing.T, d *Directory, name string, locked bool, mtime time.Time) string {
	t.Helper()

	dir := filepath.Join(d.Path(), name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	if locked {
		require.NoError(t, os.WriteFile(filepath.Join(dir, taskLockFile), nil, 0o644))
	}
	require.NoError(t, os.Chtimes(dir, mtime, mtime))

	return dir
}

func TestNew_RequiresRootAndApplication(t *testing.T) {
	_, err := New("", "app", testingclock.NewFakeClock(time.Now()), logging.NewNop())
	require.ErrorIs(t, err, types.ErrIllegalArgument)
}

func TestInitializeProcessID_IsStableAcrossOpens(t *testing.T) {
	root := t.TempDir()
	clk := testingclock.NewFakeClock(time.Now())

	first, err := New(root, "app", clk, logging.NewNop())
	require.NoError(t, err)
	id, err := first.InitializeProcessID()
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	second, err := New(root, "app", clk, logging.NewNop())
	require.NoError(t, err)
	again, err := second.InitializeProcessID()
	require.NoError(t, err)
	require.Equal(t, id, again)
}

func TestInitializeProcessID_CorruptFile(t *testing.T) {
	d := newDir(t, testingclock.NewFakeClock(time.Now()))
	require.NoError(t, os.WriteFile(filepath.Join(d.Path(), processFileName), []byte("{"), 0o644))

	_, err := d.InitializeProcessID()
	require.Error(t, err)
}

func TestCleanRemovedTasks(t *testing.T) {
	now := time.Now()
	clk := testingclock.NewFakeClock(now)
	d := newDir(t, clk)

	old := now.Add(-time.Hour)
	stale := mkTaskDir(t, d, "0_1", false, old)
	inUse := mkTaskDir(t, d, "0_2", true, old)
	fresh := mkTaskDir(t, d, "1_0", false, now)
	other := mkTaskDir(t, d, "not-a-task", false, old)

	require.NoError(t, d.CleanRemovedTasks(10*time.Minute))

	require.NoDirExists(t, stale)
	require.DirExists(t, inUse)
	require.DirExists(t, fresh)
	require.DirExists(t, other)
}

func TestClean(t *testing.T) {
	clk := testingclock.NewFakeClock(time.Now())
	d := newDir(t, clk)

	free := mkTaskDir(t, d, "0_0", false, clk.Now())
	locked := mkTaskDir(t, d, "0_1", true, clk.Now())

	err := d.Clean()
	require.ErrorIs(t, err, types.ErrStateDirLocked)
	require.NoDirExists(t, free)
	require.DirExists(t, locked)
}

func TestClose_OnlyCleanRemainsUsable(t *testing.T) {
	d := newDir(t, testingclock.NewFakeClock(time.Now()))
	require.NoError(t, d.Close())

	_, err := d.InitializeProcessID()
	require.ErrorIs(t, err, types.ErrIllegalState)
	require.ErrorIs(t, d.CleanRemovedTasks(time.Minute), types.ErrIllegalState)
	require.NoError(t, d.Clean())
}
