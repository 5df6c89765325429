package lifecycle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mirrord/pkg/engine"
)

// writeStub creates a plain file standing in for a device node in tests.
func writeStub(dir, name string) error {
	return os.WriteFile(filepath.Join(dir, name), nil, 0644)
}

func TestDeviceWatcherFiltersNames(t *testing.T) {
	w, err := NewDeviceWatcher(t.TempDir(), []string{"sd"})
	require.NoError(t, err)

	assert.True(t, w.isBlockDeviceName("sdb1"))
	assert.True(t, w.isBlockDeviceName("sda"))
	assert.False(t, w.isBlockDeviceName("tty0"))
	assert.False(t, w.isBlockDeviceName("null"))

	require.NoError(t, w.Start())
	require.NoError(t, w.Close())
}

func TestDeviceWatcherEmitsForMatchingNodes(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDeviceWatcher(dir, []string{"sd"})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Close()

	// Simulate a device node appearing: the watcher keys off names, not
	// node types, so a plain file stands in for the block device.
	require.NoError(t, writeStub(dir, "sdb1"))

	ev := awaitEvent(t, w)
	assert.Equal(t, engine.DeviceAdd, ev.Action)
	assert.Contains(t, ev.Device, "sdb1")
}

func TestDeviceWatcherIgnoresNonMatchingNodes(t *testing.T) {
	dir := t.TempDir()
	w, err := NewDeviceWatcher(dir, []string{"sd"})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Close()

	require.NoError(t, writeStub(dir, "random.txt"))
	require.NoError(t, writeStub(dir, "sdc2"))

	// Only the matching node surfaces.
	ev := awaitEvent(t, w)
	assert.Contains(t, ev.Device, "sdc2")
}

func TestDeviceWatcherEmitsRemove(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeStub(dir, "sdb1"))

	w, err := NewDeviceWatcher(dir, []string{"sd"})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Close()

	require.NoError(t, os.Remove(filepath.Join(dir, "sdb1")))

	ev := awaitEvent(t, w)
	assert.Equal(t, engine.DeviceRemove, ev.Action)
	assert.Contains(t, ev.Device, "sdb1")
}

func TestDeviceWatcherMissingDirFailsOnStart(t *testing.T) {
	w, err := NewDeviceWatcher(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)

	assert.Error(t, w.Start())
}
