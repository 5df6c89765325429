package lifecycle

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/mirrord/pkg/engine"
)

// switchTable is a mount table whose mounted state can be flipped at runtime.
type switchTable struct {
	mu      sync.Mutex
	mounted map[string]bool
}

func (t *switchTable) MountpointForDevice(device string) (string, bool) {
	return "", false
}

func (t *switchTable) IsMounted(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mounted[path]
}

func (t *switchTable) set(path string, mounted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mounted[path] = mounted
}

func awaitEvent(t *testing.T, w Watcher) engine.HotplugEvent {
	t.Helper()
	select {
	case ev, ok := <-w.Events():
		require.True(t, ok, "event channel closed unexpectedly")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for hotplug event")
		return engine.HotplugEvent{}
	}
}

func TestPollWatcherEmitsAddOnMount(t *testing.T) {
	table := &switchTable{mounted: map[string]bool{"/mnt/a": false}}
	w := NewPollWatcher([]string{"/mnt/a"}, table, 10*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Close()

	table.set("/mnt/a", true)

	ev := awaitEvent(t, w)
	assert.Equal(t, engine.DeviceAdd, ev.Action)
	assert.Equal(t, "/mnt/a", ev.Mountpoint)
}

func TestPollWatcherEmitsRemoveOnUnmount(t *testing.T) {
	table := &switchTable{mounted: map[string]bool{"/mnt/a": true}}
	w := NewPollWatcher([]string{"/mnt/a"}, table, 10*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Close()

	table.set("/mnt/a", false)

	ev := awaitEvent(t, w)
	assert.Equal(t, engine.DeviceRemove, ev.Action)
	assert.Equal(t, "/mnt/a", ev.Mountpoint)
}

// Volumes already mounted at startup belong to initial sync, not hotplug:
// the baseline scan must not emit events for them.
func TestPollWatcherNoEventForBaselineState(t *testing.T) {
	table := &switchTable{mounted: map[string]bool{"/mnt/a": true}}
	w := NewPollWatcher([]string{"/mnt/a"}, table, 10*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Close()

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for baseline state: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollWatcherCloseClosesEvents(t *testing.T) {
	table := &switchTable{mounted: map[string]bool{}}
	w := NewPollWatcher([]string{"/mnt/a"}, table, 10*time.Millisecond)
	require.NoError(t, w.Start())

	require.NoError(t, w.Close())

	for range w.Events() {
	}
}

func TestPollWatcherStateRoundTrip(t *testing.T) {
	table := &switchTable{mounted: map[string]bool{"/mnt/a": false}}
	w := NewPollWatcher([]string{"/mnt/a"}, table, 10*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Close()

	table.set("/mnt/a", true)
	assert.Equal(t, engine.DeviceAdd, awaitEvent(t, w).Action)

	table.set("/mnt/a", false)
	assert.Equal(t, engine.DeviceRemove, awaitEvent(t, w).Action)
}
