package lifecycle

import (
	"time"

	"github.com/marmos91/mirrord/internal/logger"
	"github.com/marmos91/mirrord/pkg/engine"
	"github.com/marmos91/mirrord/pkg/mounts"
)

// DefaultPollInterval is the mount-table scan cadence used when the
// configuration does not specify one.
const DefaultPollInterval = 5 * time.Second

// PollWatcher detects volume attach/detach by scanning the mount table on a
// fixed interval and diffing the mounted state of the configured mirror
// mountpoints. Because it already knows the mountpoint, its events carry
// Mountpoint directly and no device resolution is needed downstream.
type PollWatcher struct {
	mirrors  []string
	table    mounts.Table
	interval time.Duration

	events  chan engine.HotplugEvent
	stop    chan struct{}
	stopped chan struct{}

	mounted map[string]bool
}

// NewPollWatcher creates a poll-based lifecycle watcher for the given mirror
// mountpoints. A nil table defaults to the procfs mount table; a zero
// interval defaults to DefaultPollInterval.
func NewPollWatcher(mirrors []string, table mounts.Table, interval time.Duration) *PollWatcher {
	if table == nil {
		table = mounts.NewProcTable()
	}
	if interval == 0 {
		interval = DefaultPollInterval
	}

	return &PollWatcher{
		mirrors:  mirrors,
		table:    table,
		interval: interval,
		events:   make(chan engine.HotplugEvent, eventBuffer),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
		mounted:  make(map[string]bool),
	}
}

// Start primes the mounted-state baseline and begins scanning.
//
// The baseline is taken without emitting events: volumes already mounted at
// startup are the engine's initialSync responsibility, not a hotplug.
func (w *PollWatcher) Start() error {
	for _, m := range w.mirrors {
		w.mounted[m] = w.table.IsMounted(m)
	}

	go w.loop()
	return nil
}

// Events returns the hotplug event channel.
func (w *PollWatcher) Events() <-chan engine.HotplugEvent {
	return w.events
}

// Close stops scanning and closes the event channel.
func (w *PollWatcher) Close() error {
	close(w.stop)
	<-w.stopped
	return nil
}

func (w *PollWatcher) loop() {
	defer close(w.stopped)
	defer close(w.events)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.scan()
		}
	}
}

// scan diffs the current mounted state against the previous one and emits
// add/remove events for transitions.
func (w *PollWatcher) scan() {
	for _, m := range w.mirrors {
		nowMounted := w.table.IsMounted(m)
		switch {
		case nowMounted && !w.mounted[m]:
			logger.Debug("poll: mirror %s became mounted", m)
			w.emit(engine.HotplugEvent{Action: engine.DeviceAdd, Mountpoint: m})
		case !nowMounted && w.mounted[m]:
			logger.Debug("poll: mirror %s became unmounted", m)
			w.emit(engine.HotplugEvent{Action: engine.DeviceRemove, Mountpoint: m})
		}
		w.mounted[m] = nowMounted
	}
}

func (w *PollWatcher) emit(ev engine.HotplugEvent) {
	select {
	case w.events <- ev:
	case <-w.stop:
	}
}
