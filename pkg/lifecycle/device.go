package lifecycle

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/marmos91/mirrord/internal/logger"
	"github.com/marmos91/mirrord/pkg/engine"
)

// DefaultDeviceDir is where block device nodes appear on Linux.
const DefaultDeviceDir = "/dev"

// DefaultDevicePrefixes matches the common removable block device names:
// SCSI/USB disks, SD cards, and NVMe namespaces.
var DefaultDevicePrefixes = []string{"sd", "mmcblk", "nvme"}

// DeviceWatcher detects volume attach/detach by watching a device directory
// for block device nodes appearing and disappearing. Its events carry only
// the device node; the engine resolves mountpoints through the mount table.
type DeviceWatcher struct {
	devDir   string
	prefixes []string

	watcher *fsnotify.Watcher
	events  chan engine.HotplugEvent
	done    chan struct{}
}

// NewDeviceWatcher creates an event-driven lifecycle watcher. An empty
// devDir defaults to DefaultDeviceDir; empty prefixes default to
// DefaultDevicePrefixes.
func NewDeviceWatcher(devDir string, prefixes []string) (*DeviceWatcher, error) {
	if devDir == "" {
		devDir = DefaultDeviceDir
	}
	if len(prefixes) == 0 {
		prefixes = DefaultDevicePrefixes
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create device watcher: %w", err)
	}

	return &DeviceWatcher{
		devDir:   devDir,
		prefixes: prefixes,
		watcher:  fsw,
		events:   make(chan engine.HotplugEvent, eventBuffer),
		done:     make(chan struct{}),
	}, nil
}

// Start registers the device directory and begins translating node events.
func (w *DeviceWatcher) Start() error {
	if err := w.watcher.Add(w.devDir); err != nil {
		if cerr := w.watcher.Close(); cerr != nil {
			logger.Warn("failed to close device watcher: %v", cerr)
		}
		return fmt.Errorf("failed to watch device directory %q: %w", w.devDir, err)
	}

	go w.dispatch()
	return nil
}

// Events returns the hotplug event channel.
func (w *DeviceWatcher) Events() <-chan engine.HotplugEvent {
	return w.events
}

// Close stops monitoring and closes the event channel.
func (w *DeviceWatcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *DeviceWatcher) dispatch() {
	defer close(w.done)
	defer close(w.events)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("device watcher error: %v", err)
		}
	}
}

func (w *DeviceWatcher) handle(ev fsnotify.Event) {
	if !w.isBlockDeviceName(filepath.Base(ev.Name)) {
		return
	}

	switch {
	case ev.Op.Has(fsnotify.Create):
		logger.Debug("device node appeared: %s", ev.Name)
		w.emit(engine.HotplugEvent{Action: engine.DeviceAdd, Device: ev.Name})
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		logger.Debug("device node disappeared: %s", ev.Name)
		w.emit(engine.HotplugEvent{Action: engine.DeviceRemove, Device: ev.Name})
	}
}

// isBlockDeviceName filters directory noise down to the configured block
// device name prefixes.
func (w *DeviceWatcher) isBlockDeviceName(name string) bool {
	for _, prefix := range w.prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (w *DeviceWatcher) emit(ev engine.HotplugEvent) {
	select {
	case w.events <- ev:
	default:
		logger.Warn("hotplug event buffer full, dropping %s for %s", ev.Action, ev.Device)
	}
}
