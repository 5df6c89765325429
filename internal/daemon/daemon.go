// Package daemon wires the notification sources to the sync engine.
//
// The daemon owns the single dispatch loop: change events from the source
// watcher and hotplug events from the lifecycle watcher are drained here and
// handed to the engine one at a time. Because the loop is the only caller,
// engine handlers never race with each other regardless of how many
// goroutines the watchers run internally.
package daemon

import (
	"context"

	"github.com/marmos91/mirrord/internal/logger"
	"github.com/marmos91/mirrord/pkg/engine"
)

// Daemon dispatches watcher events to the sync engine.
type Daemon struct {
	engine  *engine.Engine
	changes <-chan engine.ChangeEvent
	hotplug <-chan engine.HotplugEvent
}

// New creates a daemon dispatching from the given event channels. Either
// channel may be nil, in which case that event source is simply absent.
func New(eng *engine.Engine, changes <-chan engine.ChangeEvent, hotplug <-chan engine.HotplugEvent) *Daemon {
	return &Daemon{
		engine:  eng,
		changes: changes,
		hotplug: hotplug,
	}
}

// Run dispatches events until the context is cancelled or every event
// source has closed. Events are handled synchronously: a long reconciliation
// pass delays later events rather than running concurrently with them.
func (d *Daemon) Run(ctx context.Context) error {
	logger.Info("daemon dispatch loop started")

	changes := d.changes
	hotplug := d.hotplug

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon dispatch loop stopping: %v", ctx.Err())
			return nil

		case ev, ok := <-changes:
			if !ok {
				changes = nil
				break
			}
			logger.Debug("dispatching change event: %s %s", ev.Kind, ev.Path)
			d.engine.HandleChangeEvent(ev)

		case ev, ok := <-hotplug:
			if !ok {
				hotplug = nil
				break
			}
			logger.Debug("dispatching hotplug event: %s", ev.Action)
			d.engine.HandleHotplugEvent(ev)
		}

		if changes == nil && hotplug == nil {
			logger.Info("daemon dispatch loop stopping: all event sources closed")
			return nil
		}
	}
}
