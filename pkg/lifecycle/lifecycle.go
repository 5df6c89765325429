// Package lifecycle provides the volume-lifecycle notification sources that
// feed hotplug events to the sync engine.
//
// Two interchangeable implementations exist behind one Watcher interface,
// selected by configuration: a poll-based watcher that scans the mount table
// on an interval, and an event-driven watcher that observes block device
// nodes appearing and disappearing. Both push resolved events onto a
// buffered single-consumer channel; the daemon loop that drains it is the
// only place engine access is serialized, keeping lock discipline out of
// notification callbacks.
package lifecycle

import "github.com/marmos91/mirrord/pkg/engine"

// eventBuffer sizes the outgoing channel of both watcher implementations.
const eventBuffer = 16

// Watcher is a source of volume-lifecycle notifications.
type Watcher interface {
	// Start begins monitoring. It returns once the monitoring goroutine is
	// running.
	Start() error

	// Events returns the channel of hotplug events. The channel is closed
	// when the watcher is closed.
	Events() <-chan engine.HotplugEvent

	// Close stops monitoring and closes the event channel.
	Close() error
}
