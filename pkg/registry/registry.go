// Package registry tracks the set of currently mounted mirror volumes.
package registry

import "slices"

// Registry is the ordered set of mirror volume mountpoints that are
// currently attached and eligible for synchronization.
//
// Registry deliberately carries no lock of its own: every mutation and
// snapshot is serialized through the sync engine's single mutex, which also
// covers the reconciliation passes that consume the snapshots. Giving the
// registry an independent lock would only create a second ordering to reason
// about without making any caller safer.
//
// Each engine owns its own Registry instance, so multiple engines (for
// example under test) never interfere with each other.
type Registry struct {
	volumes []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register adds a volume mountpoint to the set. Registering an
// already-present volume is a no-op, so hotplug add/change notifications can
// be redelivered without harm.
func (r *Registry) Register(volume string) {
	if r.Contains(volume) {
		return
	}
	r.volumes = append(r.volumes, volume)
}

// Unregister removes a volume mountpoint from the set. Removing an unknown
// volume is a no-op.
func (r *Registry) Unregister(volume string) {
	for i, v := range r.volumes {
		if v == volume {
			r.volumes = append(r.volumes[:i], r.volumes[i+1:]...)
			return
		}
	}
}

// Contains reports whether the volume is currently registered.
func (r *Registry) Contains(volume string) bool {
	return slices.Contains(r.volumes, volume)
}

// Snapshot returns a point-in-time copy of the registered volumes in
// registration order. The copy is never a live view: callers iterating it
// are unaffected by concurrent registration changes made after the snapshot
// was taken.
func (r *Registry) Snapshot() []string {
	return slices.Clone(r.volumes)
}

// Len returns the number of registered volumes.
func (r *Registry) Len() int {
	return len(r.volumes)
}
