package engine

// EventKind classifies a filesystem change observed under the source tree.
type EventKind int

const (
	// Created indicates a new file or directory appeared.
	Created EventKind = iota
	// Modified indicates the content of an existing path changed.
	Modified
	// Deleted indicates a path was removed.
	Deleted
	// Moved indicates a path was renamed; NewPath carries the destination.
	Moved
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	case Moved:
		return "moved"
	default:
		return "unknown"
	}
}

// ChangeEvent is a single filesystem change notification. Paths are absolute
// and refer to locations under (or formerly under) the source tree. NewPath
// is set only for Moved events.
type ChangeEvent struct {
	Kind    EventKind
	Path    string
	NewPath string
}

// HotplugAction classifies a block-device lifecycle notification.
type HotplugAction int

const (
	// DeviceAdd indicates a device node appeared (or a volume was mounted).
	DeviceAdd HotplugAction = iota
	// DeviceRemove indicates a device node disappeared (or was unmounted).
	DeviceRemove
	// DeviceChange indicates a device changed state (media inserted, etc).
	DeviceChange
)

func (a HotplugAction) String() string {
	switch a {
	case DeviceAdd:
		return "add"
	case DeviceRemove:
		return "remove"
	case DeviceChange:
		return "change"
	default:
		return "unknown"
	}
}

// HotplugEvent is a single volume-lifecycle notification.
//
// Device carries the block device node (e.g. /dev/sdb1) when the source of
// the event is device-level monitoring; the engine resolves it to a
// mountpoint through the mount table. Lifecycle sources that already know
// the mountpoint (the poll-based watcher) set Mountpoint directly and may
// leave Device empty.
type HotplugEvent struct {
	Action     HotplugAction
	Device     string
	Mountpoint string
}
