// Package space implements per-volume free-space accounting and the
// admission check that gates every copy performed by the sync engine.
//
// Free space is queried live at decision time; nothing is cached or reserved
// ahead of use. The admission check is intentionally not atomic with the
// copy that follows it: a race against other writers on the same volume is
// an accepted external condition, and a copy that fails mid-write because of
// a lost race surfaces as a per-item I/O failure, not as a defect here.
package space

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DefaultMargin is the fixed safety buffer kept free on every volume. It
// protects against filesystem metadata overhead and concurrent external
// writers.
const DefaultMargin = 10 * 1024 * 1024 // 10 MiB

// DiskUsage answers live free-space queries for a filesystem path.
//
// The production implementation is StatfsUsage; tests inject fakes to
// simulate constrained volumes.
type DiskUsage interface {
	// FreeBytes returns the number of bytes available to unprivileged
	// writers on the filesystem containing path.
	FreeBytes(path string) (uint64, error)
}

// StatfsUsage implements DiskUsage with a statfs system call.
type StatfsUsage struct{}

// FreeBytes returns the available byte count reported by the kernel for the
// filesystem containing path.
func (StatfsUsage) FreeBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %q: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// Guard performs the space admission check for one or more volumes.
type Guard struct {
	usage  DiskUsage
	margin uint64
}

// NewGuard creates a Guard using the given DiskUsage source and safety
// margin. A nil usage defaults to StatfsUsage; a zero margin defaults to
// DefaultMargin.
func NewGuard(usage DiskUsage, margin uint64) *Guard {
	if usage == nil {
		usage = StatfsUsage{}
	}
	if margin == 0 {
		margin = DefaultMargin
	}
	return &Guard{usage: usage, margin: margin}
}

// AvailableBytes returns the live free-byte count for the volume.
func (g *Guard) AvailableBytes(volume string) (uint64, error) {
	return g.usage.FreeBytes(volume)
}

// HasRoom reports whether the volume can admit an item of requiredBytes
// while keeping the safety margin free.
//
// A query failure is treated as "no room": the caller skips the item and the
// next pass retries naturally.
func (g *Guard) HasRoom(volume string, requiredBytes uint64) bool {
	available, err := g.usage.FreeBytes(volume)
	if err != nil {
		return false
	}
	return available >= requiredBytes+g.margin
}

// Margin returns the configured safety margin in bytes.
func (g *Guard) Margin() uint64 {
	return g.margin
}
