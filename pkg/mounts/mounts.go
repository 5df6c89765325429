// Package mounts resolves block device nodes to their mount points by
// reading the OS mount table.
//
// The table is re-read live on every lookup; nothing is cached, so a lookup
// performed right after a hotplug notification sees the current state of the
// world rather than a stale one.
package mounts

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// procMountsPath is the default mount table source on Linux.
const procMountsPath = "/proc/self/mounts"

// Entry is a single mount table row.
type Entry struct {
	Device     string
	Mountpoint string
	FSType     string
	Options    string
}

// Table answers device-to-mountpoint questions against the live mount table.
type Table interface {
	// MountpointForDevice returns the mount point of the given device node,
	// or false if the device is not currently mounted.
	MountpointForDevice(device string) (string, bool)

	// IsMounted reports whether path is currently a mount point.
	IsMounted(path string) bool
}

// ProcTable implements Table by parsing a procfs mounts file on every call.
type ProcTable struct {
	path string
}

// NewProcTable creates a ProcTable reading /proc/self/mounts.
func NewProcTable() *ProcTable {
	return &ProcTable{path: procMountsPath}
}

// NewProcTableFromFile creates a ProcTable reading an alternate mounts file.
// Used by tests with fixture files.
func NewProcTableFromFile(path string) *ProcTable {
	return &ProcTable{path: path}
}

// List returns all current mount table entries.
func (t *ProcTable) List() ([]Entry, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mount table %q: %w", t.path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mount table %q: %w", t.path, err)
	}

	return entries, nil
}

// MountpointForDevice returns the mount point of device, or false if the
// device does not appear in the mount table. Device paths are compared with
// symlinks resolved, so /dev/disk/by-label aliases match their targets.
func (t *ProcTable) MountpointForDevice(device string) (string, bool) {
	entries, err := t.List()
	if err != nil {
		return "", false
	}

	resolved := resolvePath(device)
	for _, entry := range entries {
		if resolvePath(entry.Device) == resolved {
			return entry.Mountpoint, true
		}
	}
	return "", false
}

// IsMounted reports whether path is currently a mount point.
func (t *ProcTable) IsMounted(path string) bool {
	entries, err := t.List()
	if err != nil {
		return false
	}

	resolved := resolvePath(path)
	for _, entry := range entries {
		if resolvePath(entry.Mountpoint) == resolved {
			return true
		}
	}
	return false
}

// parseLine parses one mounts(5) row: device, mountpoint, fstype, options,
// dump, pass. Device and mountpoint carry octal escapes for whitespace.
func parseLine(line string) (Entry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return Entry{}, false
	}

	return Entry{
		Device:     unescape(fields[0]),
		Mountpoint: unescape(fields[1]),
		FSType:     fields[2],
		Options:    fields[3],
	}, true
}

// unescape decodes the \ooo octal escapes mounts(5) uses for spaces, tabs,
// newlines, and backslashes in device and mountpoint fields.
func unescape(field string) string {
	if !strings.ContainsRune(field, '\\') {
		return field
	}

	var b strings.Builder
	for i := 0; i < len(field); i++ {
		if field[i] == '\\' && i+3 < len(field) {
			if code, err := strconv.ParseUint(field[i+1:i+4], 8, 8); err == nil {
				b.WriteByte(byte(code))
				i += 3
				continue
			}
		}
		b.WriteByte(field[i])
	}
	return b.String()
}

// resolvePath normalizes a path for comparison, following symlinks when
// possible. Paths that no longer exist fall back to a lexical clean.
func resolvePath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
