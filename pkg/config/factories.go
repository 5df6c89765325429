package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/mirrord/pkg/lifecycle"
	"github.com/marmos91/mirrord/pkg/mounts"
	"github.com/marmos91/mirrord/pkg/space"
)

// CreateLifecycleWatcher creates a volume lifecycle watcher based on configuration.
//
// This factory function uses the Type field to determine which watcher
// implementation to create, then decodes the type-specific configuration from
// the corresponding map and passes it to the watcher's constructor.
//
// Supported types:
//   - "poll": scans the mount table on an interval (works everywhere)
//   - "device": watches /dev for block device nodes (event-driven, Linux)
//
// Parameters:
//   - cfg: Lifecycle watcher configuration
//   - mirrors: Mirror mountpoints the poll watcher tracks
//   - table: Mount table used by the poll watcher (nil uses the procfs table)
//
// Returns:
//   - lifecycle.Watcher: Configured but not yet started watcher
//   - error: Configuration or initialization error
func CreateLifecycleWatcher(cfg *LifecycleConfig, mirrors []string, table mounts.Table) (lifecycle.Watcher, error) {
	switch cfg.Type {
	case "poll":
		return createPollWatcher(cfg.Poll, mirrors, table)
	case "device":
		return createDeviceWatcher(cfg.Device)
	default:
		return nil, fmt.Errorf("unknown lifecycle watcher type: %q (supported: poll, device)", cfg.Type)
	}
}

// createPollWatcher creates a mount-table polling lifecycle watcher.
func createPollWatcher(options map[string]any, mirrors []string, table mounts.Table) (lifecycle.Watcher, error) {
	type PollWatcherOptions struct {
		Interval time.Duration `mapstructure:"interval"`
	}

	var opts PollWatcherOptions
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &opts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode poll watcher options: %w", err)
	}

	if opts.Interval < 0 {
		return nil, fmt.Errorf("poll watcher: interval must not be negative")
	}

	return lifecycle.NewPollWatcher(mirrors, table, opts.Interval), nil
}

// createDeviceWatcher creates a device-node lifecycle watcher.
func createDeviceWatcher(options map[string]any) (lifecycle.Watcher, error) {
	type DeviceWatcherOptions struct {
		Dir      string   `mapstructure:"dir"`
		Prefixes []string `mapstructure:"prefixes"`
	}

	var opts DeviceWatcherOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("failed to decode device watcher options: %w", err)
	}

	w, err := lifecycle.NewDeviceWatcher(opts.Dir, opts.Prefixes)
	if err != nil {
		return nil, fmt.Errorf("failed to create device watcher: %w", err)
	}

	return w, nil
}

// CreateSpaceGuard creates the free-space admission guard from configuration.
//
// The guard queries real filesystem statistics and enforces the configured
// margin on every copy admission decision.
func CreateSpaceGuard(cfg *SyncConfig) *space.Guard {
	return space.NewGuard(nil, cfg.SpaceMarginBytes)
}
