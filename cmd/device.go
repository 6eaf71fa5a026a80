package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// DeviceList lists cached playback devices, refreshing from the remote
// service when reachable.
func (r *Runner) DeviceList(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureRemote(); err != nil {
		return err
	}
	if err := r.ensureDatabase(); err != nil {
		return err
	}

	devices, err := r.remote.Devices(ctx)
	if err != nil {
		r.logger.Warn("remote fetch failed, using cached devices", "error", err)
		devices, err = r.cache.Devices()
		if err != nil {
			return fmt.Errorf("failed to load devices: %w", err)
		}
	} else {
		if err := r.cache.SaveDevices(devices); err != nil {
			r.logger.Warn("failed to cache devices", "error", err)
		}
	}

	if len(devices) == 0 {
		return r.writePlain("No devices found\n")
	}

	r.writePlain("Found %d devices:\n\n", len(devices))
	for i, d := range devices {
		r.writePlain("%d. %s (%s)\n", i+1, d.Name, d.Type)
		r.writePlain("   ID: %s\n", d.ID)
		if d.Active {
			r.writePlain("   Active: yes\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// DeviceTransfer transfers playback to the given device immediately.
func (r *Runner) DeviceTransfer(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if err := r.ensureRemote(); err != nil {
		return err
	}

	deviceID := cmd.String("id")
	if err := r.remote.TransferPlayback(ctx, deviceID); err != nil {
		return err
	}

	return r.writePlain("✓ Playback transferred to %s\n", deviceID)
}
