package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spotmirror/spotmirror/internal/shared"
	"github.com/urfave/cli/v3"
)

// reloadConfig honors a --config flag pointing somewhere other than the
// path the runner was built with. Missing files are ignored; only setup
// creates config files.
func (r *Runner) reloadConfig(configPath string) {
	if configPath == "" || configPath == r.configPath {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return
	}
	r.config = config
	r.configPath = configPath
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	if configPath := cmd.String("config"); configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			}
		}
		r.reloadConfig(configPath)
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if err := r.ensureDatabase(); err != nil {
		return err
	}

	r.logger.Info("running database migrations")
	if err := r.store.InitializeTables(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// SetupReset drops and recreates every table, discarding the local
// mirror, the queue and stored tokens.
func (r *Runner) SetupReset(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd.String("config"))

	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to confirm destroying the local mirror", shared.ErrInvalidInput)
	}

	if err := r.ensureDatabase(); err != nil {
		return err
	}

	r.logger.Warn("resetting database", "path", r.config.Database.Path)
	if err := r.store.ResetDatabase(); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}

	return r.writePlain("✓ Database reset: %s\n", r.config.Database.Path)
}
