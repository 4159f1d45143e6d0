package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/hsx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes a config file from the embedded template.
//
// With --from-curl, the API root and bearer token are taken from a request copied out of the
// admin panel's network tab.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	curlFile := cmd.String("from-curl")

	if _, err := os.Stat(configPath); err == nil && !cmd.Bool("force") {
		return fmt.Errorf("%w: %s already exists (use --force to overwrite)", shared.ErrInvalidArgument, configPath)
	}

	config := shared.DefaultConfig()
	if curlFile != "" {
		req, err := shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		if err := req.ApplyTo(config); err != nil {
			return err
		}
		r.logger.Info("parsed cURL request", "file", curlFile, "base_url", config.API.BaseURL)
	}

	if err := config.Validate(); err != nil {
		return err
	}
	if err := shared.SaveConfig(configPath, config); err != nil {
		return err
	}

	r.config = config
	r.configPath = configPath
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("✓ Configuration written to %s\n", configPath)
	r.writePlain("API: %s\n", config.API.BaseURL)
	if config.API.Token != "" {
		r.writePlain("Token: configured\n")
	}
	r.writePlainln("Resources:")
	for _, name := range config.ResourceNames() {
		r.writePlain("  • %s\n", name)
	}
	return nil
}

// SetupDatabase initializes the sandbox database and runs, lists or rolls back migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	var config *shared.Config
	if _, err := os.Stat(configPath); err == nil {
		if config, err = shared.LoadConfig(configPath); err != nil {
			r.logger.Warn("failed to load config, using defaults", "error", err)
			config = shared.DefaultConfig()
		}
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		}
		config = shared.DefaultConfig()
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	switch action := cmd.String("action"); action {
	case "", "migrate":
		r.logger.Info("running database migrations")
		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		r.logger.Infof("setup complete for database: %v", config.Database.Path)
		return nil
	case "rollback":
		if err := shared.RollbackMigration(db); err != nil {
			return fmt.Errorf("failed to roll back: %w", err)
		}
		r.logger.Info("rolled back latest migration")
		return nil
	case "status":
		statuses, err := shared.Migrations(db)
		if err != nil {
			return err
		}
		r.writePlainHeader("Migrations: " + config.Database.Path)
		for _, s := range statuses {
			mark := "pending"
			if s.Applied {
				mark = "applied"
			}
			r.writePlain("%04d  %-30s %s\n", s.Version, s.Name, mark)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %q (migrate, status, rollback)", shared.ErrInvalidFlag, action)
	}
}
