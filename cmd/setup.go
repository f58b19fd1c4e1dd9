package main

import (
	"context"
	"fmt"
	"os"

	"github.com/meetingbaas/settings/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the config template unless a config already exists.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPathOrDefault()
	if _, err := os.Stat(path); err == nil {
		r.logger.Info("config file already exists", "path", path)
		return r.writePlain("Config already exists at %s\n", path)
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)
	return r.writePlain("✓ Created %s\n", path)
}

// SetupDatabase initializes the database, runs migrations and prints their status.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database()
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}

	statuses, err := shared.Migrations(db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Migrations")
	for _, s := range statuses {
		state := "pending"
		if s.Applied && s.AppliedAt != nil {
			state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		r.writePlain("%04d  %-28s %s\n", s.Version, s.Name, state)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return nil
}

// SetupAuth stores the API token in the config file.
//
// The token comes from --token, or from the Authorization header of a cURL command copied from the dashboard.
func (r *Runner) SetupAuth(ctx context.Context, cmd *cli.Command) error {
	token := cmd.String("token")
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	set := 0
	for _, v := range []string{token, curlCmd, curlFile} {
		if v != "" {
			set++
		}
	}
	if set == 0 {
		return fmt.Errorf("%w: one of --token, --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if set > 1 {
		return fmt.Errorf("%w: --token, --curl and --curl-file are mutually exclusive", shared.ErrInvalidArgument)
	}

	if token == "" {
		var headers *shared.CurlHeaders
		var err error
		if curlFile != "" {
			headers, err = shared.ParseCurlFile(curlFile)
		} else {
			headers, err = shared.ParseCurlCommand(curlCmd)
		}
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		if token, err = headers.BearerToken(); err != nil {
			return err
		}
		r.logger.Debug("parsed bearer token from cURL", "headers", len(headers.Headers))
	}

	r.config.API.Token = token
	path := r.configPathOrDefault()
	if err := shared.SaveConfig(path, r.config); err != nil {
		return err
	}

	r.logger.Info("api token saved", "path", path)
	r.writePlain("✓ API token saved to %s\n", path)
	r.writePlain("Run 'baas prefs show' to test authentication\n")
	return nil
}

func (r *Runner) configPathOrDefault() string {
	if r.configPath == "" {
		return configPath
	}
	return r.configPath
}
