package main

import (
	"context"
	"errors"
	"os"

	"github.com/meetingbaas/settings/internal/services"
	"github.com/meetingbaas/settings/internal/shared"
	"github.com/urfave/cli/v3"
)

const configPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)
	ctx := context.Background()

	config, err := shared.LoadConfigFromEnv(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "error", err)
		config = shared.DefaultConfig()
		shared.ApplyEnv(config)
	}

	if err := shared.SetLogLevelString(logger, config.Log.Level); err != nil {
		logger.Warn("ignoring log level", "error", err)
	}

	httpClient := services.NewHTTPClient(ctx, config.API.Token, config.API.Timeout(), nil)
	api := services.NewPreferencesClient(services.ClientOpts{
		BaseURL:           config.API.BaseURL,
		HTTPClient:        httpClient,
		RequestsPerSecond: config.API.RequestsPerSecond,
		Burst:             config.API.Burst,
	})

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		API:        api,
		Raw:        services.NewAPIService(config.API.BaseURL, httpClient),
		Logger:     logger,
	})

	app := &cli.Command{
		Name:     "baas",
		Usage:    "Manage Meeting BaaS email preferences",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	err = app.Run(ctx, os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close resources", "error", cerr)
	}

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
