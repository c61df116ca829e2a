package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lastfm-edit/internal/shared"
	"github.com/urfave/cli/v3"
)

var logger *log.Logger

func main() {
	logger = shared.NewLogger(os.Stderr)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}

	runner := NewRunner(RunnerConfig{Config: config, Logger: logger})

	app := &cli.Command{
		Name:    "lastfm-edit",
		Usage:   "Log scrobble-metadata edits against a last.fm-style library the way the web UI does",
		Version: "0.1.0",
		Commands: []*cli.Command{
			setupCommand(),
			authCommand(runner),
			libraryCommand(runner),
			editCommand(runner),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}

func setupCommand() *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the session store database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			configPath := cmd.String("config")

			var config *shared.Config
			if _, err := os.Stat(configPath); err == nil {
				if config, err = shared.LoadConfig(configPath); err != nil {
					logger.Warn("failed to load config, using defaults", "error", err)
					config = shared.DefaultConfig()
				}
			} else {
				logger.Info("config file not found, creating from template", "path", configPath)
				if err := shared.CreateConfigFile(configPath); err != nil {
					return err
				}
				config = shared.DefaultConfig()
			}

			logger.Info("initializing session store", "path", config.SessionStore.Path)
			if err := os.MkdirAll(pathDir(config.SessionStore.Path), 0755); err != nil {
				logger.Warn("failed to create session store directory", "error", err)
			}

			db, err := shared.NewDatabase(config.SessionStore.Path)
			if err != nil {
				return err
			}
			defer db.Close()

			shared.ConfigureDatabase(db, config.SessionStore.MaxOpenConns, config.SessionStore.MaxIdleConns)

			if err := shared.RunMigrations(db); err != nil {
				return err
			}
			logger.Infof("setup complete: %s", config.SessionStore.Path)
			return nil
		},
	}
}
