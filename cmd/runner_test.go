package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/desertthunder/lastfm-edit/internal/shared"
	"github.com/urfave/cli/v3"
)

func TestNewRunner(t *testing.T) {
	t.Run("with all dependencies provided", func(t *testing.T) {
		config := shared.DefaultConfig()
		logger := shared.NewLogger(nil)
		output := &bytes.Buffer{}

		runner := NewRunner(RunnerConfig{Config: config, Logger: logger, Output: output})

		if runner.config != config {
			t.Error("expected config to be set")
		}
		if runner.logger != logger {
			t.Error("expected logger to be set")
		}
		if runner.output != output {
			t.Error("expected output to be set")
		}
		if runner.bus == nil {
			t.Error("expected an event bus to be created")
		}
	})

	t.Run("with nil config uses defaults", func(t *testing.T) {
		runner := NewRunner(RunnerConfig{})
		if runner.config == nil {
			t.Error("expected default config to be set")
		}
	})

	t.Run("with nil output defaults to os.Stdout", func(t *testing.T) {
		runner := NewRunner(RunnerConfig{})
		if runner.output == nil {
			t.Error("expected default output to be set")
		}
	})
}

func TestRunnerWriteHelpers(t *testing.T) {
	t.Run("writeJSON", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerConfig{Output: output})

		if err := runner.writeJSON(map[string]string{"username": "alice"}, false); err != nil {
			t.Fatalf("writeJSON() error = %v", err)
		}
		if !strings.Contains(output.String(), "alice") {
			t.Errorf("writeJSON() output = %q, want it to contain alice", output.String())
		}
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerConfig{Output: output})

		if err := runner.writePlain("logged in as %s\n", "alice"); err != nil {
			t.Fatalf("writePlain() error = %v", err)
		}
		if output.String() != "logged in as alice\n" {
			t.Errorf("writePlain() output = %q", output.String())
		}
	})
}

func TestPathDir(t *testing.T) {
	tt := []struct{ path, want string }{
		{"", "."},
		{":memory:", "."},
		{"./tmp/lastfm-edit.db", "tmp"},
		{"/var/lib/lastfm-edit/sessions.db", "/var/lib/lastfm-edit"},
	}

	for _, tc := range tt {
		if got := pathDir(tc.path); got != tc.want {
			t.Errorf("pathDir(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestSessionFor(t *testing.T) {
	t.Run("falls back to config username when --username is unset", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Username = "alice"
		runner := NewRunner(RunnerConfig{Config: config})

		var got string
		var gotErr error
		app := &cli.Command{
			Flags: []cli.Flag{&cli.StringFlag{Name: "username"}},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				got, gotErr = runner.sessionFor(cmd)
				return nil
			},
		}
		if err := app.Run(context.Background(), []string{"lastfm-edit"}); err != nil {
			t.Fatalf("app.Run() error = %v", err)
		}
		if gotErr != nil {
			t.Fatalf("sessionFor() error = %v", gotErr)
		}
		if got != "alice" {
			t.Errorf("sessionFor() = %q, want alice", got)
		}
	})

	t.Run("--username overrides config", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Username = "alice"
		runner := NewRunner(RunnerConfig{Config: config})

		var got string
		app := &cli.Command{
			Flags: []cli.Flag{&cli.StringFlag{Name: "username"}},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				got, _ = runner.sessionFor(cmd)
				return nil
			},
		}
		if err := app.Run(context.Background(), []string{"lastfm-edit", "--username", "bob"}); err != nil {
			t.Fatalf("app.Run() error = %v", err)
		}
		if got != "bob" {
			t.Errorf("sessionFor() = %q, want bob", got)
		}
	})

	t.Run("no username anywhere is an error", func(t *testing.T) {
		runner := NewRunner(RunnerConfig{Config: &shared.Config{}})

		var gotErr error
		app := &cli.Command{
			Flags: []cli.Flag{&cli.StringFlag{Name: "username"}},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				_, gotErr = runner.sessionFor(cmd)
				return nil
			},
		}
		if err := app.Run(context.Background(), []string{"lastfm-edit"}); err != nil {
			t.Fatalf("app.Run() error = %v", err)
		}
		if gotErr == nil {
			t.Error("expected an error when no username is configured")
		}
	})
}
