package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lastfm-edit/internal/lastfm"
	"github.com/desertthunder/lastfm-edit/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login drives the HTML login form and persists the resulting session.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	username := r.config.Credentials.Username
	if u := cmd.String("username"); u != "" {
		username = u
	}
	password := r.config.Credentials.Password
	if p := cmd.String("password"); p != "" {
		password = p
	}
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required (set in config.toml or pass --username/--password)", shared.ErrMissingCredentials)
	}

	baseURL := r.config.Credentials.BaseURL

	session, err := lastfm.Login(ctx, r.transport, baseURL, lastfm.Credentials{Username: username, Password: password}, r.logger)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	store, closeFn, err := r.openSessionStore()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := store.Save(session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	return r.writePlain("logged in as %s\n", session.Username)
}

// LoginFromCurl reconstructs a session from a pasted browser curl
// command instead of driving the login form.
func (r *Runner) LoginFromCurl(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	username := cmd.String("username")
	if username == "" {
		return fmt.Errorf("%w: --username is required", shared.ErrMissingArgument)
	}

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(r.config.Credentials.BaseURL + "/login"); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
		}
	}

	data, err := shared.VerifyAndReadFile(path)
	if err != nil {
		return err
	}

	headers, err := shared.ParseCurlCommand(data)
	if err != nil {
		return err
	}

	baseURL := r.config.Credentials.BaseURL
	session, err := shared.SessionFromCurl(headers, username, baseURL)
	if err != nil {
		return err
	}

	store, closeFn, err := r.openSessionStore()
	if err != nil {
		return err
	}
	defer closeFn()

	if err := store.Save(session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	return r.writePlain("reconstructed session for %s from curl command\n", session.Username)
}

// Status reports whether a saved session exists and whether the
// service still accepts it.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	username := cmd.StringArg("username")
	if username == "" {
		username = r.config.Credentials.Username
	}

	session, err := r.loadSession(username)
	if err != nil {
		return err
	}

	client := r.newClient(session)
	valid, err := client.ValidateSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to check session for %s: %w", username, err)
	}
	if !valid {
		return r.writePlain("session for %s is no longer valid, run 'auth login' again\n", username)
	}

	return r.writePlain("session for %s is valid\n", username)
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage saved sessions",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with username/password and save the resulting session",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "Overrides config.toml's username"},
					&cli.StringFlag{Name: "password", Usage: "Overrides config.toml's password"},
				},
				Action: r.Login,
			},
			{
				Name:  "login-from-curl",
				Usage: "Reconstruct a session from a browser-exported curl command",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "Username the reconstructed session belongs to", Required: true},
					&cli.BoolFlag{Name: "open", Usage: "Open the login page in a browser first, to copy the curl command from"},
				},
				Action: r.LoginFromCurl,
			},
			{
				Name:  "status",
				Usage: "Check whether a saved session is still valid",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "username"},
				},
				Action: r.Status,
			},
		},
	}
}
