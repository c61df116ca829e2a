package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lastfm-edit/internal/lastfm"
	"github.com/desertthunder/lastfm-edit/internal/sessionstore"
	"github.com/desertthunder/lastfm-edit/internal/shared"
)

// Runner holds dependencies shared by every CLI command action.
type Runner struct {
	config    *shared.Config
	logger    *log.Logger
	output    io.Writer
	bus       *lastfm.Bus
	transport lastfm.Transport
}

// RunnerConfig configures a [Runner]. Transport is normally left nil
// (defaulting to a real [lastfm.HTTPTransport]); tests supply a
// cassette transport here instead.
type RunnerConfig struct {
	Config    *shared.Config
	Logger    *log.Logger
	Output    io.Writer
	Transport lastfm.Transport
}

// NewRunner creates a Runner, defaulting any unset dependency.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Config == nil {
		cfg.Config = shared.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(os.Stderr)
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Transport == nil {
		cfg.Transport = lastfm.NewHTTPTransport(nil)
	}

	return &Runner{
		config:    cfg.Config,
		logger:    cfg.Logger,
		output:    cfg.Output,
		bus:       lastfm.NewBus(),
		transport: cfg.Transport,
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var (
		output []byte
		err    error
	)
	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// openSessionStore opens (and migrates) the SQLite session store named
// in the Runner's configuration.
func (r *Runner) openSessionStore() (*sessionstore.SessionStore, func() error, error) {
	if err := os.MkdirAll(pathDir(r.config.SessionStore.Path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create session store directory: %w", err)
	}

	db, err := shared.NewDatabase(r.config.SessionStore.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session store: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.SessionStore.MaxOpenConns, r.config.SessionStore.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate session store: %w", err)
	}

	return sessionstore.New(db), db.Close, nil
}

// loadSession loads the saved session for username, falling back to
// ErrMissingCredentials if none exists, instructing the caller to
// run "auth login" first.
func (r *Runner) loadSession(username string) (lastfm.Session, error) {
	store, closeFn, err := r.openSessionStore()
	if err != nil {
		return lastfm.Session{}, err
	}
	defer closeFn()

	session, err := store.Get(username)
	if err != nil {
		return lastfm.Session{}, fmt.Errorf("%w: no saved session for %s, run 'auth login' first", shared.ErrMissingCredentials, username)
	}
	return session, nil
}

// newClient builds a [lastfm.Client] wired to the Runner's event bus
// and the configuration's retry settings.
func (r *Runner) newClient(session lastfm.Session) *lastfm.Client {
	return lastfm.NewClient(r.transport, session,
		lastfm.WithBus(r.bus),
		lastfm.WithLogger(r.logger),
		lastfm.WithRetryConfig(lastfm.RetryConfig{
			MaxRetries: r.config.Retry.MaxRetries,
			BaseDelay:  time.Duration(r.config.Retry.BaseDelaySeconds) * time.Second,
			MaxDelay:   time.Duration(r.config.Retry.MaxDelaySeconds) * time.Second,
		}),
	)
}

func pathDir(p string) string {
	if p == "" || p == ":memory:" {
		return "."
	}
	return filepath.Dir(p)
}
