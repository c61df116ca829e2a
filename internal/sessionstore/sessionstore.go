package sessionstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/lastfm-edit/internal/lastfm"
)

// SessionStore implements SQLite persistence for [lastfm.Session] values.
type SessionStore struct {
	db *sql.DB
}

// New creates a [SessionStore] backed by the given database connection.
// Callers are expected to have already run internal/shared.RunMigrations
// against db.
func New(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save upserts the session, keyed by its username.
func (s *SessionStore) Save(session lastfm.Session) error {
	cookies, err := json.Marshal(session.Cookies)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}

	query := `
		INSERT INTO sessions (username, cookies, csrf_token, base_url, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET
			cookies = excluded.cookies,
			csrf_token = excluded.csrf_token,
			base_url = excluded.base_url,
			updated_at = excluded.updated_at
	`

	_, err = s.db.Exec(query, session.Username, string(cookies), session.CSRF, session.BaseURL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return nil
}

// Get retrieves the most recently saved session for username.
func (s *SessionStore) Get(username string) (lastfm.Session, error) {
	query := `SELECT username, cookies, csrf_token, base_url FROM sessions WHERE username = ?`

	var (
		cookies string
		session lastfm.Session
	)

	err := s.db.QueryRow(query, username).Scan(&session.Username, &cookies, &session.CSRF, &session.BaseURL)
	if err == sql.ErrNoRows {
		return lastfm.Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, username)
	}
	if err != nil {
		return lastfm.Session{}, fmt.Errorf("failed to query session: %w", err)
	}

	if err := json.Unmarshal([]byte(cookies), &session.Cookies); err != nil {
		return lastfm.Session{}, fmt.Errorf("failed to unmarshal cookies: %w", err)
	}

	return session, nil
}

// Delete removes any stored session for username. Deleting a
// nonexistent session is not an error.
func (s *SessionStore) Delete(username string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns every username with a stored session, most recently
// updated first.
func (s *SessionStore) List() ([]string, error) {
	rows, err := s.db.Query(`SELECT username FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		usernames = append(usernames, username)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return usernames, nil
}
