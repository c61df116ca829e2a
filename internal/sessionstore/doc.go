// Package sessionstore persists [lastfm.Session] values to SQLite so a
// CLI invocation doesn't have to log in again every time it runs.
//
// Sessions are keyed by username: saving a session for a username that
// already has one overwrites it. internal/lastfm never imports this
// package; the dependency runs the other way, the same as it does for
// internal/shared.
package sessionstore
