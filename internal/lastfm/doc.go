// package lastfm implements a scraping-and-editing client for a music
// scrobble-tracking web service that exposes no public mutation API.
//
// It logs in through the service's HTML login form, preserves the
// resulting session, paginates its chartlist-style library listings,
// and drives the hidden edit/delete forms the web UI itself submits.
// All network effects go through the [Transport] capability; HTML
// parsing is a set of pure functions over [*goquery.Document] so that
// they can be unit tested against saved fixtures with no transport at
// all. See internal/testlastfm for the cassette-style double used by
// this package's own tests.
package lastfm
