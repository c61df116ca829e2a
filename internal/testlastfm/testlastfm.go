// Package testlastfm provides a cassette-style [lastfm.Transport] test
// double so the core client, login manager and discovery engine can be
// exercised deterministically without a network.
package testlastfm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/desertthunder/lastfm-edit/internal/lastfm"
)

// Response is one recorded HTTP response for the cassette.
type Response struct {
	Status     int
	Body       string
	SetCookies []string
	Location   string
}

// Recorded is a single request/response entry in a [Cassette].
type Recorded struct {
	Method   string
	URLMatch string // substring match against the requested URL
	Response Response
	Err      error
}

// Cassette is an ordered or keyed set of recorded request/response
// transcripts, played back by [CassetteTransport]. Entries are matched
// by method and URL substring, in recording order, and each matched
// entry is consumed at most once unless Repeat is set.
type Cassette struct {
	mu      sync.Mutex
	entries []Recorded
	Repeat  bool // if true, entries are matched repeatedly instead of consumed
}

// NewCassette builds a Cassette from the given recordings, played back
// in order.
func NewCassette(entries ...Recorded) *Cassette {
	return &Cassette{entries: entries}
}

// Add appends another recording to the cassette.
func (c *Cassette) Add(r Recorded) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, r)
}

// CassetteTransport implements [lastfm.Transport] by replaying a
// [Cassette] at the Transport boundary, so callers never need a real
// *http.Client.
type CassetteTransport struct {
	cassette *Cassette

	mu      sync.Mutex
	Calls   []lastfm.TransportRequest
}

// NewCassetteTransport builds a CassetteTransport over cassette.
func NewCassetteTransport(cassette *Cassette) *CassetteTransport {
	return &CassetteTransport{cassette: cassette}
}

// RoundTrip finds the next matching recording and returns its
// response, recording the request for later assertions.
func (t *CassetteTransport) RoundTrip(ctx context.Context, req lastfm.TransportRequest) (lastfm.TransportResponse, error) {
	t.mu.Lock()
	t.Calls = append(t.Calls, req)
	t.mu.Unlock()

	t.cassette.mu.Lock()
	defer t.cassette.mu.Unlock()

	for i := range t.cassette.entries {
		entry := t.cassette.entries[i]
		if entry.Method != "" && entry.Method != req.Method {
			continue
		}
		if entry.URLMatch != "" && !strings.Contains(req.URL, entry.URLMatch) {
			continue
		}
		if !t.cassette.Repeat {
			t.cassette.entries = append(t.cassette.entries[:i], t.cassette.entries[i+1:]...)
		}
		if entry.Err != nil {
			return lastfm.TransportResponse{}, entry.Err
		}
		headers := http.Header{}
		for _, sc := range entry.Response.SetCookies {
			headers.Add("Set-Cookie", sc)
		}
		if entry.Response.Location != "" {
			headers.Set("Location", entry.Response.Location)
		}
		return lastfm.TransportResponse{
			Status:  entry.Response.Status,
			Headers: headers,
			Body:    []byte(entry.Response.Body),
		}, nil
	}

	return lastfm.TransportResponse{}, fmt.Errorf("testlastfm: no cassette entry matches %s %s", req.Method, req.URL)
}

// NewSession builds a ready-to-use [lastfm.Session] fixture without
// exercising the login manager, for tests that only care about
// post-login behaviour.
func NewSession(username, baseURL string) lastfm.Session {
	return lastfm.Session{
		Username: username,
		Cookies:  []string{lastfm.SessionCookieName + "=.deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"},
		CSRF:     "test-csrf-token",
		BaseURL:  baseURL,
	}
}
