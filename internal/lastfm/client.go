package lastfm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const maxRedirects = 5

// Client is a session-bearing handle to the service: the transport,
// the shared event bus, and a retry configuration. A Client is not
// safe for concurrent mutation by a single handle; share a read
// only Session and one Bus across multiple handles instead.
type Client struct {
	session Session
	jar     []string // per-handle cookie jar, starts as a copy of session.Cookies

	t       Transport
	bus     *Bus
	retry   RetryConfig
	logger  *log.Logger
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithBus attaches a shared event bus to the client.
func WithBus(bus *Bus) ClientOption { return func(c *Client) { c.bus = bus } }

// WithRetryConfig overrides the default retry configuration.
func WithRetryConfig(cfg RetryConfig) ClientOption { return func(c *Client) { c.retry = cfg } }

// WithLogger attaches a logger; nil (the default) means silent.
func WithLogger(l *log.Logger) ClientOption { return func(c *Client) { c.logger = l } }

// NewClient builds a Client from an already-established Session.
func NewClient(t Transport, session Session, opts ...ClientOption) *Client {
	c := &Client{
		session: session,
		jar:     append([]string(nil), session.Cookies...),
		t:       t,
		retry:   DefaultRetryConfig(),
		logger:  log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) baseURL() string { return strings.TrimRight(c.session.BaseURL, "/") }

func (c *Client) cookieHeader() string { return joinCookies(c.jar) }

// GetSession returns the current session by value, including any
// cookies accumulated into the per-handle jar since login, for
// external persistence.
func (c *Client) GetSession() Session {
	s := c.session
	s.Cookies = append([]string(nil), c.jar...)
	return s
}

// ValidateSession performs a cheap authenticated GET and reports
// whether the session is still accepted by the service.
func (c *Client) ValidateSession(ctx context.Context) (bool, error) {
	_, err := c.getDocument(ctx, "/user/"+url.PathEscape(c.session.Username)+"/library", nil, false)
	if err == nil {
		return true, nil
	}
	var lfErr *Error
	if errors.As(err, &lfErr) && lfErr.Kind == KindAuth {
		return false, nil
	}
	return false, err
}

// publishStarted/publishCompleted emit request lifecycle events when a
// bus is attached; they are no-ops otherwise.
func (c *Client) publishStarted(info RequestInfo) { if c.bus != nil { c.bus.Publish(requestStarted(info)) } }

func (c *Client) publishCompleted(info RequestInfo, status int, d time.Duration) {
	if c.bus != nil {
		c.bus.Publish(requestCompleted(info, status, d))
	}
}

// getDocument performs a single authenticated GET (following up to
// maxRedirects redirects manually, re-attaching cookies each hop) and
// parses the body as HTML. ajax selects the AJAX-flavored Accept/
// X-Requested-With headers used by paginated endpoints.
func (c *Client) getDocument(ctx context.Context, path string, query url.Values, ajax bool) (*goquery.Document, error) {
	resp, err := c.getRaw(ctx, path, query, ajax)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body)))
	if err != nil {
		return nil, NewParseError("failed to parse response body", err)
	}
	return doc, nil
}

func (c *Client) getRaw(ctx context.Context, path string, query url.Values, ajax bool) (TransportResponse, error) {
	target := c.baseURL() + path
	if query != nil {
		target += "?" + query.Encode()
	}

	for redirect := 0; ; redirect++ {
		headers := http.Header{
			"User-Agent": []string{DefaultUserAgent},
			"Cookie":     []string{c.cookieHeader()},
		}
		if ajax {
			headers.Set("X-Requested-With", "XMLHttpRequest")
			headers.Set("Accept", "*/*")
		} else {
			headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		}

		info := RequestInfo{ID: uuid.NewString(), Method: http.MethodGet, URI: target, Path: path, Query: query}
		c.publishStarted(info)

		start := time.Now()
		resp, err := c.t.RoundTrip(ctx, TransportRequest{Method: http.MethodGet, URL: target, Headers: headers})
		elapsed := time.Since(start)
		if err != nil {
			return TransportResponse{}, err
		}
		c.publishCompleted(info, resp.Status, elapsed)
		c.jar = mergeCookies(c.jar, resp.SetCookies())

		switch {
		case resp.Status == http.StatusTooManyRequests:
			if c.bus != nil {
				c.bus.Publish(rateLimited(60, &info, RateLimitHTTP429))
			}
			return TransportResponse{}, NewRateLimitError(60)

		case resp.Status == http.StatusForbidden:
			return TransportResponse{}, NewAuthError("Session expired or access forbidden")

		case resp.Status >= 300 && resp.Status < 400:
			loc := resp.Headers.Get("Location")
			if strings.Contains(loc, "/login") {
				return TransportResponse{}, NewAuthError("Session expired, redirected to login")
			}
			if redirect >= maxRedirects {
				return TransportResponse{}, NewHTTPError("too many redirects", nil)
			}
			target = c.resolveLocation(target, loc)
			continue

		case resp.Status >= 200 && resp.Status < 300:
			return resp, nil

		default:
			return TransportResponse{}, NewHTTPError(fmt.Sprintf("unexpected status %d", resp.Status), nil)
		}
	}
}

func (c *Client) resolveLocation(current, location string) string {
	base, err := url.Parse(current)
	if err != nil {
		return location
	}
	ref, err := url.Parse(location)
	if err != nil {
		return location
	}
	return base.ResolveReference(ref).String()
}

// paginatedQuery builds the ?page=N&ajax=true query common to every
// paginated AJAX endpoint, plus any extra values.
func paginatedQuery(page int, extra url.Values) url.Values {
	q := url.Values{}
	for k, vs := range extra {
		q[k] = vs
	}
	q.Set("page", itoaInt(page))
	q.Set("ajax", "true")
	return q
}

func itoaInt(n int) string {
	return strconv.Itoa(n)
}

// libraryPath renders /user/<u>/library/music/<artist>/+tracks style
// paths, URL-encoding the artist with spaces as '+'.
func libraryPath(username, artist, suffix string) string {
	encodedArtist := strings.ReplaceAll(url.QueryEscape(artist), "%20", "+")
	return "/user/" + url.PathEscape(username) + "/library/music/" + encodedArtist + suffix
}

// --- Library reads ---

// GetArtistTracksPage fetches one page of an artist's top tracks.
func (c *Client) GetArtistTracksPage(ctx context.Context, artist string, page int) (TrackPage, error) {
	doc, err := c.getDocument(ctx, libraryPath(c.session.Username, artist, "/+tracks"), paginatedQuery(page, nil), true)
	if err != nil {
		return TrackPage{}, err
	}
	return buildTrackPage(doc, artist, page), nil
}

// GetArtistAlbumsPage fetches one page of an artist's top albums.
func (c *Client) GetArtistAlbumsPage(ctx context.Context, artist string, page int) (AlbumPage, error) {
	doc, err := c.getDocument(ctx, libraryPath(c.session.Username, artist, "/+albums"), paginatedQuery(page, nil), true)
	if err != nil {
		return AlbumPage{}, err
	}
	return buildAlbumPage(doc, artist, page), nil
}

// GetAlbumTracksPage fetches one page of an album's track listing.
func (c *Client) GetAlbumTracksPage(ctx context.Context, artist, album string, page int) (TrackPage, error) {
	encodedAlbum := strings.ReplaceAll(url.QueryEscape(album), "%20", "+")
	path := libraryPath(c.session.Username, artist, "/"+encodedAlbum)
	doc, err := c.getDocument(ctx, path, paginatedQuery(page, nil), true)
	if err != nil {
		return TrackPage{}, err
	}
	return buildTrackPage(doc, artist, page), nil
}

// GetRecentTracksPage fetches one page of the user's recent scrobbles.
func (c *Client) GetRecentTracksPage(ctx context.Context, page int) (TrackPage, error) {
	path := "/user/" + url.PathEscape(c.session.Username) + "/library"
	doc, err := c.getDocument(ctx, path, paginatedQuery(page, nil), true)
	if err != nil {
		return TrackPage{}, err
	}
	pag := parsePagination(doc)
	return TrackPage{Items: parseRecentScrobbles(doc), Page: page, HasNext: pag.hasNext, TotalPages: pag.totalPages}, nil
}

// GetArtistsPage fetches one page of the user's top artists.
func (c *Client) GetArtistsPage(ctx context.Context, page int) (ArtistPage, error) {
	path := "/user/" + url.PathEscape(c.session.Username) + "/library/artists"
	doc, err := c.getDocument(ctx, path, paginatedQuery(page, nil), true)
	if err != nil {
		return ArtistPage{}, err
	}
	pag := parsePagination(doc)
	return ArtistPage{Items: parseArtistPage(doc), Page: page, HasNext: pag.hasNext, TotalPages: pag.totalPages}, nil
}

// SearchTracksPage, SearchAlbumsPage and SearchArtistsPage run a
// library search for query and return one page of results.
func (c *Client) SearchTracksPage(ctx context.Context, query string, page int) (TrackPage, error) {
	path := "/user/" + url.PathEscape(c.session.Username) + "/library/tracks/search"
	q := paginatedQuery(page, url.Values{"query": []string{query}})
	doc, err := c.getDocument(ctx, path, q, true)
	if err != nil {
		return TrackPage{}, err
	}
	return buildTrackPage(doc, "", page), nil
}

func (c *Client) SearchAlbumsPage(ctx context.Context, query string, page int) (AlbumPage, error) {
	path := "/user/" + url.PathEscape(c.session.Username) + "/library/albums/search"
	q := paginatedQuery(page, url.Values{"query": []string{query}})
	doc, err := c.getDocument(ctx, path, q, true)
	if err != nil {
		return AlbumPage{}, err
	}
	return buildAlbumPage(doc, "", page), nil
}

func (c *Client) SearchArtistsPage(ctx context.Context, query string, page int) (ArtistPage, error) {
	path := "/user/" + url.PathEscape(c.session.Username) + "/library/artists/search"
	q := paginatedQuery(page, url.Values{"query": []string{query}})
	doc, err := c.getDocument(ctx, path, q, true)
	if err != nil {
		return ArtistPage{}, err
	}
	pag := parsePagination(doc)
	return ArtistPage{Items: parseArtistPage(doc), Page: page, HasNext: pag.hasNext, TotalPages: pag.totalPages}, nil
}

func buildTrackPage(doc *goquery.Document, fallbackArtist string, page int) TrackPage {
	pag := parsePagination(doc)
	return TrackPage{Items: parseTrackPage(doc, fallbackArtist), Page: page, HasNext: pag.hasNext, TotalPages: pag.totalPages}
}

func buildAlbumPage(doc *goquery.Document, fallbackArtist string, page int) AlbumPage {
	pag := parsePagination(doc)
	return AlbumPage{Items: parseAlbumPage(doc, fallbackArtist), Page: page, HasNext: pag.hasNext, TotalPages: pag.totalPages}
}

// --- Finders ---

const findScrobbleMaxPages = 10

// FindScrobbleByTimestamp scans up to 10 pages of recent scrobbles
// looking for a row whose timestamp matches ts exactly.
func (c *Client) FindScrobbleByTimestamp(ctx context.Context, ts int64) (Track, bool, error) {
	for page := 1; page <= findScrobbleMaxPages; page++ {
		tp, err := c.GetRecentTracksPage(ctx, page)
		if err != nil {
			return Track{}, false, err
		}
		for _, t := range tp.Items {
			if t.Timestamp != nil && *t.Timestamp == ts {
				return t, true, nil
			}
		}
		if !tp.HasNext {
			break
		}
	}
	return Track{}, false, nil
}

// FindRecentScrobbleForTrack scans up to maxPages of recent scrobbles
// for the first row matching name and artist.
func (c *Client) FindRecentScrobbleForTrack(ctx context.Context, name, artist string, maxPages int) (Track, bool, error) {
	for page := 1; page <= maxPages; page++ {
		tp, err := c.GetRecentTracksPage(ctx, page)
		if err != nil {
			return Track{}, false, err
		}
		for _, t := range tp.Items {
			if t.Name == name && t.Artist == artist {
				return t, true, nil
			}
		}
		if !tp.HasNext {
			break
		}
	}
	return Track{}, false, nil
}

// --- Mutations ---

// EditScrobble runs discovery against partial and submits every
// resulting ExactScrobbleEdit, aggregating the outcomes.
func (c *Client) EditScrobble(ctx context.Context, partial ScrobbleEdit) (EditResponse, error) {
	discoverCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, errc := c.Discover(discoverCtx, partial)
	var out EditResponse
	for exact := range stream {
		single, err := c.submitWithRetry(ctx, exact)
		if err != nil {
			cancel()
			for range stream {
			}
			return out, err
		}
		out.Responses = append(out.Responses, single)
	}
	if err := <-errc; err != nil {
		return out, err
	}
	return out, nil
}

// EditScrobbleSingle submits exact once, retrying on rate-limit up to
// maxRetries (overriding the client's configured MaxRetries for this
// call only).
func (c *Client) EditScrobbleSingle(ctx context.Context, exact ExactScrobbleEdit, maxRetries int) (SingleEditResponse, error) {
	cfg := c.retry
	cfg.MaxRetries = maxRetries
	val, _, err := withRetry(ctx, cfg, c.notifyRateLimit, func(ctx context.Context) (SingleEditResponse, error) {
		return c.SubmitExact(ctx, exact)
	})
	return val, err
}

func (c *Client) submitWithRetry(ctx context.Context, exact ExactScrobbleEdit) (SingleEditResponse, error) {
	val, _, err := withRetry(ctx, c.retry, c.notifyRateLimit, func(ctx context.Context) (SingleEditResponse, error) {
		return c.SubmitExact(ctx, exact)
	})
	return val, err
}

func (c *Client) notifyRateLimit(delay time.Duration, lfErr *Error) {
	if c.bus != nil {
		c.bus.Publish(rateLimited(lfErr.RetryAfterSeconds, nil, RateLimitHTTP429))
	}
}

// EditAlbum renames an album of the given artist.
func (c *Client) EditAlbum(ctx context.Context, artist, albumOriginal, albumTarget string, editAll bool) (EditResponse, error) {
	partial := ScrobbleEdit{ArtistOriginal: artist, AlbumOriginal: albumOriginal, EditAll: editAll}
	partial.SetAlbumTarget(albumTarget)
	return c.EditScrobble(ctx, partial)
}

// EditArtist renames every scrobble by an artist.
func (c *Client) EditArtist(ctx context.Context, artistOriginal, artistTarget string) (EditResponse, error) {
	partial := ScrobbleEdit{ArtistOriginal: artistOriginal, EditAll: true}
	partial.SetArtistTarget(artistTarget)
	return c.EditScrobble(ctx, partial)
}

// EditArtistForTrack renames the artist credited on one track only.
func (c *Client) EditArtistForTrack(ctx context.Context, artistOriginal, track, artistTarget string) (EditResponse, error) {
	partial := ScrobbleEdit{ArtistOriginal: artistOriginal, TrackOriginal: track}
	partial.SetArtistTarget(artistTarget)
	return c.EditScrobble(ctx, partial)
}

// EditArtistForAlbum renames the artist credited on one album only.
func (c *Client) EditArtistForAlbum(ctx context.Context, artistOriginal, album, artistTarget string) (EditResponse, error) {
	partial := ScrobbleEdit{ArtistOriginal: artistOriginal, AlbumOriginal: album, EditAll: true}
	partial.SetArtistTarget(artistTarget)
	return c.EditScrobble(ctx, partial)
}
