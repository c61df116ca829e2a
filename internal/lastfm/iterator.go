package lastfm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// paginationInterval is the minimum spacing between page fetches.
const paginationInterval = 500 * time.Millisecond

// newPolitenessLimiter builds a per-iterator limiter enforcing the
// 500ms pause before fetching page ≥ 2. It starts with its single
// token already spent (instead of rate.NewLimiter's normal full
// burst), so the very first wait actually blocks for the full
// interval rather than passing through free; independent iterators
// each get their own limiter instead of contending over a shared one.
func newPolitenessLimiter() *rate.Limiter {
	l := rate.NewLimiter(rate.Every(paginationInterval), 1)
	l.Allow()
	return l
}

// fetchPage is the per-item-type page-fetching function an iterator
// is built around.
type fetchPage[P any] func(ctx context.Context, page int) (P, error)

// pageItems extracts the item slice and the has-next flag from a page
// value.
type pageItems[P any, I any] func(p P) ([]I, bool)

// Iterator is a uniform, generic pagination cursor. Each Iterator
// captures a cheap shareable handle to a client (via fetch), the next
// page number, an in-memory buffer of items from the last fetched
// page, and a terminal flag.
type Iterator[P any, I any] struct {
	fetch   fetchPage[P]
	extract pageItems[P, I]
	limiter *rate.Limiter

	nextPage int
	buffer   []I
	done     bool
	started  bool
}

// NewIterator builds an Iterator starting at startPage (1 for the
// beginning of the stream).
func NewIterator[P any, I any](startPage int, fetch fetchPage[P], extract pageItems[P, I]) *Iterator[P, I] {
	if startPage < 1 {
		startPage = 1
	}
	return &Iterator[P, I]{fetch: fetch, extract: extract, nextPage: startPage, limiter: newPolitenessLimiter()}
}

// NextPage fetches and returns the next page directly, applying the
// politeness throttle before any page after the first. It returns
// the zero page and false once the stream is known to be exhausted.
func (it *Iterator[P, I]) NextPage(ctx context.Context) (P, bool, error) {
	var zero P
	if it.done {
		return zero, false, nil
	}
	if it.started {
		if err := it.limiter.Wait(ctx); err != nil {
			return zero, false, ctx.Err()
		}
	}
	it.started = true

	page, err := it.fetch(ctx, it.nextPage)
	if err != nil {
		return zero, false, err
	}
	items, hasNext := it.extract(page)
	it.buffer = append(it.buffer, items...)
	it.nextPage++
	if !hasNext {
		it.done = true
	}
	return page, true, nil
}

// Next drains the buffer one item at a time, refilling it via
// NextPage as needed. It returns (item, false) once the stream is
// exhausted.
func (it *Iterator[P, I]) Next(ctx context.Context) (I, bool, error) {
	var zero I
	for len(it.buffer) == 0 {
		if it.done {
			return zero, false, nil
		}
		if _, _, err := it.NextPage(ctx); err != nil {
			return zero, false, err
		}
	}
	item := it.buffer[0]
	it.buffer = it.buffer[1:]
	return item, true, nil
}

// Take returns up to n items, stopping early (with a shorter slice)
// if the stream ends first.
func (it *Iterator[P, I]) Take(ctx context.Context, n int) ([]I, error) {
	out := make([]I, 0, n)
	for len(out) < n {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			break
		}
		out = append(out, item)
	}
	return out, nil
}

// CollectAll drains the iterator to exhaustion, returning every
// remaining item.
func (it *Iterator[P, I]) CollectAll(ctx context.Context) ([]I, error) {
	var out []I
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
	}
}

// Convenience constructors binding an Iterator to each client read.

// IterateArtistTracks streams every track by artist, starting at
// startPage.
func (c *Client) IterateArtistTracks(artist string, startPage int) *Iterator[TrackPage, Track] {
	return NewIterator(startPage,
		func(ctx context.Context, page int) (TrackPage, error) { return c.GetArtistTracksPage(ctx, artist, page) },
		func(p TrackPage) ([]Track, bool) { return p.Items, p.HasNext },
	)
}

// IterateArtistAlbums streams every album by artist, starting at
// startPage.
func (c *Client) IterateArtistAlbums(artist string, startPage int) *Iterator[AlbumPage, Album] {
	return NewIterator(startPage,
		func(ctx context.Context, page int) (AlbumPage, error) { return c.GetArtistAlbumsPage(ctx, artist, page) },
		func(p AlbumPage) ([]Album, bool) { return p.Items, p.HasNext },
	)
}

// IterateAlbumTracks streams every track on (artist, album), starting
// at startPage.
func (c *Client) IterateAlbumTracks(artist, album string, startPage int) *Iterator[TrackPage, Track] {
	return NewIterator(startPage,
		func(ctx context.Context, page int) (TrackPage, error) { return c.GetAlbumTracksPage(ctx, artist, album, page) },
		func(p TrackPage) ([]Track, bool) { return p.Items, p.HasNext },
	)
}

// IterateRecentTracks streams the user's recent scrobbles, newest
// first, starting at startPage.
func (c *Client) IterateRecentTracks(startPage int) *Iterator[TrackPage, Track] {
	return NewIterator(startPage,
		func(ctx context.Context, page int) (TrackPage, error) { return c.GetRecentTracksPage(ctx, page) },
		func(p TrackPage) ([]Track, bool) { return p.Items, p.HasNext },
	)
}

// IterateArtists streams the user's top artists, starting at
// startPage.
func (c *Client) IterateArtists(startPage int) *Iterator[ArtistPage, Artist] {
	return NewIterator(startPage,
		func(ctx context.Context, page int) (ArtistPage, error) { return c.GetArtistsPage(ctx, page) },
		func(p ArtistPage) ([]Artist, bool) { return p.Items, p.HasNext },
	)
}

// IterateSearchTracks streams every track result for query, starting
// at startPage.
func (c *Client) IterateSearchTracks(query string, startPage int) *Iterator[TrackPage, Track] {
	return NewIterator(startPage,
		func(ctx context.Context, page int) (TrackPage, error) { return c.SearchTracksPage(ctx, query, page) },
		func(p TrackPage) ([]Track, bool) { return p.Items, p.HasNext },
	)
}

// IterateSearchAlbums streams every album result for query, starting
// at startPage.
func (c *Client) IterateSearchAlbums(query string, startPage int) *Iterator[AlbumPage, Album] {
	return NewIterator(startPage,
		func(ctx context.Context, page int) (AlbumPage, error) { return c.SearchAlbumsPage(ctx, query, page) },
		func(p AlbumPage) ([]Album, bool) { return p.Items, p.HasNext },
	)
}

// IterateSearchArtists streams every artist result for query, starting
// at startPage.
func (c *Client) IterateSearchArtists(query string, startPage int) *Iterator[ArtistPage, Artist] {
	return NewIterator(startPage,
		func(ctx context.Context, page int) (ArtistPage, error) { return c.SearchArtistsPage(ctx, query, page) },
		func(p ArtistPage) ([]Artist, bool) { return p.Items, p.HasNext },
	)
}
