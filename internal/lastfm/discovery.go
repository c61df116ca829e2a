package lastfm

import (
	"context"
	"net/url"
	"strings"
)

// Discover resolves partial into the full set of server-acceptable
// concrete edits by walking the user's library, per the four-case
// strategy below. It returns immediately with a channel that the
// caller must drain to completion (or abandon via ctx cancellation)
// and a single-value error channel reporting only catastrophic
// listing-level failures; per-track form-fetch failures are logged
// and skipped, never sent on either channel.
func (c *Client) Discover(ctx context.Context, partial ScrobbleEdit) (<-chan ExactScrobbleEdit, <-chan error) {
	out := make(chan ExactScrobbleEdit)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		var err error
		switch {
		case partial.HasOriginalTrack() && partial.HasOriginalAlbum():
			err = c.discoverExactMatch(ctx, partial, out)
		case partial.HasOriginalTrack() && !partial.HasOriginalAlbum():
			err = c.discoverTrackVariations(ctx, partial, out)
		case !partial.HasOriginalTrack() && partial.HasOriginalAlbum():
			err = c.discoverAlbumTracks(ctx, partial, out)
		default:
			err = c.discoverArtistTracks(ctx, partial, out)
		}
		errc <- err
		close(errc)
	}()

	return out, errc
}

// fetchTrackEditRows fetches the hidden edit-form values for every
// variation of (artist, track) as currently known to the service.
func (c *Client) fetchTrackEditRows(ctx context.Context, artist, track string) ([]chartRow, error) {
	encodedTrack := strings.ReplaceAll(url.QueryEscape(track), "%20", "+")
	path := libraryPath(c.session.Username, artist, "/_/"+encodedTrack)
	doc, err := c.getDocument(ctx, path, nil, false)
	if err != nil {
		return nil, err
	}
	rows := parseChartlist(doc, artist)
	for i := range rows {
		if rows[i].name == "" {
			rows[i].name = track
		}
	}
	return rows, nil
}

// matchesAlbumArtistFilter applies the "filter by original album
// artist" rule: if the caller constrained it, rows whose parsed
// album-artist differs are discarded; otherwise every row is kept.
func matchesAlbumArtistFilter(partial ScrobbleEdit, row chartRow) bool {
	if !partial.HasOriginalAlbumArtist() {
		return true
	}
	return row.albumArtist == partial.AlbumArtistOriginal
}

func yieldRow(ctx context.Context, partial ScrobbleEdit, artist, track string, row chartRow, out chan<- ExactScrobbleEdit) bool {
	var ts int64
	if row.timestamp != nil {
		ts = *row.timestamp
	}
	exact := partial.resolve(track, row.album, artist, row.albumArtist, ts)
	select {
	case out <- exact:
		return true
	case <-ctx.Done():
		return false
	}
}

// discoverExactMatch is case 1: both track and album are given.
func (c *Client) discoverExactMatch(ctx context.Context, partial ScrobbleEdit, out chan<- ExactScrobbleEdit) error {
	rows, err := c.fetchTrackEditRows(ctx, partial.ArtistOriginal, partial.TrackOriginal)
	if err != nil {
		c.logger.Warn("discovery: failed to fetch track edit rows, skipping", "track", partial.TrackOriginal, "err", err)
		return nil
	}
	for _, row := range rows {
		if row.album != partial.AlbumOriginal {
			continue
		}
		if !matchesAlbumArtistFilter(partial, row) {
			continue
		}
		if !yieldRow(ctx, partial, partial.ArtistOriginal, partial.TrackOriginal, row, out) {
			return ctx.Err()
		}
	}
	return nil
}

// discoverTrackVariations is case 2: track given, album not.
func (c *Client) discoverTrackVariations(ctx context.Context, partial ScrobbleEdit, out chan<- ExactScrobbleEdit) error {
	rows, err := c.fetchTrackEditRows(ctx, partial.ArtistOriginal, partial.TrackOriginal)
	if err != nil {
		c.logger.Warn("discovery: failed to fetch track edit rows, skipping", "track", partial.TrackOriginal, "err", err)
		return nil
	}
	for _, row := range rows {
		if !matchesAlbumArtistFilter(partial, row) {
			continue
		}
		if !yieldRow(ctx, partial, partial.ArtistOriginal, partial.TrackOriginal, row, out) {
			return ctx.Err()
		}
	}
	return nil
}

// discoverAlbumTracks is case 3: album given, track not. It iterates
// the album's track listing and fetches each track's edit rows,
// retaining only rows whose parsed original album matches.
func (c *Client) discoverAlbumTracks(ctx context.Context, partial ScrobbleEdit, out chan<- ExactScrobbleEdit) error {
	page := 1
	for {
		tp, err := c.GetAlbumTracksPage(ctx, partial.ArtistOriginal, partial.AlbumOriginal, page)
		if err != nil {
			return err
		}
		for _, track := range tp.Items {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rows, err := c.fetchTrackEditRows(ctx, partial.ArtistOriginal, track.Name)
			if err != nil {
				c.logger.Warn("discovery: failed to fetch track edit rows, skipping", "track", track.Name, "err", err)
				continue
			}
			for _, row := range rows {
				if row.album != partial.AlbumOriginal {
					continue
				}
				if !matchesAlbumArtistFilter(partial, row) {
					continue
				}
				if !yieldRow(ctx, partial, partial.ArtistOriginal, track.Name, row, out) {
					return ctx.Err()
				}
			}
		}
		if !tp.HasNext {
			return nil
		}
		page++
	}
}

// discoverArtistTracks is case 4: neither track nor album given. It
// iterates every track credited to the artist and fetches each
// track's edit rows.
func (c *Client) discoverArtistTracks(ctx context.Context, partial ScrobbleEdit, out chan<- ExactScrobbleEdit) error {
	page := 1
	for {
		tp, err := c.GetArtistTracksPage(ctx, partial.ArtistOriginal, page)
		if err != nil {
			return err
		}
		for _, track := range tp.Items {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rows, err := c.fetchTrackEditRows(ctx, partial.ArtistOriginal, track.Name)
			if err != nil {
				c.logger.Warn("discovery: failed to fetch track edit rows, skipping", "track", track.Name, "err", err)
				continue
			}
			for _, row := range rows {
				if !matchesAlbumArtistFilter(partial, row) {
					continue
				}
				if !yieldRow(ctx, partial, partial.ArtistOriginal, track.Name, row, out) {
					return ctx.Err()
				}
			}
		}
		if !tp.HasNext {
			return nil
		}
		page++
	}
}
