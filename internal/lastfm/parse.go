package lastfm

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Pure parsing functions over an already-fetched *goquery.Document.
// None of these touch a network or a filesystem; every failure mode
// is a *Error{Kind: KindParse} or KindCSRFNotFound.

var (
	trackHrefPattern = regexp.MustCompile(`/music/([^/]+)/_/([^/?#]+)`)
	albumHrefPattern = regexp.MustCompile(`/music/([^/]+)/([^/?#]+)`)
	pageOfPattern    = regexp.MustCompile(`Page\s+\d+\s+of\s+(\d+)`)
)

// extractCSRF finds the value of the first input named CSRFFieldName
// anywhere in the document.
func extractCSRF(doc *goquery.Document) (string, error) {
	val, exists := doc.Find(fmt.Sprintf(`input[name="%s"]`, CSRFFieldName)).First().Attr("value")
	if !exists || val == "" {
		return "", ErrCSRFNotFound
	}
	return val, nil
}

// extractHiddenField reads the value of a named hidden input anywhere
// in sel's subtree.
func extractHiddenField(sel *goquery.Selection, name string) (string, bool) {
	return sel.Find(fmt.Sprintf(`input[name="%s"]`, name)).First().Attr("value")
}

// chartRow is the intermediate shape shared by chartlist and
// recent-scrobble rows before being lifted into a Track/Album/Artist.
type chartRow struct {
	name        string
	artist      string
	album       string
	albumArtist string
	timestamp   *int64
	playcount   Playcount
}

// parsePlaycount strips the trailing " scrobbles" suffix (and commas)
// from a count-bar element's text, surfacing PlaycountUnknown rather
// than defaulting when the text is absent or does not parse.
func parsePlaycount(sel *goquery.Selection) Playcount {
	text := strings.TrimSpace(sel.Find(".chartlist-count-bar-value").First().Text())
	if text == "" {
		return PlaycountUnknown
	}
	text = strings.TrimSuffix(text, " scrobbles")
	text = strings.TrimSuffix(text, " scrobble")
	text = strings.ReplaceAll(text, ",", "")
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil {
		return PlaycountUnknown
	}
	return PlaycountKnown(n)
}

// parseRowTimestamp reads the hidden "timestamp" field, if present.
func parseRowTimestamp(row *goquery.Selection) *int64 {
	raw, ok := extractHiddenField(row, "timestamp")
	if !ok || raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// parseChartlist parses a generic chartlist table (used for artist
// top-tracks, top-albums, artist-list, library listings and search
// results) into rows. The presence of an artist-name cell
// distinguishes search rows (which carry their own artist) from
// per-artist listing rows (which do not, and inherit fallbackArtist).
func parseChartlist(doc *goquery.Document, fallbackArtist string) []chartRow {
	var rows []chartRow
	seen := make(map[string]bool)

	doc.Find("tr.chartlist-row, tbody tr").Each(func(_ int, row *goquery.Selection) {
		nameSel := row.Find(".chartlist-name a, .chartlist-ellipsis a").First()
		name := strings.TrimSpace(nameSel.Text())
		if name == "" {
			if v, ok := row.Attr("data-track-name"); ok {
				name = v
			}
		}
		if name == "" {
			return
		}

		artist := fallbackArtist
		if artistSel := row.Find(".chartlist-artist a, .chartlist-artists a").First(); artistSel.Length() > 0 {
			artist = strings.TrimSpace(artistSel.Text())
		} else if v, ok := row.Attr("data-artist-name"); ok && v != "" {
			artist = v
		}

		album, _ := extractHiddenField(row, "album_name")
		if album == "" {
			if v, ok := row.Attr("data-album-name"); ok {
				album = v
			}
		}
		albumArtist, _ := extractHiddenField(row, "album_artist_name")

		key := artist + "\x00" + name + "\x00" + album
		if seen[key] {
			return
		}
		seen[key] = true

		rows = append(rows, chartRow{
			name:        name,
			artist:      artist,
			album:       album,
			albumArtist: albumArtist,
			timestamp:   parseRowTimestamp(row),
			playcount:   parsePlaycount(row),
		})
	})

	return rows
}

// parseRecentScrobbles parses a recent-tracks page: each row is an
// individual scrobble with a known playcount of exactly one.
func parseRecentScrobbles(doc *goquery.Document) []Track {
	rows := parseChartlist(doc, "")
	tracks := make([]Track, 0, len(rows))
	for _, r := range rows {
		tracks = append(tracks, Track{
			Name:        r.name,
			Artist:      r.artist,
			Playcount:   PlaycountKnown(1),
			Timestamp:   r.timestamp,
			Album:       r.album,
			AlbumArtist: r.albumArtist,
		})
	}
	return tracks
}

// parseTrackPage parses an artist-top-tracks, album-tracks, or
// search-tracks listing, with fallbackArtist supplying the artist on
// rows that don't carry their own (per-artist pages).
func parseTrackPage(doc *goquery.Document, fallbackArtist string) []Track {
	rows := parseChartlist(doc, fallbackArtist)
	tracks := make([]Track, 0, len(rows))
	for _, r := range rows {
		tracks = append(tracks, Track{
			Name:        r.name,
			Artist:      r.artist,
			Playcount:   r.playcount,
			Timestamp:   r.timestamp,
			Album:       r.album,
			AlbumArtist: r.albumArtist,
		})
	}
	return tracks
}

// parseAlbumPage parses an artist-top-albums or search-albums listing.
func parseAlbumPage(doc *goquery.Document, fallbackArtist string) []Album {
	rows := parseChartlist(doc, fallbackArtist)
	albums := make([]Album, 0, len(rows))
	for _, r := range rows {
		albums = append(albums, Album{
			Name:      r.name,
			Artist:    r.artist,
			Playcount: r.playcount,
			Timestamp: r.timestamp,
		})
	}
	return albums
}

// parseArtistPage parses a top-artists or search-artists listing.
func parseArtistPage(doc *goquery.Document) []Artist {
	rows := parseChartlist(doc, "")
	artists := make([]Artist, 0, len(rows))
	for _, r := range rows {
		artists = append(artists, Artist{
			Name:      r.name,
			Playcount: r.playcount,
			Timestamp: r.timestamp,
		})
	}
	return artists
}

// paginationInfo is the result of parsePagination.
type paginationInfo struct {
	hasNext    bool
	totalPages *int
}

// parsePagination detects a next-page link and, when present,
// extracts the total page count from "Page N of M" text.
func parsePagination(doc *goquery.Document) paginationInfo {
	info := paginationInfo{}
	info.hasNext = doc.Find(`.pagination-next:not(.disabled), li.pagination-next a`).Length() > 0

	doc.Find(".pagination, .pages").Each(func(_ int, sel *goquery.Selection) {
		if info.totalPages != nil {
			return
		}
		m := pageOfPattern.FindStringSubmatch(sel.Text())
		if m == nil {
			return
		}
		if n, err := strconv.Atoi(m[1]); err == nil {
			info.totalPages = &n
		}
	})

	return info
}

// parseLoginErrors joins every login-form error banner's text into a
// single message, or "" if none is present.
func parseLoginErrors(doc *goquery.Document) string {
	var messages []string
	doc.Find(".alert-danger, #id_username_or_email-group .form-errors, .form-errors").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			messages = append(messages, text)
		}
	})
	return strings.Join(messages, "; ")
}

// hasLoginForm reports whether doc still contains a login form, used
// to distinguish a successful post-login redirect target from a
// re-rendered login page.
func hasLoginForm(doc *goquery.Document) bool {
	return doc.Find(`input[name="username_or_email"]`).Length() > 0
}

// editAnalysis is the result of analyseEditResponse.
type editAnalysis struct {
	success   bool
	message   string
	trackName string
	albumName string
}

// analyseEditResponse inspects the HTML returned from an edit/delete
// submission for a success alert, an error alert, and the resulting
// track/album names, falling back to anchor-href regexes when no
// dedicated cell carries the name.
func analyseEditResponse(doc *goquery.Document) editAnalysis {
	result := editAnalysis{}

	if errSel := doc.Find(".alert-danger, .edit-error").First(); errSel.Length() > 0 {
		result.message = strings.TrimSpace(errSel.Text())
		result.success = false
		return result
	}

	successSel := doc.Find(".alert-success, .edit-success").First()
	result.success = successSel.Length() > 0
	result.message = strings.TrimSpace(successSel.Text())

	if name, ok := doc.Find(".chartlist-name a").First().Attr("data-track-name"); ok {
		result.trackName = name
	}
	if name, ok := doc.Find(".chartlist-name a").First().Attr("data-album-name"); ok {
		result.albumName = name
	}

	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if result.trackName == "" {
			if m := trackHrefPattern.FindStringSubmatch(href); m != nil {
				if decoded, err := url.QueryUnescape(m[2]); err == nil {
					result.trackName = decoded
				}
			}
		}
		if result.albumName == "" {
			if m := albumHrefPattern.FindStringSubmatch(href); m != nil && !strings.Contains(href, "/_/") {
				if decoded, err := url.QueryUnescape(m[2]); err == nil {
					result.albumName = decoded
				}
			}
		}
		return result.trackName == "" || result.albumName == ""
	})

	return result
}
