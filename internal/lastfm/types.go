package lastfm

import (
	"encoding/json"
	"strconv"
)

// SessionCookieName is the name of the cookie the service sets on a
// successful login. Its presence (with a value shaped like a Django
// session ID) is how the login manager distinguishes success from a
// 200 response that just re-rendered the login form.
const SessionCookieName = "sessionid"

// CSRFFieldName is the form field name the service uses for its CSRF
// token, both on the login form and on the edit/delete forms.
const CSRFFieldName = "csrfmiddlewaretoken"

// Session is the immutable result of a successful login, or of
// reconstructing one from previously persisted state. It is safe to
// share (read-only) across any number of [Client] handles.
type Session struct {
	Username string
	Cookies  []string // each of the form "name=value"
	CSRF     string
	BaseURL  string
}

// sessionJSON is the externally visible JSON form: exactly four
// fields, no more.
type sessionJSON struct {
	Username string   `json:"username"`
	Cookies  []string `json:"cookies"`
	CSRF     *string  `json:"csrf_token"`
	BaseURL  string   `json:"base_url"`
}

// MarshalJSON renders the Session in the wire shape external
// collaborators (e.g. a session file or the sessionstore package) are
// expected to persist.
func (s Session) MarshalJSON() ([]byte, error) {
	var csrf *string
	if s.CSRF != "" {
		csrf = &s.CSRF
	}
	return json.Marshal(sessionJSON{
		Username: s.Username,
		Cookies:  append([]string(nil), s.Cookies...),
		CSRF:     csrf,
		BaseURL:  s.BaseURL,
	})
}

// UnmarshalJSON reconstructs a Session from the four-field wire shape.
func (s *Session) UnmarshalJSON(data []byte) error {
	var raw sessionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Username = raw.Username
	s.Cookies = append([]string(nil), raw.Cookies...)
	if raw.CSRF != nil {
		s.CSRF = *raw.CSRF
	} else {
		s.CSRF = ""
	}
	s.BaseURL = raw.BaseURL
	return nil
}

// IsValid reports whether this Session carries everything the client
// needs to make authenticated requests: a username, a session cookie,
// and a CSRF token.
func (s Session) IsValid() bool {
	if s.Username == "" || s.CSRF == "" {
		return false
	}
	for _, cookie := range s.Cookies {
		if name, _, ok := splitCookie(cookie); ok && name == SessionCookieName {
			return true
		}
	}
	return false
}

// CookieHeader joins the jar into the single "; "-separated Cookie
// header value the service expects.
func (s Session) CookieHeader() string {
	return joinCookies(s.Cookies)
}

// Playcount models the scrobble count the parser recovered for a
// chartlist row. Some rows (recent-scrobble rows) always carry a
// known count of exactly one; others come from a count-bar element
// whose text occasionally fails to parse, in which case the value is
// PlaycountUnknown rather than silently defaulted to a number the
// server never reported.
type Playcount struct {
	known bool
	n     int
}

// PlaycountUnknown is the zero Playcount: the parser could not
// recover a count-bar value for this row.
var PlaycountUnknown = Playcount{}

// PlaycountKnown constructs a Playcount for a successfully parsed
// count, clamped to zero if negative.
func PlaycountKnown(n int) Playcount {
	if n < 0 {
		n = 0
	}
	return Playcount{known: true, n: n}
}

// Known reports whether this Playcount carries a real value.
func (p Playcount) Known() bool { return p.known }

// Value returns the known count, or 0 if unknown. Callers that need
// to distinguish "zero plays" from "unknown" must check Known first.
func (p Playcount) Value() int { return p.n }

func (p Playcount) String() string {
	if !p.known {
		return "unknown"
	}
	return strconv.Itoa(p.n)
}

// Track is a single track record, either an individual scrobble (with
// Timestamp set) or an aggregate chartlist row (Timestamp nil).
type Track struct {
	Name        string
	Artist      string
	Playcount   Playcount
	Timestamp   *int64 // unix seconds, present only for individual scrobbles
	Album       string
	AlbumArtist string
}

// Album is a chartlist aggregate for one (artist, album) pair.
type Album struct {
	Name      string
	Artist    string
	Playcount Playcount
	Timestamp *int64
}

// Artist is a chartlist aggregate for one artist.
type Artist struct {
	Name      string
	Playcount Playcount
	Timestamp *int64
}

// TrackPage is one page of a track listing.
type TrackPage struct {
	Items      []Track
	Page       int
	HasNext    bool
	TotalPages *int
}

// AlbumPage is one page of an album listing.
type AlbumPage struct {
	Items      []Album
	Page       int
	HasNext    bool
	TotalPages *int
}

// ArtistPage is one page of an artist listing.
type ArtistPage struct {
	Items      []Artist
	Page       int
	HasNext    bool
	TotalPages *int
}

// ScrobbleEdit is a caller-authored, partially specified edit intent.
// Discovery resolves it against the live library into one or more
// [ExactScrobbleEdit] values.
//
// The "original" fields identify which existing scrobble(s) to match;
// the "target" fields (only those the caller actually set) describe
// the mutation to apply. Only targets set through the SetXTarget
// methods apply; any other attribute is left unchanged, its target
// taken from the discovered original at submission time. A target
// field assigned directly, without its setter, is ignored.
type ScrobbleEdit struct {
	TrackOriginal       string // optional
	AlbumOriginal       string // optional
	ArtistOriginal      string // required
	AlbumArtistOriginal string // optional

	TrackTarget       string
	AlbumTarget       string
	ArtistTarget      string
	AlbumArtistTarget string

	Timestamp *int64
	EditAll   bool

	hasTrackTarget       bool
	hasAlbumTarget       bool
	hasArtistTarget      bool
	hasAlbumArtistTarget bool
}

// SetTrackTarget records that the caller explicitly wants the track
// name changed to name (as opposed to left as the discovered original).
func (e *ScrobbleEdit) SetTrackTarget(name string) {
	e.TrackTarget = name
	e.hasTrackTarget = true
}

// SetAlbumTarget records an explicit album rename target.
func (e *ScrobbleEdit) SetAlbumTarget(name string) {
	e.AlbumTarget = name
	e.hasAlbumTarget = true
}

// SetArtistTarget records an explicit artist rename target.
func (e *ScrobbleEdit) SetArtistTarget(name string) {
	e.ArtistTarget = name
	e.hasArtistTarget = true
}

// SetAlbumArtistTarget records an explicit album-artist rename target.
func (e *ScrobbleEdit) SetAlbumArtistTarget(name string) {
	e.AlbumArtistTarget = name
	e.hasAlbumArtistTarget = true
}

// HasOriginalTrack reports whether the caller populated the original
// track name, selecting discovery cases 1/2 over 3/4.
func (e ScrobbleEdit) HasOriginalTrack() bool { return e.TrackOriginal != "" }

// HasOriginalAlbum reports whether the caller populated the original
// album name, selecting discovery cases 1/3 over 2/4.
func (e ScrobbleEdit) HasOriginalAlbum() bool { return e.AlbumOriginal != "" }

// HasOriginalAlbumArtist reports whether the caller constrained the
// original album-artist, which narrows discovery's result set.
func (e ScrobbleEdit) HasOriginalAlbumArtist() bool { return e.AlbumArtistOriginal != "" }

// ExactScrobbleEdit is a fully specified edit: every name field is
// populated (originals by discovery, targets by overlay) and a
// timestamp is present. It is consumed exactly once by the submitter.
type ExactScrobbleEdit struct {
	TrackOriginal       string
	AlbumOriginal       string
	ArtistOriginal      string
	AlbumArtistOriginal string

	TrackTarget       string
	AlbumTarget       string
	ArtistTarget      string
	AlbumArtistTarget string

	Timestamp int64
	EditAll   bool
}

// resolve overlays the caller's partial edit onto a discovered
// original, producing a fully qualified ExactScrobbleEdit. Only the
// target fields the caller actually set override the original; all
// others default to "unchanged" (target == original).
func (e ScrobbleEdit) resolve(trackOriginal, albumOriginal, artistOriginal, albumArtistOriginal string, timestamp int64) ExactScrobbleEdit {
	out := ExactScrobbleEdit{
		TrackOriginal:       trackOriginal,
		AlbumOriginal:       albumOriginal,
		ArtistOriginal:      artistOriginal,
		AlbumArtistOriginal: albumArtistOriginal,
		TrackTarget:         trackOriginal,
		AlbumTarget:         albumOriginal,
		ArtistTarget:        artistOriginal,
		AlbumArtistTarget:   albumArtistOriginal,
		Timestamp:           timestamp,
		EditAll:             e.EditAll,
	}
	if e.hasTrackTarget {
		out.TrackTarget = e.TrackTarget
	}
	if e.hasAlbumTarget {
		out.AlbumTarget = e.AlbumTarget
	}
	if e.hasArtistTarget {
		out.ArtistTarget = e.ArtistTarget
	}
	if e.hasAlbumArtistTarget {
		out.AlbumArtistTarget = e.AlbumArtistTarget
	}
	if e.Timestamp != nil {
		out.Timestamp = *e.Timestamp
	}
	return out
}

// SingleEditResponse is the outcome of one edit/delete round-trip.
type SingleEditResponse struct {
	Success   bool
	Message   string
	AlbumInfo string
}

// EditResponse aggregates every SingleEditResponse produced while
// resolving and submitting one ScrobbleEdit.
type EditResponse struct {
	Responses []SingleEditResponse
}

// AllSuccessful reports whether the response set is non-empty and
// every entry succeeded.
func (r EditResponse) AllSuccessful() bool {
	if len(r.Responses) == 0 {
		return false
	}
	for _, resp := range r.Responses {
		if !resp.Success {
			return false
		}
	}
	return true
}

// AnySuccessful reports whether at least one entry succeeded.
func (r EditResponse) AnySuccessful() bool {
	for _, resp := range r.Responses {
		if resp.Success {
			return true
		}
	}
	return false
}

// TotalEdits, SuccessfulEdits and FailedEdits give the counts behind
// AllSuccessful/AnySuccessful.
func (r EditResponse) TotalEdits() int { return len(r.Responses) }

func (r EditResponse) SuccessfulEdits() int {
	n := 0
	for _, resp := range r.Responses {
		if resp.Success {
			n++
		}
	}
	return n
}

func (r EditResponse) FailedEdits() int {
	return r.TotalEdits() - r.SuccessfulEdits()
}

// RequestInfo is attached to lifecycle events so consumers can
// correlate them with the request that produced them.
type RequestInfo struct {
	ID     string
	Method string
	URI    string
	Path   string
	Query  map[string][]string
}
