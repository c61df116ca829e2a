package lastfm

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	editPath   = "/library/edit"
	deletePath = "/library/delete"
)

// rateLimitPhrases are known rate-limit phrasings the service returns
// in an HTML body alongside a 200 status.
var rateLimitPhrases = []string{
	"too many requests",
	"you are doing that too much",
	"please slow down",
	"rate limit",
}

// looksRateLimited reports whether body contains one of the known
// rate-limit phrasings, case-insensitively.
func looksRateLimited(body string) bool {
	lower := strings.ToLower(body)
	for _, phrase := range rateLimitPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// buildEditForm renders an ExactScrobbleEdit into the url-encoded form
// body the edit endpoint expects: the eight name fields, the CSRF
// token, the timestamp (omitted when EditAll), and edit_all=on when
// set.
func buildEditForm(e ExactScrobbleEdit, csrf string) url.Values {
	form := url.Values{}
	form.Set(CSRFFieldName, csrf)
	form.Set("track_name", e.TrackTarget)
	form.Set("album_name", e.AlbumTarget)
	form.Set("artist_name", e.ArtistTarget)
	form.Set("album_artist_name", e.AlbumArtistTarget)
	form.Set("track_name_original", e.TrackOriginal)
	form.Set("album_name_original", e.AlbumOriginal)
	form.Set("artist_name_original", e.ArtistOriginal)
	form.Set("album_artist_name_original", e.AlbumArtistOriginal)
	if e.EditAll {
		form.Set("edit_all", "on")
	} else {
		form.Set("timestamp", strconv.FormatInt(e.Timestamp, 10))
	}
	return form
}

// SubmitExact posts a single fully resolved edit to the service's edit
// endpoint and analyses the response. It does not retry; callers that
// want retry-on-rate-limit should run it through withRetry. An
// EditAttempted event is published after every attempt, whether it
// succeeds, fails, or errors.
func (c *Client) SubmitExact(ctx context.Context, exact ExactScrobbleEdit) (result SingleEditResponse, err error) {
	start := time.Now()
	defer func() {
		if c.bus == nil {
			return
		}
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
		} else if !result.Success {
			errMsg = result.Message
		}
		c.bus.Publish(editAttempted(exact, err == nil && result.Success, errMsg, time.Since(start)))
	}()

	form := buildEditForm(exact, c.session.CSRF)
	editURL := c.baseURL() + editPath

	resp, err := c.t.RoundTrip(ctx, TransportRequest{
		Method: http.MethodPost,
		URL:    editURL,
		Headers: http.Header{
			"User-Agent":       []string{DefaultUserAgent},
			"Content-Type":     []string{"application/x-www-form-urlencoded"},
			"Cookie":           []string{c.cookieHeader()},
			"Referer":          []string{editURL},
			"X-Requested-With": []string{"XMLHttpRequest"},
		},
		Body: strings.NewReader(form.Encode()),
	})
	if err != nil {
		return SingleEditResponse{}, err
	}

	if looksRateLimited(string(resp.Body)) {
		if c.bus != nil {
			c.bus.Publish(rateLimited(60, nil, RateLimitResponsePattern))
		}
		err = NewRateLimitError(60)
		return SingleEditResponse{}, err
	}

	if resp.Status == http.StatusTooManyRequests {
		err = NewRateLimitError(60)
		return SingleEditResponse{}, err
	}

	if resp.Status < 200 || resp.Status >= 300 {
		err = NewHTTPError("edit request failed", nil)
		return SingleEditResponse{}, err
	}

	doc, parseErr := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body)))
	if parseErr != nil {
		err = NewParseError("failed to parse edit response", parseErr)
		return SingleEditResponse{}, err
	}

	analysis := analyseEditResponse(doc)
	result = SingleEditResponse{
		Success:   analysis.success,
		Message:   analysis.message,
		AlbumInfo: analysis.albumName,
	}
	if !result.Success && result.Message == "" {
		result.Message = "edit was not applied"
	}
	return result, nil
}

// DeleteScrobble posts the delete form for one scrobble identified by
// artist, track and timestamp, returning the server-reported success.
func (c *Client) DeleteScrobble(ctx context.Context, artist, track string, timestamp int64) (bool, error) {
	form := url.Values{}
	form.Set(CSRFFieldName, c.session.CSRF)
	form.Set("artist_name", artist)
	form.Set("track_name", track)
	form.Set("timestamp", strconv.FormatInt(timestamp, 10))

	deleteURL := c.baseURL() + deletePath
	resp, err := c.t.RoundTrip(ctx, TransportRequest{
		Method: http.MethodPost,
		URL:    deleteURL,
		Headers: http.Header{
			"User-Agent":       []string{DefaultUserAgent},
			"Content-Type":     []string{"application/x-www-form-urlencoded"},
			"Cookie":           []string{c.cookieHeader()},
			"Referer":          []string{deleteURL},
			"X-Requested-With": []string{"XMLHttpRequest"},
		},
		Body: strings.NewReader(form.Encode()),
	})
	if err != nil {
		return false, err
	}

	if looksRateLimited(string(resp.Body)) {
		if c.bus != nil {
			c.bus.Publish(rateLimited(60, nil, RateLimitResponsePattern))
		}
		return false, NewRateLimitError(60)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return false, NewHTTPError("delete request failed", nil)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body)))
	if err != nil {
		return false, NewParseError("failed to parse delete response", err)
	}
	return analyseEditResponse(doc).success, nil
}
