package lastfm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
)

// Credentials is the username/password pair the login manager submits.
// It is never logged; [Login] masks the password before any debug
// logging of the form body.
type Credentials struct {
	Username string
	Password string
}

// Login runs the two-step login state machine against base (the
// service root, no trailing slash) over t, returning a ready-to-use
// Session on success.
func Login(ctx context.Context, t Transport, base string, creds Credentials, logger *log.Logger) (Session, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	loginURL := strings.TrimRight(base, "/") + "/login"

	logger.Debug("fetching login form", "url", loginURL)
	fetchResp, err := t.RoundTrip(ctx, TransportRequest{
		Method: http.MethodGet,
		URL:    loginURL,
		Headers: http.Header{
			"User-Agent": []string{DefaultUserAgent},
			"Accept":     []string{"text/html,application/xhtml+xml"},
		},
	})
	if err != nil {
		return Session{}, err
	}
	if fetchResp.Status >= 400 {
		return Session{}, NewHTTPError(fmt.Sprintf("login page returned status %d", fetchResp.Status), nil)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(fetchResp.Body)))
	if err != nil {
		return Session{}, NewParseError("failed to parse login page", err)
	}
	csrf, err := extractCSRF(doc)
	if err != nil {
		return Session{}, err
	}
	next, _ := extractHiddenField(doc.Selection, "next")

	jar := mergeCookies(nil, fetchResp.SetCookies())

	form := url.Values{}
	form.Set(CSRFFieldName, csrf)
	form.Set("username_or_email", creds.Username)
	form.Set("password", creds.Password)
	if next != "" {
		form.Set("next", next)
	}
	logger.Debug("submitting login form", "body", maskPassword(form.Encode()))

	submitResp, err := t.RoundTrip(ctx, TransportRequest{
		Method: http.MethodPost,
		URL:    loginURL,
		Headers: http.Header{
			"User-Agent":   []string{DefaultUserAgent},
			"Content-Type": []string{"application/x-www-form-urlencoded"},
			"Cookie":       []string{joinCookies(jar)},
			"Referer":      []string{loginURL},
			"Origin":       []string{base},
		},
		Body: strings.NewReader(form.Encode()),
	})
	if err != nil {
		return Session{}, err
	}

	jar = mergeCookies(jar, submitResp.SetCookies())

	if submitResp.Status == http.StatusForbidden {
		return Session{}, NewAuthError("Login failed - 403 Forbidden (possible bot detection)")
	}

	if hasSessionCookie(jar) && (submitResp.Status == http.StatusFound || submitResp.Status == http.StatusOK) {
		return Session{
			Username: creds.Username,
			Cookies:  jar,
			CSRF:     csrf,
			BaseURL:  base,
		}, nil
	}

	if submitResp.Status == http.StatusOK {
		respDoc, err := goquery.NewDocumentFromReader(strings.NewReader(string(submitResp.Body)))
		if err == nil && hasLoginForm(respDoc) {
			msg := parseLoginErrors(respDoc)
			if msg == "" {
				msg = "invalid username or password"
			}
			return Session{}, NewAuthError(msg)
		}
		return Session{
			Username: creds.Username,
			Cookies:  jar,
			CSRF:     csrf,
			BaseURL:  base,
		}, nil
	}

	return Session{}, NewAuthError(fmt.Sprintf("login failed with unexpected status %d", submitResp.Status))
}

// hasSessionCookie reports whether jar contains a cookie named
// SessionCookieName whose value looks like a real Django session id:
// starts with "." and is longer than 50 characters.
func hasSessionCookie(jar []string) bool {
	for _, cookie := range jar {
		name, value, ok := splitCookie(cookie)
		if ok && name == SessionCookieName {
			return strings.HasPrefix(value, ".") && len(value) > 50
		}
	}
	return false
}

// maskPassword replaces the value of a urlencoded "password" field
// with asterisks so form bodies are safe to log at debug level.
func maskPassword(body string) string {
	parts := strings.Split(body, "&")
	for i, p := range parts {
		if strings.HasPrefix(p, "password=") {
			parts[i] = "password=****"
		}
	}
	return strings.Join(parts, "&")
}
