// Utilities for parsing cURL commands copied from a browser's network
// inspector, used to reconstruct a [lastfm.Session] without driving the
// login form at all.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/desertthunder/lastfm-edit/internal/lastfm"
)

// CurlHeaders represents parsed headers and cookies from a cURL command.
type CurlHeaders struct {
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers.
func ParseCurlFile(filepath string) (*CurlHeaders, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(content)
}

// ParseCurlCommand parses a cURL command string and extracts headers.
func ParseCurlCommand(data []byte) (*CurlHeaders, error) {
	curlCmd := string(data)
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var cookie string

	headerRegex := regexp.MustCompile(`-H\s+'([^']+)'|-H\s+"([^"]+)"`)
	matches := headerRegex.FindAllStringSubmatch(curlCmd, -1)

	for _, match := range matches {
		var headerLine string
		if match[1] != "" {
			headerLine = match[1]
		} else {
			headerLine = match[2]
		}

		parts := strings.SplitN(headerLine, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])

			if strings.ToLower(key) != "cookie" {
				headers[key] = value
			}
		}
	}

	cookieRegex := regexp.MustCompile(`-b\s+'([^']+)'|-b\s+"([^"]+)"`)
	cookieMatches := cookieRegex.FindStringSubmatch(curlCmd)
	if len(cookieMatches) > 1 {
		if cookieMatches[1] != "" {
			cookie = cookieMatches[1]
		} else {
			cookie = cookieMatches[2]
		}
	}

	if cookie == "" {
		for _, match := range matches {
			var headerLine string
			if match[1] != "" {
				headerLine = match[1]
			} else {
				headerLine = match[2]
			}

			if strings.HasPrefix(strings.ToLower(headerLine), "cookie:") {
				parts := strings.SplitN(headerLine, ":", 2)
				if len(parts) == 2 {
					cookie = strings.TrimSpace(parts[1])
				}
				break
			}
		}
	}

	if len(headers) == 0 && cookie == "" {
		return nil, fmt.Errorf("%w: no headers found", ErrCurlParse)
	}

	return &CurlHeaders{
		Headers: headers,
		Cookie:  cookie,
	}, nil
}

// SessionFromCurl reconstructs a [lastfm.Session] from a curl command
// copied out of a browser's "copy as cURL" feature. username and
// baseURL are not recoverable from the command itself and must be
// supplied by the caller.
//
// The CSRF token is read from the standard Django csrftoken cookie if
// present; callers that reconstruct a session this way should still
// expect the first form submission to re-derive it from the page, since
// a stale csrftoken cookie is a common way these sessions go bad.
func SessionFromCurl(headers *CurlHeaders, username, baseURL string) (lastfm.Session, error) {
	if headers.Cookie == "" {
		return lastfm.Session{}, ErrCurlMissingCookie
	}

	var jar []string
	var csrf string
	for _, pair := range strings.Split(headers.Cookie, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		jar = append(jar, pair)

		name, value, ok := strings.Cut(pair, "=")
		if ok && strings.TrimSpace(name) == "csrftoken" {
			csrf = strings.TrimSpace(value)
		}
	}

	return lastfm.Session{
		Username: username,
		Cookies:  jar,
		CSRF:     csrf,
		BaseURL:  baseURL,
	}, nil
}
