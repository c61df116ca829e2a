// package formatter renders library listings and edit results to CSV,
// plain text, and JSON for the cmd/ CLI.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/desertthunder/lastfm-edit/internal/lastfm"
	"github.com/desertthunder/lastfm-edit/internal/shared"
)

// TracksToCSV renders tracks with columns: Name, Artist, Album, AlbumArtist, Playcount, Timestamp.
func TracksToCSV(tracks []lastfm.Track) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Name", "Artist", "Album", "AlbumArtist", "Playcount", "Timestamp"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range tracks {
		if err := w.Write([]string{
			t.Name, t.Artist, t.Album, t.AlbumArtist, t.Playcount.String(), formatTimestamp(t.Timestamp),
		}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// AlbumsToCSV renders albums with columns: Name, Artist, Playcount, Timestamp.
func AlbumsToCSV(albums []lastfm.Album) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Name", "Artist", "Playcount", "Timestamp"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, a := range albums {
		if err := w.Write([]string{a.Name, a.Artist, a.Playcount.String(), formatTimestamp(a.Timestamp)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ArtistsToCSV renders artists with columns: Name, Playcount, Timestamp.
func ArtistsToCSV(artists []lastfm.Artist) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Name", "Playcount", "Timestamp"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, a := range artists {
		if err := w.Write([]string{a.Name, a.Playcount.String(), formatTimestamp(a.Timestamp)}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// TracksToText renders tracks as one numbered line each:
// "1. Artist - Name (Album) [playcount]".
func TracksToText(tracks []lastfm.Track) string {
	var buf bytes.Buffer
	for i, t := range tracks {
		albumPart := ""
		if t.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", t.Album)
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, t.Artist, t.Name, albumPart, t.Playcount))
	}
	return buf.String()
}

// AlbumsToText renders albums as one numbered line each.
func AlbumsToText(albums []lastfm.Album) string {
	var buf bytes.Buffer
	for i, a := range albums {
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]\n", i+1, a.Artist, a.Name, a.Playcount))
	}
	return buf.String()
}

// ArtistsToText renders artists as one numbered line each.
func ArtistsToText(artists []lastfm.Artist) string {
	var buf bytes.Buffer
	for i, a := range artists {
		buf.WriteString(fmt.Sprintf("%d. %s [%s]\n", i+1, a.Name, a.Playcount))
	}
	return buf.String()
}

// EditResponseToText summarizes an [lastfm.EditResponse], one line per
// underlying submission.
func EditResponseToText(resp lastfm.EditResponse) string {
	var buf bytes.Buffer
	for i, r := range resp.Responses {
		status := "ok"
		if !r.Success {
			status = "failed"
		}
		buf.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, status, r.Message))
	}
	if resp.AllSuccessful() {
		buf.WriteString(fmt.Sprintf("%d/%d edits applied\n", len(resp.Responses), len(resp.Responses)))
	} else {
		buf.WriteString(fmt.Sprintf("some edits failed out of %d\n", len(resp.Responses)))
	}
	return buf.String()
}

// ToJSON marshals data, pretty-printed when requested.
func ToJSON(data any, pretty bool) ([]byte, error) {
	return shared.MarshalJSON(data, pretty)
}

// WriteFile writes data to path, overwriting any existing file.
func WriteFile(data []byte, path string) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}

func formatTimestamp(ts *int64) string {
	if ts == nil {
		return ""
	}
	return strconv.FormatInt(*ts, 10)
}
