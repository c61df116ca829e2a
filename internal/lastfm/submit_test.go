package lastfm_test

import (
	"context"
	"io"
	"net/url"
	"testing"

	"github.com/desertthunder/lastfm-edit/internal/lastfm"
	"github.com/desertthunder/lastfm-edit/internal/testlastfm"
)

func newTestClient(cassette *testlastfm.Cassette) *lastfm.Client {
	transport := testlastfm.NewCassetteTransport(cassette)
	session := testlastfm.NewSession("alice", "https://www.last.fm")
	return lastfm.NewClient(transport, session)
}

func TestSubmitExactSuccess(t *testing.T) {
	cassette := testlastfm.NewCassette(testlastfm.Recorded{
		Method:   "POST",
		URLMatch: "/library/edit",
		Response: testlastfm.Response{Status: 200, Body: `<div class="alert-success">ok</div><a href="/music/Artist/New%20Album">a</a>`},
	})
	client := newTestClient(cassette)

	exact := lastfm.ExactScrobbleEdit{
		TrackOriginal: "Old", ArtistOriginal: "Artist", AlbumOriginal: "Album",
		TrackTarget: "New", ArtistTarget: "Artist", AlbumTarget: "New Album",
		Timestamp: 1700000000,
	}

	resp, err := client.SubmitExact(context.Background(), exact)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Fatalf("expected success, got %+v", resp)
	}
	if resp.AlbumInfo != "New Album" {
		t.Errorf("AlbumInfo = %q", resp.AlbumInfo)
	}
}

func TestSubmitExactFormFields(t *testing.T) {
	cassette := testlastfm.NewCassette(testlastfm.Recorded{
		Method:   "POST",
		URLMatch: "/library/edit",
		Response: testlastfm.Response{Status: 200, Body: `<div class="alert-success">ok</div>`},
	})
	transport := testlastfm.NewCassetteTransport(cassette)
	session := testlastfm.NewSession("alice", "https://www.last.fm")
	client := lastfm.NewClient(transport, session)

	exact := lastfm.ExactScrobbleEdit{
		TrackOriginal: "Old Track", ArtistOriginal: "Old Artist",
		AlbumOriginal: "Old Album", AlbumArtistOriginal: "Old Album Artist",
		TrackTarget: "New Track", ArtistTarget: "New Artist",
		AlbumTarget: "New Album", AlbumArtistTarget: "New Album Artist",
		Timestamp: 1700000000,
	}

	if _, err := client.SubmitExact(context.Background(), exact); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(transport.Calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(transport.Calls))
	}
	raw, err := io.ReadAll(transport.Calls[0].Body)
	if err != nil {
		t.Fatalf("failed to read request body: %v", err)
	}
	form, err := url.ParseQuery(string(raw))
	if err != nil {
		t.Fatalf("failed to parse request body: %v", err)
	}

	// The bare fields carry the new (target) values...
	for field, want := range map[string]string{
		"track_name":        "New Track",
		"artist_name":       "New Artist",
		"album_name":        "New Album",
		"album_artist_name": "New Album Artist",
	} {
		if got := form.Get(field); got != want {
			t.Errorf("form[%q] = %q, want %q", field, got, want)
		}
	}
	// ...and the _original fields carry the current (original) values.
	for field, want := range map[string]string{
		"track_name_original":        "Old Track",
		"artist_name_original":       "Old Artist",
		"album_name_original":        "Old Album",
		"album_artist_name_original": "Old Album Artist",
	} {
		if got := form.Get(field); got != want {
			t.Errorf("form[%q] = %q, want %q", field, got, want)
		}
	}
}

func TestSubmitExactRateLimitHeuristic(t *testing.T) {
	cassette := testlastfm.NewCassette(testlastfm.Recorded{
		Method:   "POST",
		URLMatch: "/library/edit",
		Response: testlastfm.Response{Status: 200, Body: "Please slow down and try again later."},
	})
	client := newTestClient(cassette)

	_, err := client.SubmitExact(context.Background(), lastfm.ExactScrobbleEdit{ArtistOriginal: "A", TrackOriginal: "T"})
	lf, ok := lastfm.IsRateLimit(err)
	if !ok {
		t.Fatalf("expected a rate-limit error, got %v", err)
	}
	if lf.RetryAfterSeconds != 60 {
		t.Errorf("RetryAfterSeconds = %d, want 60", lf.RetryAfterSeconds)
	}
}

func TestSubmitExactPublishesEditAttempted(t *testing.T) {
	cassette := testlastfm.NewCassette(testlastfm.Recorded{
		Method:   "POST",
		URLMatch: "/library/edit",
		Response: testlastfm.Response{Status: 200, Body: `<div class="alert-success">ok</div>`},
	})
	transport := testlastfm.NewCassetteTransport(cassette)
	session := testlastfm.NewSession("alice", "https://www.last.fm")
	bus := lastfm.NewBus()
	sub := bus.Subscribe()
	defer sub.Close()
	client := lastfm.NewClient(transport, session, lastfm.WithBus(bus))

	exact := lastfm.ExactScrobbleEdit{ArtistOriginal: "A", TrackOriginal: "T", Timestamp: 1700000000}
	if _, err := client.SubmitExact(context.Background(), exact); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := <-sub.Events()
	if ev.Kind != lastfm.EventEditAttempted {
		t.Fatalf("got event kind %v, want EventEditAttempted", ev.Kind)
	}
	if !ev.Success {
		t.Errorf("expected Success = true, got %+v", ev)
	}
	if ev.Edit == nil || ev.Edit.TrackOriginal != "T" {
		t.Errorf("expected Edit to be attached, got %+v", ev.Edit)
	}
}

func TestDeleteScrobble(t *testing.T) {
	cassette := testlastfm.NewCassette(testlastfm.Recorded{
		Method:   "POST",
		URLMatch: "/library/delete",
		Response: testlastfm.Response{Status: 200, Body: `<div class="alert-success">deleted</div>`},
	})
	client := newTestClient(cassette)

	ok, err := client.DeleteScrobble(context.Background(), "Artist", "Track", 1700000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected delete to report success")
	}
}
