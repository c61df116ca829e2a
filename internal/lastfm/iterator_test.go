package lastfm_test

import (
	"context"
	"testing"

	"github.com/desertthunder/lastfm-edit/internal/testlastfm"
)

func pageBody(names ...string) string {
	body := "<table><tbody>"
	for _, n := range names {
		body += `<tr class="chartlist-row"><td class="chartlist-name"><a href="/music/Artist/_/` + n + `">` + n + `</a></td>` +
			`<td class="chartlist-count-bar"><span class="chartlist-count-bar-value">1 scrobbles</span></td></tr>`
	}
	body += "</tbody></table>"
	return body
}

func TestIteratorTakeRespectsBound(t *testing.T) {
	cassette := testlastfm.NewCassette(
		testlastfm.Recorded{Method: "GET", URLMatch: "page=1", Response: testlastfm.Response{Status: 200, Body: pageBody("A", "B") + `<li class="pagination-next"><a href="?page=2">n</a></li>`}},
		testlastfm.Recorded{Method: "GET", URLMatch: "page=2", Response: testlastfm.Response{Status: 200, Body: pageBody("C", "D")}},
	)
	client := newTestClient(cassette)

	it := client.IterateArtistTracks("Artist", 1)
	items, err := it.Take(context.Background(), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Name != "A" || items[2].Name != "C" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestIteratorCollectAllStopsAtEndOfStream(t *testing.T) {
	cassette := testlastfm.NewCassette(
		testlastfm.Recorded{Method: "GET", URLMatch: "page=1", Response: testlastfm.Response{Status: 200, Body: pageBody("A")}},
	)
	client := newTestClient(cassette)

	it := client.IterateArtistTracks("Artist", 1)
	items, err := it.CollectAll(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 (no second page should be fetched)", len(items))
	}
}

func TestIteratorNextPageExhaustion(t *testing.T) {
	cassette := testlastfm.NewCassette(
		testlastfm.Recorded{Method: "GET", URLMatch: "page=1", Response: testlastfm.Response{Status: 200, Body: pageBody("A")}},
	)
	client := newTestClient(cassette)

	it := client.IterateArtistTracks("Artist", 1)
	if _, ok, err := it.NextPage(context.Background()); err != nil || !ok {
		t.Fatalf("first NextPage failed: ok=%v err=%v", ok, err)
	}
	if _, ok, err := it.NextPage(context.Background()); err != nil || ok {
		t.Fatalf("second NextPage should report exhaustion: ok=%v err=%v", ok, err)
	}
}
