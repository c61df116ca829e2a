package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lastfm-edit/internal/formatter"
	"github.com/urfave/cli/v3"
)

// renderListing is a small helper shared by every listing command: it
// renders items as JSON, CSV, or plain text depending on the --json
// and --csv flags (plain text is the default).
func (r *Runner) renderListing(cmd *cli.Command, asJSON func() ([]byte, error), asCSV func() ([]byte, error), asText func() string) error {
	switch {
	case cmd.Bool("json"):
		data, err := asJSON()
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", data)
	case cmd.Bool("csv"):
		data, err := asCSV()
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	default:
		return r.writePlain("%s", asText())
	}
}

func listingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "username", Usage: "Overrides config.toml's username"},
		&cli.IntFlag{Name: "page", Usage: "Page to fetch; 0 fetches every page", Value: 1},
		&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
		&cli.BoolFlag{Name: "csv", Usage: "Output CSV"},
	}
}

func (r *Runner) sessionFor(cmd *cli.Command) (string, error) {
	username := cmd.String("username")
	if username == "" {
		username = r.config.Credentials.Username
	}
	if username == "" {
		return "", fmt.Errorf("no username configured: pass --username or set it in config.toml")
	}
	return username, nil
}

// RecentTracks lists the recently scrobbled tracks.
func (r *Runner) RecentTracks(ctx context.Context, cmd *cli.Command) error {
	username, err := r.sessionFor(cmd)
	if err != nil {
		return err
	}
	session, err := r.loadSession(username)
	if err != nil {
		return err
	}
	client := r.newClient(session)

	page := cmd.Int("page")
	if page == 0 {
		items, err := client.IterateRecentTracks(1).CollectAll(ctx)
		if err != nil {
			return err
		}
		return r.renderListing(cmd,
			func() ([]byte, error) { return formatter.ToJSON(items, true) },
			func() ([]byte, error) { return formatter.TracksToCSV(items) },
			func() string { return formatter.TracksToText(items) },
		)
	}

	result, err := client.GetRecentTracksPage(ctx, page)
	if err != nil {
		return err
	}
	return r.renderListing(cmd,
		func() ([]byte, error) { return formatter.ToJSON(result, true) },
		func() ([]byte, error) { return formatter.TracksToCSV(result.Items) },
		func() string { return formatter.TracksToText(result.Items) },
	)
}

// ArtistTracks lists the top tracks for one artist.
func (r *Runner) ArtistTracks(ctx context.Context, cmd *cli.Command) error {
	username, err := r.sessionFor(cmd)
	if err != nil {
		return err
	}
	session, err := r.loadSession(username)
	if err != nil {
		return err
	}
	client := r.newClient(session)
	artist := cmd.StringArg("artist")

	page := cmd.Int("page")
	if page == 0 {
		items, err := client.IterateArtistTracks(artist, 1).CollectAll(ctx)
		if err != nil {
			return err
		}
		return r.renderListing(cmd,
			func() ([]byte, error) { return formatter.ToJSON(items, true) },
			func() ([]byte, error) { return formatter.TracksToCSV(items) },
			func() string { return formatter.TracksToText(items) },
		)
	}

	result, err := client.GetArtistTracksPage(ctx, artist, page)
	if err != nil {
		return err
	}
	return r.renderListing(cmd,
		func() ([]byte, error) { return formatter.ToJSON(result, true) },
		func() ([]byte, error) { return formatter.TracksToCSV(result.Items) },
		func() string { return formatter.TracksToText(result.Items) },
	)
}

// Artists lists every artist in the library.
func (r *Runner) Artists(ctx context.Context, cmd *cli.Command) error {
	username, err := r.sessionFor(cmd)
	if err != nil {
		return err
	}
	session, err := r.loadSession(username)
	if err != nil {
		return err
	}
	client := r.newClient(session)

	page := cmd.Int("page")
	if page == 0 {
		items, err := client.IterateArtists(1).CollectAll(ctx)
		if err != nil {
			return err
		}
		return r.renderListing(cmd,
			func() ([]byte, error) { return formatter.ToJSON(items, true) },
			func() ([]byte, error) { return formatter.ArtistsToCSV(items) },
			func() string { return formatter.ArtistsToText(items) },
		)
	}

	result, err := client.GetArtistsPage(ctx, page)
	if err != nil {
		return err
	}
	return r.renderListing(cmd,
		func() ([]byte, error) { return formatter.ToJSON(result, true) },
		func() ([]byte, error) { return formatter.ArtistsToCSV(result.Items) },
		func() string { return formatter.ArtistsToText(result.Items) },
	)
}

func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Read library listings",
		Commands: []*cli.Command{
			{
				Name:   "recent",
				Usage:  "List recently scrobbled tracks",
				Flags:  listingFlags(),
				Action: r.RecentTracks,
			},
			{
				Name:  "artist-tracks",
				Usage: "List an artist's top tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "artist"},
				},
				Flags:  listingFlags(),
				Action: r.ArtistTracks,
			},
			{
				Name:   "artists",
				Usage:  "List every artist in the library",
				Flags:  listingFlags(),
				Action: r.Artists,
			},
		},
	}
}
