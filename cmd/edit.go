package main

import (
	"context"

	"github.com/desertthunder/lastfm-edit/internal/formatter"
	"github.com/desertthunder/lastfm-edit/internal/lastfm"
	"github.com/urfave/cli/v3"
)

// EditTrack discovers and renames matching scrobbles.
func (r *Runner) EditTrack(ctx context.Context, cmd *cli.Command) error {
	username, err := r.sessionFor(cmd)
	if err != nil {
		return err
	}
	session, err := r.loadSession(username)
	if err != nil {
		return err
	}
	client := r.newClient(session)

	partial := lastfm.ScrobbleEdit{
		ArtistOriginal:      cmd.String("artist"),
		TrackOriginal:       cmd.String("track"),
		AlbumOriginal:       cmd.String("album"),
		AlbumArtistOriginal: cmd.String("album-artist"),
		EditAll:             cmd.Bool("all"),
	}
	if name := cmd.String("new-track"); name != "" {
		partial.SetTrackTarget(name)
	}
	if name := cmd.String("new-artist"); name != "" {
		partial.SetArtistTarget(name)
	}
	if name := cmd.String("new-album"); name != "" {
		partial.SetAlbumTarget(name)
	}

	resp, err := client.EditScrobble(ctx, partial)
	if err != nil {
		return err
	}

	return r.writePlain("%s", formatter.EditResponseToText(resp))
}

// EditAlbum renames an album (and optionally its whole discography run).
func (r *Runner) EditAlbum(ctx context.Context, cmd *cli.Command) error {
	username, err := r.sessionFor(cmd)
	if err != nil {
		return err
	}
	session, err := r.loadSession(username)
	if err != nil {
		return err
	}
	client := r.newClient(session)

	resp, err := client.EditAlbum(ctx, cmd.String("artist"), cmd.String("album"), cmd.String("new-album"), cmd.Bool("all"))
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.EditResponseToText(resp))
}

// EditArtist renames an artist across their entire discography.
func (r *Runner) EditArtist(ctx context.Context, cmd *cli.Command) error {
	username, err := r.sessionFor(cmd)
	if err != nil {
		return err
	}
	session, err := r.loadSession(username)
	if err != nil {
		return err
	}
	client := r.newClient(session)

	resp, err := client.EditArtist(ctx, cmd.String("artist"), cmd.String("new-artist"))
	if err != nil {
		return err
	}
	return r.writePlain("%s", formatter.EditResponseToText(resp))
}

// DeleteScrobble removes a single scrobble identified by its timestamp.
func (r *Runner) DeleteScrobble(ctx context.Context, cmd *cli.Command) error {
	username, err := r.sessionFor(cmd)
	if err != nil {
		return err
	}
	session, err := r.loadSession(username)
	if err != nil {
		return err
	}
	client := r.newClient(session)

	ok, err := client.DeleteScrobble(ctx, cmd.String("artist"), cmd.String("track"), int64(cmd.Int("timestamp")))
	if err != nil {
		return err
	}
	if ok {
		return r.writePlain("deleted\n")
	}
	return r.writePlain("not found\n")
}

func editCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "edit",
		Usage: "Submit metadata edits and deletions the way the web UI does",
		Commands: []*cli.Command{
			{
				Name:  "track",
				Usage: "Rename a track (and optionally its artist/album) across matching scrobbles",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username"},
					&cli.StringFlag{Name: "artist", Required: true},
					&cli.StringFlag{Name: "track"},
					&cli.StringFlag{Name: "album"},
					&cli.StringFlag{Name: "album-artist"},
					&cli.StringFlag{Name: "new-track"},
					&cli.StringFlag{Name: "new-artist"},
					&cli.StringFlag{Name: "new-album"},
					&cli.BoolFlag{Name: "all", Usage: "Apply to every scrobble of this track, not just the most recent"},
				},
				Action: r.EditTrack,
			},
			{
				Name:  "album",
				Usage: "Rename an album",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username"},
					&cli.StringFlag{Name: "artist", Required: true},
					&cli.StringFlag{Name: "album", Required: true},
					&cli.StringFlag{Name: "new-album", Required: true},
					&cli.BoolFlag{Name: "all"},
				},
				Action: r.EditAlbum,
			},
			{
				Name:  "artist",
				Usage: "Rename an artist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username"},
					&cli.StringFlag{Name: "artist", Required: true},
					&cli.StringFlag{Name: "new-artist", Required: true},
				},
				Action: r.EditArtist,
			},
			{
				Name:  "delete",
				Usage: "Delete a single scrobble by timestamp",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username"},
					&cli.StringFlag{Name: "artist", Required: true},
					&cli.StringFlag{Name: "track", Required: true},
					&cli.IntFlag{Name: "timestamp", Required: true},
				},
				Action: r.DeleteScrobble,
			},
		},
	}
}
