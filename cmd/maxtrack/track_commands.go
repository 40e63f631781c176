package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"maxtrack/internal/enrichment"
	"maxtrack/internal/handlers/render"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "track <id|url>",
		Short: "Show a track or video with its quality tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseTrackRef(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), func(app *application) error {
				item, err := app.entities.Ensure(cmd.Context(), id, kind)
				if err != nil {
					return fmt.Errorf("load %s %s: %w", kind, id, err)
				}
				track := render.Track(item)
				if ctx.jsonOutput() {
					return writeJSON(cmd, track)
				}
				printTable(cmd, renderFields(trackFields(track)))
				return nil
			})
		},
	}
}

func newEnrichCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "enrich <id|url>",
		Short: "Show identifiers, matched release and lyrics for a track",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseTrackRef(args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), func(app *application) error {
				record, err := app.enrichments.For(cmd.Context(), id, kind)
				if err != nil {
					return fmt.Errorf("load %s %s: %w", kind, id, err)
				}
				resp, err := collectEnrichment(cmd, record)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, resp)
				}
				printTable(cmd, renderFields(enrichmentFields(resp)))
				return nil
			})
		},
	}
}

func collectEnrichment(cmd *cobra.Command, record *enrichment.Record) (render.EnrichmentResponse, error) {
	ctx := cmd.Context()

	isrcs, err := record.AlternateIDs(ctx)
	if err != nil {
		return render.EnrichmentResponse{}, fmt.Errorf("resolve identifiers: %w", err)
	}
	release, err := record.MatchedRelease(ctx)
	if err != nil {
		return render.EnrichmentResponse{}, fmt.Errorf("resolve release: %w", err)
	}
	releaseTrack, err := record.MatchedTrack(ctx)
	if err != nil {
		return render.EnrichmentResponse{}, fmt.Errorf("resolve release track: %w", err)
	}
	lyrics, err := record.Lyrics(ctx)
	if err != nil {
		return render.EnrichmentResponse{}, fmt.Errorf("load lyrics: %w", err)
	}

	return render.EnrichmentResponse{
		Track:        render.Track(record.Item()),
		ISRCs:        isrcs,
		Release:      render.Release(release),
		ReleaseTrack: render.ReleaseTrack(releaseTrack),
		HasLyrics:    lyrics != nil,
		SyncedLyrics: lyrics.Synced(),
	}, nil
}

func enrichmentFields(resp render.EnrichmentResponse) [][2]string {
	fields := [][2]string{
		{"ID", resp.Track.ID},
		{"Title", titleWithVersion(resp.Track.Title, resp.Track.Version)},
		{"Artists", joinOrDash(resp.Track.Artists)},
		{"ISRCs", joinOrDash(resp.ISRCs)},
	}

	if r := resp.Release; r != nil {
		fields = append(fields,
			[2]string{"Release", r.ID},
			[2]string{"Release title", r.Title},
			[2]string{"Release language", orDash(r.Language)},
			[2]string{"Release date", orDash(r.Date)},
			[2]string{"Barcode", orDash(r.Barcode)},
		)
	} else {
		fields = append(fields, [2]string{"Release", "-"})
	}

	if t := resp.ReleaseTrack; t != nil {
		fields = append(fields,
			[2]string{"Release track", t.ID},
			[2]string{"Release track position", strconv.Itoa(t.Position)},
			[2]string{"Recording", orDash(t.RecordingID)},
		)
	} else {
		fields = append(fields, [2]string{"Release track", "-"})
	}

	return append(fields,
		[2]string{"Lyrics", yesNo(resp.HasLyrics)},
		[2]string{"Synced lyrics", yesNo(resp.SyncedLyrics)},
	)
}
