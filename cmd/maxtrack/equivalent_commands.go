package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"maxtrack/internal/handlers/render"
	"maxtrack/internal/models"
)

type equivalentQuery func(ctx context.Context, app *application, id string) (*models.MediaItem, error)

func newEquivalentCommands(ctx *commandContext) []*cobra.Command {
	var realMax bool

	download := newEquivalentCommand(ctx, "download", "Pick the track to download: an upgrade when one exists, else the source",
		func(ctx context.Context, app *application, id string) (*models.MediaItem, error) {
			return app.resolver.SelectForDownload(ctx, id, realMax || app.cfg.UseRealMax)
		})
	download.Flags().BoolVar(&realMax, "real-max", false, "Prefer the newest equivalent over the first high quality one")

	return []*cobra.Command{
		newEquivalentCommand(ctx, "max", "Find a high quality equivalent of a track",
			func(ctx context.Context, app *application, id string) (*models.MediaItem, error) {
				return app.resolver.BestHighQuality(ctx, id)
			}),
		newEquivalentCommand(ctx, "latest", "Find the best current equivalent of a track",
			func(ctx context.Context, app *application, id string) (*models.MediaItem, error) {
				return app.resolver.BestCurrent(ctx, id)
			}),
		download,
	}
}

func newEquivalentCommand(ctx *commandContext, name, short string, query equivalentQuery) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <id|url>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id, err := parseTrackRef(args[0])
			if err != nil {
				return err
			}
			if kind != models.KindTrack {
				return fmt.Errorf("%s: only tracks have equivalents", args[0])
			}

			return ctx.withApp(cmd.Context(), func(app *application) error {
				source, err := app.entities.EnsureTrack(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("load track %s: %w", id, err)
				}
				best, err := query(cmd.Context(), app, id)
				if err != nil {
					return fmt.Errorf("%s %s: %w", name, id, err)
				}

				if ctx.jsonOutput() {
					if best == nil {
						return writeJSON(cmd, map[string]any{"source_id": id, "query": name, "equivalent": nil})
					}
					return writeJSON(cmd, render.EquivalentResponse{SourceID: id, Query: name, Equivalent: render.Track(best)})
				}

				if best == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "No %s equivalent found for %s\n", name, id)
					return nil
				}
				printTable(cmd, renderComparison(render.Track(source), render.Track(best)))
				return nil
			})
		},
	}
}

// renderComparison lays the source and its equivalent side by side
func renderComparison(source, best render.TrackResponse) string {
	left := trackFields(source)
	right := trackFields(best)

	rows := make([][]string, 0, len(left))
	for i := range left {
		rows = append(rows, []string{left[i][0], left[i][1], right[i][1]})
	}
	return renderTable([]string{"Field", "Source", "Equivalent"}, rows, nil)
}
