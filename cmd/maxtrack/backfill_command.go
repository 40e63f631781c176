package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"maxtrack/internal/catalog"
)

// backfillResult counts what one backfill run did
type backfillResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Missing   int `json:"missing"`
	Matched   int `json:"matched"`
	Upgrades  int `json:"upgrades"`
}

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "backfill [id|url...]",
		Short: "Load tracks into the catalog store and resolve their enrichment and upgrades",
		RunE: func(cmd *cobra.Command, args []string) error {
			refs := append([]string(nil), args...)
			if fileFlag != "" {
				fromFile, err := readRefs(fileFlag)
				if err != nil {
					return err
				}
				refs = append(refs, fromFile...)
			}
			if len(refs) == 0 {
				return fmt.Errorf("no tracks given: pass ids, URLs or --file")
			}

			return ctx.withApp(cmd.Context(), func(app *application) error {
				slog.Info("Starting backfill", "tracks", len(refs))
				result := runBackfill(cmd.Context(), app, refs)
				slog.Info("Backfill completed",
					"processed", result.Processed,
					"failed", result.Failed,
					"missing", result.Missing,
					"matched", result.Matched,
					"upgrades", result.Upgrades)

				if ctx.jsonOutput() {
					return writeJSON(cmd, result)
				}
				printTable(cmd, renderTable(
					[]string{"Processed", "Missing", "Failed", "Matched release", "Upgrades"},
					[][]string{{
						fmt.Sprint(result.Processed),
						fmt.Sprint(result.Missing),
						fmt.Sprint(result.Failed),
						fmt.Sprint(result.Matched),
						fmt.Sprint(result.Upgrades),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&fileFlag, "file", "f", "", "File with one track id or URL per line (- for stdin)")
	return cmd
}

// runBackfill processes tracks one by one. A failing track is logged and
// counted; the run stops early only when ctx ends.
func runBackfill(ctx context.Context, app *application, refs []string) backfillResult {
	var result backfillResult
	for _, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		result.Processed++

		kind, id, err := parseTrackRef(ref)
		if err != nil {
			slog.Warn("Skipping unsupported reference", "ref", ref, "error", err)
			result.Failed++
			continue
		}

		record, err := app.enrichments.For(ctx, id, kind)
		if err != nil {
			if catalog.IsAbsent(err) {
				result.Missing++
			} else {
				slog.Warn("Failed to load track for backfill", "id", id, "kind", kind, "error", err)
				result.Failed++
			}
			continue
		}

		release, err := record.MatchedRelease(ctx)
		if err != nil {
			slog.Warn("Failed to resolve release", "id", id, "error", err)
			result.Failed++
			continue
		}
		if release != nil {
			result.Matched++
		}
		if _, err := record.MatchedTrack(ctx); err != nil {
			slog.Warn("Failed to resolve release track", "id", id, "error", err)
		}

		if !record.Item().IsTrack() {
			continue
		}
		best, err := app.resolver.BestHighQuality(ctx, id)
		if err != nil {
			slog.Warn("Failed to find high quality equivalent", "id", id, "error", err)
			continue
		}
		if best != nil {
			slog.Info("Found high quality equivalent", "id", id, "equivalent", best.ID, "title", best.Title)
			result.Upgrades++
		}
	}
	return result
}

func readRefs(path string) ([]string, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	var refs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return refs, nil
}
