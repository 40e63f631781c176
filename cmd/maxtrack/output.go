package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"maxtrack/internal/handlers/render"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTable(cmd *cobra.Command, rendered string) {
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
}

func trackFields(track render.TrackResponse) [][2]string {
	return [][2]string{
		{"ID", track.ID},
		{"Kind", track.Kind},
		{"Title", titleWithVersion(track.Title, track.Version)},
		{"Artists", joinOrDash(track.Artists)},
		{"ISRC", orDash(track.ISRC)},
		{"Album", orDash(track.Album)},
		{"Position", position(track.VolumeNumber, track.TrackNumber)},
		{"Duration", duration(track.DurationSeconds)},
		{"Stream start", orDash(track.StreamStartDate)},
		{"Quality", joinOrDash(track.QualityTags)},
	}
}

func titleWithVersion(title, version string) string {
	if version == "" {
		return title
	}
	return title + " (" + version + ")"
}

func position(volume, track int) string {
	if track == 0 {
		return "-"
	}
	return strconv.Itoa(volume) + "-" + strconv.Itoa(track)
}

func duration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func joinOrDash(values []string) string {
	return orDash(strings.Join(values, ", "))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
