package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maxtrack/internal/handlers/render"
	"maxtrack/internal/models"
)

func TestParseTrackRef(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		wantKind models.MediaKind
		wantID   string
		wantErr  bool
	}{
		{name: "bare id", ref: "77646169", wantKind: models.KindTrack, wantID: "77646169"},
		{name: "track url", ref: "https://tidal.com/browse/track/77646169", wantKind: models.KindTrack, wantID: "77646169"},
		{name: "video url", ref: "https://tidal.com/browse/video/1234", wantKind: models.KindVideo, wantID: "1234"},
		{name: "album url", ref: "https://tidal.com/browse/album/77646164", wantErr: true},
		{name: "unknown url", ref: "https://example.com/track/1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, id, err := parseTrackRef(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, kind)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := newLogger("debug", "text")
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	_, ok := logger.Handler().(*slog.TextHandler)
	assert.True(t, ok)

	logger = newLogger("bogus", "json")
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	_, ok = logger.Handler().(*slog.JSONHandler)
	assert.True(t, ok)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("MAXTRACK_TEST_VALUE=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("MAXTRACK_TEST_VALUE") })

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "loaded", os.Getenv("MAXTRACK_TEST_VALUE"))

	assert.Error(t, loadEnvFile(filepath.Join(dir, "missing.env")))
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"Field", "Value"}, [][]string{{"Title", "Bohemian Rhapsody"}, {"Short"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "Bohemian Rhapsody")

	assert.Empty(t, renderTable(nil, nil, nil))
}

func TestTrackFields(t *testing.T) {
	fields := trackFields(render.TrackResponse{
		ID:              "1",
		Kind:            "track",
		Title:           "Song",
		Version:         "Remastered",
		Artists:         []string{"A", "B"},
		VolumeNumber:    1,
		TrackNumber:     4,
		DurationSeconds: 125,
		QualityTags:     []string{},
	})

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[f[0]] = f[1]
	}
	assert.Equal(t, "Song (Remastered)", values["Title"])
	assert.Equal(t, "A, B", values["Artists"])
	assert.Equal(t, "1-4", values["Position"])
	assert.Equal(t, "2:05", values["Duration"])
	assert.Equal(t, "-", values["ISRC"])
	assert.Equal(t, "-", values["Quality"])
}

func TestEnrichmentFields(t *testing.T) {
	resp := render.EnrichmentResponse{
		Track: render.TrackResponse{ID: "1", Title: "Song"},
		ISRCs: []string{"USAAA0000001", "USAAA0000002"},
		Release: &render.ReleaseMatch{
			ID:       "rel-1",
			Title:    "Album",
			Language: "eng",
		},
		HasLyrics: true,
	}

	out := renderFields(enrichmentFields(resp))
	assert.Contains(t, out, "USAAA0000001, USAAA0000002")
	assert.Contains(t, out, "rel-1")
	assert.Contains(t, out, "Release track")
	assert.Contains(t, out, "yes")
}

func TestRootCommand_Help(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	for _, name := range []string{"serve", "track", "enrich", "max", "latest", "download"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestRootCommand_RequiresArgument(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"max"})

	assert.Error(t, cmd.Execute())
}
