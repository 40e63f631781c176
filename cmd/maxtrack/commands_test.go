package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maxtrack/internal/handlers/render"
	"maxtrack/internal/testutil"
)

// setupCatalogServer points the configuration at a mock catalog API
func setupCatalogServer(t *testing.T) *testutil.MockHTTPServer {
	t.Helper()

	server := testutil.NewMockHTTPServer(t)
	server.OnJSON("/token", http.StatusOK, testutil.TidalTokenResponse())
	server.OnJSON("/v1/tracks/"+testutil.TestTrackID1, http.StatusOK,
		testutil.TidalTrackResponse(testutil.TestTrackID1, "Bohemian Rhapsody", testutil.TestISRC1))
	server.OnJSON("/v1/tracks/1", http.StatusNotFound, `{"status":404,"subStatus":2001,"userMessage":"Track not found"}`)

	t.Setenv("TIDAL_CLIENT_ID", "id")
	t.Setenv("TIDAL_CLIENT_SECRET", "secret")
	t.Setenv("TIDAL_TOKEN_URL", server.URL()+"/token")
	t.Setenv("TIDAL_API_URL", server.URL()+"/v1")
	t.Setenv("TIDAL_OPENAPI_URL", server.URL()+"/v2")
	t.Setenv("MUSICBRAINZ_URL", server.URL()+"/ws/2")
	t.Setenv("MUSICBRAINZ_RATE_LIMIT", "0")
	t.Setenv("MONGODB_URL", "")
	t.Setenv("VALKEY_URL", "")
	t.Setenv("LOG_LEVEL", "error")
	return server
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTrackCommand_JSON(t *testing.T) {
	server := setupCatalogServer(t)

	out, err := runCLI(t, "track", testutil.TestTrackURL, "--json")
	require.NoError(t, err)

	var track render.TrackResponse
	require.NoError(t, json.Unmarshal([]byte(out), &track))
	assert.Equal(t, testutil.TestTrackID1, track.ID)
	assert.Equal(t, "Bohemian Rhapsody", track.Title)
	assert.Equal(t, testutil.TestISRC1, track.ISRC)
	assert.Equal(t, []string{"LOSSLESS"}, track.QualityTags)

	assert.Equal(t, 1, server.Hits("/token"))
	assert.Equal(t, 1, server.Hits("/v1/tracks/"+testutil.TestTrackID1))
}

func TestTrackCommand_Table(t *testing.T) {
	setupCatalogServer(t)

	out, err := runCLI(t, "track", testutil.TestTrackID1)
	require.NoError(t, err)
	assert.Contains(t, out, "Bohemian Rhapsody")
	assert.Contains(t, out, testutil.TestISRC1)
	assert.Contains(t, out, "1-11")
}

func TestTrackCommand_NotFound(t *testing.T) {
	setupCatalogServer(t)

	_, err := runCLI(t, "track", "1")
	assert.Error(t, err)
}

func TestEquivalentCommand_RejectsVideos(t *testing.T) {
	setupCatalogServer(t)

	_, err := runCLI(t, "max", "https://tidal.com/browse/video/"+testutil.TestVideoID)
	assert.ErrorContains(t, err, "only tracks have equivalents")
}

func TestTrackCommand_RequiresCredentials(t *testing.T) {
	setupCatalogServer(t)
	t.Setenv("TIDAL_CLIENT_ID", "")

	_, err := runCLI(t, "track", testutil.TestTrackID1)
	assert.ErrorContains(t, err, "tidal is not configured")
}

func TestBackfillCommand(t *testing.T) {
	setupCatalogServer(t)

	path := filepath.Join(t.TempDir(), "tracks.txt")
	require.NoError(t, os.WriteFile(path, []byte("# queued\n"+testutil.TestTrackURL+"\n\n1\n"), 0o600))

	out, err := runCLI(t, "backfill", "https://example.com/track/5", "--file", path, "--json")
	require.NoError(t, err)

	var result backfillResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 1, result.Missing)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Upgrades)
}

func TestBackfillCommand_RequiresTracks(t *testing.T) {
	setupCatalogServer(t)

	_, err := runCLI(t, "backfill")
	assert.ErrorContains(t, err, "no tracks given")
}

func TestReadRefs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.txt")
	require.NoError(t, os.WriteFile(path, []byte("  1 \n# comment\n\nhttps://tidal.com/browse/track/2\n"), 0o600))

	refs, err := readRefs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "https://tidal.com/browse/track/2"}, refs)

	_, err = readRefs(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
