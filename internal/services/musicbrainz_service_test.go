package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maxtrack/internal/cache"
	"maxtrack/internal/config"
)

func newTestMusicBrainzService(t *testing.T, handler http.Handler, responses cache.Cache) (*MusicBrainzService, *JSONRequester) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	requester := NewJSONRequester("musicbrainz", "maxtrack-test/1.0", 0, responses, time.Hour)
	requester.client.SetRetryCount(0)

	svc, err := NewMusicBrainzService(&config.PlatformConfig{
		Name:       "musicbrainz",
		AuthMethod: config.AuthMethodNone,
		BaseURL:    server.URL + "/ws/2/",
	}, requester)
	require.NoError(t, err)
	return svc, requester
}

func TestMusicBrainzService_ReleasesByBarcode(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ws/2/release/", r.URL.Path)
		assert.Equal(t, "barcode:00602527136318", r.URL.Query().Get("query"))
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))
		assert.Equal(t, "maxtrack-test/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`{
			"count": 2,
			"releases": [
				{"id": "rel-1", "score": 100, "title": "A Night at the Opera", "text-representation": {"language": "eng"}, "media": [{"position": 1, "track-count": 12}]},
				{"id": "rel-2", "score": 90, "title": "A Night at the Opera"}
			]
		}`))
	})

	svc, _ := newTestMusicBrainzService(t, handler, nil)

	releases, err := svc.ReleasesByBarcode(context.Background(), "00602527136318")
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, "rel-1", releases[0].ID)
	assert.Equal(t, "eng", releases[0].Language())
	require.NotNil(t, releases[0].Medium(1))
	assert.Equal(t, 12, releases[0].Medium(1).TrackCount)
	assert.Nil(t, releases[0].Medium(2))

	_, err = svc.ReleasesByBarcode(context.Background(), "")
	assert.Error(t, err)
}

func TestMusicBrainzService_RecordingsByISRC(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ws/2/isrc/GBUM71029604":
			assert.Equal(t, "isrcs", r.URL.Query().Get("inc"))
			_, _ = w.Write([]byte(`{"isrc": "GBUM71029604", "recordings": [{"id": "rec-1", "title": "Bohemian Rhapsody", "isrcs": ["GBUM71029604", "GBUM71029605"]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error": "Not Found"}`))
		}
	})

	svc, _ := newTestMusicBrainzService(t, handler, nil)

	recordings, err := svc.RecordingsByISRC(context.Background(), "GBUM71029604")
	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.Equal(t, "GBUM71029605", recordings[0].LastISRC())

	_, err = svc.RecordingsByISRC(context.Background(), "XXUNKNOWN000")
	assert.True(t, IsNotFound(err))
}

func TestMusicBrainzService_RecordingAndRelease(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ws/2/recording/rec-1":
			assert.Equal(t, "releases media artist-credits isrcs", r.URL.Query().Get("inc"))
			_, _ = w.Write([]byte(`{"id": "rec-1", "releases": [{"id": "rel-jp", "text-representation": {"language": "jpn"}, "media": [{"tracks": [{"id": "t-1", "title": "Bohemian Rhapsody"}]}]}]}`))
		case "/ws/2/release/rel-1":
			assert.Equal(t, "recordings isrcs artist-credits", r.URL.Query().Get("inc"))
			_, _ = w.Write([]byte(`{"id": "rel-1", "media": [{"position": 1, "track-count": 2, "tracks": [{"id": "t-a"}, {"id": "t-b", "recording": {"id": "rec-b", "isrcs": ["ISRCB"]}}]}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	svc, _ := newTestMusicBrainzService(t, handler, nil)
	ctx := context.Background()

	recording, err := svc.Recording(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, recording.Releases, 1)
	assert.Equal(t, "jpn", recording.Releases[0].Language())

	release, err := svc.Release(ctx, "rel-1")
	require.NoError(t, err)
	track := release.TrackAt(1, 2)
	require.NotNil(t, track)
	assert.Equal(t, "rec-b", track.Recording.ID)
	assert.Nil(t, release.TrackAt(1, 3))
	assert.Nil(t, release.TrackAt(2, 1))
}

func TestJSONRequester_CachesByURL(t *testing.T) {
	var hits atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"isrc": "A", "recordings": []}`))
	})

	responses := cache.NewMemoryCache(10)
	svc, requester := newTestMusicBrainzService(t, handler, responses)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.RecordingsByISRC(ctx, "A")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), hits.Load())
	assert.Equal(t, int64(1), requester.Requests())

	// A different URL is a different cache entry
	_, err := svc.RecordingsByISRC(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, int64(2), hits.Load())
}

func TestJSONRequester_ErrorsAreNotCached(t *testing.T) {
	var hits atomic.Int64
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"recordings": [{"id": "rec-1"}]}`))
	})

	svc, _ := newTestMusicBrainzService(t, handler, cache.NewMemoryCache(10))
	ctx := context.Background()

	_, err := svc.RecordingsByISRC(ctx, "A")
	require.Error(t, err)
	assert.False(t, IsNotFound(err))

	recordings, err := svc.RecordingsByISRC(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, recordings, 1)
}

func TestJSONRequester_RateLimitHonoursContext(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	server := httptest.NewServer(handler)
	defer server.Close()

	requester := NewJSONRequester("musicbrainz", "", 0.001, nil, time.Minute)

	var out map[string]interface{}
	require.NoError(t, requester.GetJSON(context.Background(), "test", server.URL, &out))

	// The single burst token is spent; the next wait would exceed the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := requester.GetJSON(ctx, "test", server.URL+"/other", &out)
	assert.Error(t, err)
	assert.Equal(t, int64(1), requester.Requests())
}
