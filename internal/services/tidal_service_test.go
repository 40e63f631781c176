package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maxtrack/internal/cache"
	"maxtrack/internal/config"
	"maxtrack/internal/models"
)

// newTestTidalService wires a TidalService to an httptest server that
// serves the token endpoint at /token, v1 under /v1 and v2 under /v2
func newTestTidalService(t *testing.T, api http.Handler) (*TidalService, *atomic.Int64) {
	t.Helper()

	var tokenRequests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
	})
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		api.ServeHTTP(w, r)
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	svc, err := NewTidalService(&config.PlatformConfig{
		Name:         "tidal",
		AuthMethod:   config.AuthMethodOAuth2,
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/token",
		BaseURL:      server.URL + "/v1",
		Timeout:      5,
		ExtraConfig: map[string]string{
			"openapi_url":  server.URL + "/v2",
			"country_code": "NZ",
		},
	})
	require.NoError(t, err)
	svc.client.SetRetryCount(0)
	return svc, &tokenRequests
}

func TestNewTidalService_RequiresOAuth2(t *testing.T) {
	_, err := NewTidalService(nil)
	assert.Error(t, err)

	_, err = NewTidalService(&config.PlatformConfig{Name: "tidal", AuthMethod: config.AuthMethodNone})
	assert.ErrorContains(t, err, "requires OAuth2")
}

func TestTidalService_GetMediaItem(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tracks/77646168", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "NZ", r.URL.Query().Get("countryCode"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 77646168,
			"title": "Bohemian Rhapsody",
			"version": "Remastered 2011",
			"duration": 354,
			"trackNumber": 11,
			"volumeNumber": 1,
			"isrc": "GBUM71029604",
			"streamStartDate": "2014-09-05T00:00:00.000+0000",
			"audioQuality": "LOSSLESS",
			"mediaMetadata": {"tags": ["LOSSLESS", "HIRES_LOSSLESS"]},
			"artists": [{"id": 8992, "name": "Queen"}],
			"album": {"id": 77646164, "title": "A Night At The Opera", "cover": "a-b-c"}
		}`))
	})
	mux.HandleFunc("/v1/videos/98785108", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 98785108, "title": "Live Aid", "quality": "MP4_1080P"}`))
	})

	svc, tokens := newTestTidalService(t, mux)
	ctx := context.Background()

	item, err := svc.GetMediaItem(ctx, "77646168", models.KindTrack)
	require.NoError(t, err)
	assert.Equal(t, "77646168", item.ID)
	assert.Equal(t, models.KindTrack, item.Kind)
	assert.Equal(t, "GBUM71029604", item.ISRC)
	assert.Equal(t, 11, item.TrackNumber)
	assert.Equal(t, "77646164", item.AlbumID)
	assert.Equal(t, []string{"Queen"}, item.Artists)
	assert.True(t, item.HasHiRes())
	assert.Equal(t, time.Date(2014, 9, 5, 0, 0, 0, 0, time.UTC), item.StreamStartDate.UTC())

	video, err := svc.GetMediaItem(ctx, "98785108", models.KindVideo)
	require.NoError(t, err)
	assert.Equal(t, models.KindVideo, video.Kind)
	assert.Equal(t, "Live Aid", video.Title)

	// Token is reused across requests
	assert.Equal(t, int64(1), tokens.Load())
}

func TestTidalService_GetMediaItem_NotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tracks/1", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"status":404,"subStatus":2001,"userMessage":"Track not found"}`))
	})
	mux.HandleFunc("/v1/tracks/2", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":503,"userMessage":"try later"}`))
	})

	svc, _ := newTestTidalService(t, mux)

	_, err := svc.GetMediaItem(context.Background(), "1", models.KindTrack)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cache.ErrNotFound))
	assert.True(t, IsNotFound(err))

	_, err = svc.GetMediaItem(context.Background(), "2", models.KindTrack)
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	var platformErr *PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Contains(t, platformErr.Message, "503")
	assert.Contains(t, platformErr.Message, "try later")
}

func TestTidalService_GetAlbum(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/albums/77646164", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": 77646164,
			"title": "A Night At The Opera",
			"upc": "00602527136318",
			"numberOfTracks": 12,
			"numberOfVolumes": 1,
			"releaseDate": "1975-11-21",
			"cover": "aa-bb",
			"artists": [{"id": 8992, "name": "Queen"}]
		}`))
	})

	svc, _ := newTestTidalService(t, mux)

	album, err := svc.GetAlbum(context.Background(), "77646164")
	require.NoError(t, err)
	assert.Equal(t, "00602527136318", album.UPC)
	assert.Equal(t, 12, album.NumberOfTracks)
	assert.Equal(t, 1975, album.ReleaseDate.Year())
	assert.Equal(t, "https://resources.tidal.com/images/aa/bb/640x640.jpg", album.CoverURL)
}

func TestTidalService_FetchLyrics(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/tracks/5/lyrics", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"trackId": 5, "lyricsProvider": "MUSIXMATCH", "lyrics": "Is this the real life?", "subtitles": "[00:00.10] Is this the real life?", "isRightToLeft": false}`))
	})
	mux.HandleFunc("/v1/tracks/6/lyrics", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/v1/tracks/7/lyrics", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"trackId": 7}`))
	})

	svc, _ := newTestTidalService(t, mux)
	ctx := context.Background()

	lyrics, err := svc.FetchLyrics(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "5", lyrics.TrackID)
	assert.Equal(t, "MUSIXMATCH", lyrics.Provider)
	assert.True(t, lyrics.Synced())

	_, err = svc.FetchLyrics(ctx, "6")
	assert.True(t, IsNotFound(err))

	_, err = svc.FetchLyrics(ctx, "7")
	assert.True(t, IsNotFound(err))
}

func TestTidalService_SearchByISRC_FollowsNextLinks(t *testing.T) {
	var pageRequests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/tracks", func(w http.ResponseWriter, r *http.Request) {
		pageRequests.Add(1)
		assert.Equal(t, "USRC17607839", r.URL.Query().Get("filter[isrc]"))
		w.Header().Set("Content-Type", "application/vnd.api+json")

		if r.URL.Query().Get("page[cursor]") == "" {
			_, _ = w.Write([]byte(`{
				"data": [
					{"id": "1", "type": "tracks", "attributes": {"title": "One", "isrc": "USRC17607839", "mediaTags": ["LOSSLESS"]}},
					{"id": "9", "type": "videos", "attributes": {"title": "Clip"}}
				],
				"links": {"self": "/tracks", "next": "/tracks?filter%5Bisrc%5D=USRC17607839&page%5Bcursor%5D=p2"}
			}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"data": [
				{"id": "2", "type": "tracks", "attributes": {"title": "Two", "isrc": "USRC17607839", "mediaTags": ["LOSSLESS", "HIRES_LOSSLESS"]}}
			],
			"links": {"self": "/tracks?page%5Bcursor%5D=p2"}
		}`))
	})

	svc, _ := newTestTidalService(t, mux)
	ctx := context.Background()

	cur := svc.SearchByISRC("USRC17607839")
	assert.Equal(t, int64(0), pageRequests.Load(), "cursor must be lazy")

	var records []SearchRecord
	for cur.Next(ctx) {
		records = append(records, cur.Record())
	}
	require.NoError(t, cur.Err())
	require.Len(t, records, 3)

	assert.Equal(t, "1", records[0].ID)
	assert.True(t, records[0].IsTrack())
	assert.False(t, records[0].Track.HasHiRes())

	assert.Equal(t, "videos", records[1].Type)
	assert.False(t, records[1].IsTrack())

	assert.Equal(t, "2", records[2].ID)
	assert.True(t, records[2].Track.HasHiRes())

	assert.Equal(t, int64(2), pageRequests.Load())
	assert.Equal(t, 2, cur.Pages())
}

func TestTidalService_SearchByISRC_EarlyStopSkipsRemainingPages(t *testing.T) {
	var pageRequests atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/tracks", func(w http.ResponseWriter, r *http.Request) {
		pageRequests.Add(1)
		_, _ = w.Write([]byte(`{
			"data": [{"id": "1", "type": "tracks", "attributes": {"title": "One"}}],
			"links": {"next": "/tracks?page%5Bcursor%5D=more"}
		}`))
	})

	svc, _ := newTestTidalService(t, mux)

	cur := svc.SearchByISRC("X")
	require.True(t, cur.Next(context.Background()))
	assert.Equal(t, int64(1), pageRequests.Load())
}

func TestTidalService_SearchByISRC_NoResults(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	svc, _ := newTestTidalService(t, mux)

	cur := svc.SearchByISRC("NOPE")
	assert.False(t, cur.Next(context.Background()))
	assert.NoError(t, cur.Err())
}

func TestTidalService_SearchByISRC_MaxPages(t *testing.T) {
	var served atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/tracks", func(w http.ResponseWriter, r *http.Request) {
		n := served.Add(1)
		_, _ = fmt.Fprintf(w, `{
			"data": [{"id": "%d", "type": "tracks", "attributes": {}}],
			"links": {"next": "/tracks?page%%5Bcursor%%5D=c%d"}
		}`, n, n)
	})

	svc, _ := newTestTidalService(t, mux)
	svc.SetMaxSearchPages(2)

	cur := svc.SearchByISRC("LOOP")
	count := 0
	for cur.Next(context.Background()) {
		count++
	}
	assert.NoError(t, cur.Err())
	assert.Equal(t, 2, cur.Pages())
	assert.Equal(t, 2, count)
}

func TestTidalService_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	svc, err := NewTidalService(&config.PlatformConfig{
		Name:         "tidal",
		AuthMethod:   config.AuthMethodOAuth2,
		ClientID:     "id",
		ClientSecret: "bad",
		TokenURL:     server.URL + "/token",
		BaseURL:      server.URL + "/v1",
	})
	require.NoError(t, err)

	_, err = svc.GetMediaItem(context.Background(), "1", models.KindTrack)
	var platformErr *PlatformError
	require.ErrorAs(t, err, &platformErr)
	assert.Equal(t, "auth", platformErr.Operation)
	assert.False(t, IsNotFound(err))
	assert.Error(t, svc.Health(context.Background()))
}

func TestTidalTime_UnmarshalJSON(t *testing.T) {
	var logs bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })

	tests := []struct {
		name   string
		input  string
		want   time.Time
		logged bool
	}{
		{name: "offset without colon", input: `"2014-09-05T00:00:00.000+0000"`, want: time.Date(2014, 9, 5, 0, 0, 0, 0, time.UTC)},
		{name: "date only", input: `"2014-09-08"`, want: time.Date(2014, 9, 8, 0, 0, 0, 0, time.UTC)},
		{name: "rfc3339", input: `"2020-01-02T03:04:05Z"`, want: time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)},
		{name: "null", input: `null`},
		{name: "unrecognized", input: `"05/09/2014"`, logged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs.Reset()

			var parsed tidalTime
			require.NoError(t, json.Unmarshal([]byte(tt.input), &parsed))
			assert.True(t, tt.want.Equal(parsed.Time), "got %v", parsed.Time)

			if tt.logged {
				assert.Contains(t, logs.String(), "Unrecognized catalog timestamp")
				assert.Contains(t, logs.String(), "05/09/2014")
			} else {
				assert.Empty(t, logs.String())
			}
		})
	}
}
