package render

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"maxtrack/internal/cache"
	"maxtrack/internal/models"
	"maxtrack/internal/services"
)

const dateLayout = "2006-01-02"

// TrackResponse is a track or video with its display quality tags
type TrackResponse struct {
	ID              string   `json:"id"`
	Kind            string   `json:"kind"`
	Title           string   `json:"title"`
	Version         string   `json:"version,omitempty"`
	Artists         []string `json:"artists"`
	ISRC            string   `json:"isrc,omitempty"`
	AlbumID         string   `json:"album_id,omitempty"`
	Album           string   `json:"album,omitempty"`
	VolumeNumber    int      `json:"volume_number,omitempty"`
	TrackNumber     int      `json:"track_number,omitempty"`
	DurationSeconds int      `json:"duration_seconds,omitempty"`
	StreamStartDate string   `json:"stream_start_date,omitempty"`
	AudioQuality    string   `json:"audio_quality,omitempty"`
	QualityTags     []string `json:"quality_tags"`
	HiRes           bool     `json:"hi_res"`
}

// AlbumResponse is an album as known to the catalog
type AlbumResponse struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Artists         []string `json:"artists"`
	UPC             string   `json:"upc,omitempty"`
	NumberOfTracks  int      `json:"number_of_tracks,omitempty"`
	NumberOfVolumes int      `json:"number_of_volumes,omitempty"`
	ReleaseDate     string   `json:"release_date,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
}

// ReleaseMatch is the external release matched to a track's album
type ReleaseMatch struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Language string `json:"language,omitempty"`
	Country  string `json:"country,omitempty"`
	Date     string `json:"date,omitempty"`
	Barcode  string `json:"barcode,omitempty"`
}

// TrackMatch is the external release track matched to a track
type TrackMatch struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Position    int      `json:"position,omitempty"`
	RecordingID string   `json:"recording_id,omitempty"`
	ISRCs       []string `json:"isrcs,omitempty"`
}

// EnrichmentResponse aggregates cross-source identity facts for a track
type EnrichmentResponse struct {
	Track        TrackResponse `json:"track"`
	ISRCs        []string      `json:"isrcs"`
	Release      *ReleaseMatch `json:"release,omitempty"`
	ReleaseTrack *TrackMatch   `json:"release_track,omitempty"`
	HasLyrics    bool          `json:"has_lyrics"`
	SyncedLyrics bool          `json:"synced_lyrics"`
}

// EquivalentResponse is the answer to a best-equivalent query
type EquivalentResponse struct {
	SourceID   string        `json:"source_id"`
	Query      string        `json:"query"`
	Equivalent TrackResponse `json:"equivalent"`
}

// Track converts a media item for responses
func Track(item *models.MediaItem) TrackResponse {
	resp := TrackResponse{
		ID:              item.ID,
		Kind:            string(item.Kind),
		Title:           item.Title,
		Version:         item.Version,
		Artists:         item.Artists,
		ISRC:            item.ISRC,
		AlbumID:         item.AlbumID,
		Album:           item.AlbumTitle,
		VolumeNumber:    item.VolumeNumber,
		TrackNumber:     item.TrackNumber,
		DurationSeconds: item.Duration,
		AudioQuality:    string(item.AudioQuality),
		QualityTags:     models.QualityTags(item),
		HiRes:           item.HasHiRes(),
	}
	if resp.Artists == nil {
		resp.Artists = []string{}
	}
	if resp.QualityTags == nil {
		resp.QualityTags = []string{}
	}
	if !item.StreamStartDate.IsZero() {
		resp.StreamStartDate = item.StreamStartDate.Format(dateLayout)
	}
	return resp
}

// Album converts an album for responses
func Album(album *models.Album) AlbumResponse {
	resp := AlbumResponse{
		ID:              album.ID,
		Title:           album.Title,
		Artists:         album.Artists,
		UPC:             album.UPC,
		NumberOfTracks:  album.NumberOfTracks,
		NumberOfVolumes: album.NumberOfVolumes,
		ImageURL:        album.CoverURL,
	}
	if resp.Artists == nil {
		resp.Artists = []string{}
	}
	if !album.ReleaseDate.IsZero() {
		resp.ReleaseDate = album.ReleaseDate.Format(dateLayout)
	}
	return resp
}

// Release converts a matched release, nil when there is none
func Release(release *services.MBRelease) *ReleaseMatch {
	if release == nil {
		return nil
	}
	return &ReleaseMatch{
		ID:       release.ID,
		Title:    release.Title,
		Language: release.Language(),
		Country:  release.Country,
		Date:     release.Date,
		Barcode:  release.Barcode,
	}
}

// ReleaseTrack converts a matched release track, nil when there is none
func ReleaseTrack(track *services.MBTrack) *TrackMatch {
	if track == nil {
		return nil
	}
	match := &TrackMatch{
		ID:       track.ID,
		Title:    track.Title,
		Position: track.Position,
	}
	if track.Recording != nil {
		match.RecordingID = track.Recording.ID
		match.ISRCs = track.Recording.ISRCs
		if match.Title == "" {
			match.Title = track.Recording.Title
		}
	}
	return match
}

// Error writes an error response. Absent entities map to 404 and upstream
// failures to 502.
func Error(c *gin.Context, message string, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, cache.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled):
		status = 499
	default:
		slog.Error(message, "path", c.Request.URL.Path, "error", err)
	}

	body := gin.H{"error": message}
	if status != http.StatusNotFound {
		body["details"] = err.Error()
	}
	c.JSON(status, body)
}

// Equivalent writes the answer to a best-equivalent query, 204 when there
// is none
func Equivalent(c *gin.Context, sourceID, query string, item *models.MediaItem) {
	if item == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, EquivalentResponse{
		SourceID:   sourceID,
		Query:      query,
		Equivalent: Track(item),
	})
}
