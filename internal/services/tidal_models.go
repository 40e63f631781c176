package services

import (
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"time"

	"maxtrack/internal/models"
)

// tidalTime parses the catalog's timestamp formats, which are not always
// RFC 3339 ("2014-09-05T00:00:00.000+0000", "2014-09-08")
type tidalTime struct {
	time.Time
}

var tidalTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006-01-02T15:04:05-0700",
	"2006-01-02",
}

func (t *tidalTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s == "" {
		return nil
	}
	for _, layout := range tidalTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	// Left zero, so the item loses every recency comparison
	slog.Debug("Unrecognized catalog timestamp", "value", s)
	return nil
}

// TidalArtistRef is an artist reference embedded in v1 catalog objects
type TidalArtistRef struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
	Type string      `json:"type,omitempty"`
}

// TidalAlbumRef is the album reference embedded in a v1 track
type TidalAlbumRef struct {
	ID    json.Number `json:"id"`
	Title string      `json:"title"`
	Cover string      `json:"cover,omitempty"`
}

// TidalMediaItem is a v1 catalog track or video
type TidalMediaItem struct {
	ID              json.Number      `json:"id"`
	Title           string           `json:"title"`
	Version         string           `json:"version,omitempty"`
	Duration        int              `json:"duration"`
	TrackNumber     int              `json:"trackNumber"`
	VolumeNumber    int              `json:"volumeNumber"`
	ISRC            string           `json:"isrc,omitempty"`
	StreamStartDate tidalTime        `json:"streamStartDate"`
	AudioQuality    string           `json:"audioQuality,omitempty"`
	Quality         string           `json:"quality,omitempty"` // videos
	Artists         []TidalArtistRef `json:"artists"`
	Album           *TidalAlbumRef   `json:"album,omitempty"`
	MediaMetadata   struct {
		Tags []string `json:"tags"`
	} `json:"mediaMetadata"`
}

// ToMediaItem converts a catalog object into the host representation
func (t *TidalMediaItem) ToMediaItem(kind models.MediaKind) *models.MediaItem {
	item := &models.MediaItem{
		ID:              t.ID.String(),
		Kind:            kind,
		Title:           t.Title,
		Version:         t.Version,
		ISRC:            t.ISRC,
		TrackNumber:     t.TrackNumber,
		VolumeNumber:    t.VolumeNumber,
		Duration:        t.Duration,
		StreamStartDate: t.StreamStartDate.Time,
		AudioQuality:    models.AudioQuality(t.AudioQuality),
		MediaMetadata:   models.MediaMetadata{Tags: t.MediaMetadata.Tags},
	}
	for _, artist := range t.Artists {
		if artist.Name != "" {
			item.Artists = append(item.Artists, artist.Name)
		}
	}
	if t.Album != nil {
		item.AlbumID = t.Album.ID.String()
		item.AlbumTitle = t.Album.Title
	}
	return item
}

// TidalAlbum is a v1 catalog album
type TidalAlbum struct {
	ID              json.Number      `json:"id"`
	Title           string           `json:"title"`
	UPC             string           `json:"upc,omitempty"`
	NumberOfTracks  int              `json:"numberOfTracks"`
	NumberOfVolumes int              `json:"numberOfVolumes"`
	ReleaseDate     tidalTime        `json:"releaseDate"`
	Cover           string           `json:"cover,omitempty"`
	Artists         []TidalArtistRef `json:"artists"`
}

// ToAlbum converts a catalog album into the host representation
func (t *TidalAlbum) ToAlbum() *models.Album {
	album := &models.Album{
		ID:              t.ID.String(),
		Title:           t.Title,
		UPC:             t.UPC,
		NumberOfTracks:  t.NumberOfTracks,
		NumberOfVolumes: t.NumberOfVolumes,
		ReleaseDate:     t.ReleaseDate.Time,
		CoverURL:        coverIDToURL(t.Cover),
	}
	for _, artist := range t.Artists {
		if artist.Name != "" {
			album.Artists = append(album.Artists, artist.Name)
		}
	}
	return album
}

// TidalTrackResource is a track in the v2 JSON:API catalog
type TidalTrackResource struct {
	ID string `jsonapi:"primary,tracks"`

	Title     string   `jsonapi:"attr,title"`
	Version   string   `jsonapi:"attr,version"`
	ISRC      string   `jsonapi:"attr,isrc"`
	Duration  string   `jsonapi:"attr,duration"` // ISO 8601 duration
	Explicit  bool     `jsonapi:"attr,explicit"`
	MediaTags []string `jsonapi:"attr,mediaTags"`
}

// HasHiRes reports whether the search result carries the top quality tag.
// Search results list tags under attributes.mediaTags, unlike the host
// representation's mediaMetadata.tags.
func (r *TidalTrackResource) HasHiRes() bool {
	if r == nil {
		return false
	}
	return slices.Contains(r.MediaTags, models.TagHiResLossless)
}

// TidalAPIError represents an error response from the Tidal API
type TidalAPIError struct {
	Status      int    `json:"status"`
	SubStatus   int    `json:"subStatus,omitempty"`
	UserMessage string `json:"userMessage,omitempty"`
}

// coverIDToURL constructs a standard artwork URL from a cover ID.
// Cover IDs come dash-separated and map to path segments.
func coverIDToURL(cover string) string {
	if cover == "" {
		return ""
	}
	return "https://resources.tidal.com/images/" + strings.ReplaceAll(strings.TrimLeft(cover, "/"), "-", "/") + "/640x640.jpg"
}
