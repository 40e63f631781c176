package testutil

import (
	"time"

	"maxtrack/internal/models"
)

// MediaItemBuilder provides a fluent interface for creating test tracks
type MediaItemBuilder struct {
	item *models.MediaItem
}

// NewMediaItemBuilder creates a new builder for a lossless track
func NewMediaItemBuilder() *MediaItemBuilder {
	return &MediaItemBuilder{
		item: &models.MediaItem{
			ID:            TestTrackID1,
			Kind:          models.KindTrack,
			Title:         "Test Track",
			Artists:       []string{"Test Artist"},
			TrackNumber:   1,
			VolumeNumber:  1,
			Duration:      240,
			AudioQuality:  models.AudioQualityLossless,
			MediaMetadata: models.MediaMetadata{Tags: []string{models.TagLossless}},
		},
	}
}

// WithID sets the catalog ID
func (b *MediaItemBuilder) WithID(id string) *MediaItemBuilder {
	b.item.ID = id
	return b
}

// AsVideo marks the item as a video
func (b *MediaItemBuilder) AsVideo() *MediaItemBuilder {
	b.item.Kind = models.KindVideo
	return b
}

// WithTitle sets the title
func (b *MediaItemBuilder) WithTitle(title string) *MediaItemBuilder {
	b.item.Title = title
	return b
}

// WithArtists sets the artists
func (b *MediaItemBuilder) WithArtists(artists ...string) *MediaItemBuilder {
	b.item.Artists = artists
	return b
}

// WithISRC sets the ISRC code
func (b *MediaItemBuilder) WithISRC(isrc string) *MediaItemBuilder {
	b.item.ISRC = isrc
	return b
}

// WithAlbum sets the album reference
func (b *MediaItemBuilder) WithAlbum(id, title string) *MediaItemBuilder {
	b.item.AlbumID = id
	b.item.AlbumTitle = title
	return b
}

// WithPosition sets the disc and track number
func (b *MediaItemBuilder) WithPosition(volume, track int) *MediaItemBuilder {
	b.item.VolumeNumber = volume
	b.item.TrackNumber = track
	return b
}

// WithStreamStart sets the date the track became streamable
func (b *MediaItemBuilder) WithStreamStart(date time.Time) *MediaItemBuilder {
	b.item.StreamStartDate = date
	return b
}

// WithHiRes tags the track as hi-res lossless
func (b *MediaItemBuilder) WithHiRes() *MediaItemBuilder {
	b.item.AudioQuality = models.AudioQualityHiRes
	b.item.MediaMetadata.Tags = []string{models.TagLossless, models.TagHiResLossless}
	return b
}

// WithTags replaces the media metadata tags
func (b *MediaItemBuilder) WithTags(tags ...string) *MediaItemBuilder {
	b.item.MediaMetadata.Tags = tags
	return b
}

// Build returns the built item
func (b *MediaItemBuilder) Build() *models.MediaItem {
	return b.item
}

// AlbumBuilder provides a fluent interface for creating test albums
type AlbumBuilder struct {
	album *models.Album
}

// NewAlbumBuilder creates a new album builder with default values
func NewAlbumBuilder() *AlbumBuilder {
	return &AlbumBuilder{
		album: &models.Album{
			ID:              TestAlbumID,
			Title:           "Test Album",
			Artists:         []string{"Test Artist"},
			NumberOfTracks:  12,
			NumberOfVolumes: 1,
		},
	}
}

// WithID sets the album ID
func (b *AlbumBuilder) WithID(id string) *AlbumBuilder {
	b.album.ID = id
	return b
}

// WithTitle sets the album title
func (b *AlbumBuilder) WithTitle(title string) *AlbumBuilder {
	b.album.Title = title
	return b
}

// WithUPC sets the barcode
func (b *AlbumBuilder) WithUPC(upc string) *AlbumBuilder {
	b.album.UPC = upc
	return b
}

// WithTrackCount sets the number of tracks and discs
func (b *AlbumBuilder) WithTrackCount(tracks, volumes int) *AlbumBuilder {
	b.album.NumberOfTracks = tracks
	b.album.NumberOfVolumes = volumes
	return b
}

// Build returns the built album
func (b *AlbumBuilder) Build() *models.Album {
	return b.album
}

// Common test data
const (
	TestTrackID1 = "77646169"
	TestTrackID2 = "77646170"
	TestVideoID  = "98785108"
	TestAlbumID  = "77646164"

	TestISRC1 = "GBUM71029604"
	TestISRC2 = "GBUM71029605"
	TestUPC   = "00602547202307"

	TestTrackURL = "https://tidal.com/browse/track/" + TestTrackID1
)

// CreateTestTrack creates the lossless track most tests start from
func CreateTestTrack() *models.MediaItem {
	return NewMediaItemBuilder().
		WithTitle("Bohemian Rhapsody").
		WithArtists("Queen").
		WithISRC(TestISRC1).
		WithAlbum(TestAlbumID, "A Night At The Opera").
		WithPosition(1, 11).
		WithStreamStart(time.Date(2017, 3, 1, 0, 0, 0, 0, time.UTC)).
		Build()
}

// CreateTestAlbum creates the album of CreateTestTrack
func CreateTestAlbum() *models.Album {
	return NewAlbumBuilder().
		WithTitle("A Night At The Opera").
		WithUPC(TestUPC).
		Build()
}
