package models

import (
	"slices"
	"time"
)

// MediaKind distinguishes the two kinds of playable catalog items
type MediaKind string

const (
	KindTrack MediaKind = "track"
	KindVideo MediaKind = "video"
)

// ParseMediaKind maps user input to a MediaKind, defaulting to tracks
func ParseMediaKind(s string) MediaKind {
	if MediaKind(s) == KindVideo {
		return KindVideo
	}
	return KindTrack
}

// Media metadata tags as reported by the catalog
const (
	TagHiResLossless = "HIRES_LOSSLESS"
	TagLossless      = "LOSSLESS"
	TagMQA           = "MQA"
	TagDolbyAtmos    = "DOLBY_ATMOS"
	TagSony360RA     = "SONY_360RA"
)

// AudioQuality is the streaming quality tier of a track
type AudioQuality string

const (
	AudioQualityHiRes    AudioQuality = "HI_RES_LOSSLESS"
	AudioQualityMQA      AudioQuality = "HI_RES"
	AudioQualityLossless AudioQuality = "LOSSLESS"
	AudioQualityHigh     AudioQuality = "HIGH"
	AudioQualityLow      AudioQuality = "LOW"
)

// MediaItem is a track or video as known to the host catalog
type MediaItem struct {
	ID      string    `bson:"id" json:"id"`
	Kind    MediaKind `bson:"kind" json:"kind"`
	Title   string    `bson:"title" json:"title"`
	Version string    `bson:"version,omitempty" json:"version,omitempty"`
	Artists []string  `bson:"artists,omitempty" json:"artists,omitempty"`

	// ISRC is the item's own alternate identifier, empty when unknown
	ISRC string `bson:"isrc,omitempty" json:"isrc,omitempty"`

	// Position on the album, 1-based; zero when unknown
	TrackNumber  int `bson:"track_number,omitempty" json:"track_number,omitempty"`
	VolumeNumber int `bson:"volume_number,omitempty" json:"volume_number,omitempty"`

	AlbumID    string `bson:"album_id,omitempty" json:"album_id,omitempty"`
	AlbumTitle string `bson:"album_title,omitempty" json:"album_title,omitempty"`

	Duration        int           `bson:"duration,omitempty" json:"duration,omitempty"` // seconds
	StreamStartDate time.Time     `bson:"stream_start_date,omitempty" json:"stream_start_date,omitempty"`
	AudioQuality    AudioQuality  `bson:"audio_quality,omitempty" json:"audio_quality,omitempty"`
	MediaMetadata   MediaMetadata `bson:"media_metadata" json:"media_metadata"`
}

// MediaMetadata carries the catalog's quality tags
type MediaMetadata struct {
	Tags []string `bson:"tags,omitempty" json:"tags,omitempty"`
}

// IsTrack reports whether the item is an audio track
func (m *MediaItem) IsTrack() bool {
	return m.Kind == KindTrack
}

// HasTag reports whether the item's media metadata carries tag
func (m *MediaItem) HasTag(tag string) bool {
	return slices.Contains(m.MediaMetadata.Tags, tag)
}

// HasHiRes reports whether the item carries the top quality tag
func (m *MediaItem) HasHiRes() bool {
	if m == nil {
		return false
	}
	return m.HasTag(TagHiResLossless)
}

// TrackPosition returns the 1-based volume and track numbers, defaulting
// unknown values to 1
func (m *MediaItem) TrackPosition() (volume, track int) {
	volume, track = m.VolumeNumber, m.TrackNumber
	if volume < 1 {
		volume = 1
	}
	if track < 1 {
		track = 1
	}
	return volume, track
}

// QualityTags returns the display tags for an item, highest tier first.
// The audio quality tier is used when media metadata carries no tags.
func QualityTags(m *MediaItem) []string {
	if m == nil {
		return nil
	}

	order := []string{TagHiResLossless, TagMQA, TagLossless, TagDolbyAtmos, TagSony360RA}
	tags := make([]string, 0, len(order))
	for _, tag := range order {
		if m.HasTag(tag) {
			tags = append(tags, tag)
		}
	}

	if len(tags) == 0 {
		switch m.AudioQuality {
		case AudioQualityHiRes:
			tags = append(tags, TagHiResLossless)
		case AudioQualityMQA:
			tags = append(tags, TagMQA)
		case AudioQualityLossless:
			tags = append(tags, TagLossless)
		}
	}

	return tags
}

// Album is an album as known to the host catalog
type Album struct {
	ID              string    `bson:"_id" json:"id"`
	Title           string    `bson:"title" json:"title"`
	Artists         []string  `bson:"artists,omitempty" json:"artists,omitempty"`
	UPC             string    `bson:"upc,omitempty" json:"upc,omitempty"`
	NumberOfTracks  int       `bson:"number_of_tracks,omitempty" json:"number_of_tracks,omitempty"`
	NumberOfVolumes int       `bson:"number_of_volumes,omitempty" json:"number_of_volumes,omitempty"`
	ReleaseDate     time.Time `bson:"release_date,omitempty" json:"release_date,omitempty"`
	CoverURL        string    `bson:"cover_url,omitempty" json:"cover_url,omitempty"`
}

// Lyrics is the lyrics payload delivered by the host for a track
type Lyrics struct {
	TrackID       string `json:"track_id"`
	Provider      string `json:"provider,omitempty"`
	Lyrics        string `json:"lyrics,omitempty"`
	Subtitles     string `json:"subtitles,omitempty"`
	IsRightToLeft bool   `json:"is_right_to_left,omitempty"`
}

// Synced reports whether time-synced subtitles are present
func (l *Lyrics) Synced() bool {
	return l != nil && l.Subtitles != ""
}
