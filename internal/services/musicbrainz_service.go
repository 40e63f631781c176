package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"maxtrack/internal/config"
)

// MusicBrainzService queries the MusicBrainz web service for releases and
// recordings. Every lookup goes through a URL-caching JSONRequester, so
// repeated identical queries are cheap.
type MusicBrainzService struct {
	requester *JSONRequester
	baseURL   string
}

// NewMusicBrainzService creates a client for the configured endpoint
func NewMusicBrainzService(cfg *config.PlatformConfig, requester *JSONRequester) (*MusicBrainzService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("musicbrainz configuration is required")
	}
	if requester == nil {
		return nil, fmt.Errorf("musicbrainz requires a requester")
	}
	return &MusicBrainzService{
		requester: requester,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// GetPlatformName returns the platform name
func (m *MusicBrainzService) GetPlatformName() string {
	return "musicbrainz"
}

// ReleasesByBarcode searches releases carrying a UPC/EAN barcode
func (m *MusicBrainzService) ReleasesByBarcode(ctx context.Context, barcode string) ([]MBRelease, error) {
	if barcode == "" {
		return nil, &PlatformError{Platform: "musicbrainz", Operation: "barcode_releases", Message: "barcode cannot be empty"}
	}

	u := fmt.Sprintf("%s/release/?query=%s&fmt=json", m.baseURL, url.QueryEscape("barcode:"+barcode))
	var result MBReleaseSearch
	if err := m.requester.GetJSON(ctx, "barcode_releases", u, &result); err != nil {
		return nil, err
	}
	return result.Releases, nil
}

// RecordingsByISRC looks up recordings registered under an ISRC
func (m *MusicBrainzService) RecordingsByISRC(ctx context.Context, isrc string) ([]MBRecording, error) {
	if isrc == "" {
		return nil, &PlatformError{Platform: "musicbrainz", Operation: "isrc_recordings", Message: "ISRC cannot be empty"}
	}

	u := fmt.Sprintf("%s/isrc/%s?inc=isrcs&fmt=json", m.baseURL, url.PathEscape(isrc))
	var result MBISRCLookup
	if err := m.requester.GetJSON(ctx, "isrc_recordings", u, &result); err != nil {
		return nil, err
	}
	return result.Recordings, nil
}

// Recording fetches a recording with its releases, media and ISRCs
func (m *MusicBrainzService) Recording(ctx context.Context, id string) (*MBRecording, error) {
	u := fmt.Sprintf("%s/recording/%s?inc=releases+media+artist-credits+isrcs&fmt=json", m.baseURL, url.PathEscape(id))
	var recording MBRecording
	if err := m.requester.GetJSON(ctx, "recording", u, &recording); err != nil {
		return nil, err
	}
	return &recording, nil
}

// Release fetches a release with its tracklist, recordings and ISRCs
func (m *MusicBrainzService) Release(ctx context.Context, id string) (*MBRelease, error) {
	u := fmt.Sprintf("%s/release/%s?inc=recordings+isrcs+artist-credits&fmt=json", m.baseURL, url.PathEscape(id))
	var release MBRelease
	if err := m.requester.GetJSON(ctx, "release", u, &release); err != nil {
		return nil, err
	}
	return &release, nil
}
