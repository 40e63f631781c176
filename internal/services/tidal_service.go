package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2/clientcredentials"

	"maxtrack/internal/config"
	"maxtrack/internal/models"
)

// TidalService is the host catalog client: v1 for entities and lyrics,
// v2 JSON:API for ISRC search
type TidalService struct {
	client      *resty.Client
	apiURL      string
	openAPIURL  string
	countryCode string
	tokenSource *clientcredentials.Config
	accessToken string
	tokenExpiry time.Time
	mu          sync.RWMutex

	maxSearchPages int
}

// NewTidalService creates a new Tidal service instance
func NewTidalService(cfg *config.PlatformConfig) (*TidalService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tidal configuration is required")
	}
	if cfg.AuthMethod != config.AuthMethodOAuth2 {
		return nil, fmt.Errorf("tidal requires OAuth2 authentication, got %s", cfg.AuthMethod)
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	countryCode := cfg.ExtraConfig["country_code"]
	if countryCode == "" {
		countryCode = "US"
	}

	return &TidalService{
		client:      client,
		apiURL:      strings.TrimRight(cfg.BaseURL, "/"),
		openAPIURL:  strings.TrimRight(cfg.ExtraConfig["openapi_url"], "/"),
		countryCode: countryCode,
		tokenSource: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		},
	}, nil
}

// SetMaxSearchPages bounds how many search pages one cursor may read, 0 = no limit
func (t *TidalService) SetMaxSearchPages(n int) {
	t.maxSearchPages = n
}

// GetPlatformName returns the platform name
func (t *TidalService) GetPlatformName() string {
	return "tidal"
}

// GetMediaItem fetches a track or video from the v1 catalog
func (t *TidalService) GetMediaItem(ctx context.Context, id string, kind models.MediaKind) (*models.MediaItem, error) {
	path := "/tracks/" + url.PathEscape(id)
	if kind == models.KindVideo {
		path = "/videos/" + url.PathEscape(id)
	}

	var item TidalMediaItem
	if err := t.getV1(ctx, "get_"+string(kind), path, &item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = json.Number(id)
	}
	return item.ToMediaItem(kind), nil
}

// GetAlbum fetches an album from the v1 catalog
func (t *TidalService) GetAlbum(ctx context.Context, id string) (*models.Album, error) {
	var album TidalAlbum
	if err := t.getV1(ctx, "get_album", "/albums/"+url.PathEscape(id), &album); err != nil {
		return nil, err
	}
	if album.ID == "" {
		album.ID = json.Number(id)
	}
	return album.ToAlbum(), nil
}

// FetchLyrics fetches the lyrics payload for a track
func (t *TidalService) FetchLyrics(ctx context.Context, trackID string) (*models.Lyrics, error) {
	body, err := t.getV1Raw(ctx, "get_lyrics", "/tracks/"+url.PathEscape(trackID)+"/lyrics")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, &PlatformError{
			Platform:  "tidal",
			Operation: "get_lyrics",
			Message:   "invalid JSON in lyrics response",
		}
	}

	doc := gjson.ParseBytes(body)
	lyrics := &models.Lyrics{
		TrackID:       trackID,
		Provider:      doc.Get("lyricsProvider").String(),
		Lyrics:        doc.Get("lyrics").String(),
		Subtitles:     doc.Get("subtitles").String(),
		IsRightToLeft: doc.Get("isRightToLeft").Bool(),
	}
	if lyrics.Lyrics == "" && lyrics.Subtitles == "" {
		return nil, &PlatformError{
			Platform:  "tidal",
			Operation: "get_lyrics",
			Message:   "empty lyrics payload",
			Err:       ErrNotFound,
		}
	}
	return lyrics, nil
}

// SearchByISRC returns a lazy cursor over catalog tracks sharing isrc.
// No request is made until the first call to Next.
func (t *TidalService) SearchByISRC(isrc string) *ISRCCursor {
	params := url.Values{
		"countryCode":  {t.countryCode},
		"filter[isrc]": {isrc},
	}
	return &ISRCCursor{
		fetch:    t.fetchSearchPage,
		isrc:     isrc,
		next:     t.openAPIURL + "/tracks?" + params.Encode(),
		maxPages: t.maxSearchPages,
	}
}

// Health checks that credentials are accepted
func (t *TidalService) Health(ctx context.Context) error {
	_, err := t.token(ctx)
	return err
}

func (t *TidalService) getV1(ctx context.Context, operation, path string, result interface{}) error {
	body, err := t.getV1Raw(ctx, operation, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return &PlatformError{
			Platform:  "tidal",
			Operation: operation,
			Message:   "failed to parse response",
			Err:       err,
		}
	}
	return nil
}

func (t *TidalService) getV1Raw(ctx context.Context, operation, path string) ([]byte, error) {
	req, err := t.request(ctx)
	if err != nil {
		return nil, err
	}

	requestURL := t.apiURL + path
	resp, err := req.
		SetQueryParam("countryCode", t.countryCode).
		Get(requestURL)
	if err != nil {
		return nil, &PlatformError{
			Platform:  "tidal",
			Operation: operation,
			Message:   "request failed",
			URL:       requestURL,
			Err:       err,
		}
	}
	if err := checkTidalStatus(resp, operation, requestURL); err != nil {
		return nil, err
	}
	return resp.Body(), nil
}

// fetchSearchPage reads one JSON:API page and returns its records and the
// absolute URL of the following page, empty when there is none
func (t *TidalService) fetchSearchPage(ctx context.Context, pageURL string) ([]SearchRecord, string, error) {
	req, err := t.request(ctx)
	if err != nil {
		return nil, "", err
	}

	resp, err := req.
		SetHeader("Accept", "application/vnd.api+json").
		Get(pageURL)
	if err != nil {
		return nil, "", &PlatformError{
			Platform:  "tidal",
			Operation: "search_isrc",
			Message:   "request failed",
			URL:       pageURL,
			Err:       err,
		}
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, "", nil
	}
	if err := checkTidalStatus(resp, "search_isrc", pageURL); err != nil {
		return nil, "", err
	}

	records, next, err := decodeSearchPage(resp.Body())
	if err != nil {
		return nil, "", &PlatformError{
			Platform:  "tidal",
			Operation: "search_isrc",
			Message:   "failed to decode search page",
			URL:       pageURL,
			Err:       err,
		}
	}
	return records, t.resolveLink(next), nil
}

// resolveLink turns a JSON:API pagination link into an absolute URL
func (t *TidalService) resolveLink(link string) string {
	if link == "" || strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return t.openAPIURL + "/" + strings.TrimLeft(link, "/")
}

func (t *TidalService) request(ctx context.Context) (*resty.Request, error) {
	token, err := t.token(ctx)
	if err != nil {
		return nil, err
	}
	return t.client.R().SetContext(ctx).SetAuthToken(token), nil
}

// token returns a valid access token, refreshing it when expired
func (t *TidalService) token(ctx context.Context) (string, error) {
	t.mu.RLock()
	if t.accessToken != "" && time.Now().Before(t.tokenExpiry) {
		token := t.accessToken
		t.mu.RUnlock()
		return token, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring write lock
	if t.accessToken != "" && time.Now().Before(t.tokenExpiry) {
		return t.accessToken, nil
	}

	token, err := t.tokenSource.Token(ctx)
	if err != nil {
		return "", &PlatformError{
			Platform:  "tidal",
			Operation: "auth",
			Message:   "failed to get access token",
			Err:       err,
		}
	}

	t.accessToken = token.AccessToken
	t.tokenExpiry = token.Expiry
	if t.tokenExpiry.IsZero() {
		t.tokenExpiry = time.Now().Add(time.Hour)
	}

	slog.Info("Tidal access token refreshed", "expires_at", t.tokenExpiry)

	return t.accessToken, nil
}

func checkTidalStatus(resp *resty.Response, operation, requestURL string) error {
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return &PlatformError{
			Platform:  "tidal",
			Operation: operation,
			Message:   "not found",
			URL:       requestURL,
			Err:       ErrNotFound,
		}
	case resp.StatusCode() >= 400:
		message := fmt.Sprintf("API returned status %d", resp.StatusCode())
		var apiErr TidalAPIError
		if err := json.Unmarshal(resp.Body(), &apiErr); err == nil && apiErr.UserMessage != "" {
			message += ": " + apiErr.UserMessage
		}
		return &PlatformError{
			Platform:  "tidal",
			Operation: operation,
			Message:   message,
			URL:       requestURL,
		}
	}
	return nil
}
