package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"maxtrack/internal/cache"
)

// ErrNotFound is returned when a platform authoritatively reports that an
// entity does not exist. It satisfies errors.Is(err, cache.ErrNotFound) so
// memoizing callers settle it as a terminal negative.
var ErrNotFound = fmt.Errorf("platform: %w", cache.ErrNotFound)

// IsNotFound reports whether err carries an authoritative absence
func IsNotFound(err error) bool {
	return errors.Is(err, cache.ErrNotFound)
}

// EntityType is the kind of catalog entity a URL refers to
type EntityType string

const (
	EntityTrack EntityType = "track"
	EntityVideo EntityType = "video"
	EntityAlbum EntityType = "album"
)

// URLPattern represents a URL pattern for parsing platform URLs
type URLPattern struct {
	Regex       *regexp.Regexp
	Platform    string
	Entity      EntityType
	IDIndex     int      // Index of the ID capture group
	Description string   // Human-readable description of the pattern
	Examples    []string // Example URLs this pattern should match
}

// URLPatternRegistry manages URL patterns for all platforms
type URLPatternRegistry struct {
	patterns []URLPattern
	mu       sync.RWMutex
}

// NewURLPatternRegistry creates a registry preloaded with the Tidal patterns
func NewURLPatternRegistry() *URLPatternRegistry {
	return &URLPatternRegistry{
		patterns: []URLPattern{
			{
				Regex:       regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:listen\.)?tidal\.com/(?:browse/)?track/(\d+)`),
				Platform:    "tidal",
				Entity:      EntityTrack,
				IDIndex:     1,
				Description: "Tidal track URLs",
				Examples: []string{
					"https://tidal.com/browse/track/77646168",
					"https://tidal.com/track/77646168",
					"https://listen.tidal.com/track/77646168",
				},
			},
			{
				Regex:       regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:listen\.)?tidal\.com/.*[?&]trackId=(\d+)`),
				Platform:    "tidal",
				Entity:      EntityTrack,
				IDIndex:     1,
				Description: "Tidal album URLs with track ID parameter",
				Examples: []string{
					"https://tidal.com/browse/album/77646164?play=true&trackId=77646168",
				},
			},
			{
				Regex:       regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:listen\.)?tidal\.com/(?:browse/)?video/(\d+)`),
				Platform:    "tidal",
				Entity:      EntityVideo,
				IDIndex:     1,
				Description: "Tidal video URLs",
				Examples: []string{
					"https://tidal.com/browse/video/98785108",
				},
			},
			{
				Regex:       regexp.MustCompile(`(?:https?://)?(?:www\.)?(?:listen\.)?tidal\.com/(?:browse/)?album/(\d+)`),
				Platform:    "tidal",
				Entity:      EntityAlbum,
				IDIndex:     1,
				Description: "Tidal album URLs",
				Examples: []string{
					"https://tidal.com/browse/album/77646164",
				},
			},
		},
	}
}

// RegisterURLPattern adds a new URL pattern to the registry
func (r *URLPatternRegistry) RegisterURLPattern(pattern URLPattern) error {
	if pattern.Regex == nil {
		return fmt.Errorf("regex cannot be nil")
	}
	if pattern.Platform == "" {
		return fmt.Errorf("platform name cannot be empty")
	}
	if pattern.IDIndex < 1 {
		return fmt.Errorf("idIndex must be >= 1 (capture group index)")
	}
	if err := ValidatePattern(pattern); err != nil {
		return fmt.Errorf("pattern validation failed: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
	return nil
}

// GetPatterns returns a copy of all registered patterns
func (r *URLPatternRegistry) GetPatterns() []URLPattern {
	r.mu.RLock()
	defer r.mu.RUnlock()

	patterns := make([]URLPattern, len(r.patterns))
	copy(patterns, r.patterns)
	return patterns
}

// ValidatePattern tests a URL pattern against its example URLs
func ValidatePattern(pattern URLPattern) error {
	for _, example := range pattern.Examples {
		matches := pattern.Regex.FindStringSubmatch(example)
		if len(matches) <= pattern.IDIndex {
			return fmt.Errorf("pattern failed to match example URL: %s", example)
		}
		if matches[pattern.IDIndex] == "" {
			return fmt.Errorf("pattern matched but captured empty ID for URL: %s", example)
		}
	}
	return nil
}

// Parse resolves a URL to its entity type and ID. Patterns are tried in
// registration order so query-parameter track links win over the album path.
func (r *URLPatternRegistry) Parse(rawURL string) (EntityType, string, error) {
	for _, pattern := range r.GetPatterns() {
		matches := pattern.Regex.FindStringSubmatch(rawURL)
		if len(matches) > pattern.IDIndex {
			return pattern.Entity, matches[pattern.IDIndex], nil
		}
	}

	return "", "", &PlatformError{
		Platform:  "unknown",
		Operation: "parse_url",
		Message:   "unsupported platform URL",
		URL:       rawURL,
	}
}

// ParseItemReference accepts either a bare numeric ID or a catalog URL
func (r *URLPatternRegistry) ParseItemReference(ref string) (EntityType, string, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" && strings.Trim(ref, "0123456789") == "" {
		return EntityTrack, ref, nil
	}
	return r.Parse(ref)
}

// PlatformError represents an error from a platform service
type PlatformError struct {
	Platform  string
	Operation string
	Message   string
	URL       string
	Err       error
}

func (e *PlatformError) Error() string {
	msg := e.Platform + " " + e.Operation + " failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.URL != "" {
		msg += " (URL: " + e.URL + ")"
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}
