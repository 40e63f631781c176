package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// MatchingConfig holds tunables for cross-source identity matching
type MatchingConfig struct {
	// Release language preferred when a recording appears on several releases
	PreferredLanguage string `toml:"preferred_language"`

	// Reject barcode matches whose disc track count disagrees with the album.
	// Pointer so an explicit false in the file survives the merge.
	CheckTrackCount *bool `toml:"check_track_count"`

	// Upper bound on catalog search pages read per identifier, 0 = no limit
	MaxSearchPages int `toml:"max_search_pages"`
}

// DefaultMatchingConfig returns hard-coded defaults
func DefaultMatchingConfig() *MatchingConfig {
	check := true
	return &MatchingConfig{
		PreferredLanguage: "eng",
		CheckTrackCount:   &check,
		MaxSearchPages:    0,
	}
}

// TrackCountCheck reports whether the barcode track-count validation is on
func (m *MatchingConfig) TrackCountCheck() bool {
	return m == nil || m.CheckTrackCount == nil || *m.CheckTrackCount
}

// LoadMatchingConfig loads matching tunables from TOML. When path is empty
// the well-known locations are tried in order. A missing file yields the
// defaults; a malformed one is an error.
func LoadMatchingConfig(path string) (*MatchingConfig, error) {
	cfg := DefaultMatchingConfig()

	paths := []string{path}
	if path == "" {
		paths = candidateMatchingConfigPaths()
	}

	for _, p := range paths {
		fileCfg, err := loadMatchingConfigFromPath(p)
		if err != nil {
			return nil, err
		}
		if fileCfg != nil {
			mergeMatchingConfig(cfg, fileCfg)
			break
		}
	}
	return cfg, nil
}

func loadMatchingConfigFromPath(path string) (*MatchingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var cfg MatchingConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func mergeMatchingConfig(base, override *MatchingConfig) {
	if override == nil || base == nil {
		return
	}
	if override.PreferredLanguage != "" {
		base.PreferredLanguage = override.PreferredLanguage
	}
	if override.CheckTrackCount != nil {
		base.CheckTrackCount = override.CheckTrackCount
	}
	if override.MaxSearchPages > 0 {
		base.MaxSearchPages = override.MaxSearchPages
	}
}

// candidateMatchingConfigPaths returns common locations to auto-discover the matching config
func candidateMatchingConfigPaths() []string {
	paths := []string{
		"matching.toml",
		filepath.Join("config", "matching.toml"),
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "maxtrack", "matching.toml"))
	}
	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "maxtrack", "matching.toml"))
	}

	paths = append(paths, filepath.Join(string(os.PathSeparator), "etc", "maxtrack", "matching.toml"))
	return paths
}
