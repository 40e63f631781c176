package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AuthMethod represents different authentication methods platforms can use
type AuthMethod string

const (
	AuthMethodOAuth2 AuthMethod = "oauth2"
	AuthMethodNone   AuthMethod = "none"
)

// PlatformConfig represents configuration for a single external platform
type PlatformConfig struct {
	Name       string     `json:"name"`
	Enabled    bool       `json:"enabled"`
	AuthMethod AuthMethod `json:"auth_method"`

	// OAuth2 client credentials
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"client_secret,omitempty"`
	TokenURL     string `json:"token_url,omitempty"`

	BaseURL   string  `json:"base_url,omitempty"`
	UserAgent string  `json:"user_agent,omitempty"`
	RateLimit float64 `json:"rate_limit,omitempty"` // requests per second, 0 = unlimited
	Timeout   int     `json:"timeout,omitempty"`    // seconds

	ExtraConfig map[string]string `json:"extra_config,omitempty"`
}

// Config holds all configuration for the application
type Config struct {
	// Application settings
	Port      string `envconfig:"PORT" default:"8080"`
	GinMode   string `envconfig:"GIN_MODE" default:"release"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Host catalog
	TidalClientID     string `envconfig:"TIDAL_CLIENT_ID"`
	TidalClientSecret string `envconfig:"TIDAL_CLIENT_SECRET"`
	TidalTokenURL     string `envconfig:"TIDAL_TOKEN_URL" default:"https://auth.tidal.com/v1/oauth2/token"`
	TidalAPIURL       string `envconfig:"TIDAL_API_URL" default:"https://api.tidal.com/v1"`
	TidalOpenAPIURL   string `envconfig:"TIDAL_OPENAPI_URL" default:"https://openapi.tidal.com/v2"`
	TidalCountryCode  string `envconfig:"TIDAL_COUNTRY_CODE" default:"US"`

	// External metadata service
	MusicBrainzURL       string  `envconfig:"MUSICBRAINZ_URL" default:"https://musicbrainz.org/ws/2"`
	MusicBrainzUserAgent string  `envconfig:"MUSICBRAINZ_USER_AGENT" default:"maxtrack/1.0 ( maxtrack@localhost )"`
	MusicBrainzRateLimit float64 `envconfig:"MUSICBRAINZ_RATE_LIMIT" default:"1"`

	// Storage
	MongodbURL      string `envconfig:"MONGODB_URL"`
	MongodbDatabase string `envconfig:"MONGODB_DATABASE" default:"maxtrack"`
	ValkeyURL       string `envconfig:"VALKEY_URL"`

	ResponseCacheTTL      time.Duration `envconfig:"RESPONSE_CACHE_TTL" default:"1h"`
	ResponseCacheMaxItems int           `envconfig:"RESPONSE_CACHE_MAX_ITEMS" default:"1000"`

	// Selection
	UseRealMax         bool   `envconfig:"USE_REAL_MAX" default:"false"`
	MatchingConfigPath string `envconfig:"MATCHING_CONFIG_PATH"`

	// Matching tunables, from the TOML file with environment overrides
	Matching *MatchingConfig `ignored:"true" json:"-"`

	// Platform configurations
	Platforms map[string]*PlatformConfig `ignored:"true" json:"-"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	matching, err := LoadMatchingConfig(cfg.MatchingConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load matching config: %w", err)
	}
	if lang, ok := os.LookupEnv("PREFERRED_LANGUAGE"); ok && lang != "" {
		matching.PreferredLanguage = lang
	}
	cfg.Matching = matching

	cfg.Platforms = make(map[string]*PlatformConfig)
	if err := cfg.loadBuiltinPlatforms(); err != nil {
		return nil, fmt.Errorf("failed to load builtin platforms: %w", err)
	}

	return &cfg, nil
}

// loadBuiltinPlatforms loads configuration for the host catalog and the
// metadata service
func (c *Config) loadBuiltinPlatforms() error {
	if c.TidalClientID != "" && c.TidalClientSecret != "" {
		tidal := &PlatformConfig{
			Name:         "tidal",
			Enabled:      true,
			AuthMethod:   AuthMethodOAuth2,
			ClientID:     c.TidalClientID,
			ClientSecret: c.TidalClientSecret,
			TokenURL:     c.TidalTokenURL,
			BaseURL:      c.TidalAPIURL,
			Timeout:      10,
			ExtraConfig: map[string]string{
				"openapi_url":  c.TidalOpenAPIURL,
				"country_code": c.TidalCountryCode,
			},
		}
		if err := c.RegisterPlatformConfig("tidal", tidal); err != nil {
			return err
		}
	}

	musicbrainz := &PlatformConfig{
		Name:       "musicbrainz",
		Enabled:    true,
		AuthMethod: AuthMethodNone,
		BaseURL:    c.MusicBrainzURL,
		UserAgent:  c.MusicBrainzUserAgent,
		RateLimit:  c.MusicBrainzRateLimit,
		Timeout:    15,
	}
	return c.RegisterPlatformConfig("musicbrainz", musicbrainz)
}

// GetPlatformConfig returns configuration for a specific platform
func (c *Config) GetPlatformConfig(platform string) (*PlatformConfig, bool) {
	config, exists := c.Platforms[platform]
	return config, exists
}

// GetEnabledPlatforms returns a list of enabled platform names
func (c *Config) GetEnabledPlatforms() []string {
	var platforms []string
	for name, config := range c.Platforms {
		if config.Enabled {
			platforms = append(platforms, name)
		}
	}
	return platforms
}

// ValidatePlatformConfig validates a platform configuration
func ValidatePlatformConfig(config *PlatformConfig) error {
	if config.Name == "" {
		return fmt.Errorf("platform name cannot be empty")
	}

	switch config.AuthMethod {
	case AuthMethodOAuth2:
		if config.ClientID == "" || config.ClientSecret == "" {
			return fmt.Errorf("OAuth2 requires client_id and client_secret")
		}
		if config.TokenURL == "" {
			return fmt.Errorf("OAuth2 requires token_url")
		}
	case AuthMethodNone:
	default:
		return fmt.Errorf("unsupported auth method: %s", config.AuthMethod)
	}

	if config.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if config.RateLimit < 0 {
		return fmt.Errorf("rate_limit cannot be negative")
	}

	return nil
}

// RegisterPlatformConfig registers a new platform configuration
func (c *Config) RegisterPlatformConfig(platform string, config *PlatformConfig) error {
	config.Name = platform
	if err := ValidatePlatformConfig(config); err != nil {
		return fmt.Errorf("invalid platform config for %s: %w", platform, err)
	}

	c.Platforms[platform] = config
	return nil
}

// IsEnabled checks if a platform is enabled
func (c *Config) IsEnabled(platform string) bool {
	config, exists := c.GetPlatformConfig(platform)
	return exists && config.Enabled
}
