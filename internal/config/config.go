package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrMissingAPIKey = errors.New("YouTube API key is required")
)

const (
	DefaultPort            = "8080"
	DefaultYouTubeBaseURL  = "https://www.googleapis.com/youtube/v3"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the application configuration
type Config struct {
	YouTubeAPIKey   string
	YouTubeBaseURL  string
	Port            string
	AllowedOrigins  []string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load loads the configuration from environment variables and any flags
// bound into viper by the caller. A missing API key is not an error here;
// call Validate to check it.
func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("PORT", DefaultPort)
	viper.SetDefault("YOUTUBE_API_BASE_URL", DefaultYouTubeBaseURL)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("LOG_LEVEL", DefaultLogLevel)
	viper.SetDefault("LOG_FORMAT", DefaultLogFormat)
	viper.SetDefault("SHUTDOWN_TIMEOUT", DefaultShutdownTimeout)

	format := strings.ToLower(strings.TrimSpace(viper.GetString("LOG_FORMAT")))
	if format != "json" && format != "console" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: must be json or console", format)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(viper.GetString("YOUTUBE_API_BASE_URL")), "/")
	if baseURL == "" {
		baseURL = DefaultYouTubeBaseURL
	}

	return &Config{
		YouTubeAPIKey:   strings.TrimSpace(viper.GetString("YOUTUBE_API_KEY")),
		YouTubeBaseURL:  baseURL,
		Port:            viper.GetString("PORT"),
		AllowedOrigins:  splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		LogLevel:        strings.ToLower(strings.TrimSpace(viper.GetString("LOG_LEVEL"))),
		LogFormat:       format,
		ShutdownTimeout: viper.GetDuration("SHUTDOWN_TIMEOUT"),
	}, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("%w: YOUTUBE_API_KEY environment variable is not set", ErrMissingAPIKey)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
