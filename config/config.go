package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig
	Cache          CacheConfig
	Scraper        ScraperConfig
	Matching       MatchingConfig
	Recommendation RecommendationConfig
	Session        SessionConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CacheConfig holds search-cache configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "sqlite"
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// ScraperConfig holds store-scraper configuration
type ScraperConfig struct {
	Delay      time.Duration `mapstructure:"delay"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxResults int           `mapstructure:"max_results"`
}

// MatchingConfig holds the matcher's confidence thresholds
type MatchingConfig struct {
	HighThreshold   float64 `mapstructure:"high_threshold"`
	MediumThreshold float64 `mapstructure:"medium_threshold"`
	MinScore        float64 `mapstructure:"min_score"`
}

// RecommendationConfig holds the recommendation coverage floor
type RecommendationConfig struct {
	MinCoverage float64 `mapstructure:"min_coverage"`
}

// SessionConfig holds comparison-session retention configuration
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pelles/")

	// Environment variable settings
	v.SetEnvPrefix("PELLES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	// Cache defaults
	v.SetDefault("cache.type", "sqlite")
	v.SetDefault("cache.path", "./pelles.db")
	v.SetDefault("cache.ttl", "168h") // 7 days

	// Scraper defaults
	v.SetDefault("scraper.delay", "1500ms")
	v.SetDefault("scraper.timeout", "30s")
	v.SetDefault("scraper.max_results", 10)

	// Matching defaults
	v.SetDefault("matching.high_threshold", 0.85)
	v.SetDefault("matching.medium_threshold", 0.60)
	v.SetDefault("matching.min_score", 0.30)

	// Recommendation defaults
	v.SetDefault("recommendation.min_coverage", 0.70)

	// Session defaults
	v.SetDefault("session.ttl", "1h")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "sqlite" {
		return fmt.Errorf("cache type must be 'memory' or 'sqlite', got: %s", config.Cache.Type)
	}
	if config.Cache.Type == "sqlite" && config.Cache.Path == "" {
		return fmt.Errorf("cache path is required when cache type is 'sqlite'")
	}

	m := config.Matching
	if m.HighThreshold <= 0 || m.HighThreshold > 1 {
		return fmt.Errorf("matching.high_threshold must be in (0, 1], got: %v", m.HighThreshold)
	}
	if m.MediumThreshold <= 0 || m.MediumThreshold > m.HighThreshold {
		return fmt.Errorf("matching.medium_threshold must be in (0, high_threshold], got: %v", m.MediumThreshold)
	}
	if m.MinScore <= 0 || m.MinScore > m.MediumThreshold {
		return fmt.Errorf("matching.min_score must be in (0, medium_threshold], got: %v", m.MinScore)
	}

	if config.Recommendation.MinCoverage < 0 || config.Recommendation.MinCoverage > 1 {
		return fmt.Errorf("recommendation.min_coverage must be in [0, 1], got: %v", config.Recommendation.MinCoverage)
	}

	if config.Scraper.MaxResults <= 0 {
		return fmt.Errorf("scraper.max_results must be positive, got: %d", config.Scraper.MaxResults)
	}

	return nil
}
