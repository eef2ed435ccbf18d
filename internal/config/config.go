// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// knownWeakSecrets contains default/example secrets that must be rejected.
var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Supported database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Env        string `env:"OBLOG_ENV" envDefault:"development"`
	LogLevel   string `env:"OBLOG_LOG_LEVEL" envDefault:"info"`
	ServerHost string `env:"OBLOG_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"OBLOG_SERVER_PORT" envDefault:"8080"`

	DBDriver string `env:"OBLOG_DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"OBLOG_DB_DSN" envDefault:"./data/oblog.db"`

	JWTSecret string        `env:"OBLOG_JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"OBLOG_TOKEN_TTL" envDefault:"720h"`

	Site Site

	PostsPerPage        int           `env:"OBLOG_POSTS_PER_PAGE" envDefault:"10"`
	MaintenanceInterval time.Duration `env:"OBLOG_MAINTENANCE_INTERVAL" envDefault:"30s"`

	// Cache lifetimes
	CacheExpireHTML       time.Duration `env:"OBLOG_CACHE_EXPIRE_HTML" envDefault:"1h"`
	InstagramLifetime     time.Duration `env:"OBLOG_INSTAGRAM_LIFETIME" envDefault:"1h"`
	PinterestLifetime     time.Duration `env:"OBLOG_PINTEREST_LIFETIME" envDefault:"1h"`
	LatestPostsLifetime   time.Duration `env:"OBLOG_LATEST_POSTS_LIFETIME" envDefault:"10m"`
	FeaturedPostsLifetime time.Duration `env:"OBLOG_FEATURED_POSTS_LIFETIME" envDefault:"10m"`
	CachedTagLifetime     time.Duration `env:"OBLOG_CACHED_TAG_LIFETIME" envDefault:"10m"`

	CachedTag1 string `env:"OBLOG_CACHED_TAG_1"`
	CachedTag2 string `env:"OBLOG_CACHED_TAG_2"`
	CachedTag3 string `env:"OBLOG_CACHED_TAG_3"`
	CachedTag4 string `env:"OBLOG_CACHED_TAG_4"`
	CachedTag5 string `env:"OBLOG_CACHED_TAG_5"`

	// Third-party feeds
	InstagramURL   string `env:"OBLOG_INSTAGRAM_URL"`
	InstagramToken string `env:"OBLOG_INSTAGRAM_TOKEN"`
	PinterestURL   string `env:"OBLOG_PINTEREST_URL"`
	PinterestToken string `env:"OBLOG_PINTEREST_TOKEN"`

	BotBlockSolution string `env:"OBLOG_BOT_BLOCK_SOLUTION"`

	// Shared cache tier
	RedisURL    string `env:"OBLOG_REDIS_URL"`
	CachePrefix string `env:"OBLOG_CACHE_PREFIX" envDefault:"oblog:"`

	GeoIPDBPath string `env:"OBLOG_GEOIP_DB_PATH"` // Path to GeoLite2-Country.mmdb file
	GalleryDir  string `env:"OBLOG_GALLERY_DIR" envDefault:"./data/gallery"`

	// Seeding configuration
	AdminLogin    string `env:"OBLOG_ADMIN_LOGIN"`
	AdminPassword string `env:"OBLOG_ADMIN_PASSWORD"`

	MetricsEnabled bool `env:"OBLOG_METRICS_ENABLED" envDefault:"true"`
}

// Site is the metadata handed to every page template.
type Site struct {
	FQDN            string `env:"OBLOG_SITE_FQDN" envDefault:"localhost:8080"`
	Title           string `env:"OBLOG_SITE_TITLE"`
	Subtitle        string `env:"OBLOG_SITE_SUBTITLE"`
	MetaTitle       string `env:"OBLOG_META_TITLE"`
	MetaDescription string `env:"OBLOG_META_DESCRIPTION"`
	Locale          string `env:"OBLOG_LOCALE" envDefault:"en_US"`
	FacebookAppID   string `env:"OBLOG_FACEBOOK_APP_ID"`
	FacebookUser    string `env:"OBLOG_FACEBOOK_USER"`
	TwitterUser     string `env:"OBLOG_TWITTER_USER"`
	InstagramUser   string `env:"OBLOG_INSTAGRAM_USER"`
	PinterestUser   string `env:"OBLOG_PINTEREST_USER"`
	YouTubeChannel  string `env:"OBLOG_YOUTUBE_CHANNEL"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if the shared Redis tier is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled returns true if GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// FeaturedTags returns the configured featured tag slots in order.
// Empty slots are kept so slot numbers stay stable; callers skip them.
func (c Config) FeaturedTags() [5]string {
	return [5]string{c.CachedTag1, c.CachedTag2, c.CachedTag3, c.CachedTag4, c.CachedTag5}
}

// MinJWTSecretLength is the minimum required length for the token signing secret.
const MinJWTSecretLength = 32

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	switch cfg.DBDriver {
	case DriverSQLite, DriverMySQL:
	default:
		return nil, fmt.Errorf("OBLOG_DB_DRIVER must be %q or %q, got %q", DriverSQLite, DriverMySQL, cfg.DBDriver)
	}

	if len(cfg.JWTSecret) < MinJWTSecretLength {
		return nil, fmt.Errorf("OBLOG_JWT_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinJWTSecretLength, len(cfg.JWTSecret))
	}

	for _, weak := range knownWeakSecrets {
		if cfg.JWTSecret == weak {
			return nil, fmt.Errorf("OBLOG_JWT_SECRET is a known default value and must not be used; " +
				"generate a secure secret with: openssl rand -base64 32")
		}
	}

	if !hasMinimumEntropy(cfg.JWTSecret) {
		slog.Warn("OBLOG_JWT_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	if cfg.PostsPerPage <= 0 {
		cfg.PostsPerPage = 10
	}
	if cfg.MaintenanceInterval <= 0 {
		return nil, fmt.Errorf("OBLOG_MAINTENANCE_INTERVAL must be positive, got %s", cfg.MaintenanceInterval)
	}

	return cfg, nil
}

// FeedURL substitutes the access token into a feed endpoint template.
func FeedURL(template, token string) string {
	return strings.ReplaceAll(template, "%TOKEN%", token)
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes
// (lowercase, uppercase, digits, special characters).
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	if strings.ContainsAny(s, "abcdefghijklmnopqrstuvwxyz") {
		charTypes++
	}
	if strings.ContainsAny(s, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		charTypes++
	}
	if strings.ContainsAny(s, "0123456789") {
		charTypes++
	}
	if strings.ContainsAny(s, "!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\") {
		charTypes++
	}
	return charTypes >= 3
}
