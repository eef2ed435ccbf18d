// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"os"
	"testing"
	"time"
)

const testSecret = "test-secret-KEY-32-bytes-long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OBLOG_JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverSQLite)
	}
	if cfg.DBDSN != "./data/oblog.db" {
		t.Errorf("DBDSN = %q, want %q", cfg.DBDSN, "./data/oblog.db")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want 8080", cfg.ServerPort)
	}
	if cfg.PostsPerPage != 10 {
		t.Errorf("PostsPerPage = %d, want 10", cfg.PostsPerPage)
	}
	if cfg.MaintenanceInterval != 30*time.Second {
		t.Errorf("MaintenanceInterval = %s, want 30s", cfg.MaintenanceInterval)
	}
	if cfg.CacheExpireHTML != time.Hour {
		t.Errorf("CacheExpireHTML = %s, want 1h", cfg.CacheExpireHTML)
	}
	if cfg.LatestPostsLifetime != 10*time.Minute {
		t.Errorf("LatestPostsLifetime = %s, want 10m", cfg.LatestPostsLifetime)
	}
	if cfg.TokenTTL != 720*time.Hour {
		t.Errorf("TokenTTL = %s, want 720h", cfg.TokenTTL)
	}
	if cfg.CachePrefix != "oblog:" {
		t.Errorf("CachePrefix = %q", cfg.CachePrefix)
	}
	if cfg.Site.FQDN != "localhost:8080" {
		t.Errorf("Site.FQDN = %q", cfg.Site.FQDN)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled should default to true")
	}
	if cfg.UseRedisCache() || cfg.GeoIPEnabled() {
		t.Error("optional integrations should be disabled by default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OBLOG_JWT_SECRET", testSecret)
	setEnv(t, "OBLOG_DB_DRIVER", "mysql")
	setEnv(t, "OBLOG_DB_DSN", "blog:pw@tcp(db:3306)/blog")
	setEnv(t, "OBLOG_SITE_FQDN", "example.org")
	setEnv(t, "OBLOG_SITE_TITLE", "Travels")
	setEnv(t, "OBLOG_POSTS_PER_PAGE", "5")
	setEnv(t, "OBLOG_MAINTENANCE_INTERVAL", "1m")
	setEnv(t, "OBLOG_CACHED_TAG_2", "portugal")
	setEnv(t, "OBLOG_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.DBDriver != DriverMySQL {
		t.Errorf("DBDriver = %q", cfg.DBDriver)
	}
	if cfg.Site.FQDN != "example.org" || cfg.Site.Title != "Travels" {
		t.Errorf("Site = %+v", cfg.Site)
	}
	if cfg.PostsPerPage != 5 {
		t.Errorf("PostsPerPage = %d", cfg.PostsPerPage)
	}
	if cfg.MaintenanceInterval != time.Minute {
		t.Errorf("MaintenanceInterval = %s", cfg.MaintenanceInterval)
	}
	tags := cfg.FeaturedTags()
	if tags[0] != "" || tags[1] != "portugal" {
		t.Errorf("FeaturedTags() = %v", tags)
	}
	if !cfg.UseRedisCache() {
		t.Error("UseRedisCache() = false, want true")
	}
}

func TestLoad_RequiredJWTSecret(t *testing.T) {
	os.Clearenv()
	if _, err := Load(); err == nil {
		t.Error("Load() should fail without OBLOG_JWT_SECRET")
	}
}

func TestLoad_JWTSecretValidation(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"too short", "short", true},
		{"31 bytes", "abcdefghijklmnopqrstuvwxyz12345", true},
		{"known weak", "change-me-to-32-byte-secret-key!", true},
		{"exactly 32 bytes", "abcdefghijklmnopqrstuvwxyz123456", false},
		{"strong", testSecret, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, "OBLOG_JWT_SECRET", tt.secret)
			_, err := Load()
			if (err != nil) != tt.wantErr {
				t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	os.Clearenv()
	setEnv(t, "OBLOG_JWT_SECRET", testSecret)
	setEnv(t, "OBLOG_DB_DRIVER", "postgres")
	if _, err := Load(); err == nil {
		t.Error("Load() should reject unknown drivers")
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"production", false},
		{"", false},
	}
	for _, tt := range tests {
		cfg := Config{Env: tt.env}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment() with Env=%q = %v, want %v", tt.env, got, tt.want)
		}
	}
}

func TestConfig_ServerAddr(t *testing.T) {
	cfg := Config{ServerHost: "0.0.0.0", ServerPort: 9000}
	if got := cfg.ServerAddr(); got != "0.0.0.0:9000" {
		t.Errorf("ServerAddr() = %q", got)
	}
}

func TestFeedURL(t *testing.T) {
	got := FeedURL("https://graph.example.com/me/media?access_token=%TOKEN%", "abc")
	if got != "https://graph.example.com/me/media?access_token=abc" {
		t.Errorf("FeedURL() = %q", got)
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	if hasMinimumEntropy("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Error("single class should be low entropy")
	}
	if !hasMinimumEntropy(testSecret) {
		t.Error("mixed secret should pass")
	}
}
