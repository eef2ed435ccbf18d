// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

// SharedConfig selects the shared tier.
type SharedConfig struct {
	// RedisURL enables the Redis tier when set.
	// Example: redis://localhost:6379/0
	RedisURL string

	// Prefix is the key prefix used in Redis.
	Prefix string
}

// NewShared builds the shared tier described by cfg. It returns a nil
// Shared and no error when no tier is configured.
func NewShared(cfg SharedConfig) (Shared, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opts := DefaultRedisOptions()
	opts.URL = cfg.RedisURL
	if cfg.Prefix != "" {
		opts.Prefix = cfg.Prefix
	}
	r, err := NewRedisShared(opts)
	if err != nil {
		return nil, err
	}
	return r, nil
}
