// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip resolves visitor IPs to countries with a MaxMind GeoLite2
// Country database.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/olegiv/oblog/internal/util"
)

// Local is reported for private and loopback addresses.
const Local = "LOCAL"

// Resolver looks up countries. A Resolver without a database answers ""
// for every public address. It is safe for concurrent use.
type Resolver struct {
	mu        sync.RWMutex
	db        *maxminddb.Reader
	path      string
	modTime   time.Time
	available bool
}

// geoRecord matches the GeoLite2-Country database structure.
type geoRecord struct {
	Country struct {
		ISOCode string `maxminddb:"iso_code"`
	} `maxminddb:"country"`
}

// New opens the database at path. An empty path gives a disabled resolver.
// A missing or broken file returns the error together with a usable,
// disabled resolver so callers can log and carry on.
func New(path string) (*Resolver, error) {
	r := &Resolver{path: path}
	if path == "" {
		return r, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r, r.load()
}

// load must be called with mu held.
func (r *Resolver) load() error {
	info, err := os.Stat(r.path)
	if err != nil {
		r.available = r.db != nil
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("geoip database not found: %s", r.path)
		}
		return fmt.Errorf("geoip database stat: %w", err)
	}

	if r.db != nil && info.ModTime().Equal(r.modTime) {
		return nil
	}

	db, err := maxminddb.Open(r.path)
	if err != nil {
		r.available = r.db != nil
		return fmt.Errorf("opening geoip database: %w", err)
	}
	if r.db != nil {
		_ = r.db.Close()
	}
	r.db = db
	r.modTime = info.ModTime()
	r.available = true
	return nil
}

// Reload reopens the database when the file changed since the last load.
// A failed reload keeps the previous database.
func (r *Resolver) Reload() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.path == "" {
		return nil
	}
	return r.load()
}

// Country returns the ISO 3166 code for ip, Local for private and loopback
// addresses, and "" when unknown.
func (r *Resolver) Country(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return ""
	}
	if util.IsPrivateIP(parsed) {
		return Local
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.available || r.db == nil {
		return ""
	}
	var rec geoRecord
	if err := r.db.Lookup(parsed, &rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}

// Enabled reports whether a database is loaded.
func (r *Resolver) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available
}

// Close releases the database.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	r.available = false
	return err
}

// CountryName returns the English name of a country code.
func CountryName(code string) string {
	switch code {
	case "":
		return "Unknown"
	case Local:
		return "Local Network"
	}
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := display.English.Regions().Name(region); name != "" {
		return name
	}
	return code
}
