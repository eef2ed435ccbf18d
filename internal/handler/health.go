// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/version"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// PingContext calls f.
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler handles health check requests.
type HealthHandler struct {
	checks    map[string]Pinger
	startTime time.Time
	timeout   time.Duration
}

// NewHealthHandler creates a health handler over the named checks,
// typically "database" and "cache".
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks, startTime: time.Now(), timeout: 2 * time.Second}
}

// Check is a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthStatus is the detailed response for admins.
type HealthStatus struct {
	Status     string           `json:"status"`
	Timestamp  time.Time        `json:"timestamp"`
	Uptime     string           `json:"uptime"`
	Version    version.Info     `json:"version"`
	Checks     map[string]Check `json:"checks"`
	Goroutines int              `json:"goroutines"`
}

// Health handles GET /health. Anonymous callers only get the status.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	overall := "healthy"
	results := make(map[string]Check, len(h.checks))
	for name, p := range h.checks {
		start := time.Now()
		c := Check{Status: "healthy"}
		if err := p.PingContext(ctx); err != nil {
			c.Status = "unhealthy"
			c.Message = err.Error()
			overall = "degraded"
		}
		c.Latency = time.Since(start).Round(time.Microsecond).String()
		results[name] = c
	}

	status := http.StatusOK
	if overall != "healthy" {
		status = http.StatusServiceUnavailable
	}

	if claims := middleware.GetClaims(r); claims == nil || !claims.IsAdmin() {
		writeJSON(w, status, map[string]string{"status": overall})
		return
	}
	writeJSON(w, status, HealthStatus{
		Status:     overall,
		Timestamp:  time.Now().UTC(),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Version:    version.Get(),
		Checks:     results,
		Goroutines: runtime.NumGoroutine(),
	})
}
