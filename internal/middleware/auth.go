// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// rate limiting and response hardening.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/olegiv/oblog/internal/auth"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyClaims holds the validated token of the current caller.
const ContextKeyClaims ContextKey = "claims"

// CookieName is the cookie carrying the login token.
const CookieName = "oblog_user"

// Authenticate loads the claims of a valid login cookie into the request
// context. Requests without a cookie, or with an invalid one, pass through
// anonymously.
func Authenticate(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tm.Validate(cookie.Value)
			if err != nil {
				slog.Debug("ignoring invalid login cookie", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaims returns the caller's claims, or nil for anonymous requests.
func GetClaims(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(ContextKeyClaims).(*auth.Claims)
	return claims
}

// GetUserID returns the caller's user id, or 0 if anonymous.
func GetUserID(r *http.Request) int64 {
	if c := GetClaims(r); c != nil {
		return c.UserID()
	}
	return 0
}

// RequireAdmin rejects callers without the admin permission.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r)
			if claims == nil || !claims.IsAdmin() {
				if claims != nil {
					slog.Warn("access denied",
						"category", "auth",
						"status", http.StatusUnauthorized,
						"method", r.Method,
						"path", r.URL.Path,
						"user_id", claims.UserID(),
					)
				}
				WriteError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WriteError writes {"success": false, "error": message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}
