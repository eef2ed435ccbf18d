// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/oblog/internal/auth"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/util"
)

// UserStore looks up and updates accounts. *store.Queries satisfies it.
type UserStore interface {
	GetUserByLogin(ctx context.Context, login string) (model.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}

// AuthHandler handles /auth routes.
type AuthHandler struct {
	users           UserStore
	tokens          *auth.TokenManager
	loginProtection *middleware.LoginProtection
	secureCookie    bool
	logger          *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookie marks the login
// cookie Secure, which production deployments behind TLS want.
func NewAuthHandler(users UserStore, tokens *auth.TokenManager, lp *middleware.LoginProtection, secureCookie bool, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		users:           users,
		tokens:          tokens,
		loginProtection: lp,
		secureCookie:    secureCookie,
		logger:          logger,
	}
}

type loginRequest struct {
	Login string `json:"login"`
	Pass  string `json:"pass"`
}

type userInfo struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Check handles GET /auth/check and reports the signed-in user, if any.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r)
	if claims == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
		return
	}
	writeJSONSuccess(w, map[string]any{
		"user": userInfo{ID: claims.UserID(), Name: claims.Name, Permissions: claims.Permissions},
	})
}

// Login handles POST /auth/login with {"login", "pass"}.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Login = strings.TrimSpace(req.Login)
	if req.Login == "" || req.Pass == "" {
		writeJSONError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	ip := util.ClientIP(r)
	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsLocked(req.Login); locked {
			h.logger.Warn("login attempt on locked account", "category", model.EventCategoryAuth, "login", req.Login, "ip", ip)
			writeJSONError(w, http.StatusTooManyRequests, lockedMessage(remaining))
			return
		}
	}

	user, err := h.users.GetUserByLogin(r.Context(), req.Login)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logAndJSONError(w, "loading user", err)
			return
		}
		h.logger.Warn("login failed: unknown user", "category", model.EventCategoryAuth, "login", req.Login, "ip", ip)
		h.rejectLogin(w, req.Login)
		return
	}

	valid, err := auth.CheckPassword(req.Pass, user.PasswordHash)
	if err != nil {
		h.logger.Error("password check error", "error", err, "user_id", user.ID)
	}
	if !valid {
		h.logger.Warn("login failed: invalid password", "category", model.EventCategoryAuth, "login", req.Login, "ip", ip)
		h.rejectLogin(w, req.Login)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccess(req.Login)
	}

	if auth.NeedsRehash(user.PasswordHash) {
		if hash, err := auth.HashPassword(req.Pass); err == nil {
			if err := h.users.UpdatePasswordHash(r.Context(), user.ID, hash); err != nil {
				h.logger.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			}
		}
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		logAndJSONError(w, "issuing token", err, "user_id", user.ID)
		return
	}
	http.SetCookie(w, h.cookie(token, h.tokens.TTL()))

	h.logger.Info("user logged in", "category", model.EventCategoryAuth, "user_id", user.ID, "ip", ip)
	writeJSONSuccess(w, map[string]any{
		"user": userInfo{ID: user.ID, Name: user.DisplayName, Permissions: user.Permissions},
	})
}

// rejectLogin records a failure and answers with the lockout state.
func (h *AuthHandler) rejectLogin(w http.ResponseWriter, login string) {
	if h.loginProtection != nil {
		if locked, d := h.loginProtection.RecordFailure(login); locked {
			writeJSONError(w, http.StatusTooManyRequests, lockedMessage(d))
			return
		}
		if n := h.loginProtection.RemainingAttempts(login); n > 0 && n <= 3 {
			writeJSONError(w, http.StatusUnauthorized, fmt.Sprintf("Invalid login or password. %d attempts remaining.", n))
			return
		}
	}
	writeJSONError(w, http.StatusUnauthorized, "Invalid login or password.")
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.cookie("", -time.Second))
	if id := middleware.GetUserID(r); id > 0 {
		h.logger.Info("user logged out", "category", model.EventCategoryAuth, "user_id", id)
	}
	writeJSONSuccess(w, nil)
}

func (h *AuthHandler) cookie(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func lockedMessage(d time.Duration) string {
	return fmt.Sprintf("Too many failed attempts. Try again in %s.", d.Round(time.Minute))
}
