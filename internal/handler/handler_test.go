// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/auth"
	"github.com/olegiv/oblog/internal/blog"
	"github.com/olegiv/oblog/internal/cache"
	"github.com/olegiv/oblog/internal/gallery"
	"github.com/olegiv/oblog/internal/middleware"
	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/render"
	"github.com/olegiv/oblog/internal/service"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/testutil"
	"github.com/olegiv/oblog/web"
)

const (
	testSecret    = "Handler-Test-Secret-0123456789-xyz"
	adminLogin    = "editor"
	adminPassword = "correct horse battery"
	spamAnswer    = "seven"
	browserUA     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type fixture struct {
	router  http.Handler
	blog    *blog.Blog
	queries *store.Queries
	postA   int64
	postB   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := testutil.TestLoggerSilent()

	db := testutil.TestDB(t)
	q := store.New(db).WithLogger(logger)

	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	adminID, err := q.CreateUser(ctx, model.User{
		Login:        adminLogin,
		PasswordHash: hash,
		DisplayName:  "Editor",
		Permissions:  []string{model.PermissionAdmin},
		CreatedAt:    time.Now(),
	})
	require.NoError(t, err)

	posted := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	newPost := func(title, url string, historic ...string) int64 {
		id, err := q.SavePost(ctx, model.Post{
			Author:       model.Author{ID: adminID},
			DatePosted:   posted,
			DateModified: posted,
			State:        model.PostStatePublished,
			Format:       model.FormatHTML,
			Title:        title,
			Content:      "<p>" + title + " intro</p>" + model.MoreMarker + "<p>rest</p>",
			URLCanonical: url,
			URLHistoric:  historic,
			Tags:         []string{"travel"},
		})
		require.NoError(t, err)
		return id
	}
	postA := newPost("Alpha", "a", "b-old")
	postB := newPost("Beta", "b")
	_, err = q.SaveRedirect(ctx, model.Redirect{Name: "shop", URL: "https://shop.example.com/item"})
	require.NoError(t, err)

	renderer, err := render.New(render.Config{TemplatesFS: web.TemplatesFS()})
	require.NoError(t, err)

	cs := cache.New(cache.Options{Logger: logger})
	b := blog.New(blog.Options{
		Store:    q,
		Cache:    cs,
		Renderer: renderer,
		Settings: blog.Settings{
			Site:         blog.SiteInfo{FQDN: "example.org", URL: "https://example.org", Title: "Example"},
			PostsPerPage: 10,
			HTMLTTL:      time.Hour,
			LatestTTL:    time.Minute,
			FeaturedTTL:  time.Minute,
			TagTTL:       time.Minute,
		},
		Logger: logger,
	})
	require.NoError(t, b.Startup(ctx))

	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	g, err := gallery.New(t.TempDir(), q, logger)
	require.NoError(t, err)
	gh, err := NewGalleryHandler(g, web.StaticFS(), logger)
	require.NoError(t, err)

	r := chi.NewRouter()
	Routes{
		Frontend: NewFrontendHandler(b, q, spamAnswer, logger),
		Auth:     NewAuthHandler(q, tokens, middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig()), false, logger),
		Admin: NewAdminHandler(AdminDeps{
			Blog:      b,
			Queries:   q,
			Cache:     cs,
			Gallery:   g,
			Dashboard: service.NewDashboard(q, logger),
			Logger:    logger,
		}),
		Gallery: gh,
		Health:  NewHealthHandler(map[string]Pinger{"database": db, "cache": PingFunc(cs.Ping)}),
		Tokens:  tokens,
		Static:  web.StaticFS(),
	}.Mount(r)

	return &fixture{router: r, blog: b, queries: q, postA: postA, postB: postB}
}

func (f *fixture) do(t *testing.T, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("User-Agent", browserUA)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/auth/login", `{"login":"`+adminLogin+`","pass":"`+adminPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName {
			return c
		}
	}
	t.Fatal("login did not set the auth cookie")
	return nil
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestFrontend_Pages(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantBody   string
		wantType   string
	}{
		{"home", "/", http.StatusOK, "Alpha", "text/html"},
		{"canonical post", "/a", http.StatusOK, "Alpha intro", "text/html"},
		{"trailing slash", "/b/", http.StatusOK, "Beta intro", "text/html"},
		{"case insensitive", "/B", http.StatusOK, "Beta intro", "text/html"},
		{"historic url", "/b-old", http.StatusOK, "Alpha intro", "text/html"},
		{"unknown url", "/nope", http.StatusNotFound, "Page not found", "text/html"},
		{"tag page", "/tag/travel", http.StatusOK, "Beta", "text/html"},
		{"unknown tag", "/tag/cooking", http.StatusNotFound, "Page not found", "text/html"},
		{"search", "/search?q=alpha", http.StatusOK, "Alpha", "text/html"},
		{"sitemap", "/sitemap.xml", http.StatusOK, "https://example.org/a", "application/xml"},
		{"feed", "/feed", http.StatusOK, "<rss", "application/rss+xml"},
		{"robots", "/robots.txt", http.StatusOK, "Sitemap: https://example.org/sitemap.xml", "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.path, "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), tt.wantType),
				"content type %q", rec.Header().Get("Content-Type"))
		})
	}
}

func TestFrontend_PostViewsAreBuffered(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/a", "")
	f.do(t, http.MethodGet, "/b-old", "")
	f.do(t, http.MethodGet, "/nope", "")

	assert.Equal(t, 2, f.blog.PendingViews())
	require.NoError(t, f.blog.RunMaintenance(context.Background()))
	assert.Equal(t, 0, f.blog.PendingViews())

	n, err := f.queries.CountPostViews(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestFrontend_Forward(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/fwd/shop", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.example.com/item", rec.Header().Get("Location"))

	rec = f.do(t, http.MethodGet, "/fwd/unknown", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.org", rec.Header().Get("Location"))
}

func TestFrontend_Comment(t *testing.T) {
	f := newFixture(t)
	post := f.postA

	body := func(answer, name, content string, postID int64) string {
		raw, _ := json.Marshal(model.CommentSubmission{
			PostID: postID, Name: name, Content: content, Answer: answer,
		})
		return string(raw)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"wrong answer", body("six", "Ana", "Hi", post), http.StatusBadRequest, model.MsgBadAnswer},
		{"no name", body(spamAnswer, " ", "Hi", post), http.StatusBadRequest, model.MsgNoName},
		{"empty body", body(spamAnswer, "Ana", "<b></b>", post), http.StatusBadRequest, model.MsgEmptyComment},
		{"unknown post", body(spamAnswer, "Ana", "Hi", 9999), http.StatusBadRequest, model.MsgPostNotFound},
		{"accepted", body(spamAnswer, "Ana", "Lovely <script>x</script>place", post), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/comment", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			out := decodeBody(t, rec)
			if tt.wantError != "" {
				assert.Equal(t, false, out["success"])
				assert.Equal(t, tt.wantError, out["error"])
			} else {
				assert.Equal(t, true, out["success"])
			}
		})
	}

	pending, err := f.queries.ListComments(context.Background(), model.CommentStatusNew, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.NotContains(t, pending[0].Content, "<script>")
	assert.Empty(t, f.blog.Comments(post), "new comments are not served before moderation")
}

func TestAuth_LoginCheckLogout(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/auth/check", "")
	assert.Equal(t, false, decodeBody(t, rec)["success"])

	rec = f.do(t, http.MethodPost, "/auth/login", `{"login":"editor","pass":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	cookie := f.login(t)
	rec = f.do(t, http.MethodGet, "/auth/check", "", cookie)
	out := decodeBody(t, rec)
	assert.Equal(t, true, out["success"])
	user, _ := out["user"].(map[string]any)
	assert.Equal(t, "Editor", user["name"])

	rec = f.do(t, http.MethodPost, "/auth/logout", "", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestAdmin_RequiresAdmin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/admin/api/reload?which=posts", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/admin/api/posts", "", &http.Cookie{Name: middleware.CookieName, Value: "forged"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdmin_SaveAndReload(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	rec := f.do(t, http.MethodPost, "/admin/api/posts",
		`{"title":"Gamma Days","state":"published","content":"<p>gamma</p>","tags":["travel"]}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := int64(decodeBody(t, rec)["id"].(float64))

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/gamma-days", "").Code,
		"saved posts are not served before a reload")

	rec = f.do(t, http.MethodPost, "/admin/api/reload?which=posts", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["num"])

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/gamma-days", "").Code)
	assert.Equal(t, id, f.blog.PostIDBySEOURL("gamma-days"))

	// Renaming keeps the old URL resolving.
	rec = f.do(t, http.MethodPost, "/admin/api/posts",
		`{"id":`+jsonInt(id)+`,"title":"Gamma Days","state":"published","url_canonical":"gamma"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	f.do(t, http.MethodPost, "/admin/api/reload?which=posts", "", cookie)
	assert.Equal(t, id, f.blog.PostIDBySEOURL("gamma"))
	assert.Equal(t, id, f.blog.PostIDBySEOURL("gamma-days"))
}

func TestAdmin_Reload(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	tests := []struct {
		which      string
		wantStatus int
		wantNum    float64
	}{
		{"posts", http.StatusOK, 2},
		{"redirects", http.StatusOK, 1},
		{"tags", http.StatusOK, 0},
		{"menus", http.StatusOK, 0},
		{"comments", http.StatusOK, 0},
		{"html", http.StatusOK, 0},
		{"bogus", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.which, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/admin/api/reload?which="+tt.which, "", cookie)
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantNum, decodeBody(t, rec)["num"])
			}
		})
	}
}

func TestAdmin_CommentModeration(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	ctx := context.Background()

	id, err := f.queries.CreateComment(ctx, model.Comment{
		PostID: f.postA, Status: model.CommentStatusNew, AuthorName: "Ana",
		DatePosted: time.Now(), Content: "Nice",
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/admin/api/comments/"+jsonInt(id)+"/status", `{"status":"maybe"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/admin/api/comments/"+jsonInt(id)+"/status", `{"status":"approved"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	f.do(t, http.MethodPost, "/admin/api/reload?which=comments", "", cookie)
	comments := f.blog.Comments(f.postA)
	require.Len(t, comments, 1)
	assert.Equal(t, "Nice", comments[0].Content)
}

func TestAdmin_RedirectValidation(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)

	rec := f.do(t, http.MethodPost, "/admin/api/redirects", `{"name":"x","url":"javascript:alert(1)"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/admin/api/redirects", `{"name":"book","url":"https://books.example.com"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	f.do(t, http.MethodPost, "/admin/api/reload?which=redirects", "", cookie)
	assert.Equal(t, "https://books.example.com", f.blog.LookupRedirect("book"))
}

func TestAdmin_Preview(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t)
	ctx := context.Background()

	_, err := f.queries.SaveSnippet(ctx, model.Snippet{
		Name:      "note",
		Template:  `<aside class="{kind}">{text}</aside>`,
		Variables: []model.SnippetVariable{{Name: "kind", Default: "info"}, {Name: "text", Default: ""}},
	})
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/admin/api/preview",
		`{"content":"[note text=\"hello\"]","format":"html"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, `<aside class="info">hello</aside>`, decodeBody(t, rec)["html"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decodeBody(t, rec)
	assert.Equal(t, "healthy", out["status"])
	assert.NotContains(t, out, "checks", "anonymous callers get the status only")

	rec = f.do(t, http.MethodGet, "/health", "", f.login(t))
	out = decodeBody(t, rec)
	assert.Contains(t, out, "checks")
}

func TestGallery_UnknownImage(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/gallery/0a1b2c/w600/missing.jpg", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())
}

func jsonInt(n int64) string {
	raw, _ := json.Marshal(n)
	return string(raw)
}
