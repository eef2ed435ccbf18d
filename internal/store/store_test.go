// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/oblog/internal/model"
	"github.com/olegiv/oblog/internal/store"
	"github.com/olegiv/oblog/internal/testutil"
)

func newQueries(t *testing.T) *store.Queries {
	t.Helper()
	return testutil.TestQueries(t)
}

func samplePost(title, url, state string) model.Post {
	now := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	return model.Post{
		DatePosted:   now,
		DateModified: now,
		State:        state,
		Format:       model.FormatHTML,
		Title:        title,
		Content:      "<p>" + title + " body</p>",
		SEO:          model.SEO{MetaTitle: title},
		URLCanonical: url,
		URLHistoric:  []string{url + "-old"},
		Tags:         []string{"travel", "street food"},
		Media:        []model.PostMedia{{URL: "/gallery/x/w600/x.jpg", Class: model.MediaClassFeatured}},
	}
}

func TestPosts_SaveLoadAndDraftFilter(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	authorID, err := q.CreateUser(ctx, model.User{Login: "oleg", PasswordHash: "x", DisplayName: "Oleg", HomePost: "about", CreatedAt: time.Now()})
	require.NoError(t, err)

	first := samplePost("Lisbon", "lisbon", model.PostStatePublished)
	first.Author.ID = authorID
	id1, err := q.SavePost(ctx, first)
	require.NoError(t, err)
	_, err = q.SavePost(ctx, samplePost("Secret", "secret", model.PostStateDraft))
	require.NoError(t, err)
	id3, err := q.SavePost(ctx, samplePost("Porto", "porto", model.PostStatePublished))
	require.NoError(t, err)

	posts, err := q.LoadPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2, "drafts are not loaded")
	assert.Equal(t, id3, posts[0].ID, "newest id first")
	assert.Equal(t, id1, posts[1].ID)

	lisbon := posts[1]
	assert.Equal(t, "Oleg", lisbon.Author.DisplayName)
	assert.Equal(t, "about", lisbon.Author.HomePost)
	assert.Equal(t, []string{"lisbon-old"}, lisbon.URLHistoric)
	assert.Equal(t, []string{"travel", "street food"}, lisbon.Tags)
	assert.Equal(t, model.MediaClassFeatured, lisbon.Media[0].Class)
	assert.True(t, lisbon.DatePosted.Equal(first.DatePosted))

	all, err := q.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	lisbon.Title = "Lisbon again"
	_, err = q.SavePost(ctx, lisbon)
	require.NoError(t, err)
	got, err := q.GetPost(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon again", got.Title)

	_, err = q.GetPost(ctx, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = q.SavePost(ctx, model.Post{ID: 999, State: model.PostStateDraft})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPosts_MalformedRowSkipped(t *testing.T) {
	db := testutil.TestDB(t)
	q := store.New(db).WithLogger(testutil.TestLoggerSilent())
	ctx := context.Background()

	_, err := q.SavePost(ctx, samplePost("Good", "good", model.PostStatePublished))
	require.NoError(t, err)
	badID, err := q.SavePost(ctx, samplePost("Bad", "bad", model.PostStatePublished))
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `UPDATE posts SET tags = '{not json' WHERE id = ?`, badID)
	require.NoError(t, err)

	posts, err := q.LoadPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Good", posts[0].Title)
}

func TestSearchPostIDs(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	a, _ := q.SavePost(ctx, samplePost("Green wine in Porto", "a", model.PostStatePublished))
	b, _ := q.SavePost(ctx, samplePost("Lisbon trams", "b", model.PostStatePublished))
	_, _ = q.SavePost(ctx, samplePost("Porto draft", "c", model.PostStateDraft))

	ids, err := q.SearchPostIDs(ctx, "porto wine")
	require.NoError(t, err)
	assert.Equal(t, []int64{a}, ids)

	ids, err = q.SearchPostIDs(ctx, "body")
	require.NoError(t, err)
	assert.Equal(t, []int64{b, a}, ids, "content match, newest first")

	ids, err = q.SearchPostIDs(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearchWordsLimit(t *testing.T) {
	words := store.SearchWords("a b c d e f g h i j k l")
	assert.Len(t, words, store.MaxSearchWords)
}

func TestLatestAndMostViewed(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	old := samplePost("Old", "old", model.PostStatePublished)
	old.DatePosted = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	oldID, _ := q.SavePost(ctx, old)
	newID, _ := q.SavePost(ctx, samplePost("New", "new", model.PostStatePublished))

	ids, err := q.LatestPostIDs(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, []int64{newID, oldID}, ids)

	now := time.Now()
	views := []model.ViewEvent{
		{PostID: oldID, ViewedAt: now, IP: "1.1.1.1"},
		{PostID: oldID, ViewedAt: now, IP: "1.1.1.2"},
		{PostID: newID, ViewedAt: now, IP: "1.1.1.3"},
		{PostID: newID, ViewedAt: now.Add(-60 * 24 * time.Hour)},
		{PostID: newID, ViewedAt: now.Add(-60 * 24 * time.Hour)},
	}
	require.NoError(t, q.LogPostViews(ctx, views))

	n, err := q.CountPostViews(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	ids, err = q.MostViewedPostIDs(ctx, now.Add(-30*24*time.Hour), 8)
	require.NoError(t, err)
	assert.Equal(t, []int64{oldID, newID}, ids)
}

func TestTagsCommentsMenusRedirectsSnippets(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	require.NoError(t, q.SaveTag(ctx, model.Tag{ID: "travel", Title: "Travel", SEO: model.SEO{MetaTitle: "Trips"}}))
	require.NoError(t, q.SaveTag(ctx, model.Tag{ID: "travel", Title: "Travel v2"}))
	tags, err := q.LoadTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "Travel v2", tags[0].Title)
	_, err = q.GetTag(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)

	now := time.Now()
	c1, err := q.CreateComment(ctx, model.Comment{PostID: 1, Status: model.CommentStatusNew, AuthorName: "a", DatePosted: now, Content: "x"})
	require.NoError(t, err)
	_, err = q.CreateComment(ctx, model.Comment{PostID: 1, Status: model.CommentStatusApproved, AuthorName: "b", DatePosted: now, Content: "y"})
	require.NoError(t, err)

	approved, err := q.LoadApprovedComments(ctx)
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "b", approved[0].AuthorName)

	c, err := q.GetComment(ctx, c1)
	require.NoError(t, err)
	c.Status = model.CommentStatusApproved
	require.NoError(t, q.UpdateComment(ctx, c))
	newOnes, err := q.ListComments(ctx, model.CommentStatusNew, 10)
	require.NoError(t, err)
	assert.Empty(t, newOnes)
	all, err := q.ListComments(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = q.SaveMenu(ctx, model.Menu{Name: "main", Items: []model.MenuItem{{Title: "Home", URL: "/"}}})
	require.NoError(t, err)
	menus, err := q.LoadMenus(ctx)
	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, "Home", menus[0].Items[0].Title)

	rid, err := q.SaveRedirect(ctx, model.Redirect{Name: "shop", URL: "https://example.com"})
	require.NoError(t, err)
	redirects, err := q.LoadRedirects(ctx)
	require.NoError(t, err)
	assert.Len(t, redirects, 1)
	require.NoError(t, q.DeleteRedirect(ctx, rid))
	redirects, _ = q.LoadRedirects(ctx)
	assert.Empty(t, redirects)

	_, err = q.SaveSnippet(ctx, model.Snippet{Name: "yt", Template: "<i>{id}</i>", Variables: []model.SnippetVariable{{Name: "id"}}})
	require.NoError(t, err)
	snippets, err := q.LoadSnippets(ctx)
	require.NoError(t, err)
	require.Len(t, snippets, 1)
	assert.Equal(t, "id", snippets[0].Variables[0].Name)
}

func TestUsersAndSeed(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx, q, "editor", "a-long-password"))
	require.NoError(t, store.Seed(ctx, q, "other", "ignored"), "second seed is a no-op")

	n, err := q.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	u, err := q.GetUserByLogin(ctx, "editor")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())
	assert.NotEqual(t, "a-long-password", u.PasswordHash)

	byID, err := q.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "editor", byID.Login)

	_, err = q.GetUserByLogin(ctx, "nobody")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestGalleryAndEvents(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	_, err := q.CreateGalleryImage(ctx, model.GalleryImage{GUID: "g1", Name: "beach", Ext: ".jpg", Width: 10, Height: 5, Hash: "h1", CreatedAt: time.Now()})
	require.NoError(t, err)
	img, err := q.GetGalleryImage(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "beach", img.Name)
	dup, err := q.GetGalleryImageByHash(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "g1", dup.GUID)
	list, err := q.ListGallery(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = q.CreateEvent(ctx, model.Event{Level: model.EventLevelWarning, Category: model.EventCategorySystem, Message: "m", Metadata: "{}", CreatedAt: time.Now()})
	require.NoError(t, err)
	events, err := q.ListEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "m", events[0].Message)
}

func TestDashboardQueries(t *testing.T) {
	q := newQueries(t)
	ctx := context.Background()

	id, _ := q.SavePost(ctx, samplePost("Lisbon", "lisbon", model.PostStatePublished))
	_, _ = q.SavePost(ctx, samplePost("Draft", "draft", model.PostStateDraft))
	_, _ = q.CreateComment(ctx, model.Comment{PostID: id, Status: model.CommentStatusNew, DatePosted: time.Now()})

	day := time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	require.NoError(t, q.LogPostViews(ctx, []model.ViewEvent{
		{PostID: id, ViewedAt: day, UserAgent: "ua1", Country: "PT"},
		{PostID: id, ViewedAt: day.Add(time.Hour), UserAgent: "ua1", Country: "PT"},
		{PostID: id, ViewedAt: day.Add(24 * time.Hour), UserAgent: "ua2", Country: "ES"},
	}))

	since := day.Add(-24 * time.Hour)
	byDay, err := q.ViewsByDay(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, []model.DayViews{{Day: "2024-06-10", Views: 2}, {Day: "2024-06-11", Views: 1}}, byDay)

	top, err := q.TopPosts(ctx, since, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "Lisbon", top[0].Title)
	assert.Equal(t, int64(3), top[0].Views)

	countries, err := q.TopCountries(ctx, since, 10)
	require.NoError(t, err)
	assert.Equal(t, model.CountedValue{Value: "PT", Count: 2}, countries[0])

	agents, err := q.TopUserAgents(ctx, since, 10)
	require.NoError(t, err)
	assert.Len(t, agents, 2)

	stats, err := q.ContentStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ContentStats{Posts: 2, UnpublishedPosts: 1, Comments: 1, NewComments: 1}, stats)
}
