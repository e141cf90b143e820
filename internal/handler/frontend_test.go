// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/store"
)

func newFrontendHandler(t *testing.T, db *sql.DB) *FrontendHandler {
	t.Helper()
	return NewFrontendHandler(db, testRenderer(t), testSessionManager(t), testSettings(t))
}

func TestFrontendHome(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)
	author := createHandlerUser(t, db, "writer", "writer@example.com", model.RoleAuthor)
	seedArticle(t, db, author.ID, "Public", "public", model.ArticleStatusPublished)

	r := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	h.Home(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestFrontendHome_UnknownPath(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)

	r := httptest.NewRequest("GET", "/no-such-page", nil)
	w := httptest.NewRecorder()
	h.Home(w, r)

	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestFrontendBlog(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)
	author := createHandlerUser(t, db, "writer", "writer@example.com", model.RoleAuthor)
	seedArticle(t, db, author.ID, "Visible", "visible", model.ArticleStatusPublished)
	seedArticle(t, db, author.ID, "Hidden", "hidden", model.ArticleStatusDraft)

	r := httptest.NewRequest("GET", "/blog", nil)
	w := httptest.NewRecorder()
	h.Blog(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestFrontendBlog_InvalidCategory(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)

	r := httptest.NewRequest("GET", "/blog?category=no-such-category", nil)
	w := httptest.NewRecorder()
	h.Blog(w, r)

	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestFrontendBlog_BadPageParam(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)

	r := httptest.NewRequest("GET", "/blog/page/zero", nil)
	r = requestWithURLParams(r, map[string]string{"page": "zero"})
	w := httptest.NewRecorder()
	h.Blog(w, r)

	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestFrontendArticle(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)
	author := createHandlerUser(t, db, "writer", "writer@example.com", model.RoleAuthor)
	article := seedArticle(t, db, author.ID, "Harvest Notes", "harvest-notes", model.ArticleStatusPublished)

	r := httptest.NewRequest("GET", "/blog/harvest-notes", nil)
	r = requestWithURLParams(r, map[string]string{"slug": "harvest-notes"})
	w := httptest.NewRecorder()
	h.Article(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	stored, err := store.New(db).GetArticleBySlug(context.Background(), article.Slug)
	if err != nil {
		t.Fatalf("GetArticleBySlug: %v", err)
	}
	if stored.ViewCount != 1 {
		t.Errorf("ViewCount = %d, want 1", stored.ViewCount)
	}
}

func TestFrontendArticle_DraftHidden(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)
	author := createHandlerUser(t, db, "writer", "writer@example.com", model.RoleAuthor)
	seedArticle(t, db, author.ID, "Work In Progress", "work-in-progress", model.ArticleStatusDraft)

	r := httptest.NewRequest("GET", "/blog/work-in-progress", nil)
	r = requestWithURLParams(r, map[string]string{"slug": "work-in-progress"})
	w := httptest.NewRecorder()
	h.Article(w, r)

	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func subscribeRequest(t *testing.T, h *FrontendHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("POST", "/subscribe", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.Subscribe(w, r)
	return w
}

func TestFrontendSubscribe(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)

	form := url.Values{}
	form.Set("email", "Reader@Example.com")
	form.Set("name", "Reader")
	form.Set("return_to", "/blog")

	w := subscribeRequest(t, h, form)

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/blog" {
		t.Errorf("Location = %q, want /blog", loc)
	}

	sub, err := store.New(db).GetSubscriberByEmail(context.Background(), "reader@example.com")
	if err != nil {
		t.Fatalf("GetSubscriberByEmail: %v", err)
	}
	if !sub.Active {
		t.Error("new subscriber should be active")
	}
	if sub.Token == "" {
		t.Error("subscriber should have an unsubscribe token")
	}
}

func TestFrontendSubscribe_Reactivates(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)
	sub := seedSubscriber(t, db, "back@example.com", "Returning")
	if err := store.New(db).SetSubscriberActive(context.Background(), sub.ID, false); err != nil {
		t.Fatalf("SetSubscriberActive: %v", err)
	}

	form := url.Values{}
	form.Set("email", "back@example.com")

	w := subscribeRequest(t, h, form)

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303", w.Code)
	}

	stored, _ := store.New(db).GetSubscriberByID(context.Background(), sub.ID)
	if !stored.Active {
		t.Error("subscriber should be reactivated")
	}
}

func TestFrontendSubscribe_InvalidEmail(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)

	form := url.Values{}
	form.Set("email", "not-an-email")

	w := subscribeRequest(t, h, form)

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	count, _ := store.New(db).CountSubscribers(context.Background(), store.ListSubscribersParams{})
	if count != 0 {
		t.Errorf("subscriber count = %d, want 0", count)
	}
}

func TestFrontendSubscribe_HTMX(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)

	form := url.Values{}
	form.Set("email", "inline@example.com")

	r := httptest.NewRequest("POST", "/subscribe", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("HX-Request", "true")
	w := httptest.NewRecorder()
	h.Subscribe(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Thanks for subscribing") {
		t.Errorf("body = %q, want inline thanks", w.Body.String())
	}
}

func TestFrontendUnsubscribe(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)
	sub := seedSubscriber(t, db, "leaving@example.com", "")

	r := httptest.NewRequest("GET", "/unsubscribe/"+sub.Token, nil)
	r = requestWithURLParams(r, map[string]string{"token": sub.Token})
	w := httptest.NewRecorder()
	h.Unsubscribe(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	stored, _ := store.New(db).GetSubscriberByID(context.Background(), sub.ID)
	if stored.Active {
		t.Error("subscriber should be inactive")
	}
}

func TestFrontendUnsubscribe_BadToken(t *testing.T) {
	db := testDB(t)
	h := newFrontendHandler(t, db)

	r := httptest.NewRequest("GET", "/unsubscribe/nope", nil)
	r = requestWithURLParams(r, map[string]string{"token": "nope"})
	w := httptest.NewRecorder()
	h.Unsubscribe(w, r)

	if w.Code != 404 {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSubscribeReturnPath(t *testing.T) {
	tests := []struct {
		name     string
		returnTo string
		referer  string
		want     string
	}{
		{"form value wins", "/blog", "https://example.com/about", "/blog"},
		{"referer fallback", "", "https://evil.example.com/phish", "/"},
		{"local referer", "", "/about", "/about"},
		{"empty", "", "", "/"},
		{"absolute url rejected", "https://evil.example.com/", "", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.returnTo != "" {
				form.Set("return_to", tt.returnTo)
			}
			r := httptest.NewRequest("POST", "/subscribe", strings.NewReader(form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.referer != "" {
				r.Header.Set("Referer", tt.referer)
			}
			if err := r.ParseForm(); err != nil {
				t.Fatalf("ParseForm: %v", err)
			}
			if got := subscribeReturnPath(r); got != tt.want {
				t.Errorf("subscribeReturnPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildBlogPagination(t *testing.T) {
	p := buildBlogPagination(2, 4, 40, 10, "recipes")

	if !p.HasPrev || !p.HasNext {
		t.Error("middle page should have prev and next")
	}
	if p.PrevURL != "/blog?category=recipes" {
		t.Errorf("PrevURL = %q", p.PrevURL)
	}
	if p.NextURL != "/blog/page/3?category=recipes" {
		t.Errorf("NextURL = %q", p.NextURL)
	}
	if p.LastURL != "/blog/page/4?category=recipes" {
		t.Errorf("LastURL = %q", p.LastURL)
	}
}
