// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/settings"
)

func settingsRequest(t *testing.T, h *SettingsHandler, actor model.User, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest("POST", "/admin/settings", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r = requestWithUser(r, actor)
	w := httptest.NewRecorder()
	h.Save(w, r)
	return w
}

func TestSettingsForm(t *testing.T) {
	db := testDB(t)
	h := NewSettingsHandler(testRenderer(t), testSessionManager(t), testSettings(t))
	admin := createHandlerUser(t, db, "admin", "admin@example.com", model.RoleAdmin)

	r := httptest.NewRequest("GET", "/admin/settings", nil)
	r = requestWithUser(r, admin)

	w := httptest.NewRecorder()
	h.Form(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestSettingsSave(t *testing.T) {
	db := testDB(t)
	st := testSettings(t)
	h := NewSettingsHandler(testRenderer(t), testSessionManager(t), st)
	admin := createHandlerUser(t, db, "admin", "admin@example.com", model.RoleAdmin)

	form := url.Values{}
	form.Set("site_title", "Promontolio")
	form.Set("site_tagline", "Olive oil from the headland")
	form.Set("contact_email", "Hello@Promontolio.Example")
	form.Set("posts_per_page", "12")
	form.Set("show_author", "on")
	form.Set("default_category", model.CategoryRecipes)
	form.Set("max_size_mb", "20")

	w := settingsRequest(t, h, admin, form)

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303", w.Code)
	}

	got := st.Get()
	if got.Site.Title != "Promontolio" {
		t.Errorf("Site.Title = %q", got.Site.Title)
	}
	if got.Site.ContactEmail != "hello@promontolio.example" {
		t.Errorf("ContactEmail = %q, want normalized lowercase", got.Site.ContactEmail)
	}
	if got.Content.PostsPerPage != 12 {
		t.Errorf("PostsPerPage = %d, want 12", got.Content.PostsPerPage)
	}
	if !got.Content.ShowAuthor {
		t.Error("ShowAuthor should be true")
	}
	if got.Content.DefaultCategory != model.CategoryRecipes {
		t.Errorf("DefaultCategory = %q", got.Content.DefaultCategory)
	}
	if got.Uploads.MaxSizeMB != 20 {
		t.Errorf("MaxSizeMB = %d, want 20", got.Uploads.MaxSizeMB)
	}
}

func TestSettingsSave_InvalidRejected(t *testing.T) {
	db := testDB(t)
	st := testSettings(t)
	h := NewSettingsHandler(testRenderer(t), testSessionManager(t), st)
	admin := createHandlerUser(t, db, "admin", "admin@example.com", model.RoleAdmin)
	before := st.Get()

	form := url.Values{}
	form.Set("site_title", "") // title must not be empty
	form.Set("posts_per_page", "12")

	w := settingsRequest(t, h, admin, form)

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303 (redirect with error)", w.Code)
	}
	if got := st.Get(); got.Site.Title != before.Site.Title {
		t.Errorf("Site.Title = %q, invalid save must not stick", got.Site.Title)
	}
}

func TestSettingsSave_OutOfRangeRejected(t *testing.T) {
	db := testDB(t)
	st := testSettings(t)
	h := NewSettingsHandler(testRenderer(t), testSessionManager(t), st)
	admin := createHandlerUser(t, db, "admin", "admin@example.com", model.RoleAdmin)
	before := st.Get()

	form := url.Values{}
	form.Set("site_title", "Promontolio")
	form.Set("posts_per_page", "500")

	w := settingsRequest(t, h, admin, form)

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303 (redirect with error)", w.Code)
	}
	if got := st.Get(); got.Content.PostsPerPage != before.Content.PostsPerPage {
		t.Errorf("PostsPerPage = %d, out-of-range save must not stick", got.Content.PostsPerPage)
	}
}

func TestDefaultsValid(t *testing.T) {
	// Defaults must round-trip through Save without tripping validation.
	st := testSettings(t)
	if err := st.Save(settings.Defaults()); err != nil {
		t.Fatalf("Save(Defaults()): %v", err)
	}
}

func TestFormInt(t *testing.T) {
	form := url.Values{}
	form.Set("good", "7")
	form.Set("bad", "seven")

	r := httptest.NewRequest("POST", "/", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := r.ParseForm(); err != nil {
		t.Fatalf("ParseForm: %v", err)
	}

	if got := formInt(r, "good", 1); got != 7 {
		t.Errorf("formInt(good) = %d, want 7", got)
	}
	if got := formInt(r, "bad", 1); got != 1 {
		t.Errorf("formInt(bad) = %d, want fallback 1", got)
	}
	if got := formInt(r, "missing", 3); got != 3 {
		t.Errorf("formInt(missing) = %d, want fallback 3", got)
	}
}
