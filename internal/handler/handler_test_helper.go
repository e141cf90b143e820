// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/promontolio/promoblog/internal/auth"
	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/settings"
	"github.com/promontolio/promoblog/internal/store"
)

// testPasswordHash is a pre-computed argon2id hash of "password123" so
// tests do not pay the hashing cost on every user insert.
var testPasswordHash string

func passwordHash(t *testing.T) string {
	t.Helper()
	if testPasswordHash == "" {
		hash, err := auth.HashPassword("password123")
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		testPasswordHash = hash
	}
	return testPasswordHash
}

// testDB creates a migrated temporary database.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "promoblog-test.db")
	db, err := store.NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// testSessionManager creates an in-memory session manager.
func testSessionManager(t *testing.T) *scs.SessionManager {
	t.Helper()
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return sm
}

// testTemplates provides stub templates for every page the handlers
// render, so render paths return 200 without the real template tree.
func testTemplates() fstest.MapFS {
	base := &fstest.MapFile{Data: []byte(`{{define "base"}}ok{{end}}`)}
	stub := &fstest.MapFile{Data: []byte(``)}

	return fstest.MapFS{
		"layouts/base.html":     base,
		"layouts/admin.html":    stub,
		"layouts/frontend.html": base,

		"auth/login.html": stub,

		"admin/dashboard.html":        stub,
		"admin/articles_list.html":    stub,
		"admin/articles_form.html":    stub,
		"admin/media_library.html":    stub,
		"admin/media_upload.html":     stub,
		"admin/media_edit.html":       stub,
		"admin/users_list.html":       stub,
		"admin/users_form.html":       stub,
		"admin/subscribers_list.html": stub,
		"admin/settings.html":         stub,
		"admin/profile.html":          stub,

		"frontend/home.html":         stub,
		"frontend/about.html":        stub,
		"frontend/contact.html":      stub,
		"frontend/product.html":      stub,
		"frontend/blog.html":         stub,
		"frontend/article.html":      stub,
		"frontend/unsubscribed.html": stub,
		"frontend/404.html":          stub,
	}
}

// testRenderer creates a renderer backed by stub templates.
func testRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.New(render.Config{TemplatesFS: testTemplates()})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return r
}

// testSettings creates a settings store in a temp directory.
func testSettings(t *testing.T) *settings.Store {
	t.Helper()
	st, err := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("settings.NewStore: %v", err)
	}
	return st
}

// createHandlerUser inserts a user with the shared test password.
func createHandlerUser(t *testing.T, db *sql.DB, username, email, role string) model.User {
	t.Helper()
	now := time.Now()
	u, err := store.New(db).CreateUser(context.Background(), store.CreateUserParams{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash(t),
		Role:         role,
		Status:       model.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

// requestWithUser attaches an authenticated user to the request context.
func requestWithUser(r *http.Request, user model.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, user)
	return r.WithContext(ctx)
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithSession loads a fresh session into the request context.
func requestWithSession(t *testing.T, sm *scs.SessionManager, r *http.Request) *http.Request {
	t.Helper()
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		t.Fatalf("session load: %v", err)
	}
	return r.WithContext(ctx)
}

// mustWriteFile writes content under dir, creating parents.
func mustWriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
