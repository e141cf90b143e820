// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/session"
	"github.com/promontolio/promoblog/internal/store"
)

func loginRequest(t *testing.T, h *AuthHandler, login, password string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{}
	form.Set("username", login)
	form.Set("password", password)

	r := httptest.NewRequest("POST", "/auth/login", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r = requestWithSession(t, h.sessionManager, r)

	w := httptest.NewRecorder()
	h.Login(w, r)
	return w
}

func TestLogin_Success(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewAuthHandler(db, testRenderer(t), sm, nil)

	user := createHandlerUser(t, db, "alice", "alice@example.com", model.RoleAdmin)

	w := loginRequest(t, h, "alice@example.com", "password123")

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin" {
		t.Errorf("Location = %q, want /admin", loc)
	}

	// Login should bump the login counter and timestamp
	stored, err := store.New(db).GetUserByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if stored.LoginCount != 1 {
		t.Errorf("LoginCount = %d, want 1", stored.LoginCount)
	}
	if !stored.LastLoginAt.Valid {
		t.Error("LastLoginAt should be set")
	}
}

func TestLogin_WithUsername(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewAuthHandler(db, testRenderer(t), sm, nil)

	createHandlerUser(t, db, "alice", "alice@example.com", model.RoleAdmin)

	w := loginRequest(t, h, "alice", "password123")

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin" {
		t.Errorf("Location = %q, want /admin", loc)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewAuthHandler(db, testRenderer(t), sm, nil)

	createHandlerUser(t, db, "bob", "bob@example.com", model.RoleEditor)

	w := loginRequest(t, h, "bob@example.com", "wrong-password")

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/auth/login" {
		t.Errorf("Location = %q, want /auth/login", loc)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewAuthHandler(db, testRenderer(t), sm, nil)

	w := loginRequest(t, h, "nobody@example.com", "password123")

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/auth/login" {
		t.Errorf("Location = %q, want /auth/login", loc)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewAuthHandler(db, testRenderer(t), sm, nil)

	user := createHandlerUser(t, db, "carol", "carol@example.com", model.RoleAuthor)
	if err := store.New(db).UpdateUserStatus(context.Background(), user.ID, model.StatusSuspended); err != nil {
		t.Fatalf("UpdateUserStatus: %v", err)
	}

	w := loginRequest(t, h, "carol@example.com", "password123")

	if loc := w.Header().Get("Location"); loc != "/auth/login" {
		t.Errorf("Location = %q, want /auth/login", loc)
	}

	// A suspended login must not count as a successful one
	stored, _ := store.New(db).GetUserByID(context.Background(), user.ID)
	if stored.LoginCount != 0 {
		t.Errorf("LoginCount = %d, want 0", stored.LoginCount)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewAuthHandler(db, testRenderer(t), sm, nil)

	w := loginRequest(t, h, "", "")

	if loc := w.Header().Get("Location"); loc != "/auth/login" {
		t.Errorf("Location = %q, want /auth/login", loc)
	}
}

func TestLogin_AccountLockout(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)

	cfg := middleware.DefaultLoginProtectionConfig()
	cfg.MaxFailedAttempts = 2
	lp := middleware.NewLoginProtection(cfg)
	h := NewAuthHandler(db, testRenderer(t), sm, lp)

	createHandlerUser(t, db, "dave", "dave@example.com", model.RoleEditor)

	for i := 0; i < 3; i++ {
		loginRequest(t, h, "dave@example.com", "wrong-password")
	}

	// Even the correct password is rejected while locked
	w := loginRequest(t, h, "dave@example.com", "password123")
	if loc := w.Header().Get("Location"); loc != "/auth/login" {
		t.Errorf("Location = %q, want /auth/login", loc)
	}
}

func TestLogout(t *testing.T) {
	db := testDB(t)
	sm := testSessionManager(t)
	h := NewAuthHandler(db, testRenderer(t), sm, nil)

	user := createHandlerUser(t, db, "erin", "erin@example.com", model.RoleAdmin)

	r := httptest.NewRequest("POST", "/auth/logout", nil)
	r = requestWithSession(t, sm, r)
	if err := session.Login(r.Context(), sm, user.ID); err != nil {
		t.Fatalf("session.Login: %v", err)
	}

	w := httptest.NewRecorder()
	h.Logout(w, r)

	if w.Code != 303 {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/auth/login" {
		t.Errorf("Location = %q, want /auth/login", loc)
	}
	if id := session.UserID(r.Context(), sm); id != 0 {
		t.Errorf("session user id = %d, want 0 after logout", id)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "30 seconds"},
		{time.Minute, "1 minute"},
		{5 * time.Minute, "5 minutes"},
		{time.Hour, "1 hour"},
		{3 * time.Hour, "3 hours"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
