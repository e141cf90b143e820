// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/policy"
)

func requestWithRole(method, target, role string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	user := model.User{ID: 1, Role: role, Status: model.StatusActive}
	return req.WithContext(context.WithValue(req.Context(), ContextKeyUser, user))
}

func TestRequire(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		action     policy.Action
		role       string
		expectCode int
	}{
		{"author can view dashboard", policy.ActionDashboardView, model.RoleAuthor, http.StatusOK},
		{"author can create articles", policy.ActionArticleCreate, model.RoleAuthor, http.StatusOK},
		{"author cannot publish", policy.ActionArticlePublish, model.RoleAuthor, http.StatusForbidden},
		{"editor can publish", policy.ActionArticlePublish, model.RoleEditor, http.StatusOK},
		{"editor cannot manage users", policy.ActionUserList, model.RoleEditor, http.StatusForbidden},
		{"admin can manage users", policy.ActionUserList, model.RoleAdmin, http.StatusOK},
		{"admin can manage settings", policy.ActionSettingsManage, model.RoleAdmin, http.StatusOK},
		{"super can manage settings", policy.ActionSettingsManage, model.RoleSuper, http.StatusOK},
		{"unknown role forbidden", policy.ActionDashboardView, "guest", http.StatusForbidden},
		{"empty role forbidden", policy.ActionDashboardView, "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := Require(tt.action)
			req := requestWithRole("GET", "/admin/test", tt.role)
			rr := httptest.NewRecorder()

			mw(handler).ServeHTTP(rr, req)

			if rr.Code != tt.expectCode {
				t.Errorf("role %q action %q: got %d, want %d", tt.role, tt.action, rr.Code, tt.expectCode)
			}
		})
	}
}

func TestRequire_NoUserRedirectsToLogin(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw := Require(policy.ActionDashboardView)
	req := httptest.NewRequest("GET", "/admin", nil)
	rr := httptest.NewRecorder()

	mw(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusSeeOther {
		t.Errorf("expected redirect (303), got %d", rr.Code)
	}
	if location := rr.Header().Get("Location"); location != "/auth/login" {
		t.Errorf("expected redirect to /auth/login, got %s", location)
	}
}

func TestRequire_ForbiddenMessage(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw := Require(policy.ActionUserList)
	req := requestWithRole("GET", "/admin/users", model.RoleAuthor)
	rr := httptest.NewRecorder()

	mw(handler).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403 Forbidden, got %d", rr.Code)
	}
	if rr.Body.String() == "" {
		t.Error("expected non-empty error message in response body")
	}
}

func TestRequire_CaseSensitiveRoles(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw := Require(policy.ActionUserList)

	tests := []struct {
		role       string
		expectCode int
	}{
		{"admin", http.StatusOK},
		{"Admin", http.StatusForbidden},
		{"ADMIN", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			req := requestWithRole("GET", "/admin/users", tt.role)
			rr := httptest.NewRecorder()
			mw(handler).ServeHTTP(rr, req)
			if rr.Code != tt.expectCode {
				t.Errorf("role %q: got %d, want %d", tt.role, rr.Code, tt.expectCode)
			}
		})
	}
}

func TestRequire_DifferentHTTPMethods(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mw := Require(policy.ActionMediaUpload)
	methods := []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			req := requestWithRole(method, "/admin/media/upload", model.RoleAuthor)
			rr := httptest.NewRecorder()
			mw(handler).ServeHTTP(rr, req)
			if rr.Code != http.StatusOK {
				t.Errorf("method %s: got %d, want %d", method, rr.Code, http.StatusOK)
			}
		})
	}
}
