// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/promontolio/promoblog/internal/auth"
	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/store"
)

// ProfileHandler handles the logged-in user's own profile.
type ProfileHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *ProfileHandler {
	return &ProfileHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
	}
}

// ProfileFormData holds data for the profile template.
type ProfileFormData struct {
	Profile    *model.User
	Errors     map[string]string
	FormValues map[string]string
}

// Form handles GET /admin/profile - displays the profile form.
func (h *ProfileHandler) Form(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if err := h.renderer.Render(w, r, "admin/profile", render.TemplateData{
		Title: "My Profile",
		User:  user,
		Data: ProfileFormData{
			Profile:    user,
			Errors:     make(map[string]string),
			FormValues: make(map[string]string),
		},
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Update handles POST /admin/profile - updates the user's own details.
// Role and status stay untouched; self-service edits never escalate.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminProfile) {
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	email := auth.NormalizeEmail(r.FormValue("email"))
	firstName := strings.TrimSpace(r.FormValue("first_name"))
	lastName := strings.TrimSpace(r.FormValue("last_name"))
	bio := strings.TrimSpace(r.FormValue("bio"))
	avatarURL := strings.TrimSpace(r.FormValue("avatar_url"))

	formValues := map[string]string{
		"username":   username,
		"email":      email,
		"first_name": firstName,
		"last_name":  lastName,
		"bio":        bio,
		"avatar_url": avatarURL,
	}

	errs := make(map[string]string)
	if err := auth.ValidateUsername(username); err != nil {
		errs["username"] = err.Error()
	}
	if err := auth.ValidateEmail(email); err != nil {
		errs["email"] = err.Error()
	}

	if len(errs) > 0 {
		h.renderProfile(w, r, user, errs, formValues)
		return
	}

	updated, err := h.queries.UpdateUser(r.Context(), store.UpdateUserParams{
		ID:        user.ID,
		Username:  username,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Role:      user.Role,
		Status:    user.Status,
		// Changing the address drops its verified flag
		EmailVerified: user.EmailVerified && email == user.Email,
		Bio:           bio,
		AvatarURL:     avatarURL,
		UpdatedAt:     time.Now(),
	})
	if err != nil {
		if store.IsUniqueConstraintErr(err) {
			errs["email"] = "A user with this email or username already exists"
			h.renderProfile(w, r, user, errs, formValues)
			return
		}
		slog.Error("failed to update profile", "error", err, "user_id", user.ID)
		flashError(w, r, h.renderer, redirectAdminProfile, "Error updating profile")
		return
	}

	slog.Info("profile updated", "user_id", updated.ID)
	flashSuccess(w, r, h.renderer, redirectAdminProfile, "Profile updated successfully")
}

// ChangePassword handles POST /admin/profile/password.
func (h *ProfileHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminProfile) {
		return
	}

	current := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")
	confirm := r.FormValue("confirm_password")

	// The stored hash in the context user may be stale, fetch fresh
	stored, err := h.queries.GetUserByID(r.Context(), user.ID)
	if err != nil {
		logAndInternalError(w, "failed to load user", "error", err, "user_id", user.ID)
		return
	}

	valid, err := auth.CheckPassword(current, stored.PasswordHash)
	if err != nil || !valid {
		flashError(w, r, h.renderer, redirectAdminProfile, "Current password is incorrect")
		return
	}

	if err := auth.ValidatePassword(newPassword); err != nil {
		flashError(w, r, h.renderer, redirectAdminProfile, capitalizeError(err))
		return
	}
	if newPassword != confirm {
		flashError(w, r, h.renderer, redirectAdminProfile, "Passwords do not match")
		return
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		flashError(w, r, h.renderer, redirectAdminProfile, "Error changing password")
		return
	}

	if err := h.queries.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		slog.Error("failed to change password", "error", err, "user_id", user.ID)
		flashError(w, r, h.renderer, redirectAdminProfile, "Error changing password")
		return
	}

	// Invalidate other sessions the user may have by rotating this one
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		slog.Error("session renewal error", "error", err)
	}

	slog.Info("password changed", "user_id", user.ID)
	flashSuccess(w, r, h.renderer, redirectAdminProfile, "Password changed successfully")
}

func (h *ProfileHandler) renderProfile(w http.ResponseWriter, r *http.Request, user *model.User, errs, formValues map[string]string) {
	if err := h.renderer.Render(w, r, "admin/profile", render.TemplateData{
		Title: "My Profile",
		User:  user,
		Data: ProfileFormData{
			Profile:    user,
			Errors:     errs,
			FormValues: formValues,
		},
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}
