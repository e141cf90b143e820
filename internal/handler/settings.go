// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/promontolio/promoblog/internal/auth"
	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/settings"
)

// SettingsHandler handles the site settings form.
type SettingsHandler struct {
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	settings       *settings.Store
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(renderer *render.Renderer, sm *scs.SessionManager, st *settings.Store) *SettingsHandler {
	return &SettingsHandler{
		renderer:       renderer,
		sessionManager: sm,
		settings:       st,
	}
}

// SettingsFormData holds data for the settings template.
type SettingsFormData struct {
	Settings   settings.Settings
	Categories []string
}

// Form handles GET /admin/settings - displays the settings form.
func (h *SettingsHandler) Form(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	data := SettingsFormData{
		Settings:   h.settings.Get(),
		Categories: model.ValidCategories,
	}

	if err := h.renderer.Render(w, r, "admin/settings", render.TemplateData{
		Title: "Settings",
		User:  user,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Save handles POST /admin/settings - persists the settings file.
func (h *SettingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminSettings) {
		return
	}

	current := h.settings.Get()
	next := current

	next.Site.Title = strings.TrimSpace(r.FormValue("site_title"))
	next.Site.Tagline = strings.TrimSpace(r.FormValue("site_tagline"))
	next.Site.Description = strings.TrimSpace(r.FormValue("site_description"))
	next.Site.ContactEmail = auth.NormalizeEmail(r.FormValue("contact_email"))
	next.Site.FooterText = strings.TrimSpace(r.FormValue("footer_text"))

	next.Content.PostsPerPage = formInt(r, "posts_per_page", current.Content.PostsPerPage)
	next.Content.ShowAuthor = r.FormValue("show_author") != ""
	next.Content.ShowViewCounts = r.FormValue("show_view_counts") != ""
	if category := r.FormValue("default_category"); model.IsValidCategory(category) {
		next.Content.DefaultCategory = category
	}

	next.Uploads.MaxSizeMB = formInt(r, "max_size_mb", current.Uploads.MaxSizeMB)
	next.Uploads.GenerateThumbs = r.FormValue("generate_thumbs") != ""

	next.Security.LoginMaxAttempts = formInt(r, "login_max_attempts", current.Security.LoginMaxAttempts)
	next.Security.LoginWindowMins = formInt(r, "login_window_mins", current.Security.LoginWindowMins)
	next.Security.SessionHours = formInt(r, "session_hours", current.Security.SessionHours)

	if err := h.settings.Save(next); err != nil {
		slog.Error("failed to save settings", "error", err, "saved_by", user.ID)
		flashError(w, r, h.renderer, redirectAdminSettings, capitalizeError(err))
		return
	}

	slog.Info("settings saved", "saved_by", user.ID)
	flashSuccess(w, r, h.renderer, redirectAdminSettings, "Settings saved successfully")
}

// formInt parses an integer form field, falling back to the current value
// when the field is missing or malformed.
func formInt(r *http.Request, name string, fallback int) int {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
