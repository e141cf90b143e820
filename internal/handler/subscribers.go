// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/store"
	"github.com/promontolio/promoblog/internal/uikit"
)

// SubscribersPerPage is the number of subscribers per admin list page.
const SubscribersPerPage = 25

// SubscribersHandler handles newsletter subscriber management routes.
type SubscribersHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewSubscribersHandler creates a new SubscribersHandler.
func NewSubscribersHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *SubscribersHandler {
	return &SubscribersHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
	}
}

// SubscribersListData holds data for the subscribers list template.
type SubscribersListData struct {
	Subscribers  []model.Subscriber
	Pagination   uikit.AdminPagination
	Search       string
	ActiveFilter string
	TotalActive  int64
}

// List handles GET /admin/subscribers - displays the subscriber list.
func (h *SubscribersHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	page := uikit.ParsePageParam(r)
	search := strings.TrimSpace(r.URL.Query().Get("q"))
	activeFilter := r.URL.Query().Get("active")

	params := store.ListSubscribersParams{
		Search: search,
		Active: parseActiveFilter(activeFilter),
	}

	totalCount, err := h.queries.CountSubscribers(r.Context(), params)
	if err != nil {
		logAndInternalError(w, "failed to count subscribers", "error", err)
		return
	}

	page, _ = uikit.NormalizePagination(page, int(totalCount), SubscribersPerPage)
	params.Limit = SubscribersPerPage
	params.Offset = int64((page - 1) * SubscribersPerPage)

	subscribers, err := h.queries.ListSubscribers(r.Context(), params)
	if err != nil {
		logAndInternalError(w, "failed to list subscribers", "error", err)
		return
	}

	totalActive, err := h.queries.CountActiveSubscribers(r.Context())
	if err != nil {
		slog.Error("failed to count active subscribers", "error", err)
	}

	data := SubscribersListData{
		Subscribers:  subscribers,
		Pagination:   uikit.BuildAdminPagination(page, int(totalCount), SubscribersPerPage, redirectAdminSubscribers, r.URL.Query()),
		Search:       search,
		ActiveFilter: activeFilter,
		TotalActive:  totalActive,
	}

	if err := h.renderer.Render(w, r, "admin/subscribers_list", render.TemplateData{
		Title: "Subscribers",
		User:  user,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// ToggleActive handles POST /admin/subscribers/{id}/toggle - flips the
// active flag.
func (h *SubscribersHandler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminSubscribers, "Invalid subscriber ID")
		return
	}

	sub, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminSubscribers, "subscriber", id,
		func(id int64) (model.Subscriber, error) { return h.queries.GetSubscriberByID(r.Context(), id) })
	if !ok {
		return
	}

	if err := h.queries.SetSubscriberActive(r.Context(), id, !sub.Active); err != nil {
		slog.Error("failed to toggle subscriber", "error", err, "subscriber_id", id)
		flashError(w, r, h.renderer, redirectAdminSubscribers, "Error updating subscriber")
		return
	}

	slog.Info("subscriber toggled", "subscriber_id", id, "active", !sub.Active, "changed_by", user.ID)
	flashSuccess(w, r, h.renderer, redirectAdminSubscribers, "Subscriber updated")
}

// Delete handles DELETE /admin/subscribers/{id} - removes a subscriber.
func (h *SubscribersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid subscriber ID", http.StatusBadRequest)
		return
	}

	if err := h.queries.DeleteSubscriber(r.Context(), id); err != nil {
		slog.Error("failed to delete subscriber", "error", err, "subscriber_id", id)
		http.Error(w, "Error deleting subscriber", http.StatusInternalServerError)
		return
	}

	slog.Info("subscriber deleted", "subscriber_id", id, "deleted_by", user.ID)

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Trigger", `{"showToast": "Subscriber deleted"}`)
		w.WriteHeader(http.StatusOK)
		return
	}

	flashSuccess(w, r, h.renderer, redirectAdminSubscribers, "Subscriber deleted successfully")
}

// ExportCSV handles GET /admin/subscribers/export - downloads the active
// subscriber list as CSV.
func (h *SubscribersHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	active := true
	subscribers, err := h.queries.ListSubscribers(r.Context(), store.ListSubscribersParams{
		Active: &active,
		Limit:  100000,
	})
	if err != nil {
		logAndInternalError(w, "failed to export subscribers", "error", err)
		return
	}

	filename := fmt.Sprintf("subscribers-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"email", "name", "subscribed_at"})
	for _, s := range subscribers {
		_ = cw.Write([]string{s.Email, s.Name, s.CreatedAt.Format(time.RFC3339)})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		slog.Error("csv write error", "error", err)
	}

	slog.Info("subscribers exported", "count", len(subscribers), "exported_by", user.ID)
}

// parseActiveFilter maps the query value to the tri-state filter.
func parseActiveFilter(v string) *bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}
