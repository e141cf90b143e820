// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/store"
)

// Dashboard list and chart sizes.
const (
	// DashboardRecentLimit is the number of recent articles and
	// subscribers shown.
	DashboardRecentLimit = 5
	// DashboardPopularLimit is the number of most-viewed articles shown.
	DashboardPopularLimit = 10
	// DashboardMonths is the trailing window of the per-month charts.
	DashboardMonths = 6
)

// DashboardHandler handles the admin dashboard.
type DashboardHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager) *DashboardHandler {
	return &DashboardHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
	}
}

// DashboardData holds data for the dashboard template.
type DashboardData struct {
	Articles           store.ArticleStats
	Media              store.MediaStats
	Users              store.UserStats
	Subscribers        store.SubscriberStats
	ArticlesByMonth    []store.MonthCount
	SubscribersByMonth []store.MonthCount
	RecentArticles     []model.Article
	RecentSubscribers  []model.Subscriber
	PopularArticles    []model.Article
	Degraded           bool
}

// collectStats gathers every dashboard metric. Each metric degrades to its
// zero value on error so one broken query does not take down the whole
// page; Degraded records that at least one did.
func (h *DashboardHandler) collectStats(ctx context.Context) DashboardData {
	var data DashboardData
	var err error

	if data.Articles, err = h.queries.GetArticleStats(ctx); err != nil {
		slog.Error("failed to get article stats", "error", err)
		data.Degraded = true
	}
	if data.Media, err = h.queries.GetMediaStats(ctx); err != nil {
		slog.Error("failed to get media stats", "error", err)
		data.Degraded = true
	}
	if data.Users, err = h.queries.GetUserStats(ctx); err != nil {
		slog.Error("failed to get user stats", "error", err)
		data.Degraded = true
	}
	if data.Subscribers, err = h.queries.GetSubscriberStats(ctx); err != nil {
		slog.Error("failed to get subscriber stats", "error", err)
		data.Degraded = true
	}
	if data.ArticlesByMonth, err = h.queries.GetArticleMonthlyCounts(ctx, DashboardMonths); err != nil {
		slog.Error("failed to count articles by month", "error", err)
		data.Degraded = true
	}
	if data.SubscribersByMonth, err = h.queries.GetSubscriberMonthlyCounts(ctx, DashboardMonths); err != nil {
		slog.Error("failed to count subscribers by month", "error", err)
		data.Degraded = true
	}
	if data.RecentArticles, err = h.queries.ListRecentArticles(ctx, DashboardRecentLimit); err != nil {
		slog.Error("failed to list recent articles", "error", err)
		data.Degraded = true
	}
	if data.RecentSubscribers, err = h.queries.ListRecentSubscribers(ctx, DashboardRecentLimit); err != nil {
		slog.Error("failed to list recent subscribers", "error", err)
		data.Degraded = true
	}
	if data.PopularArticles, err = h.queries.ListPopularArticles(ctx, DashboardPopularLimit); err != nil {
		slog.Error("failed to list popular articles", "error", err)
		data.Degraded = true
	}
	return data
}

// Dashboard handles GET /admin - displays the stats overview.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)
	data := h.collectStats(r.Context())

	if err := h.renderer.Render(w, r, "admin/dashboard", render.TemplateData{
		Title: "Dashboard",
		User:  user,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// StatsJSON handles GET /admin/dashboard/stats - the dashboard metrics as
// a JSON feed.
func (h *DashboardHandler) StatsJSON(w http.ResponseWriter, r *http.Request) {
	data := h.collectStats(r.Context())

	writeJSONSuccess(w, map[string]any{
		"articles": map[string]any{
			"total":       data.Articles.Total,
			"published":   data.Articles.Published,
			"drafts":      data.Articles.Drafts,
			"total_views": data.Articles.TotalViews,
			"recent":      data.Articles.Recent,
			"this_month":  data.Articles.ThisMonth,
			"by_category": data.Articles.ByCategory,
			"by_month":    monthSeriesJSON(data.ArticlesByMonth),
		},
		"media": map[string]any{
			"total":      data.Media.Total,
			"total_size": data.Media.TotalSize,
			"by_type":    data.Media.ByType,
		},
		"users": map[string]any{
			"total":  data.Users.Total,
			"active": data.Users.Active,
		},
		"subscribers": map[string]any{
			"active":   data.Subscribers.Active,
			"recent":   data.Subscribers.Recent,
			"by_month": monthSeriesJSON(data.SubscribersByMonth),
		},
		"degraded": data.Degraded,
	})
}

// monthSeriesJSON renders a month series as an ordered list of
// {month, count} objects.
func monthSeriesJSON(series []store.MonthCount) []map[string]any {
	out := make([]map[string]any, 0, len(series))
	for _, mc := range series {
		out = append(out, map[string]any{"month": mc.Month, "count": mc.Count})
	}
	return out
}
