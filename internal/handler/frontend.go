// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/promontolio/promoblog/internal/auth"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/settings"
	"github.com/promontolio/promoblog/internal/store"
	"github.com/promontolio/promoblog/internal/uikit"
)

// HomeArticleCount is the number of latest articles shown on the homepage.
const HomeArticleCount = 3

// FrontendHandler handles the public site routes.
type FrontendHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	settings       *settings.Store
}

// NewFrontendHandler creates a new FrontendHandler.
func NewFrontendHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, st *settings.Store) *FrontendHandler {
	return &FrontendHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
		settings:       st,
	}
}

// HomeData holds data for the homepage template.
type HomeData struct {
	Latest []model.Article
}

// Home handles GET / - the landing page with the latest articles.
func (h *FrontendHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != RouteRoot {
		h.NotFound(w, r)
		return
	}

	latest, err := h.queries.ListPublishedArticles(r.Context(), "", HomeArticleCount, 0)
	if err != nil {
		slog.Error("failed to list latest articles", "error", err)
		// The homepage still renders without the article strip
	}

	if err := h.renderer.Render(w, r, "frontend/home", render.TemplateData{
		Title: h.settings.Get().Site.Title,
		Data:  HomeData{Latest: latest},
	}); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// About handles GET /about.
func (h *FrontendHandler) About(w http.ResponseWriter, r *http.Request) {
	h.renderStatic(w, r, "frontend/about", "About")
}

// Contact handles GET /contact.
func (h *FrontendHandler) Contact(w http.ResponseWriter, r *http.Request) {
	h.renderStatic(w, r, "frontend/contact", "Contact")
}

// Product handles GET /product - the olive oil product page.
func (h *FrontendHandler) Product(w http.ResponseWriter, r *http.Request) {
	h.renderStatic(w, r, "frontend/product", "Our Olive Oil")
}

func (h *FrontendHandler) renderStatic(w http.ResponseWriter, r *http.Request, name, title string) {
	if err := h.renderer.Render(w, r, name, render.TemplateData{Title: title}); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// BlogData holds data for the blog index template.
type BlogData struct {
	Articles   []model.Article
	Pagination uikit.Pagination
	Category   string
	Categories []string
}

// Blog handles GET /blog and GET /blog/page/{page} - the article index.
func (h *FrontendHandler) Blog(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := chi.URLParam(r, "page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			h.renderNotFound(w, r)
			return
		}
		page = n
	}

	category := r.URL.Query().Get("category")
	if category != "" && !model.IsValidCategory(category) {
		h.renderNotFound(w, r)
		return
	}

	perPage := h.settings.Get().Content.PostsPerPage
	if perPage < 1 {
		perPage = 9
	}

	total, err := h.queries.CountPublishedArticles(r.Context(), category)
	if err != nil {
		slog.Error("failed to count articles", "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	page, totalPages := uikit.NormalizePagination(page, int(total), perPage)

	articles, err := h.queries.ListPublishedArticles(r.Context(), category,
		int64(perPage), int64((page-1)*perPage))
	if err != nil {
		slog.Error("failed to list articles", "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	title := "Blog"
	if category != "" {
		title = render.CategoryLabel(category)
	}

	data := BlogData{
		Articles:   articles,
		Pagination: buildBlogPagination(page, totalPages, total, perPage, category),
		Category:   category,
		Categories: model.ValidCategories,
	}

	if err := h.renderer.Render(w, r, "frontend/blog", render.TemplateData{
		Title: title,
		Data:  data,
	}); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// ArticleData holds data for the single article template.
type ArticleData struct {
	Article        model.Article
	ShowAuthor     bool
	ShowViewCounts bool
}

// Article handles GET /blog/{slug} - a single published article.
func (h *FrontendHandler) Article(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	article, err := h.queries.GetPublishedArticleBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.renderNotFound(w, r)
			return
		}
		slog.Error("failed to get article", "error", err, "slug", slug)
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.queries.IncrementArticleViews(r.Context(), article.ID); err != nil {
		slog.Error("failed to increment views", "error", err, "article_id", article.ID)
	}

	content := h.settings.Get().Content

	title := article.Title
	if article.MetaTitle != "" {
		title = article.MetaTitle
	}

	if err := h.renderer.Render(w, r, "frontend/article", render.TemplateData{
		Title: title,
		Data: ArticleData{
			Article:        article,
			ShowAuthor:     content.ShowAuthor,
			ShowViewCounts: content.ShowViewCounts,
		},
	}); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// Subscribe handles POST /subscribe - adds a newsletter subscriber.
// The response is the same whether the address is new, already subscribed
// or reactivated, so the form cannot be used to enumerate the list.
func (h *FrontendHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, RouteRoot, "Invalid form data")
		return
	}

	email := auth.NormalizeEmail(r.FormValue("email"))
	name := strings.TrimSpace(r.FormValue("name"))
	backTo := subscribeReturnPath(r)

	if err := auth.ValidateEmail(email); err != nil {
		flashError(w, r, h.renderer, backTo, "Please enter a valid email address.")
		return
	}

	const thanks = "Thanks for subscribing! You'll hear from us soon."

	existing, err := h.queries.GetSubscriberByEmail(r.Context(), email)
	switch {
	case err == nil:
		if !existing.Active {
			if err := h.queries.SetSubscriberActive(r.Context(), existing.ID, true); err != nil {
				slog.Error("failed to reactivate subscriber", "error", err, "subscriber_id", existing.ID)
			} else {
				slog.Info("subscriber reactivated", "subscriber_id", existing.ID)
			}
		}
	case errors.Is(err, sql.ErrNoRows):
		now := time.Now()
		sub, err := h.queries.CreateSubscriber(r.Context(), store.CreateSubscriberParams{
			Email:     email,
			Name:      name,
			Token:     uuid.NewString(),
			Confirmed: true,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			// Unique races fall through to the generic thanks message
			if !store.IsUniqueConstraintErr(err) {
				slog.Error("failed to create subscriber", "error", err)
				flashError(w, r, h.renderer, backTo, "Something went wrong. Please try again.")
				return
			}
		} else {
			slog.Info("subscriber added", "subscriber_id", sub.ID)
		}
	default:
		slog.Error("failed to look up subscriber", "error", err)
		flashError(w, r, h.renderer, backTo, "Something went wrong. Please try again.")
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<p class="subscribe-thanks">%s</p>`, thanks)
		return
	}

	flashSuccess(w, r, h.renderer, backTo, thanks)
}

// Unsubscribe handles GET /unsubscribe/{token} - deactivates a subscriber.
func (h *FrontendHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	sub, err := h.queries.GetSubscriberByToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.renderNotFound(w, r)
			return
		}
		slog.Error("failed to look up token", "error", err)
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if err := h.queries.SetSubscriberActive(r.Context(), sub.ID, false); err != nil {
		slog.Error("failed to unsubscribe", "error", err, "subscriber_id", sub.ID)
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	slog.Info("subscriber unsubscribed", "subscriber_id", sub.ID)

	if err := h.renderer.Render(w, r, "frontend/unsubscribed", render.TemplateData{
		Title: "Unsubscribed",
	}); err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}

// NotFound handles unmatched routes.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderNotFound(w, r)
}

func (h *FrontendHandler) renderNotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	if err := h.renderer.Render(w, r, "frontend/404", render.TemplateData{
		Title: "Page Not Found",
	}); err != nil {
		fmt.Fprint(w, `<!DOCTYPE html><html><head><title>404 Not Found</title></head><body><h1>404 - Page Not Found</h1><p><a href="/">Back to homepage</a></p></body></html>`)
	}
}

func (h *FrontendHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	slog.Error("frontend render failure", "path", r.URL.Path, "status", status)
	w.WriteHeader(status)
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>%d</title></head><body><h1>%d - %s</h1><p><a href="/">Back to homepage</a></p></body></html>`, status, status, message)
}

// subscribeReturnPath decides where the subscribe form sends the visitor
// back to. Only local paths are accepted.
func subscribeReturnPath(r *http.Request) string {
	ref := r.FormValue("return_to")
	if ref == "" {
		ref = r.Referer()
	}
	if u, err := url.Parse(ref); err == nil && u.Host == "" && strings.HasPrefix(u.Path, "/") {
		return u.Path
	}
	return RouteRoot
}

// buildBlogPagination assembles frontend pagination for /blog/page/{n}.
func buildBlogPagination(page, totalPages int, total int64, perPage int, category string) uikit.Pagination {
	pageURL := func(n int) string {
		var path string
		if n <= 1 {
			path = RouteBlog
		} else {
			path = fmt.Sprintf("%s/page/%d", RouteBlog, n)
		}
		if category != "" {
			path += "?category=" + url.QueryEscape(category)
		}
		return path
	}

	p := uikit.Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalItems:  total,
		PerPage:     perPage,
		HasPrev:     page > 1,
		HasNext:     page < totalPages,
		HasFirst:    page > 1,
		HasLast:     page < totalPages,
		FirstURL:    pageURL(1),
		LastURL:     pageURL(totalPages),
	}
	if p.HasPrev {
		p.PrevURL = pageURL(page - 1)
	}
	if p.HasNext {
		p.NextURL = pageURL(page + 1)
	}
	p.Pages = uikit.BuildPaginationPages(page, totalPages, pageURL,
		func(number int, pageURL string, isCurrent, isEllipsis bool) uikit.PaginationPage {
			return uikit.PaginationPage{
				Number:     number,
				URL:        pageURL,
				IsCurrent:  isCurrent,
				IsEllipsis: isEllipsis,
			}
		})
	return p
}
