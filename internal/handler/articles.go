// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/promontolio/promoblog/internal/middleware"
	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/policy"
	"github.com/promontolio/promoblog/internal/render"
	"github.com/promontolio/promoblog/internal/settings"
	"github.com/promontolio/promoblog/internal/store"
	"github.com/promontolio/promoblog/internal/uikit"
	"github.com/promontolio/promoblog/internal/util"
)

// ArticlesPerPage is the number of articles to display per admin list page.
const ArticlesPerPage = 10

// ExcerptAutoLen is the length an auto-generated excerpt is truncated to.
const ExcerptAutoLen = 160

// ArticlesHandler handles article management routes.
type ArticlesHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	settings       *settings.Store
}

// NewArticlesHandler creates a new ArticlesHandler.
func NewArticlesHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, st *settings.Store) *ArticlesHandler {
	return &ArticlesHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
		settings:       st,
	}
}

// ArticlesListData holds data for the articles list template.
type ArticlesListData struct {
	Articles       []model.Article
	Pagination     uikit.AdminPagination
	Search         string
	CategoryFilter string
	StatusFilter   string
	Categories     []string
	Statuses       []string
}

// List handles GET /admin/articles - displays a paginated, filterable list.
func (h *ArticlesHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	page := uikit.ParsePageParam(r)
	search := strings.TrimSpace(r.URL.Query().Get("q"))

	categoryFilter := r.URL.Query().Get("category")
	if categoryFilter != "" && !model.IsValidCategory(categoryFilter) {
		categoryFilter = ""
	}

	statusFilter := r.URL.Query().Get("status")
	if statusFilter != "" && !model.IsValidArticleStatus(statusFilter) {
		statusFilter = ""
	}

	params := store.ListArticlesParams{
		Search:   search,
		Category: categoryFilter,
		Status:   statusFilter,
	}

	totalCount, err := h.queries.CountArticles(r.Context(), params)
	if err != nil {
		logAndInternalError(w, "failed to count articles", "error", err)
		return
	}

	page, _ = uikit.NormalizePagination(page, int(totalCount), ArticlesPerPage)
	params.Limit = ArticlesPerPage
	params.Offset = int64((page - 1) * ArticlesPerPage)

	articles, err := h.queries.ListArticles(r.Context(), params)
	if err != nil {
		logAndInternalError(w, "failed to list articles", "error", err)
		return
	}

	data := ArticlesListData{
		Articles:       articles,
		Pagination:     uikit.BuildAdminPagination(page, int(totalCount), ArticlesPerPage, redirectAdminArticles, r.URL.Query()),
		Search:         search,
		CategoryFilter: categoryFilter,
		StatusFilter:   statusFilter,
		Categories:     model.ValidCategories,
		Statuses:       model.ValidArticleStatuses,
	}

	if err := h.renderer.Render(w, r, "admin/articles_list", render.TemplateData{
		Title: "Articles",
		User:  user,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// ArticleFormData holds data for the article form template.
type ArticleFormData struct {
	Article    *model.Article
	Categories []string
	Statuses   []string
	CanPublish bool
	Errors     map[string]string
	FormValues map[string]string
	IsEdit     bool
}

// NewForm handles GET /admin/articles/new - displays the new article form.
func (h *ArticlesHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	data := ArticleFormData{
		Categories: model.ValidCategories,
		Statuses:   model.ValidArticleStatuses,
		CanPublish: policy.Allowed(user.Role, policy.ActionArticlePublish),
		Errors:     make(map[string]string),
		FormValues: make(map[string]string),
		IsEdit:     false,
	}

	if err := h.renderer.Render(w, r, "admin/articles_form", render.TemplateData{
		Title: "New Article",
		User:  user,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// articleForm holds the parsed and trimmed form fields shared by Create
// and Update.
type articleForm struct {
	Title           string
	Slug            string
	Excerpt         string
	Body            string
	Category        string
	Status          string
	CoverImage      string
	MetaTitle       string
	MetaDescription string
	Tags            string
}

func readArticleForm(r *http.Request) articleForm {
	return articleForm{
		Title:           strings.TrimSpace(r.FormValue("title")),
		Slug:            strings.TrimSpace(r.FormValue("slug")),
		Excerpt:         strings.TrimSpace(r.FormValue("excerpt")),
		Body:            r.FormValue("body"),
		Category:        r.FormValue("category"),
		Status:          r.FormValue("status"),
		CoverImage:      strings.TrimSpace(r.FormValue("cover_image")),
		MetaTitle:       strings.TrimSpace(r.FormValue("meta_title")),
		MetaDescription: strings.TrimSpace(r.FormValue("meta_description")),
		Tags:            strings.TrimSpace(r.FormValue("tags")),
	}
}

// articleFormValues prefills the edit form from a stored article. The slug
// is deliberately left blank so that saving recomputes it from the title
// unless the editor types one explicitly.
func articleFormValues(a model.Article) map[string]string {
	return map[string]string{
		"title":            a.Title,
		"slug":             "",
		"excerpt":          a.Excerpt,
		"body":             a.Body,
		"category":         a.Category,
		"status":           a.Status,
		"cover_image":      a.CoverImage,
		"meta_title":       a.MetaTitle,
		"meta_description": a.MetaDescription,
		"tags":             a.Tags,
	}
}

func (f articleForm) values() map[string]string {
	return map[string]string{
		"title":            f.Title,
		"slug":             f.Slug,
		"excerpt":          f.Excerpt,
		"body":             f.Body,
		"category":         f.Category,
		"status":           f.Status,
		"cover_image":      f.CoverImage,
		"meta_title":       f.MetaTitle,
		"meta_description": f.MetaDescription,
		"tags":             f.Tags,
	}
}

// validate checks the common field constraints and returns a map of
// field errors. Slug and status are validated separately because their
// rules differ between create and update.
func (f articleForm) validate() map[string]string {
	errs := make(map[string]string)

	if f.Title == "" {
		errs["title"] = "Title is required"
	} else if len(f.Title) < 2 {
		errs["title"] = "Title must be at least 2 characters"
	} else if len(f.Title) > model.ArticleTitleMaxLen {
		errs["title"] = fmt.Sprintf("Title must be at most %d characters", model.ArticleTitleMaxLen)
	}

	if len(f.Excerpt) > model.ArticleExcerptMaxLen {
		errs["excerpt"] = fmt.Sprintf("Excerpt must be at most %d characters", model.ArticleExcerptMaxLen)
	}

	if f.Category != "" && !model.IsValidCategory(f.Category) {
		errs["category"] = "Invalid category"
	}

	if len(f.MetaTitle) > model.MetaTitleMaxLen {
		errs["meta_title"] = fmt.Sprintf("Meta title must be at most %d characters", model.MetaTitleMaxLen)
	}
	if len(f.MetaDescription) > model.MetaDescriptionMaxLen {
		errs["meta_description"] = fmt.Sprintf("Meta description must be at most %d characters", model.MetaDescriptionMaxLen)
	}

	return errs
}

// slugExistsChecker returns a SlugExistsFunc backed by the articles table.
func (h *ArticlesHandler) slugExistsChecker(r *http.Request, slug string) SlugExistsFunc {
	return func() (int64, error) {
		_, err := h.queries.GetArticleBySlug(r.Context(), slug)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		if err != nil {
			return 0, err
		}
		return 1, nil
	}
}

// Create handles POST /admin/articles - creates a new article.
func (h *ArticlesHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminArticlesNew) {
		return
	}

	form := readArticleForm(r)
	formValues := form.values()
	errs := form.validate()

	if form.Slug == "" {
		form.Slug = util.Slugify(form.Title)
		formValues["slug"] = form.Slug
	}
	if msg := ValidateSlugWithChecker(form.Slug, h.slugExistsChecker(r, form.Slug)); msg != "" {
		errs["slug"] = msg
	}

	if form.Category == "" {
		form.Category = h.settings.Get().Content.DefaultCategory
		formValues["category"] = form.Category
	}

	if form.Status == "" {
		form.Status = model.ArticleStatusDraft
		formValues["status"] = form.Status
	} else if !model.IsValidArticleStatus(form.Status) {
		errs["status"] = "Invalid status"
	} else if form.Status == model.ArticleStatusPublished && !policy.Allowed(user.Role, policy.ActionArticlePublish) {
		errs["status"] = "You do not have permission to publish articles"
	}

	if len(errs) > 0 {
		data := ArticleFormData{
			Categories: model.ValidCategories,
			Statuses:   model.ValidArticleStatuses,
			CanPublish: policy.Allowed(user.Role, policy.ActionArticlePublish),
			Errors:     errs,
			FormValues: formValues,
			IsEdit:     false,
		}
		if err := h.renderer.Render(w, r, "admin/articles_form", render.TemplateData{
			Title: "New Article",
			User:  user,
			Data:  data,
		}); err != nil {
			logAndInternalError(w, "render error", "error", err)
		}
		return
	}

	if form.Excerpt == "" {
		form.Excerpt = generateExcerpt(form.Body, ExcerptAutoLen)
	}

	now := time.Now()
	var publishedAt sql.NullTime
	if form.Status == model.ArticleStatusPublished {
		publishedAt = sql.NullTime{Time: now, Valid: true}
	}

	article, err := h.queries.CreateArticle(r.Context(), store.CreateArticleParams{
		Title:           form.Title,
		Slug:            form.Slug,
		Excerpt:         form.Excerpt,
		Body:            form.Body,
		Category:        form.Category,
		Status:          form.Status,
		AuthorID:        user.ID,
		CoverImage:      form.CoverImage,
		MetaTitle:       form.MetaTitle,
		MetaDescription: form.MetaDescription,
		Tags:            form.Tags,
		PublishedAt:     publishedAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		slog.Error("failed to create article", "error", err)
		flashError(w, r, h.renderer, redirectAdminArticlesNew, "Error creating article")
		return
	}

	slog.Info("article created", "article_id", article.ID, "slug", article.Slug, "created_by", user.ID)
	flashSuccess(w, r, h.renderer, redirectAdminArticles, "Article created successfully")
}

// EditForm handles GET /admin/articles/{id} - displays the edit form.
func (h *ArticlesHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminArticles, "Invalid article ID")
		return
	}

	article, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminArticles, "article", id,
		func(id int64) (model.Article, error) { return h.queries.GetArticleByID(r.Context(), id) })
	if !ok {
		return
	}

	if !policy.CanEditArticle(user, article.AuthorID) {
		flashError(w, r, h.renderer, redirectAdminArticles, "You can only edit your own articles")
		return
	}

	data := ArticleFormData{
		Article:    &article,
		Categories: model.ValidCategories,
		Statuses:   model.ValidArticleStatuses,
		CanPublish: policy.Allowed(user.Role, policy.ActionArticlePublish),
		Errors:     make(map[string]string),
		FormValues: articleFormValues(article),
		IsEdit:     true,
	}

	if err := h.renderer.Render(w, r, "admin/articles_form", render.TemplateData{
		Title: "Edit Article",
		User:  user,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "render error", "error", err)
	}
}

// Update handles POST /admin/articles/{id} - updates an existing article.
func (h *ArticlesHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		flashError(w, r, h.renderer, redirectAdminArticles, "Invalid article ID")
		return
	}

	existing, ok := requireEntityWithRedirect(w, r, h.renderer, redirectAdminArticles, "article", id,
		func(id int64) (model.Article, error) { return h.queries.GetArticleByID(r.Context(), id) })
	if !ok {
		return
	}

	if !policy.CanEditArticle(user, existing.AuthorID) {
		flashError(w, r, h.renderer, redirectAdminArticles, "You can only edit your own articles")
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, fmt.Sprintf(redirectAdminArticlesID, id)) {
		return
	}

	form := readArticleForm(r)
	formValues := form.values()
	errs := form.validate()

	if form.Slug == "" {
		form.Slug = util.Slugify(form.Title)
		formValues["slug"] = form.Slug
	}
	if msg := ValidateSlugForUpdate(form.Slug, existing.Slug, h.slugExistsChecker(r, form.Slug)); msg != "" {
		errs["slug"] = msg
	}

	if form.Category == "" {
		form.Category = existing.Category
		formValues["category"] = form.Category
	}

	if form.Status == "" {
		form.Status = existing.Status
		formValues["status"] = form.Status
	} else if !model.IsValidArticleStatus(form.Status) {
		errs["status"] = "Invalid status"
	} else if form.Status == model.ArticleStatusPublished && existing.Status != model.ArticleStatusPublished &&
		!policy.Allowed(user.Role, policy.ActionArticlePublish) {
		errs["status"] = "You do not have permission to publish articles"
	}

	if len(errs) > 0 {
		data := ArticleFormData{
			Article:    &existing,
			Categories: model.ValidCategories,
			Statuses:   model.ValidArticleStatuses,
			CanPublish: policy.Allowed(user.Role, policy.ActionArticlePublish),
			Errors:     errs,
			FormValues: formValues,
			IsEdit:     true,
		}
		if err := h.renderer.Render(w, r, "admin/articles_form", render.TemplateData{
			Title: "Edit Article",
			User:  user,
			Data:  data,
		}); err != nil {
			logAndInternalError(w, "render error", "error", err)
		}
		return
	}

	if form.Excerpt == "" {
		form.Excerpt = generateExcerpt(form.Body, ExcerptAutoLen)
	}

	now := time.Now()

	// PublishedAt is set once on the first publish and preserved after,
	// including through unpublish/republish cycles
	publishedAt := existing.PublishedAt
	if form.Status == model.ArticleStatusPublished && !publishedAt.Valid {
		publishedAt = sql.NullTime{Time: now, Valid: true}
	}

	updated, err := h.queries.UpdateArticle(r.Context(), store.UpdateArticleParams{
		ID:              id,
		Title:           form.Title,
		Slug:            form.Slug,
		Excerpt:         form.Excerpt,
		Body:            form.Body,
		Category:        form.Category,
		Status:          form.Status,
		CoverImage:      form.CoverImage,
		MetaTitle:       form.MetaTitle,
		MetaDescription: form.MetaDescription,
		Tags:            form.Tags,
		PublishedAt:     publishedAt,
		UpdatedAt:       now,
	})
	if err != nil {
		slog.Error("failed to update article", "error", err, "article_id", id)
		flashError(w, r, h.renderer, fmt.Sprintf(redirectAdminArticlesID, id), "Error updating article")
		return
	}

	slog.Info("article updated", "article_id", updated.ID, "slug", updated.Slug, "updated_by", user.ID)
	flashSuccess(w, r, h.renderer, redirectAdminArticles, "Article updated successfully")
}

// Delete handles DELETE /admin/articles/{id} - deletes an article.
func (h *ArticlesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	id, err := ParseIDParam(r)
	if err != nil {
		http.Error(w, "Invalid article ID", http.StatusBadRequest)
		return
	}

	article, ok := requireEntityWithError(w, "article", id,
		func(id int64) (model.Article, error) { return h.queries.GetArticleByID(r.Context(), id) })
	if !ok {
		return
	}

	if !policy.CanDeleteArticle(user, article.AuthorID) {
		http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
		return
	}

	if err := h.queries.DeleteArticle(r.Context(), id); err != nil {
		slog.Error("failed to delete article", "error", err, "article_id", id)
		http.Error(w, "Error deleting article", http.StatusInternalServerError)
		return
	}

	slog.Info("article deleted", "article_id", id, "slug", article.Slug, "deleted_by", user.ID)

	// For HTMX requests, return empty response (row removed)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Trigger", `{"showToast": "Article deleted"}`)
		w.WriteHeader(http.StatusOK)
		return
	}

	flashSuccess(w, r, h.renderer, redirectAdminArticles, "Article deleted successfully")
}

// generateExcerpt produces a plain-text excerpt from a markdown body,
// truncated at a word boundary.
func generateExcerpt(body string, maxLen int) string {
	var b strings.Builder
	inTag := false
	for _, r := range body {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			// Drop common markdown markup characters
			switch r {
			case '#', '*', '`', '_', '[', ']', '(', ')':
				b.WriteRune(' ')
			default:
				b.WriteRune(r)
			}
		}
	}

	text := strings.Join(strings.Fields(b.String()), " ")
	if len(text) <= maxLen {
		return text
	}

	truncated := text[:maxLen]
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}
	return truncated + "…"
}
