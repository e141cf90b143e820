// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"io"
	"net/http"

	"github.com/promontolio/promoblog/internal/model"
	"github.com/promontolio/promoblog/internal/seo"
)

// sitemapArticleCap bounds how many articles the sitemap lists.
const sitemapArticleCap = 1000

// Sitemap handles GET /sitemap.xml - lists the public pages and every
// published article.
func (h *FrontendHandler) Sitemap(w http.ResponseWriter, r *http.Request) {
	articles, err := h.queries.ListPublishedArticles(r.Context(), "", sitemapArticleCap, 0)
	if err != nil {
		logAndInternalError(w, "failed to build sitemap", "error", err)
		return
	}

	builder := seo.NewSitemapBuilder(siteBaseURL(r))
	builder.AddHomepage()
	builder.AddBlogIndex()
	for _, path := range []string{"/about", "/contact", "/product"} {
		builder.AddStatic(path)
	}
	for _, category := range model.ValidCategories {
		builder.AddCategory(category)
	}
	for _, a := range articles {
		builder.AddArticle(seo.SitemapArticle{Slug: a.Slug, UpdatedAt: a.UpdatedAt})
	}

	out, err := builder.Build()
	if err != nil {
		logAndInternalError(w, "failed to marshal sitemap", "error", err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	_, _ = w.Write(out)
}

// Robots handles GET /robots.txt.
func (h *FrontendHandler) Robots(w http.ResponseWriter, r *http.Request) {
	content := seo.BuildRobots(seo.RobotsConfig{SiteURL: siteBaseURL(r)})

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, content)
}

// siteBaseURL reconstructs the external base URL from the request. RealIP
// and proxy headers are already applied by the middleware stack.
func siteBaseURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
