// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"strings"
	"time"
)

// Article statuses.
const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
)

// ValidArticleStatuses contains all valid article statuses.
var ValidArticleStatuses = []string{ArticleStatusDraft, ArticleStatusPublished}

// Article categories.
const (
	CategoryOliveOilGuide  = "olive-oil-guide"
	CategoryRecipes        = "recipes"
	CategoryHealthBenefits = "health-benefits"
	CategoryProduction     = "production"
	CategoryNews           = "news"
)

// ValidCategories contains all valid article categories.
var ValidCategories = []string{
	CategoryOliveOilGuide,
	CategoryRecipes,
	CategoryHealthBenefits,
	CategoryProduction,
	CategoryNews,
}

// Article field length limits enforced on create and update.
const (
	ArticleTitleMaxLen    = 100
	ArticleExcerptMaxLen  = 300
	MetaTitleMaxLen       = 60
	MetaDescriptionMaxLen = 160
)

// IsValidCategory reports whether category is one of the enumerated categories.
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}

// IsValidArticleStatus reports whether status is a valid article status.
func IsValidArticleStatus(status string) bool {
	switch status {
	case ArticleStatusDraft, ArticleStatusPublished:
		return true
	default:
		return false
	}
}

// Article represents a blog article.
type Article struct {
	ID              int64        `json:"id"`
	Title           string       `json:"title"`
	Slug            string       `json:"slug"`
	Excerpt         string       `json:"excerpt"`
	Body            string       `json:"body"`
	Category        string       `json:"category"`
	Status          string       `json:"status"`
	AuthorID        int64        `json:"author_id"`
	CoverImage      string       `json:"cover_image"`
	MetaTitle       string       `json:"meta_title"`
	MetaDescription string       `json:"meta_description"`
	Tags            string       `json:"tags"` // comma-separated
	ViewCount       int64        `json:"view_count"`
	PublishedAt     sql.NullTime `json:"published_at,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`

	// AuthorName is populated by joined queries, not stored.
	AuthorName string `json:"author_name,omitempty"`
}

// IsPublished returns true if the article is visible on the public blog.
func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// IsDraft returns true if the article is a draft.
func (a *Article) IsDraft() bool {
	return a.Status == ArticleStatusDraft
}

// TagList splits the stored comma-separated tags into a slice,
// dropping empty entries.
func (a *Article) TagList() []string {
	if a.Tags == "" {
		return nil
	}
	var out []string
	for _, tag := range strings.Split(a.Tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
