package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/promontolio/promoblog/internal/model"
)

const articleColumns = `a.id, a.title, a.slug, a.excerpt, a.body, a.category,
	a.status, a.author_id, a.cover_image, a.meta_title, a.meta_description,
	a.tags, a.view_count, a.published_at, a.created_at, a.updated_at`

const articleColumnsBare = `id, title, slug, excerpt, body, category,
	status, author_id, cover_image, meta_title, meta_description,
	tags, view_count, published_at, created_at, updated_at`

func scanArticle(row interface{ Scan(...any) error }) (model.Article, error) {
	var a model.Article
	err := row.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Body, &a.Category,
		&a.Status, &a.AuthorID, &a.CoverImage, &a.MetaTitle, &a.MetaDescription,
		&a.Tags, &a.ViewCount, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func scanArticleWithAuthor(row interface{ Scan(...any) error }) (model.Article, error) {
	var a model.Article
	err := row.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Excerpt, &a.Body, &a.Category,
		&a.Status, &a.AuthorID, &a.CoverImage, &a.MetaTitle, &a.MetaDescription,
		&a.Tags, &a.ViewCount, &a.PublishedAt, &a.CreatedAt, &a.UpdatedAt,
		&a.AuthorName,
	)
	return a, err
}

// CreateArticleParams holds the fields for creating an article.
type CreateArticleParams struct {
	Title           string
	Slug            string
	Excerpt         string
	Body            string
	Category        string
	Status          string
	AuthorID        int64
	CoverImage      string
	MetaTitle       string
	MetaDescription string
	Tags            string
	PublishedAt     sql.NullTime
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CreateArticle inserts a new article and returns the stored row.
func (q *Queries) CreateArticle(ctx context.Context, arg CreateArticleParams) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO articles (title, slug, excerpt, body, category, status,
			author_id, cover_image, meta_title, meta_description, tags,
			published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+articleColumnsBare,
		arg.Title, arg.Slug, arg.Excerpt, arg.Body, arg.Category, arg.Status,
		arg.AuthorID, arg.CoverImage, arg.MetaTitle, arg.MetaDescription, arg.Tags,
		arg.PublishedAt, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanArticle(row)
}

// GetArticleByID fetches an article by primary key, with author name joined.
func (q *Queries) GetArticleByID(ctx context.Context, id int64) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+articleColumns+`, COALESCE(u.username, '')
		FROM articles a LEFT JOIN users u ON u.id = a.author_id
		WHERE a.id = ?`, id)
	return scanArticleWithAuthor(row)
}

// GetArticleBySlug fetches an article by slug regardless of status.
func (q *Queries) GetArticleBySlug(ctx context.Context, slug string) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+articleColumns+`, COALESCE(u.username, '')
		FROM articles a LEFT JOIN users u ON u.id = a.author_id
		WHERE a.slug = ?`, slug)
	return scanArticleWithAuthor(row)
}

// GetPublishedArticleBySlug fetches a published article by slug.
func (q *Queries) GetPublishedArticleBySlug(ctx context.Context, slug string) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+articleColumns+`, COALESCE(u.username, '')
		FROM articles a LEFT JOIN users u ON u.id = a.author_id
		WHERE a.slug = ? AND a.status = 'published'`, slug)
	return scanArticleWithAuthor(row)
}

// ListArticlesParams filters and pages the article list.
type ListArticlesParams struct {
	Search   string // matches title and excerpt
	Category string
	Status   string
	AuthorID int64 // 0 means any author
	Limit    int64
	Offset   int64
}

func (p ListArticlesParams) where() (string, []any) {
	var conds []string
	var args []any
	if p.Search != "" {
		like := "%" + p.Search + "%"
		conds = append(conds, "(a.title LIKE ? OR a.excerpt LIKE ?)")
		args = append(args, like, like)
	}
	if p.Category != "" {
		conds = append(conds, "a.category = ?")
		args = append(args, p.Category)
	}
	if p.Status != "" {
		conds = append(conds, "a.status = ?")
		args = append(args, p.Status)
	}
	if p.AuthorID != 0 {
		conds = append(conds, "a.author_id = ?")
		args = append(args, p.AuthorID)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListArticles returns a filtered, paginated article list ordered by update
// time descending, with author names joined.
func (q *Queries) ListArticles(ctx context.Context, arg ListArticlesParams) ([]model.Article, error) {
	where, args := arg.where()
	args = append(args, arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+articleColumns+`, COALESCE(u.username, '')
		FROM articles a LEFT JOIN users u ON u.id = a.author_id`+where+`
		ORDER BY a.updated_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticleWithAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CountArticles returns the number of articles matching the filter.
func (q *Queries) CountArticles(ctx context.Context, arg ListArticlesParams) (int64, error) {
	where, args := arg.where()
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles a`+where, args...).Scan(&n)
	return n, err
}

// ListPublishedArticles returns published articles for the public blog,
// newest first by publish date. Category is optional.
func (q *Queries) ListPublishedArticles(ctx context.Context, category string, limit, offset int64) ([]model.Article, error) {
	query := `
		SELECT ` + articleColumns + `, COALESCE(u.username, '')
		FROM articles a LEFT JOIN users u ON u.id = a.author_id
		WHERE a.status = 'published'`
	args := []any{}
	if category != "" {
		query += ` AND a.category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY a.published_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing published articles: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticleWithAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CountPublishedArticles returns the number of published articles,
// optionally restricted to a category.
func (q *Queries) CountPublishedArticles(ctx context.Context, category string) (int64, error) {
	query := `SELECT COUNT(*) FROM articles WHERE status = 'published'`
	args := []any{}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	var n int64
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// UpdateArticleParams holds the mutable fields of an article.
type UpdateArticleParams struct {
	ID              int64
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
	PublishedAt     sql.NullTime
	UpdatedAt       time.Time
}

// UpdateArticle updates an article and returns the stored row.
func (q *Queries) UpdateArticle(ctx context.Context, arg UpdateArticleParams) (model.Article, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE articles SET title = ?, slug = ?, excerpt = ?, body = ?,
			category = ?, status = ?, cover_image = ?, meta_title = ?,
			meta_description = ?, tags = ?, published_at = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+articleColumnsBare,
		arg.Title, arg.Slug, arg.Excerpt, arg.Body,
		arg.Category, arg.Status, arg.CoverImage, arg.MetaTitle,
		arg.MetaDescription, arg.Tags, arg.PublishedAt, arg.UpdatedAt, arg.ID,
	)
	return scanArticle(row)
}

// IncrementArticleViews bumps the view counter for an article.
func (q *Queries) IncrementArticleViews(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE articles SET view_count = view_count + 1 WHERE id = ?`, id)
	return err
}

// DeleteArticle removes an article row.
func (q *Queries) DeleteArticle(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	return err
}

// ListRecentArticles returns the newest articles of any status for the
// dashboard.
func (q *Queries) ListRecentArticles(ctx context.Context, limit int64) ([]model.Article, error) {
	return q.ListArticles(ctx, ListArticlesParams{Limit: limit})
}

// ListPopularArticles returns published articles ordered by view count,
// newest first among ties.
func (q *Queries) ListPopularArticles(ctx context.Context, limit int64) ([]model.Article, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+articleColumns+`, COALESCE(u.username, '')
		FROM articles a LEFT JOIN users u ON u.id = a.author_id
		WHERE a.status = 'published'
		ORDER BY a.view_count DESC, a.created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing popular articles: %w", err)
	}
	defer rows.Close()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticleWithAuthor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CountMediaUsage counts articles referencing the given upload path
// either as cover image or inside the body.
func (q *Queries) CountMediaUsage(ctx context.Context, path string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM articles
		WHERE cover_image = ? OR body LIKE ?`,
		path, "%"+path+"%",
	).Scan(&n)
	return n, err
}
