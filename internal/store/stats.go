package store

import (
	"context"
	"fmt"
	"time"
)

// ArticleStats aggregates the article table for the dashboard.
type ArticleStats struct {
	Total      int64
	Published  int64
	Drafts     int64
	TotalViews int64
	ByCategory map[string]int64
	Recent     int64 // created in the last 30 days
	ThisMonth  int64 // created in the current calendar month
}

// GetArticleStats computes article counts by status and category plus the
// total view count.
func (q *Queries) GetArticleStats(ctx context.Context) (ArticleStats, error) {
	stats := ArticleStats{ByCategory: make(map[string]int64)}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'published' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(view_count), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM articles`,
		now.AddDate(0, 0, -30), monthStart,
	).Scan(&stats.Total, &stats.Published, &stats.Drafts,
		&stats.TotalViews, &stats.Recent, &stats.ThisMonth)
	if err != nil {
		return stats, fmt.Errorf("counting articles: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM articles GROUP BY category`)
	if err != nil {
		return stats, fmt.Errorf("counting articles by category: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var cat string
		var n int64
		if err := rows.Scan(&cat, &n); err != nil {
			return stats, err
		}
		stats.ByCategory[cat] = n
	}
	return stats, rows.Err()
}

// SubscriberStats aggregates the subscriber table for the dashboard.
type SubscriberStats struct {
	Active int64
	Recent int64 // subscribed in the last 30 days
}

// GetSubscriberStats computes the active and recently subscribed counts.
func (q *Queries) GetSubscriberStats(ctx context.Context) (SubscriberStats, error) {
	var stats SubscriberStats
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN active = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)
		FROM subscribers`,
		time.Now().AddDate(0, 0, -30),
	).Scan(&stats.Active, &stats.Recent)
	if err != nil {
		return stats, fmt.Errorf("counting subscribers: %w", err)
	}
	return stats, nil
}

// MonthCount is one calendar month's bucket in a trailing series.
type MonthCount struct {
	Month string // YYYY-MM
	Count int64
}

// GetArticleMonthlyCounts returns per-month article creation counts over
// the trailing window ending in the current month. Months without rows
// are present with a zero count.
func (q *Queries) GetArticleMonthlyCounts(ctx context.Context, months int) ([]MonthCount, error) {
	return q.monthlyCounts(ctx, "articles", months)
}

// GetSubscriberMonthlyCounts returns per-month subscriber signup counts
// over the trailing window ending in the current month.
func (q *Queries) GetSubscriberMonthlyCounts(ctx context.Context, months int) ([]MonthCount, error) {
	return q.monthlyCounts(ctx, "subscribers", months)
}

// monthlyCounts groups a table's rows by creation month. The table name
// comes from the two constant-string callers above, never from input.
func (q *Queries) monthlyCounts(ctx context.Context, table string, months int) ([]MonthCount, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).
		AddDate(0, -(months - 1), 0)

	rows, err := q.db.QueryContext(ctx, `
		SELECT strftime('%Y-%m', created_at), COUNT(*)
		FROM `+table+`
		WHERE created_at >= ?
		GROUP BY 1 ORDER BY 1`, start)
	if err != nil {
		return nil, fmt.Errorf("counting %s by month: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var month string
		var n int64
		if err := rows.Scan(&month, &n); err != nil {
			return nil, err
		}
		counts[month] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Zero-fill so charts always show the full window
	series := make([]MonthCount, 0, months)
	for i := 0; i < months; i++ {
		month := start.AddDate(0, i, 0).Format("2006-01")
		series = append(series, MonthCount{Month: month, Count: counts[month]})
	}
	return series, nil
}
