package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/promontolio/promoblog/internal/model"
)

const mediaColumns = `m.id, m.filename, m.orig_name, m.mime_type, m.file_type,
	m.size, m.path, m.thumb_path, m.width, m.height, m.title, m.alt_text,
	m.caption, m.description, m.tags, m.uploaded_by, m.created_at, m.updated_at`

const mediaColumnsBare = `id, filename, orig_name, mime_type, file_type,
	size, path, thumb_path, width, height, title, alt_text, caption,
	description, tags, uploaded_by, created_at, updated_at`

func scanMedia(row interface{ Scan(...any) error }) (model.Media, error) {
	var m model.Media
	err := row.Scan(
		&m.ID, &m.Filename, &m.OrigName, &m.MimeType, &m.FileType,
		&m.Size, &m.Path, &m.ThumbPath, &m.Width, &m.Height, &m.Title,
		&m.AltText, &m.Caption, &m.Description, &m.Tags,
		&m.UploadedBy, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

func scanMediaWithUploader(row interface{ Scan(...any) error }) (model.Media, error) {
	var m model.Media
	err := row.Scan(
		&m.ID, &m.Filename, &m.OrigName, &m.MimeType, &m.FileType,
		&m.Size, &m.Path, &m.ThumbPath, &m.Width, &m.Height, &m.Title,
		&m.AltText, &m.Caption, &m.Description, &m.Tags,
		&m.UploadedBy, &m.CreatedAt, &m.UpdatedAt,
		&m.UploaderName,
	)
	return m, err
}

// CreateMediaParams holds the fields for registering an uploaded file.
type CreateMediaParams struct {
	Filename    string
	OrigName    string
	MimeType    string
	FileType    string
	Size        int64
	Path        string
	ThumbPath   string
	Width       sql.NullInt64
	Height      sql.NullInt64
	Title       string
	AltText     string
	Caption     string
	Description string
	Tags        string
	UploadedBy  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateMedia inserts a media row and returns the stored record.
func (q *Queries) CreateMedia(ctx context.Context, arg CreateMediaParams) (model.Media, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO media (filename, orig_name, mime_type, file_type, size,
			path, thumb_path, width, height, title, alt_text, caption,
			description, tags, uploaded_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+mediaColumnsBare,
		arg.Filename, arg.OrigName, arg.MimeType, arg.FileType, arg.Size,
		arg.Path, arg.ThumbPath, arg.Width, arg.Height, arg.Title, arg.AltText,
		arg.Caption, arg.Description, arg.Tags,
		arg.UploadedBy, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanMedia(row)
}

// GetMediaByID fetches a media record by primary key, with uploader joined.
func (q *Queries) GetMediaByID(ctx context.Context, id int64) (model.Media, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+mediaColumns+`, COALESCE(u.username, '')
		FROM media m LEFT JOIN users u ON u.id = m.uploaded_by
		WHERE m.id = ?`, id)
	return scanMediaWithUploader(row)
}

// GetMediaByFilename fetches a media record by its stored filename.
func (q *Queries) GetMediaByFilename(ctx context.Context, filename string) (model.Media, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT `+mediaColumns+`, COALESCE(u.username, '')
		FROM media m LEFT JOIN users u ON u.id = m.uploaded_by
		WHERE m.filename = ?`, filename)
	return scanMediaWithUploader(row)
}

// Media list sort orders.
const (
	MediaSortNewest  = "newest"
	MediaSortOldest  = "oldest"
	MediaSortName    = "name"
	MediaSortLargest = "largest"
	MediaSortUsage   = "usage"
)

// ListMediaParams filters and pages the media library.
type ListMediaParams struct {
	Search   string // matches name, title, description, tags, alt text and caption
	FileType string
	Sort     string
	Limit    int64
	Offset   int64
}

func (p ListMediaParams) where() (string, []any) {
	var conds []string
	var args []any
	if p.Search != "" {
		like := "%" + p.Search + "%"
		conds = append(conds, `(m.orig_name LIKE ? OR m.title LIKE ? OR m.description LIKE ?
			OR m.tags LIKE ? OR m.alt_text LIKE ? OR m.caption LIKE ?)`)
		args = append(args, like, like, like, like, like, like)
	}
	if p.FileType != "" {
		conds = append(conds, "m.file_type = ?")
		args = append(args, p.FileType)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (p ListMediaParams) orderBy() string {
	switch p.Sort {
	case MediaSortOldest:
		return "m.created_at ASC"
	case MediaSortName:
		return "m.orig_name COLLATE NOCASE ASC"
	case MediaSortLargest:
		return "m.size DESC"
	case MediaSortUsage:
		// Usage is computed live from article references
		return `(SELECT COUNT(*) FROM articles a
			WHERE a.cover_image = m.path OR a.body LIKE '%' || m.path || '%') DESC,
			m.created_at DESC`
	default:
		return "m.created_at DESC"
	}
}

// ListMedia returns a filtered, sorted, paginated slice of media records.
func (q *Queries) ListMedia(ctx context.Context, arg ListMediaParams) ([]model.Media, error) {
	where, args := arg.where()
	args = append(args, arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx, `
		SELECT `+mediaColumns+`, COALESCE(u.username, '')
		FROM media m LEFT JOIN users u ON u.id = m.uploaded_by`+where+`
		ORDER BY `+arg.orderBy()+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing media: %w", err)
	}
	defer rows.Close()

	var items []model.Media
	for rows.Next() {
		m, err := scanMediaWithUploader(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning media: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// CountMedia returns the number of media records matching the filter.
func (q *Queries) CountMedia(ctx context.Context, arg ListMediaParams) (int64, error) {
	where, args := arg.where()
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media m`+where, args...).Scan(&n)
	return n, err
}

// UpdateMediaMetaParams holds the editable metadata of a media record.
type UpdateMediaMetaParams struct {
	ID          int64
	Title       string
	AltText     string
	Caption     string
	Description string
	Tags        string
}

// UpdateMediaMeta updates the editable metadata of a media record.
func (q *Queries) UpdateMediaMeta(ctx context.Context, arg UpdateMediaMetaParams) (model.Media, error) {
	row := q.db.QueryRowContext(ctx, `
		UPDATE media SET title = ?, alt_text = ?, caption = ?, description = ?,
			tags = ?, updated_at = ?
		WHERE id = ?
		RETURNING `+mediaColumnsBare,
		arg.Title, arg.AltText, arg.Caption, arg.Description, arg.Tags,
		time.Now(), arg.ID)
	return scanMedia(row)
}

// UpdateMediaFileType moves a media record into a different type bucket.
// The stored path keeps its original prefix; only the library filing
// changes.
func (q *Queries) UpdateMediaFileType(ctx context.Context, id int64, fileType string) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE media SET file_type = ?, updated_at = ?
		WHERE id = ?`,
		fileType, time.Now(), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteMedia removes a media row. The caller is responsible for removing
// the files on disk.
func (q *Queries) DeleteMedia(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	return err
}

// MediaStats summarizes the media library for the dashboard.
type MediaStats struct {
	Total     int64
	TotalSize int64
	ByType    map[string]int64
}

// GetMediaStats aggregates media counts and sizes.
func (q *Queries) GetMediaStats(ctx context.Context) (MediaStats, error) {
	stats := MediaStats{ByType: make(map[string]int64)}

	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM media`,
	).Scan(&stats.Total, &stats.TotalSize)
	if err != nil {
		return stats, fmt.Errorf("counting media: %w", err)
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT file_type, COUNT(*) FROM media GROUP BY file_type`)
	if err != nil {
		return stats, fmt.Errorf("counting media by type: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ft string
		var n int64
		if err := rows.Scan(&ft, &n); err != nil {
			return stats, err
		}
		stats.ByType[ft] = n
	}
	return stats, rows.Err()
}
