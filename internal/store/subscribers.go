package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/promontolio/promoblog/internal/model"
)

const subscriberColumns = `id, email, name, token, confirmed, active, created_at, updated_at`

func scanSubscriber(row interface{ Scan(...any) error }) (model.Subscriber, error) {
	var s model.Subscriber
	err := row.Scan(
		&s.ID, &s.Email, &s.Name, &s.Token, &s.Confirmed, &s.Active,
		&s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

// CreateSubscriberParams holds the fields for a new newsletter subscriber.
type CreateSubscriberParams struct {
	Email     string
	Name      string
	Token     string
	Confirmed bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateSubscriber inserts a subscriber and returns the stored row.
func (q *Queries) CreateSubscriber(ctx context.Context, arg CreateSubscriberParams) (model.Subscriber, error) {
	row := q.db.QueryRowContext(ctx, `
		INSERT INTO subscribers (email, name, token, confirmed, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		RETURNING `+subscriberColumns,
		arg.Email, arg.Name, arg.Token, arg.Confirmed, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanSubscriber(row)
}

// GetSubscriberByID fetches a subscriber by primary key.
func (q *Queries) GetSubscriberByID(ctx context.Context, id int64) (model.Subscriber, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE id = ?`, id)
	return scanSubscriber(row)
}

// GetSubscriberByEmail fetches a subscriber by email (case-insensitive).
func (q *Queries) GetSubscriberByEmail(ctx context.Context, email string) (model.Subscriber, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE email = ?`, email)
	return scanSubscriber(row)
}

// GetSubscriberByToken fetches a subscriber by unsubscribe token.
func (q *Queries) GetSubscriberByToken(ctx context.Context, token string) (model.Subscriber, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE token = ?`, token)
	return scanSubscriber(row)
}

// ListSubscribersParams filters and pages the subscriber list.
type ListSubscribersParams struct {
	Search string // matches email and name
	Active *bool  // nil means any
	Limit  int64
	Offset int64
}

func (p ListSubscribersParams) where() (string, []any) {
	var conds []string
	var args []any
	if p.Search != "" {
		like := "%" + p.Search + "%"
		conds = append(conds, "(email LIKE ? OR name LIKE ?)")
		args = append(args, like, like)
	}
	if p.Active != nil {
		conds = append(conds, "active = ?")
		args = append(args, *p.Active)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListSubscribers returns a filtered, paginated subscriber list, newest first.
func (q *Queries) ListSubscribers(ctx context.Context, arg ListSubscribersParams) ([]model.Subscriber, error) {
	where, args := arg.where()
	args = append(args, arg.Limit, arg.Offset)
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers`+where+
			` ORDER BY created_at DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing subscribers: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscriber
	for rows.Next() {
		s, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscriber: %w", err)
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// ListRecentSubscribers returns the newest signups for the dashboard.
func (q *Queries) ListRecentSubscribers(ctx context.Context, limit int64) ([]model.Subscriber, error) {
	return q.ListSubscribers(ctx, ListSubscribersParams{Limit: limit})
}

// CountSubscribers returns the number of subscribers matching the filter.
func (q *Queries) CountSubscribers(ctx context.Context, arg ListSubscribersParams) (int64, error) {
	where, args := arg.where()
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscribers`+where, args...).Scan(&n)
	return n, err
}

// SetSubscriberActive toggles a subscriber's active flag.
func (q *Queries) SetSubscriberActive(ctx context.Context, id int64, active bool) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE subscribers SET active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now(), id)
	return err
}

// DeleteSubscriber removes a subscriber row.
func (q *Queries) DeleteSubscriber(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = ?`, id)
	return err
}

// CountActiveSubscribers returns the number of active subscribers.
func (q *Queries) CountActiveSubscribers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscribers WHERE active = 1`).Scan(&n)
	return n, err
}
