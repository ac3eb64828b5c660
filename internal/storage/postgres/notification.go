package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/instasupply/internal/domain/notification"
)

const notificationColumns = `id, supplier_id, type, title, message, icon, is_read,
	related_id, related_type, metadata, created_at`

const (
	insertNotificationSQL = `INSERT INTO notifications (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	countUnreadSQL = `SELECT count(*) FROM notifications WHERE supplier_id = $1 AND NOT is_read`

	markReadSQL = `UPDATE notifications SET is_read = true
		WHERE id = $1 AND supplier_id = $2
		RETURNING ` + notificationColumns

	markAllReadSQL = `UPDATE notifications SET is_read = true WHERE supplier_id = $1 AND NOT is_read`

	deleteNotificationSQL = `DELETE FROM notifications WHERE id = $1 AND supplier_id = $2`
)

var _ notification.Repository = (*NotificationRepository)(nil)

// NotificationRepository implements notification.Repository backed by
// PostgreSQL.
type NotificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a NotificationRepository that uses the
// given pool.
func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts n unless a notification with the same id already exists,
// which makes redelivered events harmless.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	if n.Metadata == nil {
		meta = []byte("{}")
	}
	_, err = r.pool.Exec(ctx, insertNotificationSQL,
		n.ID, n.SupplierID, string(n.Type), n.Title, n.Message, string(n.Icon), n.IsRead,
		n.RelatedID, n.RelatedType, meta, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating notification %q: %w", n.ID, err)
	}
	return nil
}

// List returns one page of notifications, newest first.
func (r *NotificationRepository) List(ctx context.Context, f notification.Filter) ([]notification.Notification, int, error) {
	var w where
	w.add("supplier_id = " + w.arg(f.SupplierID))
	if f.Type != "" {
		w.add("type = " + w.arg(string(f.Type)))
	}
	if f.IsRead != nil {
		w.add("is_read = " + w.arg(*f.IsRead))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM notifications"+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting notifications: %w", err)
	}

	q := "SELECT " + notificationColumns + " FROM notifications" + w.String() +
		" ORDER BY created_at DESC LIMIT " + w.arg(f.Limit) + " OFFSET " + w.arg((f.Page-1)*f.Limit)
	rows, err := r.pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications: %w", err)
	}
	items, err := pgx.CollectRows(rows, scanNotification)
	if err != nil {
		return nil, 0, fmt.Errorf("listing notifications: %w", err)
	}
	return items, total, nil
}

// CountUnread returns the number of unread notifications of the supplier.
func (r *NotificationRepository) CountUnread(ctx context.Context, supplierID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countUnreadSQL, supplierID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting unread: %w", err)
	}
	return n, nil
}

// MarkRead marks one notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, supplierID, id string) (*notification.Notification, error) {
	rows, err := r.pool.Query(ctx, markReadSQL, id, supplierID)
	if err != nil {
		return nil, fmt.Errorf("marking %q read: %w", id, err)
	}
	n, err := pgx.CollectExactlyOneRow(rows, scanNotification)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notification.ErrNotFound
		}
		return nil, fmt.Errorf("marking %q read: %w", id, err)
	}
	return &n, nil
}

// MarkAllRead marks every unread notification of the supplier as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, supplierID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, markAllReadSQL, supplierID)
	if err != nil {
		return 0, fmt.Errorf("marking all read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes one notification.
func (r *NotificationRepository) Delete(ctx context.Context, supplierID, id string) error {
	tag, err := r.pool.Exec(ctx, deleteNotificationSQL, id, supplierID)
	if err != nil {
		return fmt.Errorf("deleting notification %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.CollectableRow) (notification.Notification, error) {
	var (
		n         notification.Notification
		typ, icon string
		meta      []byte
	)
	err := row.Scan(
		&n.ID, &n.SupplierID, &typ, &n.Title, &n.Message, &icon, &n.IsRead,
		&n.RelatedID, &n.RelatedType, &meta, &n.CreatedAt,
	)
	if err != nil {
		return n, err
	}
	n.Type = notification.Type(typ)
	n.Icon = notification.Icon(icon)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &n.Metadata); err != nil {
			return n, fmt.Errorf("decoding metadata of %q: %w", n.ID, err)
		}
	}
	return n, nil
}
