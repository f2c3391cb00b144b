package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/agencysite/internal/db"
	"github.com/geocoder89/agencysite/internal/domain/notification"
	"github.com/geocoder89/agencysite/internal/observability"
	"github.com/jackc/pgx/v5"
)

const notificationColumns = `id, recipient_id, COALESCE(sender_id::text, ''), message, read, created_at`

type NotificationsRepo struct {
	base
}

func NewNotificationsRepo(conn db.DB, prom *observability.Prom) *NotificationsRepo {
	return &NotificationsRepo{base{conn: conn, prom: prom}}
}

func (r *NotificationsRepo) Create(ctx context.Context, n notification.Notification) error {
	return r.observe("notifications.create", func() error {
		_, err := r.conn.Exec(ctx,
			`INSERT INTO notifications (id, recipient_id, sender_id, message, read, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			n.ID, n.ToUserID, nullable(n.FromUserID), n.Message, n.Read, n.CreatedAt,
		)
		return err
	})
}

func (r *NotificationsRepo) ListForUser(ctx context.Context, userID string) ([]notification.Notification, error) {
	out := make([]notification.Notification, 0)
	if !validID(userID) {
		return out, nil
	}

	err := r.observe("notifications.list_for_user", func() error {
		rows, err := r.conn.Query(ctx,
			`SELECT `+notificationColumns+`
			 FROM notifications
			 WHERE recipient_id = $1
			 ORDER BY created_at DESC, id DESC`,
			userID,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var n notification.Notification
			if err := scanNotification(rows, &n); err != nil {
				return err
			}
			out = append(out, n)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// MarkRead only matches a notification addressed to recipientID.
func (r *NotificationsRepo) MarkRead(ctx context.Context, id, recipientID string) (notification.Notification, error) {
	if !validID(id) || !validID(recipientID) {
		return notification.Notification{}, notification.ErrNotFound
	}

	var n notification.Notification

	err := r.observe("notifications.mark_read", func() error {
		row := r.conn.QueryRow(ctx,
			`UPDATE notifications
			 SET read = true
			 WHERE id = $1 AND recipient_id = $2
			 RETURNING `+notificationColumns,
			id, recipientID,
		)
		return scanNotification(row, &n)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, err
	}

	return n, nil
}

func scanNotification(row pgx.Row, n *notification.Notification) error {
	return row.Scan(&n.ID, &n.ToUserID, &n.FromUserID, &n.Message, &n.Read, &n.CreatedAt)
}
