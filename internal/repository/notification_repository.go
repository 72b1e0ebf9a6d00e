package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/freetravelapp/freetravel-server/internal/model"
)

// NotificationRepo persists the append-only notification feed. There is
// no physical delete: softDelete flips the status flag and listings
// filter on it, which keeps the history available for audit.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// CreateTx appends a notification inside a caller-owned transaction so
// the fan-out commits or rolls back together with the state change that
// caused it.
func (r *NotificationRepo) CreateTx(ctx context.Context, tx *sql.Tx, n *model.Notification) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO notifications (recipient_id, sender_id, route_id, message, personal_message, is_read, status)
		 VALUES (?,?,?,?,?,0,?)`,
		n.RecipientID, n.SenderID, n.RouteID, n.Message, n.PersonalMessage,
		model.NotificationActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// NotificationView is a notification as returned to clients.
type NotificationView struct {
	ID              uint64    `json:"id"`
	Sender          string    `json:"sender"`
	RouteID         uint64    `json:"route_id"`
	Message         string    `json:"message"`
	PersonalMessage *string   `json:"personal_message,omitempty"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"created_at"`
}

// ListForRecipient returns the recipient's active notifications, newest
// first, each joined with the sender's handle.
func (r *NotificationRepo) ListForRecipient(ctx context.Context, recipientID uint64) ([]NotificationView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT n.id, u.username, n.route_id, n.message, n.personal_message, n.is_read, n.created_at
		 FROM notifications n
		 JOIN users u ON u.id = n.sender_id
		 WHERE n.recipient_id = ? AND n.status = ?
		 ORDER BY n.created_at DESC`,
		recipientID, model.NotificationActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]NotificationView, 0)
	for rows.Next() {
		var v NotificationView
		if err := rows.Scan(&v.ID, &v.Sender, &v.RouteID, &v.Message, &v.PersonalMessage, &v.Read, &v.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// MarkRead flips the read flag. sql.ErrNoRows when the notification
// does not exist or is soft-deleted.
func (r *NotificationRepo) MarkRead(ctx context.Context, id uint64) error {
	return r.exec(ctx,
		"UPDATE notifications SET is_read=1 WHERE id=? AND status=?",
		id, model.NotificationActive)
}

// SoftDelete hides the notification from listings without removing the
// row.
func (r *NotificationRepo) SoftDelete(ctx context.Context, id uint64) error {
	return r.exec(ctx,
		"UPDATE notifications SET status=? WHERE id=? AND status=?",
		model.NotificationDeleted, id, model.NotificationActive)
}

func (r *NotificationRepo) exec(ctx context.Context, q string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
