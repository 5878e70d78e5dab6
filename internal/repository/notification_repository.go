package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// NotificationRepo persists notification records.  The notifications table
// is both the durable record store and the outbox: the relay publishes
// unpublished email rows to the dispatch queue, and the delivery worker
// finalizes each row to sent or failed.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a NotificationRepo bound to the database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationColumns = `id, user_id, type, channel, payload, status, attempts,
 published_at, sent_at, read_at, created_at, updated_at`

func scanNotification(rs rowScanner) (model.Notification, error) {
	var n model.Notification
	var payload []byte
	var channel, status string
	var publishedAt, sentAt, readAt sql.NullTime
	err := rs.Scan(
		&n.ID, &n.UserID, &n.Type, &channel, &payload, &status, &n.Attempts,
		&publishedAt, &sentAt, &readAt, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return model.Notification{}, err
	}
	n.Channel = model.Channel(channel)
	n.Status = model.NotificationStatus(status)
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &n.Payload)
	}
	if publishedAt.Valid {
		t := publishedAt.Time
		n.PublishedAt = &t
	}
	if sentAt.Valid {
		t := sentAt.Time
		n.SentAt = &t
	}
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return n, nil
}

// InsertTx appends one record inside the caller's transaction so the
// outbox row commits atomically with the entity mutation that caused it.
func (r *NotificationRepo) InsertTx(ctx context.Context, tx *sql.Tx, n *model.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return err
	}
	const q = `INSERT INTO notifications (user_id, type, channel, payload, status, attempts, sent_at)
 VALUES (?, ?, ?, ?, ?, 0, ?)`
	var sentAt any
	if n.SentAt != nil {
		sentAt = n.SentAt.UTC()
	}
	res, err := tx.ExecContext(ctx, q, n.UserID, n.Type, string(n.Channel), payload, string(n.Status), sentAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	n.Attempts = 0
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now
	return nil
}

// GetByID loads one record for the delivery worker.
func (r *NotificationRepo) GetByID(ctx context.Context, id uint64) (model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`
	n, err := scanNotification(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.Notification{}, ErrNotificationNotFound
	}
	return n, err
}

// ListUnpublishedEmail returns queued email records the relay has not yet
// pushed onto the dispatch queue, oldest first.
func (r *NotificationRepo) ListUnpublishedEmail(ctx context.Context, limit int) ([]model.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM notifications
 WHERE channel = ? AND status = ? AND published_at IS NULL ORDER BY id LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, string(model.ChannelEmail), string(model.NotificationQueued), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkPublished stamps the relay hand-off time on a record.
func (r *NotificationRepo) MarkPublished(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE notifications SET published_at = ? WHERE id = ? AND published_at IS NULL`
	_, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// MarkSent finalizes a record as delivered.
func (r *NotificationRepo) MarkSent(ctx context.Context, id uint64, at time.Time) error {
	const q = `UPDATE notifications SET status = ?, sent_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, string(model.NotificationSent), at.UTC(), id)
	return err
}

// MarkDeliveryFailed records one failed delivery try, flipping the record
// to failed and bumping the attempt counter.  It returns the new counter
// so the worker can decide between a retry and the dead queue.
func (r *NotificationRepo) MarkDeliveryFailed(ctx context.Context, id uint64) (uint32, error) {
	const q = `UPDATE notifications SET status = ?, attempts = attempts + 1 WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, string(model.NotificationFailed), id); err != nil {
		return 0, err
	}
	var attempts uint32
	err := r.db.QueryRowContext(ctx, `SELECT attempts FROM notifications WHERE id = ?`, id).Scan(&attempts)
	if err == sql.ErrNoRows {
		return 0, ErrNotificationNotFound
	}
	return attempts, err
}

// ListByUser returns the user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead acknowledges one of the user's notifications.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64, at time.Time) error {
	const q = `UPDATE notifications SET read_at = ? WHERE id = ? AND user_id = ? AND read_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead acknowledges every unread notification of the user and
// returns how many were affected.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64, at time.Time) (int64, error) {
	const q = `UPDATE notifications SET read_at = ? WHERE user_id = ? AND read_at IS NULL`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes one of the user's notifications.
func (r *NotificationRepo) Delete(ctx context.Context, id, userID uint64) error {
	const q = `DELETE FROM notifications WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
