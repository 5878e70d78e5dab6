package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// BookingRepo provides CRUD operations for bookings and their extra-service
// line items.  Workflow mutations go through the ...Tx variants inside a
// transaction opened by the store; the plain methods serve role-scoped
// listing and detail reads.  All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, client_id, provider_id, service_id, status, price_cents,
 slot_date, slot_start, slot_end, address, payment_method, cancel_reason,
 warranty_slip, completed_at, warranty_expires_at, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(rs rowScanner) (model.Booking, error) {
	var b model.Booking
	var providerID sql.NullInt64
	var cancelReason, warrantySlip sql.NullString
	var completedAt, warrantyExpiresAt sql.NullTime
	var status, payment string
	err := rs.Scan(
		&b.ID, &b.ClientID, &providerID, &b.ServiceID, &status, &b.PriceCents,
		&b.SlotDate, &b.SlotStart, &b.SlotEnd, &b.Address, &payment, &cancelReason,
		&warrantySlip, &completedAt, &warrantyExpiresAt, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	b.PaymentMethod = model.PaymentMethod(payment)
	if providerID.Valid {
		v := uint64(providerID.Int64)
		b.ProviderID = &v
	}
	if cancelReason.Valid {
		b.CancelReason = &cancelReason.String
	}
	if warrantySlip.Valid {
		b.WarrantySlip = &warrantySlip.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		b.CompletedAt = &t
	}
	if warrantyExpiresAt.Valid {
		t := warrantyExpiresAt.Time
		b.WarrantyExpiresAt = &t
	}
	return b, nil
}

// GetTx loads a booking inside a transaction, taking a row lock so two
// concurrent transitions on the same booking serialize at the database.
func (r *BookingRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ? FOR UPDATE`
	b, err := scanBooking(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// InsertTx persists a new booking and populates its generated ID, version
// and timestamps.
func (r *BookingRepo) InsertTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings
 (client_id, provider_id, service_id, status, price_cents, slot_date, slot_start, slot_end, address, payment_method, version)
 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
	var provider any
	if b.ProviderID != nil {
		provider = *b.ProviderID
	}
	res, err := tx.ExecContext(ctx, q,
		b.ClientID, provider, b.ServiceID, string(b.Status), b.PriceCents,
		b.SlotDate.Format("2006-01-02"), b.SlotStart, b.SlotEnd, b.Address, string(b.PaymentMethod))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	b.Version = 1
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// UpdateTx writes the mutable booking fields back with an optimistic
// version check.  When the stored version no longer matches
// expectedVersion the read was stale and ErrConflict is returned; nothing
// is written.  On success the in-memory version is bumped to match.
func (r *BookingRepo) UpdateTx(ctx context.Context, tx *sql.Tx, b *model.Booking, expectedVersion uint64) error {
	const q = `UPDATE bookings SET
 provider_id = ?, status = ?, cancel_reason = ?, warranty_slip = ?,
 completed_at = ?, warranty_expires_at = ?, version = version + 1
 WHERE id = ? AND version = ?`
	var provider, reason, slip, completedAt, expiresAt any
	if b.ProviderID != nil {
		provider = *b.ProviderID
	}
	if b.CancelReason != nil {
		reason = *b.CancelReason
	}
	if b.WarrantySlip != nil {
		slip = *b.WarrantySlip
	}
	if b.CompletedAt != nil {
		completedAt = b.CompletedAt.UTC()
	}
	if b.WarrantyExpiresAt != nil {
		expiresAt = b.WarrantyExpiresAt.UTC()
	}
	res, err := tx.ExecContext(ctx, q, provider, string(b.Status), reason, slip,
		completedAt, expiresAt, b.ID, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	b.Version = expectedVersion + 1
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// ListExtrasTx returns the booking's extra-service items in insertion order.
func (r *BookingRepo) ListExtrasTx(ctx context.Context, tx *sql.Tx, bookingID uint64) ([]model.ExtraService, error) {
	const q = `SELECT id, booking_id, service_id, title, price_cents, status, added_at
 FROM booking_extra_services WHERE booking_id = ? ORDER BY id`
	rows, err := tx.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExtras(rows)
}

// ListExtras is the non-transactional variant used by detail reads.
func (r *BookingRepo) ListExtras(ctx context.Context, bookingID uint64) ([]model.ExtraService, error) {
	const q = `SELECT id, booking_id, service_id, title, price_cents, status, added_at
 FROM booking_extra_services WHERE booking_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectExtras(rows)
}

func collectExtras(rows *sql.Rows) ([]model.ExtraService, error) {
	var out []model.ExtraService
	for rows.Next() {
		var it model.ExtraService
		var status string
		if err := rows.Scan(&it.ID, &it.BookingID, &it.ServiceID, &it.Title, &it.PriceCents, &status, &it.AddedAt); err != nil {
			return nil, err
		}
		it.Status = model.ExtraStatus(status)
		out = append(out, it)
	}
	return out, rows.Err()
}

// InsertExtraTx appends one pending extra-service row.
func (r *BookingRepo) InsertExtraTx(ctx context.Context, tx *sql.Tx, e *model.ExtraService) error {
	const q = `INSERT INTO booking_extra_services (booking_id, service_id, title, price_cents, status)
 VALUES (?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, e.BookingID, e.ServiceID, e.Title, e.PriceCents, string(e.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	e.AddedAt = time.Now().UTC()
	return nil
}

// ConfirmPendingExtrasTx flips every pending item on the booking to
// confirmed in one statement and reports the number of rows changed.
func (r *BookingRepo) ConfirmPendingExtrasTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	const q = `UPDATE booking_extra_services SET status = ? WHERE booking_id = ? AND status = ?`
	res, err := tx.ExecContext(ctx, q, string(model.ExtraConfirmed), bookingID, string(model.ExtraPending))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Get loads a booking outside any transaction for detail responses.
func (r *BookingRepo) Get(ctx context.Context, id uint64) (model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.Booking{}, ErrBookingNotFound
	}
	return b, err
}

// ListByClient returns the client's bookings, newest first.
func (r *BookingRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE client_id = ? ORDER BY id DESC`
	return r.list(ctx, q, clientID)
}

// ListByProvider returns bookings assigned to the provider, newest first.
func (r *BookingRepo) ListByProvider(ctx context.Context, providerID uint64) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings WHERE provider_id = ? ORDER BY id DESC`
	return r.list(ctx, q, providerID)
}

// ListAll returns every booking, newest first.  Admin use only.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY id DESC`
	return r.list(ctx, q)
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
