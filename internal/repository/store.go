package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/home-service-booking/internal/model"
	"github.com/iliyamo/home-service-booking/internal/workflow"
)

// Store is the MySQL implementation of workflow.Store.  It groups the
// per-table repositories and scopes each workflow operation to one SQL
// transaction.
type Store struct {
	db            *sql.DB
	Bookings      *BookingRepo
	Claims        *WarrantyRepo
	Notifications *NotificationRepo
	Users         *UserRepo
	Services      *ServiceRepo
}

// NewStore wires the repositories over one shared pool.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:            db,
		Bookings:      NewBookingRepo(db),
		Claims:        NewWarrantyRepo(db),
		Notifications: NewNotificationRepo(db),
		Users:         NewUserRepo(db),
		Services:      NewServiceRepo(db),
	}
}

// DB exposes the underlying pool for callers that manage their own
// transactions.
func (s *Store) DB() *sql.DB { return s.db }

// Within implements workflow.Store.  The transaction commits when fn
// returns nil and rolls back otherwise; guard violations therefore never
// leave partial writes behind.
func (s *Store) Within(ctx context.Context, fn func(tx workflow.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()
	if err := fn(&storeTx{store: s, tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// storeTx adapts the repositories' ...Tx methods to workflow.Tx.
type storeTx struct {
	store *Store
	tx    *sql.Tx
}

func (t *storeTx) GetBooking(ctx context.Context, id uint64) (model.Booking, error) {
	return t.store.Bookings.GetTx(ctx, t.tx, id)
}

func (t *storeTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.store.Bookings.InsertTx(ctx, t.tx, b)
}

func (t *storeTx) UpdateBooking(ctx context.Context, b *model.Booking, expectedVersion uint64) error {
	return t.store.Bookings.UpdateTx(ctx, t.tx, b, expectedVersion)
}

func (t *storeTx) ListExtras(ctx context.Context, bookingID uint64) ([]model.ExtraService, error) {
	return t.store.Bookings.ListExtrasTx(ctx, t.tx, bookingID)
}

func (t *storeTx) InsertExtra(ctx context.Context, e *model.ExtraService) error {
	return t.store.Bookings.InsertExtraTx(ctx, t.tx, e)
}

func (t *storeTx) ConfirmPendingExtras(ctx context.Context, bookingID uint64) (int64, error) {
	return t.store.Bookings.ConfirmPendingExtrasTx(ctx, t.tx, bookingID)
}

func (t *storeTx) GetClaim(ctx context.Context, id uint64) (model.WarrantyClaim, error) {
	return t.store.Claims.GetTx(ctx, t.tx, id)
}

func (t *storeTx) InsertClaim(ctx context.Context, cl *model.WarrantyClaim) error {
	return t.store.Claims.InsertTx(ctx, t.tx, cl)
}

func (t *storeTx) UpdateClaim(ctx context.Context, cl *model.WarrantyClaim, expectedVersion uint64) error {
	return t.store.Claims.UpdateTx(ctx, t.tx, cl, expectedVersion)
}

func (t *storeTx) InsertNotification(ctx context.Context, n *model.Notification) error {
	return t.store.Notifications.InsertTx(ctx, t.tx, n)
}

func (t *storeTx) GetUser(ctx context.Context, id uint64) (model.User, error) {
	return t.store.Users.GetByIDTx(ctx, t.tx, id)
}

func (t *storeTx) ListAdmins(ctx context.Context) ([]model.User, error) {
	return t.store.Users.ListAdminsTx(ctx, t.tx)
}

func (t *storeTx) GetService(ctx context.Context, id uint64) (model.Service, error) {
	return t.store.Services.GetByIDTx(ctx, t.tx, id)
}
