package workflow

import (
	"context"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// Tx is the storage surface a single workflow operation runs against.  All
// reads and writes made through one Tx belong to the same database
// transaction; the engine never observes state across transaction
// boundaries.  Implementations must return the repository sentinel errors
// for not-found and version-conflict conditions.
type Tx interface {
	// GetBooking loads a booking by id, locking the row for the duration
	// of the transaction where the backend supports it.
	GetBooking(ctx context.Context, id uint64) (model.Booking, error)
	// InsertBooking persists a new booking and fills in its ID, Version
	// and timestamps.
	InsertBooking(ctx context.Context, b *model.Booking) error
	// UpdateBooking writes the booking back.  The write must fail with a
	// conflict error if the stored version no longer equals
	// expectedVersion.  On success the booking's Version is bumped.
	UpdateBooking(ctx context.Context, b *model.Booking, expectedVersion uint64) error

	ListExtras(ctx context.Context, bookingID uint64) ([]model.ExtraService, error)
	InsertExtra(ctx context.Context, e *model.ExtraService) error
	// ConfirmPendingExtras flips every pending item on the booking to
	// confirmed and returns how many rows changed.
	ConfirmPendingExtras(ctx context.Context, bookingID uint64) (int64, error)

	GetClaim(ctx context.Context, id uint64) (model.WarrantyClaim, error)
	InsertClaim(ctx context.Context, cl *model.WarrantyClaim) error
	UpdateClaim(ctx context.Context, cl *model.WarrantyClaim, expectedVersion uint64) error

	// InsertNotification appends an outbox row.  Delivery is asynchronous;
	// the engine treats insert failures as non-fatal.
	InsertNotification(ctx context.Context, n *model.Notification) error

	GetUser(ctx context.Context, id uint64) (model.User, error)
	ListAdmins(ctx context.Context) ([]model.User, error)
	GetService(ctx context.Context, id uint64) (model.Service, error)
}

// Store runs workflow operations inside storage transactions.  The MySQL
// implementation lives in internal/repository; tests substitute an
// in-memory fake.
type Store interface {
	// Within begins a transaction, invokes fn with its Tx, and commits if
	// fn returns nil, rolling back otherwise.
	Within(ctx context.Context, fn func(tx Tx) error) error
}
