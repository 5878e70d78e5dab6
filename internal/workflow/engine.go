package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// WarrantyWindow is how long after completion a client may file a warranty
// claim.  The boundary is inclusive: a claim filed exactly at expiry is
// accepted.
const WarrantyWindow = 14 * 24 * time.Hour

// Actor identifies the authenticated principal invoking an operation, as
// extracted from the JWT by the HTTP layer.  The engine trusts the role and
// re-checks only the relationship to the entity (ownership, assignment).
type Actor struct {
	ID   uint64
	Role string
}

// Engine applies booking and warranty lifecycle transitions.  It is safe
// for concurrent use; all shared state lives in the Store.
type Engine struct {
	store Store
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewEngine constructs an Engine.  The clock defaults to time.Now and is
// overridable for tests via WithClock.
func NewEngine(store Store, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{store: store, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the engine's time source.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// notify appends one outbox row inside the current transaction.  Enqueue is
// fire-and-forget: a failed insert is logged and swallowed so a
// notification outage never blocks the state transition that triggered it.
// In-app records are delivered by the insert itself and marked sent
// immediately; every other channel starts queued for the relay/worker pair.
func (e *Engine) notify(ctx context.Context, tx Tx, userID uint64, typ string, channel model.Channel, payload model.NotificationPayload) {
	n := model.Notification{
		UserID:  userID,
		Type:    typ,
		Channel: channel,
		Payload: payload,
		Status:  model.NotificationQueued,
	}
	if channel == model.ChannelInApp {
		now := e.now()
		n.Status = model.NotificationSent
		n.SentAt = &now
	}
	if err := tx.InsertNotification(ctx, &n); err != nil {
		e.log.Warnw("notification enqueue failed", "user_id", userID, "type", typ, "error", err)
	}
}

// notifyAdmins fans one event out to every active admin user as an in-app
// record.  Admins work inside the dashboard, so no email hop is needed.
func (e *Engine) notifyAdmins(ctx context.Context, tx Tx, typ string, payload model.NotificationPayload) {
	admins, err := tx.ListAdmins(ctx)
	if err != nil {
		e.log.Warnw("admin lookup for notification failed", "type", typ, "error", err)
		return
	}
	for _, a := range admins {
		e.notify(ctx, tx, a.ID, typ, model.ChannelInApp, payload)
	}
}
