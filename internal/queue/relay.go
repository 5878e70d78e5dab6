package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// outboxStore is the slice of the notification repository the relay needs.
type outboxStore interface {
	ListUnpublishedEmail(ctx context.Context, limit int) ([]model.Notification, error)
	MarkPublished(ctx context.Context, id uint64, at time.Time) error
}

// jobPublisher abstracts the broker for tests.
type jobPublisher interface {
	PublishJob(ctx context.Context, job DispatchJob) error
}

// Relay drains the notification outbox.  State transitions commit their
// notification rows together with the entity mutation; the relay is the
// separate process that turns those rows into dispatch jobs, so a broker
// outage delays delivery instead of failing transitions.
type Relay struct {
	store     outboxStore
	publisher jobPublisher
	log       *zap.SugaredLogger
	interval  time.Duration
	batch     int
}

// NewRelay builds a relay polling the outbox every interval, publishing up
// to batch rows per sweep.
func NewRelay(store outboxStore, publisher jobPublisher, log *zap.SugaredLogger, interval time.Duration, batch int) *Relay {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	return &Relay{store: store, publisher: publisher, log: log, interval: interval, batch: batch}
}

// Run sweeps the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := r.Sweep(ctx); err != nil {
				r.log.Warnw("outbox sweep failed", "error", err)
			} else if n > 0 {
				r.log.Debugw("outbox sweep", "published", n)
			}
		}
	}
}

// Sweep publishes one batch of unpublished email records and returns how
// many were handed to the broker.  A publish failure stops the sweep; the
// unmarked rows are retried on the next tick.
func (r *Relay) Sweep(ctx context.Context) (int, error) {
	records, err := r.store.ListUnpublishedEmail(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, n := range records {
		job := DispatchJob{
			MessageID:      uuid.NewString(),
			NotificationID: n.ID,
			ToUserID:       n.UserID,
			Type:           n.Type,
			Channel:        n.Channel,
			Payload:        n.Payload,
		}
		if err := r.publisher.PublishJob(ctx, job); err != nil {
			return published, err
		}
		if err := r.store.MarkPublished(ctx, n.ID, time.Now().UTC()); err != nil {
			// The job is already on the queue; the worker's duplicate
			// check absorbs the re-publish that follows.
			return published, err
		}
		published++
	}
	return published, nil
}
