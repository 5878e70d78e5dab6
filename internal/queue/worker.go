package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/home-service-booking/internal/model"
	"github.com/iliyamo/home-service-booking/internal/notifier"
	"github.com/iliyamo/home-service-booking/internal/repository"
)

// recordStore is the slice of the notification repository the worker needs.
type recordStore interface {
	GetByID(ctx context.Context, id uint64) (model.Notification, error)
	MarkSent(ctx context.Context, id uint64, at time.Time) error
	MarkDeliveryFailed(ctx context.Context, id uint64) (uint32, error)
}

// addressResolver resolves a recipient's delivery addresses.
type addressResolver interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// WorkerConfig tunes the delivery worker's retry policy and consumption.
type WorkerConfig struct {
	URL         string
	Prefetch    int
	MaxAttempts uint32
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// outcome is the worker's verdict on one delivery attempt.
type outcome int

const (
	outcomeAck   outcome = iota // done (delivered, duplicate, or unrecoverable record)
	outcomeRetry                // transient failure; requeue after backoff
	outcomeDead                 // retries exhausted or poison message; dead-letter it
)

// Worker is the notification delivery consumer.  It is a single logical
// consumer: running several processes is safe because delivery is
// at-least-once and the record's terminal status makes duplicates no-ops.
type Worker struct {
	cfg     WorkerConfig
	records recordStore
	users   addressResolver
	sender  notifier.Sender
	log     *zap.SugaredLogger
	now     func() time.Time
}

// NewWorker builds a delivery worker.
func NewWorker(cfg WorkerConfig, records recordStore, users addressResolver, sender notifier.Sender, log *zap.SugaredLogger) *Worker {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 8
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = time.Minute
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Worker{cfg: cfg, records: records, users: users, sender: sender, log: log,
		now: func() time.Time { return time.Now().UTC() }}
}

// Run connects to the broker and consumes until the context is cancelled.
// Broken connections are re-dialed with exponential backoff.
func (w *Worker) Run(ctx context.Context) error {
	dialBackoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(w.cfg.URL)
		if err != nil {
			w.log.Warnw("broker dial failed", "error", err, "retry_in", dialBackoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(dialBackoff):
			}
			if dialBackoff < 30*time.Second {
				dialBackoff *= 2
			}
			continue
		}
		dialBackoff = time.Second
		if err := w.consumeLoop(ctx, conn); err != nil {
			if ctx.Err() != nil {
				_ = conn.Close()
				return ctx.Err()
			}
			w.log.Warnw("consume loop ended, reconnecting", "error", err)
		}
		_ = conn.Close()
	}
}

func (w *Worker) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declareTopology(ch); err != nil {
		return err
	}
	if err := ch.Qos(w.cfg.Prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, DispatchQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for d := range msgs {
		switch w.process(ctx, d.Body) {
		case outcomeAck:
			_ = d.Ack(false)
		case outcomeRetry:
			_ = d.Nack(false, true)
		case outcomeDead:
			_ = d.Nack(false, false) // routed to the dead queue via DLX
		}
	}
	return errors.New("deliveries channel closed")
}

// process handles one dispatch job end to end: load the record, resolve
// the recipient address, deliver, and finalize the record.  The record is
// flipped at most once to sent; a redelivered job for a record that is
// already terminal is acknowledged without a second send where possible
// (a crash between provider success and the status write can still cause
// one duplicate, the accepted at-least-once tradeoff).
func (w *Worker) process(ctx context.Context, body []byte) outcome {
	job, err := DecodeJob(body)
	if err != nil {
		w.log.Errorw("poison message", "error", err)
		return outcomeDead
	}
	rec, err := w.records.GetByID(ctx, job.NotificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			w.log.Errorw("dispatch job for unknown record", "notification_id", job.NotificationID, "message_id", job.MessageID)
			return outcomeDead
		}
		w.log.Warnw("record load failed", "notification_id", job.NotificationID, "error", err)
		return outcomeRetry
	}
	if rec.Status == model.NotificationSent {
		w.log.Infow("duplicate delivery skipped", "notification_id", rec.ID, "message_id", job.MessageID)
		return outcomeAck
	}

	user, err := w.users.GetByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return w.fail(ctx, rec.ID, fmt.Errorf("recipient %d not found", rec.UserID))
		}
		w.log.Warnw("recipient lookup failed", "user_id", rec.UserID, "error", err)
		return outcomeRetry
	}
	address := user.Email
	if rec.Channel == model.ChannelSMS || rec.Channel == model.ChannelPush {
		address = user.Phone
	}

	if err := w.sender.Send(ctx, rec.Channel, address, subjectFor(rec.Type), rec.Payload.Message); err != nil {
		return w.fail(ctx, rec.ID, err)
	}
	if err := w.records.MarkSent(ctx, rec.ID, w.now()); err != nil {
		// Delivered but not recorded; requeue so the terminal status
		// eventually lands. The duplicate check above bounds resends.
		w.log.Warnw("mark sent failed", "notification_id", rec.ID, "error", err)
		return outcomeRetry
	}
	return outcomeAck
}

// fail records one failed delivery try and decides between a backed-off
// retry and the dead queue.  The record itself stays failed either way;
// only the queue job moves.
func (w *Worker) fail(ctx context.Context, recordID uint64, cause error) outcome {
	attempts, err := w.records.MarkDeliveryFailed(ctx, recordID)
	if err != nil {
		w.log.Warnw("mark failed failed", "notification_id", recordID, "error", err)
		return outcomeRetry
	}
	w.log.Warnw("delivery failed", "notification_id", recordID, "attempts", attempts, "error", cause)
	if attempts >= w.cfg.MaxAttempts {
		w.log.Errorw("retries exhausted, dead-lettering", "notification_id", recordID, "attempts", attempts)
		return outcomeDead
	}
	w.sleep(ctx, w.backoff(attempts))
	return outcomeRetry
}

// backoff returns the delay before the nth retry: base doubled per failed
// attempt, capped at BackoffMax.
func (w *Worker) backoff(attempts uint32) time.Duration {
	d := w.cfg.BackoffBase
	for i := uint32(1); i < attempts; i++ {
		d *= 2
		if d >= w.cfg.BackoffMax {
			return w.cfg.BackoffMax
		}
	}
	if d > w.cfg.BackoffMax {
		return w.cfg.BackoffMax
	}
	return d
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// subjectFor maps an event tag to a human subject line.
func subjectFor(typ string) string {
	switch typ {
	case model.NotifBookingCreated:
		return "New booking"
	case model.NotifBookingAssigned:
		return "Booking assigned"
	case model.NotifBookingAccepted:
		return "Booking accepted"
	case model.NotifBookingRejected:
		return "Booking rejected"
	case model.NotifBookingCancelled:
		return "Booking cancelled"
	case model.NotifBookingStarted:
		return "Work started"
	case model.NotifBookingCompleted:
		return "Booking completed"
	case model.NotifExtraServiceAdded:
		return "Extra service proposed"
	case model.NotifExtraServicesConfirmed:
		return "Extra services confirmed"
	case model.NotifClaimFiled:
		return "Warranty claim filed"
	case model.NotifClaimAssigned:
		return "Warranty claim assigned"
	case model.NotifClaimInProgress:
		return "Warranty repair started"
	case model.NotifClaimRejected:
		return "Warranty claim rejected"
	case model.NotifClaimResolved:
		return "Warranty claim resolved"
	}
	return "Notification"
}
