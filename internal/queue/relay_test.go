package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/home-service-booking/internal/model"
)

type fakeOutbox struct {
	rows      []model.Notification
	published map[uint64]bool
}

func (f *fakeOutbox) ListUnpublishedEmail(_ context.Context, limit int) ([]model.Notification, error) {
	var out []model.Notification
	for _, n := range f.rows {
		if len(out) == limit {
			break
		}
		if !f.published[n.ID] {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkPublished(_ context.Context, id uint64, _ time.Time) error {
	if f.published == nil {
		f.published = map[uint64]bool{}
	}
	f.published[id] = true
	return nil
}

type fakePublisher struct {
	jobs    []DispatchJob
	failAt  int // fail the nth publish (1-based); 0 never fails
	pubErr  error
	nthCall int
}

func (f *fakePublisher) PublishJob(_ context.Context, job DispatchJob) error {
	f.nthCall++
	if f.failAt != 0 && f.nthCall == f.failAt {
		return f.pubErr
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func emailRow(id, userID uint64) model.Notification {
	return model.Notification{
		ID: id, UserID: userID, Type: model.NotifBookingAccepted,
		Channel: model.ChannelEmail, Status: model.NotificationQueued,
		Payload: model.NotificationPayload{Message: "hello", BookingID: 7},
	}
}

func TestSweepPublishesEachRowOnce(t *testing.T) {
	outbox := &fakeOutbox{rows: []model.Notification{emailRow(1, 10), emailRow(2, 11), emailRow(3, 12)}}
	pub := &fakePublisher{}
	r := NewRelay(outbox, pub, nil, time.Second, 50)

	n, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 3 {
		t.Fatalf("published = %d, want 3", n)
	}
	if len(pub.jobs) != 3 {
		t.Fatalf("broker received %d jobs, want 3", len(pub.jobs))
	}
	seen := map[string]bool{}
	for i, job := range pub.jobs {
		if job.NotificationID != outbox.rows[i].ID || job.ToUserID != outbox.rows[i].UserID {
			t.Errorf("job %d = %+v, want row %+v", i, job, outbox.rows[i])
		}
		if job.MessageID == "" || seen[job.MessageID] {
			t.Errorf("job %d message id %q not unique", i, job.MessageID)
		}
		seen[job.MessageID] = true
		if !outbox.published[job.NotificationID] {
			t.Errorf("row %d not marked published", job.NotificationID)
		}
	}

	// A second sweep finds nothing left.
	n, err = r.Sweep(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("second sweep = (%d, %v), want (0, nil)", n, err)
	}
}

func TestSweepStopsOnPublishFailure(t *testing.T) {
	outbox := &fakeOutbox{rows: []model.Notification{emailRow(1, 10), emailRow(2, 11), emailRow(3, 12)}}
	pub := &fakePublisher{failAt: 2, pubErr: errors.New("broker gone")}
	r := NewRelay(outbox, pub, nil, time.Second, 50)

	n, err := r.Sweep(context.Background())
	if err == nil {
		t.Fatal("sweep should surface the publish error")
	}
	if n != 1 {
		t.Fatalf("published = %d, want 1 before the failure", n)
	}
	if outbox.published[2] || outbox.published[3] {
		t.Error("rows after the failure must stay unpublished for the next tick")
	}

	// Next sweep retries the remaining rows.
	pub.failAt = 0
	n, err = r.Sweep(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("retry sweep = (%d, %v), want (2, nil)", n, err)
	}
}

func TestSweepHonorsBatchLimit(t *testing.T) {
	outbox := &fakeOutbox{rows: []model.Notification{emailRow(1, 10), emailRow(2, 11), emailRow(3, 12)}}
	pub := &fakePublisher{}
	r := NewRelay(outbox, pub, nil, time.Second, 2)

	n, err := r.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 2 {
		t.Fatalf("published = %d, want batch limit 2", n)
	}
}
