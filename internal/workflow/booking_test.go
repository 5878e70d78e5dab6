package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/home-service-booking/internal/model"
	"github.com/iliyamo/home-service-booking/internal/repository"
	"github.com/iliyamo/home-service-booking/internal/workflow"
)

func TestCreateBookingValidation(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	svc := s.addService("Deep cleaning", 4500)
	e := newTestEngine(s)
	actor := workflow.Actor{ID: client, Role: model.RoleClient}

	good := workflow.CreateBookingInput{
		ServiceID: svc, SlotDate: "2026-03-10", SlotStart: "09:00", SlotEnd: "11:00",
		Address: "12 Main St", PaymentMethod: model.PaymentPOD,
	}

	cases := []struct {
		name   string
		mutate func(in *workflow.CreateBookingInput)
	}{
		{"missing service", func(in *workflow.CreateBookingInput) { in.ServiceID = 0 }},
		{"missing address", func(in *workflow.CreateBookingInput) { in.Address = "  " }},
		{"bad date", func(in *workflow.CreateBookingInput) { in.SlotDate = "10-03-2026" }},
		{"bad start time", func(in *workflow.CreateBookingInput) { in.SlotStart = "9am" }},
		{"end before start", func(in *workflow.CreateBookingInput) { in.SlotStart = "11:00"; in.SlotEnd = "09:00" }},
		{"bad payment method", func(in *workflow.CreateBookingInput) { in.PaymentMethod = "CHEQUE" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := good
			tc.mutate(&in)
			if _, err := e.CreateBooking(context.Background(), actor, in); !errors.Is(err, workflow.ErrValidation) {
				t.Fatalf("got %v, want validation error", err)
			}
		})
	}
}

func TestCreateBookingDefaultsPriceFromCatalog(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	svc := s.addService("Deep cleaning", 4500)
	e := newTestEngine(s)

	b, err := e.CreateBooking(context.Background(), workflow.Actor{ID: client, Role: model.RoleClient}, workflow.CreateBookingInput{
		ServiceID: svc, SlotDate: "2026-03-10", SlotStart: "09:00", SlotEnd: "11:00",
		Address: "12 Main St", PaymentMethod: model.PaymentOnline,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.Status != model.BookingPending {
		t.Errorf("status = %q, want pending", b.Status)
	}
	if b.PriceCents != 4500 {
		t.Errorf("price = %d, want catalog base 4500", b.PriceCents)
	}
	if b.Version != 1 {
		t.Errorf("version = %d, want 1", b.Version)
	}
}

func TestCreateBookingNotifications(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	admin1 := s.addUser(model.RoleAdmin)
	admin2 := s.addUser(model.RoleAdmin)
	svc := s.addService("Boiler repair", 9900)
	e := newTestEngine(s)

	_, err := e.CreateBooking(context.Background(), workflow.Actor{ID: client, Role: model.RoleClient}, workflow.CreateBookingInput{
		ServiceID: svc, ProviderID: &provider,
		SlotDate: "2026-03-10", SlotStart: "09:00", SlotEnd: "11:00",
		Address: "12 Main St", PaymentMethod: model.PaymentPOD,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, admin := range []uint64{admin1, admin2} {
		got := s.notificationsFor(admin)
		if len(got) != 1 {
			t.Fatalf("admin %d notifications = %d, want 1", admin, len(got))
		}
		n := got[0]
		if n.Channel != model.ChannelInApp || n.Status != model.NotificationSent || n.SentAt == nil {
			t.Errorf("admin record = channel %q status %q, want sent in_app", n.Channel, n.Status)
		}
	}

	got := s.notificationsFor(provider)
	if len(got) != 1 {
		t.Fatalf("provider notifications = %d, want 1", len(got))
	}
	n := got[0]
	if n.Channel != model.ChannelEmail || n.Status != model.NotificationQueued {
		t.Errorf("provider record = channel %q status %q, want queued email", n.Channel, n.Status)
	}
	if n.Attempts != 0 || n.SentAt != nil || n.PublishedAt != nil {
		t.Errorf("queued record should start untouched, got attempts=%d sent=%v published=%v", n.Attempts, n.SentAt, n.PublishedAt)
	}
}

func TestCreateBookingRejectsNonProvider(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	other := s.addUser(model.RoleClient)
	svc := s.addService("Deep cleaning", 4500)
	e := newTestEngine(s)

	_, err := e.CreateBooking(context.Background(), workflow.Actor{ID: client, Role: model.RoleClient}, workflow.CreateBookingInput{
		ServiceID: svc, ProviderID: &other,
		SlotDate: "2026-03-10", SlotStart: "09:00", SlotEnd: "11:00",
		Address: "12 Main St", PaymentMethod: model.PaymentPOD,
	})
	if !errors.Is(err, workflow.ErrValidation) {
		t.Fatalf("got %v, want validation error", err)
	}
}

func TestAcceptBooking(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	svc := s.addService("Deep cleaning", 4500)
	b := s.addBooking(client, &provider, svc, model.BookingPending)
	e := newTestEngine(s)

	got, err := e.AcceptBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != model.BookingAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2 after one write", got.Version)
	}
	if ns := s.notificationsFor(client); len(ns) != 1 || ns[0].Type != model.NotifBookingAccepted {
		t.Errorf("client notifications = %+v, want one booking_accepted", ns)
	}
}

func TestAcceptBookingGuards(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	stranger := s.addUser(model.RoleProvider)
	svc := s.addService("Deep cleaning", 4500)
	e := newTestEngine(s)

	b := s.addBooking(client, &provider, svc, model.BookingPending)
	if _, err := e.AcceptBooking(context.Background(), workflow.Actor{ID: stranger, Role: model.RoleProvider}, b.ID); !errors.Is(err, workflow.ErrForbidden) {
		t.Errorf("stranger accept: got %v, want forbidden", err)
	}

	accepted := s.addBooking(client, &provider, svc, model.BookingAccepted)
	if _, err := e.AcceptBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, accepted.ID); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("accept from accepted: got %v, want invalid transition", err)
	}

	if _, err := e.AcceptBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, 9999); !errors.Is(err, repository.ErrBookingNotFound) {
		t.Errorf("accept missing booking: got %v, want not found", err)
	}
}

func TestRejectBookingRecordsReason(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	svc := s.addService("Deep cleaning", 4500)
	b := s.addBooking(client, &provider, svc, model.BookingPending)
	e := newTestEngine(s)

	got, err := e.RejectBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID, "  fully booked that day ")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != model.BookingRejected {
		t.Errorf("status = %q, want rejected", got.Status)
	}
	if got.CancelReason == nil || *got.CancelReason != "fully booked that day" {
		t.Errorf("cancel reason = %v, want trimmed reason", got.CancelReason)
	}
}

func TestAssignProvider(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	admin := s.addUser(model.RoleAdmin)
	svc := s.addService("Deep cleaning", 4500)
	b := s.addBooking(client, nil, svc, model.BookingPending)
	e := newTestEngine(s)

	got, err := e.AssignProvider(context.Background(), workflow.Actor{ID: admin, Role: model.RoleAdmin}, b.ID, provider)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if got.Status != model.BookingAccepted {
		t.Errorf("status = %q, want accepted", got.Status)
	}
	if got.ProviderID == nil || *got.ProviderID != provider {
		t.Errorf("provider = %v, want %d", got.ProviderID, provider)
	}
	if ns := s.notificationsFor(provider); len(ns) != 1 || ns[0].Type != model.NotifBookingAssigned {
		t.Errorf("provider notifications = %+v, want one booking_assigned", ns)
	}
	if ns := s.notificationsFor(client); len(ns) != 1 || ns[0].Type != model.NotifBookingAssigned {
		t.Errorf("client notifications = %+v, want one booking_assigned", ns)
	}
}

func TestAssignProviderRefusedStates(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	admin := s.addUser(model.RoleAdmin)
	svc := s.addService("Deep cleaning", 4500)
	e := newTestEngine(s)

	refused := []model.BookingStatus{
		model.BookingCancelled, model.BookingRejected, model.BookingInProgress,
		model.BookingCompleted, model.BookingWarrantyRequested, model.BookingWarrantyClaimed,
	}
	for _, st := range refused {
		b := s.addBooking(client, &provider, svc, st)
		if _, err := e.AssignProvider(context.Background(), workflow.Actor{ID: admin, Role: model.RoleAdmin}, b.ID, provider); !errors.Is(err, workflow.ErrInvalidTransition) {
			t.Errorf("assign from %q: got %v, want invalid transition", st, err)
		}
	}
}

func TestCancelBooking(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	stranger := s.addUser(model.RoleClient)
	svc := s.addService("Deep cleaning", 4500)
	e := newTestEngine(s)

	for _, st := range []model.BookingStatus{model.BookingPending, model.BookingAccepted, model.BookingInProgress} {
		b := s.addBooking(client, &provider, svc, st)
		got, err := e.CancelBooking(context.Background(), workflow.Actor{ID: client, Role: model.RoleClient}, b.ID, "changed plans")
		if err != nil {
			t.Fatalf("cancel from %q: %v", st, err)
		}
		if got.Status != model.BookingCancelled {
			t.Errorf("cancel from %q: status = %q", st, got.Status)
		}
	}

	done := s.addBooking(client, &provider, svc, model.BookingCompleted)
	if _, err := e.CancelBooking(context.Background(), workflow.Actor{ID: client, Role: model.RoleClient}, done.ID, "x"); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("cancel completed: got %v, want invalid transition", err)
	}

	b := s.addBooking(client, &provider, svc, model.BookingPending)
	if _, err := e.CancelBooking(context.Background(), workflow.Actor{ID: stranger, Role: model.RoleClient}, b.ID, "x"); !errors.Is(err, workflow.ErrForbidden) {
		t.Errorf("stranger cancel: got %v, want forbidden", err)
	}
}

func TestCancelNotifiesCounterpart(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	admin := s.addUser(model.RoleAdmin)
	svc := s.addService("Deep cleaning", 4500)
	e := newTestEngine(s)

	// Client cancels: the provider hears about it.
	b := s.addBooking(client, &provider, svc, model.BookingAccepted)
	if _, err := e.CancelBooking(context.Background(), workflow.Actor{ID: client, Role: model.RoleClient}, b.ID, "plans changed"); err != nil {
		t.Fatalf("client cancel: %v", err)
	}
	if ns := s.notificationsFor(provider); len(ns) != 1 || ns[0].Type != model.NotifBookingCancelled {
		t.Errorf("provider notifications = %+v, want one booking_cancelled", ns)
	}
	if ns := s.notificationsFor(client); len(ns) != 0 {
		t.Errorf("client should not be notified of its own cancel, got %+v", ns)
	}

	// Admin cancels: both sides hear about it.
	b2 := s.addBooking(client, &provider, svc, model.BookingAccepted)
	if _, err := e.CancelBooking(context.Background(), workflow.Actor{ID: admin, Role: model.RoleAdmin}, b2.ID, "provider unavailable"); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	if ns := s.notificationsFor(client); len(ns) != 1 {
		t.Errorf("client notifications after admin cancel = %d, want 1", len(ns))
	}
	if ns := s.notificationsFor(provider); len(ns) != 2 {
		t.Errorf("provider notifications after admin cancel = %d, want 2", len(ns))
	}
}

func TestStartBooking(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	svc := s.addService("Deep cleaning", 4500)
	e := newTestEngine(s)

	b := s.addBooking(client, &provider, svc, model.BookingAccepted)
	got, err := e.StartBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.Status != model.BookingInProgress {
		t.Errorf("status = %q, want in_progress", got.Status)
	}

	pending := s.addBooking(client, &provider, svc, model.BookingPending)
	if _, err := e.StartBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, pending.ID); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("start from pending: got %v, want invalid transition", err)
	}
}

func TestCompleteBookingOpensWarrantyWindow(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	svc := s.addService("Deep cleaning", 4500)
	b := s.addBooking(client, &provider, svc, model.BookingInProgress)
	e := newTestEngine(s)

	got, err := e.CompleteBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID, ptr(" https://cdn/slip.pdf "))
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != model.BookingCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(testNow) {
		t.Errorf("completed_at = %v, want %v", got.CompletedAt, testNow)
	}
	want := testNow.Add(workflow.WarrantyWindow)
	if got.WarrantyExpiresAt == nil || !got.WarrantyExpiresAt.Equal(want) {
		t.Errorf("warranty_expires_at = %v, want %v", got.WarrantyExpiresAt, want)
	}
	if got.WarrantySlip == nil || *got.WarrantySlip != "https://cdn/slip.pdf" {
		t.Errorf("warranty_slip = %v, want trimmed URL", got.WarrantySlip)
	}
}

func TestWarrantyWindowOnlyOnCompletion(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	svc := s.addService("Deep cleaning", 4500)
	e := newTestEngine(s)

	b := s.addBooking(client, &provider, svc, model.BookingAccepted)
	got, err := e.StartBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if got.CompletedAt != nil || got.WarrantyExpiresAt != nil {
		t.Errorf("non-completion transition must not stamp warranty fields, got %v / %v", got.CompletedAt, got.WarrantyExpiresAt)
	}
}

func TestAddExtraService(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	svc := s.addService("Deep cleaning", 4500)
	extraSvc := s.addService("Grout sealing", 1500)
	e := newTestEngine(s)

	b := s.addBooking(client, &provider, svc, model.BookingInProgress)
	item, err := e.AddExtraService(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID, extraSvc, nil)
	if err != nil {
		t.Fatalf("add extra: %v", err)
	}
	if item.Status != model.ExtraPending {
		t.Errorf("status = %q, want pending", item.Status)
	}
	if item.PriceCents != 1500 {
		t.Errorf("price = %d, want catalog base 1500", item.PriceCents)
	}
	if item.Title != "Grout sealing" {
		t.Errorf("title = %q, want catalog title", item.Title)
	}

	override, err := e.AddExtraService(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID, extraSvc, ptr(uint32(2000)))
	if err != nil {
		t.Fatalf("add extra with price: %v", err)
	}
	if override.PriceCents != 2000 {
		t.Errorf("price = %d, want override 2000", override.PriceCents)
	}

	pending := s.addBooking(client, &provider, svc, model.BookingPending)
	if _, err := e.AddExtraService(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, pending.ID, extraSvc, nil); !errors.Is(err, workflow.ErrInvalidTransition) {
		t.Errorf("add extra on pending booking: got %v, want invalid transition", err)
	}
}

func TestConfirmExtraServices(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	admin := s.addUser(model.RoleAdmin)
	svc := s.addService("Deep cleaning", 4500)
	extraSvc := s.addService("Grout sealing", 1500)
	e := newTestEngine(s)

	b := s.addBooking(client, &provider, svc, model.BookingInProgress)
	providerActor := workflow.Actor{ID: provider, Role: model.RoleProvider}
	if _, err := e.AddExtraService(context.Background(), providerActor, b.ID, extraSvc, nil); err != nil {
		t.Fatalf("add extra: %v", err)
	}
	if _, err := e.AddExtraService(context.Background(), providerActor, b.ID, extraSvc, ptr(uint32(2500))); err != nil {
		t.Fatalf("add extra: %v", err)
	}

	if _, err := e.ConfirmExtraServices(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID); !errors.Is(err, workflow.ErrForbidden) {
		t.Fatalf("provider confirm: got %v, want forbidden", err)
	}

	confirmed, err := e.ConfirmExtraServices(context.Background(), workflow.Actor{ID: client, Role: model.RoleClient}, b.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if len(confirmed) != 2 {
		t.Fatalf("confirmed %d items, want 2", len(confirmed))
	}
	for _, it := range confirmed {
		if it.Status != model.ExtraConfirmed {
			t.Errorf("item %d status = %q, want confirmed", it.ID, it.Status)
		}
	}
	if ns := s.notificationsFor(admin); len(ns) != 1 || ns[0].Type != model.NotifExtraServicesConfirmed {
		t.Errorf("admin notifications = %+v, want one batch summary", ns)
	}

	// Re-confirming with nothing left pending is an error, not a no-op.
	if _, err := e.ConfirmExtraServices(context.Background(), workflow.Actor{ID: client, Role: model.RoleClient}, b.ID); !errors.Is(err, workflow.ErrNothingPending) {
		t.Errorf("second confirm: got %v, want nothing pending", err)
	}
}

func TestNotificationFailureDoesNotBlockTransition(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	svc := s.addService("Deep cleaning", 4500)
	b := s.addBooking(client, &provider, svc, model.BookingAccepted)
	s.notifyErr = errors.New("notifications table unavailable")
	e := newTestEngine(s)

	got, err := e.StartBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID)
	if err != nil {
		t.Fatalf("start with broken notifications: %v", err)
	}
	if got.Status != model.BookingInProgress {
		t.Errorf("status = %q, want in_progress", got.Status)
	}
}

func TestVersionConflictSurfacesAndRollsBack(t *testing.T) {
	s := newMemStore()
	client := s.addUser(model.RoleClient)
	provider := s.addUser(model.RoleProvider)
	svc := s.addService("Deep cleaning", 4500)
	b := s.addBooking(client, &provider, svc, model.BookingAccepted)
	s.bookingUpdateErr = repository.ErrConflict
	e := newTestEngine(s)

	if _, err := e.StartBooking(context.Background(), workflow.Actor{ID: provider, Role: model.RoleProvider}, b.ID); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
	if cur := s.bookings[b.ID]; cur.Status != model.BookingAccepted {
		t.Errorf("status after rollback = %q, want accepted", cur.Status)
	}
}
