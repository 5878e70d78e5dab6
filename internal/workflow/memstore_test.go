package workflow_test

import (
	"context"
	"time"

	"github.com/iliyamo/home-service-booking/internal/model"
	"github.com/iliyamo/home-service-booking/internal/repository"
	"github.com/iliyamo/home-service-booking/internal/workflow"
)

// testNow is the frozen clock every engine under test runs on.
var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// memStore is an in-memory workflow.Store.  Within snapshots all state
// before running fn and restores it when fn fails, mirroring a rolled-back
// database transaction.
type memStore struct {
	bookings      map[uint64]model.Booking
	extras        map[uint64]model.ExtraService
	claims        map[uint64]model.WarrantyClaim
	notifications map[uint64]model.Notification
	users         map[uint64]model.User
	services      map[uint64]model.Service
	nextID        uint64

	notifyErr        error // forced InsertNotification failure
	bookingUpdateErr error // forced UpdateBooking failure
}

func newMemStore() *memStore {
	return &memStore{
		bookings:      map[uint64]model.Booking{},
		extras:        map[uint64]model.ExtraService{},
		claims:        map[uint64]model.WarrantyClaim{},
		notifications: map[uint64]model.Notification{},
		users:         map[uint64]model.User{},
		services:      map[uint64]model.Service{},
	}
}

func (s *memStore) id() uint64 {
	s.nextID++
	return s.nextID
}

type snapshot struct {
	bookings      map[uint64]model.Booking
	extras        map[uint64]model.ExtraService
	claims        map[uint64]model.WarrantyClaim
	notifications map[uint64]model.Notification
	nextID        uint64
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) Within(ctx context.Context, fn func(tx workflow.Tx) error) error {
	snap := snapshot{
		bookings:      copyMap(s.bookings),
		extras:        copyMap(s.extras),
		claims:        copyMap(s.claims),
		notifications: copyMap(s.notifications),
		nextID:        s.nextID,
	}
	if err := fn(&memTx{s}); err != nil {
		s.bookings = snap.bookings
		s.extras = snap.extras
		s.claims = snap.claims
		s.notifications = snap.notifications
		s.nextID = snap.nextID
		return err
	}
	return nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) GetBooking(_ context.Context, id uint64) (model.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (t *memTx) InsertBooking(_ context.Context, b *model.Booking) error {
	b.ID = t.s.id()
	b.Version = 1
	b.CreatedAt = testNow
	b.UpdatedAt = testNow
	t.s.bookings[b.ID] = *b
	return nil
}

func (t *memTx) UpdateBooking(_ context.Context, b *model.Booking, expectedVersion uint64) error {
	if t.s.bookingUpdateErr != nil {
		return t.s.bookingUpdateErr
	}
	cur, ok := t.s.bookings[b.ID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if cur.Version != expectedVersion {
		return repository.ErrConflict
	}
	b.Version = expectedVersion + 1
	t.s.bookings[b.ID] = *b
	return nil
}

func (t *memTx) ListExtras(_ context.Context, bookingID uint64) ([]model.ExtraService, error) {
	var out []model.ExtraService
	for id := uint64(1); id <= t.s.nextID; id++ {
		if e, ok := t.s.extras[id]; ok && e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *memTx) InsertExtra(_ context.Context, e *model.ExtraService) error {
	e.ID = t.s.id()
	e.AddedAt = testNow
	t.s.extras[e.ID] = *e
	return nil
}

func (t *memTx) ConfirmPendingExtras(_ context.Context, bookingID uint64) (int64, error) {
	var n int64
	for id, e := range t.s.extras {
		if e.BookingID == bookingID && e.Status == model.ExtraPending {
			e.Status = model.ExtraConfirmed
			t.s.extras[id] = e
			n++
		}
	}
	return n, nil
}

func (t *memTx) GetClaim(_ context.Context, id uint64) (model.WarrantyClaim, error) {
	cl, ok := t.s.claims[id]
	if !ok {
		return model.WarrantyClaim{}, repository.ErrClaimNotFound
	}
	return cl, nil
}

func (t *memTx) InsertClaim(_ context.Context, cl *model.WarrantyClaim) error {
	cl.ID = t.s.id()
	cl.Version = 1
	cl.CreatedAt = testNow
	cl.UpdatedAt = testNow
	t.s.claims[cl.ID] = *cl
	return nil
}

func (t *memTx) UpdateClaim(_ context.Context, cl *model.WarrantyClaim, expectedVersion uint64) error {
	cur, ok := t.s.claims[cl.ID]
	if !ok {
		return repository.ErrClaimNotFound
	}
	if cur.Version != expectedVersion {
		return repository.ErrConflict
	}
	cl.Version = expectedVersion + 1
	t.s.claims[cl.ID] = *cl
	return nil
}

func (t *memTx) InsertNotification(_ context.Context, n *model.Notification) error {
	if t.s.notifyErr != nil {
		return t.s.notifyErr
	}
	n.ID = t.s.id()
	n.CreatedAt = testNow
	n.UpdatedAt = testNow
	t.s.notifications[n.ID] = *n
	return nil
}

func (t *memTx) GetUser(_ context.Context, id uint64) (model.User, error) {
	u, ok := t.s.users[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (t *memTx) ListAdmins(_ context.Context) ([]model.User, error) {
	var out []model.User
	for id := uint64(1); id <= t.s.nextID; id++ {
		if u, ok := t.s.users[id]; ok && u.Role == model.RoleAdmin && u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (t *memTx) GetService(_ context.Context, id uint64) (model.Service, error) {
	svc, ok := t.s.services[id]
	if !ok {
		return model.Service{}, repository.ErrServiceNotFound
	}
	return svc, nil
}

// addUser seeds a user and returns its id.
func (s *memStore) addUser(role string) uint64 {
	id := s.id()
	s.users[id] = model.User{
		ID: id, Email: "user@example.com", Role: role, IsActive: true,
	}
	return id
}

// addService seeds an active catalog service and returns its id.
func (s *memStore) addService(title string, basePrice uint32) uint64 {
	id := s.id()
	s.services[id] = model.Service{ID: id, Title: title, BasePriceCents: basePrice, IsActive: true}
	return id
}

// addBooking seeds a booking in the given status and returns it.
func (s *memStore) addBooking(clientID uint64, providerID *uint64, serviceID uint64, status model.BookingStatus) model.Booking {
	id := s.id()
	b := model.Booking{
		ID: id, ClientID: clientID, ProviderID: providerID, ServiceID: serviceID,
		Status: status, PriceCents: 5000,
		SlotDate: testNow.AddDate(0, 0, 3), SlotStart: "09:00", SlotEnd: "11:00",
		Address: "12 Main St", PaymentMethod: model.PaymentPOD,
		Version: 1, CreatedAt: testNow, UpdatedAt: testNow,
	}
	if status == model.BookingCompleted || status == model.BookingWarrantyRequested || status == model.BookingWarrantyClaimed {
		done := testNow.Add(-24 * time.Hour)
		exp := done.Add(workflow.WarrantyWindow)
		b.CompletedAt = &done
		b.WarrantyExpiresAt = &exp
	}
	s.bookings[id] = b
	return b
}

// addClaim seeds a warranty claim in the given status and returns it.
func (s *memStore) addClaim(b model.Booking, status model.ClaimStatus, agentID *uint64) model.WarrantyClaim {
	id := s.id()
	cl := model.WarrantyClaim{
		ID: id, BookingID: b.ID, ClientID: b.ClientID, ProviderID: *b.ProviderID,
		AssignedAgentID: agentID, Status: status, IssueDetails: "leaking valve",
		Version: 1, CreatedAt: testNow, UpdatedAt: testNow,
	}
	s.claims[id] = cl
	return cl
}

// notificationsFor returns the seeded notifications addressed to a user.
func (s *memStore) notificationsFor(userID uint64) []model.Notification {
	var out []model.Notification
	for id := uint64(1); id <= s.nextID; id++ {
		if n, ok := s.notifications[id]; ok && n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func newTestEngine(s *memStore) *workflow.Engine {
	return workflow.NewEngine(s, nil).WithClock(func() time.Time { return testNow })
}

func ptr[T any](v T) *T { return &v }
