package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// CreateBookingInput carries the client-supplied fields for a new booking.
// ProviderID is optional: a client may request a specific provider up
// front, who then accepts or rejects; otherwise an admin assigns one.
type CreateBookingInput struct {
	ServiceID     uint64
	ProviderID    *uint64
	SlotDate      string // "2006-01-02"
	SlotStart     string // "15:04"
	SlotEnd       string // "15:04"
	Address       string
	PriceCents    uint32
	PaymentMethod model.PaymentMethod
}

// CreateBooking creates a booking in the pending state on behalf of the
// client and notifies the admins (and the requested provider, if any).
func (e *Engine) CreateBooking(ctx context.Context, actor Actor, in CreateBookingInput) (model.Booking, error) {
	if in.ServiceID == 0 {
		return model.Booking{}, Validationf("service_id is required")
	}
	if strings.TrimSpace(in.Address) == "" {
		return model.Booking{}, Validationf("address is required")
	}
	slotDate, err := parseSlotDate(in.SlotDate)
	if err != nil {
		return model.Booking{}, err
	}
	if err := validateSlotTimes(in.SlotStart, in.SlotEnd); err != nil {
		return model.Booking{}, err
	}
	switch in.PaymentMethod {
	case model.PaymentPOD, model.PaymentOnline:
	default:
		return model.Booking{}, Validationf("payment_method must be POD or ONLINE")
	}

	var b model.Booking
	err = e.store.Within(ctx, func(tx Tx) error {
		svc, err := tx.GetService(ctx, in.ServiceID)
		if err != nil {
			return err
		}
		if !svc.IsActive {
			return Validationf("service %d is not active", in.ServiceID)
		}
		if in.ProviderID != nil {
			p, err := tx.GetUser(ctx, *in.ProviderID)
			if err != nil {
				return err
			}
			if p.Role != model.RoleProvider {
				return Validationf("user %d is not a provider", *in.ProviderID)
			}
		}
		price := in.PriceCents
		if price == 0 {
			price = svc.BasePriceCents
		}
		b = model.Booking{
			ClientID:      actor.ID,
			ProviderID:    in.ProviderID,
			ServiceID:     in.ServiceID,
			Status:        model.BookingPending,
			PriceCents:    price,
			SlotDate:      slotDate,
			SlotStart:     in.SlotStart,
			SlotEnd:       in.SlotEnd,
			Address:       strings.TrimSpace(in.Address),
			PaymentMethod: in.PaymentMethod,
		}
		if err := tx.InsertBooking(ctx, &b); err != nil {
			return err
		}
		payload := model.NotificationPayload{
			Message:   fmt.Sprintf("New booking #%d for %q on %s %s-%s.", b.ID, svc.Title, in.SlotDate, in.SlotStart, in.SlotEnd),
			BookingID: b.ID,
		}
		e.notifyAdmins(ctx, tx, model.NotifBookingCreated, payload)
		if in.ProviderID != nil {
			e.notify(ctx, tx, *in.ProviderID, model.NotifBookingCreated, model.ChannelEmail, payload)
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// AssignProvider is the admin path onto the accepted state.  Assignment is
// refused once the booking has been cancelled, rejected or completed (or
// has gone further into the warranty states).
func (e *Engine) AssignProvider(ctx context.Context, actor Actor, bookingID, providerID uint64) (model.Booking, error) {
	if providerID == 0 {
		return model.Booking{}, Validationf("provider_id is required")
	}
	var b model.Booking
	err := e.store.Within(ctx, func(tx Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		switch b.Status {
		case model.BookingCancelled, model.BookingRejected, model.BookingCompleted,
			model.BookingWarrantyRequested, model.BookingWarrantyClaimed, model.BookingInProgress:
			return ErrInvalidTransition
		}
		p, err := tx.GetUser(ctx, providerID)
		if err != nil {
			return err
		}
		if p.Role != model.RoleProvider {
			return Validationf("user %d is not a provider", providerID)
		}
		b.ProviderID = &providerID
		b.Status = model.BookingAccepted
		if err := tx.UpdateBooking(ctx, &b, b.Version); err != nil {
			return err
		}
		payload := model.NotificationPayload{
			Message:   fmt.Sprintf("You have been assigned to booking #%d.", b.ID),
			BookingID: b.ID,
		}
		e.notify(ctx, tx, providerID, model.NotifBookingAssigned, model.ChannelEmail, payload)
		e.notify(ctx, tx, b.ClientID, model.NotifBookingAssigned, model.ChannelEmail, model.NotificationPayload{
			Message:   fmt.Sprintf("A provider has been assigned to your booking #%d.", b.ID),
			BookingID: b.ID,
		})
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// AcceptBooking lets the provider requested at creation time take the job.
func (e *Engine) AcceptBooking(ctx context.Context, actor Actor, bookingID uint64) (model.Booking, error) {
	var b model.Booking
	err := e.store.Within(ctx, func(tx Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return ErrInvalidTransition
		}
		if b.ProviderID == nil || *b.ProviderID != actor.ID {
			return ErrForbidden
		}
		b.Status = model.BookingAccepted
		if err := tx.UpdateBooking(ctx, &b, b.Version); err != nil {
			return err
		}
		e.notify(ctx, tx, b.ClientID, model.NotifBookingAccepted, model.ChannelEmail, model.NotificationPayload{
			Message:   fmt.Sprintf("Your booking #%d was accepted by the provider.", b.ID),
			BookingID: b.ID,
		})
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// RejectBooking lets the requested provider decline a pending booking.
// The reason is recorded and reported back to the client.
func (e *Engine) RejectBooking(ctx context.Context, actor Actor, bookingID uint64, reason string) (model.Booking, error) {
	var b model.Booking
	err := e.store.Within(ctx, func(tx Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingPending {
			return ErrInvalidTransition
		}
		if b.ProviderID == nil || *b.ProviderID != actor.ID {
			return ErrForbidden
		}
		b.Status = model.BookingRejected
		if r := strings.TrimSpace(reason); r != "" {
			b.CancelReason = &r
		}
		if err := tx.UpdateBooking(ctx, &b, b.Version); err != nil {
			return err
		}
		e.notify(ctx, tx, b.ClientID, model.NotifBookingRejected, model.ChannelEmail, model.NotificationPayload{
			Message:   fmt.Sprintf("Your booking #%d was rejected: %s", b.ID, strings.TrimSpace(reason)),
			BookingID: b.ID,
		})
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// CancelBooking cancels a booking that has not yet run to completion.  The
// owning client, the assigned provider and any admin may cancel; everyone
// else is refused regardless of the booking's state.
func (e *Engine) CancelBooking(ctx context.Context, actor Actor, bookingID uint64, reason string) (model.Booking, error) {
	var b model.Booking
	err := e.store.Within(ctx, func(tx Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if !e.mayCancel(actor, b) {
			return ErrForbidden
		}
		switch b.Status {
		case model.BookingPending, model.BookingAccepted, model.BookingInProgress:
		default:
			return ErrInvalidTransition
		}
		b.Status = model.BookingCancelled
		if r := strings.TrimSpace(reason); r != "" {
			b.CancelReason = &r
		}
		if err := tx.UpdateBooking(ctx, &b, b.Version); err != nil {
			return err
		}
		payload := model.NotificationPayload{
			Message:   fmt.Sprintf("Booking #%d was cancelled: %s", b.ID, strings.TrimSpace(reason)),
			BookingID: b.ID,
		}
		// Counterpart notification: whoever did not cancel hears about it.
		switch {
		case actor.ID == b.ClientID:
			if b.ProviderID != nil {
				e.notify(ctx, tx, *b.ProviderID, model.NotifBookingCancelled, model.ChannelEmail, payload)
			} else {
				e.notifyAdmins(ctx, tx, model.NotifBookingCancelled, payload)
			}
		case b.ProviderID != nil && actor.ID == *b.ProviderID:
			e.notify(ctx, tx, b.ClientID, model.NotifBookingCancelled, model.ChannelEmail, payload)
		default: // admin
			e.notify(ctx, tx, b.ClientID, model.NotifBookingCancelled, model.ChannelEmail, payload)
			if b.ProviderID != nil {
				e.notify(ctx, tx, *b.ProviderID, model.NotifBookingCancelled, model.ChannelEmail, payload)
			}
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (e *Engine) mayCancel(actor Actor, b model.Booking) bool {
	if actor.Role == model.RoleAdmin {
		return true
	}
	if actor.ID == b.ClientID {
		return true
	}
	return b.ProviderID != nil && actor.ID == *b.ProviderID
}

// StartBooking moves an accepted booking to in_progress.  Only the
// assigned provider may start the job.
func (e *Engine) StartBooking(ctx context.Context, actor Actor, bookingID uint64) (model.Booking, error) {
	var b model.Booking
	err := e.store.Within(ctx, func(tx Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingAccepted {
			return ErrInvalidTransition
		}
		if b.ProviderID == nil || *b.ProviderID != actor.ID {
			return ErrForbidden
		}
		b.Status = model.BookingInProgress
		if err := tx.UpdateBooking(ctx, &b, b.Version); err != nil {
			return err
		}
		e.notify(ctx, tx, b.ClientID, model.NotifBookingStarted, model.ChannelEmail, model.NotificationPayload{
			Message:   fmt.Sprintf("Work on your booking #%d has started.", b.ID),
			BookingID: b.ID,
		})
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// CompleteBooking finishes an in-progress job.  Completion stamps
// completed_at and opens the warranty window; an optional warranty slip
// URL may be attached.
func (e *Engine) CompleteBooking(ctx context.Context, actor Actor, bookingID uint64, warrantySlip *string) (model.Booking, error) {
	var b model.Booking
	err := e.store.Within(ctx, func(tx Tx) error {
		var err error
		b, err = tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingInProgress {
			return ErrInvalidTransition
		}
		if b.ProviderID == nil || *b.ProviderID != actor.ID {
			return ErrForbidden
		}
		now := e.now()
		expires := now.Add(WarrantyWindow)
		b.Status = model.BookingCompleted
		b.CompletedAt = &now
		b.WarrantyExpiresAt = &expires
		if warrantySlip != nil && strings.TrimSpace(*warrantySlip) != "" {
			s := strings.TrimSpace(*warrantySlip)
			b.WarrantySlip = &s
		}
		if err := tx.UpdateBooking(ctx, &b, b.Version); err != nil {
			return err
		}
		e.notify(ctx, tx, b.ClientID, model.NotifBookingCompleted, model.ChannelEmail, model.NotificationPayload{
			Message:   fmt.Sprintf("Your booking #%d is complete. Warranty runs until %s.", b.ID, expires.Format("2006-01-02")),
			BookingID: b.ID,
		})
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// AddExtraService appends a pending extra line item to a booking.  Only
// the assigned provider may add items, and only while the booking is
// accepted or in progress.  The price defaults to the catalog service's
// base price when not given.
func (e *Engine) AddExtraService(ctx context.Context, actor Actor, bookingID, serviceID uint64, priceCents *uint32) (model.ExtraService, error) {
	if serviceID == 0 {
		return model.ExtraService{}, Validationf("service_id is required")
	}
	var item model.ExtraService
	err := e.store.Within(ctx, func(tx Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.Status != model.BookingAccepted && b.Status != model.BookingInProgress {
			return ErrInvalidTransition
		}
		if b.ProviderID == nil || *b.ProviderID != actor.ID {
			return ErrForbidden
		}
		svc, err := tx.GetService(ctx, serviceID)
		if err != nil {
			return err
		}
		price := svc.BasePriceCents
		if priceCents != nil {
			price = *priceCents
		}
		item = model.ExtraService{
			BookingID:  bookingID,
			ServiceID:  serviceID,
			Title:      svc.Title,
			PriceCents: price,
			Status:     model.ExtraPending,
		}
		if err := tx.InsertExtra(ctx, &item); err != nil {
			return err
		}
		e.notify(ctx, tx, b.ClientID, model.NotifExtraServiceAdded, model.ChannelEmail, model.NotificationPayload{
			Message:   fmt.Sprintf("Provider proposed an extra service %q (%d cents) on booking #%d. Please confirm.", svc.Title, price, b.ID),
			BookingID: b.ID,
		})
		return nil
	})
	if err != nil {
		return model.ExtraService{}, err
	}
	return item, nil
}

// ConfirmExtraServices confirms every currently-pending extra item on the
// booking in one batch.  The action belongs to the owning client and fails
// with ErrNothingPending when there is nothing to confirm.  Each admin
// receives one summary notification covering the whole batch.
func (e *Engine) ConfirmExtraServices(ctx context.Context, actor Actor, bookingID uint64) ([]model.ExtraService, error) {
	var confirmed []model.ExtraService
	err := e.store.Within(ctx, func(tx Tx) error {
		b, err := tx.GetBooking(ctx, bookingID)
		if err != nil {
			return err
		}
		if actor.ID != b.ClientID {
			return ErrForbidden
		}
		if b.Status != model.BookingAccepted && b.Status != model.BookingInProgress {
			return ErrInvalidTransition
		}
		extras, err := tx.ListExtras(ctx, bookingID)
		if err != nil {
			return err
		}
		var pending []model.ExtraService
		for _, it := range extras {
			if it.Status == model.ExtraPending {
				pending = append(pending, it)
			}
		}
		if len(pending) == 0 {
			return ErrNothingPending
		}
		if _, err := tx.ConfirmPendingExtras(ctx, bookingID); err != nil {
			return err
		}
		parts := make([]string, 0, len(pending))
		for i := range pending {
			pending[i].Status = model.ExtraConfirmed
			parts = append(parts, fmt.Sprintf("%s (%d cents)", pending[i].Title, pending[i].PriceCents))
		}
		confirmed = pending
		e.notifyAdmins(ctx, tx, model.NotifExtraServicesConfirmed, model.NotificationPayload{
			Message:   fmt.Sprintf("Client confirmed %d extra service(s) on booking #%d: %s.", len(pending), b.ID, strings.Join(parts, ", ")),
			BookingID: b.ID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}
