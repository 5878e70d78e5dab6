package model

import "time"

// BookingStatus enumerates every state a booking can occupy during its
// lifecycle.  The zero value is invalid; bookings are always created in
// BookingPending.  Status strings are stored verbatim in the
// `bookings.status` column.
type BookingStatus string

const (
	BookingPending           BookingStatus = "pending"            // created by the client, awaiting a provider
	BookingAccepted          BookingStatus = "accepted"           // a provider accepted or an admin assigned one
	BookingRejected          BookingStatus = "rejected"           // the assigned provider declined (terminal)
	BookingCancelled         BookingStatus = "cancelled"          // cancelled by client, provider or admin (terminal)
	BookingInProgress        BookingStatus = "in_progress"        // the provider started the job on site
	BookingCompleted         BookingStatus = "completed"          // work delivered; warranty window is running
	BookingWarrantyRequested BookingStatus = "warranty_requested" // an active warranty claim is open
	BookingWarrantyClaimed   BookingStatus = "warranty_claimed"   // a warranty claim was resolved (terminal)
)

// PaymentMethod records how the client intends to pay.  Payment itself is
// handled outside this service; the method is captured for the record only.
type PaymentMethod string

const (
	PaymentPOD    PaymentMethod = "POD"    // pay on delivery
	PaymentOnline PaymentMethod = "ONLINE" // external online payment
)

// ExtraStatus is the state of a single extra-service line item.
type ExtraStatus string

const (
	ExtraPending   ExtraStatus = "pending"   // proposed by the provider, awaiting client confirmation
	ExtraConfirmed ExtraStatus = "confirmed" // confirmed by the client
)

// Booking represents one scheduled service engagement between a client and
// a provider.  The slot (date plus start/end time) and the address are
// snapshots taken at creation time and never change afterwards.
//
// Fields:
//  ID                – primary key identifier.
//  ClientID          – user who created the booking.
//  ProviderID        – assigned provider; nil until assignment/acceptance.
//  ServiceID         – catalog service being booked.
//  Status            – current lifecycle state.
//  PriceCents        – agreed price in cents.
//  SlotDate          – service date (DATE column, UTC midnight).
//  SlotStart/SlotEnd – "HH:MM" times within the slot date.
//  Address           – free-text address snapshot.
//  PaymentMethod     – POD or ONLINE.
//  CancelReason      – reason recorded on reject/cancel (nullable).
//  WarrantySlip      – optional slip URL attached on completion (nullable).
//  CompletedAt       – when the provider completed the job (nullable).
//  WarrantyExpiresAt – CompletedAt + warranty window; set iff CompletedAt is.
//  Version           – optimistic concurrency counter, bumped on every write.
type Booking struct {
	ID                uint64        // bookings.id
	ClientID          uint64        // bookings.client_id
	ProviderID        *uint64       // bookings.provider_id (nullable)
	ServiceID         uint64        // bookings.service_id
	Status            BookingStatus // bookings.status
	PriceCents        uint32        // bookings.price_cents
	SlotDate          time.Time     // bookings.slot_date
	SlotStart         string        // bookings.slot_start ("HH:MM")
	SlotEnd           string        // bookings.slot_end ("HH:MM")
	Address           string        // bookings.address
	PaymentMethod     PaymentMethod // bookings.payment_method
	CancelReason      *string       // bookings.cancel_reason (nullable)
	WarrantySlip      *string       // bookings.warranty_slip (nullable)
	CompletedAt       *time.Time    // bookings.completed_at (nullable)
	WarrantyExpiresAt *time.Time    // bookings.warranty_expires_at (nullable)
	Version           uint64        // bookings.version
	CreatedAt         time.Time     // bookings.created_at
	UpdatedAt         time.Time     // bookings.updated_at
}

// ExtraService is one provider-proposed additional line item on a booking.
// Items are appended while the booking is accepted or in progress and stay
// pending until the client confirms the whole batch.
type ExtraService struct {
	ID         uint64      // booking_extra_services.id
	BookingID  uint64      // booking_extra_services.booking_id
	ServiceID  uint64      // booking_extra_services.service_id
	Title      string      // booking_extra_services.title (catalog snapshot)
	PriceCents uint32      // booking_extra_services.price_cents
	Status     ExtraStatus // booking_extra_services.status
	AddedAt    time.Time   // booking_extra_services.added_at
}

// Terminal reports whether the status admits no further transitions.  A
// completed booking is only conditionally terminal: a warranty claim may
// still reopen it while the window is running.
func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingRejected, BookingCancelled, BookingWarrantyClaimed:
		return true
	}
	return false
}
