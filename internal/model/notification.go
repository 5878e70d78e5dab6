package model

import "time"

// Channel is the delivery channel of an outbound notification.  Only email
// goes through the asynchronous dispatch queue; in-app notifications are
// delivered by the row insert itself, and sms/push are recorded and handed
// to whatever sender is configured.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	ChannelInApp Channel = "in_app"
)

// NotificationStatus tracks delivery of a notification record.  Records are
// created queued and flipped exactly once to a terminal state by the
// delivery worker (or immediately for in-app records).
type NotificationStatus string

const (
	NotificationQueued NotificationStatus = "queued"
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// Notification event types.  The tag is free-form in the schema; these
// constants cover every event the workflow engine emits.
const (
	NotifBookingCreated         = "booking_created"
	NotifBookingAssigned        = "booking_assigned"
	NotifBookingAccepted        = "booking_accepted"
	NotifBookingRejected        = "booking_rejected"
	NotifBookingCancelled       = "booking_cancelled"
	NotifBookingStarted         = "booking_started"
	NotifBookingCompleted       = "booking_completed"
	NotifExtraServiceAdded      = "extra_service_added"
	NotifExtraServicesConfirmed = "extra_services_confirmed"
	NotifClaimFiled             = "warranty_claim_filed"
	NotifClaimAssigned          = "warranty_claim_assigned"
	NotifClaimInProgress        = "warranty_claim_in_progress"
	NotifClaimRejected          = "warranty_claim_rejected"
	NotifClaimResolved          = "warranty_claim_resolved"
)

// NotificationPayload is the structured event data carried by a record and
// by dispatch jobs on the queue.  Message is always present; the entity ids
// are set when the event concerns that entity.
type NotificationPayload struct {
	Message    string `json:"message"`
	BookingID  uint64 `json:"booking_id,omitempty"`
	WarrantyID uint64 `json:"warranty_id,omitempty"`
}

// Notification is the durable record of one outbound message.  The row
// doubles as the outbox entry: PublishedAt marks the hand-off of an email
// record to the dispatch queue by the relay.
//
// Fields:
//  ID          – primary key identifier.
//  UserID      – recipient.
//  Type        – event tag (see Notif* constants).
//  Channel     – delivery channel.
//  Payload     – structured event data (JSON column).
//  Status      – queued/sent/failed.
//  Attempts    – failed delivery tries so far.
//  PublishedAt – when the relay pushed the dispatch job (nullable).
//  SentAt      – when delivery succeeded (nullable).
//  ReadAt      – when the recipient acknowledged it in the app (nullable).
type Notification struct {
	ID          uint64              // notifications.id
	UserID      uint64              // notifications.user_id
	Type        string              // notifications.type
	Channel     Channel             // notifications.channel
	Payload     NotificationPayload // notifications.payload (JSON)
	Status      NotificationStatus  // notifications.status
	Attempts    uint32              // notifications.attempts
	PublishedAt *time.Time          // notifications.published_at (nullable)
	SentAt      *time.Time          // notifications.sent_at (nullable)
	ReadAt      *time.Time          // notifications.read_at (nullable)
	CreatedAt   time.Time           // notifications.created_at
	UpdatedAt   time.Time           // notifications.updated_at
}
