package model

import "time"

// ClaimStatus enumerates the states of a warranty claim.  Claims move
// pending → assigned → in_progress → resolved, or are rejected from
// pending/assigned.  resolved and rejected are terminal.
type ClaimStatus string

const (
	ClaimPending    ClaimStatus = "pending"
	ClaimAssigned   ClaimStatus = "assigned"
	ClaimInProgress ClaimStatus = "in_progress"
	ClaimResolved   ClaimStatus = "resolved"
	ClaimRejected   ClaimStatus = "rejected"
)

// Terminal reports whether the claim status admits no further transitions.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimResolved || s == ClaimRejected
}

// WarrantyClaim is a client-filed issue report against a completed booking.
// ClientID and ProviderID are copied from the booking at creation time so a
// claim stays meaningful even if the booking is later inspected in another
// state.  AssignedAgentID points at the provider-role user dispatched to
// repair the issue; it may differ from the original provider.
//
// Fields:
//  ID              – primary key identifier.
//  BookingID       – parent booking.
//  ClientID        – claimant; always equals the booking's client.
//  ProviderID      – provider copied from the booking.
//  AssignedAgentID – repair agent, set by an admin (nullable).
//  Status          – current claim state.
//  IssueDetails    – client's description of the problem.
//  AttachmentURLs  – uploaded evidence URLs (stored as JSON).
//  AdminNotes      – free text recorded on admin actions (nullable).
//  ResolutionNotes – free text recorded on resolution (nullable).
//  ResolvedAt      – when the claim reached resolved (nullable).
//  Version         – optimistic concurrency counter.
type WarrantyClaim struct {
	ID              uint64      // warranty_claims.id
	BookingID       uint64      // warranty_claims.booking_id
	ClientID        uint64      // warranty_claims.client_id
	ProviderID      uint64      // warranty_claims.provider_id
	AssignedAgentID *uint64     // warranty_claims.assigned_agent_id (nullable)
	Status          ClaimStatus // warranty_claims.status
	IssueDetails    string      // warranty_claims.issue_details
	AttachmentURLs  []string    // warranty_claims.attachment_urls (JSON)
	AdminNotes      *string     // warranty_claims.admin_notes (nullable)
	ResolutionNotes *string     // warranty_claims.resolution_notes (nullable)
	ResolvedAt      *time.Time  // warranty_claims.resolved_at (nullable)
	Version         uint64      // warranty_claims.version
	CreatedAt       time.Time   // warranty_claims.created_at
	UpdatedAt       time.Time   // warranty_claims.updated_at
}
