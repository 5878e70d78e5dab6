package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// AdminAction is the closed set of actions an admin may take on a claim.
// Parsing happens once at the handler edge; the engine switches over the
// type exhaustively, so an unknown action can never fall through silently.
type AdminAction string

const (
	AdminAssign  AdminAction = "assign"
	AdminReject  AdminAction = "reject"
	AdminResolve AdminAction = "resolve"
)

// ParseAdminAction validates a wire-level action string.
func ParseAdminAction(s string) (AdminAction, error) {
	switch AdminAction(s) {
	case AdminAssign, AdminReject, AdminResolve:
		return AdminAction(s), nil
	}
	return "", Validationf("unknown admin action %q", s)
}

// AgentAction is the closed set of status moves the assigned agent may make.
type AgentAction string

const (
	AgentInProgress AgentAction = "in_progress"
	AgentResolved   AgentAction = "resolved"
)

// ParseAgentAction validates a wire-level agent status string.
func ParseAgentAction(s string) (AgentAction, error) {
	switch AgentAction(s) {
	case AgentInProgress, AgentResolved:
		return AgentAction(s), nil
	}
	return "", Validationf("unknown agent action %q", s)
}

// CreateClaimInput carries the client-supplied fields for a new claim.
type CreateClaimInput struct {
	BookingID      uint64
	IssueDetails   string
	AttachmentURLs []string
}

// CreateClaim files a warranty claim against a completed booking.  Guards:
// the caller must be the booking's client, the booking must currently be
// completed, and the warranty window must still be open (inclusive of the
// expiry instant).  The booking moves to warranty_requested in the same
// transaction, and the provider plus all admins are notified.  A second
// claim while one is active is impossible by construction: the active
// claim holds the booking at warranty_requested, which fails the
// completed-status guard.
func (e *Engine) CreateClaim(ctx context.Context, actor Actor, in CreateClaimInput) (model.WarrantyClaim, error) {
	if in.BookingID == 0 {
		return model.WarrantyClaim{}, Validationf("booking_id is required")
	}
	if strings.TrimSpace(in.IssueDetails) == "" {
		return model.WarrantyClaim{}, Validationf("issue_details is required")
	}
	var cl model.WarrantyClaim
	err := e.store.Within(ctx, func(tx Tx) error {
		b, err := tx.GetBooking(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if actor.ID != b.ClientID {
			return ErrForbidden
		}
		if b.Status != model.BookingCompleted {
			return ErrInvalidTransition
		}
		if b.WarrantyExpiresAt == nil || e.now().After(*b.WarrantyExpiresAt) {
			return ErrWarrantyExpired
		}
		if b.ProviderID == nil {
			// completed bookings always carry a provider; guard anyway
			return ErrInvalidTransition
		}
		cl = model.WarrantyClaim{
			BookingID:      b.ID,
			ClientID:       b.ClientID,
			ProviderID:     *b.ProviderID,
			Status:         model.ClaimPending,
			IssueDetails:   strings.TrimSpace(in.IssueDetails),
			AttachmentURLs: in.AttachmentURLs,
		}
		if err := tx.InsertClaim(ctx, &cl); err != nil {
			return err
		}
		b.Status = model.BookingWarrantyRequested
		if err := tx.UpdateBooking(ctx, &b, b.Version); err != nil {
			return err
		}
		payload := model.NotificationPayload{
			Message:    fmt.Sprintf("Warranty claim #%d filed on booking #%d.", cl.ID, b.ID),
			BookingID:  b.ID,
			WarrantyID: cl.ID,
		}
		e.notify(ctx, tx, cl.ProviderID, model.NotifClaimFiled, model.ChannelEmail, payload)
		e.notifyAdmins(ctx, tx, model.NotifClaimFiled, payload)
		return nil
	})
	if err != nil {
		return model.WarrantyClaim{}, err
	}
	return cl, nil
}

// AdminClaimInput carries the fields of a PATCH /warranty/:id/admin call.
type AdminClaimInput struct {
	Action          AdminAction
	AssignedAgentID *uint64
	AdminNotes      *string
}

// AdminClaimAction applies one admin action to a claim.  Reject and
// resolve synchronize the parent booking in the same transaction, but only
// when the booking is still warranty_requested; a booking that has moved on
// is left untouched.
func (e *Engine) AdminClaimAction(ctx context.Context, actor Actor, claimID uint64, in AdminClaimInput) (model.WarrantyClaim, error) {
	var cl model.WarrantyClaim
	err := e.store.Within(ctx, func(tx Tx) error {
		var err error
		cl, err = tx.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if in.AdminNotes != nil && strings.TrimSpace(*in.AdminNotes) != "" {
			n := strings.TrimSpace(*in.AdminNotes)
			cl.AdminNotes = &n
		}
		switch in.Action {
		case AdminAssign:
			if in.AssignedAgentID == nil || *in.AssignedAgentID == 0 {
				return Validationf("assigned_agent_id is required for assign")
			}
			if cl.Status != model.ClaimPending && cl.Status != model.ClaimAssigned {
				return ErrInvalidTransition
			}
			agent, err := tx.GetUser(ctx, *in.AssignedAgentID)
			if err != nil {
				return err
			}
			if agent.Role != model.RoleProvider {
				return Validationf("user %d cannot act as repair agent", *in.AssignedAgentID)
			}
			cl.AssignedAgentID = in.AssignedAgentID
			cl.Status = model.ClaimAssigned
			if err := tx.UpdateClaim(ctx, &cl, cl.Version); err != nil {
				return err
			}
			e.notify(ctx, tx, agent.ID, model.NotifClaimAssigned, model.ChannelEmail, model.NotificationPayload{
				Message:    fmt.Sprintf("You have been assigned to warranty claim #%d.", cl.ID),
				BookingID:  cl.BookingID,
				WarrantyID: cl.ID,
			})
			return nil

		case AdminReject:
			if cl.Status != model.ClaimPending && cl.Status != model.ClaimAssigned {
				return ErrInvalidTransition
			}
			cl.Status = model.ClaimRejected
			if err := tx.UpdateClaim(ctx, &cl, cl.Version); err != nil {
				return err
			}
			if err := e.syncBookingOnClaimClose(ctx, tx, cl.BookingID, model.BookingCompleted); err != nil {
				return err
			}
			e.notify(ctx, tx, cl.ClientID, model.NotifClaimRejected, model.ChannelEmail, model.NotificationPayload{
				Message:    fmt.Sprintf("Your warranty claim #%d was rejected.", cl.ID),
				BookingID:  cl.BookingID,
				WarrantyID: cl.ID,
			})
			return nil

		case AdminResolve:
			if cl.Status != model.ClaimAssigned && cl.Status != model.ClaimInProgress {
				return ErrInvalidTransition
			}
			return e.resolveClaim(ctx, tx, &cl, nil)
		}
		return Validationf("unknown admin action %q", in.Action)
	})
	if err != nil {
		return model.WarrantyClaim{}, err
	}
	return cl, nil
}

// AgentClaimAction applies a status move by the assigned repair agent.
// Only the currently assigned agent may act; the client is notified either
// way.
func (e *Engine) AgentClaimAction(ctx context.Context, actor Actor, claimID uint64, action AgentAction, resolutionNotes *string) (model.WarrantyClaim, error) {
	var cl model.WarrantyClaim
	err := e.store.Within(ctx, func(tx Tx) error {
		var err error
		cl, err = tx.GetClaim(ctx, claimID)
		if err != nil {
			return err
		}
		if cl.AssignedAgentID == nil || *cl.AssignedAgentID != actor.ID {
			return ErrForbidden
		}
		switch action {
		case AgentInProgress:
			if cl.Status != model.ClaimAssigned {
				return ErrInvalidTransition
			}
			cl.Status = model.ClaimInProgress
			if err := tx.UpdateClaim(ctx, &cl, cl.Version); err != nil {
				return err
			}
			e.notify(ctx, tx, cl.ClientID, model.NotifClaimInProgress, model.ChannelEmail, model.NotificationPayload{
				Message:    fmt.Sprintf("Repair work on your warranty claim #%d has started.", cl.ID),
				BookingID:  cl.BookingID,
				WarrantyID: cl.ID,
			})
			return nil

		case AgentResolved:
			if cl.Status != model.ClaimAssigned && cl.Status != model.ClaimInProgress {
				return ErrInvalidTransition
			}
			return e.resolveClaim(ctx, tx, &cl, resolutionNotes)
		}
		return Validationf("unknown agent action %q", action)
	})
	if err != nil {
		return model.WarrantyClaim{}, err
	}
	return cl, nil
}

// resolveClaim finalizes a claim as resolved and advances the parent
// booking to warranty_claimed when it is still waiting on this claim.
func (e *Engine) resolveClaim(ctx context.Context, tx Tx, cl *model.WarrantyClaim, resolutionNotes *string) error {
	now := e.now()
	cl.Status = model.ClaimResolved
	cl.ResolvedAt = &now
	if resolutionNotes != nil && strings.TrimSpace(*resolutionNotes) != "" {
		n := strings.TrimSpace(*resolutionNotes)
		cl.ResolutionNotes = &n
	}
	if err := tx.UpdateClaim(ctx, cl, cl.Version); err != nil {
		return err
	}
	if err := e.syncBookingOnClaimClose(ctx, tx, cl.BookingID, model.BookingWarrantyClaimed); err != nil {
		return err
	}
	e.notify(ctx, tx, cl.ClientID, model.NotifClaimResolved, model.ChannelEmail, model.NotificationPayload{
		Message:    fmt.Sprintf("Your warranty claim #%d has been resolved.", cl.ID),
		BookingID:  cl.BookingID,
		WarrantyID: cl.ID,
	})
	return nil
}

// syncBookingOnClaimClose moves the parent booking out of
// warranty_requested when a claim closes.  The write happens in the same
// transaction as the claim mutation, and a booking in any other state is
// left alone so the sync stays idempotent.
func (e *Engine) syncBookingOnClaimClose(ctx context.Context, tx Tx, bookingID uint64, to model.BookingStatus) error {
	b, err := tx.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != model.BookingWarrantyRequested {
		return nil
	}
	b.Status = to
	return tx.UpdateBooking(ctx, &b, b.Version)
}
