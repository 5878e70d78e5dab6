package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// WarrantyRepo provides CRUD operations for warranty claims.  Attachment
// URLs are stored in a JSON column.
type WarrantyRepo struct {
	db *sql.DB
}

// NewWarrantyRepo returns a WarrantyRepo bound to the given database.
func NewWarrantyRepo(db *sql.DB) *WarrantyRepo { return &WarrantyRepo{db: db} }

const claimColumns = `id, booking_id, client_id, provider_id, assigned_agent_id, status,
 issue_details, attachment_urls, admin_notes, resolution_notes, resolved_at,
 version, created_at, updated_at`

func scanClaim(rs rowScanner) (model.WarrantyClaim, error) {
	var cl model.WarrantyClaim
	var agentID sql.NullInt64
	var attachments []byte
	var adminNotes, resolutionNotes sql.NullString
	var resolvedAt sql.NullTime
	var status string
	err := rs.Scan(
		&cl.ID, &cl.BookingID, &cl.ClientID, &cl.ProviderID, &agentID, &status,
		&cl.IssueDetails, &attachments, &adminNotes, &resolutionNotes, &resolvedAt,
		&cl.Version, &cl.CreatedAt, &cl.UpdatedAt,
	)
	if err != nil {
		return model.WarrantyClaim{}, err
	}
	cl.Status = model.ClaimStatus(status)
	if agentID.Valid {
		v := uint64(agentID.Int64)
		cl.AssignedAgentID = &v
	}
	if len(attachments) > 0 {
		_ = json.Unmarshal(attachments, &cl.AttachmentURLs)
	}
	if adminNotes.Valid {
		cl.AdminNotes = &adminNotes.String
	}
	if resolutionNotes.Valid {
		cl.ResolutionNotes = &resolutionNotes.String
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		cl.ResolvedAt = &t
	}
	return cl, nil
}

// GetTx loads a claim inside a transaction with a row lock.
func (r *WarrantyRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.WarrantyClaim, error) {
	q := `SELECT ` + claimColumns + ` FROM warranty_claims WHERE id = ? FOR UPDATE`
	cl, err := scanClaim(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.WarrantyClaim{}, ErrClaimNotFound
	}
	return cl, err
}

// InsertTx persists a new claim and populates its generated ID.
func (r *WarrantyRepo) InsertTx(ctx context.Context, tx *sql.Tx, cl *model.WarrantyClaim) error {
	attachments, err := json.Marshal(cl.AttachmentURLs)
	if err != nil {
		return err
	}
	const q = `INSERT INTO warranty_claims
 (booking_id, client_id, provider_id, status, issue_details, attachment_urls, version)
 VALUES (?, ?, ?, ?, ?, ?, 1)`
	res, err := tx.ExecContext(ctx, q, cl.BookingID, cl.ClientID, cl.ProviderID,
		string(cl.Status), cl.IssueDetails, attachments)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	cl.ID = uint64(id)
	cl.Version = 1
	now := time.Now().UTC()
	cl.CreatedAt = now
	cl.UpdatedAt = now
	return nil
}

// UpdateTx writes the mutable claim fields back with an optimistic version
// check, mirroring BookingRepo.UpdateTx.
func (r *WarrantyRepo) UpdateTx(ctx context.Context, tx *sql.Tx, cl *model.WarrantyClaim, expectedVersion uint64) error {
	const q = `UPDATE warranty_claims SET
 assigned_agent_id = ?, status = ?, admin_notes = ?, resolution_notes = ?,
 resolved_at = ?, version = version + 1
 WHERE id = ? AND version = ?`
	var agent, adminNotes, resolutionNotes, resolvedAt any
	if cl.AssignedAgentID != nil {
		agent = *cl.AssignedAgentID
	}
	if cl.AdminNotes != nil {
		adminNotes = *cl.AdminNotes
	}
	if cl.ResolutionNotes != nil {
		resolutionNotes = *cl.ResolutionNotes
	}
	if cl.ResolvedAt != nil {
		resolvedAt = cl.ResolvedAt.UTC()
	}
	res, err := tx.ExecContext(ctx, q, agent, string(cl.Status), adminNotes, resolutionNotes,
		resolvedAt, cl.ID, expectedVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	cl.Version = expectedVersion + 1
	cl.UpdatedAt = time.Now().UTC()
	return nil
}

// Get loads a claim outside any transaction.
func (r *WarrantyRepo) Get(ctx context.Context, id uint64) (model.WarrantyClaim, error) {
	q := `SELECT ` + claimColumns + ` FROM warranty_claims WHERE id = ?`
	cl, err := scanClaim(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.WarrantyClaim{}, ErrClaimNotFound
	}
	return cl, err
}

// ListIDsByBooking returns the ids of every claim ever raised against the
// booking, oldest first.  Booking detail responses expose this history.
func (r *WarrantyRepo) ListIDsByBooking(ctx context.Context, bookingID uint64) ([]uint64, error) {
	const q = `SELECT id FROM warranty_claims WHERE booking_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListByClient returns the client's claims, newest first.
func (r *WarrantyRepo) ListByClient(ctx context.Context, clientID uint64) ([]model.WarrantyClaim, error) {
	q := `SELECT ` + claimColumns + ` FROM warranty_claims WHERE client_id = ? ORDER BY id DESC`
	return r.list(ctx, q, clientID)
}

// ListByAgent returns claims assigned to the agent, newest first.
func (r *WarrantyRepo) ListByAgent(ctx context.Context, agentID uint64) ([]model.WarrantyClaim, error) {
	q := `SELECT ` + claimColumns + ` FROM warranty_claims WHERE assigned_agent_id = ? ORDER BY id DESC`
	return r.list(ctx, q, agentID)
}

// ListAll returns every claim, newest first.  Admin use only.
func (r *WarrantyRepo) ListAll(ctx context.Context) ([]model.WarrantyClaim, error) {
	q := `SELECT ` + claimColumns + ` FROM warranty_claims ORDER BY id DESC`
	return r.list(ctx, q)
}

func (r *WarrantyRepo) list(ctx context.Context, q string, args ...any) ([]model.WarrantyClaim, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.WarrantyClaim
	for rows.Next() {
		cl, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cl)
	}
	return out, rows.Err()
}
