package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// ServiceRepo is a read-only lookup into the catalog `services` table.
type ServiceRepo struct {
	db *sql.DB
}

// NewServiceRepo returns a ServiceRepo bound to the given database.
func NewServiceRepo(db *sql.DB) *ServiceRepo { return &ServiceRepo{db: db} }

// GetByIDTx fetches a catalog service inside the caller's transaction.
func (r *ServiceRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Service, error) {
	const q = `SELECT id, title, base_price_cents, is_active FROM services WHERE id = ?`
	var s model.Service
	err := tx.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Title, &s.BasePriceCents, &s.IsActive)
	if err == sql.ErrNoRows {
		return model.Service{}, ErrServiceNotFound
	}
	return s, err
}

// GetByID fetches a catalog service outside any transaction.
func (r *ServiceRepo) GetByID(ctx context.Context, id uint64) (model.Service, error) {
	const q = `SELECT id, title, base_price_cents, is_active FROM services WHERE id = ?`
	var s model.Service
	err := r.db.QueryRowContext(ctx, q, id).Scan(&s.ID, &s.Title, &s.BasePriceCents, &s.IsActive)
	if err == sql.ErrNoRows {
		return model.Service{}, ErrServiceNotFound
	}
	return s, err
}
