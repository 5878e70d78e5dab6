package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/home-service-booking/internal/model"
)

// UserRepo reads users for login, role checks and notification address
// resolution.  Account management is owned by another service; this repo
// never writes.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, email, password_hash, role, phone, is_active, created_at, updated_at`

func scanUser(rs rowScanner) (model.User, error) {
	var u model.User
	var phone sql.NullString
	err := rs.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &phone, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	u.Phone = phone.String
	return u, nil
}

// GetByID fetches a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByIDTx fetches a user inside the caller's transaction.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByEmail fetches a user by normalized email for login.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	q := `SELECT ` + userColumns + ` FROM users WHERE email = ? LIMIT 1`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, email))
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// ListAdminsTx returns every active admin user, for notification fan-out.
func (r *UserRepo) ListAdminsTx(ctx context.Context, tx *sql.Tx) ([]model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE role = ? AND is_active = 1 ORDER BY id`
	rows, err := tx.QueryContext(ctx, q, model.RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
