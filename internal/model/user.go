package model

import "time"

// Role names stored in the users.role column and in the JWT "role" claim.
// Warranty agents are PROVIDER-role users picked by an admin; there is no
// separate agent role.
const (
	RoleClient   = "CLIENT"
	RoleProvider = "PROVIDER"
	RoleAdmin    = "ADMIN"
)

// User represents an application user as stored in the `users` table.
// This service treats identity as an external concern: users are read for
// login, role checks and notification address resolution, never created or
// modified here.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	Phone        string    // users.phone (sms delivery address)
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
