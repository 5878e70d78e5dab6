package model

// Service is a read-only view of the catalog `services` table.  The
// workflow engine looks services up for their title and base price when a
// booking or extra-service line item is created; catalog management itself
// lives elsewhere.
type Service struct {
	ID             uint64 // services.id
	Title          string // services.title
	BasePriceCents uint32 // services.base_price_cents
	IsActive       bool   // services.is_active
}
