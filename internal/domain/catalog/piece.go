// Package catalog holds the slice of the product catalog the discount
// engine needs: piece identifiers and their categories.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
)

// Piece is a single sellable item in a tenant's catalog.
type Piece struct {
	ID       string
	TenantID string
	Name     string
	Category string
	Price    decimal.Decimal
}

// Repository provides catalog lookups for discount evaluation and seeding.
type Repository interface {
	// GetByIDs fetches the given pieces in a single batch. Unknown IDs are
	// silently omitted from the result.
	GetByIDs(ctx context.Context, tenantID string, ids []string) ([]Piece, error)
	// Upsert inserts or replaces a piece.
	Upsert(ctx context.Context, p *Piece) error
}
