package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-commerce/discount-engine/internal/domain/discount"
)

const (
	getLedgerEntrySQL = `SELECT tenant_id, discount_id, customer_email, usage_count, last_used_at
		FROM discount_usages
		WHERE tenant_id = $1 AND discount_id = $2 AND customer_email = $3`

	// Upsert-increment in a single statement: the first redemption creates
	// the row with count 1, later ones bump the existing counter atomically.
	recordLedgerUseSQL = `INSERT INTO discount_usages (tenant_id, discount_id, customer_email, usage_count, last_used_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (tenant_id, discount_id, customer_email)
		DO UPDATE SET usage_count = discount_usages.usage_count + 1, last_used_at = now()`
)

var _ discount.LedgerRepository = (*LedgerRepository)(nil)

// LedgerRepository implements discount.LedgerRepository backed by PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a LedgerRepository that uses the given pool.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Get returns the customer's ledger entry, or (nil, nil) when the customer
// has never redeemed the code.
func (r *LedgerRepository) Get(ctx context.Context, tenantID, discountID, customerEmail string) (*discount.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, getLedgerEntrySQL, tenantID, discountID, customerEmail)
	if err != nil {
		return nil, fmt.Errorf("getting usage ledger entry: %w", err)
	}

	entry, err := pgx.CollectExactlyOneRow(rows, scanLedgerEntry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting usage ledger entry: %w", err)
	}
	return &entry, nil
}

// RecordUse upserts the customer's ledger row with an atomic increment.
func (r *LedgerRepository) RecordUse(ctx context.Context, tenantID, discountID, customerEmail string) error {
	_, err := r.pool.Exec(ctx, recordLedgerUseSQL, tenantID, discountID, customerEmail)
	if err != nil {
		return fmt.Errorf("recording usage for discount %q: %w", discountID, err)
	}
	return nil
}

func scanLedgerEntry(row pgx.CollectableRow) (discount.LedgerEntry, error) {
	var e discount.LedgerEntry
	err := row.Scan(&e.TenantID, &e.DiscountID, &e.CustomerEmail, &e.UsageCount, &e.LastUsedAt)
	return e, err
}
