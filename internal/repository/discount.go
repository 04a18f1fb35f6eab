package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atelier-commerce/discount-engine/internal/domain/discount"
)

const (
	discountColumns = `id, tenant_id, code, description, discount_type, value, is_active,
		min_order_amount, max_discount_amount, max_uses, max_uses_per_customer,
		applicable_piece_ids, applicable_categories, excluded_piece_ids,
		starts_at, expires_at, usage_count, created_at, updated_at`

	createDiscountSQL = `INSERT INTO discount_codes (` + discountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	getDiscountByCodeSQL = `SELECT ` + discountColumns + `
		FROM discount_codes WHERE tenant_id = $1 AND code = $2`

	getDiscountByIDSQL = `SELECT ` + discountColumns + `
		FROM discount_codes WHERE tenant_id = $1 AND id = $2`

	deleteDiscountSQL = `DELETE FROM discount_codes WHERE tenant_id = $1 AND id = $2`

	// Atomic increment: the new value is computed server-side so concurrent
	// redemptions never lose updates.
	incrementDiscountUsageSQL = `UPDATE discount_codes
		SET usage_count = usage_count + 1, updated_at = now()
		WHERE tenant_id = $1 AND id = $2`
)

var _ discount.Repository = (*DiscountRepository)(nil)

// DiscountRepository implements discount.Repository backed by PostgreSQL.
// Codes are stored in their normalized (uppercased) form, so the unique
// index on (tenant_id, code) gives case-insensitive uniqueness directly.
type DiscountRepository struct {
	pool *pgxpool.Pool
}

// NewDiscountRepository returns a DiscountRepository that uses the given pool.
func NewDiscountRepository(pool *pgxpool.Pool) *DiscountRepository {
	return &DiscountRepository{pool: pool}
}

// Create inserts a new discount code. A unique-constraint violation on
// (tenant_id, code) is mapped to discount.ErrDuplicateCode.
func (r *DiscountRepository) Create(ctx context.Context, c *discount.Code) error {
	_, err := r.pool.Exec(ctx, createDiscountSQL,
		c.ID, c.TenantID, c.Code, c.Description, string(c.Type), c.Value, c.IsActive,
		c.MinOrderAmount, c.MaxDiscountAmount, c.MaxUses, c.MaxUsesPerCustomer,
		stringArray(c.ApplicablePieceIDs), stringArray(c.ApplicableCategories), stringArray(c.ExcludedPieceIDs),
		c.StartsAt, c.ExpiresAt, c.UsageCount, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return discount.ErrDuplicateCode
		}
		return fmt.Errorf("creating discount code %q: %w", c.Code, err)
	}
	return nil
}

// GetByCode looks up a code by its normalized form. Returns (nil, nil) when
// no matching row exists.
func (r *DiscountRepository) GetByCode(ctx context.Context, tenantID, code string) (*discount.Code, error) {
	return r.getOne(ctx, getDiscountByCodeSQL, tenantID, code)
}

// GetByID looks up a code by its identifier. Returns (nil, nil) when no
// matching row exists.
func (r *DiscountRepository) GetByID(ctx context.Context, tenantID, id string) (*discount.Code, error) {
	return r.getOne(ctx, getDiscountByIDSQL, tenantID, id)
}

func (r *DiscountRepository) getOne(ctx context.Context, sql, tenantID, key string) (*discount.Code, error) {
	rows, err := r.pool.Query(ctx, sql, tenantID, key)
	if err != nil {
		return nil, fmt.Errorf("getting discount code %q: %w", key, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanDiscount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting discount code %q: %w", key, err)
	}
	return &c, nil
}

// List returns one page of codes matching the filter, newest first. It
// fetches limit+1 rows to report whether more results exist beyond the page.
func (r *DiscountRepository) List(ctx context.Context, tenantID string, f discount.ListFilter) (*discount.ListPage, error) {
	sql := `SELECT ` + discountColumns + ` FROM discount_codes WHERE tenant_id = $1`
	args := []any{tenantID}

	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		sql += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		sql += fmt.Sprintf(" AND (code ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}

	args = append(args, f.Limit+1, f.Offset)
	sql += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listing discount codes: %w", err)
	}

	codes, err := pgx.CollectRows(rows, scanDiscount)
	if err != nil {
		return nil, fmt.Errorf("listing discount codes: %w", err)
	}

	page := &discount.ListPage{Codes: codes}
	if len(codes) > f.Limit {
		page.Codes = codes[:f.Limit]
		page.HasMore = true
	}
	return page, nil
}

// Delete removes a code by ID and reports whether a row was removed.
func (r *DiscountRepository) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, deleteDiscountSQL, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("deleting discount code %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementUsage atomically bumps the global usage counter and updated_at.
func (r *DiscountRepository) IncrementUsage(ctx context.Context, tenantID, id string) error {
	_, err := r.pool.Exec(ctx, incrementDiscountUsageSQL, tenantID, id)
	if err != nil {
		return fmt.Errorf("incrementing usage for discount %q: %w", id, err)
	}
	return nil
}

func scanDiscount(row pgx.CollectableRow) (discount.Code, error) {
	var (
		c            discount.Code
		discountType string
		value        decimal.Decimal
		startsAt     *time.Time
		expiresAt    *time.Time
	)
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Code, &c.Description, &discountType, &value, &c.IsActive,
		&c.MinOrderAmount, &c.MaxDiscountAmount, &c.MaxUses, &c.MaxUsesPerCustomer,
		&c.ApplicablePieceIDs, &c.ApplicableCategories, &c.ExcludedPieceIDs,
		&startsAt, &expiresAt, &c.UsageCount, &c.CreatedAt, &c.UpdatedAt,
	)
	c.Type = discount.Type(discountType)
	c.Value = value
	c.StartsAt = startsAt
	c.ExpiresAt = expiresAt
	return c, err
}

// stringArray maps nil slices to empty arrays so the TEXT[] columns never
// hold NULL.
func stringArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
