package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/atelier-commerce/discount-engine/internal/domain/catalog"
)

const (
	getPiecesByIDsSQL = `SELECT id, tenant_id, name, category, price
		FROM pieces WHERE tenant_id = $1 AND id = ANY($2)`

	upsertPieceSQL = `INSERT INTO pieces (id, tenant_id, name, category, price)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id, id)
		DO UPDATE SET name = EXCLUDED.name, category = EXCLUDED.category, price = EXCLUDED.price`
)

var _ catalog.Repository = (*PieceRepository)(nil)

// PieceRepository implements catalog.Repository backed by PostgreSQL.
type PieceRepository struct {
	pool *pgxpool.Pool
}

// NewPieceRepository returns a PieceRepository that uses the given pool.
func NewPieceRepository(pool *pgxpool.Pool) *PieceRepository {
	return &PieceRepository{pool: pool}
}

// GetByIDs returns pieces matching any of the given IDs in a single query.
func (r *PieceRepository) GetByIDs(ctx context.Context, tenantID string, ids []string) ([]catalog.Piece, error) {
	rows, err := r.pool.Query(ctx, getPiecesByIDsSQL, tenantID, ids)
	if err != nil {
		return nil, fmt.Errorf("getting pieces by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanPiece)
}

// Upsert inserts or replaces a piece.
func (r *PieceRepository) Upsert(ctx context.Context, p *catalog.Piece) error {
	_, err := r.pool.Exec(ctx, upsertPieceSQL, p.ID, p.TenantID, p.Name, p.Category, p.Price)
	if err != nil {
		return fmt.Errorf("upserting piece %q: %w", p.ID, err)
	}
	return nil
}

func scanPiece(row pgx.CollectableRow) (catalog.Piece, error) {
	var (
		p     catalog.Piece
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Category, &price)
	p.Price = price
	return p, err
}
