// Command seed-db loads a tenant's catalog pieces and sample discount codes
// from a JSON file into the database. Pieces are upserted and codes are
// created through the registry, so re-running the seed is safe.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/atelier-commerce/discount-engine/internal/domain/catalog"
	"github.com/atelier-commerce/discount-engine/internal/domain/discount"
	"github.com/atelier-commerce/discount-engine/internal/repository"
)

type seedFile struct {
	TenantID  string         `json:"tenantId"`
	Pieces    []pieceJSON    `json:"pieces"`
	Discounts []discountJSON `json:"discountCodes"`
}

type pieceJSON struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
}

type discountJSON struct {
	Code                 string          `json:"code"`
	Description          string          `json:"description"`
	Type                 string          `json:"type"`
	Value                decimal.Decimal `json:"value"`
	MinOrderAmount       int64           `json:"minOrderAmount"`
	MaxDiscountAmount    int64           `json:"maxDiscountAmount"`
	MaxUses              int             `json:"maxUses"`
	MaxUsesPerCustomer   int             `json:"maxUsesPerCustomer"`
	ApplicablePieceIDs   []string        `json:"applicablePieceIds"`
	ApplicableCategories []string        `json:"applicableCategories"`
	ExcludedPieceIDs     []string        `json:"excludedPieceIds"`
	ExpiresInDays        int             `json:"expiresInDays"`
}

func main() {
	var (
		databaseURL string
		seedPath    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&seedPath, "seed-file", "db/seed/catalog.json", "path to seed JSON file")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, seedPath); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("seed completed")
}

func run(ctx context.Context, databaseURL, seedPath string) error {
	raw, err := os.ReadFile(seedPath)
	if err != nil {
		return errors.Wrap(err, "read seed file")
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return errors.Wrap(err, "parse seed file")
	}
	if seed.TenantID == "" {
		return errors.New("seed file is missing tenantId")
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	pieces := repository.NewPieceRepository(pool)
	for _, p := range seed.Pieces {
		err := pieces.Upsert(ctx, &catalog.Piece{
			ID:       p.ID,
			TenantID: seed.TenantID,
			Name:     p.Name,
			Category: p.Category,
			Price:    p.Price,
		})
		if err != nil {
			return errors.Wrapf(err, "upsert piece %s", p.ID)
		}
	}
	slog.Info("pieces seeded", slog.Int("count", len(seed.Pieces)))

	registry := discount.NewRegistry(repository.NewDiscountRepository(pool))
	created := 0
	for _, d := range seed.Discounts {
		in := discount.CreateInput{
			Code:                 d.Code,
			Description:          d.Description,
			Type:                 discount.Type(d.Type),
			Value:                d.Value,
			MinOrderAmount:       d.MinOrderAmount,
			MaxDiscountAmount:    d.MaxDiscountAmount,
			MaxUses:              d.MaxUses,
			MaxUsesPerCustomer:   d.MaxUsesPerCustomer,
			ApplicablePieceIDs:   d.ApplicablePieceIDs,
			ApplicableCategories: d.ApplicableCategories,
			ExcludedPieceIDs:     d.ExcludedPieceIDs,
		}
		if d.ExpiresInDays > 0 {
			expires := time.Now().AddDate(0, 0, d.ExpiresInDays)
			in.ExpiresAt = &expires
		}

		if _, err := registry.Create(ctx, seed.TenantID, in); err != nil {
			if errors.Is(err, discount.ErrDuplicateCode) {
				slog.Info("code already exists, skipping", slog.String("code", d.Code))
				continue
			}
			return errors.Wrapf(err, "create code %s", d.Code)
		}
		created++
	}
	slog.Info("discount codes seeded", slog.Int("created", created))
	return nil
}
