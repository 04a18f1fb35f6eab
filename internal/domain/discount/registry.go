package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateInput carries the caller-supplied fields for a new discount code.
// IsActive defaults to true when nil. Monetary bounds are minor units;
// zero leaves the bound unset.
type CreateInput struct {
	Code        string
	Description string
	Type        Type
	Value       decimal.Decimal

	IsActive           *bool
	MinOrderAmount     int64
	MaxDiscountAmount  int64
	MaxUses            int
	MaxUsesPerCustomer int

	ApplicablePieceIDs   []string
	ApplicableCategories []string
	ExcludedPieceIDs     []string

	StartsAt  *time.Time
	ExpiresAt *time.Time
}

// Registry manages the lifecycle of discount code definitions: creation with
// normalization and uniqueness, lookup, listing and deletion.
type Registry struct {
	repo Repository
	now  func() time.Time
}

// NewRegistry creates a Registry backed by the given repository.
func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo, now: time.Now}
}

// Create normalizes the code (trim, uppercase) and persists it. It returns
// ErrDuplicateCode when the tenant already has a code with the same
// normalized form, and ErrEmptyCode / ErrInvalidType on malformed input.
func (r *Registry) Create(ctx context.Context, tenantID string, in CreateInput) (*Code, error) {
	code := NormalizeCode(in.Code)
	if code == "" {
		return nil, ErrEmptyCode
	}
	switch in.Type {
	case TypePercentage, TypeFixed, TypeFreeShipping:
	default:
		return nil, errors.Wrapf(ErrInvalidType, "%q", in.Type)
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	now := r.now()
	dc := &Code{
		ID:                   uuid.New().String(),
		TenantID:             tenantID,
		Code:                 code,
		Description:          in.Description,
		Type:                 in.Type,
		Value:                in.Value,
		IsActive:             active,
		MinOrderAmount:       in.MinOrderAmount,
		MaxDiscountAmount:    in.MaxDiscountAmount,
		MaxUses:              in.MaxUses,
		MaxUsesPerCustomer:   in.MaxUsesPerCustomer,
		ApplicablePieceIDs:   in.ApplicablePieceIDs,
		ApplicableCategories: in.ApplicableCategories,
		ExcludedPieceIDs:     in.ExcludedPieceIDs,
		StartsAt:             in.StartsAt,
		ExpiresAt:            in.ExpiresAt,
		UsageCount:           0,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := r.repo.Create(ctx, dc); err != nil {
		if errors.Is(err, ErrDuplicateCode) {
			return nil, errors.Wrapf(ErrDuplicateCode, "%s", code)
		}
		return nil, errors.Wrap(err, "create discount code")
	}
	return dc, nil
}

// GetByCode looks up a code by its human-entered form, case-insensitively.
// It returns (nil, nil) when the code does not exist.
func (r *Registry) GetByCode(ctx context.Context, tenantID, code string) (*Code, error) {
	return r.repo.GetByCode(ctx, tenantID, NormalizeCode(code))
}

// List returns one page of the tenant's codes plus a has-more indicator.
// A non-positive limit falls back to 50.
func (r *Registry) List(ctx context.Context, tenantID string, filter ListFilter) (*ListPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return r.repo.List(ctx, tenantID, filter)
}

// Delete removes a code by ID. It reports whether a row was actually
// removed; deleting an absent code is not an error.
func (r *Registry) Delete(ctx context.Context, tenantID, id string) (bool, error) {
	return r.repo.Delete(ctx, tenantID, id)
}
