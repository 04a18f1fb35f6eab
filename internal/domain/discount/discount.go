package discount

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage applies a percentage of the order subtotal.
	TypePercentage Type = "percentage"
	// TypeFixed applies a fixed monetary discount capped at the subtotal.
	TypeFixed Type = "fixed"
	// TypeFreeShipping waives shipping; the amount is realized by the
	// checkout pipeline, not by the calculator.
	TypeFreeShipping Type = "free_shipping"
)

var (
	// ErrDuplicateCode is returned when creating a code that already exists
	// for the tenant (case-insensitive).
	ErrDuplicateCode = errors.New("discount code already exists")
	// ErrInvalidType is returned when a code carries an unknown discount type.
	ErrInvalidType = errors.New("invalid discount type")
	// ErrEmptyCode is returned when the normalized code is empty.
	ErrEmptyCode = errors.New("discount code is required")
)

// Code is a tenant-scoped discount code definition. All monetary fields
// (MinOrderAmount, MaxDiscountAmount and the value of fixed discounts) are
// integers in the currency's minor unit. Zero on an optional numeric bound
// means the bound is not set.
type Code struct {
	ID          string
	TenantID    string
	Code        string
	Description string

	Type  Type
	Value decimal.Decimal

	IsActive           bool
	MinOrderAmount     int64
	MaxDiscountAmount  int64
	MaxUses            int
	MaxUsesPerCustomer int

	ApplicablePieceIDs   []string
	ApplicableCategories []string
	ExcludedPieceIDs     []string

	StartsAt  *time.Time
	ExpiresAt *time.Time

	UsageCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// LedgerEntry tracks how many times a single customer has redeemed a code.
// It is keyed by (tenant, discount, customer email) and is distinct from the
// code's global usage counter.
type LedgerEntry struct {
	TenantID      string
	DiscountID    string
	CustomerEmail string
	UsageCount    int
	LastUsedAt    time.Time
}

// ValidationResult is the outcome of evaluating a code against an order.
// Eligibility failures are carried in Reason, never as Go errors, so the
// checkout UI can render them inline.
type ValidationResult struct {
	Valid          bool
	Code           *Code
	DiscountAmount int64
	Reason         string
}

// ListFilter narrows and pages a code listing.
type ListFilter struct {
	// IsActive filters on the active flag when non-nil.
	IsActive *bool
	// Search matches case-insensitively against code and description.
	Search string
	Offset int
	Limit  int
}

// ListPage is one page of codes plus an indicator that more rows exist
// beyond it.
type ListPage struct {
	Codes   []Code
	HasMore bool
}

// Repository provides persistence for discount codes.
//
// GetByCode and GetByID return (nil, nil) when no matching row exists.
// IncrementUsage must be implemented as an atomic increment in the store,
// never as read-modify-write.
type Repository interface {
	Create(ctx context.Context, c *Code) error
	GetByCode(ctx context.Context, tenantID, code string) (*Code, error)
	GetByID(ctx context.Context, tenantID, id string) (*Code, error)
	List(ctx context.Context, tenantID string, filter ListFilter) (*ListPage, error)
	Delete(ctx context.Context, tenantID, id string) (bool, error)
	IncrementUsage(ctx context.Context, tenantID, id string) error
}

// LedgerRepository provides the per-customer usage ledger.
//
// Get returns (nil, nil) when the customer has never redeemed the code.
// RecordUse upserts: first redemption creates the row with count 1, later
// redemptions increment it atomically.
type LedgerRepository interface {
	Get(ctx context.Context, tenantID, discountID, customerEmail string) (*LedgerEntry, error)
	RecordUse(ctx context.Context, tenantID, discountID, customerEmail string) error
}

// NormalizeCode maps a human-entered code to its canonical stored form.
// Uniqueness is enforced on this form, which makes the unique index
// case-insensitive without any special collation.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail canonicalizes a customer email for ledger keys.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
