package discount

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/atelier-commerce/discount-engine/internal/domain/catalog"
)

// Validator evaluates whether a discount code applies to an order.
//
// Validate is side-effect free and safely retriable: it never mutates usage
// counters. Redemption accounting happens separately in the Recorder, after
// payment success.
type Validator struct {
	codes  Repository
	ledger LedgerRepository
	pieces catalog.Repository
	now    func() time.Time
}

// NewValidator creates a Validator. The catalog repository is only consulted
// for codes carrying a category allow-list.
func NewValidator(codes Repository, ledger LedgerRepository, pieces catalog.Repository) *Validator {
	return &Validator{
		codes:  codes,
		ledger: ledger,
		pieces: pieces,
		now:    time.Now,
	}
}

// Validate checks a candidate code against the order context and returns the
// computed discount amount when all checks pass.
//
// Checks run in a fixed order and short-circuit at the first failure, so the
// reason shown to the customer is deterministic: existence, active flag,
// start window, expiry window, global usage cap, per-customer cap, minimum
// order amount, product applicability. Eligibility failures come back inside
// the result; a non-nil error means the underlying store failed.
func (v *Validator) Validate(
	ctx context.Context,
	tenantID, code string,
	orderSubtotal int64,
	itemIDs []string,
	customerEmail string,
) (*ValidationResult, error) {
	dc, err := v.codes.GetByCode(ctx, tenantID, NormalizeCode(code))
	if err != nil {
		return nil, errors.Wrap(err, "lookup discount code")
	}
	if dc == nil {
		return invalid("Invalid discount code"), nil
	}

	if !dc.IsActive {
		return invalid(fmt.Sprintf("Discount code %s is no longer active", dc.Code)), nil
	}

	now := v.now()
	if dc.StartsAt != nil && now.Before(*dc.StartsAt) {
		return invalid("This discount code is not yet active"), nil
	}
	if dc.ExpiresAt != nil && now.After(*dc.ExpiresAt) {
		return invalid("This discount code has expired"), nil
	}

	if dc.MaxUses > 0 && dc.UsageCount >= dc.MaxUses {
		return invalid("This discount code has reached its usage limit"), nil
	}

	if customerEmail != "" && dc.MaxUsesPerCustomer > 0 {
		entry, err := v.ledger.Get(ctx, tenantID, dc.ID, NormalizeEmail(customerEmail))
		if err != nil {
			return nil, errors.Wrap(err, "lookup usage ledger")
		}
		// No ledger entry means zero prior uses.
		if entry != nil && entry.UsageCount >= dc.MaxUsesPerCustomer {
			return invalid("You have reached the maximum uses for this discount code"), nil
		}
	}

	if dc.MinOrderAmount > 0 && orderSubtotal < dc.MinOrderAmount {
		return invalid(fmt.Sprintf(
			"Minimum order amount of %s required", FormatAmount(dc.MinOrderAmount),
		)), nil
	}

	ok, err := v.orderApplies(ctx, dc, itemIDs)
	if err != nil {
		return nil, err
	}
	if !ok {
		return invalid("This discount code is not valid for these items"), nil
	}

	return &ValidationResult{
		Valid:          true,
		Code:           dc,
		DiscountAmount: ComputeAmount(dc.Type, dc.Value, orderSubtotal, dc.MaxDiscountAmount),
	}, nil
}

// orderApplies reports whether at least one cart item is eligible for the
// code. An item is eligible when it is not excluded and, if any allow-list
// exists, it matches the piece allow-list or the category allow-list.
// Exclusion wins over allow-lists for an individual item.
func (v *Validator) orderApplies(ctx context.Context, dc *Code, itemIDs []string) (bool, error) {
	restricted := len(dc.ApplicablePieceIDs) > 0 ||
		len(dc.ApplicableCategories) > 0 ||
		len(dc.ExcludedPieceIDs) > 0
	if !restricted {
		return true, nil
	}
	if len(itemIDs) == 0 {
		return false, nil
	}

	allowed := toSet(dc.ApplicablePieceIDs)
	excluded := toSet(dc.ExcludedPieceIDs)

	// Categories are only resolvable through the catalog; skip the lookup
	// unless the code actually restricts by category.
	categories := map[string]string{}
	if len(dc.ApplicableCategories) > 0 {
		pieces, err := v.pieces.GetByIDs(ctx, dc.TenantID, itemIDs)
		if err != nil {
			return false, errors.Wrap(err, "lookup pieces for category check")
		}
		for _, p := range pieces {
			categories[p.ID] = p.Category
		}
	}
	allowedCategories := toSet(dc.ApplicableCategories)

	hasAllowList := len(allowed) > 0 || len(allowedCategories) > 0
	for _, id := range itemIDs {
		if excluded[id] {
			continue
		}
		if !hasAllowList || allowed[id] || allowedCategories[categories[id]] {
			return true, nil
		}
	}
	return false, nil
}

func invalid(reason string) *ValidationResult {
	return &ValidationResult{Valid: false, Reason: reason}
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
