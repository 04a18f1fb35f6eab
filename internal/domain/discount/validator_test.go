package discount

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-commerce/discount-engine/internal/domain/catalog"
)

func TestValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	weekAgo := fixedNow.Add(-7 * 24 * time.Hour)
	weekAhead := fixedNow.Add(7 * 24 * time.Hour)

	base := func(mutate func(*Code)) *Code {
		dc := &Code{
			ID:       "d1",
			TenantID: "t1",
			Code:     "SAVE10",
			Type:     TypePercentage,
			Value:    decimal.NewFromInt(10),
			IsActive: true,
		}
		if mutate != nil {
			mutate(dc)
		}
		return dc
	}

	tests := []struct {
		name       string
		code       *Code
		ledger     *mockLedger
		pieces     []catalog.Piece
		entered    string
		subtotal   int64
		itemIDs    []string
		email      string
		wantValid  bool
		wantAmount int64
		wantReason string
	}{
		{
			name:       "unknown code",
			code:       nil,
			entered:    "NOPE",
			subtotal:   100,
			wantReason: "Invalid discount code",
		},
		{
			name:       "entered code is trimmed and uppercased before lookup",
			code:       base(nil),
			entered:    "  save10 ",
			subtotal:   100,
			wantValid:  true,
			wantAmount: 10,
		},
		{
			name:       "inactive code",
			code:       base(func(dc *Code) { dc.IsActive = false }),
			entered:    "SAVE10",
			subtotal:   100,
			wantReason: "no longer active",
		},
		{
			name: "inactive wins over expired",
			code: base(func(dc *Code) {
				dc.IsActive = false
				dc.ExpiresAt = &weekAgo
			}),
			entered:    "SAVE10",
			subtotal:   100,
			wantReason: "no longer active",
		},
		{
			name:       "starts in the future",
			code:       base(func(dc *Code) { dc.StartsAt = &weekAhead }),
			entered:    "SAVE10",
			subtotal:   100,
			wantReason: "not yet active",
		},
		{
			name:       "expired",
			code:       base(func(dc *Code) { dc.ExpiresAt = &weekAgo }),
			entered:    "SAVE10",
			subtotal:   100,
			wantReason: "expired",
		},
		{
			name: "window straddling now is valid",
			code: base(func(dc *Code) {
				dc.StartsAt = &weekAgo
				dc.ExpiresAt = &weekAhead
			}),
			entered:    "SAVE10",
			subtotal:   100,
			wantValid:  true,
			wantAmount: 10,
		},
		{
			name: "global usage cap reached",
			code: base(func(dc *Code) {
				dc.MaxUses = 10
				dc.UsageCount = 10
			}),
			entered:    "SAVE10",
			subtotal:   100,
			wantReason: "usage limit",
		},
		{
			name: "global usage under cap",
			code: base(func(dc *Code) {
				dc.MaxUses = 10
				dc.UsageCount = 5
			}),
			entered:    "SAVE10",
			subtotal:   100,
			wantValid:  true,
			wantAmount: 10,
		},
		{
			name: "customer at per-customer cap",
			code: base(func(dc *Code) { dc.MaxUsesPerCustomer = 1 }),
			ledger: &mockLedger{entries: map[string]*LedgerEntry{
				"ada@example.com": {UsageCount: 1},
			}},
			entered:    "SAVE10",
			subtotal:   100,
			email:      "Ada@Example.com",
			wantReason: "maximum uses",
		},
		{
			name: "customer under per-customer cap",
			code: base(func(dc *Code) { dc.MaxUsesPerCustomer = 3 }),
			ledger: &mockLedger{entries: map[string]*LedgerEntry{
				"ada@example.com": {UsageCount: 2},
			}},
			entered:    "SAVE10",
			subtotal:   100,
			email:      "ada@example.com",
			wantValid:  true,
			wantAmount: 10,
		},
		{
			name:       "no ledger entry counts as zero prior uses",
			code:       base(func(dc *Code) { dc.MaxUsesPerCustomer = 1 }),
			entered:    "SAVE10",
			subtotal:   100,
			email:      "new@example.com",
			wantValid:  true,
			wantAmount: 10,
		},
		{
			name:       "per-customer cap skipped without email",
			code:       base(func(dc *Code) { dc.MaxUsesPerCustomer = 1 }),
			entered:    "SAVE10",
			subtotal:   100,
			wantValid:  true,
			wantAmount: 10,
		},
		{
			name:       "subtotal below minimum order amount",
			code:       base(func(dc *Code) { dc.MinOrderAmount = 5000 }),
			entered:    "SAVE10",
			subtotal:   4999,
			wantReason: "Minimum order amount of $50.00",
		},
		{
			name:       "subtotal exactly at minimum is valid",
			code:       base(func(dc *Code) { dc.MinOrderAmount = 5000 }),
			entered:    "SAVE10",
			subtotal:   5000,
			wantValid:  true,
			wantAmount: 500,
		},
		{
			name:       "allow-list with no intersecting item",
			code:       base(func(dc *Code) { dc.ApplicablePieceIDs = []string{"p1", "p2"} }),
			entered:    "SAVE10",
			subtotal:   100,
			itemIDs:    []string{"p3", "p4"},
			wantReason: "not valid for these items",
		},
		{
			name:       "allow-list with one intersecting item",
			code:       base(func(dc *Code) { dc.ApplicablePieceIDs = []string{"p1"} }),
			entered:    "SAVE10",
			subtotal:   100,
			itemIDs:    []string{"p1", "p9"},
			wantValid:  true,
			wantAmount: 10,
		},
		{
			name:       "all items excluded",
			code:       base(func(dc *Code) { dc.ExcludedPieceIDs = []string{"p1", "p2"} }),
			entered:    "SAVE10",
			subtotal:   100,
			itemIDs:    []string{"p1", "p2"},
			wantReason: "not valid for these items",
		},
		{
			name:       "mix of excluded and non-excluded items",
			code:       base(func(dc *Code) { dc.ExcludedPieceIDs = []string{"p1"} }),
			entered:    "SAVE10",
			subtotal:   100,
			itemIDs:    []string{"p1", "p2"},
			wantValid:  true,
			wantAmount: 10,
		},
		{
			name: "allowed item that is also excluded does not qualify",
			code: base(func(dc *Code) {
				dc.ApplicablePieceIDs = []string{"p1"}
				dc.ExcludedPieceIDs = []string{"p1"}
			}),
			entered:    "SAVE10",
			subtotal:   100,
			itemIDs:    []string{"p1", "p2"},
			wantReason: "not valid for these items",
		},
		{
			name: "category allow-list matches via catalog",
			code: base(func(dc *Code) { dc.ApplicableCategories = []string{"ceramics"} }),
			pieces: []catalog.Piece{
				{ID: "p1", Category: "jewelry"},
				{ID: "p2", Category: "ceramics"},
			},
			entered:    "SAVE10",
			subtotal:   100,
			itemIDs:    []string{"p1", "p2"},
			wantValid:  true,
			wantAmount: 10,
		},
		{
			name: "category allow-list with no matching item",
			code: base(func(dc *Code) { dc.ApplicableCategories = []string{"ceramics"} }),
			pieces: []catalog.Piece{
				{ID: "p1", Category: "jewelry"},
			},
			entered:    "SAVE10",
			subtotal:   100,
			itemIDs:    []string{"p1"},
			wantReason: "not valid for these items",
		},
		{
			name:       "restricted code with empty cart",
			code:       base(func(dc *Code) { dc.ApplicablePieceIDs = []string{"p1"} }),
			entered:    "SAVE10",
			subtotal:   0,
			wantReason: "not valid for these items",
		},
		{
			name: "fixed discount clamped to subtotal",
			code: base(func(dc *Code) {
				dc.Type = TypeFixed
				dc.Value = decimal.NewFromInt(150)
			}),
			entered:    "SAVE10",
			subtotal:   100,
			wantValid:  true,
			wantAmount: 100,
		},
		{
			name: "free shipping validates with zero amount",
			code: base(func(dc *Code) {
				dc.Type = TypeFreeShipping
				dc.Value = decimal.Zero
			}),
			entered:   "SAVE10",
			subtotal:  100,
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCodeRepo{code: tt.code}
			ledger := tt.ledger
			if ledger == nil {
				ledger = &mockLedger{}
			}
			v := NewValidator(repo, ledger, &mockCatalog{pieces: tt.pieces})
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), "t1", tt.entered, tt.subtotal, tt.itemIDs, tt.email)
			require.NoError(t, err)
			require.NotNil(t, got)

			if !tt.wantValid {
				assert.False(t, got.Valid)
				assert.Contains(t, got.Reason, tt.wantReason)
				return
			}

			assert.True(t, got.Valid, "reason: %s", got.Reason)
			assert.Equal(t, tt.wantAmount, got.DiscountAmount)
			require.NotNil(t, got.Code)
			assert.Equal(t, tt.code.Code, got.Code.Code)

			// Validation never touches usage counters.
			assert.Empty(t, repo.incremented)
			assert.Empty(t, ledger.recorded)
		})
	}
}

func TestValidator_ValidateIsRepeatable(t *testing.T) {
	repo := &mockCodeRepo{code: &Code{
		ID:       "d1",
		TenantID: "t1",
		Code:     "SAVE10",
		Type:     TypePercentage,
		Value:    decimal.NewFromInt(10),
		IsActive: true,
	}}
	v := NewValidator(repo, &mockLedger{}, &mockCatalog{})

	for range 3 {
		got, err := v.Validate(context.Background(), "t1", "SAVE10", 100, nil, "")
		require.NoError(t, err)
		assert.True(t, got.Valid)
		assert.Equal(t, int64(10), got.DiscountAmount)
	}
	assert.Empty(t, repo.incremented)
}

func TestValidator_StoreErrorsPropagate(t *testing.T) {
	repo := &mockCodeRepo{getErr: errors.New("db down")}
	v := NewValidator(repo, &mockLedger{}, &mockCatalog{})

	got, err := v.Validate(context.Background(), "t1", "SAVE10", 100, nil, "")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.Contains(t, err.Error(), "lookup discount code")
}
