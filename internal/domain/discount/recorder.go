package discount

import (
	"context"

	"go.uber.org/zap"
)

// Recorder books redemptions after payment success.
//
// Usage accounting is best-effort bookkeeping, not a financial ledger of
// record: a failed increment must never fail or roll back an already-paid
// order, so failures are logged and swallowed. The global counter and the
// per-customer ledger are independent writes; neither is rolled back when
// the other fails.
type Recorder struct {
	codes  Repository
	ledger LedgerRepository
	lg     *zap.Logger
}

// NewRecorder creates a Recorder that logs bookkeeping failures to lg.
func NewRecorder(codes Repository, ledger LedgerRepository, lg *zap.Logger) *Recorder {
	return &Recorder{codes: codes, ledger: ledger, lg: lg}
}

// RecordRedemption increments the code's global usage counter and, when a
// customer email is supplied, upserts the customer's ledger entry. Both
// increments are atomic in the store. Call this exactly once per completed
// order, never during validation.
func (r *Recorder) RecordRedemption(ctx context.Context, tenantID, discountID, customerEmail string) {
	if err := r.codes.IncrementUsage(ctx, tenantID, discountID); err != nil {
		r.lg.Error("increment discount usage",
			zap.String("tenant_id", tenantID),
			zap.String("discount_id", discountID),
			zap.Error(err),
		)
	}

	if customerEmail == "" {
		return
	}

	if err := r.ledger.RecordUse(ctx, tenantID, discountID, NormalizeEmail(customerEmail)); err != nil {
		r.lg.Error("record customer discount usage",
			zap.String("tenant_id", tenantID),
			zap.String("discount_id", discountID),
			zap.Error(err),
		)
	}
}
