package discount

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecorder_RecordRedemption(t *testing.T) {
	t.Run("increments counter and ledger", func(t *testing.T) {
		repo := &mockCodeRepo{}
		ledger := &mockLedger{}
		r := NewRecorder(repo, ledger, zap.NewNop())

		r.RecordRedemption(context.Background(), "t1", "d1", "Ada@Example.com")
		r.RecordRedemption(context.Background(), "t1", "d1", "Ada@Example.com")

		assert.Equal(t, []string{"d1", "d1"}, repo.incremented)
		assert.Equal(t, []string{"ada@example.com", "ada@example.com"}, ledger.recorded)
	})

	t.Run("skips ledger without customer email", func(t *testing.T) {
		repo := &mockCodeRepo{}
		ledger := &mockLedger{}
		r := NewRecorder(repo, ledger, zap.NewNop())

		r.RecordRedemption(context.Background(), "t1", "d1", "")

		assert.Equal(t, []string{"d1"}, repo.incremented)
		assert.Empty(t, ledger.recorded)
	})

	t.Run("counter failure is logged, ledger still written", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		repo := &mockCodeRepo{incErr: errors.New("db down")}
		ledger := &mockLedger{}
		r := NewRecorder(repo, ledger, zap.New(core))

		r.RecordRedemption(context.Background(), "t1", "d1", "ada@example.com")

		assert.Equal(t, []string{"ada@example.com"}, ledger.recorded)
		assert.Equal(t, 1, logs.FilterMessage("increment discount usage").Len())
	})

	t.Run("ledger failure is logged, never propagated", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		repo := &mockCodeRepo{}
		ledger := &mockLedger{recordErr: errors.New("db down")}
		r := NewRecorder(repo, ledger, zap.New(core))

		r.RecordRedemption(context.Background(), "t1", "d1", "ada@example.com")

		assert.Equal(t, []string{"d1"}, repo.incremented)
		assert.Equal(t, 1, logs.FilterMessage("record customer discount usage").Len())
	})
}
