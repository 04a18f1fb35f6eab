package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_ReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("always-ok", time.Second, func(context.Context) error {
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 50*time.Millisecond)
	defer h.Stop()

	// Not ready until SetReady(true).
	rec := httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	h.SetReady(true)
	rec = httptest.NewRecorder()
	h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"always-ok":"ok"`)
}

func TestHealth_FailingCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 50*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.ReadyEndpoint(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		return rec.Code == http.StatusServiceUnavailable
	}, time.Second, 20*time.Millisecond)
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
