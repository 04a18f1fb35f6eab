// Package health provides Kubernetes-style liveness and readiness probes.
// Registered checks run periodically in the background; the HTTP endpoints
// report the last observed state, so probe handling never blocks on a slow
// dependency.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes a single component. It returns nil when the component is
// healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(checkCtx)
	c.lastErr.Store(&err)
	c.healthy.Store(err == nil)
}

func (c *check) status() string {
	if c.healthy.Load() {
		return "ok"
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error()
	}
	return "unhealthy"
}

// Health manages liveness and readiness checks for a service.
type Health struct {
	ready atomic.Bool

	mu        sync.Mutex
	liveness  []*check
	readiness []*check
	cancel    context.CancelFunc
}

// New creates a Health instance. The service starts not-ready; call
// SetReady(true) once initialization finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a liveness check. Register checks before Start.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a readiness check. Register checks before Start.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	return c
}

// Start launches a background goroutine that runs every registered check at
// the given interval until ctx is cancelled or Stop is called. Each check
// also runs once immediately.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	h.cancel = cancel
	checks := make([]*check, 0, len(h.liveness)+len(h.readiness))
	checks = append(checks, h.liveness...)
	checks = append(checks, h.readiness...)

	go func() {
		for _, c := range checks {
			c.run(runCtx)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				for _, c := range checks {
					c.run(runCtx)
				}
			}
		}
	}()
}

// Stop cancels the background check loop.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady toggles the overall readiness flag, typically flipped to false
// before draining on shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LiveEndpoint serves the liveness probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	checks := append([]*check(nil), h.liveness...)
	h.mu.Unlock()
	respond(w, true, checks)
}

// ReadyEndpoint serves the readiness probe. It fails when SetReady(false)
// was called or any readiness check is unhealthy.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	checks := append([]*check(nil), h.readiness...)
	h.mu.Unlock()
	respond(w, h.ready.Load(), checks)
}

func respond(w http.ResponseWriter, ready bool, checks []*check) {
	healthy := ready
	statuses := make(map[string]string, len(checks))
	for _, c := range checks {
		statuses[c.name] = c.status()
		if !c.healthy.Load() {
			healthy = false
		}
	}

	status := "ok"
	code := http.StatusOK
	if !healthy {
		status = "unavailable"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": statuses,
	})
}
