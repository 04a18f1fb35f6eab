// Package handler exposes the discount engine over HTTP for the admin
// dashboard and the checkout pipeline.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/atelier-commerce/discount-engine/internal/domain/discount"
)

// Handler routes discount management and checkout validation requests to the
// domain services.
type Handler struct {
	registry  *discount.Registry
	validator *discount.Validator
	recorder  *discount.Recorder
}

// New constructs a Handler with the required domain services.
func New(registry *discount.Registry, validator *discount.Validator, recorder *discount.Recorder) *Handler {
	return &Handler{
		registry:  registry,
		validator: validator,
		recorder:  recorder,
	}
}

// Register mounts all API routes on the mux. Every route is tenant-scoped.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tenants/{tenant}/discount-codes", h.createCode)
	mux.HandleFunc("GET /api/tenants/{tenant}/discount-codes", h.listCodes)
	mux.HandleFunc("DELETE /api/tenants/{tenant}/discount-codes/{id}", h.deleteCode)
	mux.HandleFunc("POST /api/tenants/{tenant}/discount-codes/validate", h.validateCode)
	mux.HandleFunc("POST /api/tenants/{tenant}/discount-codes/{id}/redeem", h.redeemCode)
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func jsonDecode(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Code: status, Message: message})
}

// writeInternalError logs the real failure and hides it from the client.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
