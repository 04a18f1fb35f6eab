package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/atelier-commerce/discount-engine/internal/domain/discount"
)

type createCodeRequest struct {
	Code                 string          `json:"code"`
	Description          string          `json:"description"`
	Type                 string          `json:"type"`
	Value                decimal.Decimal `json:"value"`
	IsActive             *bool           `json:"isActive"`
	MinOrderAmount       int64           `json:"minOrderAmount"`
	MaxDiscountAmount    int64           `json:"maxDiscountAmount"`
	MaxUses              int             `json:"maxUses"`
	MaxUsesPerCustomer   int             `json:"maxUsesPerCustomer"`
	ApplicablePieceIDs   []string        `json:"applicablePieceIds"`
	ApplicableCategories []string        `json:"applicableCategories"`
	ExcludedPieceIDs     []string        `json:"excludedPieceIds"`
	StartsAt             *time.Time      `json:"startsAt"`
	ExpiresAt            *time.Time      `json:"expiresAt"`
}

type codeResponse struct {
	ID                   string          `json:"id"`
	Code                 string          `json:"code"`
	Description          string          `json:"description,omitempty"`
	Type                 string          `json:"type"`
	Value                decimal.Decimal `json:"value"`
	IsActive             bool            `json:"isActive"`
	MinOrderAmount       int64           `json:"minOrderAmount,omitempty"`
	MaxDiscountAmount    int64           `json:"maxDiscountAmount,omitempty"`
	MaxUses              int             `json:"maxUses,omitempty"`
	MaxUsesPerCustomer   int             `json:"maxUsesPerCustomer,omitempty"`
	ApplicablePieceIDs   []string        `json:"applicablePieceIds,omitempty"`
	ApplicableCategories []string        `json:"applicableCategories,omitempty"`
	ExcludedPieceIDs     []string        `json:"excludedPieceIds,omitempty"`
	StartsAt             *time.Time      `json:"startsAt,omitempty"`
	ExpiresAt            *time.Time      `json:"expiresAt,omitempty"`
	UsageCount           int             `json:"usageCount"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

func toCodeResponse(dc *discount.Code) codeResponse {
	return codeResponse{
		ID:                   dc.ID,
		Code:                 dc.Code,
		Description:          dc.Description,
		Type:                 string(dc.Type),
		Value:                dc.Value,
		IsActive:             dc.IsActive,
		MinOrderAmount:       dc.MinOrderAmount,
		MaxDiscountAmount:    dc.MaxDiscountAmount,
		MaxUses:              dc.MaxUses,
		MaxUsesPerCustomer:   dc.MaxUsesPerCustomer,
		ApplicablePieceIDs:   dc.ApplicablePieceIDs,
		ApplicableCategories: dc.ApplicableCategories,
		ExcludedPieceIDs:     dc.ExcludedPieceIDs,
		StartsAt:             dc.StartsAt,
		ExpiresAt:            dc.ExpiresAt,
		UsageCount:           dc.UsageCount,
		CreatedAt:            dc.CreatedAt,
		UpdatedAt:            dc.UpdatedAt,
	}
}

func (h *Handler) createCode(w http.ResponseWriter, r *http.Request) {
	var req createCodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	dc, err := h.registry.Create(r.Context(), r.PathValue("tenant"), discount.CreateInput{
		Code:                 req.Code,
		Description:          req.Description,
		Type:                 discount.Type(req.Type),
		Value:                req.Value,
		IsActive:             req.IsActive,
		MinOrderAmount:       req.MinOrderAmount,
		MaxDiscountAmount:    req.MaxDiscountAmount,
		MaxUses:              req.MaxUses,
		MaxUsesPerCustomer:   req.MaxUsesPerCustomer,
		ApplicablePieceIDs:   req.ApplicablePieceIDs,
		ApplicableCategories: req.ApplicableCategories,
		ExcludedPieceIDs:     req.ExcludedPieceIDs,
		StartsAt:             req.StartsAt,
		ExpiresAt:            req.ExpiresAt,
	})
	switch {
	case errors.Is(err, discount.ErrDuplicateCode):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, discount.ErrEmptyCode), errors.Is(err, discount.ErrInvalidType):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeInternalError(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, toCodeResponse(dc))
	}
}

type listCodesResponse struct {
	Discounts []codeResponse `json:"discounts"`
	HasMore   bool           `json:"hasMore"`
}

func (h *Handler) listCodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := discount.ListFilter{Search: q.Get("search")}

	if v := q.Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid active filter")
			return
		}
		filter.IsActive = &active
	}
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	page, err := h.registry.List(r.Context(), r.PathValue("tenant"), filter)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	resp := listCodesResponse{
		Discounts: make([]codeResponse, len(page.Codes)),
		HasMore:   page.HasMore,
	}
	for i := range page.Codes {
		resp.Discounts[i] = toCodeResponse(&page.Codes[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) deleteCode(w http.ResponseWriter, r *http.Request) {
	found, err := h.registry.Delete(r.Context(), r.PathValue("tenant"), r.PathValue("id"))
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "discount code not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validateRequest struct {
	Code          string   `json:"code"`
	OrderSubtotal int64    `json:"orderSubtotal"`
	ItemIDs       []string `json:"itemIds"`
	CustomerEmail string   `json:"customerEmail"`
}

type validateResponse struct {
	Valid          bool          `json:"valid"`
	Discount       *codeResponse `json:"discount,omitempty"`
	DiscountAmount *int64        `json:"discountAmount,omitempty"`
	Error          string        `json:"error,omitempty"`
}

// validateCode evaluates a candidate code against an order. Eligibility
// failures are part of the 200 response so the checkout UI can render them
// inline; only store failures produce a 5xx.
func (h *Handler) validateCode(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.validator.Validate(
		r.Context(), r.PathValue("tenant"),
		req.Code, req.OrderSubtotal, req.ItemIDs, req.CustomerEmail,
	)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	resp := validateResponse{Valid: result.Valid, Error: result.Reason}
	if result.Valid {
		dc := toCodeResponse(result.Code)
		resp.Discount = &dc
		resp.DiscountAmount = &result.DiscountAmount
	}
	writeJSON(w, http.StatusOK, resp)
}

type redeemRequest struct {
	CustomerEmail string `json:"customerEmail"`
}

// redeemCode books a redemption after payment success. Recording is
// best-effort, so the response is always 204 once the request parses.
func (h *Handler) redeemCode(w http.ResponseWriter, r *http.Request) {
	var req redeemRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	h.recorder.RecordRedemption(
		r.Context(), r.PathValue("tenant"), r.PathValue("id"), req.CustomerEmail,
	)
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := jsonDecode(r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
