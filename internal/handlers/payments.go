package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chocolog/api/internal/platform/httpx"
	"github.com/chocolog/api/internal/platform/requestctx"
	"github.com/chocolog/api/internal/services"
)

type recordPaymentRequest struct {
	EmployeeID    string  `json:"employee_id"`
	PaidAmount    int64   `json:"paid_amount"`
	PaymentMethod string  `json:"payment_method"`
	PaidAt        *string `json:"paid_at"`
}

type updatePaymentRequest struct {
	PaidAmount    *int64  `json:"paid_amount"`
	PaymentMethod *string `json:"payment_method"`
	PaidAt        *string `json:"paid_at"`
}

// GetCharge returns the charge attached to an order.
func (h *OrderHandlers) GetCharge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	charge, err := h.payments.GetCharge(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toChargePayload(charge))
}

// RecordPayment applies money against an order's charge.
func (h *OrderHandlers) RecordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req recordPaymentRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		if actor, ok := requestctx.ActorFrom(ctx); ok {
			employeeID = actor.EmployeeID
		}
	}

	cmd := services.RecordPaymentCommand{
		OrderID:       chi.URLParam(r, "orderID"),
		EmployeeID:    employeeID,
		PaidAmount:    req.PaidAmount,
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		ActorRef:      requestctx.ActorRef(ctx),
	}
	paidAt, ok := parseOptionalTime(ctx, w, req.PaidAt)
	if !ok {
		return
	}
	cmd.PaidAt = paidAt

	charge, events, err := h.payments.RecordPayment(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusCreated, toChargePayload(charge))
}

// UpdatePayment patches a recorded payment.
func (h *OrderHandlers) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updatePaymentRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cmd := services.UpdatePaymentCommand{
		OrderID:    chi.URLParam(r, "orderID"),
		PaymentID:  chi.URLParam(r, "paymentID"),
		PaidAmount: req.PaidAmount,
		ActorRef:   requestctx.ActorRef(ctx),
	}
	if req.PaymentMethod != nil {
		method := strings.TrimSpace(*req.PaymentMethod)
		cmd.PaymentMethod = &method
	}
	paidAt, ok := parseOptionalTime(ctx, w, req.PaidAt)
	if !ok {
		return
	}
	cmd.PaidAt = paidAt

	charge, events, err := h.payments.UpdatePayment(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toChargePayload(charge))
}

// RemovePayment soft-deletes a recorded payment.
func (h *OrderHandlers) RemovePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cmd := services.RemovePaymentCommand{
		OrderID:   chi.URLParam(r, "orderID"),
		PaymentID: chi.URLParam(r, "paymentID"),
		ActorRef:  requestctx.ActorRef(ctx),
	}

	charge, events, err := h.payments.RemovePayment(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toChargePayload(charge))
}

func parseOptionalTime(ctx context.Context, w http.ResponseWriter, raw *string) (*time.Time, bool) {
	if raw == nil {
		return nil, true
	}
	parsed, err := parseTimeParam(*raw)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "paid_at must be an RFC3339 timestamp", http.StatusBadRequest))
		return nil, false
	}
	return &parsed, true
}
