package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/platform/requestctx"
	"github.com/chocolog/api/internal/services"
)

type addOrderItemRequest struct {
	SizeID    string  `json:"size_id"`
	Flavor1ID string  `json:"flavor1_id"`
	Flavor2ID *string `json:"flavor2_id"`
	Quantity  int     `json:"quantity"`
	Notes     string  `json:"notes"`
}

type updateOrderItemRequest struct {
	SizeID       *string `json:"size_id"`
	Flavor1ID    *string `json:"flavor1_id"`
	Flavor2ID    *string `json:"flavor2_id"`
	ClearFlavor2 bool    `json:"clear_flavor2"`
	Quantity     *int    `json:"quantity"`
	Notes        *string `json:"notes"`
	Status       *string `json:"status"`
}

// AddItem appends a line to an existing order.
func (h *OrderHandlers) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req addOrderItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cmd := services.AddOrderItemCommand{
		OrderID: chi.URLParam(r, "orderID"),
		Item: services.NewOrderItem{
			SizeID:    strings.TrimSpace(req.SizeID),
			Flavor1ID: strings.TrimSpace(req.Flavor1ID),
			Flavor2ID: normalizeIDPtr(req.Flavor2ID),
			Quantity:  req.Quantity,
			Notes:     sanitizeText(req.Notes),
		},
		ActorRef: requestctx.ActorRef(ctx),
	}

	order, events, err := h.items.AddItem(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusCreated, toOrderPayload(order))
}

// UpdateItem patches one order line.
func (h *OrderHandlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateOrderItemRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cmd := services.UpdateOrderItemCommand{
		OrderID:      chi.URLParam(r, "orderID"),
		ItemID:       chi.URLParam(r, "itemID"),
		SizeID:       normalizeIDPtr(req.SizeID),
		Flavor1ID:    normalizeIDPtr(req.Flavor1ID),
		Flavor2ID:    normalizeIDPtr(req.Flavor2ID),
		ClearFlavor2: req.ClearFlavor2,
		Quantity:     req.Quantity,
		Notes:        sanitizeTextPtr(req.Notes),
		ActorRef:     requestctx.ActorRef(ctx),
	}
	if req.Status != nil {
		status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		cmd.Status = &status
	}

	order, events, err := h.items.UpdateItem(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toOrderPayload(order))
}

// RemoveItem soft-deletes one order line.
func (h *OrderHandlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cmd := services.RemoveOrderItemCommand{
		OrderID:  chi.URLParam(r, "orderID"),
		ItemID:   chi.URLParam(r, "itemID"),
		ActorRef: requestctx.ActorRef(ctx),
	}

	order, events, err := h.items.RemoveItem(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toOrderPayload(order))
}
