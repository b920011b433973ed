package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/platform/httpx"
	"github.com/chocolog/api/internal/platform/requestctx"
	"github.com/chocolog/api/internal/services"

	"go.uber.org/zap"
)

// OrderHandlers serves the order aggregate: header CRUD, line items, the
// charge, and payments.
type OrderHandlers struct {
	orders   services.OrderService
	items    services.OrderItemService
	payments services.PaymentService
	events   *services.EventConsumer
}

// NewOrderHandlers builds the order endpoint handlers.
func NewOrderHandlers(orders services.OrderService, items services.OrderItemService, payments services.PaymentService, events *services.EventConsumer) *OrderHandlers {
	return &OrderHandlers{
		orders:   orders,
		items:    items,
		payments: payments,
		events:   events,
	}
}

// Routes registers the order endpoints on the router.
func (h *OrderHandlers) Routes(r chi.Router) {
	r.Post("/", h.CreateOrder)
	r.Get("/", h.ListOrders)
	r.Route("/{orderID}", func(r chi.Router) {
		r.Get("/", h.GetOrder)
		r.Patch("/", h.UpdateOrder)
		r.Post("/items", h.AddItem)
		r.Patch("/items/{itemID}", h.UpdateItem)
		r.Delete("/items/{itemID}", h.RemoveItem)
		r.Get("/charge", h.GetCharge)
		r.Post("/payments", h.RecordPayment)
		r.Patch("/payments/{paymentID}", h.UpdatePayment)
		r.Delete("/payments/{paymentID}", h.RemovePayment)
	})
}

type createOrderItemRequest struct {
	SizeID    string  `json:"size_id"`
	Flavor1ID string  `json:"flavor1_id"`
	Flavor2ID *string `json:"flavor2_id"`
	Quantity  int     `json:"quantity"`
	Notes     string  `json:"notes"`
}

type createOrderRequest struct {
	CustomerID       string                   `json:"customer_id"`
	EmployeeID       string                   `json:"employee_id"`
	ExpectedPickupAt string                   `json:"expected_pickup_at"`
	Notes            string                   `json:"notes"`
	Discount         int64                    `json:"discount"`
	Items            []createOrderItemRequest `json:"items"`
}

type updateOrderRequest struct {
	Notes            *string `json:"notes"`
	ExpectedPickupAt *string `json:"expected_pickup_at"`
	Discount         *int64  `json:"discount"`
	Status           *string `json:"status"`
}

// CreateOrder opens a new order with its initial items.
func (h *OrderHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOrderRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	pickupAt, err := parseTimeParam(req.ExpectedPickupAt)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "expected_pickup_at must be an RFC3339 timestamp", http.StatusBadRequest))
		return
	}

	employeeID := strings.TrimSpace(req.EmployeeID)
	if employeeID == "" {
		if actor, ok := requestctx.ActorFrom(ctx); ok {
			employeeID = actor.EmployeeID
		}
	}

	cmd := services.CreateOrderCommand{
		CustomerID:       strings.TrimSpace(req.CustomerID),
		EmployeeID:       employeeID,
		ExpectedPickupAt: pickupAt,
		Notes:            sanitizeText(req.Notes),
		Discount:         req.Discount,
		Items:            make([]services.NewOrderItem, 0, len(req.Items)),
		ActorRef:         requestctx.ActorRef(ctx),
	}
	for _, item := range req.Items {
		cmd.Items = append(cmd.Items, services.NewOrderItem{
			SizeID:    strings.TrimSpace(item.SizeID),
			Flavor1ID: strings.TrimSpace(item.Flavor1ID),
			Flavor2ID: normalizeIDPtr(item.Flavor2ID),
			Quantity:  item.Quantity,
			Notes:     sanitizeText(item.Notes),
		})
	}

	order, events, err := h.orders.CreateOrder(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusCreated, toOrderPayload(order))
}

// ListOrders lists orders filtered by expected pickup month or day.
func (h *OrderHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dateFilter := strings.TrimSpace(r.URL.Query().Get("pickupDate"))
	if dateFilter == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "pickupDate query parameter is required (YYYY-MM or YYYY-MM-DD)", http.StatusBadRequest))
		return
	}

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	page, err := h.orders.ListOrdersByPickupDate(ctx, dateFilter, pager)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	payload := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		payload = append(payload, toOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"orders":          payload,
		"next_page_token": page.NextPageToken,
	})
}

// GetOrder returns one order with items and charge.
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toOrderPayload(order))
}

// UpdateOrder patches the order header or drives the bulk status transition.
func (h *OrderHandlers) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req updateOrderRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	cmd := services.UpdateOrderCommand{
		OrderID:  chi.URLParam(r, "orderID"),
		Notes:    sanitizeTextPtr(req.Notes),
		Discount: req.Discount,
		ActorRef: requestctx.ActorRef(ctx),
	}
	if req.ExpectedPickupAt != nil {
		pickupAt, err := parseTimeParam(*req.ExpectedPickupAt)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "expected_pickup_at must be an RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		cmd.ExpectedPickupAt = &pickupAt
	}
	if req.Status != nil {
		status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(*req.Status)))
		cmd.Status = &status
	}

	order, events, err := h.orders.UpdateOrder(ctx, cmd)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toOrderPayload(order))
}

type orderItemPayload struct {
	ID         string  `json:"id"`
	SizeID     string  `json:"size_id"`
	Flavor1ID  string  `json:"flavor1_id"`
	Flavor2ID  *string `json:"flavor2_id,omitempty"`
	Quantity   int     `json:"quantity"`
	UnitPrice  int64   `json:"unit_price"`
	TotalPrice int64   `json:"total_price"`
	OnDemand   bool    `json:"on_demand"`
	Status     string  `json:"status"`
	Notes      string  `json:"notes,omitempty"`
	CreatedAt  string  `json:"created_at,omitempty"`
	UpdatedAt  string  `json:"updated_at,omitempty"`
}

type paymentPayload struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	PaidAmount    int64  `json:"paid_amount"`
	PaymentMethod string `json:"payment_method"`
	PaidAt        string `json:"paid_at"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type chargePayload struct {
	OrderID  string           `json:"order_id"`
	Subtotal int64            `json:"subtotal"`
	Discount int64            `json:"discount"`
	Total    int64            `json:"total"`
	Status   string           `json:"status"`
	Payments []paymentPayload `json:"payments"`
}

type orderPayload struct {
	ID               string             `json:"id"`
	Number           string             `json:"number"`
	CustomerID       string             `json:"customer_id"`
	EmployeeID       string             `json:"employee_id"`
	Status           string             `json:"status"`
	Notes            string             `json:"notes,omitempty"`
	ExpectedPickupAt string             `json:"expected_pickup_at"`
	PickedUpAt       string             `json:"picked_up_at,omitempty"`
	Items            []orderItemPayload `json:"items"`
	Charge           *chargePayload     `json:"charge,omitempty"`
	CreatedAt        string             `json:"created_at"`
	UpdatedAt        string             `json:"updated_at"`
}

func toOrderItemPayload(item domain.OrderItem) orderItemPayload {
	return orderItemPayload{
		ID:         item.ID,
		SizeID:     item.SizeID,
		Flavor1ID:  item.Flavor1ID,
		Flavor2ID:  item.Flavor2ID,
		Quantity:   item.Quantity,
		UnitPrice:  item.UnitPrice,
		TotalPrice: item.TotalPrice,
		OnDemand:   item.OnDemand,
		Status:     string(item.Status),
		Notes:      item.Notes,
		CreatedAt:  formatTime(item.CreatedAt),
		UpdatedAt:  formatTime(item.UpdatedAt),
	}
}

func toChargePayload(charge domain.Charge) chargePayload {
	payments := charge.ActivePayments()
	payload := chargePayload{
		OrderID:  charge.OrderID,
		Subtotal: charge.Subtotal,
		Discount: charge.Discount,
		Total:    charge.Total,
		Status:   string(charge.Status),
		Payments: make([]paymentPayload, 0, len(payments)),
	}
	for _, p := range payments {
		payload.Payments = append(payload.Payments, paymentPayload{
			ID:            p.ID,
			EmployeeID:    p.EmployeeID,
			PaidAmount:    p.PaidAmount,
			PaymentMethod: p.PaymentMethod,
			PaidAt:        formatTime(p.PaidAt),
			CreatedAt:     formatTime(p.CreatedAt),
		})
	}
	return payload
}

func toOrderPayload(order domain.Order) orderPayload {
	items := order.ActiveItems()
	payload := orderPayload{
		ID:               order.ID,
		Number:           order.Number,
		CustomerID:       order.CustomerID,
		EmployeeID:       order.EmployeeID,
		Status:           string(order.Status),
		Notes:            order.Notes,
		ExpectedPickupAt: formatTime(order.ExpectedPickupAt),
		PickedUpAt:       formatTimePtr(order.PickedUpAt),
		Items:            make([]orderItemPayload, 0, len(items)),
		CreatedAt:        formatTime(order.CreatedAt),
		UpdatedAt:        formatTime(order.UpdatedAt),
	}
	for _, item := range items {
		payload.Items = append(payload.Items, toOrderItemPayload(item))
	}
	if order.Charge != nil {
		charge := toChargePayload(*order.Charge)
		payload.Charge = &charge
	}
	return payload
}

func normalizeIDPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput),
		errors.Is(err, services.ErrOrderItemInvalidInput),
		errors.Is(err, services.ErrPaymentInvalidInput),
		errors.Is(err, services.ErrInventoryInvalidInput),
		errors.Is(err, services.ErrPriceInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrPriceNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("price_not_found", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound),
		errors.Is(err, services.ErrOrderItemNotFound),
		errors.Is(err, services.ErrPaymentNotFound),
		errors.Is(err, services.ErrInventoryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrInventoryInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderItemLastItem):
		httpx.WriteError(ctx, w, httpx.NewError("last_item", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState),
		errors.Is(err, services.ErrOrderItemInvalidState),
		errors.Is(err, services.ErrPaymentInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict),
		errors.Is(err, services.ErrPaymentConflict),
		errors.Is(err, services.ErrInventoryConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderMissingCharge),
		errors.Is(err, services.ErrInventoryStockMissing),
		errors.Is(err, services.ErrInventoryInvariant):
		requestctx.Logger(ctx).Error("order invariant violated", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal error", http.StatusInternalServerError))
	default:
		requestctx.Logger(ctx).Error("order request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal error", http.StatusInternalServerError))
	}
}
