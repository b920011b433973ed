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

// CustomerHandlers serves buyer records and their order history.
type CustomerHandlers struct {
	customers services.CustomerService
	orders    services.OrderService
	events    *services.EventConsumer
}

// NewCustomerHandlers builds the customer endpoint handlers.
func NewCustomerHandlers(customers services.CustomerService, orders services.OrderService, events *services.EventConsumer) *CustomerHandlers {
	return &CustomerHandlers{customers: customers, orders: orders, events: events}
}

// Routes registers the customer endpoints on the router.
func (h *CustomerHandlers) Routes(r chi.Router) {
	r.Post("/", h.CreateCustomer)
	r.Get("/", h.ListCustomers)
	r.Route("/{customerID}", func(r chi.Router) {
		r.Get("/", h.GetCustomer)
		r.Patch("/", h.UpdateCustomer)
		r.Delete("/", h.DeleteCustomer)
		r.Get("/orders", h.ListCustomerOrders)
		r.Get("/orders/{orderID}", h.GetCustomerOrder)
	})
}

type upsertCustomerRequest struct {
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	IsReseller *bool   `json:"is_reseller"`
	Notes      *string `json:"notes"`
}

type customerPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	IsReseller bool   `json:"is_reseller"`
	Notes      string `json:"notes,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toCustomerPayload(customer domain.Customer) customerPayload {
	return customerPayload{
		ID:         customer.ID,
		Name:       customer.Name,
		Phone:      customer.Phone,
		IsReseller: customer.IsReseller,
		Notes:      customer.Notes,
		CreatedAt:  formatTime(customer.CreatedAt),
		UpdatedAt:  formatTime(customer.UpdatedAt),
	}
}

func (h *CustomerHandlers) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertCustomerRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	customer, events, err := h.customers.CreateCustomer(ctx, services.UpsertCustomerCommand{
		Name:       strings.TrimSpace(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
		IsReseller: req.IsReseller,
		Notes:      sanitizeTextPtr(req.Notes),
		ActorRef:   requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusCreated, toCustomerPayload(customer))
}

func (h *CustomerHandlers) ListCustomers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	page, err := h.customers.ListCustomers(ctx, pager)
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}

	payload := make([]customerPayload, 0, len(page.Items))
	for _, customer := range page.Items {
		payload = append(payload, toCustomerPayload(customer))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"customers":       payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *CustomerHandlers) GetCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	customer, err := h.customers.GetCustomer(ctx, chi.URLParam(r, "customerID"))
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toCustomerPayload(customer))
}

func (h *CustomerHandlers) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertCustomerRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	customer, events, err := h.customers.UpdateCustomer(ctx, services.UpsertCustomerCommand{
		CustomerID: chi.URLParam(r, "customerID"),
		Name:       strings.TrimSpace(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
		IsReseller: req.IsReseller,
		Notes:      sanitizeTextPtr(req.Notes),
		ActorRef:   requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toCustomerPayload(customer))
}

func (h *CustomerHandlers) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.customers.DeleteCustomer(ctx, chi.URLParam(r, "customerID"), requestctx.ActorRef(ctx))
	if err != nil {
		writeCustomerError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusNoContent, nil)
}

// ListCustomerOrders pages through one customer's order history.
func (h *CustomerHandlers) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	page, err := h.orders.ListCustomerOrders(ctx, chi.URLParam(r, "customerID"), pager)
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

// GetCustomerOrder returns one order scoped to the customer that owns it.
func (h *CustomerHandlers) GetCustomerOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	order, err := h.orders.GetCustomerOrder(ctx, chi.URLParam(r, "customerID"), chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toOrderPayload(order))
}

func writeCustomerError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCustomerInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCustomerNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCustomerConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	default:
		requestctx.Logger(ctx).Error("customer request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal error", http.StatusInternalServerError))
	}
}
