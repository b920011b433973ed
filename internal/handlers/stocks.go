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

// StockHandlers serves the shelf-stock grid and the manual movement journal.
type StockHandlers struct {
	inventory services.InventoryService
	events    *services.EventConsumer
}

// NewStockHandlers builds the stock endpoint handlers.
func NewStockHandlers(inventory services.InventoryService, events *services.EventConsumer) *StockHandlers {
	return &StockHandlers{inventory: inventory, events: events}
}

// Routes registers the stock endpoints on the router.
func (h *StockHandlers) Routes(r chi.Router) {
	r.Get("/", h.ListStocks)
	r.Get("/movements", h.ListMovements)
	r.Post("/movements", h.RecordMovement)
	r.Get("/{flavorID}/{sizeID}", h.GetStock)
}

type recordMovementRequest struct {
	FlavorID     string `json:"flavor_id"`
	SizeID       string `json:"size_id"`
	Quantity     int    `json:"quantity"`
	MovementType string `json:"movement_type"`
}

type stockPayload struct {
	FlavorID  string `json:"flavor_id"`
	SizeID    string `json:"size_id"`
	Total     int    `json:"total"`
	Remaining int    `json:"remaining"`
	UpdatedAt string `json:"updated_at"`
}

type stockRecordPayload struct {
	ID             string `json:"id"`
	FlavorID       string `json:"flavor_id"`
	SizeID         string `json:"size_id"`
	Quantity       int    `json:"quantity"`
	MovementType   string `json:"movement_type"`
	ProductionDate string `json:"production_date,omitempty"`
	ExpirationDate string `json:"expiration_date,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func toStockPayload(stock domain.Stock) stockPayload {
	return stockPayload{
		FlavorID:  stock.FlavorID,
		SizeID:    stock.SizeID,
		Total:     stock.Total,
		Remaining: stock.Remaining,
		UpdatedAt: formatTime(stock.UpdatedAt),
	}
}

func toStockRecordPayload(record domain.StockRecord) stockRecordPayload {
	return stockRecordPayload{
		ID:             record.ID,
		FlavorID:       record.FlavorID,
		SizeID:         record.SizeID,
		Quantity:       record.Quantity,
		MovementType:   string(record.MovementType),
		ProductionDate: formatTime(record.ProductionDate),
		ExpirationDate: formatTimePtr(record.ExpirationDate),
		CreatedAt:      formatTime(record.CreatedAt),
	}
}

func (h *StockHandlers) ListStocks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	page, err := h.inventory.ListStocks(ctx, pager)
	if err != nil {
		writeStockError(ctx, w, err)
		return
	}

	payload := make([]stockPayload, 0, len(page.Items))
	for _, stock := range page.Items {
		payload = append(payload, toStockPayload(stock))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"stocks":          payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *StockHandlers) GetStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stock, err := h.inventory.GetStock(ctx, chi.URLParam(r, "flavorID"), chi.URLParam(r, "sizeID"))
	if err != nil {
		writeStockError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toStockPayload(stock))
}

func (h *StockHandlers) ListMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	page, err := h.inventory.ListMovements(ctx, pager)
	if err != nil {
		writeStockError(ctx, w, err)
		return
	}

	payload := make([]stockRecordPayload, 0, len(page.Items))
	for _, record := range page.Items {
		payload = append(payload, toStockRecordPayload(record))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"movements":       payload,
		"next_page_token": page.NextPageToken,
	})
}

// RecordMovement journals a manual INBOUND or OUTBOUND stock movement.
func (h *StockHandlers) RecordMovement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req recordMovementRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	record, events, err := h.inventory.RecordMovement(ctx, services.RecordStockMovementCommand{
		FlavorID:     strings.TrimSpace(req.FlavorID),
		SizeID:       strings.TrimSpace(req.SizeID),
		Quantity:     req.Quantity,
		MovementType: strings.ToUpper(strings.TrimSpace(req.MovementType)),
		ActorRef:     requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeStockError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusCreated, toStockRecordPayload(record))
}

func writeStockError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInventoryInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrInventoryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrInventoryInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInventoryConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrInventoryStockMissing), errors.Is(err, services.ErrInventoryInvariant):
		requestctx.Logger(ctx).Error("stock ledger invariant violated", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal error", http.StatusInternalServerError))
	default:
		requestctx.Logger(ctx).Error("stock request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal error", http.StatusInternalServerError))
	}
}
