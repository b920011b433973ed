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

// CatalogHandlers serves the flavor and size axes plus the price grid. These
// endpoints are admin-only; the router gates them by role.
type CatalogHandlers struct {
	catalog services.CatalogService
	events  *services.EventConsumer
}

// NewCatalogHandlers builds the catalog endpoint handlers.
func NewCatalogHandlers(catalog services.CatalogService, events *services.EventConsumer) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog, events: events}
}

// Routes registers the catalog endpoints on the router.
func (h *CatalogHandlers) Routes(r chi.Router) {
	r.Route("/flavors", func(r chi.Router) {
		r.Post("/", h.CreateFlavor)
		r.Get("/", h.ListFlavors)
		r.Get("/{flavorID}", h.GetFlavor)
		r.Patch("/{flavorID}", h.UpdateFlavor)
		r.Delete("/{flavorID}", h.DeleteFlavor)
	})
	r.Route("/sizes", func(r chi.Router) {
		r.Post("/", h.CreateSize)
		r.Get("/", h.ListSizes)
		r.Get("/{sizeID}", h.GetSize)
		r.Patch("/{sizeID}", h.UpdateSize)
		r.Delete("/{sizeID}", h.DeleteSize)
	})
	r.Route("/prices", func(r chi.Router) {
		r.Put("/", h.UpsertPrice)
		r.Get("/", h.ListPrices)
		r.Get("/{flavorID}/{sizeID}", h.GetPrice)
	})
}

type upsertFlavorRequest struct {
	Name string `json:"name"`
}

type upsertSizeRequest struct {
	Name        string `json:"name"`
	LargeFormat *bool  `json:"large_format"`
}

type upsertPriceRequest struct {
	FlavorID  string `json:"flavor_id"`
	SizeID    string `json:"size_id"`
	SalePrice int64  `json:"sale_price"`
	CostPrice int64  `json:"cost_price"`
}

type flavorPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type sizePayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LargeFormat bool   `json:"large_format"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type pricePayload struct {
	FlavorID  string `json:"flavor_id"`
	SizeID    string `json:"size_id"`
	SalePrice int64  `json:"sale_price"`
	CostPrice int64  `json:"cost_price"`
	UpdatedAt string `json:"updated_at"`
}

func toFlavorPayload(flavor domain.Flavor) flavorPayload {
	return flavorPayload{
		ID:        flavor.ID,
		Name:      flavor.Name,
		CreatedAt: formatTime(flavor.CreatedAt),
		UpdatedAt: formatTime(flavor.UpdatedAt),
	}
}

func toSizePayload(size domain.Size) sizePayload {
	return sizePayload{
		ID:          size.ID,
		Name:        size.Name,
		LargeFormat: size.LargeFormat,
		CreatedAt:   formatTime(size.CreatedAt),
		UpdatedAt:   formatTime(size.UpdatedAt),
	}
}

func toPricePayload(price domain.ProductPrice) pricePayload {
	return pricePayload{
		FlavorID:  price.FlavorID,
		SizeID:    price.SizeID,
		SalePrice: price.SalePrice,
		CostPrice: price.CostPrice,
		UpdatedAt: formatTime(price.UpdatedAt),
	}
}

func (h *CatalogHandlers) CreateFlavor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertFlavorRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	flavor, events, err := h.catalog.CreateFlavor(ctx, services.UpsertFlavorCommand{
		Name:     strings.TrimSpace(req.Name),
		ActorRef: requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusCreated, toFlavorPayload(flavor))
}

func (h *CatalogHandlers) ListFlavors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	page, err := h.catalog.ListFlavors(ctx, pager)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	payload := make([]flavorPayload, 0, len(page.Items))
	for _, flavor := range page.Items {
		payload = append(payload, toFlavorPayload(flavor))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"flavors":         payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *CatalogHandlers) GetFlavor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	flavor, err := h.catalog.GetFlavor(ctx, chi.URLParam(r, "flavorID"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toFlavorPayload(flavor))
}

func (h *CatalogHandlers) UpdateFlavor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertFlavorRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	flavor, events, err := h.catalog.UpdateFlavor(ctx, services.UpsertFlavorCommand{
		FlavorID: chi.URLParam(r, "flavorID"),
		Name:     strings.TrimSpace(req.Name),
		ActorRef: requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toFlavorPayload(flavor))
}

func (h *CatalogHandlers) DeleteFlavor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.catalog.DeleteFlavor(ctx, chi.URLParam(r, "flavorID"), requestctx.ActorRef(ctx))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusNoContent, nil)
}

func (h *CatalogHandlers) CreateSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertSizeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	size, events, err := h.catalog.CreateSize(ctx, services.UpsertSizeCommand{
		Name:        strings.TrimSpace(req.Name),
		LargeFormat: req.LargeFormat,
		ActorRef:    requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusCreated, toSizePayload(size))
}

func (h *CatalogHandlers) ListSizes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	page, err := h.catalog.ListSizes(ctx, pager)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	payload := make([]sizePayload, 0, len(page.Items))
	for _, size := range page.Items {
		payload = append(payload, toSizePayload(size))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"sizes":           payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *CatalogHandlers) GetSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	size, err := h.catalog.GetSize(ctx, chi.URLParam(r, "sizeID"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toSizePayload(size))
}

func (h *CatalogHandlers) UpdateSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertSizeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	size, events, err := h.catalog.UpdateSize(ctx, services.UpsertSizeCommand{
		SizeID:      chi.URLParam(r, "sizeID"),
		Name:        strings.TrimSpace(req.Name),
		LargeFormat: req.LargeFormat,
		ActorRef:    requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toSizePayload(size))
}

func (h *CatalogHandlers) DeleteSize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.catalog.DeleteSize(ctx, chi.URLParam(r, "sizeID"), requestctx.ActorRef(ctx))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusNoContent, nil)
}

func (h *CatalogHandlers) UpsertPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertPriceRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	price, events, err := h.catalog.UpsertPrice(ctx, services.UpsertPriceCommand{
		FlavorID:  strings.TrimSpace(req.FlavorID),
		SizeID:    strings.TrimSpace(req.SizeID),
		SalePrice: req.SalePrice,
		CostPrice: req.CostPrice,
		ActorRef:  requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toPricePayload(price))
}

func (h *CatalogHandlers) ListPrices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	page, err := h.catalog.ListPrices(ctx, pager)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	payload := make([]pricePayload, 0, len(page.Items))
	for _, price := range page.Items {
		payload = append(payload, toPricePayload(price))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"prices":          payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *CatalogHandlers) GetPrice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	price, err := h.catalog.GetPrice(ctx, chi.URLParam(r, "flavorID"), chi.URLParam(r, "sizeID"))
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toPricePayload(price))
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCatalogInvalidInput), errors.Is(err, services.ErrPriceInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound), errors.Is(err, services.ErrPriceNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	default:
		requestctx.Logger(ctx).Error("catalog request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal error", http.StatusInternalServerError))
	}
}
