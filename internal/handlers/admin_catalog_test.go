package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/services"
)

func newCatalogTestRouter(catalog *stubCatalogService) http.Handler {
	h := NewCatalogHandlers(catalog, nil)
	return newTestRouter("/admin", h.Routes)
}

func TestCreateFlavorReturnsCreated(t *testing.T) {
	var captured services.UpsertFlavorCommand
	catalog := &stubCatalogService{
		createFlavorFn: func(_ context.Context, cmd services.UpsertFlavorCommand) (domain.Flavor, []domain.Event, error) {
			captured = cmd
			return domain.Flavor{ID: "flv_01", Name: cmd.Name}, nil, nil
		},
	}
	router := newCatalogTestRouter(catalog)

	req := httptest.NewRequest(http.MethodPost, "/admin/flavors/", strings.NewReader(`{"name": " Brigadeiro "}`))
	rec := performRequest(router, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Name != "Brigadeiro" {
		t.Fatalf("expected trimmed name, got %q", captured.Name)
	}
}

func TestCreateSizePassesLargeFormatOverride(t *testing.T) {
	var captured services.UpsertSizeCommand
	catalog := &stubCatalogService{
		createSizeFn: func(_ context.Context, cmd services.UpsertSizeCommand) (domain.Size, []domain.Event, error) {
			captured = cmd
			return domain.Size{ID: "siz_01", Name: cmd.Name, LargeFormat: true}, nil, nil
		},
	}
	router := newCatalogTestRouter(catalog)

	req := httptest.NewRequest(http.MethodPost, "/admin/sizes/", strings.NewReader(`{"name": "1Kg", "large_format": true}`))
	rec := performRequest(router, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.LargeFormat == nil || !*captured.LargeFormat {
		t.Fatalf("expected large format override, got %v", captured.LargeFormat)
	}
}

func TestDeleteSizeMapsNotFound(t *testing.T) {
	catalog := &stubCatalogService{
		deleteSizeFn: func(_ context.Context, sizeID, _ string) ([]domain.Event, error) {
			return nil, fmt.Errorf("%w: %s", services.ErrCatalogNotFound, sizeID)
		},
	}
	router := newCatalogTestRouter(catalog)

	req := httptest.NewRequest(http.MethodDelete, "/admin/sizes/siz_missing", nil)
	rec := performRequest(router, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpsertPricePassesCell(t *testing.T) {
	var captured services.UpsertPriceCommand
	catalog := &stubCatalogService{
		upsertPriceFn: func(_ context.Context, cmd services.UpsertPriceCommand) (domain.ProductPrice, []domain.Event, error) {
			captured = cmd
			return domain.ProductPrice{FlavorID: cmd.FlavorID, SizeID: cmd.SizeID, SalePrice: cmd.SalePrice}, nil, nil
		},
	}
	router := newCatalogTestRouter(catalog)

	body := `{"flavor_id": "flv_01", "size_id": "siz_01", "sale_price": 3500, "cost_price": 1200}`
	req := httptest.NewRequest(http.MethodPut, "/admin/prices/", strings.NewReader(body))
	rec := performRequest(router, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.FlavorID != "flv_01" || captured.SizeID != "siz_01" {
		t.Fatalf("unexpected cell %s/%s", captured.FlavorID, captured.SizeID)
	}
	if captured.SalePrice != 3500 || captured.CostPrice != 1200 {
		t.Fatalf("unexpected prices %d/%d", captured.SalePrice, captured.CostPrice)
	}
}

func TestGetPriceMapsNotFound(t *testing.T) {
	catalog := &stubCatalogService{
		getPriceFn: func(_ context.Context, flavorID, sizeID string) (domain.ProductPrice, error) {
			return domain.ProductPrice{}, fmt.Errorf("%w: %s/%s", services.ErrPriceNotFound, flavorID, sizeID)
		},
	}
	router := newCatalogTestRouter(catalog)

	req := httptest.NewRequest(http.MethodGet, "/admin/prices/flv_x/siz_y", nil)
	rec := performRequest(router, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListFlavorsReturnsPage(t *testing.T) {
	catalog := &stubCatalogService{
		listFlavorsFn: func(_ context.Context, pager domain.Pagination) (domain.CursorPage[domain.Flavor], error) {
			return domain.CursorPage[domain.Flavor]{
				Items:         []domain.Flavor{{ID: "flv_01", Name: "Brigadeiro"}},
				NextPageToken: "tok",
			}, nil
		},
	}
	router := newCatalogTestRouter(catalog)

	req := httptest.NewRequest(http.MethodGet, "/admin/flavors/", nil)
	rec := performRequest(router, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Brigadeiro") {
		t.Fatalf("expected flavor in body, got %s", rec.Body.String())
	}
}
