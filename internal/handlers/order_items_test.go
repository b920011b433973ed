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

func TestAddItemPassesCommand(t *testing.T) {
	var captured services.AddOrderItemCommand
	items := &stubOrderItemService{
		addFn: func(_ context.Context, cmd services.AddOrderItemCommand) (domain.Order, []domain.Event, error) {
			captured = cmd
			return domain.Order{ID: cmd.OrderID, Status: domain.OrderStatusPending}, nil, nil
		},
	}
	router := newOrderTestRouter(&stubOrderService{}, items, &stubPaymentService{})

	body := `{"size_id": "siz_01", "flavor1_id": "flv_01", "flavor2_id": " flv_02 ", "quantity": 3, "notes": "no sugar"}`
	req := httptest.NewRequest(http.MethodPost, "/orders/ord_01/items", strings.NewReader(body))
	rec := performRequest(router, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.OrderID != "ord_01" {
		t.Fatalf("unexpected order id %q", captured.OrderID)
	}
	if captured.Item.Flavor2ID == nil || *captured.Item.Flavor2ID != "flv_02" {
		t.Fatalf("expected trimmed second flavor, got %v", captured.Item.Flavor2ID)
	}
	if captured.Item.Quantity != 3 {
		t.Fatalf("unexpected quantity %d", captured.Item.Quantity)
	}
}

func TestUpdateItemPassesClearFlavor2(t *testing.T) {
	var captured services.UpdateOrderItemCommand
	items := &stubOrderItemService{
		updateFn: func(_ context.Context, cmd services.UpdateOrderItemCommand) (domain.Order, []domain.Event, error) {
			captured = cmd
			return domain.Order{ID: cmd.OrderID}, nil, nil
		},
	}
	router := newOrderTestRouter(&stubOrderService{}, items, &stubPaymentService{})

	body := `{"clear_flavor2": true, "quantity": 1, "status": "ready_for_pickup"}`
	req := httptest.NewRequest(http.MethodPatch, "/orders/ord_01/items/itm_01", strings.NewReader(body))
	rec := performRequest(router, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !captured.ClearFlavor2 {
		t.Fatal("expected ClearFlavor2 to be set")
	}
	if captured.Quantity == nil || *captured.Quantity != 1 {
		t.Fatalf("unexpected quantity %v", captured.Quantity)
	}
	if captured.Status == nil || *captured.Status != domain.OrderStatusReadyForPickup {
		t.Fatalf("unexpected status %v", captured.Status)
	}
	if captured.ItemID != "itm_01" {
		t.Fatalf("unexpected item id %q", captured.ItemID)
	}
}

func TestRemoveItemMapsLastItemGuard(t *testing.T) {
	items := &stubOrderItemService{
		removeFn: func(_ context.Context, _ services.RemoveOrderItemCommand) (domain.Order, []domain.Event, error) {
			return domain.Order{}, nil, fmt.Errorf("%w", services.ErrOrderItemLastItem)
		},
	}
	router := newOrderTestRouter(&stubOrderService{}, items, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodDelete, "/orders/ord_01/items/itm_01", nil)
	rec := performRequest(router, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "last_item") {
		t.Fatalf("expected last_item code, got %s", rec.Body.String())
	}
}

func TestUpdateItemMapsInvalidState(t *testing.T) {
	items := &stubOrderItemService{
		updateFn: func(_ context.Context, _ services.UpdateOrderItemCommand) (domain.Order, []domain.Event, error) {
			return domain.Order{}, nil, fmt.Errorf("%w: item is terminal", services.ErrOrderItemInvalidState)
		},
	}
	router := newOrderTestRouter(&stubOrderService{}, items, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodPatch, "/orders/ord_01/items/itm_01", strings.NewReader(`{"quantity": 2}`))
	rec := performRequest(router, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
