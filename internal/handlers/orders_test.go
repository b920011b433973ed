package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/services"
)

func newOrderTestRouter(orders *stubOrderService, items *stubOrderItemService, payments *stubPaymentService) http.Handler {
	h := NewOrderHandlers(orders, items, payments, nil)
	return newTestRouter("/orders", h.Routes)
}

func TestCreateOrderReturnsCreated(t *testing.T) {
	var captured services.CreateOrderCommand
	orders := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (domain.Order, []domain.Event, error) {
			captured = cmd
			return domain.Order{
				ID:         "ord_01",
				Number:     "CHO-2026-000001",
				CustomerID: cmd.CustomerID,
				EmployeeID: cmd.EmployeeID,
				Status:     domain.OrderStatusPending,
				Items: []domain.OrderItem{{
					ID:        "itm_01",
					SizeID:    "siz_01",
					Flavor1ID: "flv_01",
					Quantity:  2,
					UnitPrice: 3500,
					Status:    domain.OrderStatusPending,
				}},
				Charge: &domain.Charge{OrderID: "ord_01", Subtotal: 7000, Total: 7000, Status: domain.ChargeStatusUnpaid},
			}, nil, nil
		},
	}
	router := newOrderTestRouter(orders, &stubOrderItemService{}, &stubPaymentService{})

	body := `{
		"customer_id": "cus_01",
		"employee_id": "emp_01",
		"expected_pickup_at": "2026-09-05T14:00:00Z",
		"notes": "<script>x</script> birthday",
		"items": [{"size_id": "siz_01", "flavor1_id": "flv_01", "quantity": 2}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/orders/", strings.NewReader(body))
	rec := performRequest(router, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Notes != "birthday" {
		t.Fatalf("expected sanitized notes %q, got %q", "birthday", captured.Notes)
	}
	if !captured.ExpectedPickupAt.Equal(time.Date(2026, 9, 5, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected pickup time %v", captured.ExpectedPickupAt)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["number"] != "CHO-2026-000001" {
		t.Fatalf("unexpected number %v", payload["number"])
	}
	charge, ok := payload["charge"].(map[string]any)
	if !ok {
		t.Fatalf("expected charge in payload, got %v", payload["charge"])
	}
	if charge["status"] != string(domain.ChargeStatusUnpaid) {
		t.Fatalf("unexpected charge status %v", charge["status"])
	}
}

func TestCreateOrderRejectsBadPickupTimestamp(t *testing.T) {
	router := newOrderTestRouter(&stubOrderService{}, &stubOrderItemService{}, &stubPaymentService{})

	body := `{"customer_id": "cus_01", "expected_pickup_at": "tomorrow", "items": []}`
	req := httptest.NewRequest(http.MethodPost, "/orders/", strings.NewReader(body))
	rec := performRequest(router, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderRejectsEmptyBody(t *testing.T) {
	router := newOrderTestRouter(&stubOrderService{}, &stubOrderItemService{}, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodPost, "/orders/", strings.NewReader(""))
	rec := performRequest(router, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateOrderMapsInsufficientStock(t *testing.T) {
	orders := &stubOrderService{
		createFn: func(_ context.Context, _ services.CreateOrderCommand) (domain.Order, []domain.Event, error) {
			return domain.Order{}, nil, fmt.Errorf("%w: flv_01/siz_01 has 1 remaining", services.ErrInventoryInsufficientStock)
		},
	}
	router := newOrderTestRouter(orders, &stubOrderItemService{}, &stubPaymentService{})

	body := `{"customer_id": "cus_01", "expected_pickup_at": "2026-09-05T14:00:00Z", "items": [{"size_id": "siz_01", "flavor1_id": "flv_01", "quantity": 4}]}`
	req := httptest.NewRequest(http.MethodPost, "/orders/", strings.NewReader(body))
	rec := performRequest(router, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "insufficient_stock") {
		t.Fatalf("expected insufficient_stock code, got %s", rec.Body.String())
	}
}

func TestGetOrderMapsNotFound(t *testing.T) {
	orders := &stubOrderService{
		getFn: func(_ context.Context, orderID string) (domain.Order, error) {
			return domain.Order{}, fmt.Errorf("%w: %s", services.ErrOrderNotFound, orderID)
		},
	}
	router := newOrderTestRouter(orders, &stubOrderItemService{}, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodGet, "/orders/ord_missing", nil)
	rec := performRequest(router, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListOrdersRequiresPickupDateFilter(t *testing.T) {
	router := newOrderTestRouter(&stubOrderService{}, &stubOrderItemService{}, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodGet, "/orders/", nil)
	rec := performRequest(router, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListOrdersPassesFilterAndPager(t *testing.T) {
	var gotFilter string
	var gotPager domain.Pagination
	orders := &stubOrderService{
		listPickupFn: func(_ context.Context, dateFilter string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
			gotFilter = dateFilter
			gotPager = pager
			return domain.CursorPage[domain.Order]{
				Items:         []domain.Order{{ID: "ord_01", Status: domain.OrderStatusPending}},
				NextPageToken: "tok",
			}, nil
		},
	}
	router := newOrderTestRouter(orders, &stubOrderItemService{}, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodGet, "/orders/?pickupDate=2026-09&pageSize=10", nil)
	rec := performRequest(router, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotFilter != "2026-09" {
		t.Fatalf("unexpected filter %q", gotFilter)
	}
	if gotPager.PageSize != 10 {
		t.Fatalf("unexpected page size %d", gotPager.PageSize)
	}
	if !strings.Contains(rec.Body.String(), `"next_page_token":"tok"`) {
		t.Fatalf("expected next page token in body, got %s", rec.Body.String())
	}
}

func TestUpdateOrderUppercasesStatus(t *testing.T) {
	var captured services.UpdateOrderCommand
	orders := &stubOrderService{
		updateFn: func(_ context.Context, cmd services.UpdateOrderCommand) (domain.Order, []domain.Event, error) {
			captured = cmd
			return domain.Order{ID: cmd.OrderID, Status: domain.OrderStatusCompleted}, nil, nil
		},
	}
	router := newOrderTestRouter(orders, &stubOrderItemService{}, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodPatch, "/orders/ord_01", strings.NewReader(`{"status": "completed"}`))
	rec := performRequest(router, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.Status == nil || *captured.Status != domain.OrderStatusCompleted {
		t.Fatalf("expected COMPLETED status, got %v", captured.Status)
	}
	if captured.OrderID != "ord_01" {
		t.Fatalf("unexpected order id %q", captured.OrderID)
	}
}

func TestUpdateOrderMapsInvalidState(t *testing.T) {
	orders := &stubOrderService{
		updateFn: func(_ context.Context, _ services.UpdateOrderCommand) (domain.Order, []domain.Event, error) {
			return domain.Order{}, nil, fmt.Errorf("%w: order is terminal", services.ErrOrderInvalidState)
		},
	}
	router := newOrderTestRouter(orders, &stubOrderItemService{}, &stubPaymentService{})

	req := httptest.NewRequest(http.MethodPatch, "/orders/ord_01", strings.NewReader(`{"status": "CANCELLED"}`))
	rec := performRequest(router, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
