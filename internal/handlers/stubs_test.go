package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/platform/requestctx"
	"github.com/chocolog/api/internal/services"
)

// Shared stub services for handler tests. Each stub delegates to optional
// function fields so tests only implement the calls they exercise.

type stubOrderService struct {
	createFn       func(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, []domain.Event, error)
	getFn          func(ctx context.Context, orderID string) (domain.Order, error)
	getCustomerFn  func(ctx context.Context, customerID, orderID string) (domain.Order, error)
	listCustomerFn func(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
	listPickupFn   func(ctx context.Context, dateFilter string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
	updateFn       func(ctx context.Context, cmd services.UpdateOrderCommand) (domain.Order, []domain.Event, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, []domain.Event, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, nil, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, orderID)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) GetCustomerOrder(ctx context.Context, customerID, orderID string) (domain.Order, error) {
	if s.getCustomerFn != nil {
		return s.getCustomerFn(ctx, customerID, orderID)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) ListCustomerOrders(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	if s.listCustomerFn != nil {
		return s.listCustomerFn(ctx, customerID, pager)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderService) ListOrdersByPickupDate(ctx context.Context, dateFilter string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	if s.listPickupFn != nil {
		return s.listPickupFn(ctx, dateFilter, pager)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderService) UpdateOrder(ctx context.Context, cmd services.UpdateOrderCommand) (domain.Order, []domain.Event, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Order{}, nil, nil
}

type stubOrderItemService struct {
	addFn    func(ctx context.Context, cmd services.AddOrderItemCommand) (domain.Order, []domain.Event, error)
	updateFn func(ctx context.Context, cmd services.UpdateOrderItemCommand) (domain.Order, []domain.Event, error)
	removeFn func(ctx context.Context, cmd services.RemoveOrderItemCommand) (domain.Order, []domain.Event, error)
}

func (s *stubOrderItemService) AddItem(ctx context.Context, cmd services.AddOrderItemCommand) (domain.Order, []domain.Event, error) {
	if s.addFn != nil {
		return s.addFn(ctx, cmd)
	}
	return domain.Order{}, nil, nil
}

func (s *stubOrderItemService) UpdateItem(ctx context.Context, cmd services.UpdateOrderItemCommand) (domain.Order, []domain.Event, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Order{}, nil, nil
}

func (s *stubOrderItemService) RemoveItem(ctx context.Context, cmd services.RemoveOrderItemCommand) (domain.Order, []domain.Event, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, cmd)
	}
	return domain.Order{}, nil, nil
}

type stubPaymentService struct {
	recordFn    func(ctx context.Context, cmd services.RecordPaymentCommand) (domain.Charge, []domain.Event, error)
	updateFn    func(ctx context.Context, cmd services.UpdatePaymentCommand) (domain.Charge, []domain.Event, error)
	removeFn    func(ctx context.Context, cmd services.RemovePaymentCommand) (domain.Charge, []domain.Event, error)
	getChargeFn func(ctx context.Context, orderID string) (domain.Charge, error)
}

func (s *stubPaymentService) RecordPayment(ctx context.Context, cmd services.RecordPaymentCommand) (domain.Charge, []domain.Event, error) {
	if s.recordFn != nil {
		return s.recordFn(ctx, cmd)
	}
	return domain.Charge{}, nil, nil
}

func (s *stubPaymentService) UpdatePayment(ctx context.Context, cmd services.UpdatePaymentCommand) (domain.Charge, []domain.Event, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Charge{}, nil, nil
}

func (s *stubPaymentService) RemovePayment(ctx context.Context, cmd services.RemovePaymentCommand) (domain.Charge, []domain.Event, error) {
	if s.removeFn != nil {
		return s.removeFn(ctx, cmd)
	}
	return domain.Charge{}, nil, nil
}

func (s *stubPaymentService) GetCharge(ctx context.Context, orderID string) (domain.Charge, error) {
	if s.getChargeFn != nil {
		return s.getChargeFn(ctx, orderID)
	}
	return domain.Charge{}, nil
}

type stubInventoryService struct {
	adjustRemainingFn func(ctx context.Context, flavorID, sizeID string, delta int) error
	adjustTotalFn     func(ctx context.Context, flavorID, sizeID string, delta int) error
	recordFn          func(ctx context.Context, cmd services.RecordStockMovementCommand) (domain.StockRecord, []domain.Event, error)
	getFn             func(ctx context.Context, flavorID, sizeID string) (domain.Stock, error)
	listStocksFn      func(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Stock], error)
	listMovementsFn   func(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.StockRecord], error)
}

func (s *stubInventoryService) AdjustRemaining(ctx context.Context, flavorID, sizeID string, delta int) error {
	if s.adjustRemainingFn != nil {
		return s.adjustRemainingFn(ctx, flavorID, sizeID, delta)
	}
	return nil
}

func (s *stubInventoryService) AdjustTotal(ctx context.Context, flavorID, sizeID string, delta int) error {
	if s.adjustTotalFn != nil {
		return s.adjustTotalFn(ctx, flavorID, sizeID, delta)
	}
	return nil
}

func (s *stubInventoryService) RecordMovement(ctx context.Context, cmd services.RecordStockMovementCommand) (domain.StockRecord, []domain.Event, error) {
	if s.recordFn != nil {
		return s.recordFn(ctx, cmd)
	}
	return domain.StockRecord{}, nil, nil
}

func (s *stubInventoryService) GetStock(ctx context.Context, flavorID, sizeID string) (domain.Stock, error) {
	if s.getFn != nil {
		return s.getFn(ctx, flavorID, sizeID)
	}
	return domain.Stock{}, nil
}

func (s *stubInventoryService) ListStocks(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Stock], error) {
	if s.listStocksFn != nil {
		return s.listStocksFn(ctx, pager)
	}
	return domain.CursorPage[domain.Stock]{}, nil
}

func (s *stubInventoryService) ListMovements(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.StockRecord], error) {
	if s.listMovementsFn != nil {
		return s.listMovementsFn(ctx, pager)
	}
	return domain.CursorPage[domain.StockRecord]{}, nil
}

type stubCustomerService struct {
	createFn func(ctx context.Context, cmd services.UpsertCustomerCommand) (domain.Customer, []domain.Event, error)
	updateFn func(ctx context.Context, cmd services.UpsertCustomerCommand) (domain.Customer, []domain.Event, error)
	deleteFn func(ctx context.Context, customerID, actorRef string) ([]domain.Event, error)
	getFn    func(ctx context.Context, customerID string) (domain.Customer, error)
	listFn   func(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Customer], error)
}

func (s *stubCustomerService) CreateCustomer(ctx context.Context, cmd services.UpsertCustomerCommand) (domain.Customer, []domain.Event, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Customer{}, nil, nil
}

func (s *stubCustomerService) UpdateCustomer(ctx context.Context, cmd services.UpsertCustomerCommand) (domain.Customer, []domain.Event, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Customer{}, nil, nil
}

func (s *stubCustomerService) DeleteCustomer(ctx context.Context, customerID, actorRef string) ([]domain.Event, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, customerID, actorRef)
	}
	return nil, nil
}

func (s *stubCustomerService) GetCustomer(ctx context.Context, customerID string) (domain.Customer, error) {
	if s.getFn != nil {
		return s.getFn(ctx, customerID)
	}
	return domain.Customer{}, nil
}

func (s *stubCustomerService) ListCustomers(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Customer], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.Customer]{}, nil
}

type stubCatalogService struct {
	createFlavorFn func(ctx context.Context, cmd services.UpsertFlavorCommand) (domain.Flavor, []domain.Event, error)
	updateFlavorFn func(ctx context.Context, cmd services.UpsertFlavorCommand) (domain.Flavor, []domain.Event, error)
	deleteFlavorFn func(ctx context.Context, flavorID, actorRef string) ([]domain.Event, error)
	getFlavorFn    func(ctx context.Context, flavorID string) (domain.Flavor, error)
	listFlavorsFn  func(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Flavor], error)
	createSizeFn   func(ctx context.Context, cmd services.UpsertSizeCommand) (domain.Size, []domain.Event, error)
	updateSizeFn   func(ctx context.Context, cmd services.UpsertSizeCommand) (domain.Size, []domain.Event, error)
	deleteSizeFn   func(ctx context.Context, sizeID, actorRef string) ([]domain.Event, error)
	getSizeFn      func(ctx context.Context, sizeID string) (domain.Size, error)
	listSizesFn    func(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Size], error)
	upsertPriceFn  func(ctx context.Context, cmd services.UpsertPriceCommand) (domain.ProductPrice, []domain.Event, error)
	getPriceFn     func(ctx context.Context, flavorID, sizeID string) (domain.ProductPrice, error)
	listPricesFn   func(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.ProductPrice], error)
}

func (s *stubCatalogService) CreateFlavor(ctx context.Context, cmd services.UpsertFlavorCommand) (domain.Flavor, []domain.Event, error) {
	if s.createFlavorFn != nil {
		return s.createFlavorFn(ctx, cmd)
	}
	return domain.Flavor{}, nil, nil
}

func (s *stubCatalogService) UpdateFlavor(ctx context.Context, cmd services.UpsertFlavorCommand) (domain.Flavor, []domain.Event, error) {
	if s.updateFlavorFn != nil {
		return s.updateFlavorFn(ctx, cmd)
	}
	return domain.Flavor{}, nil, nil
}

func (s *stubCatalogService) DeleteFlavor(ctx context.Context, flavorID, actorRef string) ([]domain.Event, error) {
	if s.deleteFlavorFn != nil {
		return s.deleteFlavorFn(ctx, flavorID, actorRef)
	}
	return nil, nil
}

func (s *stubCatalogService) GetFlavor(ctx context.Context, flavorID string) (domain.Flavor, error) {
	if s.getFlavorFn != nil {
		return s.getFlavorFn(ctx, flavorID)
	}
	return domain.Flavor{}, nil
}

func (s *stubCatalogService) ListFlavors(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Flavor], error) {
	if s.listFlavorsFn != nil {
		return s.listFlavorsFn(ctx, pager)
	}
	return domain.CursorPage[domain.Flavor]{}, nil
}

func (s *stubCatalogService) CreateSize(ctx context.Context, cmd services.UpsertSizeCommand) (domain.Size, []domain.Event, error) {
	if s.createSizeFn != nil {
		return s.createSizeFn(ctx, cmd)
	}
	return domain.Size{}, nil, nil
}

func (s *stubCatalogService) UpdateSize(ctx context.Context, cmd services.UpsertSizeCommand) (domain.Size, []domain.Event, error) {
	if s.updateSizeFn != nil {
		return s.updateSizeFn(ctx, cmd)
	}
	return domain.Size{}, nil, nil
}

func (s *stubCatalogService) DeleteSize(ctx context.Context, sizeID, actorRef string) ([]domain.Event, error) {
	if s.deleteSizeFn != nil {
		return s.deleteSizeFn(ctx, sizeID, actorRef)
	}
	return nil, nil
}

func (s *stubCatalogService) GetSize(ctx context.Context, sizeID string) (domain.Size, error) {
	if s.getSizeFn != nil {
		return s.getSizeFn(ctx, sizeID)
	}
	return domain.Size{}, nil
}

func (s *stubCatalogService) ListSizes(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Size], error) {
	if s.listSizesFn != nil {
		return s.listSizesFn(ctx, pager)
	}
	return domain.CursorPage[domain.Size]{}, nil
}

func (s *stubCatalogService) UpsertPrice(ctx context.Context, cmd services.UpsertPriceCommand) (domain.ProductPrice, []domain.Event, error) {
	if s.upsertPriceFn != nil {
		return s.upsertPriceFn(ctx, cmd)
	}
	return domain.ProductPrice{}, nil, nil
}

func (s *stubCatalogService) GetPrice(ctx context.Context, flavorID, sizeID string) (domain.ProductPrice, error) {
	if s.getPriceFn != nil {
		return s.getPriceFn(ctx, flavorID, sizeID)
	}
	return domain.ProductPrice{}, nil
}

func (s *stubCatalogService) ListPrices(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.ProductPrice], error) {
	if s.listPricesFn != nil {
		return s.listPricesFn(ctx, pager)
	}
	return domain.CursorPage[domain.ProductPrice]{}, nil
}

type stubEmployeeService struct {
	createFn     func(ctx context.Context, cmd services.UpsertEmployeeCommand) (domain.Employee, []domain.Event, error)
	updateFn     func(ctx context.Context, cmd services.UpsertEmployeeCommand) (domain.Employee, []domain.Event, error)
	deleteFn     func(ctx context.Context, employeeID, actorRef string) ([]domain.Event, error)
	getFn        func(ctx context.Context, employeeID string) (domain.Employee, error)
	getByLoginFn func(ctx context.Context, login string) (domain.Employee, error)
	listFn       func(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Employee], error)
}

func (s *stubEmployeeService) CreateEmployee(ctx context.Context, cmd services.UpsertEmployeeCommand) (domain.Employee, []domain.Event, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Employee{}, nil, nil
}

func (s *stubEmployeeService) UpdateEmployee(ctx context.Context, cmd services.UpsertEmployeeCommand) (domain.Employee, []domain.Event, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Employee{}, nil, nil
}

func (s *stubEmployeeService) DeleteEmployee(ctx context.Context, employeeID, actorRef string) ([]domain.Event, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, employeeID, actorRef)
	}
	return nil, nil
}

func (s *stubEmployeeService) GetEmployee(ctx context.Context, employeeID string) (domain.Employee, error) {
	if s.getFn != nil {
		return s.getFn(ctx, employeeID)
	}
	return domain.Employee{}, nil
}

func (s *stubEmployeeService) GetEmployeeByLogin(ctx context.Context, login string) (domain.Employee, error) {
	if s.getByLoginFn != nil {
		return s.getByLoginFn(ctx, login)
	}
	return domain.Employee{}, nil
}

func (s *stubEmployeeService) ListEmployees(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Employee], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.Employee]{}, nil
}

type stubAuditLogService struct {
	recordFn func(ctx context.Context, requestID string, events []domain.Event) error
	listFn   func(ctx context.Context, filter services.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
	purgeFn  func(ctx context.Context) (int64, error)
}

func (s *stubAuditLogService) RecordEvents(ctx context.Context, requestID string, events []domain.Event) error {
	if s.recordFn != nil {
		return s.recordFn(ctx, requestID, events)
	}
	return nil
}

func (s *stubAuditLogService) List(ctx context.Context, filter services.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.AuditLogEntry]{}, nil
}

func (s *stubAuditLogService) PurgeExpired(ctx context.Context) (int64, error) {
	if s.purgeFn != nil {
		return s.purgeFn(ctx)
	}
	return 0, nil
}

type stubSystemService struct {
	reportFn func(ctx context.Context) (services.SystemHealthReport, error)
}

func (s *stubSystemService) HealthReport(ctx context.Context) (services.SystemHealthReport, error) {
	if s.reportFn != nil {
		return s.reportFn(ctx)
	}
	return services.SystemHealthReport{}, nil
}

// withActor injects a request-context actor the way the auth middleware would.
func withActor(actor requestctx.Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestctx.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newTestRouter(mount string, register func(chi.Router), mws ...func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	for _, mw := range mws {
		r.Use(mw)
	}
	r.Route(mount, register)
	return r
}

func performRequest(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
