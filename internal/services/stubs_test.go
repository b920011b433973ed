package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	domain "github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/repositories"
)

// Shared stub repositories for service tests. Each stub delegates to optional
// fn fields and records calls; the in-memory variants back the scenario tests
// that need real read-modify-write behavior.

type stubPriceRepository struct {
	upsertFn func(context.Context, domain.ProductPrice) error
	findFn   func(context.Context, string, string) (domain.ProductPrice, error)
	listFn   func(context.Context, domain.Pagination) (domain.CursorPage[domain.ProductPrice], error)
}

func (s *stubPriceRepository) Upsert(ctx context.Context, price domain.ProductPrice) error {
	if s.upsertFn != nil {
		return s.upsertFn(ctx, price)
	}
	return nil
}

func (s *stubPriceRepository) FindByFlavorAndSize(ctx context.Context, flavorID, sizeID string) (domain.ProductPrice, error) {
	if s.findFn != nil {
		return s.findFn(ctx, flavorID, sizeID)
	}
	return domain.ProductPrice{}, repositories.NotFoundError("productPrices.find", "price cell missing")
}

func (s *stubPriceRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.ProductPrice], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.ProductPrice]{}, nil
}

// memoryStockRepository keeps stock rows in a map so ledger tests observe real
// read-modify-write sequences.
type memoryStockRepository struct {
	mu    sync.Mutex
	rows  map[string]domain.Stock
	saves int
}

func newMemoryStockRepository(rows ...domain.Stock) *memoryStockRepository {
	repo := &memoryStockRepository{rows: make(map[string]domain.Stock)}
	for _, row := range rows {
		repo.rows[row.FlavorID+"/"+row.SizeID] = row
	}
	return repo
}

func (m *memoryStockRepository) FindByFlavorAndSize(ctx context.Context, flavorID, sizeID string) (domain.Stock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[flavorID+"/"+sizeID]
	if !ok {
		return domain.Stock{}, repositories.NotFoundError("stocks.find", "stock row missing")
	}
	return row, nil
}

func (m *memoryStockRepository) Save(ctx context.Context, stock domain.Stock) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[stock.FlavorID+"/"+stock.SizeID] = stock
	m.saves++
	return nil
}

func (m *memoryStockRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Stock], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := domain.CursorPage[domain.Stock]{}
	for _, row := range m.rows {
		page.Items = append(page.Items, row)
	}
	return page, nil
}

func (m *memoryStockRepository) row(flavorID, sizeID string) (domain.Stock, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[flavorID+"/"+sizeID]
	return row, ok
}

type stubStockRecordRepository struct {
	mu       sync.Mutex
	insertFn func(context.Context, domain.StockRecord) error
	listFn   func(context.Context, domain.Pagination) (domain.CursorPage[domain.StockRecord], error)
	inserted []domain.StockRecord
}

func (s *stubStockRecordRepository) Insert(ctx context.Context, record domain.StockRecord) error {
	s.mu.Lock()
	s.inserted = append(s.inserted, record)
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, record)
	}
	return nil
}

func (s *stubStockRecordRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.StockRecord], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.StockRecord]{}, nil
}

// memoryOrderRepository keeps order aggregates in a map keyed by ID.
type memoryOrderRepository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

func newMemoryOrderRepository(orders ...domain.Order) *memoryOrderRepository {
	repo := &memoryOrderRepository{orders: make(map[string]domain.Order)}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (m *memoryOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; exists {
		return repositories.ConflictError("orders.insert", "duplicate order id", nil)
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memoryOrderRepository) Update(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.ID]; !exists {
		return repositories.NotFoundError("orders.update", "order missing")
	}
	m.orders[order.ID] = order
	return nil
}

func (m *memoryOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok || order.Deleted {
		return domain.Order{}, repositories.NotFoundError("orders.find", "order missing")
	}
	return order, nil
}

func (m *memoryOrderRepository) FindByIDAndCustomer(ctx context.Context, orderID, customerID string) (domain.Order, error) {
	order, err := m.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.CustomerID != customerID {
		return domain.Order{}, repositories.NotFoundError("orders.find", "order missing for customer")
	}
	return order, nil
}

func (m *memoryOrderRepository) ListByCustomer(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := domain.CursorPage[domain.Order]{}
	for _, order := range m.orders {
		if order.CustomerID == customerID && !order.Deleted {
			page.Items = append(page.Items, order)
		}
	}
	return page, nil
}

func (m *memoryOrderRepository) ListByPickupRange(ctx context.Context, dateRange domain.RangeQuery[time.Time], pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page := domain.CursorPage[domain.Order]{}
	for _, order := range m.orders {
		if order.Deleted {
			continue
		}
		if dateRange.From != nil && order.ExpectedPickupAt.Before(*dateRange.From) {
			continue
		}
		if dateRange.To != nil && !order.ExpectedPickupAt.Before(*dateRange.To) {
			continue
		}
		page.Items = append(page.Items, order)
	}
	return page, nil
}

func (m *memoryOrderRepository) get(orderID string) (domain.Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	return order, ok
}

// memoryChargeRepository keeps charges keyed by order ID.
type memoryChargeRepository struct {
	mu      sync.Mutex
	charges map[string]domain.Charge
}

func newMemoryChargeRepository(charges ...domain.Charge) *memoryChargeRepository {
	repo := &memoryChargeRepository{charges: make(map[string]domain.Charge)}
	for _, charge := range charges {
		repo.charges[charge.OrderID] = charge
	}
	return repo
}

func (m *memoryChargeRepository) Insert(ctx context.Context, charge domain.Charge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.charges[charge.OrderID]; exists {
		return repositories.ConflictError("charges.insert", "duplicate charge", nil)
	}
	m.charges[charge.OrderID] = charge
	return nil
}

func (m *memoryChargeRepository) Update(ctx context.Context, charge domain.Charge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.charges[charge.OrderID]; !exists {
		return repositories.NotFoundError("charges.update", "charge missing")
	}
	m.charges[charge.OrderID] = charge
	return nil
}

func (m *memoryChargeRepository) FindByOrderID(ctx context.Context, orderID string) (domain.Charge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	charge, ok := m.charges[orderID]
	if !ok {
		return domain.Charge{}, repositories.NotFoundError("charges.find", "charge missing")
	}
	return charge, nil
}

func (m *memoryChargeRepository) get(orderID string) (domain.Charge, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	charge, ok := m.charges[orderID]
	return charge, ok
}

type stubCounterRepository struct {
	mu     sync.Mutex
	nextFn func(context.Context, string, int64) (int64, error)
	calls  []string
	value  int64
}

func (s *stubCounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	s.mu.Lock()
	s.calls = append(s.calls, counterID)
	s.value += step
	value := s.value
	s.mu.Unlock()
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return value, nil
}

type stubFlavorRepository struct {
	mu       sync.Mutex
	insertFn func(context.Context, domain.Flavor) error
	updateFn func(context.Context, domain.Flavor) error
	findFn   func(context.Context, string) (domain.Flavor, error)
	listFn   func(context.Context, domain.Pagination) (domain.CursorPage[domain.Flavor], error)
	saved    []domain.Flavor
}

func (s *stubFlavorRepository) Insert(ctx context.Context, flavor domain.Flavor) error {
	s.mu.Lock()
	s.saved = append(s.saved, flavor)
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, flavor)
	}
	return nil
}

func (s *stubFlavorRepository) Update(ctx context.Context, flavor domain.Flavor) error {
	s.mu.Lock()
	s.saved = append(s.saved, flavor)
	s.mu.Unlock()
	if s.updateFn != nil {
		return s.updateFn(ctx, flavor)
	}
	return nil
}

func (s *stubFlavorRepository) FindByID(ctx context.Context, flavorID string) (domain.Flavor, error) {
	if s.findFn != nil {
		return s.findFn(ctx, flavorID)
	}
	return domain.Flavor{ID: flavorID, Name: "Chocolate"}, nil
}

func (s *stubFlavorRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Flavor], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.Flavor]{}, nil
}

type stubSizeRepository struct {
	mu       sync.Mutex
	insertFn func(context.Context, domain.Size) error
	updateFn func(context.Context, domain.Size) error
	findFn   func(context.Context, string) (domain.Size, error)
	listFn   func(context.Context, domain.Pagination) (domain.CursorPage[domain.Size], error)
	saved    []domain.Size
}

func (s *stubSizeRepository) Insert(ctx context.Context, size domain.Size) error {
	s.mu.Lock()
	s.saved = append(s.saved, size)
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, size)
	}
	return nil
}

func (s *stubSizeRepository) Update(ctx context.Context, size domain.Size) error {
	s.mu.Lock()
	s.saved = append(s.saved, size)
	s.mu.Unlock()
	if s.updateFn != nil {
		return s.updateFn(ctx, size)
	}
	return nil
}

func (s *stubSizeRepository) FindByID(ctx context.Context, sizeID string) (domain.Size, error) {
	if s.findFn != nil {
		return s.findFn(ctx, sizeID)
	}
	return domain.Size{ID: sizeID, Name: "Médio"}, nil
}

func (s *stubSizeRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Size], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.Size]{}, nil
}

type stubCustomerRepository struct {
	mu       sync.Mutex
	insertFn func(context.Context, domain.Customer) error
	updateFn func(context.Context, domain.Customer) error
	findFn   func(context.Context, string) (domain.Customer, error)
	listFn   func(context.Context, domain.Pagination) (domain.CursorPage[domain.Customer], error)
	saved    []domain.Customer
}

func (s *stubCustomerRepository) Insert(ctx context.Context, customer domain.Customer) error {
	s.mu.Lock()
	s.saved = append(s.saved, customer)
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, customer)
	}
	return nil
}

func (s *stubCustomerRepository) Update(ctx context.Context, customer domain.Customer) error {
	s.mu.Lock()
	s.saved = append(s.saved, customer)
	s.mu.Unlock()
	if s.updateFn != nil {
		return s.updateFn(ctx, customer)
	}
	return nil
}

func (s *stubCustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	if s.findFn != nil {
		return s.findFn(ctx, customerID)
	}
	return domain.Customer{ID: customerID, Name: "Ana"}, nil
}

func (s *stubCustomerRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Customer], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.Customer]{}, nil
}

type stubEmployeeRepository struct {
	mu          sync.Mutex
	insertFn    func(context.Context, domain.Employee) error
	updateFn    func(context.Context, domain.Employee) error
	findFn      func(context.Context, string) (domain.Employee, error)
	findLoginFn func(context.Context, string) (domain.Employee, error)
	listFn      func(context.Context, domain.Pagination) (domain.CursorPage[domain.Employee], error)
	saved       []domain.Employee
}

func (s *stubEmployeeRepository) Insert(ctx context.Context, employee domain.Employee) error {
	s.mu.Lock()
	s.saved = append(s.saved, employee)
	s.mu.Unlock()
	if s.insertFn != nil {
		return s.insertFn(ctx, employee)
	}
	return nil
}

func (s *stubEmployeeRepository) Update(ctx context.Context, employee domain.Employee) error {
	s.mu.Lock()
	s.saved = append(s.saved, employee)
	s.mu.Unlock()
	if s.updateFn != nil {
		return s.updateFn(ctx, employee)
	}
	return nil
}

func (s *stubEmployeeRepository) FindByID(ctx context.Context, employeeID string) (domain.Employee, error) {
	if s.findFn != nil {
		return s.findFn(ctx, employeeID)
	}
	return domain.Employee{ID: employeeID, Name: "Maria", Login: "maria", Role: domain.RoleAttendant}, nil
}

func (s *stubEmployeeRepository) FindByLogin(ctx context.Context, login string) (domain.Employee, error) {
	if s.findLoginFn != nil {
		return s.findLoginFn(ctx, login)
	}
	return domain.Employee{ID: "emp_stub", Name: "Maria", Login: login, Role: domain.RoleAttendant}, nil
}

func (s *stubEmployeeRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Employee], error) {
	if s.listFn != nil {
		return s.listFn(ctx, pager)
	}
	return domain.CursorPage[domain.Employee]{}, nil
}

type stubAuditLogRepository struct {
	mu       sync.Mutex
	appendFn func(context.Context, domain.AuditLogEntry) error
	listFn   func(context.Context, repositories.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
	deleteFn func(context.Context, time.Time) (int64, error)
	appended []domain.AuditLogEntry
}

func (s *stubAuditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	s.mu.Lock()
	s.appended = append(s.appended, entry)
	s.mu.Unlock()
	if s.appendFn != nil {
		return s.appendFn(ctx, entry)
	}
	return nil
}

func (s *stubAuditLogRepository) List(ctx context.Context, filter repositories.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[domain.AuditLogEntry]{}, nil
}

func (s *stubAuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, cutoff)
	}
	return 0, nil
}

// sequenceIDs returns an ID generator yielding id-1, id-2, ...
func sequenceIDs() func() string {
	var n int
	return func() string {
		n++
		return fmt.Sprintf("%08d", n)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
