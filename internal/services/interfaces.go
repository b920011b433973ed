package services

import (
	"context"
	"time"

	domain "github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination     = domain.Pagination
	Customer       = domain.Customer
	Employee       = domain.Employee
	Flavor         = domain.Flavor
	Size           = domain.Size
	ProductPrice   = domain.ProductPrice
	Stock          = domain.Stock
	StockRecord    = domain.StockRecord
	StockMovement  = domain.StockMovement
	Order          = domain.Order
	OrderItem      = domain.OrderItem
	OrderStatus    = domain.OrderStatus
	Charge         = domain.Charge
	Payment        = domain.Payment
	Event          = domain.Event
	AuditLogEntry  = domain.AuditLogEntry
	AuditLogFilter = repositories.AuditLogFilter
)

// PricingService resolves unit prices from the product price grid.
type PricingService interface {
	UnitPrice(ctx context.Context, sizeID, flavor1ID string, flavor2ID *string) (int64, error)
}

// InventoryService owns the shelf-stock ledger and the manual movement journal.
// The delta operations run against the ambient unit of work; callers compose
// them with entity writes so ledger and entities commit together.
type InventoryService interface {
	AdjustRemaining(ctx context.Context, flavorID, sizeID string, delta int) error
	AdjustTotal(ctx context.Context, flavorID, sizeID string, delta int) error
	RecordMovement(ctx context.Context, cmd RecordStockMovementCommand) (StockRecord, []Event, error)
	GetStock(ctx context.Context, flavorID, sizeID string) (Stock, error)
	ListStocks(ctx context.Context, pager Pagination) (domain.CursorPage[Stock], error)
	ListMovements(ctx context.Context, pager Pagination) (domain.CursorPage[StockRecord], error)
}

// OrderService owns order aggregates: creation, reads, header patches, and the
// bulk status transitions that drive every item at once.
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, []Event, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	GetCustomerOrder(ctx context.Context, customerID, orderID string) (Order, error)
	ListCustomerOrders(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[Order], error)
	ListOrdersByPickupDate(ctx context.Context, dateFilter string, pager Pagination) (domain.CursorPage[Order], error)
	UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (Order, []Event, error)
}

// OrderItemService drives the per-line state machine: demand classification,
// reservation reconciliation, status coupling, and the charge/status recompute
// that follows every line mutation.
type OrderItemService interface {
	AddItem(ctx context.Context, cmd AddOrderItemCommand) (Order, []Event, error)
	UpdateItem(ctx context.Context, cmd UpdateOrderItemCommand) (Order, []Event, error)
	RemoveItem(ctx context.Context, cmd RemoveOrderItemCommand) (Order, []Event, error)
}

// PaymentService records money against a charge and keeps the charge status
// reconciled with the amounts paid.
type PaymentService interface {
	RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (Charge, []Event, error)
	UpdatePayment(ctx context.Context, cmd UpdatePaymentCommand) (Charge, []Event, error)
	RemovePayment(ctx context.Context, cmd RemovePaymentCommand) (Charge, []Event, error)
	GetCharge(ctx context.Context, orderID string) (Charge, error)
}

// CatalogService manages the flavor and size axes and the price grid.
type CatalogService interface {
	CreateFlavor(ctx context.Context, cmd UpsertFlavorCommand) (Flavor, []Event, error)
	UpdateFlavor(ctx context.Context, cmd UpsertFlavorCommand) (Flavor, []Event, error)
	DeleteFlavor(ctx context.Context, flavorID, actorRef string) ([]Event, error)
	GetFlavor(ctx context.Context, flavorID string) (Flavor, error)
	ListFlavors(ctx context.Context, pager Pagination) (domain.CursorPage[Flavor], error)

	CreateSize(ctx context.Context, cmd UpsertSizeCommand) (Size, []Event, error)
	UpdateSize(ctx context.Context, cmd UpsertSizeCommand) (Size, []Event, error)
	DeleteSize(ctx context.Context, sizeID, actorRef string) ([]Event, error)
	GetSize(ctx context.Context, sizeID string) (Size, error)
	ListSizes(ctx context.Context, pager Pagination) (domain.CursorPage[Size], error)

	UpsertPrice(ctx context.Context, cmd UpsertPriceCommand) (ProductPrice, []Event, error)
	GetPrice(ctx context.Context, flavorID, sizeID string) (ProductPrice, error)
	ListPrices(ctx context.Context, pager Pagination) (domain.CursorPage[ProductPrice], error)
}

// CustomerService manages buyers.
type CustomerService interface {
	CreateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, []Event, error)
	UpdateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, []Event, error)
	DeleteCustomer(ctx context.Context, customerID, actorRef string) ([]Event, error)
	GetCustomer(ctx context.Context, customerID string) (Customer, error)
	ListCustomers(ctx context.Context, pager Pagination) (domain.CursorPage[Customer], error)
}

// EmployeeService manages staff records.
type EmployeeService interface {
	CreateEmployee(ctx context.Context, cmd UpsertEmployeeCommand) (Employee, []Event, error)
	UpdateEmployee(ctx context.Context, cmd UpsertEmployeeCommand) (Employee, []Event, error)
	DeleteEmployee(ctx context.Context, employeeID, actorRef string) ([]Event, error)
	GetEmployee(ctx context.Context, employeeID string) (Employee, error)
	GetEmployeeByLogin(ctx context.Context, login string) (Employee, error)
	ListEmployees(ctx context.Context, pager Pagination) (domain.CursorPage[Employee], error)
}

// AuditLogService persists the immutable audit trail built from domain events
// and purges entries past the configured retention.
type AuditLogService interface {
	RecordEvents(ctx context.Context, requestID string, events []Event) error
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[AuditLogEntry], error)
	PurgeExpired(ctx context.Context) (int64, error)
}

// EventPublisher pushes domain events to the message bus. Publish failures are
// logged by callers, never surfaced to the request that produced the events.
type EventPublisher interface {
	PublishEvents(ctx context.Context, events []Event) error
}

// Command and DTO definitions ------------------------------------------------

// RecordStockMovementCommand describes a manual inventory journal entry.
type RecordStockMovementCommand struct {
	FlavorID     string
	SizeID       string
	Quantity     int
	MovementType string
	ActorRef     string
}

// NewOrderItem describes one line of an order being created.
type NewOrderItem struct {
	SizeID    string
	Flavor1ID string
	Flavor2ID *string
	Quantity  int
	Notes     string
}

// CreateOrderCommand creates an order with its initial items and charge.
type CreateOrderCommand struct {
	CustomerID       string
	EmployeeID       string
	ExpectedPickupAt time.Time
	Notes            string
	Discount         int64
	Items            []NewOrderItem
	ActorRef         string
}

// UpdateOrderCommand patches the order header. Nil pointer fields are left
// untouched. Status accepts only COMPLETED or CANCELLED and drives the bulk
// item transition.
type UpdateOrderCommand struct {
	OrderID          string
	Notes            *string
	ExpectedPickupAt *time.Time
	Discount         *int64
	Status           *OrderStatus
	ActorRef         string
}

// AddOrderItemCommand appends a line to an existing order.
type AddOrderItemCommand struct {
	OrderID  string
	Item     NewOrderItem
	ActorRef string
}

// UpdateOrderItemCommand patches a line. Nil pointer fields are left
// untouched; ClearFlavor2 removes the second flavor. Status requests a manual
// transition and is only honored when the patch does not flip the demand
// classification.
type UpdateOrderItemCommand struct {
	OrderID      string
	ItemID       string
	SizeID       *string
	Flavor1ID    *string
	Flavor2ID    *string
	ClearFlavor2 bool
	Quantity     *int
	Notes        *string
	Status       *OrderStatus
	ActorRef     string
}

// RemoveOrderItemCommand soft-deletes a line.
type RemoveOrderItemCommand struct {
	OrderID  string
	ItemID   string
	ActorRef string
}

// RecordPaymentCommand applies money against an order's charge.
type RecordPaymentCommand struct {
	OrderID       string
	EmployeeID    string
	PaidAmount    int64
	PaymentMethod string
	PaidAt        *time.Time
	ActorRef      string
}

// UpdatePaymentCommand patches a recorded payment.
type UpdatePaymentCommand struct {
	OrderID       string
	PaymentID     string
	PaidAmount    *int64
	PaymentMethod *string
	PaidAt        *time.Time
	ActorRef      string
}

// RemovePaymentCommand soft-deletes a recorded payment.
type RemovePaymentCommand struct {
	OrderID   string
	PaymentID string
	ActorRef  string
}

// UpsertFlavorCommand creates or renames a flavor. FlavorID is blank on create.
type UpsertFlavorCommand struct {
	FlavorID string
	Name     string
	ActorRef string
}

// UpsertSizeCommand creates or updates a size. LargeFormat nil lets the
// service derive the flag from the size name.
type UpsertSizeCommand struct {
	SizeID      string
	Name        string
	LargeFormat *bool
	ActorRef    string
}

// UpsertPriceCommand sets the price cell for a (flavor, size) pair.
type UpsertPriceCommand struct {
	FlavorID  string
	SizeID    string
	SalePrice int64
	CostPrice int64
	ActorRef  string
}

// UpsertCustomerCommand creates or updates a buyer. CustomerID is blank on create.
type UpsertCustomerCommand struct {
	CustomerID string
	Name       string
	Phone      string
	IsReseller *bool
	Notes      *string
	ActorRef   string
}

// UpsertEmployeeCommand creates or updates a staff member. EmployeeID is blank on create.
type UpsertEmployeeCommand struct {
	EmployeeID string
	Name       string
	Login      string
	Role       string
	ActorRef   string
}
