package repositories

import (
	"context"
	"time"

	domain "github.com/chocolog/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Customers() CustomerRepository
	Employees() EmployeeRepository
	Flavors() FlavorRepository
	Sizes() SizeRepository
	Prices() ProductPriceRepository
	Stocks() StockRepository
	StockRecords() StockRecordRepository
	Orders() OrderRepository
	Charges() ChargeRepository
	AuditLogs() AuditLogRepository
	Counters() CounterRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork groups repository operations in a transactional boundary. Every
// externally triggered engine operation runs inside exactly one unit of work;
// ledger adjustments and entity writes commit or roll back together.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CustomerRepository stores buyers. Reads must filter Deleted explicitly.
type CustomerRepository interface {
	Insert(ctx context.Context, customer domain.Customer) error
	Update(ctx context.Context, customer domain.Customer) error
	FindByID(ctx context.Context, customerID string) (domain.Customer, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Customer], error)
}

// EmployeeRepository stores staff members.
type EmployeeRepository interface {
	Insert(ctx context.Context, employee domain.Employee) error
	Update(ctx context.Context, employee domain.Employee) error
	FindByID(ctx context.Context, employeeID string) (domain.Employee, error)
	FindByLogin(ctx context.Context, login string) (domain.Employee, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Employee], error)
}

// FlavorRepository stores the flavor axis of the catalog.
type FlavorRepository interface {
	Insert(ctx context.Context, flavor domain.Flavor) error
	Update(ctx context.Context, flavor domain.Flavor) error
	FindByID(ctx context.Context, flavorID string) (domain.Flavor, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Flavor], error)
}

// SizeRepository stores the size axis of the catalog.
type SizeRepository interface {
	Insert(ctx context.Context, size domain.Size) error
	Update(ctx context.Context, size domain.Size) error
	FindByID(ctx context.Context, sizeID string) (domain.Size, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Size], error)
}

// ProductPriceRepository stores sale/cost prices per (flavor, size) cell.
type ProductPriceRepository interface {
	Upsert(ctx context.Context, price domain.ProductPrice) error
	FindByFlavorAndSize(ctx context.Context, flavorID, sizeID string) (domain.ProductPrice, error)
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.ProductPrice], error)
}

// StockRepository stores shelf quantities per (flavor, size) cell. Save is a
// full-row write; callers load and mutate inside the ambient unit of work so
// the read-modify-write is serialised at the persistence boundary.
type StockRepository interface {
	FindByFlavorAndSize(ctx context.Context, flavorID, sizeID string) (domain.Stock, error)
	Save(ctx context.Context, stock domain.Stock) error
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Stock], error)
}

// StockRecordRepository journals manual inventory movements.
type StockRecordRepository interface {
	Insert(ctx context.Context, record domain.StockRecord) error
	List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.StockRecord], error)
}

// OrderRepository persists order aggregates (header plus owned items).
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByIDAndCustomer(ctx context.Context, orderID, customerID string) (domain.Order, error)
	ListByCustomer(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error)
	ListByPickupRange(ctx context.Context, dateRange domain.RangeQuery[time.Time], pager domain.Pagination) (domain.CursorPage[domain.Order], error)
}

// ChargeRepository stores the 1:1 charge for an order, payments embedded.
type ChargeRepository interface {
	Insert(ctx context.Context, charge domain.Charge) error
	Update(ctx context.Context, charge domain.Charge) error
	FindByOrderID(ctx context.Context, orderID string) (domain.Charge, error)
}

// AuditLogRepository persists immutable audit trail entries and supports
// retention-driven purges.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) error
	List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// AuditLogFilter narrows audit log listings.
type AuditLogFilter struct {
	TargetRef  string
	Actor      string
	Action     string
	DateRange  domain.RangeQuery[time.Time]
	Pagination domain.Pagination
}
