package di

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chocolog/api/internal/platform/config"
	"github.com/chocolog/api/internal/platform/requestctx"
	"github.com/chocolog/api/internal/repositories"
	"github.com/chocolog/api/internal/services"
)

// Services bundles the service-layer contracts the handlers rely upon.
type Services struct {
	Pricing    services.PricingService
	Inventory  services.InventoryService
	Orders     services.OrderService
	OrderItems services.OrderItemService
	Payments   services.PaymentService
	Catalog    services.CatalogService
	Customers  services.CustomerService
	Employees  services.EmployeeService
	Audit      services.AuditLogService
	System     services.SystemService
	Events     *services.EventConsumer
}

// ContainerDeps carries the externally constructed collaborators the container
// wires together.
type ContainerDeps struct {
	Config    config.Config
	Registry  repositories.Registry
	Logger    *zap.Logger
	Publisher services.EventPublisher
	Health    repositories.HealthRepository
	Build     services.BuildInfo
}

// Container holds the assembled runtime dependencies.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the service graph on top of the repository registry.
func NewContainer(deps ContainerDeps) (*Container, error) {
	reg := deps.Registry
	if reg == nil {
		return nil, errors.New("di: repositories registry is required")
	}

	logFn := serviceLogger(deps.Logger)

	pricing, err := services.NewPricingService(services.PricingServiceDeps{
		Prices: reg.Prices(),
	})
	if err != nil {
		return nil, err
	}

	inventory, err := services.NewInventoryService(services.InventoryServiceDeps{
		Stocks:     reg.Stocks(),
		Records:    reg.StockRecords(),
		UnitOfWork: reg,
		Logger:     logFn,
	})
	if err != nil {
		return nil, err
	}

	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Charges:    reg.Charges(),
		Customers:  reg.Customers(),
		Employees:  reg.Employees(),
		Flavors:    reg.Flavors(),
		Sizes:      reg.Sizes(),
		Counters:   reg.Counters(),
		Pricing:    pricing,
		Inventory:  inventory,
		UnitOfWork: reg,
		Logger:     logFn,
	})
	if err != nil {
		return nil, err
	}

	orderItems, err := services.NewOrderItemService(services.OrderItemServiceDeps{
		Orders:     reg.Orders(),
		Charges:    reg.Charges(),
		Sizes:      reg.Sizes(),
		Flavors:    reg.Flavors(),
		Pricing:    pricing,
		Inventory:  inventory,
		UnitOfWork: reg,
		Logger:     logFn,
	})
	if err != nil {
		return nil, err
	}

	payments, err := services.NewPaymentService(services.PaymentServiceDeps{
		Charges:    reg.Charges(),
		Employees:  reg.Employees(),
		UnitOfWork: reg,
		Logger:     logFn,
	})
	if err != nil {
		return nil, err
	}

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Flavors:    reg.Flavors(),
		Sizes:      reg.Sizes(),
		Prices:     reg.Prices(),
		UnitOfWork: reg,
		Logger:     logFn,
	})
	if err != nil {
		return nil, err
	}

	customers, err := services.NewCustomerService(services.CustomerServiceDeps{
		Customers:  reg.Customers(),
		UnitOfWork: reg,
	})
	if err != nil {
		return nil, err
	}

	employees, err := services.NewEmployeeService(services.EmployeeServiceDeps{
		Employees:  reg.Employees(),
		UnitOfWork: reg,
	})
	if err != nil {
		return nil, err
	}

	audit, err := services.NewAuditLogService(services.AuditLogServiceDeps{
		AuditLogs:     reg.AuditLogs(),
		RetentionDays: deps.Config.Audit.RetentionDays,
		Logger:        logFn,
	})
	if err != nil {
		return nil, err
	}

	events, err := services.NewEventConsumer(services.EventConsumerDeps{
		Audit:     audit,
		Publisher: deps.Publisher,
		Logger:    logFn,
	})
	if err != nil {
		return nil, err
	}

	svc := Services{
		Pricing:    pricing,
		Inventory:  inventory,
		Orders:     orders,
		OrderItems: orderItems,
		Payments:   payments,
		Catalog:    catalog,
		Customers:  customers,
		Employees:  employees,
		Audit:      audit,
		Events:     events,
	}

	if deps.Health != nil {
		system, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: deps.Health,
			Build:            deps.Build,
		})
		if err != nil {
			return nil, err
		}
		svc.System = system
	}

	return &Container{
		Config:       deps.Config,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients and other held resources.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

// serviceLogger adapts zap to the map-based logging callback the services
// accept, preferring the request-scoped logger when present.
func serviceLogger(fallback *zap.Logger) func(context.Context, string, map[string]any) {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := requestctx.Logger(ctx)
		if logger == requestctx.NoopLogger() {
			logger = fallback
		}
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		logger.Info(event, zapFields...)
	}
}
