package firestore

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/chocolog/api/internal/platform/firestore"
	"github.com/chocolog/api/internal/repositories"
)

// Registry wires every Firestore-backed repository over one shared provider
// and implements the unit of work that lets a service closure span them.
type Registry struct {
	provider *pfirestore.Provider

	customers    *CustomerRepository
	employees    *EmployeeRepository
	flavors      *FlavorRepository
	sizes        *SizeRepository
	prices       *ProductPriceRepository
	stocks       *StockRepository
	stockRecords *StockRecordRepository
	orders       *OrderRepository
	charges      *ChargeRepository
	auditLogs    *AuditLogRepository
	counters     *CounterRepository
}

// NewRegistry constructs the repository registry over the given provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	registry := &Registry{provider: provider}

	var err error
	if registry.customers, err = NewCustomerRepository(provider); err != nil {
		return nil, err
	}
	if registry.employees, err = NewEmployeeRepository(provider); err != nil {
		return nil, err
	}
	if registry.flavors, err = NewFlavorRepository(provider); err != nil {
		return nil, err
	}
	if registry.sizes, err = NewSizeRepository(provider); err != nil {
		return nil, err
	}
	if registry.prices, err = NewProductPriceRepository(provider); err != nil {
		return nil, err
	}
	if registry.stocks, err = NewStockRepository(provider); err != nil {
		return nil, err
	}
	if registry.stockRecords, err = NewStockRecordRepository(provider); err != nil {
		return nil, err
	}
	if registry.orders, err = NewOrderRepository(provider); err != nil {
		return nil, err
	}
	if registry.charges, err = NewChargeRepository(provider); err != nil {
		return nil, err
	}
	if registry.auditLogs, err = NewAuditLogRepository(provider); err != nil {
		return nil, err
	}
	if registry.counters, err = NewCounterRepository(provider); err != nil {
		return nil, err
	}

	return registry, nil
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// RunInTx executes fn within a single Firestore transaction. Nested calls
// join the ambient transaction instead of opening a new one. Writes issued
// through the registry's repositories are staged and committed together once
// fn returns without error.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r == nil || r.provider == nil {
		return errors.New("registry not initialised")
	}
	if _, ok := txStateFrom(ctx); ok {
		return fn(ctx)
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		st := &txState{tx: tx, staged: make(map[string]stagedWrite)}
		if err := fn(withTxState(ctx, st)); err != nil {
			return err
		}
		return st.flush()
	})
}

func (r *Registry) Customers() repositories.CustomerRepository       { return r.customers }
func (r *Registry) Employees() repositories.EmployeeRepository       { return r.employees }
func (r *Registry) Flavors() repositories.FlavorRepository           { return r.flavors }
func (r *Registry) Sizes() repositories.SizeRepository               { return r.sizes }
func (r *Registry) Prices() repositories.ProductPriceRepository      { return r.prices }
func (r *Registry) Stocks() repositories.StockRepository             { return r.stocks }
func (r *Registry) StockRecords() repositories.StockRecordRepository { return r.stockRecords }
func (r *Registry) Orders() repositories.OrderRepository             { return r.orders }
func (r *Registry) Charges() repositories.ChargeRepository           { return r.charges }
func (r *Registry) AuditLogs() repositories.AuditLogRepository       { return r.auditLogs }
func (r *Registry) Counters() repositories.CounterRepository         { return r.counters }

var _ repositories.Registry = (*Registry)(nil)
