package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/repositories"
	"github.com/chocolog/api/internal/validation"
)

const (
	orderIDPrefix     = "ord_"
	orderItemIDPrefix = "itm_"

	orderNumberFormat = "CHO-%04d-%06d"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates a mutation against a terminal order or an
	// illegal bulk transition.
	ErrOrderInvalidState = errors.New("order: invalid state")
	// ErrOrderConflict indicates concurrent writers collided on the aggregate.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderMissingCharge indicates an order without its 1:1 charge. The
	// charge is created with the order, so this is an internal fault.
	ErrOrderMissingCharge = errors.New("order: charge missing")
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Charges     repositories.ChargeRepository
	Customers   repositories.CustomerRepository
	Employees   repositories.EmployeeRepository
	Flavors     repositories.FlavorRepository
	Sizes       repositories.SizeRepository
	Counters    repositories.CounterRepository
	Pricing     PricingService
	Inventory   InventoryService
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	charges    repositories.ChargeRepository
	customers  repositories.CustomerRepository
	employees  repositories.EmployeeRepository
	flavors    repositories.FlavorRepository
	sizes      repositories.SizeRepository
	counters   repositories.CounterRepository
	pricing    PricingService
	inventory  InventoryService
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Charges == nil {
		return nil, errors.New("order service: charge repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order service: pricing service is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("order service: inventory service is required")
	}
	if deps.Sizes == nil {
		return nil, errors.New("order service: size repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:     deps.Orders,
		charges:    deps.Charges,
		customers:  deps.Customers,
		employees:  deps.Employees,
		flavors:    deps.Flavors,
		sizes:      deps.Sizes,
		counters:   deps.Counters,
		pricing:    deps.Pricing,
		inventory:  deps.Inventory,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// CreateOrder places an order: header, initial items, and the 1:1 charge are
// written atomically, with stock reserved for every stock-fulfilled line.
func (s *orderService) CreateOrder(ctx context.Context, cmd CreateOrderCommand) (Order, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "customerId", cmd.CustomerID)
	validation.RequireNonBlank(&violations, "employeeId", cmd.EmployeeID)
	validation.RequireNonNegative(&violations, "discount", cmd.Discount)
	if cmd.ExpectedPickupAt.IsZero() {
		violations.Add("expectedPickupAt", "must be set")
	}
	if len(cmd.Items) == 0 {
		violations.Add("items", "order must contain at least one item")
	}
	for i, item := range cmd.Items {
		field := fmt.Sprintf("items[%d]", i)
		validation.RequireNonBlank(&violations, field+".sizeId", item.SizeID)
		validation.RequireNonBlank(&violations, field+".flavor1Id", item.Flavor1ID)
		validation.RequirePositive(&violations, field+".quantity", int64(item.Quantity))
	}
	if !violations.Empty() {
		return Order{}, nil, fmt.Errorf("%w: %v", ErrOrderInvalidInput, violations.Err())
	}

	now := s.now()
	var (
		order  domain.Order
		charge domain.Charge
		events []Event
	)

	err := s.runInTx(ctx, func(ctx context.Context) error {
		if s.customers != nil {
			if _, err := s.customers.FindByID(ctx, cmd.CustomerID); err != nil {
				return s.mapRepositoryError(err)
			}
		}
		if s.employees != nil {
			if _, err := s.employees.FindByID(ctx, cmd.EmployeeID); err != nil {
				return s.mapRepositoryError(err)
			}
		}

		number, err := s.nextOrderNumber(ctx, now)
		if err != nil {
			return err
		}

		order = domain.Order{
			ID:               orderIDPrefix + s.newID(),
			Number:           number,
			CustomerID:       cmd.CustomerID,
			EmployeeID:       cmd.EmployeeID,
			Notes:            strings.TrimSpace(cmd.Notes),
			CreatedAt:        now,
			UpdatedAt:        now,
			ExpectedPickupAt: cmd.ExpectedPickupAt.UTC(),
		}

		for _, line := range cmd.Items {
			item, err := s.buildItem(ctx, order.ID, line, now)
			if err != nil {
				return err
			}
			if !item.OnDemand {
				if err := s.inventory.AdjustRemaining(ctx, item.Flavor1ID, item.SizeID, -item.Quantity); err != nil {
					return err
				}
			}
			order.Items = append(order.Items, item)
		}

		order.Status = aggregateStatus(order.Status, order.ActiveItems())

		charge = domain.Charge{
			OrderID:   order.ID,
			Discount:  cmd.Discount,
			UpdatedAt: now,
		}
		recalculateCharge(&charge, order)

		if err := s.orders.Insert(ctx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.charges.Insert(ctx, charge); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, nil, err
	}

	order.Charge = &charge
	events = append(events, Event{
		Type:       domain.EventOrderCreated,
		TargetRef:  "order:" + order.ID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data: map[string]any{
			"number": order.Number,
			"status": string(order.Status),
			"items":  len(order.Items),
		},
	})
	return order, events, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	order, err := s.orders.FindByID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return s.attachCharge(ctx, order)
}

func (s *orderService) GetCustomerOrder(ctx context.Context, customerID, orderID string) (Order, error) {
	order, err := s.orders.FindByIDAndCustomer(ctx, strings.TrimSpace(orderID), strings.TrimSpace(customerID))
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return s.attachCharge(ctx, order)
}

func (s *orderService) ListCustomerOrders(ctx context.Context, customerID string, pager Pagination) (domain.CursorPage[Order], error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: customer id is required", ErrOrderInvalidInput)
	}
	page, err := s.orders.ListByCustomer(ctx, customerID, pager)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// ListOrdersByPickupDate filters by expected pickup, accepting a whole month
// (YYYY-MM) or a single day (YYYY-MM-DD).
func (s *orderService) ListOrdersByPickupDate(ctx context.Context, dateFilter string, pager Pagination) (domain.CursorPage[Order], error) {
	dateRange, err := parsePickupDateFilter(strings.TrimSpace(dateFilter))
	if err != nil {
		return domain.CursorPage[Order]{}, err
	}
	page, err := s.orders.ListByPickupRange(ctx, dateRange, pager)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// UpdateOrder patches the header and, when a status is supplied, drives the
// bulk item transition. Terminal orders accept only notes and discount edits.
func (s *orderService) UpdateOrder(ctx context.Context, cmd UpdateOrderCommand) (Order, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "orderId", cmd.OrderID)
	if cmd.Discount != nil {
		validation.RequireNonNegative(&violations, "discount", *cmd.Discount)
	}
	if cmd.Status != nil && *cmd.Status != domain.OrderStatusCompleted && *cmd.Status != domain.OrderStatusCancelled {
		violations.Addf("status", "order status can only be set to COMPLETED or CANCELLED, got %q", string(*cmd.Status))
	}
	if !violations.Empty() {
		return Order{}, nil, fmt.Errorf("%w: %v", ErrOrderInvalidInput, violations.Err())
	}

	now := s.now()
	var (
		order  domain.Order
		charge domain.Charge
		events []Event
	)

	err := s.runInTx(ctx, func(ctx context.Context) error {
		events = events[:0]

		var err error
		order, err = s.orders.FindByID(ctx, strings.TrimSpace(cmd.OrderID))
		if err != nil {
			return s.mapRepositoryError(err)
		}

		if order.Status.Terminal() && (cmd.Status != nil || cmd.ExpectedPickupAt != nil) {
			return fmt.Errorf("%w: order %s is %s", ErrOrderInvalidState, order.ID, order.Status)
		}

		if cmd.Notes != nil {
			order.Notes = strings.TrimSpace(*cmd.Notes)
		}
		if cmd.ExpectedPickupAt != nil {
			order.ExpectedPickupAt = cmd.ExpectedPickupAt.UTC()
		}

		if cmd.Status != nil {
			bulkEvents, err := s.applyBulkTransition(ctx, &order, *cmd.Status, cmd.ActorRef, now)
			if err != nil {
				return err
			}
			events = append(events, bulkEvents...)
		}

		charge, err = s.charges.FindByOrderID(ctx, order.ID)
		if err != nil {
			if isRepoNotFound(err) {
				s.logger(ctx, "order.charge.missing", map[string]any{"order": order.ID})
				return fmt.Errorf("%w: order %s", ErrOrderMissingCharge, order.ID)
			}
			return s.mapRepositoryError(err)
		}
		if cmd.Discount != nil {
			charge.Discount = *cmd.Discount
		}
		recalculateCharge(&charge, order)
		charge.UpdatedAt = now

		order.UpdatedAt = now
		if err := s.orders.Update(ctx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.charges.Update(ctx, charge); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, nil, err
	}

	order.Charge = &charge
	events = append(events, Event{
		Type:       domain.EventOrderUpdated,
		TargetRef:  "order:" + order.ID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data: map[string]any{
			"status": string(order.Status),
		},
	})
	return order, events, nil
}

// applyBulkTransition drives every item when the order itself is set to a
// terminal status.
func (s *orderService) applyBulkTransition(ctx context.Context, order *domain.Order, target domain.OrderStatus, actorRef string, now time.Time) ([]Event, error) {
	active := order.ActiveItems()

	switch target {
	case domain.OrderStatusCompleted:
		for _, item := range active {
			if item.Status != domain.OrderStatusReadyForPickup && item.Status != domain.OrderStatusCompleted {
				return nil, fmt.Errorf("%w: item %s is %s, order cannot complete", ErrOrderInvalidState, item.ID, item.Status)
			}
		}
		for i := range order.Items {
			item := &order.Items[i]
			if item.Deleted || item.Status == domain.OrderStatusCompleted {
				continue
			}
			if !item.OnDemand {
				if err := s.inventory.AdjustTotal(ctx, item.Flavor1ID, item.SizeID, -item.Quantity); err != nil {
					return nil, err
				}
			}
			item.Status = domain.OrderStatusCompleted
			item.UpdatedAt = now
		}
		order.Status = domain.OrderStatusCompleted
		pickedUp := now
		order.PickedUpAt = &pickedUp
		return []Event{{
			Type:       domain.EventOrderCompleted,
			TargetRef:  "order:" + order.ID,
			Actor:      actorRef,
			OccurredAt: now,
			Data:       map[string]any{"number": order.Number},
		}}, nil

	case domain.OrderStatusCancelled:
		for _, item := range active {
			if item.Status == domain.OrderStatusCompleted {
				return nil, fmt.Errorf("%w: item %s already completed, order cannot cancel", ErrOrderInvalidState, item.ID)
			}
		}
		for i := range order.Items {
			item := &order.Items[i]
			if item.Deleted || item.Status == domain.OrderStatusCancelled {
				continue
			}
			if !item.OnDemand {
				if err := s.inventory.AdjustRemaining(ctx, item.Flavor1ID, item.SizeID, item.Quantity); err != nil {
					return nil, err
				}
			}
			item.Status = domain.OrderStatusCancelled
			item.UpdatedAt = now
		}
		order.Status = domain.OrderStatusCancelled
		return []Event{{
			Type:       domain.EventOrderCancelled,
			TargetRef:  "order:" + order.ID,
			Actor:      actorRef,
			OccurredAt: now,
			Data:       map[string]any{"number": order.Number},
		}}, nil
	}

	return nil, fmt.Errorf("%w: unsupported bulk target %q", ErrOrderInvalidInput, string(target))
}

// buildItem resolves catalog rows, prices the line, and classifies demand.
func (s *orderService) buildItem(ctx context.Context, orderID string, line NewOrderItem, now time.Time) (domain.OrderItem, error) {
	size, err := s.sizes.FindByID(ctx, line.SizeID)
	if err != nil {
		return domain.OrderItem{}, s.mapRepositoryError(err)
	}
	if s.flavors != nil {
		if _, err := s.flavors.FindByID(ctx, line.Flavor1ID); err != nil {
			return domain.OrderItem{}, s.mapRepositoryError(err)
		}
		if line.Flavor2ID != nil {
			if _, err := s.flavors.FindByID(ctx, *line.Flavor2ID); err != nil {
				return domain.OrderItem{}, s.mapRepositoryError(err)
			}
		}
	}

	unitPrice, err := s.pricing.UnitPrice(ctx, line.SizeID, line.Flavor1ID, line.Flavor2ID)
	if err != nil {
		return domain.OrderItem{}, err
	}

	notes := strings.TrimSpace(line.Notes)
	hasSecond := line.Flavor2ID != nil && strings.TrimSpace(*line.Flavor2ID) != ""
	onDemand := domain.IsOnDemand(size, hasSecond, notes)

	item := domain.OrderItem{
		ID:         orderItemIDPrefix + s.newID(),
		OrderID:    orderID,
		SizeID:     line.SizeID,
		Flavor1ID:  line.Flavor1ID,
		Quantity:   line.Quantity,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice * int64(line.Quantity),
		OnDemand:   onDemand,
		Status:     domain.NaturalStatus(onDemand),
		Notes:      notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if hasSecond {
		second := strings.TrimSpace(*line.Flavor2ID)
		item.Flavor2ID = &second
	}
	return item, nil
}

func (s *orderService) attachCharge(ctx context.Context, order domain.Order) (Order, error) {
	charge, err := s.charges.FindByOrderID(ctx, order.ID)
	if err != nil {
		if isRepoNotFound(err) {
			s.logger(ctx, "order.charge.missing", map[string]any{"order": order.ID})
			return Order{}, fmt.Errorf("%w: order %s", ErrOrderMissingCharge, order.ID)
		}
		return Order{}, s.mapRepositoryError(err)
	}
	order.Charge = &charge
	return order, nil
}

func (s *orderService) nextOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, fmt.Sprintf("orders:%04d", now.Year()), 1)
	if err != nil {
		return "", s.mapRepositoryError(err)
	}
	return fmt.Sprintf(orderNumberFormat, now.Year(), seq), nil
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		}
	}
	return err
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

// parsePickupDateFilter accepts YYYY-MM (whole month) or YYYY-MM-DD (single
// day) and returns the matching half-open pickup range.
func parsePickupDateFilter(filter string) (domain.RangeQuery[time.Time], error) {
	if day, err := time.Parse("2006-01-02", filter); err == nil {
		from := day.UTC()
		to := from.AddDate(0, 0, 1)
		return domain.RangeQuery[time.Time]{From: &from, To: &to}, nil
	}
	if month, err := time.Parse("2006-01", filter); err == nil {
		from := month.UTC()
		to := from.AddDate(0, 1, 0)
		return domain.RangeQuery[time.Time]{From: &from, To: &to}, nil
	}
	return domain.RangeQuery[time.Time]{}, fmt.Errorf("%w: pickup date filter must be YYYY-MM or YYYY-MM-DD, got %q", ErrOrderInvalidInput, filter)
}

// aggregateStatus derives the order status from its items. Terminal orders are
// left untouched; otherwise the order is COMPLETED when every item completed,
// READY_FOR_PICKUP when no item is still pending, and PENDING in any mixture.
func aggregateStatus(current domain.OrderStatus, items []domain.OrderItem) domain.OrderStatus {
	if current.Terminal() {
		return current
	}
	if len(items) == 0 {
		return current
	}
	allCompleted := true
	anyPending := false
	for _, item := range items {
		if item.Status != domain.OrderStatusCompleted {
			allCompleted = false
		}
		if item.Status == domain.OrderStatusPending {
			anyPending = true
		}
	}
	switch {
	case allCompleted:
		return domain.OrderStatusCompleted
	case !anyPending:
		return domain.OrderStatusReadyForPickup
	default:
		return domain.OrderStatusPending
	}
}

// recalculateCharge refreshes the derived amounts from the active items and
// re-reconciles the settlement status against what was already paid.
func recalculateCharge(charge *domain.Charge, order domain.Order) {
	var subtotal int64
	for _, item := range order.ActiveItems() {
		subtotal += item.TotalPrice
	}
	charge.Subtotal = subtotal
	charge.Total = subtotal - charge.Discount
	reconcileChargeStatus(charge)
}

// reconcileChargeStatus derives UNPAID/PARTIAL/PAID from the amounts paid.
// The PAID rule wins ties: a fully discounted charge owes nothing and counts
// as settled even with no payments recorded.
func reconcileChargeStatus(charge *domain.Charge) {
	paid := charge.TotalPaid()
	switch {
	case paid >= charge.Total:
		charge.Status = domain.ChargeStatusPaid
	case paid <= 0:
		charge.Status = domain.ChargeStatusUnpaid
	default:
		charge.Status = domain.ChargeStatusPartial
	}
}
