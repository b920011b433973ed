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

var (
	// ErrOrderItemInvalidInput signals the caller provided invalid data.
	ErrOrderItemInvalidInput = errors.New("order item: invalid input")
	// ErrOrderItemNotFound indicates the item could not be located on the order.
	ErrOrderItemNotFound = errors.New("order item: not found")
	// ErrOrderItemInvalidState indicates a mutation against a terminal item or
	// order, or an illegal manual status transition.
	ErrOrderItemInvalidState = errors.New("order item: invalid state")
	// ErrOrderItemLastItem indicates a removal would leave the order empty.
	ErrOrderItemLastItem = errors.New("order item: order must keep at least one item")
)

// OrderItemServiceDeps bundles collaborators required to construct the order item service.
type OrderItemServiceDeps struct {
	Orders      repositories.OrderRepository
	Charges     repositories.ChargeRepository
	Sizes       repositories.SizeRepository
	Flavors     repositories.FlavorRepository
	Pricing     PricingService
	Inventory   InventoryService
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderItemService struct {
	orders     repositories.OrderRepository
	charges    repositories.ChargeRepository
	sizes      repositories.SizeRepository
	flavors    repositories.FlavorRepository
	pricing    PricingService
	inventory  InventoryService
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewOrderItemService wires dependencies into a concrete OrderItemService implementation.
func NewOrderItemService(deps OrderItemServiceDeps) (OrderItemService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order item service: order repository is required")
	}
	if deps.Charges == nil {
		return nil, errors.New("order item service: charge repository is required")
	}
	if deps.Sizes == nil {
		return nil, errors.New("order item service: size repository is required")
	}
	if deps.Pricing == nil {
		return nil, errors.New("order item service: pricing service is required")
	}
	if deps.Inventory == nil {
		return nil, errors.New("order item service: inventory service is required")
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

	return &orderItemService{
		orders:     deps.Orders,
		charges:    deps.Charges,
		sizes:      deps.Sizes,
		flavors:    deps.Flavors,
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

// AddItem appends a line to an open order, reserving stock when the line is
// stock-fulfilled, then recomputes the charge and the order status.
func (s *orderItemService) AddItem(ctx context.Context, cmd AddOrderItemCommand) (Order, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "orderId", cmd.OrderID)
	validation.RequireNonBlank(&violations, "sizeId", cmd.Item.SizeID)
	validation.RequireNonBlank(&violations, "flavor1Id", cmd.Item.Flavor1ID)
	validation.RequirePositive(&violations, "quantity", int64(cmd.Item.Quantity))
	if !violations.Empty() {
		return Order{}, nil, fmt.Errorf("%w: %v", ErrOrderItemInvalidInput, violations.Err())
	}

	now := s.now()
	var (
		order  domain.Order
		itemID string
	)

	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, strings.TrimSpace(cmd.OrderID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if order.Status.Terminal() {
			return fmt.Errorf("%w: order %s is %s", ErrOrderItemInvalidState, order.ID, order.Status)
		}

		item, err := s.buildItem(ctx, order.ID, cmd.Item, now)
		if err != nil {
			return err
		}
		if !item.OnDemand {
			if err := s.inventory.AdjustRemaining(ctx, item.Flavor1ID, item.SizeID, -item.Quantity); err != nil {
				return err
			}
		}
		order.Items = append(order.Items, item)
		itemID = item.ID

		return s.finishMutation(ctx, &order, now)
	})
	if err != nil {
		return Order{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventOrderItemAdded,
		TargetRef:  "order:" + order.ID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data: map[string]any{
			"itemId": itemID,
			"status": string(order.Status),
		},
	}}
	return order, events, nil
}

// UpdateItem patches a line. The patch reclassifies demand, reconciles the
// stock reservation against the previous shape of the line, couples status to
// demand flips, honors explicit manual transitions, and finally recomputes
// the derived price, charge, and order status.
func (s *orderItemService) UpdateItem(ctx context.Context, cmd UpdateOrderItemCommand) (Order, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "orderId", cmd.OrderID)
	validation.RequireNonBlank(&violations, "itemId", cmd.ItemID)
	if cmd.Quantity != nil {
		validation.RequirePositive(&violations, "quantity", int64(*cmd.Quantity))
	}
	if cmd.SizeID != nil {
		validation.RequireNonBlank(&violations, "sizeId", *cmd.SizeID)
	}
	if cmd.Flavor1ID != nil {
		validation.RequireNonBlank(&violations, "flavor1Id", *cmd.Flavor1ID)
	}
	if cmd.ClearFlavor2 && cmd.Flavor2ID != nil {
		violations.Add("flavor2Id", "cannot set and clear the second flavor at once")
	}
	if !violations.Empty() {
		return Order{}, nil, fmt.Errorf("%w: %v", ErrOrderItemInvalidInput, violations.Err())
	}

	now := s.now()
	var order domain.Order

	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, strings.TrimSpace(cmd.OrderID))
		if err != nil {
			return s.mapRepositoryError(err)
		}

		item, ok := order.ItemByID(strings.TrimSpace(cmd.ItemID))
		if !ok || item.Deleted {
			return fmt.Errorf("%w: item %s on order %s", ErrOrderItemNotFound, cmd.ItemID, cmd.OrderID)
		}

		// Step 1: no edits once the order or the line is terminal.
		if order.Status.Terminal() {
			return fmt.Errorf("%w: order %s is %s", ErrOrderItemInvalidState, order.ID, order.Status)
		}
		if item.Status.Terminal() {
			return fmt.Errorf("%w: item %s is %s", ErrOrderItemInvalidState, item.ID, item.Status)
		}

		// Step 2: snapshot the pre-patch shape.
		wasOnDemand := item.OnDemand
		originalQuantity := item.Quantity
		originalFlavor1 := item.Flavor1ID
		originalSize := item.SizeID

		// Step 3: apply field changes and re-price when identity changed.
		identityChanged := false
		if cmd.SizeID != nil {
			if next := strings.TrimSpace(*cmd.SizeID); next != item.SizeID {
				item.SizeID = next
				identityChanged = true
			}
		}
		if cmd.Flavor1ID != nil {
			if next := strings.TrimSpace(*cmd.Flavor1ID); next != item.Flavor1ID {
				if err := s.requireFlavor(ctx, next); err != nil {
					return err
				}
				item.Flavor1ID = next
				identityChanged = true
			}
		}
		if cmd.ClearFlavor2 && item.Flavor2ID != nil {
			item.Flavor2ID = nil
			identityChanged = true
		}
		if cmd.Flavor2ID != nil {
			second := strings.TrimSpace(*cmd.Flavor2ID)
			if second == "" {
				return fmt.Errorf("%w: second flavor id cannot be blank", ErrOrderItemInvalidInput)
			}
			if item.Flavor2ID == nil || *item.Flavor2ID != second {
				if err := s.requireFlavor(ctx, second); err != nil {
					return err
				}
				item.Flavor2ID = &second
				identityChanged = true
			}
		}
		if cmd.Quantity != nil {
			item.Quantity = *cmd.Quantity
		}
		if cmd.Notes != nil {
			item.Notes = strings.TrimSpace(*cmd.Notes)
		}

		size, err := s.sizes.FindByID(ctx, item.SizeID)
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if identityChanged {
			unitPrice, err := s.pricing.UnitPrice(ctx, item.SizeID, item.Flavor1ID, item.Flavor2ID)
			if err != nil {
				return err
			}
			item.UnitPrice = unitPrice
		}

		// Step 4: reclassify demand with the patched shape.
		isNowOnDemand := domain.IsOnDemand(size, item.Flavor2ID != nil, item.Notes)
		item.OnDemand = isNowOnDemand

		// Step 5: reconcile the reservation against the snapshot.
		switch {
		case !wasOnDemand && isNowOnDemand:
			if err := s.inventory.AdjustRemaining(ctx, originalFlavor1, originalSize, originalQuantity); err != nil {
				return err
			}
		case wasOnDemand && !isNowOnDemand:
			if err := s.inventory.AdjustRemaining(ctx, item.Flavor1ID, item.SizeID, -item.Quantity); err != nil {
				return err
			}
		case !wasOnDemand && !isNowOnDemand:
			if originalFlavor1 != item.Flavor1ID || originalSize != item.SizeID {
				if err := s.inventory.AdjustRemaining(ctx, originalFlavor1, originalSize, originalQuantity); err != nil {
					return err
				}
				if err := s.inventory.AdjustRemaining(ctx, item.Flavor1ID, item.SizeID, -item.Quantity); err != nil {
					return err
				}
			} else if delta := originalQuantity - item.Quantity; delta != 0 {
				if err := s.inventory.AdjustRemaining(ctx, item.Flavor1ID, item.SizeID, delta); err != nil {
					return err
				}
			}
		}

		// Steps 6 and 7: a demand flip pulls the line to its new natural
		// status when it sat at the old one; otherwise an explicit status
		// request is a manual transition.
		if wasOnDemand != isNowOnDemand {
			if item.Status == domain.NaturalStatus(wasOnDemand) {
				item.Status = domain.NaturalStatus(isNowOnDemand)
			}
		} else if cmd.Status != nil {
			if err := s.applyManualTransition(ctx, item, *cmd.Status); err != nil {
				return err
			}
		}

		// Step 8: derived price.
		item.TotalPrice = item.UnitPrice * int64(item.Quantity)
		item.UpdatedAt = now

		return s.finishMutation(ctx, &order, now)
	})
	if err != nil {
		return Order{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventOrderItemUpdated,
		TargetRef:  "order:" + order.ID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data: map[string]any{
			"itemId": strings.TrimSpace(cmd.ItemID),
			"status": string(order.Status),
		},
	}}
	return order, events, nil
}

// RemoveItem soft-deletes a line after releasing its reservation. An order
// always keeps at least one active item.
func (s *orderItemService) RemoveItem(ctx context.Context, cmd RemoveOrderItemCommand) (Order, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "orderId", cmd.OrderID)
	validation.RequireNonBlank(&violations, "itemId", cmd.ItemID)
	if !violations.Empty() {
		return Order{}, nil, fmt.Errorf("%w: %v", ErrOrderItemInvalidInput, violations.Err())
	}

	now := s.now()
	var order domain.Order

	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.orders.FindByID(ctx, strings.TrimSpace(cmd.OrderID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if order.Status.Terminal() {
			return fmt.Errorf("%w: order %s is %s", ErrOrderItemInvalidState, order.ID, order.Status)
		}

		item, ok := order.ItemByID(strings.TrimSpace(cmd.ItemID))
		if !ok || item.Deleted {
			return fmt.Errorf("%w: item %s on order %s", ErrOrderItemNotFound, cmd.ItemID, cmd.OrderID)
		}
		if item.Status != domain.OrderStatusPending && item.Status != domain.OrderStatusReadyForPickup {
			return fmt.Errorf("%w: item %s is %s", ErrOrderItemInvalidState, item.ID, item.Status)
		}
		if len(order.ActiveItems()) <= 1 {
			return fmt.Errorf("%w: order %s", ErrOrderItemLastItem, order.ID)
		}

		if !item.OnDemand {
			if err := s.inventory.AdjustRemaining(ctx, item.Flavor1ID, item.SizeID, item.Quantity); err != nil {
				return err
			}
		}
		item.Deleted = true
		item.UpdatedAt = now

		return s.finishMutation(ctx, &order, now)
	})
	if err != nil {
		return Order{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventOrderItemRemoved,
		TargetRef:  "order:" + order.ID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data: map[string]any{
			"itemId": strings.TrimSpace(cmd.ItemID),
			"status": string(order.Status),
		},
	}}
	return order, events, nil
}

// applyManualTransition enforces the two legal explicit transitions.
func (s *orderItemService) applyManualTransition(ctx context.Context, item *domain.OrderItem, target domain.OrderStatus) error {
	if target == item.Status {
		return nil
	}
	switch {
	case item.Status == domain.OrderStatusPending && target == domain.OrderStatusReadyForPickup:
		if !item.OnDemand {
			return fmt.Errorf("%w: item %s is stock-fulfilled, cannot move PENDING to READY_FOR_PICKUP", ErrOrderItemInvalidState, item.ID)
		}
		item.Status = target
		return nil
	case item.Status == domain.OrderStatusReadyForPickup && target == domain.OrderStatusCompleted:
		if !item.OnDemand {
			if err := s.inventory.AdjustTotal(ctx, item.Flavor1ID, item.SizeID, -item.Quantity); err != nil {
				return err
			}
		}
		item.Status = target
		return nil
	}
	return fmt.Errorf("%w: transition %s to %s is not allowed for item %s",
		ErrOrderItemInvalidState, item.Status, target, item.ID)
}

// finishMutation recomputes the order status and the charge, then persists
// the aggregate.
func (s *orderItemService) finishMutation(ctx context.Context, order *domain.Order, now time.Time) error {
	order.Status = aggregateStatus(order.Status, order.ActiveItems())
	order.UpdatedAt = now

	charge, err := s.charges.FindByOrderID(ctx, order.ID)
	if err != nil {
		if isRepoNotFound(err) {
			s.logger(ctx, "order.charge.missing", map[string]any{"order": order.ID})
			return fmt.Errorf("%w: order %s", ErrOrderMissingCharge, order.ID)
		}
		return s.mapRepositoryError(err)
	}
	recalculateCharge(&charge, *order)
	charge.UpdatedAt = now

	if err := s.orders.Update(ctx, *order); err != nil {
		return s.mapRepositoryError(err)
	}
	if err := s.charges.Update(ctx, charge); err != nil {
		return s.mapRepositoryError(err)
	}
	order.Charge = &charge
	return nil
}

// requireFlavor checks the referenced flavor exists before it lands on a line.
func (s *orderItemService) requireFlavor(ctx context.Context, flavorID string) error {
	if s.flavors == nil {
		return nil
	}
	if _, err := s.flavors.FindByID(ctx, flavorID); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// buildItem resolves the size, prices the line, and classifies demand.
func (s *orderItemService) buildItem(ctx context.Context, orderID string, line NewOrderItem, now time.Time) (domain.OrderItem, error) {
	size, err := s.sizes.FindByID(ctx, line.SizeID)
	if err != nil {
		return domain.OrderItem{}, s.mapRepositoryError(err)
	}
	if err := s.requireFlavor(ctx, line.Flavor1ID); err != nil {
		return domain.OrderItem{}, err
	}
	if line.Flavor2ID != nil {
		if err := s.requireFlavor(ctx, *line.Flavor2ID); err != nil {
			return domain.OrderItem{}, err
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

func (s *orderItemService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderItemService) now() time.Time {
	return s.clock()
}

func (s *orderItemService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderItemNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		}
	}
	return err
}
