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
	stockRecordIDPrefix = "stk_"

	// inboundShelfLife is the expiration window stamped on produced goods.
	inboundShelfLife = 30 * 24 * time.Hour
)

var (
	// ErrInventoryInvalidInput signals the caller provided invalid data.
	ErrInventoryInvalidInput = errors.New("inventory: invalid input")
	// ErrInventoryInsufficientStock indicates a reservation or outbound movement
	// exceeds what the shelf holds.
	ErrInventoryInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInventoryStockMissing indicates a ledger adjustment targeted a row that
	// should exist. Reservation checks happen at decision points, so a missing
	// row here is a programming fault, not user input.
	ErrInventoryStockMissing = errors.New("inventory: stock row missing")
	// ErrInventoryInvariant indicates an adjustment would leave the ledger in an
	// impossible state.
	ErrInventoryInvariant = errors.New("inventory: ledger invariant violated")
	// ErrInventoryNotFound indicates the requested stock row does not exist.
	ErrInventoryNotFound = errors.New("inventory: not found")
	// ErrInventoryConflict indicates concurrent writers collided on a stock row.
	ErrInventoryConflict = errors.New("inventory: conflict")
)

// InventoryServiceDeps bundles collaborators required to construct the inventory service.
type InventoryServiceDeps struct {
	Stocks      repositories.StockRepository
	Records     repositories.StockRecordRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type inventoryService struct {
	stocks     repositories.StockRepository
	records    repositories.StockRecordRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewInventoryService wires dependencies into a concrete InventoryService implementation.
func NewInventoryService(deps InventoryServiceDeps) (InventoryService, error) {
	if deps.Stocks == nil {
		return nil, errors.New("inventory service: stock repository is required")
	}
	if deps.Records == nil {
		return nil, errors.New("inventory service: stock record repository is required")
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

	return &inventoryService{
		stocks:     deps.Stocks,
		records:    deps.Records,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// AdjustRemaining moves the reservable count by delta. Availability is decided
// where orders are taken, so a reservation applies even when it drives the
// count short; the ledger only refuses adjustments against a missing row or a
// release past the physical total.
func (s *inventoryService) AdjustRemaining(ctx context.Context, flavorID, sizeID string, delta int) error {
	if delta == 0 {
		return nil
	}
	stock, err := s.stocks.FindByFlavorAndSize(ctx, flavorID, sizeID)
	if err != nil {
		if isRepoNotFound(err) {
			s.logger(ctx, "inventory.stock.missing", map[string]any{
				"flavor": flavorID,
				"size":   sizeID,
				"delta":  delta,
			})
			return fmt.Errorf("%w: adjust against missing row flavor %s size %s", ErrInventoryStockMissing, flavorID, sizeID)
		}
		return s.mapRepositoryError(err)
	}

	next := stock.Remaining + delta
	if next > stock.Total {
		s.logger(ctx, "inventory.invariant.violated", map[string]any{
			"flavor":    flavorID,
			"size":      sizeID,
			"remaining": next,
			"total":     stock.Total,
		})
		return fmt.Errorf("%w: remaining %d would exceed total %d for flavor %s size %s",
			ErrInventoryInvariant, next, stock.Total, flavorID, sizeID)
	}

	stock.Remaining = next
	stock.UpdatedAt = s.now()
	if err := s.stocks.Save(ctx, stock); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// AdjustTotal moves the physical count by delta, used at order completion and
// by manual movements. The reservable count is untouched.
func (s *inventoryService) AdjustTotal(ctx context.Context, flavorID, sizeID string, delta int) error {
	if delta == 0 {
		return nil
	}
	stock, err := s.stocks.FindByFlavorAndSize(ctx, flavorID, sizeID)
	if err != nil {
		if isRepoNotFound(err) {
			s.logger(ctx, "inventory.stock.missing", map[string]any{
				"flavor": flavorID,
				"size":   sizeID,
				"delta":  delta,
			})
			return fmt.Errorf("%w: total adjust against missing row flavor %s size %s", ErrInventoryStockMissing, flavorID, sizeID)
		}
		return s.mapRepositoryError(err)
	}

	next := stock.Total + delta
	if next < 0 || next < stock.Remaining {
		s.logger(ctx, "inventory.invariant.violated", map[string]any{
			"flavor":    flavorID,
			"size":      sizeID,
			"remaining": stock.Remaining,
			"total":     next,
		})
		return fmt.Errorf("%w: total %d below remaining %d for flavor %s size %s",
			ErrInventoryInvariant, next, stock.Remaining, flavorID, sizeID)
	}

	stock.Total = next
	stock.UpdatedAt = s.now()
	if err := s.stocks.Save(ctx, stock); err != nil {
		return s.mapRepositoryError(err)
	}
	return nil
}

// RecordMovement journals a manual inventory entry and applies it to the
// shelf. Inbound movements create the stock row on first use.
func (s *inventoryService) RecordMovement(ctx context.Context, cmd RecordStockMovementCommand) (StockRecord, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "flavorId", cmd.FlavorID)
	validation.RequireNonBlank(&violations, "sizeId", cmd.SizeID)
	validation.RequirePositive(&violations, "quantity", int64(cmd.Quantity))
	movement, ok := domain.ParseStockMovement(strings.ToUpper(strings.TrimSpace(cmd.MovementType)))
	if !ok {
		violations.Addf("movementType", "must be INBOUND or OUTBOUND, got %q", cmd.MovementType)
	}
	if !violations.Empty() {
		return StockRecord{}, nil, fmt.Errorf("%w: %v", ErrInventoryInvalidInput, violations.Err())
	}

	flavorID := strings.TrimSpace(cmd.FlavorID)
	sizeID := strings.TrimSpace(cmd.SizeID)
	now := s.now()

	record := domain.StockRecord{
		ID:             stockRecordIDPrefix + s.newID(),
		FlavorID:       flavorID,
		SizeID:         sizeID,
		Quantity:       cmd.Quantity,
		MovementType:   movement,
		ProductionDate: now,
		CreatedAt:      now,
	}
	if movement == domain.StockMovementInbound {
		expiration := now.Add(inboundShelfLife)
		record.ExpirationDate = &expiration
	}

	err := s.runInTx(ctx, func(ctx context.Context) error {
		stock, err := s.stocks.FindByFlavorAndSize(ctx, flavorID, sizeID)
		if err != nil {
			if !isRepoNotFound(err) {
				return s.mapRepositoryError(err)
			}
			if movement == domain.StockMovementOutbound {
				return fmt.Errorf("%w: no stock for flavor %s size %s", ErrInventoryInsufficientStock, flavorID, sizeID)
			}
			stock = domain.Stock{FlavorID: flavorID, SizeID: sizeID}
		}

		switch movement {
		case domain.StockMovementInbound:
			stock.Total += cmd.Quantity
			stock.Remaining += cmd.Quantity
		case domain.StockMovementOutbound:
			// Only the physical total gates an outbound; reservations may
			// already hold the remaining count below the requested quantity.
			if stock.Total < cmd.Quantity {
				return fmt.Errorf("%w: shelf holds %d, movement needs %d",
					ErrInventoryInsufficientStock, stock.Total, cmd.Quantity)
			}
			stock.Total -= cmd.Quantity
			stock.Remaining -= cmd.Quantity
		}
		stock.UpdatedAt = now

		if err := s.stocks.Save(ctx, stock); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.records.Insert(ctx, record); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return StockRecord{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventStockMovement,
		TargetRef:  "stock:" + flavorID + "_" + sizeID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data: map[string]any{
			"recordId":     record.ID,
			"movementType": string(movement),
			"quantity":     cmd.Quantity,
		},
	}}
	return record, events, nil
}

func (s *inventoryService) GetStock(ctx context.Context, flavorID, sizeID string) (Stock, error) {
	stock, err := s.stocks.FindByFlavorAndSize(ctx, strings.TrimSpace(flavorID), strings.TrimSpace(sizeID))
	if err != nil {
		if isRepoNotFound(err) {
			return Stock{}, fmt.Errorf("%w: flavor %s size %s", ErrInventoryNotFound, flavorID, sizeID)
		}
		return Stock{}, s.mapRepositoryError(err)
	}
	return stock, nil
}

func (s *inventoryService) ListStocks(ctx context.Context, pager Pagination) (domain.CursorPage[Stock], error) {
	page, err := s.stocks.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Stock]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *inventoryService) ListMovements(ctx context.Context, pager Pagination) (domain.CursorPage[StockRecord], error) {
	page, err := s.records.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[StockRecord]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *inventoryService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *inventoryService) now() time.Time {
	return s.clock()
}

func (s *inventoryService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrInventoryNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrInventoryConflict, err)
		}
	}
	return err
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
