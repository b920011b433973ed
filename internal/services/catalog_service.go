package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	domain "github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/repositories"
	"github.com/chocolog/api/internal/validation"
)

const (
	flavorIDPrefix = "flv_"
	sizeIDPrefix   = "siz_"

	// largeFormatSizeName is the legacy catalog name that marks a size as
	// made-to-order. Seeding keys on it when no explicit flag is supplied.
	largeFormatSizeName = "1Kg"

	catalogNameMaxLength = 80
)

var (
	// ErrCatalogInvalidInput signals the caller provided invalid data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the flavor, size, or price cell is absent.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogConflict indicates concurrent writers collided on a catalog row.
	ErrCatalogConflict = errors.New("catalog: conflict")
)

// CatalogServiceDeps bundles collaborators required to construct the catalog service.
type CatalogServiceDeps struct {
	Flavors     repositories.FlavorRepository
	Sizes       repositories.SizeRepository
	Prices      repositories.ProductPriceRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	flavors    repositories.FlavorRepository
	sizes      repositories.SizeRepository
	prices     repositories.ProductPriceRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
	fold       cases.Caser
}

// NewCatalogService wires dependencies into a concrete CatalogService implementation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Flavors == nil {
		return nil, errors.New("catalog service: flavor repository is required")
	}
	if deps.Sizes == nil {
		return nil, errors.New("catalog service: size repository is required")
	}
	if deps.Prices == nil {
		return nil, errors.New("catalog service: price repository is required")
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

	return &catalogService{
		flavors:    deps.Flavors,
		sizes:      deps.Sizes,
		prices:     deps.Prices,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
		fold:   cases.Fold(),
	}, nil
}

func (s *catalogService) CreateFlavor(ctx context.Context, cmd UpsertFlavorCommand) (Flavor, []Event, error) {
	name, err := s.normalizeName(cmd.Name)
	if err != nil {
		return Flavor{}, nil, err
	}

	now := s.now()
	flavor := domain.Flavor{
		ID:        flavorIDPrefix + s.newID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.flavors.Insert(ctx, flavor); err != nil {
		return Flavor{}, nil, s.mapRepositoryError(err)
	}
	return flavor, s.catalogEvents("flavor:"+flavor.ID, cmd.ActorRef, now, "created"), nil
}

func (s *catalogService) UpdateFlavor(ctx context.Context, cmd UpsertFlavorCommand) (Flavor, []Event, error) {
	if strings.TrimSpace(cmd.FlavorID) == "" {
		return Flavor{}, nil, fmt.Errorf("%w: flavor id is required", ErrCatalogInvalidInput)
	}
	name, err := s.normalizeName(cmd.Name)
	if err != nil {
		return Flavor{}, nil, err
	}

	now := s.now()
	var flavor domain.Flavor
	err = s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		flavor, err = s.flavors.FindByID(ctx, strings.TrimSpace(cmd.FlavorID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if flavor.Deleted {
			return fmt.Errorf("%w: flavor %s", ErrCatalogNotFound, cmd.FlavorID)
		}
		flavor.Name = name
		flavor.UpdatedAt = now
		if err := s.flavors.Update(ctx, flavor); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Flavor{}, nil, err
	}
	return flavor, s.catalogEvents("flavor:"+flavor.ID, cmd.ActorRef, now, "updated"), nil
}

func (s *catalogService) DeleteFlavor(ctx context.Context, flavorID, actorRef string) ([]Event, error) {
	if strings.TrimSpace(flavorID) == "" {
		return nil, fmt.Errorf("%w: flavor id is required", ErrCatalogInvalidInput)
	}

	now := s.now()
	err := s.runInTx(ctx, func(ctx context.Context) error {
		flavor, err := s.flavors.FindByID(ctx, strings.TrimSpace(flavorID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if flavor.Deleted {
			return fmt.Errorf("%w: flavor %s", ErrCatalogNotFound, flavorID)
		}
		flavor.Deleted = true
		flavor.UpdatedAt = now
		if err := s.flavors.Update(ctx, flavor); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.catalogEvents("flavor:"+strings.TrimSpace(flavorID), actorRef, now, "deleted"), nil
}

func (s *catalogService) GetFlavor(ctx context.Context, flavorID string) (Flavor, error) {
	flavor, err := s.flavors.FindByID(ctx, strings.TrimSpace(flavorID))
	if err != nil {
		return Flavor{}, s.mapRepositoryError(err)
	}
	if flavor.Deleted {
		return Flavor{}, fmt.Errorf("%w: flavor %s", ErrCatalogNotFound, flavorID)
	}
	return flavor, nil
}

func (s *catalogService) ListFlavors(ctx context.Context, pager Pagination) (domain.CursorPage[Flavor], error) {
	page, err := s.flavors.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Flavor]{}, s.mapRepositoryError(err)
	}
	page.Items = filterDeleted(page.Items, func(f Flavor) bool { return f.Deleted })
	return page, nil
}

func (s *catalogService) CreateSize(ctx context.Context, cmd UpsertSizeCommand) (Size, []Event, error) {
	name, err := s.normalizeName(cmd.Name)
	if err != nil {
		return Size{}, nil, err
	}

	now := s.now()
	size := domain.Size{
		ID:          sizeIDPrefix + s.newID(),
		Name:        name,
		LargeFormat: s.largeFormat(name, cmd.LargeFormat),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sizes.Insert(ctx, size); err != nil {
		return Size{}, nil, s.mapRepositoryError(err)
	}
	return size, s.catalogEvents("size:"+size.ID, cmd.ActorRef, now, "created"), nil
}

func (s *catalogService) UpdateSize(ctx context.Context, cmd UpsertSizeCommand) (Size, []Event, error) {
	if strings.TrimSpace(cmd.SizeID) == "" {
		return Size{}, nil, fmt.Errorf("%w: size id is required", ErrCatalogInvalidInput)
	}
	name, err := s.normalizeName(cmd.Name)
	if err != nil {
		return Size{}, nil, err
	}

	now := s.now()
	var size domain.Size
	err = s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		size, err = s.sizes.FindByID(ctx, strings.TrimSpace(cmd.SizeID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if size.Deleted {
			return fmt.Errorf("%w: size %s", ErrCatalogNotFound, cmd.SizeID)
		}
		size.Name = name
		size.LargeFormat = s.largeFormat(name, cmd.LargeFormat)
		size.UpdatedAt = now
		if err := s.sizes.Update(ctx, size); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Size{}, nil, err
	}
	return size, s.catalogEvents("size:"+size.ID, cmd.ActorRef, now, "updated"), nil
}

func (s *catalogService) DeleteSize(ctx context.Context, sizeID, actorRef string) ([]Event, error) {
	if strings.TrimSpace(sizeID) == "" {
		return nil, fmt.Errorf("%w: size id is required", ErrCatalogInvalidInput)
	}

	now := s.now()
	err := s.runInTx(ctx, func(ctx context.Context) error {
		size, err := s.sizes.FindByID(ctx, strings.TrimSpace(sizeID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if size.Deleted {
			return fmt.Errorf("%w: size %s", ErrCatalogNotFound, sizeID)
		}
		size.Deleted = true
		size.UpdatedAt = now
		if err := s.sizes.Update(ctx, size); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.catalogEvents("size:"+strings.TrimSpace(sizeID), actorRef, now, "deleted"), nil
}

func (s *catalogService) GetSize(ctx context.Context, sizeID string) (Size, error) {
	size, err := s.sizes.FindByID(ctx, strings.TrimSpace(sizeID))
	if err != nil {
		return Size{}, s.mapRepositoryError(err)
	}
	if size.Deleted {
		return Size{}, fmt.Errorf("%w: size %s", ErrCatalogNotFound, sizeID)
	}
	return size, nil
}

func (s *catalogService) ListSizes(ctx context.Context, pager Pagination) (domain.CursorPage[Size], error) {
	page, err := s.sizes.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Size]{}, s.mapRepositoryError(err)
	}
	page.Items = filterDeleted(page.Items, func(sz Size) bool { return sz.Deleted })
	return page, nil
}

func (s *catalogService) UpsertPrice(ctx context.Context, cmd UpsertPriceCommand) (ProductPrice, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "flavorId", cmd.FlavorID)
	validation.RequireNonBlank(&violations, "sizeId", cmd.SizeID)
	validation.RequireNonNegative(&violations, "salePrice", cmd.SalePrice)
	validation.RequireNonNegative(&violations, "costPrice", cmd.CostPrice)
	if !violations.Empty() {
		return ProductPrice{}, nil, fmt.Errorf("%w: %v", ErrCatalogInvalidInput, violations.Err())
	}

	now := s.now()
	price := domain.ProductPrice{
		FlavorID:  strings.TrimSpace(cmd.FlavorID),
		SizeID:    strings.TrimSpace(cmd.SizeID),
		SalePrice: cmd.SalePrice,
		CostPrice: cmd.CostPrice,
		UpdatedAt: now,
	}

	err := s.runInTx(ctx, func(ctx context.Context) error {
		if _, err := s.flavors.FindByID(ctx, price.FlavorID); err != nil {
			return s.mapRepositoryError(err)
		}
		if _, err := s.sizes.FindByID(ctx, price.SizeID); err != nil {
			return s.mapRepositoryError(err)
		}
		if err := s.prices.Upsert(ctx, price); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return ProductPrice{}, nil, err
	}
	return price, s.catalogEvents("price:"+price.FlavorID+"_"+price.SizeID, cmd.ActorRef, now, "priced"), nil
}

func (s *catalogService) GetPrice(ctx context.Context, flavorID, sizeID string) (ProductPrice, error) {
	price, err := s.prices.FindByFlavorAndSize(ctx, strings.TrimSpace(flavorID), strings.TrimSpace(sizeID))
	if err != nil {
		return ProductPrice{}, s.mapRepositoryError(err)
	}
	return price, nil
}

func (s *catalogService) ListPrices(ctx context.Context, pager Pagination) (domain.CursorPage[ProductPrice], error) {
	page, err := s.prices.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[ProductPrice]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// normalizeName trims and NFC-normalizes a catalog display name.
func (s *catalogService) normalizeName(raw string) (string, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "name", raw)
	validation.RequireMaxLength(&violations, "name", raw, catalogNameMaxLength)
	if !violations.Empty() {
		return "", fmt.Errorf("%w: %v", ErrCatalogInvalidInput, violations.Err())
	}
	return norm.NFC.String(strings.TrimSpace(raw)), nil
}

// largeFormat resolves the made-to-order flag: an explicit value wins,
// otherwise the legacy size name seeds it under case folding.
func (s *catalogService) largeFormat(name string, explicit *bool) bool {
	if explicit != nil {
		return *explicit
	}
	return s.fold.String(name) == s.fold.String(largeFormatSizeName)
}

func (s *catalogService) catalogEvents(targetRef, actorRef string, now time.Time, action string) []Event {
	return []Event{{
		Type:       domain.EventCatalogChanged,
		TargetRef:  targetRef,
		Actor:      actorRef,
		OccurredAt: now,
		Data:       map[string]any{"action": action},
	}}
}

// filterDeleted drops soft-deleted rows from a listing.
func filterDeleted[T any](items []T, deleted func(T) bool) []T {
	kept := items[:0]
	for _, item := range items {
		if !deleted(item) {
			kept = append(kept, item)
		}
	}
	return kept
}

func (s *catalogService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *catalogService) now() time.Time {
	return s.clock()
}

func (s *catalogService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCatalogConflict, err)
		}
	}
	return err
}
