package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/repositories"
)

var (
	// ErrPriceInvalidInput signals the caller provided invalid lookup keys.
	ErrPriceInvalidInput = errors.New("pricing: invalid input")
	// ErrPriceNotFound indicates no price cell exists for a (flavor, size) pair.
	ErrPriceNotFound = errors.New("pricing: price not found")
	// ErrPriceRepositoryUnavailable indicates the price store could not serve the lookup.
	ErrPriceRepositoryUnavailable = errors.New("pricing: repository unavailable")
)

// PricingServiceDeps bundles collaborators required to construct the pricing service.
type PricingServiceDeps struct {
	Prices repositories.ProductPriceRepository
}

type pricingService struct {
	prices repositories.ProductPriceRepository
}

// NewPricingService wires dependencies into a concrete PricingService implementation.
func NewPricingService(deps PricingServiceDeps) (PricingService, error) {
	if deps.Prices == nil {
		return nil, errors.New("pricing service: price repository is required")
	}
	return &pricingService{prices: deps.Prices}, nil
}

// UnitPrice resolves the sale price for a line. A two-flavor blend is priced
// as the half-up rounded average of both flavors at the same size. A missing
// cell for either flavor fails the whole lookup.
func (s *pricingService) UnitPrice(ctx context.Context, sizeID, flavor1ID string, flavor2ID *string) (int64, error) {
	sizeID = strings.TrimSpace(sizeID)
	flavor1ID = strings.TrimSpace(flavor1ID)
	if sizeID == "" {
		return 0, fmt.Errorf("%w: size id is required", ErrPriceInvalidInput)
	}
	if flavor1ID == "" {
		return 0, fmt.Errorf("%w: flavor id is required", ErrPriceInvalidInput)
	}

	first, err := s.prices.FindByFlavorAndSize(ctx, flavor1ID, sizeID)
	if err != nil {
		return 0, s.mapRepositoryError(err)
	}
	if flavor2ID == nil || strings.TrimSpace(*flavor2ID) == "" {
		return first.SalePrice, nil
	}

	second, err := s.prices.FindByFlavorAndSize(ctx, strings.TrimSpace(*flavor2ID), sizeID)
	if err != nil {
		return 0, s.mapRepositoryError(err)
	}
	return domain.AverageHalfUp(first.SalePrice, second.SalePrice), nil
}

func (s *pricingService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrPriceNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrPriceRepositoryUnavailable, err)
		}
	}
	return err
}
