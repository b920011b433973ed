package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/repositories"
)

func priceGrid(cells map[string]int64) *stubPriceRepository {
	repo := &stubPriceRepository{}
	repo.findFn = func(_ context.Context, flavorID, sizeID string) (domain.ProductPrice, error) {
		price, ok := cells[flavorID+"/"+sizeID]
		if !ok {
			return domain.ProductPrice{}, repositories.NotFoundError("productPrices.find", "price cell missing")
		}
		return domain.ProductPrice{FlavorID: flavorID, SizeID: sizeID, SalePrice: price}, nil
	}
	return repo
}

func TestPricingServiceSingleFlavor(t *testing.T) {
	svc, err := NewPricingService(PricingServiceDeps{Prices: priceGrid(map[string]int64{
		"flv_choc/siz_small": 1000,
	})})
	if err != nil {
		t.Fatalf("new pricing service: %v", err)
	}

	price, err := svc.UnitPrice(context.Background(), "siz_small", "flv_choc", nil)
	if err != nil {
		t.Fatalf("unit price: %v", err)
	}
	if price != 1000 {
		t.Fatalf("expected 1000, got %d", price)
	}
}

func TestPricingServiceBlendAveragesHalfUp(t *testing.T) {
	svc, err := NewPricingService(PricingServiceDeps{Prices: priceGrid(map[string]int64{
		"flv_choc/siz_small": 1000,
		"flv_van/siz_small":  1025,
	})})
	if err != nil {
		t.Fatalf("new pricing service: %v", err)
	}

	second := "flv_van"
	price, err := svc.UnitPrice(context.Background(), "siz_small", "flv_choc", &second)
	if err != nil {
		t.Fatalf("unit price: %v", err)
	}
	if price != 1013 {
		t.Fatalf("expected 1013, got %d", price)
	}
}

func TestPricingServiceBlendEvenSumNoRounding(t *testing.T) {
	svc, err := NewPricingService(PricingServiceDeps{Prices: priceGrid(map[string]int64{
		"flv_choc/siz_small": 1000,
		"flv_van/siz_small":  1000,
	})})
	if err != nil {
		t.Fatalf("new pricing service: %v", err)
	}

	second := "flv_van"
	price, err := svc.UnitPrice(context.Background(), "siz_small", "flv_choc", &second)
	if err != nil {
		t.Fatalf("unit price: %v", err)
	}
	if price != 1000 {
		t.Fatalf("expected 1000, got %d", price)
	}
}

func TestPricingServiceMissingCellFailsLookup(t *testing.T) {
	svc, err := NewPricingService(PricingServiceDeps{Prices: priceGrid(map[string]int64{
		"flv_choc/siz_small": 1000,
	})})
	if err != nil {
		t.Fatalf("new pricing service: %v", err)
	}

	second := "flv_van"
	if _, err := svc.UnitPrice(context.Background(), "siz_small", "flv_choc", &second); !errors.Is(err, ErrPriceNotFound) {
		t.Fatalf("expected price not found, got %v", err)
	}
}

func TestPricingServiceValidatesKeys(t *testing.T) {
	svc, err := NewPricingService(PricingServiceDeps{Prices: priceGrid(nil)})
	if err != nil {
		t.Fatalf("new pricing service: %v", err)
	}

	if _, err := svc.UnitPrice(context.Background(), "", "flv_choc", nil); !errors.Is(err, ErrPriceInvalidInput) {
		t.Fatalf("expected invalid input for blank size, got %v", err)
	}
	if _, err := svc.UnitPrice(context.Background(), "siz_small", "", nil); !errors.Is(err, ErrPriceInvalidInput) {
		t.Fatalf("expected invalid input for blank flavor, got %v", err)
	}
}
