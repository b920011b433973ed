package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/chocolog/api/internal/domain"
	pfirestore "github.com/chocolog/api/internal/platform/firestore"
)

const (
	flavorsCollection = "flavors"
	sizesCollection   = "sizes"
	pricesCollection  = "productPrices"
)

// FlavorRepository persists the flavor axis of the catalog.
type FlavorRepository struct {
	base *pfirestore.BaseRepository[flavorDocument]
}

func NewFlavorRepository(provider *pfirestore.Provider) (*FlavorRepository, error) {
	if provider == nil {
		return nil, errors.New("flavor repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[flavorDocument](provider, flavorsCollection, nil, nil)
	return &FlavorRepository{base: base}, nil
}

func (r *FlavorRepository) Insert(ctx context.Context, flavor domain.Flavor) error {
	return createDoc(ctx, r.base, "flavors.insert", flavor.ID, newFlavorDocument(flavor))
}

func (r *FlavorRepository) Update(ctx context.Context, flavor domain.Flavor) error {
	return setDoc(ctx, r.base, "flavors.update", flavor.ID, newFlavorDocument(flavor))
}

func (r *FlavorRepository) FindByID(ctx context.Context, flavorID string) (domain.Flavor, error) {
	doc, err := getDoc(ctx, r.base, "flavors.find", strings.TrimSpace(flavorID))
	if err != nil {
		return domain.Flavor{}, err
	}
	return doc.toDomain(strings.TrimSpace(flavorID)), nil
}

func (r *FlavorRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Flavor], error) {
	return listPage(ctx, r.base, "flavors.list", pager, nil, func(id string, doc flavorDocument) domain.Flavor {
		return doc.toDomain(id)
	})
}

// SizeRepository persists the size axis of the catalog.
type SizeRepository struct {
	base *pfirestore.BaseRepository[sizeDocument]
}

func NewSizeRepository(provider *pfirestore.Provider) (*SizeRepository, error) {
	if provider == nil {
		return nil, errors.New("size repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[sizeDocument](provider, sizesCollection, nil, nil)
	return &SizeRepository{base: base}, nil
}

func (r *SizeRepository) Insert(ctx context.Context, size domain.Size) error {
	return createDoc(ctx, r.base, "sizes.insert", size.ID, newSizeDocument(size))
}

func (r *SizeRepository) Update(ctx context.Context, size domain.Size) error {
	return setDoc(ctx, r.base, "sizes.update", size.ID, newSizeDocument(size))
}

func (r *SizeRepository) FindByID(ctx context.Context, sizeID string) (domain.Size, error) {
	doc, err := getDoc(ctx, r.base, "sizes.find", strings.TrimSpace(sizeID))
	if err != nil {
		return domain.Size{}, err
	}
	return doc.toDomain(strings.TrimSpace(sizeID)), nil
}

func (r *SizeRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Size], error) {
	return listPage(ctx, r.base, "sizes.list", pager, nil, func(id string, doc sizeDocument) domain.Size {
		return doc.toDomain(id)
	})
}

// ProductPriceRepository persists sale and cost prices per (flavor, size)
// cell. The document ID is derived from the cell so upserts are idempotent.
type ProductPriceRepository struct {
	base *pfirestore.BaseRepository[priceDocument]
}

func NewProductPriceRepository(provider *pfirestore.Provider) (*ProductPriceRepository, error) {
	if provider == nil {
		return nil, errors.New("product price repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[priceDocument](provider, pricesCollection, nil, nil)
	return &ProductPriceRepository{base: base}, nil
}

func (r *ProductPriceRepository) Upsert(ctx context.Context, price domain.ProductPrice) error {
	id := cellID(price.FlavorID, price.SizeID)
	return setDoc(ctx, r.base, "productPrices.upsert", id, newPriceDocument(price))
}

func (r *ProductPriceRepository) FindByFlavorAndSize(ctx context.Context, flavorID, sizeID string) (domain.ProductPrice, error) {
	doc, err := getDoc(ctx, r.base, "productPrices.find", cellID(strings.TrimSpace(flavorID), strings.TrimSpace(sizeID)))
	if err != nil {
		return domain.ProductPrice{}, err
	}
	return doc.toDomain(), nil
}

func (r *ProductPriceRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.ProductPrice], error) {
	return listPage(ctx, r.base, "productPrices.list", pager, nil, func(_ string, doc priceDocument) domain.ProductPrice {
		return doc.toDomain()
	})
}

type flavorDocument struct {
	Name      string    `firestore:"name"`
	Deleted   bool      `firestore:"deleted"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newFlavorDocument(flavor domain.Flavor) flavorDocument {
	return flavorDocument{
		Name:      flavor.Name,
		Deleted:   flavor.Deleted,
		CreatedAt: flavor.CreatedAt.UTC(),
		UpdatedAt: flavor.UpdatedAt.UTC(),
	}
}

func (d flavorDocument) toDomain(id string) domain.Flavor {
	return domain.Flavor{
		ID:        id,
		Name:      d.Name,
		Deleted:   d.Deleted,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type sizeDocument struct {
	Name        string    `firestore:"name"`
	LargeFormat bool      `firestore:"largeFormat"`
	Deleted     bool      `firestore:"deleted"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func newSizeDocument(size domain.Size) sizeDocument {
	return sizeDocument{
		Name:        size.Name,
		LargeFormat: size.LargeFormat,
		Deleted:     size.Deleted,
		CreatedAt:   size.CreatedAt.UTC(),
		UpdatedAt:   size.UpdatedAt.UTC(),
	}
}

func (d sizeDocument) toDomain(id string) domain.Size {
	return domain.Size{
		ID:          id,
		Name:        d.Name,
		LargeFormat: d.LargeFormat,
		Deleted:     d.Deleted,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type priceDocument struct {
	FlavorID  string    `firestore:"flavorId"`
	SizeID    string    `firestore:"sizeId"`
	SalePrice int64     `firestore:"salePrice"`
	CostPrice int64     `firestore:"costPrice"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newPriceDocument(price domain.ProductPrice) priceDocument {
	return priceDocument{
		FlavorID:  price.FlavorID,
		SizeID:    price.SizeID,
		SalePrice: price.SalePrice,
		CostPrice: price.CostPrice,
		UpdatedAt: price.UpdatedAt.UTC(),
	}
}

func (d priceDocument) toDomain() domain.ProductPrice {
	return domain.ProductPrice{
		FlavorID:  d.FlavorID,
		SizeID:    d.SizeID,
		SalePrice: d.SalePrice,
		CostPrice: d.CostPrice,
		UpdatedAt: d.UpdatedAt,
	}
}
