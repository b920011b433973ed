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
	stocksCollection       = "stocks"
	stockRecordsCollection = "stockRecords"
)

// StockRepository persists shelf quantities per (flavor, size) cell. The
// document ID is derived from the cell; callers load and save inside the
// ambient unit of work so ledger adjustments are serialised.
type StockRepository struct {
	base *pfirestore.BaseRepository[stockDocument]
}

func NewStockRepository(provider *pfirestore.Provider) (*StockRepository, error) {
	if provider == nil {
		return nil, errors.New("stock repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[stockDocument](provider, stocksCollection, nil, nil)
	return &StockRepository{base: base}, nil
}

func (r *StockRepository) FindByFlavorAndSize(ctx context.Context, flavorID, sizeID string) (domain.Stock, error) {
	doc, err := getDoc(ctx, r.base, "stocks.find", cellID(strings.TrimSpace(flavorID), strings.TrimSpace(sizeID)))
	if err != nil {
		return domain.Stock{}, err
	}
	return doc.toDomain(), nil
}

func (r *StockRepository) Save(ctx context.Context, stock domain.Stock) error {
	id := cellID(stock.FlavorID, stock.SizeID)
	return setDoc(ctx, r.base, "stocks.save", id, newStockDocument(stock))
}

func (r *StockRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Stock], error) {
	return listPage(ctx, r.base, "stocks.list", pager, nil, func(_ string, doc stockDocument) domain.Stock {
		return doc.toDomain()
	})
}

// StockRecordRepository journals manual inventory movements. Records are
// append-only; the ULID-suffixed ID keeps listing in insertion order.
type StockRecordRepository struct {
	base *pfirestore.BaseRepository[stockRecordDocument]
}

func NewStockRecordRepository(provider *pfirestore.Provider) (*StockRecordRepository, error) {
	if provider == nil {
		return nil, errors.New("stock record repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[stockRecordDocument](provider, stockRecordsCollection, nil, nil)
	return &StockRecordRepository{base: base}, nil
}

func (r *StockRecordRepository) Insert(ctx context.Context, record domain.StockRecord) error {
	return createDoc(ctx, r.base, "stockRecords.insert", record.ID, newStockRecordDocument(record))
}

func (r *StockRecordRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.StockRecord], error) {
	return listPage(ctx, r.base, "stockRecords.list", pager, nil, func(id string, doc stockRecordDocument) domain.StockRecord {
		return doc.toDomain(id)
	})
}

type stockDocument struct {
	FlavorID  string    `firestore:"flavorId"`
	SizeID    string    `firestore:"sizeId"`
	Total     int       `firestore:"total"`
	Remaining int       `firestore:"remaining"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newStockDocument(stock domain.Stock) stockDocument {
	return stockDocument{
		FlavorID:  stock.FlavorID,
		SizeID:    stock.SizeID,
		Total:     stock.Total,
		Remaining: stock.Remaining,
		UpdatedAt: stock.UpdatedAt.UTC(),
	}
}

func (d stockDocument) toDomain() domain.Stock {
	return domain.Stock{
		FlavorID:  d.FlavorID,
		SizeID:    d.SizeID,
		Total:     d.Total,
		Remaining: d.Remaining,
		UpdatedAt: d.UpdatedAt,
	}
}

type stockRecordDocument struct {
	FlavorID       string     `firestore:"flavorId"`
	SizeID         string     `firestore:"sizeId"`
	Quantity       int        `firestore:"quantity"`
	MovementType   string     `firestore:"movementType"`
	ProductionDate time.Time  `firestore:"productionDate"`
	ExpirationDate *time.Time `firestore:"expirationDate,omitempty"`
	Deleted        bool       `firestore:"deleted"`
	CreatedAt      time.Time  `firestore:"createdAt"`
}

func newStockRecordDocument(record domain.StockRecord) stockRecordDocument {
	return stockRecordDocument{
		FlavorID:       record.FlavorID,
		SizeID:         record.SizeID,
		Quantity:       record.Quantity,
		MovementType:   string(record.MovementType),
		ProductionDate: record.ProductionDate.UTC(),
		ExpirationDate: record.ExpirationDate,
		Deleted:        record.Deleted,
		CreatedAt:      record.CreatedAt.UTC(),
	}
}

func (d stockRecordDocument) toDomain(id string) domain.StockRecord {
	return domain.StockRecord{
		ID:             id,
		FlavorID:       d.FlavorID,
		SizeID:         d.SizeID,
		Quantity:       d.Quantity,
		MovementType:   domain.StockMovement(d.MovementType),
		ProductionDate: d.ProductionDate,
		ExpirationDate: d.ExpirationDate,
		Deleted:        d.Deleted,
		CreatedAt:      d.CreatedAt,
	}
}
