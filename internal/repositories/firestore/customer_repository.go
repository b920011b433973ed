package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/chocolog/api/internal/domain"
	pfirestore "github.com/chocolog/api/internal/platform/firestore"
)

const customersCollection = "customers"

// CustomerRepository persists buyers in Firestore.
type CustomerRepository struct {
	base *pfirestore.BaseRepository[customerDocument]
}

// NewCustomerRepository constructs a Firestore-backed customer repository.
func NewCustomerRepository(provider *pfirestore.Provider) (*CustomerRepository, error) {
	if provider == nil {
		return nil, errors.New("customer repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[customerDocument](provider, customersCollection, nil, nil)
	return &CustomerRepository{base: base}, nil
}

func (r *CustomerRepository) Insert(ctx context.Context, customer domain.Customer) error {
	return createDoc(ctx, r.base, "customers.insert", customer.ID, newCustomerDocument(customer))
}

func (r *CustomerRepository) Update(ctx context.Context, customer domain.Customer) error {
	return setDoc(ctx, r.base, "customers.update", customer.ID, newCustomerDocument(customer))
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID string) (domain.Customer, error) {
	doc, err := getDoc(ctx, r.base, "customers.find", strings.TrimSpace(customerID))
	if err != nil {
		return domain.Customer{}, err
	}
	return doc.toDomain(strings.TrimSpace(customerID)), nil
}

func (r *CustomerRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Customer], error) {
	return listPage(ctx, r.base, "customers.list", pager, nil, func(id string, doc customerDocument) domain.Customer {
		return doc.toDomain(id)
	})
}

type customerDocument struct {
	Name       string    `firestore:"name"`
	Phone      string    `firestore:"phone"`
	IsReseller bool      `firestore:"isReseller"`
	Notes      string    `firestore:"notes,omitempty"`
	Deleted    bool      `firestore:"deleted"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func newCustomerDocument(customer domain.Customer) customerDocument {
	return customerDocument{
		Name:       customer.Name,
		Phone:      customer.Phone,
		IsReseller: customer.IsReseller,
		Notes:      customer.Notes,
		Deleted:    customer.Deleted,
		CreatedAt:  customer.CreatedAt.UTC(),
		UpdatedAt:  customer.UpdatedAt.UTC(),
	}
}

func (d customerDocument) toDomain(id string) domain.Customer {
	return domain.Customer{
		ID:         id,
		Name:       d.Name,
		Phone:      d.Phone,
		IsReseller: d.IsReseller,
		Notes:      d.Notes,
		Deleted:    d.Deleted,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
