package firestore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/chocolog/api/internal/domain"
	pfirestore "github.com/chocolog/api/internal/platform/firestore"
	"github.com/chocolog/api/internal/platform/pagination"
	"github.com/chocolog/api/internal/repositories"
)

const ordersCollection = "orders"

// OrderRepository persists order aggregates. Items are embedded in the order
// document so the aggregate is read and written as one unit.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{base: base}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	return createDoc(ctx, r.base, "orders.insert", order.ID, newOrderDocument(order))
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	return setDoc(ctx, r.base, "orders.update", order.ID, newOrderDocument(order))
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	doc, err := getDoc(ctx, r.base, "orders.find", orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if doc.Deleted {
		return domain.Order{}, repositories.NotFoundError("orders.find", fmt.Sprintf("order %s not found", orderID))
	}
	return doc.toDomain(orderID), nil
}

func (r *OrderRepository) FindByIDAndCustomer(ctx context.Context, orderID, customerID string) (domain.Order, error) {
	order, err := r.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.CustomerID != strings.TrimSpace(customerID) {
		return domain.Order{}, repositories.NotFoundError("orders.find", fmt.Sprintf("order %s not found for customer %s", orderID, customerID))
	}
	return order, nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	customerID = strings.TrimSpace(customerID)
	build := func(query firestore.Query) firestore.Query {
		return query.Where("customerId", "==", customerID).Where("deleted", "==", false)
	}
	return listPage(ctx, r.base, "orders.listByCustomer", pager, build, func(id string, doc orderDocument) domain.Order {
		return doc.toDomain(id)
	})
}

// ListByPickupRange pages orders whose expected pickup falls in the half-open
// range. Results are ordered by pickup time, so the cursor carries the last
// pickup timestamp alongside the document ID.
func (r *OrderRepository) ListByPickupRange(ctx context.Context, dateRange domain.RangeQuery[time.Time], pager domain.Pagination) (domain.CursorPage[domain.Order], error) {
	pager = pagination.Must(pager)

	var cursor *orderPageToken
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		decoded, err := decodeOrderPageToken(token)
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
		cursor = decoded
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		query = query.Where("deleted", "==", false)
		if dateRange.From != nil {
			query = query.Where("expectedPickupAt", ">=", dateRange.From.UTC())
		}
		if dateRange.To != nil {
			query = query.Where("expectedPickupAt", "<", dateRange.To.UTC())
		}
		query = query.OrderBy("expectedPickupAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
		if cursor != nil {
			query = query.StartAfter(cursor.PickupAt, cursor.LastID)
		}
		return query.Limit(pager.PageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	hasMore := len(docs) > pager.PageSize
	if hasMore {
		docs = docs[:pager.PageSize]
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, doc.Data.toDomain(doc.ID))
	}

	var nextToken string
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		nextToken, err = encodeOrderPageToken(orderPageToken{
			PickupAt: last.Data.ExpectedPickupAt,
			LastID:   last.ID,
		})
		if err != nil {
			return domain.CursorPage[domain.Order]{}, err
		}
	}

	return domain.CursorPage[domain.Order]{Items: orders, NextPageToken: nextToken}, nil
}

type orderPageToken struct {
	PickupAt time.Time `json:"pickupAt"`
	LastID   string    `json:"lastId"`
}

func encodeOrderPageToken(token orderPageToken) (string, error) {
	data, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("encode order page token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeOrderPageToken(encoded string) (*orderPageToken, error) {
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pagination.ErrInvalidPageToken, err)
	}
	var token orderPageToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: %v", pagination.ErrInvalidPageToken, err)
	}
	return &token, nil
}

type orderDocument struct {
	Number           string              `firestore:"number"`
	CustomerID       string              `firestore:"customerId"`
	EmployeeID       string              `firestore:"employeeId"`
	Status           string              `firestore:"status"`
	Notes            string              `firestore:"notes,omitempty"`
	ExpectedPickupAt time.Time           `firestore:"expectedPickupAt"`
	PickedUpAt       *time.Time          `firestore:"pickedUpAt,omitempty"`
	Items            []orderItemDocument `firestore:"items"`
	Deleted          bool                `firestore:"deleted"`
	CreatedAt        time.Time           `firestore:"createdAt"`
	UpdatedAt        time.Time           `firestore:"updatedAt"`
}

type orderItemDocument struct {
	ID         string    `firestore:"id"`
	SizeID     string    `firestore:"sizeId"`
	Flavor1ID  string    `firestore:"flavor1Id"`
	Flavor2ID  *string   `firestore:"flavor2Id,omitempty"`
	Quantity   int       `firestore:"quantity"`
	UnitPrice  int64     `firestore:"unitPrice"`
	TotalPrice int64     `firestore:"totalPrice"`
	OnDemand   bool      `firestore:"onDemand"`
	Status     string    `firestore:"status"`
	Notes      string    `firestore:"notes,omitempty"`
	Deleted    bool      `firestore:"deleted"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

func newOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, len(order.Items))
	for i, item := range order.Items {
		items[i] = orderItemDocument{
			ID:         item.ID,
			SizeID:     item.SizeID,
			Flavor1ID:  item.Flavor1ID,
			Flavor2ID:  item.Flavor2ID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			OnDemand:   item.OnDemand,
			Status:     string(item.Status),
			Notes:      item.Notes,
			Deleted:    item.Deleted,
			CreatedAt:  item.CreatedAt.UTC(),
			UpdatedAt:  item.UpdatedAt.UTC(),
		}
	}
	return orderDocument{
		Number:           order.Number,
		CustomerID:       order.CustomerID,
		EmployeeID:       order.EmployeeID,
		Status:           string(order.Status),
		Notes:            order.Notes,
		ExpectedPickupAt: order.ExpectedPickupAt.UTC(),
		PickedUpAt:       order.PickedUpAt,
		Items:            items,
		Deleted:          order.Deleted,
		CreatedAt:        order.CreatedAt.UTC(),
		UpdatedAt:        order.UpdatedAt.UTC(),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, len(d.Items))
	for i, item := range d.Items {
		items[i] = domain.OrderItem{
			ID:         item.ID,
			OrderID:    id,
			SizeID:     item.SizeID,
			Flavor1ID:  item.Flavor1ID,
			Flavor2ID:  item.Flavor2ID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
			OnDemand:   item.OnDemand,
			Status:     domain.OrderStatus(item.Status),
			Notes:      item.Notes,
			Deleted:    item.Deleted,
			CreatedAt:  item.CreatedAt,
			UpdatedAt:  item.UpdatedAt,
		}
	}
	return domain.Order{
		ID:               id,
		Number:           d.Number,
		CustomerID:       d.CustomerID,
		EmployeeID:       d.EmployeeID,
		Status:           domain.OrderStatus(d.Status),
		Notes:            d.Notes,
		ExpectedPickupAt: d.ExpectedPickupAt,
		PickedUpAt:       d.PickedUpAt,
		Items:            items,
		Deleted:          d.Deleted,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}
