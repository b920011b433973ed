package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/chocolog/api/internal/domain"
	pfirestore "github.com/chocolog/api/internal/platform/firestore"
)

const chargesCollection = "charges"

// ChargeRepository stores the 1:1 charge for an order, payments embedded.
// The charge document ID is the owning order's ID.
type ChargeRepository struct {
	base *pfirestore.BaseRepository[chargeDocument]
}

func NewChargeRepository(provider *pfirestore.Provider) (*ChargeRepository, error) {
	if provider == nil {
		return nil, errors.New("charge repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[chargeDocument](provider, chargesCollection, nil, nil)
	return &ChargeRepository{base: base}, nil
}

func (r *ChargeRepository) Insert(ctx context.Context, charge domain.Charge) error {
	return createDoc(ctx, r.base, "charges.insert", charge.OrderID, newChargeDocument(charge))
}

func (r *ChargeRepository) Update(ctx context.Context, charge domain.Charge) error {
	return setDoc(ctx, r.base, "charges.update", charge.OrderID, newChargeDocument(charge))
}

func (r *ChargeRepository) FindByOrderID(ctx context.Context, orderID string) (domain.Charge, error) {
	orderID = strings.TrimSpace(orderID)
	doc, err := getDoc(ctx, r.base, "charges.find", orderID)
	if err != nil {
		return domain.Charge{}, err
	}
	return doc.toDomain(orderID), nil
}

type chargeDocument struct {
	Subtotal  int64             `firestore:"subtotal"`
	Discount  int64             `firestore:"discount"`
	Total     int64             `firestore:"total"`
	Status    string            `firestore:"status"`
	Payments  []paymentDocument `firestore:"payments"`
	UpdatedAt time.Time         `firestore:"updatedAt"`
}

type paymentDocument struct {
	ID            string    `firestore:"id"`
	EmployeeID    string    `firestore:"employeeId"`
	PaidAmount    int64     `firestore:"paidAmount"`
	PaymentMethod string    `firestore:"paymentMethod"`
	PaidAt        time.Time `firestore:"paidAt"`
	Deleted       bool      `firestore:"deleted"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

func newChargeDocument(charge domain.Charge) chargeDocument {
	payments := make([]paymentDocument, len(charge.Payments))
	for i, payment := range charge.Payments {
		payments[i] = paymentDocument{
			ID:            payment.ID,
			EmployeeID:    payment.EmployeeID,
			PaidAmount:    payment.PaidAmount,
			PaymentMethod: payment.PaymentMethod,
			PaidAt:        payment.PaidAt.UTC(),
			Deleted:       payment.Deleted,
			CreatedAt:     payment.CreatedAt.UTC(),
		}
	}
	return chargeDocument{
		Subtotal:  charge.Subtotal,
		Discount:  charge.Discount,
		Total:     charge.Total,
		Status:    string(charge.Status),
		Payments:  payments,
		UpdatedAt: charge.UpdatedAt.UTC(),
	}
}

func (d chargeDocument) toDomain(orderID string) domain.Charge {
	payments := make([]domain.Payment, len(d.Payments))
	for i, payment := range d.Payments {
		payments[i] = domain.Payment{
			ID:            payment.ID,
			ChargeOrderID: orderID,
			EmployeeID:    payment.EmployeeID,
			PaidAmount:    payment.PaidAmount,
			PaymentMethod: payment.PaymentMethod,
			PaidAt:        payment.PaidAt,
			Deleted:       payment.Deleted,
			CreatedAt:     payment.CreatedAt,
		}
	}
	return domain.Charge{
		OrderID:   orderID,
		Subtotal:  d.Subtotal,
		Discount:  d.Discount,
		Total:     d.Total,
		Status:    domain.ChargeStatus(d.Status),
		Payments:  payments,
		UpdatedAt: d.UpdatedAt,
	}
}
