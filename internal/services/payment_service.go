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

const paymentIDPrefix = "pay_"

var (
	// ErrPaymentInvalidInput signals the caller provided invalid data.
	ErrPaymentInvalidInput = errors.New("payment: invalid input")
	// ErrPaymentNotFound indicates the charge or payment could not be located.
	ErrPaymentNotFound = errors.New("payment: not found")
	// ErrPaymentInvalidState indicates money was applied against a charge that
	// cannot accept it.
	ErrPaymentInvalidState = errors.New("payment: invalid state")
	// ErrPaymentConflict indicates concurrent writers collided on the charge.
	ErrPaymentConflict = errors.New("payment: conflict")
)

// PaymentServiceDeps bundles collaborators required to construct the payment service.
type PaymentServiceDeps struct {
	Charges     repositories.ChargeRepository
	Employees   repositories.EmployeeRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type paymentService struct {
	charges    repositories.ChargeRepository
	employees  repositories.EmployeeRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewPaymentService wires dependencies into a concrete PaymentService implementation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Charges == nil {
		return nil, errors.New("payment service: charge repository is required")
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

	return &paymentService{
		charges:    deps.Charges,
		employees:  deps.Employees,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// RecordPayment applies money against the order's charge. A charge already
// settled in full accepts no further payments.
func (s *paymentService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (Charge, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "orderId", cmd.OrderID)
	validation.RequireNonBlank(&violations, "employeeId", cmd.EmployeeID)
	validation.RequireNonBlank(&violations, "paymentMethod", cmd.PaymentMethod)
	validation.RequirePositive(&violations, "paidAmount", cmd.PaidAmount)
	if !violations.Empty() {
		return Charge{}, nil, fmt.Errorf("%w: %v", ErrPaymentInvalidInput, violations.Err())
	}

	now := s.now()
	var (
		charge    domain.Charge
		paymentID string
	)

	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		charge, err = s.charges.FindByOrderID(ctx, strings.TrimSpace(cmd.OrderID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if charge.Status == domain.ChargeStatusPaid {
			return fmt.Errorf("%w: charge for order %s is already paid", ErrPaymentInvalidState, charge.OrderID)
		}
		if s.employees != nil {
			if _, err := s.employees.FindByID(ctx, cmd.EmployeeID); err != nil {
				return s.mapRepositoryError(err)
			}
		}

		paidAt := now
		if cmd.PaidAt != nil {
			paidAt = cmd.PaidAt.UTC()
		}
		payment := domain.Payment{
			ID:            paymentIDPrefix + s.newID(),
			ChargeOrderID: charge.OrderID,
			EmployeeID:    cmd.EmployeeID,
			PaidAmount:    cmd.PaidAmount,
			PaymentMethod: strings.TrimSpace(cmd.PaymentMethod),
			PaidAt:        paidAt,
			CreatedAt:     now,
		}
		charge.Payments = append(charge.Payments, payment)
		paymentID = payment.ID

		reconcileChargeStatus(&charge)
		charge.UpdatedAt = now
		if err := s.charges.Update(ctx, charge); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Charge{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventPaymentRecorded,
		TargetRef:  "order:" + charge.OrderID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data: map[string]any{
			"paymentId":    paymentID,
			"paidAmount":   cmd.PaidAmount,
			"chargeStatus": string(charge.Status),
		},
	}}
	return charge, events, nil
}

// UpdatePayment patches a recorded payment and re-reconciles the charge.
func (s *paymentService) UpdatePayment(ctx context.Context, cmd UpdatePaymentCommand) (Charge, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "orderId", cmd.OrderID)
	validation.RequireNonBlank(&violations, "paymentId", cmd.PaymentID)
	if cmd.PaidAmount != nil {
		validation.RequirePositive(&violations, "paidAmount", *cmd.PaidAmount)
	}
	if cmd.PaymentMethod != nil {
		validation.RequireNonBlank(&violations, "paymentMethod", *cmd.PaymentMethod)
	}
	if !violations.Empty() {
		return Charge{}, nil, fmt.Errorf("%w: %v", ErrPaymentInvalidInput, violations.Err())
	}

	now := s.now()
	var charge domain.Charge

	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		charge, err = s.charges.FindByOrderID(ctx, strings.TrimSpace(cmd.OrderID))
		if err != nil {
			return s.mapRepositoryError(err)
		}

		payment := findPayment(&charge, strings.TrimSpace(cmd.PaymentID))
		if payment == nil {
			return fmt.Errorf("%w: payment %s on order %s", ErrPaymentNotFound, cmd.PaymentID, cmd.OrderID)
		}

		if cmd.PaidAmount != nil {
			payment.PaidAmount = *cmd.PaidAmount
		}
		if cmd.PaymentMethod != nil {
			payment.PaymentMethod = strings.TrimSpace(*cmd.PaymentMethod)
		}
		if cmd.PaidAt != nil {
			payment.PaidAt = cmd.PaidAt.UTC()
		}

		reconcileChargeStatus(&charge)
		charge.UpdatedAt = now
		if err := s.charges.Update(ctx, charge); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Charge{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventPaymentUpdated,
		TargetRef:  "order:" + charge.OrderID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data: map[string]any{
			"paymentId":    strings.TrimSpace(cmd.PaymentID),
			"chargeStatus": string(charge.Status),
		},
	}}
	return charge, events, nil
}

// RemovePayment soft-deletes a recorded payment and re-reconciles the charge.
func (s *paymentService) RemovePayment(ctx context.Context, cmd RemovePaymentCommand) (Charge, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "orderId", cmd.OrderID)
	validation.RequireNonBlank(&violations, "paymentId", cmd.PaymentID)
	if !violations.Empty() {
		return Charge{}, nil, fmt.Errorf("%w: %v", ErrPaymentInvalidInput, violations.Err())
	}

	now := s.now()
	var charge domain.Charge

	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		charge, err = s.charges.FindByOrderID(ctx, strings.TrimSpace(cmd.OrderID))
		if err != nil {
			return s.mapRepositoryError(err)
		}

		payment := findPayment(&charge, strings.TrimSpace(cmd.PaymentID))
		if payment == nil {
			return fmt.Errorf("%w: payment %s on order %s", ErrPaymentNotFound, cmd.PaymentID, cmd.OrderID)
		}
		payment.Deleted = true

		reconcileChargeStatus(&charge)
		charge.UpdatedAt = now
		if err := s.charges.Update(ctx, charge); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Charge{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventPaymentRemoved,
		TargetRef:  "order:" + charge.OrderID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data: map[string]any{
			"paymentId":    strings.TrimSpace(cmd.PaymentID),
			"chargeStatus": string(charge.Status),
		},
	}}
	return charge, events, nil
}

func (s *paymentService) GetCharge(ctx context.Context, orderID string) (Charge, error) {
	charge, err := s.charges.FindByOrderID(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return Charge{}, s.mapRepositoryError(err)
	}
	return charge, nil
}

// findPayment returns the active payment with the given ID.
func findPayment(charge *domain.Charge, paymentID string) *domain.Payment {
	for i := range charge.Payments {
		p := &charge.Payments[i]
		if p.ID == paymentID && !p.Deleted {
			return p
		}
	}
	return nil
}

func (s *paymentService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *paymentService) now() time.Time {
	return s.clock()
}

func (s *paymentService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrPaymentNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrPaymentConflict, err)
		}
	}
	return err
}
