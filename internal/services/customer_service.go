package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"

	domain "github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/repositories"
	"github.com/chocolog/api/internal/validation"
)

const customerIDPrefix = "cus_"

var (
	// ErrCustomerInvalidInput signals the caller provided invalid data.
	ErrCustomerInvalidInput = errors.New("customer: invalid input")
	// ErrCustomerNotFound indicates the customer could not be located.
	ErrCustomerNotFound = errors.New("customer: not found")
	// ErrCustomerConflict indicates concurrent writers collided on the record.
	ErrCustomerConflict = errors.New("customer: conflict")
)

// CustomerServiceDeps bundles collaborators required to construct the customer service.
type CustomerServiceDeps struct {
	Customers   repositories.CustomerRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
}

type customerService struct {
	customers  repositories.CustomerRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
}

// NewCustomerService wires dependencies into a concrete CustomerService implementation.
func NewCustomerService(deps CustomerServiceDeps) (CustomerService, error) {
	if deps.Customers == nil {
		return nil, errors.New("customer service: customer repository is required")
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

	return &customerService{
		customers:  deps.Customers,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *customerService) CreateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "name", cmd.Name)
	if !violations.Empty() {
		return Customer{}, nil, fmt.Errorf("%w: %v", ErrCustomerInvalidInput, violations.Err())
	}

	now := s.now()
	customer := domain.Customer{
		ID:        customerIDPrefix + s.newID(),
		Name:      strings.TrimSpace(cmd.Name),
		Phone:     normalizePhone(cmd.Phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cmd.IsReseller != nil {
		customer.IsReseller = *cmd.IsReseller
	}
	if cmd.Notes != nil {
		customer.Notes = strings.TrimSpace(*cmd.Notes)
	}

	if err := s.customers.Insert(ctx, customer); err != nil {
		return Customer{}, nil, s.mapRepositoryError(err)
	}

	events := []Event{{
		Type:       domain.EventCustomerChanged,
		TargetRef:  "customer:" + customer.ID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data:       map[string]any{"action": "created"},
	}}
	return customer, events, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, cmd UpsertCustomerCommand) (Customer, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "customerId", cmd.CustomerID)
	validation.RequireNonBlank(&violations, "name", cmd.Name)
	if !violations.Empty() {
		return Customer{}, nil, fmt.Errorf("%w: %v", ErrCustomerInvalidInput, violations.Err())
	}

	now := s.now()
	var customer domain.Customer
	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		customer, err = s.customers.FindByID(ctx, strings.TrimSpace(cmd.CustomerID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if customer.Deleted {
			return fmt.Errorf("%w: customer %s", ErrCustomerNotFound, cmd.CustomerID)
		}

		customer.Name = strings.TrimSpace(cmd.Name)
		customer.Phone = normalizePhone(cmd.Phone)
		if cmd.IsReseller != nil {
			customer.IsReseller = *cmd.IsReseller
		}
		if cmd.Notes != nil {
			customer.Notes = strings.TrimSpace(*cmd.Notes)
		}
		customer.UpdatedAt = now

		if err := s.customers.Update(ctx, customer); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Customer{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventCustomerChanged,
		TargetRef:  "customer:" + customer.ID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data:       map[string]any{"action": "updated"},
	}}
	return customer, events, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, customerID, actorRef string) ([]Event, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrCustomerInvalidInput)
	}

	now := s.now()
	err := s.runInTx(ctx, func(ctx context.Context) error {
		customer, err := s.customers.FindByID(ctx, strings.TrimSpace(customerID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if customer.Deleted {
			return fmt.Errorf("%w: customer %s", ErrCustomerNotFound, customerID)
		}
		customer.Deleted = true
		customer.UpdatedAt = now
		if err := s.customers.Update(ctx, customer); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return []Event{{
		Type:       domain.EventCustomerChanged,
		TargetRef:  "customer:" + strings.TrimSpace(customerID),
		Actor:      actorRef,
		OccurredAt: now,
		Data:       map[string]any{"action": "deleted"},
	}}, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID string) (Customer, error) {
	customer, err := s.customers.FindByID(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return Customer{}, s.mapRepositoryError(err)
	}
	if customer.Deleted {
		return Customer{}, fmt.Errorf("%w: customer %s", ErrCustomerNotFound, customerID)
	}
	return customer, nil
}

func (s *customerService) ListCustomers(ctx context.Context, pager Pagination) (domain.CursorPage[Customer], error) {
	page, err := s.customers.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Customer]{}, s.mapRepositoryError(err)
	}
	page.Items = filterDeleted(page.Items, func(c Customer) bool { return c.Deleted })
	return page, nil
}

// normalizePhone keeps digits only, dropping formatting and spaces.
func normalizePhone(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

func (s *customerService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *customerService) now() time.Time {
	return s.clock()
}

func (s *customerService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCustomerNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCustomerConflict, err)
		}
	}
	return err
}
