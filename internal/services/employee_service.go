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

const employeeIDPrefix = "emp_"

var (
	// ErrEmployeeInvalidInput signals the caller provided invalid data.
	ErrEmployeeInvalidInput = errors.New("employee: invalid input")
	// ErrEmployeeNotFound indicates the employee could not be located.
	ErrEmployeeNotFound = errors.New("employee: not found")
	// ErrEmployeeConflict indicates a duplicate login or colliding writers.
	ErrEmployeeConflict = errors.New("employee: conflict")
)

// EmployeeServiceDeps bundles collaborators required to construct the employee service.
type EmployeeServiceDeps struct {
	Employees   repositories.EmployeeRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
}

type employeeService struct {
	employees  repositories.EmployeeRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
}

// NewEmployeeService wires dependencies into a concrete EmployeeService implementation.
func NewEmployeeService(deps EmployeeServiceDeps) (EmployeeService, error) {
	if deps.Employees == nil {
		return nil, errors.New("employee service: employee repository is required")
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

	return &employeeService{
		employees:  deps.Employees,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func parseEmployeeRole(raw string) (domain.EmployeeRole, bool) {
	switch domain.EmployeeRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case domain.RoleAdmin:
		return domain.RoleAdmin, true
	case domain.RoleAttendant:
		return domain.RoleAttendant, true
	}
	return "", false
}

func (s *employeeService) CreateEmployee(ctx context.Context, cmd UpsertEmployeeCommand) (Employee, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "name", cmd.Name)
	validation.RequireNonBlank(&violations, "login", cmd.Login)
	role, ok := parseEmployeeRole(cmd.Role)
	if !ok {
		violations.Addf("role", "must be ADMIN or ATTENDANT, got %q", cmd.Role)
	}
	if !violations.Empty() {
		return Employee{}, nil, fmt.Errorf("%w: %v", ErrEmployeeInvalidInput, violations.Err())
	}

	now := s.now()
	employee := domain.Employee{
		ID:        employeeIDPrefix + s.newID(),
		Name:      strings.TrimSpace(cmd.Name),
		Login:     strings.ToLower(strings.TrimSpace(cmd.Login)),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.runInTx(ctx, func(ctx context.Context) error {
		if existing, err := s.employees.FindByLogin(ctx, employee.Login); err == nil && !existing.Deleted {
			return fmt.Errorf("%w: login %s already in use", ErrEmployeeConflict, employee.Login)
		} else if err != nil && !isRepoNotFound(err) {
			return s.mapRepositoryError(err)
		}
		if err := s.employees.Insert(ctx, employee); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Employee{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventEmployeeChanged,
		TargetRef:  "employee:" + employee.ID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data:       map[string]any{"action": "created"},
	}}
	return employee, events, nil
}

func (s *employeeService) UpdateEmployee(ctx context.Context, cmd UpsertEmployeeCommand) (Employee, []Event, error) {
	var violations validation.Violations
	validation.RequireNonBlank(&violations, "employeeId", cmd.EmployeeID)
	validation.RequireNonBlank(&violations, "name", cmd.Name)
	validation.RequireNonBlank(&violations, "login", cmd.Login)
	role, ok := parseEmployeeRole(cmd.Role)
	if !ok {
		violations.Addf("role", "must be ADMIN or ATTENDANT, got %q", cmd.Role)
	}
	if !violations.Empty() {
		return Employee{}, nil, fmt.Errorf("%w: %v", ErrEmployeeInvalidInput, violations.Err())
	}

	now := s.now()
	var employee domain.Employee
	err := s.runInTx(ctx, func(ctx context.Context) error {
		var err error
		employee, err = s.employees.FindByID(ctx, strings.TrimSpace(cmd.EmployeeID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if employee.Deleted {
			return fmt.Errorf("%w: employee %s", ErrEmployeeNotFound, cmd.EmployeeID)
		}

		login := strings.ToLower(strings.TrimSpace(cmd.Login))
		if login != employee.Login {
			if existing, err := s.employees.FindByLogin(ctx, login); err == nil && !existing.Deleted {
				return fmt.Errorf("%w: login %s already in use", ErrEmployeeConflict, login)
			} else if err != nil && !isRepoNotFound(err) {
				return s.mapRepositoryError(err)
			}
		}

		employee.Name = strings.TrimSpace(cmd.Name)
		employee.Login = login
		employee.Role = role
		employee.UpdatedAt = now

		if err := s.employees.Update(ctx, employee); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Employee{}, nil, err
	}

	events := []Event{{
		Type:       domain.EventEmployeeChanged,
		TargetRef:  "employee:" + employee.ID,
		Actor:      cmd.ActorRef,
		OccurredAt: now,
		Data:       map[string]any{"action": "updated"},
	}}
	return employee, events, nil
}

func (s *employeeService) DeleteEmployee(ctx context.Context, employeeID, actorRef string) ([]Event, error) {
	if strings.TrimSpace(employeeID) == "" {
		return nil, fmt.Errorf("%w: employee id is required", ErrEmployeeInvalidInput)
	}

	now := s.now()
	err := s.runInTx(ctx, func(ctx context.Context) error {
		employee, err := s.employees.FindByID(ctx, strings.TrimSpace(employeeID))
		if err != nil {
			return s.mapRepositoryError(err)
		}
		if employee.Deleted {
			return fmt.Errorf("%w: employee %s", ErrEmployeeNotFound, employeeID)
		}
		employee.Deleted = true
		employee.UpdatedAt = now
		if err := s.employees.Update(ctx, employee); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return []Event{{
		Type:       domain.EventEmployeeChanged,
		TargetRef:  "employee:" + strings.TrimSpace(employeeID),
		Actor:      actorRef,
		OccurredAt: now,
		Data:       map[string]any{"action": "deleted"},
	}}, nil
}

func (s *employeeService) GetEmployee(ctx context.Context, employeeID string) (Employee, error) {
	employee, err := s.employees.FindByID(ctx, strings.TrimSpace(employeeID))
	if err != nil {
		return Employee{}, s.mapRepositoryError(err)
	}
	if employee.Deleted {
		return Employee{}, fmt.Errorf("%w: employee %s", ErrEmployeeNotFound, employeeID)
	}
	return employee, nil
}

func (s *employeeService) GetEmployeeByLogin(ctx context.Context, login string) (Employee, error) {
	employee, err := s.employees.FindByLogin(ctx, strings.ToLower(strings.TrimSpace(login)))
	if err != nil {
		return Employee{}, s.mapRepositoryError(err)
	}
	if employee.Deleted {
		return Employee{}, fmt.Errorf("%w: login %s", ErrEmployeeNotFound, login)
	}
	return employee, nil
}

func (s *employeeService) ListEmployees(ctx context.Context, pager Pagination) (domain.CursorPage[Employee], error) {
	page, err := s.employees.List(ctx, pager)
	if err != nil {
		return domain.CursorPage[Employee]{}, s.mapRepositoryError(err)
	}
	page.Items = filterDeleted(page.Items, func(e Employee) bool { return e.Deleted })
	return page, nil
}

func (s *employeeService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *employeeService) now() time.Time {
	return s.clock()
}

func (s *employeeService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrEmployeeNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrEmployeeConflict, err)
		}
	}
	return err
}
