package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/chocolog/api/internal/domain"
	pfirestore "github.com/chocolog/api/internal/platform/firestore"
	"github.com/chocolog/api/internal/repositories"
)

const employeesCollection = "employees"

// EmployeeRepository persists shop staff in Firestore.
type EmployeeRepository struct {
	base *pfirestore.BaseRepository[employeeDocument]
}

// NewEmployeeRepository constructs a Firestore-backed employee repository.
func NewEmployeeRepository(provider *pfirestore.Provider) (*EmployeeRepository, error) {
	if provider == nil {
		return nil, errors.New("employee repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[employeeDocument](provider, employeesCollection, nil, nil)
	return &EmployeeRepository{base: base}, nil
}

func (r *EmployeeRepository) Insert(ctx context.Context, employee domain.Employee) error {
	return createDoc(ctx, r.base, "employees.insert", employee.ID, newEmployeeDocument(employee))
}

func (r *EmployeeRepository) Update(ctx context.Context, employee domain.Employee) error {
	return setDoc(ctx, r.base, "employees.update", employee.ID, newEmployeeDocument(employee))
}

func (r *EmployeeRepository) FindByID(ctx context.Context, employeeID string) (domain.Employee, error) {
	doc, err := getDoc(ctx, r.base, "employees.find", strings.TrimSpace(employeeID))
	if err != nil {
		return domain.Employee{}, err
	}
	return doc.toDomain(strings.TrimSpace(employeeID)), nil
}

// FindByLogin resolves an employee by their unique login. The query runs
// through the ambient transaction when one is active so duplicate-login
// checks are serialised with the subsequent insert.
func (r *EmployeeRepository) FindByLogin(ctx context.Context, login string) (domain.Employee, error) {
	login = strings.TrimSpace(login)

	build := func(query firestore.Query) firestore.Query {
		return query.Where("login", "==", login).Limit(1)
	}

	var docs []pfirestore.Document[employeeDocument]
	var err error
	if st, inTx := txStateFrom(ctx); inTx {
		docs, err = r.base.QueryTx(ctx, st.tx, build)
	} else {
		docs, err = r.base.Query(ctx, build)
	}
	if err != nil {
		return domain.Employee{}, err
	}
	if len(docs) == 0 {
		return domain.Employee{}, repositories.NotFoundError("employees.findByLogin", fmt.Sprintf("login %s not found", login))
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

func (r *EmployeeRepository) List(ctx context.Context, pager domain.Pagination) (domain.CursorPage[domain.Employee], error) {
	return listPage(ctx, r.base, "employees.list", pager, nil, func(id string, doc employeeDocument) domain.Employee {
		return doc.toDomain(id)
	})
}

type employeeDocument struct {
	Name      string    `firestore:"name"`
	Login     string    `firestore:"login"`
	Role      string    `firestore:"role"`
	Deleted   bool      `firestore:"deleted"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func newEmployeeDocument(employee domain.Employee) employeeDocument {
	return employeeDocument{
		Name:      employee.Name,
		Login:     employee.Login,
		Role:      string(employee.Role),
		Deleted:   employee.Deleted,
		CreatedAt: employee.CreatedAt.UTC(),
		UpdatedAt: employee.UpdatedAt.UTC(),
	}
}

func (d employeeDocument) toDomain(id string) domain.Employee {
	return domain.Employee{
		ID:        id,
		Name:      d.Name,
		Login:     d.Login,
		Role:      domain.EmployeeRole(d.Role),
		Deleted:   d.Deleted,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
