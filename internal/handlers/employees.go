package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/platform/httpx"
	"github.com/chocolog/api/internal/platform/requestctx"
	"github.com/chocolog/api/internal/services"

	"go.uber.org/zap"
)

// EmployeeHandlers serves staff records. Admin-only; the router gates by role.
type EmployeeHandlers struct {
	employees services.EmployeeService
	events    *services.EventConsumer
}

// NewEmployeeHandlers builds the employee endpoint handlers.
func NewEmployeeHandlers(employees services.EmployeeService, events *services.EventConsumer) *EmployeeHandlers {
	return &EmployeeHandlers{employees: employees, events: events}
}

// Routes registers the employee endpoints on the router.
func (h *EmployeeHandlers) Routes(r chi.Router) {
	r.Post("/", h.CreateEmployee)
	r.Get("/", h.ListEmployees)
	r.Get("/{employeeID}", h.GetEmployee)
	r.Patch("/{employeeID}", h.UpdateEmployee)
	r.Delete("/{employeeID}", h.DeleteEmployee)
}

type upsertEmployeeRequest struct {
	Name  string `json:"name"`
	Login string `json:"login"`
	Role  string `json:"role"`
}

type employeePayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Login     string `json:"login"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toEmployeePayload(employee domain.Employee) employeePayload {
	return employeePayload{
		ID:        employee.ID,
		Name:      employee.Name,
		Login:     employee.Login,
		Role:      string(employee.Role),
		CreatedAt: formatTime(employee.CreatedAt),
		UpdatedAt: formatTime(employee.UpdatedAt),
	}
}

func (h *EmployeeHandlers) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertEmployeeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	employee, events, err := h.employees.CreateEmployee(ctx, services.UpsertEmployeeCommand{
		Name:     strings.TrimSpace(req.Name),
		Login:    req.Login,
		Role:     req.Role,
		ActorRef: requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeEmployeeError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusCreated, toEmployeePayload(employee))
}

func (h *EmployeeHandlers) ListEmployees(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Logins are unique, so a login filter resolves to at most one record.
	if login := strings.TrimSpace(r.URL.Query().Get("login")); login != "" {
		employee, err := h.employees.GetEmployeeByLogin(ctx, login)
		if err != nil {
			writeEmployeeError(ctx, w, err)
			return
		}
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"employees":       []employeePayload{toEmployeePayload(employee)},
			"next_page_token": "",
		})
		return
	}

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	page, err := h.employees.ListEmployees(ctx, pager)
	if err != nil {
		writeEmployeeError(ctx, w, err)
		return
	}

	payload := make([]employeePayload, 0, len(page.Items))
	for _, employee := range page.Items {
		payload = append(payload, toEmployeePayload(employee))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"employees":       payload,
		"next_page_token": page.NextPageToken,
	})
}

func (h *EmployeeHandlers) GetEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	employee, err := h.employees.GetEmployee(ctx, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeEmployeeError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toEmployeePayload(employee))
}

func (h *EmployeeHandlers) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req upsertEmployeeRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	employee, events, err := h.employees.UpdateEmployee(ctx, services.UpsertEmployeeCommand{
		EmployeeID: chi.URLParam(r, "employeeID"),
		Name:       strings.TrimSpace(req.Name),
		Login:      req.Login,
		Role:       req.Role,
		ActorRef:   requestctx.ActorRef(ctx),
	})
	if err != nil {
		writeEmployeeError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusOK, toEmployeePayload(employee))
}

func (h *EmployeeHandlers) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	events, err := h.employees.DeleteEmployee(ctx, chi.URLParam(r, "employeeID"), requestctx.ActorRef(ctx))
	if err != nil {
		writeEmployeeError(ctx, w, err)
		return
	}
	consumeEvents(ctx, h.events, events)
	writeJSONResponse(w, http.StatusNoContent, nil)
}

func writeEmployeeError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrEmployeeInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrEmployeeNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", err.Error(), http.StatusNotFound))
	case errors.Is(err, services.ErrEmployeeConflict):
		httpx.WriteError(ctx, w, httpx.NewError("conflict", err.Error(), http.StatusConflict))
	default:
		requestctx.Logger(ctx).Error("employee request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal error", http.StatusInternalServerError))
	}
}
