package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/platform/auth"
	"github.com/chocolog/api/internal/platform/httpx"
	"github.com/chocolog/api/internal/platform/observability"
)

const defaultRequestTimeout = 60 * time.Second

// RouterDeps bundles the handler groups and cross-cutting collaborators the
// router mounts.
type RouterDeps struct {
	Health    *HealthHandlers
	Orders    *OrderHandlers
	Customers *CustomerHandlers
	Stocks    *StockHandlers
	Catalog   *CatalogHandlers
	Employees *EmployeeHandlers
	AuditLogs *AuditLogHandlers

	Verifier auth.Verifier
	Logger   *zap.Logger

	RequestTimeout  time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
}

// NewRouter assembles the HTTP surface. Health endpoints are public; the
// /api/v1 tree requires an employee token, and /api/v1/admin additionally
// requires the ADMIN role.
func NewRouter(deps RouterDeps) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if deps.Logger != nil {
		r.Use(observability.InjectLoggerMiddleware(deps.Logger))
	}
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(deps.Logger))

	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	r.Use(middleware.Timeout(timeout))

	if limiter := newSimpleRateLimiter(deps.RateLimit, deps.RateLimitWindow, nil); limiter != nil {
		r.Use(rateLimitMiddleware(limiter))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("not_found", "resource not found", http.StatusNotFound))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(req.Context(), w, httpx.NewError("method_not_allowed", "method not allowed", http.StatusMethodNotAllowed))
	})

	if deps.Health != nil {
		deps.Health.Routes(r)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if deps.Verifier != nil {
				r.Use(auth.RequireEmployeeAuth(deps.Verifier))
			}
			if deps.Orders != nil {
				r.Route("/orders", deps.Orders.Routes)
			}
			if deps.Customers != nil {
				r.Route("/customers", deps.Customers.Routes)
			}
			if deps.Stocks != nil {
				r.Route("/stocks", deps.Stocks.Routes)
			}
		})

		r.Route("/admin", func(r chi.Router) {
			if deps.Verifier != nil {
				r.Use(auth.RequireEmployeeAuth(deps.Verifier, domain.RoleAdmin))
			}
			if deps.Catalog != nil {
				deps.Catalog.Routes(r)
			}
			if deps.Employees != nil {
				r.Route("/employees", deps.Employees.Routes)
			}
			if deps.AuditLogs != nil {
				r.Route("/audit-logs", deps.AuditLogs.Routes)
			}
		})
	})

	return r
}

// rateLimitMiddleware rejects clients that exceed the configured request
// allowance inside the current window, keyed by remote IP.
func rateLimitMiddleware(limiter rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.RemoteAddr) {
				httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
