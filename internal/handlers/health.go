package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/platform/requestctx"
	"github.com/chocolog/api/internal/services"

	"go.uber.org/zap"
)

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	build  services.BuildInfo
	system services.SystemService
	clock  func() time.Time
}

// HealthOption customises HealthHandlers construction.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo sets the build metadata reported by the endpoints.
func WithHealthBuildInfo(build services.BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = build
	}
}

// WithHealthSystemService wires the readiness probe aggregator.
func WithHealthSystemService(system services.SystemService) HealthOption {
	return func(h *HealthHandlers) {
		h.system = system
	}
}

// WithHealthClock overrides the time source, used by tests.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		h.clock = clock
	}
}

// NewHealthHandlers builds the health endpoint handlers.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	if h.clock == nil {
		h.clock = time.Now
	}
	return h
}

// Routes registers the health endpoints on the router.
func (h *HealthHandlers) Routes(r chi.Router) {
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
}

// Healthz reports process liveness with build metadata.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	uptime := ""
	if !h.build.StartedAt.IsZero() {
		uptime = h.clock().UTC().Sub(h.build.StartedAt).Truncate(time.Second).String()
	}

	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"version":     h.build.Version,
		"commitSha":   h.build.CommitSHA,
		"environment": h.build.Environment,
		"uptime":      uptime,
		"timestamp":   h.clock().UTC().Format(time.RFC3339),
	})
}

// Readyz probes backing dependencies and reports aggregate readiness.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.system == nil {
		writeJSONResponse(w, http.StatusOK, map[string]any{
			"status": string(domain.HealthStatusOK),
			"checks": map[string]any{},
		})
		return
	}

	report, err := h.system.HealthReport(r.Context())
	if err != nil {
		requestctx.Logger(r.Context()).Error("health report failed", zap.Error(err))
		writeJSONResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status":  string(domain.HealthStatusError),
			"checks":  map[string]any{},
			"details": []string{"health report unavailable"},
		})
		return
	}

	checks := make(map[string]any, len(report.Checks))
	details := make([]string, 0)
	for name, check := range report.Checks {
		entry := map[string]any{
			"status": string(check.Status),
		}
		if check.Detail != "" {
			entry["detail"] = check.Detail
		}
		if check.Latency > 0 {
			entry["latencyMs"] = check.Latency.Milliseconds()
		}
		checks[name] = entry
		if check.Status != domain.HealthStatusOK {
			detail := check.Error
			if detail == "" {
				detail = check.Detail
			}
			if detail == "" {
				detail = "check " + name + " is " + string(check.Status)
			}
			details = append(details, name+": "+detail)
		}
	}

	status := http.StatusOK
	if report.Status != domain.HealthStatusOK {
		status = http.StatusServiceUnavailable
	}

	payload := map[string]any{
		"status": string(report.Status),
		"checks": checks,
	}
	if len(details) > 0 {
		payload["details"] = details
	}
	writeJSONResponse(w, status, payload)
}
