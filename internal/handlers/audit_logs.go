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
	"github.com/chocolog/api/internal/repositories"
	"github.com/chocolog/api/internal/services"

	"go.uber.org/zap"
)

// AuditLogHandlers serves the audit trail. Admin-only; the router gates by role.
type AuditLogHandlers struct {
	audit services.AuditLogService
}

// NewAuditLogHandlers builds the audit log endpoint handlers.
func NewAuditLogHandlers(audit services.AuditLogService) *AuditLogHandlers {
	return &AuditLogHandlers{audit: audit}
}

// Routes registers the audit log endpoints on the router.
func (h *AuditLogHandlers) Routes(r chi.Router) {
	r.Get("/", h.ListEntries)
}

type auditLogPayload struct {
	ID        string         `json:"id"`
	Actor     string         `json:"actor"`
	Action    string         `json:"action"`
	TargetRef string         `json:"target_ref"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func toAuditLogPayload(entry domain.AuditLogEntry) auditLogPayload {
	return auditLogPayload{
		ID:        entry.ID,
		Actor:     entry.Actor,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Metadata:  entry.Metadata,
		RequestID: entry.RequestID,
		CreatedAt: formatTime(entry.CreatedAt),
	}
}

// ListEntries pages through audit entries, optionally filtered by target,
// actor, action, and creation time range.
func (h *AuditLogHandlers) ListEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pager, err := pagerFromRequest(r)
	if err != nil {
		writePaginationError(ctx, w, err)
		return
	}

	query := r.URL.Query()
	filter := repositories.AuditLogFilter{
		TargetRef:  strings.TrimSpace(query.Get("targetRef")),
		Actor:      strings.TrimSpace(query.Get("actor")),
		Action:     strings.TrimSpace(query.Get("action")),
		Pagination: pager,
	}
	if raw := strings.TrimSpace(query.Get("from")); raw != "" {
		from, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "from must be an RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.DateRange.From = &from
	}
	if raw := strings.TrimSpace(query.Get("to")); raw != "" {
		to, err := parseTimeParam(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "to must be an RFC3339 timestamp", http.StatusBadRequest))
			return
		}
		filter.DateRange.To = &to
	}

	page, err := h.audit.List(ctx, filter)
	if err != nil {
		writeAuditLogError(ctx, w, err)
		return
	}

	payload := make([]auditLogPayload, 0, len(page.Items))
	for _, entry := range page.Items {
		payload = append(payload, toAuditLogPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"entries":         payload,
		"next_page_token": page.NextPageToken,
	})
}

func writeAuditLogError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrAuditLogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrAuditLogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("unavailable", err.Error(), http.StatusServiceUnavailable))
	default:
		requestctx.Logger(ctx).Error("audit log request failed", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "internal error", http.StatusInternalServerError))
	}
}
