package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/services"
)

func newAuditLogTestRouter(audit *stubAuditLogService) http.Handler {
	h := NewAuditLogHandlers(audit)
	return newTestRouter("/audit-logs", h.Routes)
}

func TestListAuditLogEntriesPassesFilter(t *testing.T) {
	var captured services.AuditLogFilter
	audit := &stubAuditLogService{
		listFn: func(_ context.Context, filter services.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
			captured = filter
			return domain.CursorPage[domain.AuditLogEntry]{
				Items: []domain.AuditLogEntry{{
					ID:        "aud_01",
					Actor:     "employee:emp_01",
					Action:    "order.created",
					TargetRef: "order:ord_01",
					CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				}},
			}, nil
		},
	}
	router := newAuditLogTestRouter(audit)

	url := "/audit-logs/?targetRef=order:ord_01&actor=employee:emp_01&action=order.created&from=2026-03-01T00:00:00Z&to=2026-03-02T00:00:00Z"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := performRequest(router, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.TargetRef != "order:ord_01" || captured.Actor != "employee:emp_01" || captured.Action != "order.created" {
		t.Fatalf("unexpected filter %+v", captured)
	}
	if captured.DateRange.From == nil || !captured.DateRange.From.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from bound %v", captured.DateRange.From)
	}
	if captured.DateRange.To == nil {
		t.Fatal("expected to bound")
	}
	if !strings.Contains(rec.Body.String(), "aud_01") {
		t.Fatalf("expected entry in body, got %s", rec.Body.String())
	}
}

func TestListAuditLogEntriesRejectsBadFromBound(t *testing.T) {
	router := newAuditLogTestRouter(&stubAuditLogService{})

	req := httptest.NewRequest(http.MethodGet, "/audit-logs/?from=last-week", nil)
	rec := performRequest(router, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
