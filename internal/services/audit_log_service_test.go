package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/chocolog/api/internal/domain"
)

func newTestAuditLogService(t *testing.T, repo *stubAuditLogRepository, retentionDays int) AuditLogService {
	t.Helper()
	svc, err := NewAuditLogService(AuditLogServiceDeps{
		AuditLogs:     repo,
		RetentionDays: retentionDays,
		Clock:         fixedClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)),
		IDGenerator:   sequenceIDs(),
	})
	if err != nil {
		t.Fatalf("new audit log service: %v", err)
	}
	return svc
}

func TestAuditLogRecordEventsMapsEntries(t *testing.T) {
	repo := &stubAuditLogRepository{}
	svc := newTestAuditLogService(t, repo, 0)

	occurred := time.Date(2026, 3, 10, 8, 30, 0, 0, time.UTC)
	events := []Event{
		{
			Type:       domain.EventOrderCreated,
			TargetRef:  "order:ord_1",
			Actor:      "employee:emp_1",
			OccurredAt: occurred,
			Data:       map[string]any{"orderNumber": "CHO-2026-000001"},
		},
		{
			Type:      domain.EventStockMovement,
			TargetRef: "stock:flv_choc_siz_small",
		},
	}

	if err := svc.RecordEvents(context.Background(), "req-42", events); err != nil {
		t.Fatalf("record events: %v", err)
	}
	if len(repo.appended) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(repo.appended))
	}

	first := repo.appended[0]
	if first.ID != "aud_00000001" {
		t.Fatalf("unexpected entry id %q", first.ID)
	}
	if first.Actor != "employee:emp_1" || !first.CreatedAt.Equal(occurred) {
		t.Fatalf("event attributes not carried over: %+v", first)
	}
	if first.RequestID != "req-42" {
		t.Fatalf("expected request id propagated, got %q", first.RequestID)
	}

	second := repo.appended[1]
	if second.Actor != "system" {
		t.Fatalf("expected system actor default, got %q", second.Actor)
	}
	if !second.CreatedAt.Equal(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected clock fallback for occurred-at, got %v", second.CreatedAt)
	}
}

func TestAuditLogRecordEventsRejectsBlankType(t *testing.T) {
	repo := &stubAuditLogRepository{}
	svc := newTestAuditLogService(t, repo, 0)

	err := svc.RecordEvents(context.Background(), "req-1", []Event{{TargetRef: "order:ord_1"}})
	if !errors.Is(err, ErrAuditLogInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(repo.appended) != 0 {
		t.Fatalf("expected no entries, got %d", len(repo.appended))
	}
}

func TestAuditLogPurgeUsesRetentionCutoff(t *testing.T) {
	var gotCutoff time.Time
	repo := &stubAuditLogRepository{
		deleteFn: func(_ context.Context, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 12, nil
		},
	}
	svc := newTestAuditLogService(t, repo, 30)

	deleted, err := svc.PurgeExpired(context.Background())
	if err != nil {
		t.Fatalf("purge expired: %v", err)
	}
	if deleted != 12 {
		t.Fatalf("expected 12 deleted, got %d", deleted)
	}
	want := time.Date(2026, 2, 8, 9, 0, 0, 0, time.UTC)
	if !gotCutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, gotCutoff)
	}
}
