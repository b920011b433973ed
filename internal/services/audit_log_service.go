package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/chocolog/api/internal/domain"
	"github.com/chocolog/api/internal/repositories"
)

const (
	auditLogIDPrefix = "aud_"

	defaultAuditRetentionDays = 45
)

var (
	// ErrAuditLogInvalidInput signals the caller provided invalid data.
	ErrAuditLogInvalidInput = errors.New("audit log: invalid input")
	// ErrAuditLogUnavailable indicates the audit store could not serve the request.
	ErrAuditLogUnavailable = errors.New("audit log: repository unavailable")
)

// AuditLogServiceDeps bundles collaborators required to construct the audit log service.
type AuditLogServiceDeps struct {
	AuditLogs     repositories.AuditLogRepository
	RetentionDays int
	Clock         func() time.Time
	IDGenerator   func() string
	Logger        func(ctx context.Context, event string, fields map[string]any)
}

type auditLogService struct {
	auditLogs repositories.AuditLogRepository
	retention time.Duration
	clock     func() time.Time
	newID     func() string
	logger    func(context.Context, string, map[string]any)
}

// NewAuditLogService wires dependencies into a concrete AuditLogService implementation.
func NewAuditLogService(deps AuditLogServiceDeps) (AuditLogService, error) {
	if deps.AuditLogs == nil {
		return nil, errors.New("audit log service: audit log repository is required")
	}

	retentionDays := deps.RetentionDays
	if retentionDays <= 0 {
		retentionDays = defaultAuditRetentionDays
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

	return &auditLogService{
		auditLogs: deps.AuditLogs,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

// RecordEvents persists one audit entry per domain event. A failing append
// aborts the batch so the caller can decide whether to log or retry.
func (s *auditLogService) RecordEvents(ctx context.Context, requestID string, events []Event) error {
	for _, event := range events {
		if event.Type == "" {
			return fmt.Errorf("%w: event type is required", ErrAuditLogInvalidInput)
		}
		occurred := event.OccurredAt
		if occurred.IsZero() {
			occurred = s.clock()
		}
		actor := event.Actor
		if actor == "" {
			actor = "system"
		}
		entry := domain.AuditLogEntry{
			ID:        auditLogIDPrefix + s.newID(),
			Actor:     actor,
			Action:    event.Type,
			TargetRef: event.TargetRef,
			Metadata:  event.Data,
			RequestID: requestID,
			CreatedAt: occurred,
		}
		if err := s.auditLogs.Append(ctx, entry); err != nil {
			return s.mapRepositoryError(err)
		}
	}
	return nil
}

func (s *auditLogService) List(ctx context.Context, filter AuditLogFilter) (domain.CursorPage[AuditLogEntry], error) {
	page, err := s.auditLogs.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[AuditLogEntry]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

// PurgeExpired deletes entries past the retention window and reports how many
// rows were removed.
func (s *auditLogService) PurgeExpired(ctx context.Context) (int64, error) {
	cutoff := s.clock().Add(-s.retention)
	deleted, err := s.auditLogs.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, s.mapRepositoryError(err)
	}
	s.logger(ctx, "audit.purge.completed", map[string]any{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": deleted,
	})
	return deleted, nil
}

func (s *auditLogService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsUnavailable() {
		return fmt.Errorf("%w: %v", ErrAuditLogUnavailable, err)
	}
	return err
}
