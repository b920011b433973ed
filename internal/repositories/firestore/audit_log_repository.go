package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/chocolog/api/internal/domain"
	pfirestore "github.com/chocolog/api/internal/platform/firestore"
	"github.com/chocolog/api/internal/repositories"
)

const auditLogsCollection = "auditLogs"

// purgeBatchSize bounds one delete pass so a purge cannot exhaust a single
// request's limits.
const purgeBatchSize = 250

// AuditLogRepository persists immutable audit trail entries.
type AuditLogRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[auditLogDocument]
}

func NewAuditLogRepository(provider *pfirestore.Provider) (*AuditLogRepository, error) {
	if provider == nil {
		return nil, errors.New("audit log repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[auditLogDocument](provider, auditLogsCollection, nil, nil)
	return &AuditLogRepository{provider: provider, base: base}, nil
}

func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) error {
	return createDoc(ctx, r.base, "auditLogs.append", entry.ID, newAuditLogDocument(entry))
}

func (r *AuditLogRepository) List(ctx context.Context, filter repositories.AuditLogFilter) (domain.CursorPage[domain.AuditLogEntry], error) {
	build := func(query firestore.Query) firestore.Query {
		if filter.TargetRef != "" {
			query = query.Where("targetRef", "==", filter.TargetRef)
		}
		if filter.Actor != "" {
			query = query.Where("actor", "==", filter.Actor)
		}
		if filter.Action != "" {
			query = query.Where("action", "==", filter.Action)
		}
		if filter.DateRange.From != nil {
			query = query.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			query = query.Where("createdAt", "<", filter.DateRange.To.UTC())
		}
		return query
	}
	return listPage(ctx, r.base, "auditLogs.list", filter.Pagination, build, func(id string, doc auditLogDocument) domain.AuditLogEntry {
		return doc.toDomain(id)
	})
}

// DeleteOlderThan removes entries created before the cutoff in bounded
// batches and reports the number of deleted documents.
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}

	var total int64
	for {
		snaps, err := client.Collection(auditLogsCollection).
			Where("createdAt", "<", cutoff.UTC()).
			Limit(purgeBatchSize).
			Documents(ctx).
			GetAll()
		if err != nil {
			return total, pfirestore.WrapError("auditLogs.deleteOlderThan", err)
		}
		if len(snaps) == 0 {
			return total, nil
		}

		writer := client.BulkWriter(ctx)
		for _, snap := range snaps {
			if _, err := writer.Delete(snap.Ref); err != nil {
				writer.End()
				return total, pfirestore.WrapError("auditLogs.deleteOlderThan", err)
			}
		}
		writer.End()
		total += int64(len(snaps))

		if len(snaps) < purgeBatchSize {
			return total, nil
		}
	}
}

type auditLogDocument struct {
	Actor     string         `firestore:"actor"`
	Action    string         `firestore:"action"`
	TargetRef string         `firestore:"targetRef"`
	Metadata  map[string]any `firestore:"metadata,omitempty"`
	RequestID string         `firestore:"requestId,omitempty"`
	CreatedAt time.Time      `firestore:"createdAt"`
}

func newAuditLogDocument(entry domain.AuditLogEntry) auditLogDocument {
	return auditLogDocument{
		Actor:     entry.Actor,
		Action:    entry.Action,
		TargetRef: entry.TargetRef,
		Metadata:  entry.Metadata,
		RequestID: entry.RequestID,
		CreatedAt: entry.CreatedAt.UTC(),
	}
}

func (d auditLogDocument) toDomain(id string) domain.AuditLogEntry {
	return domain.AuditLogEntry{
		ID:        id,
		Actor:     d.Actor,
		Action:    d.Action,
		TargetRef: d.TargetRef,
		Metadata:  d.Metadata,
		RequestID: d.RequestID,
		CreatedAt: d.CreatedAt,
	}
}
