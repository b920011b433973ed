package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/chocolog/api/internal/domain"
	pfirestore "github.com/chocolog/api/internal/platform/firestore"
	"github.com/chocolog/api/internal/platform/pagination"
	"github.com/chocolog/api/internal/repositories"
)

type txContextKey struct{}

// txState carries the ambient Firestore transaction through a unit of work.
// Firestore requires every read to happen before the first write, so mutations
// are staged here and flushed once the unit-of-work closure returns. Staged
// documents also serve reads, which keeps read-modify-write sequences within
// one closure coherent.
type txState struct {
	tx     *firestore.Transaction
	order  []string
	staged map[string]stagedWrite
}

type stagedWrite struct {
	ref  *firestore.DocumentRef
	data any
}

func txStateFrom(ctx context.Context) (*txState, bool) {
	st, ok := ctx.Value(txContextKey{}).(*txState)
	return st, ok && st != nil
}

func withTxState(ctx context.Context, st *txState) context.Context {
	return context.WithValue(ctx, txContextKey{}, st)
}

func (st *txState) stage(ref *firestore.DocumentRef, data any) {
	if _, exists := st.staged[ref.Path]; !exists {
		st.order = append(st.order, ref.Path)
	}
	st.staged[ref.Path] = stagedWrite{ref: ref, data: data}
}

func (st *txState) stagedDoc(ref *firestore.DocumentRef) (any, bool) {
	write, ok := st.staged[ref.Path]
	if !ok {
		return nil, false
	}
	return write.data, true
}

func (st *txState) flush() error {
	for _, path := range st.order {
		write := st.staged[path]
		if err := st.tx.Set(write.ref, write.data); err != nil {
			return err
		}
	}
	return nil
}

// getDoc loads a document by ID, honouring the ambient transaction and any
// writes already staged within it.
func getDoc[D any](ctx context.Context, base *pfirestore.BaseRepository[D], op, id string) (D, error) {
	var zero D
	st, inTx := txStateFrom(ctx)
	if !inTx {
		doc, err := base.Get(ctx, id)
		if err != nil {
			return zero, err
		}
		return doc.Data, nil
	}

	ref, err := base.DocumentRef(ctx, id)
	if err != nil {
		return zero, err
	}
	if data, ok := st.stagedDoc(ref); ok {
		doc, ok := data.(D)
		if !ok {
			return zero, fmt.Errorf("%s: staged document %s has unexpected type %T", op, id, data)
		}
		return doc, nil
	}
	snap, err := st.tx.Get(ref)
	if err != nil {
		return zero, pfirestore.WrapError(op, err)
	}
	var doc D
	if err := snap.DataTo(&doc); err != nil {
		return zero, fmt.Errorf("%s: decode document %s: %w", op, id, err)
	}
	return doc, nil
}

// findDoc behaves like getDoc but reports absence instead of failing on it.
func findDoc[D any](ctx context.Context, base *pfirestore.BaseRepository[D], op, id string) (D, bool, error) {
	doc, err := getDoc(ctx, base, op, id)
	if err != nil {
		if repoErr, ok := repositories.AsRepositoryError(err); ok && repoErr.IsNotFound() {
			var zero D
			return zero, false, nil
		}
		return doc, false, err
	}
	return doc, true, nil
}

// setDoc upserts a document, staging the write when a transaction is ambient.
func setDoc[D any](ctx context.Context, base *pfirestore.BaseRepository[D], op, id string, doc D) error {
	if st, inTx := txStateFrom(ctx); inTx {
		ref, err := base.DocumentRef(ctx, id)
		if err != nil {
			return err
		}
		st.stage(ref, doc)
		return nil
	}
	_, err := base.Set(ctx, id, doc)
	if err != nil {
		return pfirestore.WrapError(op, err)
	}
	return nil
}

// createDoc inserts a document, failing with a conflict when the ID is taken.
func createDoc[D any](ctx context.Context, base *pfirestore.BaseRepository[D], op, id string, doc D) error {
	ref, err := base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}

	st, inTx := txStateFrom(ctx)
	if !inTx {
		if _, err := ref.Create(ctx, doc); err != nil {
			return pfirestore.WrapError(op, err)
		}
		return nil
	}

	if _, ok := st.stagedDoc(ref); ok {
		return repositories.ConflictError(op, fmt.Sprintf("document %s already exists", id), nil)
	}
	if _, err := st.tx.Get(ref); err == nil {
		return repositories.ConflictError(op, fmt.Sprintf("document %s already exists", id), nil)
	} else if status.Code(err) != codes.NotFound {
		return pfirestore.WrapError(op, err)
	}
	st.stage(ref, doc)
	return nil
}

// listPage runs an ID-ordered page query and converts hits to domain values.
// The document IDs in this store are prefix+ULID, so ID order is insertion
// order.
func listPage[D, T any](
	ctx context.Context,
	base *pfirestore.BaseRepository[D],
	op string,
	pager domain.Pagination,
	build pfirestore.QueryBuilder,
	convert func(id string, doc D) T,
) (domain.CursorPage[T], error) {
	pager = pagination.Must(pager)
	cursor, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[T]{}, err
	}

	docs, err := base.Query(ctx, func(query firestore.Query) firestore.Query {
		if build != nil {
			query = build(query)
		}
		query = query.OrderBy(firestore.DocumentID, firestore.Asc)
		if cursor.LastID != "" {
			query = query.StartAfter(cursor.LastID)
		}
		return query.Limit(pager.PageSize + 1)
	})
	if err != nil {
		return domain.CursorPage[T]{}, pfirestore.WrapError(op, err)
	}

	hasMore := len(docs) > pager.PageSize
	if hasMore {
		docs = docs[:pager.PageSize]
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		items = append(items, convert(doc.ID, doc.Data))
	}

	var nextToken string
	if hasMore && len(docs) > 0 {
		nextToken, err = pagination.EncodeToken(pagination.Cursor{LastID: docs[len(docs)-1].ID})
		if err != nil {
			return domain.CursorPage[T]{}, err
		}
	}

	return domain.CursorPage[T]{Items: items, NextPageToken: nextToken}, nil
}

// cellID derives the document ID for (flavor, size) keyed collections.
func cellID(flavorID, sizeID string) string {
	return flavorID + "_" + sizeID
}
