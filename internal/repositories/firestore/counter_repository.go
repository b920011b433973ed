package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/chocolog/api/internal/platform/firestore"
	"github.com/chocolog/api/internal/repositories"
)

const countersCollection = "counters"

// CounterRepository issues sequence numbers backed by Firestore transactions.
// Inside an ambient unit of work the increment joins that transaction, so an
// order insert and its number allocation commit together.
type CounterRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[counterDocument]
}

func NewCounterRepository(provider *pfirestore.Provider) (*CounterRepository, error) {
	if provider == nil {
		return nil, errors.New("counter repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[counterDocument](provider, countersCollection, nil, nil)
	return &CounterRepository{provider: provider, base: base}, nil
}

// Next atomically increments the counter identified by counterID and returns
// the new value. Missing counters start at zero.
func (r *CounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("counter repository not initialised")
	}
	id := strings.TrimSpace(counterID)
	if id == "" {
		return 0, repositories.NewError("counters.next", repositories.ErrorCodeInternal, "counter id is required", nil)
	}
	if step <= 0 {
		step = 1
	}

	if _, inTx := txStateFrom(ctx); inTx {
		return r.increment(ctx, id, step)
	}

	var value int64
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		st := &txState{tx: tx, staged: make(map[string]stagedWrite)}
		next, err := r.increment(withTxState(ctx, st), id, step)
		if err != nil {
			return err
		}
		value = next
		return st.flush()
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (r *CounterRepository) increment(ctx context.Context, id string, step int64) (int64, error) {
	doc, _, err := findDoc(ctx, r.base, "counters.next", id)
	if err != nil {
		return 0, err
	}
	doc.CurrentValue += step
	doc.UpdatedAt = time.Now().UTC()
	if err := setDoc(ctx, r.base, "counters.next", id, doc); err != nil {
		return 0, err
	}
	return doc.CurrentValue, nil
}

type counterDocument struct {
	CurrentValue int64     `firestore:"currentValue"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}
