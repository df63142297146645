package dosing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Spok95/dosing-console/internal/domain/formulas"
	"github.com/Spok95/dosing-console/internal/infra/kv"
)

const orderingKeyPrefix = "formula-order/"

// OrderingStore keeps the operator-chosen display order of formulas in the
// KV side-store, one record per client, independent of backend row order.
type OrderingStore struct {
	store kv.Store
	log   *slog.Logger
}

func NewOrderingStore(store kv.Store, log *slog.Logger) *OrderingStore {
	return &OrderingStore{store: store, log: log}
}

// Reconcile re-sequences a freshly fetched formula list against the stored
// id order: stored ids come first (ids with no matching formula are dropped),
// formulas unknown to the record are appended in their original relative
// order. Reconciling an already-ordered list is a no-op.
func (s *OrderingStore) Reconcile(ctx context.Context, client string, fresh []formulas.Formula) []formulas.Formula {
	ids, err := s.load(ctx, client)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.log.Warn("ordering record unavailable, using backend order", "client", client, "err", err)
		}
		return fresh
	}

	byID := make(map[int64]formulas.Formula, len(fresh))
	for _, f := range fresh {
		byID[f.ID] = f
	}
	stored := make(map[int64]bool, len(ids))

	out := make([]formulas.Formula, 0, len(fresh))
	for _, id := range ids {
		stored[id] = true
		if f, ok := byID[id]; ok {
			out = append(out, f)
		}
	}
	for _, f := range fresh {
		if !stored[f.ID] {
			out = append(out, f)
		}
	}
	return out
}

// MoveUp swaps the formula at index i with its predecessor and persists the
// new order. At index 0 the list is returned unchanged.
func (s *OrderingStore) MoveUp(ctx context.Context, client string, list []formulas.Formula, i int) []formulas.Formula {
	if i <= 0 || i >= len(list) {
		return list
	}
	return s.swap(ctx, client, list, i-1, i)
}

// MoveDown swaps the formula at index i with its successor and persists the
// new order. At the last index the list is returned unchanged.
func (s *OrderingStore) MoveDown(ctx context.Context, client string, list []formulas.Formula, i int) []formulas.Formula {
	if i < 0 || i >= len(list)-1 {
		return list
	}
	return s.swap(ctx, client, list, i, i+1)
}

// Save persists the id sequence of list as the client's ordering record.
func (s *OrderingStore) Save(ctx context.Context, client string, list []formulas.Formula) error {
	ids := make([]int64, len(list))
	for i, f := range list {
		ids[i] = f.ID
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, orderingKeyPrefix+client, raw)
}

func (s *OrderingStore) swap(ctx context.Context, client string, list []formulas.Formula, a, b int) []formulas.Formula {
	out := make([]formulas.Formula, len(list))
	copy(out, list)
	out[a], out[b] = out[b], out[a]

	// The reorder the operator sees wins; a failed persist only costs the
	// order surviving a reload.
	if err := s.Save(ctx, client, out); err != nil {
		s.log.Warn("ordering persist failed", "client", client, "err", err)
	}
	return out
}

func (s *OrderingStore) load(ctx context.Context, client string) ([]int64, error) {
	raw, err := s.store.Get(ctx, orderingKeyPrefix+client)
	if err != nil {
		return nil, err
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
