package dosing

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/dosing-console/internal/domain/formulas"
	"github.com/Spok95/dosing-console/internal/infra/kv"
)

func newTestOrdering(t *testing.T) (*OrderingStore, kv.Store) {
	t.Helper()
	store, err := kv.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewOrderingStore(store, slog.Default()), store
}

func formulaList(ids ...int64) []formulas.Formula {
	out := make([]formulas.Formula, len(ids))
	for i, id := range ids {
		out[i] = formulas.Formula{ID: id}
	}
	return out
}

func idsOf(list []formulas.Formula) []int64 {
	out := make([]int64, len(list))
	for i, f := range list {
		out[i] = f.ID
	}
	return out
}

func TestReconcileWithoutRecordKeepsBackendOrder(t *testing.T) {
	s, _ := newTestOrdering(t)
	fresh := formulaList(1, 2, 3)
	got := s.Reconcile(context.Background(), "op1", fresh)
	assert.Equal(t, []int64{1, 2, 3}, idsOf(got))
}

func TestReconcileAppliesStoredOrder(t *testing.T) {
	s, _ := newTestOrdering(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "op1", formulaList(3, 1, 2)))

	got := s.Reconcile(ctx, "op1", formulaList(1, 2, 3))
	assert.Equal(t, []int64{3, 1, 2}, idsOf(got))
}

func TestReconcileDropsStaleAndAppendsNew(t *testing.T) {
	s, _ := newTestOrdering(t)
	ctx := context.Background()
	// 9 was deleted upstream; 4 and 5 are new.
	require.NoError(t, s.Save(ctx, "op1", formulaList(9, 3, 1)))

	got := s.Reconcile(ctx, "op1", formulaList(1, 2, 3, 4, 5))
	assert.Equal(t, []int64{3, 1, 2, 4, 5}, idsOf(got))
}

func TestReconcileIdempotent(t *testing.T) {
	s, _ := newTestOrdering(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "op1", formulaList(2, 3)))

	fresh := formulaList(1, 2, 3, 4)
	once := s.Reconcile(ctx, "op1", fresh)
	twice := s.Reconcile(ctx, "op1", once)
	assert.Equal(t, idsOf(once), idsOf(twice))
}

func TestReconcilePreservesFormulaSet(t *testing.T) {
	s, _ := newTestOrdering(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "op1", formulaList(5, 2, 99)))

	fresh := formulaList(1, 2, 3, 4, 5)
	got := s.Reconcile(ctx, "op1", fresh)

	require.Len(t, got, len(fresh))
	seen := map[int64]bool{}
	for _, f := range got {
		seen[f.ID] = true
	}
	for _, f := range fresh {
		assert.True(t, seen[f.ID], "formula %d missing after reconcile", f.ID)
	}
}

func TestMoveUpDownEdges(t *testing.T) {
	s, _ := newTestOrdering(t)
	ctx := context.Background()
	list := formulaList(1, 2, 3)

	assert.Equal(t, []int64{1, 2, 3}, idsOf(s.MoveUp(ctx, "op1", list, 0)))
	assert.Equal(t, []int64{1, 2, 3}, idsOf(s.MoveDown(ctx, "op1", list, 2)))
	assert.Equal(t, []int64{1, 2, 3}, idsOf(s.MoveUp(ctx, "op1", list, -1)))
	assert.Equal(t, []int64{1, 2, 3}, idsOf(s.MoveDown(ctx, "op1", list, 7)))
}

func TestMoveUpThenDownRestoresOrder(t *testing.T) {
	s, _ := newTestOrdering(t)
	ctx := context.Background()
	list := formulaList(1, 2, 3, 4)

	moved := s.MoveUp(ctx, "op1", list, 2)
	assert.Equal(t, []int64{1, 3, 2, 4}, idsOf(moved))

	back := s.MoveDown(ctx, "op1", moved, 1)
	assert.Equal(t, []int64{1, 2, 3, 4}, idsOf(back))
}

func TestMovePersistsAcrossReload(t *testing.T) {
	s, _ := newTestOrdering(t)
	ctx := context.Background()
	list := formulaList(1, 2, 3)

	_ = s.MoveDown(ctx, "op1", list, 0) // becomes 2,1,3

	reloaded := s.Reconcile(ctx, "op1", formulaList(1, 2, 3))
	assert.Equal(t, []int64{2, 1, 3}, idsOf(reloaded))
}

func TestMoveDoesNotMutateInput(t *testing.T) {
	s, _ := newTestOrdering(t)
	list := formulaList(1, 2, 3)
	_ = s.MoveDown(context.Background(), "op1", list, 0)
	assert.Equal(t, []int64{1, 2, 3}, idsOf(list))
}

func TestOrderingScopedPerClient(t *testing.T) {
	s, _ := newTestOrdering(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "op1", formulaList(3, 2, 1)))

	got := s.Reconcile(ctx, "op2", formulaList(1, 2, 3))
	assert.Equal(t, []int64{1, 2, 3}, idsOf(got))
}
