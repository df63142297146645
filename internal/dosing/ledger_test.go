package dosing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/dosing-console/internal/domain/materials"
)

// fakeStock backs both ledger interfaces with one in-memory material and
// records appended transactions, mirroring the tx-coupled real store.
type fakeStock struct {
	mu       sync.Mutex
	material materials.Material
	applied  []appliedTx
	failWith error
}

type appliedTx struct {
	delta, newQty float64
	description   string
}

func (f *fakeStock) GetByID(_ context.Context, id int64) (*materials.Material, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.material.ID {
		return nil, nil
	}
	m := f.material
	return &m, nil
}

func (f *fakeStock) Apply(_ context.Context, materialID int64, delta, newQuantity float64, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.material.CurrentQuantity = newQuantity
	f.applied = append(f.applied, appliedTx{delta: delta, newQty: newQuantity, description: description})
	return nil
}

func newTestLedger(f *fakeStock) *Ledger {
	return NewLedger(f, f, slog.Default(), nil, time.Second)
}

func boundedMaterial() materials.Material {
	return materials.Material{
		ID:              1,
		Title:           "Citric acid",
		CurrentQuantity: 50,
		MinimumQuantity: 10,
		MaximumQuantity: 100,
	}
}

func TestLedgerRejectsAboveMaximum(t *testing.T) {
	f := &fakeStock{material: boundedMaterial()}
	l := newTestLedger(f)

	res, err := l.Apply(context.Background(), 1, TxAddition, 60, "refill")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, AboveMaximum, res.Reason)
	assert.Equal(t, 50.0, f.material.CurrentQuantity)
	assert.Empty(t, f.applied)
}

func TestLedgerRejectsBelowMinimum(t *testing.T) {
	f := &fakeStock{material: boundedMaterial()}
	l := newTestLedger(f)

	res, err := l.Apply(context.Background(), 1, TxRemoval, 45, "dose")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, BelowMinimum, res.Reason)
	assert.Equal(t, 50.0, f.material.CurrentQuantity)
	assert.Empty(t, f.applied)
}

func TestLedgerAcceptsAndAppendsTransaction(t *testing.T) {
	f := &fakeStock{material: boundedMaterial()}
	l := newTestLedger(f)

	res, err := l.Apply(context.Background(), 1, TxAddition, 20, "refill")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 70.0, res.NewQuantity)

	require.Len(t, f.applied, 1)
	assert.Equal(t, 20.0, f.applied[0].delta)
	assert.Equal(t, 70.0, f.applied[0].newQty)
	assert.Equal(t, "refill", f.applied[0].description)
}

func TestLedgerNegatesRemovalMagnitude(t *testing.T) {
	f := &fakeStock{material: boundedMaterial()}
	l := newTestLedger(f)

	res, err := l.Apply(context.Background(), 1, TxRemoval, 15, "dose")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 35.0, res.NewQuantity)
	require.Len(t, f.applied, 1)
	assert.Equal(t, -15.0, f.applied[0].delta)
}

func TestLedgerRoundsToTwoDecimals(t *testing.T) {
	f := &fakeStock{material: boundedMaterial()}
	l := newTestLedger(f)

	res, err := l.Apply(context.Background(), 1, TxAddition, 0.105, "fine dose")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, 50.11, res.NewQuantity)
}

func TestLedgerRejectsNonPositiveQuantity(t *testing.T) {
	f := &fakeStock{material: boundedMaterial()}
	l := newTestLedger(f)

	_, err := l.Apply(context.Background(), 1, TxAddition, 0, "")
	assert.Error(t, err)
	_, err = l.Apply(context.Background(), 1, TxRemoval, -3, "")
	assert.Error(t, err)
}

func TestLedgerUnknownMaterial(t *testing.T) {
	f := &fakeStock{material: boundedMaterial()}
	l := newTestLedger(f)

	_, err := l.Apply(context.Background(), 42, TxAddition, 5, "")
	assert.Error(t, err)
	assert.Empty(t, f.applied)
}

func TestLedgerStoreFailureSurfaces(t *testing.T) {
	f := &fakeStock{material: boundedMaterial(), failWith: fmt.Errorf("connection reset")}
	l := newTestLedger(f)

	_, err := l.Apply(context.Background(), 1, TxAddition, 5, "")
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 50.0, f.material.CurrentQuantity)
}

// Two concurrent transactions that are each valid alone must not jointly
// overshoot the bounds: the per-material lock serializes check-then-write.
func TestLedgerSerializesPerMaterial(t *testing.T) {
	f := &fakeStock{material: materials.Material{
		ID: 1, Title: "Binder", CurrentQuantity: 0, MinimumQuantity: 0, MaximumQuantity: 100,
	}}
	l := newTestLedger(f)

	const workers = 30
	var wg sync.WaitGroup
	accepted := make([]bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Apply(context.Background(), 1, TxAddition, 10, "parallel refill")
			if err != nil {
				t.Error(err)
				return
			}
			accepted[i] = res.Accepted
		}()
	}
	wg.Wait()

	n := 0
	for _, ok := range accepted {
		if ok {
			n++
		}
	}
	assert.Equal(t, 10, n, "only ten 10-unit additions fit under the maximum")
	assert.Equal(t, 100.0, f.material.CurrentQuantity)
	assert.Len(t, f.applied, 10)
}
