package dosing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Spok95/dosing-console/internal/domain/materials"
	"github.com/Spok95/dosing-console/internal/infra/metrics"
	"github.com/Spok95/dosing-console/internal/infra/notify"
)

type TxKind string

const (
	TxAddition TxKind = "addition"
	TxRemoval  TxKind = "removal"
)

type RejectReason string

const (
	BelowMinimum RejectReason = "below_minimum"
	AboveMaximum RejectReason = "above_maximum"
)

// Result is the outcome of one ledger transaction. On rejection the
// material's quantity is untouched and no transaction row exists.
type Result struct {
	Accepted    bool
	NewQuantity float64
	Reason      RejectReason
}

type MaterialStore interface {
	GetByID(ctx context.Context, id int64) (*materials.Material, error)
}

// TransactionStore persists an accepted quantity change atomically:
// new current quantity plus an appended transaction record.
type TransactionStore interface {
	Apply(ctx context.Context, materialID int64, delta, newQuantity float64, description string) error
}

// Ledger validates and applies bounded stock adjustments. The
// check-then-write pair is serialized per material id so two individually
// valid transactions cannot jointly break the bounds invariant.
type Ledger struct {
	materials MaterialStore
	store     TransactionStore
	log       *slog.Logger
	notifier  notify.Notifier
	opTimeout time.Duration

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewLedger(ms MaterialStore, ts TransactionStore, log *slog.Logger, n notify.Notifier, opTimeout time.Duration) *Ledger {
	if n == nil {
		n = notify.Nop{}
	}
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &Ledger{
		materials: ms,
		store:     ts,
		log:       log,
		notifier:  n,
		opTimeout: opTimeout,
		locks:     map[int64]*sync.Mutex{},
	}
}

// Apply runs one transaction: qty is a positive magnitude, negated for
// removals. Bound violations reject locally before any write.
func (l *Ledger) Apply(ctx context.Context, materialID int64, kind TxKind, qty float64, description string) (Result, error) {
	if qty <= 0 {
		return Result{}, fmt.Errorf("qty must be > 0")
	}
	if kind != TxAddition && kind != TxRemoval {
		return Result{}, fmt.Errorf("unknown transaction kind %q", kind)
	}

	lock := l.lockFor(materialID)
	lock.Lock()
	defer lock.Unlock()

	m, err := l.materials.GetByID(ctx, materialID)
	if err != nil {
		metrics.LedgerTransactions.WithLabelValues(string(kind), "failed").Inc()
		return Result{}, err
	}
	if m == nil {
		metrics.LedgerTransactions.WithLabelValues(string(kind), "failed").Inc()
		return Result{}, fmt.Errorf("material %d not found", materialID)
	}

	delta := qty
	if kind == TxRemoval {
		delta = -qty
	}
	next := round2(m.CurrentQuantity + delta)

	if next < m.MinimumQuantity {
		metrics.LedgerTransactions.WithLabelValues(string(kind), string(BelowMinimum)).Inc()
		l.notifier.Notify(fmt.Sprintf("Stock change rejected for %q: %.2f would fall below minimum %.2f", m.Title, next, m.MinimumQuantity))
		return Result{Reason: BelowMinimum, NewQuantity: m.CurrentQuantity}, nil
	}
	if next > m.MaximumQuantity {
		metrics.LedgerTransactions.WithLabelValues(string(kind), string(AboveMaximum)).Inc()
		l.notifier.Notify(fmt.Sprintf("Stock change rejected for %q: %.2f would exceed maximum %.2f", m.Title, next, m.MaximumQuantity))
		return Result{Reason: AboveMaximum, NewQuantity: m.CurrentQuantity}, nil
	}

	opCtx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()
	if err := l.store.Apply(opCtx, materialID, delta, next, description); err != nil {
		metrics.LedgerTransactions.WithLabelValues(string(kind), "failed").Inc()
		return Result{}, fmt.Errorf("apply transaction: %w", err)
	}

	metrics.LedgerTransactions.WithLabelValues(string(kind), "accepted").Inc()
	l.log.Debug("stock transaction applied", "material_id", materialID, "delta", delta, "qty", next)
	return Result{Accepted: true, NewQuantity: next}, nil
}

func (l *Ledger) lockFor(materialID int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk, ok := l.locks[materialID]
	if !ok {
		lk = &sync.Mutex{}
		l.locks[materialID] = lk
	}
	return lk
}

// round2 keeps quantities at two decimal places so repeated float deltas
// do not accumulate drift.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
