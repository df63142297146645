package dosing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Spok95/dosing-console/internal/domain/associations"
	"github.com/Spok95/dosing-console/internal/domain/materials"
	"github.com/Spok95/dosing-console/internal/infra/metrics"
)

// nsAssociation seeds the deterministic idempotency key for a
// (formula, material) pair. Never change it: existing rows carry keys
// derived from it.
var nsAssociation = uuid.MustParse("9f2c1f6e-65ad-44b1-a2f0-3f2f8f4d7c01")

// PairKey is the idempotency key for one (formula, material) pair. Two
// sessions racing to create the same pair collide on the key's unique
// index instead of duplicating the association.
func PairKey(formulaID, materialID int64) string {
	return uuid.NewSHA1(nsAssociation, []byte(fmt.Sprintf("%d:%d", formulaID, materialID))).String()
}

// StagedEdit is one pending association edit for a formula, as staged in
// the UI: the chosen material by title and the raw set-point input.
type StagedEdit struct {
	MaterialTitle string
	SetPoint      string
}

type SkipReason string

const (
	MaterialNotFound SkipReason = "material_not_found"
	MissingSetPoint  SkipReason = "missing_set_point"
	OperationFailed  SkipReason = "operation_failed"
)

type Skip struct {
	FormulaID int64
	Reason    SkipReason
	Err       error
}

type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
)

// Applied describes one successfully issued operation.
type Applied struct {
	FormulaID     int64
	MaterialID    int64
	Kind          OpKind
	AssociationID int64 // zero for creates whose id the store did not report
}

// CommitReport carries the per-formula outcome of one batch so the operator
// can see exactly which edits did not apply.
type CommitReport struct {
	Applied []Applied
	Skipped []Skip
}

type AssociationStore interface {
	List(ctx context.Context) ([]associations.Association, error)
	Create(ctx context.Context, a associations.Association) (*associations.Association, error)
	Update(ctx context.Context, id int64, a associations.Association) error
}

type MaterialLister interface {
	List(ctx context.Context) ([]materials.Material, error)
}

// Reconciler converts a batch of staged edits into create-or-update
// operations against the association collection, one decision per formula,
// without ever producing a duplicate (formula, material) pair from its own
// writes. The read-then-write shape is inherited: the fetch of existing
// associations and the writes are not one atomic step, and a concurrent
// session racing the same pair is only caught by the idempotency key index.
type Reconciler struct {
	assocs      AssociationStore
	materials   MaterialLister
	log         *slog.Logger
	opTimeout   time.Duration
	maxInFlight int
}

func NewReconciler(as AssociationStore, ml MaterialLister, log *slog.Logger, opTimeout time.Duration) *Reconciler {
	if opTimeout <= 0 {
		opTimeout = 10 * time.Second
	}
	return &Reconciler{assocs: as, materials: ml, log: log, opTimeout: opTimeout, maxInFlight: 8}
}

// resolvedOp is one decided operation, pending dispatch.
type resolvedOp struct {
	formulaID int64
	kind      OpKind
	updateID  int64
	payload   associations.Association
}

// Commit resolves and dispatches every staged edit. Items never abort the
// batch: unresolved materials and bad set-points are skipped per item, and a
// failed write on one association does not roll back or block the others.
func (r *Reconciler) Commit(ctx context.Context, edits map[int64]StagedEdit) (CommitReport, error) {
	var report CommitReport
	if len(edits) == 0 {
		return report, nil
	}

	mats, err := r.materials.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list materials: %w", err)
	}
	byTitle := make(map[string]int64, len(mats))
	for _, m := range mats {
		byTitle[m.Title] = m.ID
	}

	existing, err := r.assocs.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list associations: %w", err)
	}
	type pair struct{ f, m int64 }
	byPair := make(map[pair]associations.Association, len(existing))
	for _, a := range existing {
		byPair[pair{a.FormulaID, a.MaterialID}] = a
	}

	formulaIDs := make([]int64, 0, len(edits))
	for id := range edits {
		formulaIDs = append(formulaIDs, id)
	}
	sort.Slice(formulaIDs, func(i, j int) bool { return formulaIDs[i] < formulaIDs[j] })

	var ops []resolvedOp
	for _, fid := range formulaIDs {
		edit := edits[fid]

		materialID, ok := byTitle[edit.MaterialTitle]
		if !ok {
			report.Skipped = append(report.Skipped, Skip{FormulaID: fid, Reason: MaterialNotFound})
			metrics.ReconcilerOps.WithLabelValues("resolve", "skipped").Inc()
			continue
		}

		setPoint, err := strconv.ParseFloat(strings.TrimSpace(edit.SetPoint), 64)
		if edit.SetPoint == "" || err != nil {
			report.Skipped = append(report.Skipped, Skip{FormulaID: fid, Reason: MissingSetPoint})
			metrics.ReconcilerOps.WithLabelValues("resolve", "skipped").Inc()
			continue
		}

		payload := associations.Association{
			FormulaID:  fid,
			MaterialID: materialID,
			SetPoint:   &setPoint,
			Status:     associations.StatusReleased,
			Key:        PairKey(fid, materialID),
		}

		op := resolvedOp{formulaID: fid, payload: payload}
		if match, ok := byPair[pair{fid, materialID}]; ok {
			// Updates rewrite the staged fields only: the measured
			// actual and the operator's margin stay as recorded.
			op.kind = OpUpdate
			op.updateID = match.ID
		} else {
			// New pairs start Released with a zero actual; the
			// measurement feed fills actual in later.
			actual := 0.0
			op.payload.Actual = &actual
			op.kind = OpCreate
		}
		ops = append(ops, op)
	}

	if len(ops) == 0 {
		return report, nil
	}

	// Parallel dispatch, ordered join. No operation depends on another and
	// a failure must not cancel the rest, so errors stay per-slot.
	applied := make([]*Applied, len(ops))
	failed := make([]error, len(ops))

	g := &errgroup.Group{}
	g.SetLimit(r.maxInFlight)
	for i, op := range ops {
		g.Go(func() error {
			opCtx, cancel := context.WithTimeout(ctx, r.opTimeout)
			defer cancel()

			switch op.kind {
			case OpUpdate:
				if err := r.assocs.Update(opCtx, op.updateID, op.payload); err != nil {
					failed[i] = err
					return nil
				}
				applied[i] = &Applied{FormulaID: op.formulaID, MaterialID: op.payload.MaterialID, Kind: OpUpdate, AssociationID: op.updateID}
			case OpCreate:
				created, err := r.assocs.Create(opCtx, op.payload)
				if err != nil {
					failed[i] = err
					return nil
				}
				a := Applied{FormulaID: op.formulaID, MaterialID: op.payload.MaterialID, Kind: OpCreate}
				if created != nil {
					a.AssociationID = created.ID
				}
				applied[i] = &a
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, op := range ops {
		if err := failed[i]; err != nil {
			r.log.Warn("association write failed", "formula_id", op.formulaID, "kind", op.kind, "err", err)
			report.Skipped = append(report.Skipped, Skip{FormulaID: op.formulaID, Reason: OperationFailed, Err: err})
			metrics.ReconcilerOps.WithLabelValues(string(op.kind), "failed").Inc()
			continue
		}
		report.Applied = append(report.Applied, *applied[i])
		metrics.ReconcilerOps.WithLabelValues(string(op.kind), "applied").Inc()
	}
	return report, nil
}
