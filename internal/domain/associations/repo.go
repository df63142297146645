package associations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

const selectCols = `id, formula_id, material_id, set_point, actual, margin, status, COALESCE(idempotency_key,'')`

func (r *Repo) Create(ctx context.Context, a Association) (*Association, error) {
	if a.Status == "" {
		a.Status = StatusPending
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO formula_materials (formula_id, material_id, set_point, actual, margin, status, idempotency_key)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''))
		RETURNING `+selectCols+`
	`, a.FormulaID, a.MaterialID, a.SetPoint, a.Actual, a.Margin, string(a.Status), a.Key)

	var out Association
	if err := scanAssociation(row, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update rewrites the staged fields only. The measured actual and the
// operator-entered margin are owned by the measurement path and survive
// re-commits untouched.
func (r *Repo) Update(ctx context.Context, id int64, a Association) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE formula_materials
		SET material_id=$2, set_point=$3, status=$4
		WHERE id=$1
	`, id, a.MaterialID, a.SetPoint, string(a.Status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("association %d not found", id)
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Association, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+selectCols+` FROM formula_materials WHERE id=$1
	`, id)
	var a Association
	if err := scanAssociation(row, &a); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// SetMargin stores the operator-entered tolerance band.
func (r *Repo) SetMargin(ctx context.Context, id int64, margin float64) error {
	if margin < 0 {
		return fmt.Errorf("margin must be >= 0")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE formula_materials SET margin=$2 WHERE id=$1
	`, id, margin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("association %d not found", id)
	}
	return nil
}

// RecordActual stores a measured value from the measurement feed.
func (r *Repo) RecordActual(ctx context.Context, id int64, actual float64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE formula_materials SET actual=$2 WHERE id=$1
	`, id, actual)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("association %d not found", id)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM formula_materials WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("association %d not found", id)
	}
	return nil
}

// List returns every association still attached to a formula.
func (r *Repo) List(ctx context.Context) ([]Association, error) {
	return r.query(ctx, `
		SELECT `+selectCols+` FROM formula_materials
		WHERE formula_id IS NOT NULL
		ORDER BY id
	`)
}

func (r *Repo) ListByFormula(ctx context.Context, formulaID int64) ([]Association, error) {
	return r.query(ctx, `
		SELECT `+selectCols+` FROM formula_materials
		WHERE formula_id = $1
		ORDER BY id
	`, formulaID)
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]Association, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Association
	for rows.Next() {
		var a Association
		if err := scanAssociation(rows, &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAssociation(row pgx.Row, a *Association) error {
	return row.Scan(
		&a.ID,
		&a.FormulaID,
		&a.MaterialID,
		&a.SetPoint,
		&a.Actual,
		&a.Margin,
		&a.Status,
		&a.Key,
	)
}
