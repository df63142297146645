package formulas

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, f Formula) (*Formula, error) {
	if f.Name == "" || f.Code == "" || f.Version == "" {
		return nil, fmt.Errorf("name, code and version are required")
	}
	if f.Status == "" {
		f.Status = StatusUnreleased
	}
	if !ValidStatus(f.Status) {
		return nil, fmt.Errorf("invalid status %q", f.Status)
	}
	if f.MaterialCount != nil && *f.MaterialCount < 0 {
		return nil, fmt.Errorf("material count must be non-negative")
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO formulas (name, code, description, version, status, created_by, barcode_id, material_count)
		VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8)
		RETURNING id, name, code, COALESCE(description,''), version, status, created_by, created_at, updated_at, COALESCE(barcode_id,''), material_count
	`, f.Name, f.Code, f.Description, f.Version, string(f.Status), f.CreatedBy, f.BarcodeID, f.MaterialCount)

	var out Formula
	if err := scanFormula(row, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Formula, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, code, COALESCE(description,''), version, status, created_by, created_at, updated_at, COALESCE(barcode_id,''), material_count
		FROM formulas
		WHERE id = $1
	`, id)
	var f Formula
	if err := scanFormula(row, &f); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (r *Repo) List(ctx context.Context) ([]Formula, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, code, COALESCE(description,''), version, status, created_by, created_at, updated_at, COALESCE(barcode_id,''), material_count
		FROM formulas
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Formula
	for rows.Next() {
		var f Formula
		if err := scanFormula(rows, &f); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Update rewrites every mutable field; callers merge partial input first.
func (r *Repo) Update(ctx context.Context, f Formula) error {
	if !ValidStatus(f.Status) {
		return fmt.Errorf("invalid status %q", f.Status)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE formulas
		SET name=$2, code=$3, description=$4, version=$5, status=$6, barcode_id=NULLIF($7,''), material_count=$8, updated_at=now()
		WHERE id=$1
	`, f.ID, f.Name, f.Code, f.Description, f.Version, string(f.Status), f.BarcodeID, f.MaterialCount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("formula %d not found", f.ID)
	}
	return nil
}

// Delete removes the formula together with its production orders and
// detaches its material associations (they keep the measured history).
func (r *Repo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `DELETE FROM production_orders WHERE formula_id=$1`, id); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE formula_materials SET formula_id=NULL WHERE formula_id=$1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM formulas WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("formula %d not found", id)
	}
	return tx.Commit(ctx)
}

func scanFormula(row pgx.Row, f *Formula) error {
	return row.Scan(
		&f.ID,
		&f.Name,
		&f.Code,
		&f.Description,
		&f.Version,
		&f.Status,
		&f.CreatedBy,
		&f.CreatedAt,
		&f.UpdatedAt,
		&f.BarcodeID,
		&f.MaterialCount,
	)
}
