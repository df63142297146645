package stock

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

// Apply persists an already-validated quantity change: the material row gets
// the new quantity and a transaction row is appended, in one tx.
func (r *Repo) Apply(ctx context.Context, materialID int64, delta, newQuantity float64, description string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `
		UPDATE materials SET current_quantity=$2 WHERE id=$1
	`, materialID, newQuantity); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `
		INSERT INTO stock_transactions (material_id, delta, resulting_quantity, description)
		VALUES ($1,$2,$3,$4)
	`, materialID, delta, newQuantity, description); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repo) Recent(ctx context.Context, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, material_id, delta, resulting_quantity, COALESCE(description,''), created_at
		FROM stock_transactions
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.MaterialID, &t.Delta, &t.ResultingQuantity, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
