package production

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

/* Production orders */

func (r *Repo) CreateOrder(ctx context.Context, o Order) (*Order, error) {
	if o.OrderNumber == "" || o.FormulaID == 0 || o.BatchSize <= 0 || o.ScheduledDate.IsZero() {
		return nil, fmt.Errorf("order_number, formula_id, batch_size and scheduled_date are required")
	}
	if o.Status == "" {
		o.Status = OrderPlanned
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO production_orders (order_number, formula_id, batch_size, scheduled_date, status, created_by, notes, barcode_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''))
		RETURNING id, order_number, formula_id, batch_size, scheduled_date, status, created_by, COALESCE(notes,''), COALESCE(barcode_id,''), created_at
	`, o.OrderNumber, o.FormulaID, o.BatchSize, o.ScheduledDate, string(o.Status), o.CreatedBy, o.Notes, o.BarcodeID)

	var out Order
	if err := scanOrder(row, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, order_number, formula_id, batch_size, scheduled_date, status, created_by, COALESCE(notes,''), COALESCE(barcode_id,''), created_at
		FROM production_orders WHERE id=$1
	`, id)
	var o Order
	if err := scanOrder(row, &o); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *Repo) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, order_number, formula_id, batch_size, scheduled_date, status, created_by, COALESCE(notes,''), COALESCE(barcode_id,''), created_at
		FROM production_orders ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := scanOrder(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateOrder(ctx context.Context, o Order) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE production_orders
		SET order_number=$2, formula_id=$3, batch_size=$4, scheduled_date=$5, status=$6, notes=$7
		WHERE id=$1
	`, o.ID, o.OrderNumber, o.FormulaID, o.BatchSize, o.ScheduledDate, string(o.Status), o.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("production order %d not found", o.ID)
	}
	return nil
}

func (r *Repo) RejectOrder(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE production_orders SET status=$2 WHERE id=$1
	`, id, string(OrderRejected))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("production order %d not found", id)
	}
	return nil
}

func (r *Repo) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM production_orders WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("production order %d not found", id)
	}
	return nil
}

/* Batches */

func (r *Repo) CreateBatch(ctx context.Context, b Batch) (*Batch, error) {
	if b.Status == "" {
		b.Status = "pending"
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO batches (batch_number, order_id, status, operator_id, notes)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, batch_number, order_id, status, operator_id, COALESCE(notes,''), created_at
	`, b.BatchNumber, b.OrderID, b.Status, b.OperatorID, b.Notes)

	var out Batch
	if err := row.Scan(&out.ID, &out.BatchNumber, &out.OrderID, &out.Status, &out.OperatorID, &out.Notes, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repo) ListBatches(ctx context.Context) ([]Batch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, batch_number, order_id, status, operator_id, COALESCE(notes,''), created_at
		FROM batches ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.BatchNumber, &b.OrderID, &b.Status, &b.OperatorID, &b.Notes, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

/* Batch material dispensing */

func (r *Repo) CreateDispensing(ctx context.Context, d Dispensing) (*Dispensing, error) {
	if d.Status == "" {
		d.Status = "pending"
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO batch_dispensing (batch_id, material_id, planned_quantity, actual_quantity, dispensed_by, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, batch_id, material_id, planned_quantity, actual_quantity, dispensed_by, status, created_at
	`, d.BatchID, d.MaterialID, d.PlannedQuantity, d.ActualQuantity, d.DispensedBy, d.Status)

	var out Dispensing
	if err := row.Scan(&out.ID, &out.BatchID, &out.MaterialID, &out.PlannedQuantity, &out.ActualQuantity, &out.DispensedBy, &out.Status, &out.CreatedAt); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repo) ListDispensing(ctx context.Context) ([]Dispensing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, batch_id, material_id, planned_quantity, actual_quantity, dispensed_by, status, created_at
		FROM batch_dispensing ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dispensing
	for rows.Next() {
		var d Dispensing
		if err := rows.Scan(&d.ID, &d.BatchID, &d.MaterialID, &d.PlannedQuantity, &d.ActualQuantity, &d.DispensedBy, &d.Status, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row, o *Order) error {
	return row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.FormulaID,
		&o.BatchSize,
		&o.ScheduledDate,
		&o.Status,
		&o.CreatedBy,
		&o.Notes,
		&o.BarcodeID,
		&o.CreatedAt,
	)
}
