package materials

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

func (r *Repo) Create(ctx context.Context, m Material) (*Material, error) {
	if m.Title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if m.MinimumQuantity > m.MaximumQuantity {
		return nil, fmt.Errorf("minimum quantity exceeds maximum")
	}
	if m.CurrentQuantity < m.MinimumQuantity || m.CurrentQuantity > m.MaximumQuantity {
		return nil, fmt.Errorf("current quantity outside [min, max]")
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO materials (title, location, current_quantity, minimum_quantity, maximum_quantity)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, title, COALESCE(location,''), current_quantity, minimum_quantity, maximum_quantity, created_at
	`, m.Title, m.Location, m.CurrentQuantity, m.MinimumQuantity, m.MaximumQuantity)

	var out Material
	if err := scanMaterial(row, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*Material, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, COALESCE(location,''), current_quantity, minimum_quantity, maximum_quantity, created_at
		FROM materials
		WHERE id = $1
	`, id)
	var m Material
	if err := scanMaterial(row, &m); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) List(ctx context.Context) ([]Material, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, COALESCE(location,''), current_quantity, minimum_quantity, maximum_quantity, created_at
		FROM materials
		ORDER BY title
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Material
	for rows.Next() {
		var m Material
		if err := scanMaterial(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMaterial(row pgx.Row, m *Material) error {
	return row.Scan(
		&m.ID,
		&m.Title,
		&m.Location,
		&m.CurrentQuantity,
		&m.MinimumQuantity,
		&m.MaximumQuantity,
		&m.CreatedAt,
	)
}
