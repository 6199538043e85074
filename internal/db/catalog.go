package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tablebook/internal/model"
)

const tableColumns = `id, saloon_id, name, capacity, is_active, created_at, updated_at`

func scanTable(s interface{ Scan(...any) error }) (*model.Table, error) {
	var t model.Table
	if err := s.Scan(&t.ID, &t.SaloonID, &t.Name, &t.Capacity, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTable returns a table by id, or model.ErrNotFound.
func (db *DB) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	row := db.QueryRowContext(ctx, `SELECT `+tableColumns+` FROM tables WHERE id = ?`, id)
	t, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: table %d", model.ErrNotFound, id)
	}
	return t, err
}

// ListActiveTables returns active tables ordered by id.
func (db *DB) ListActiveTables(ctx context.Context) ([]model.Table, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+tableColumns+` FROM tables WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []model.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, *t)
	}
	return tables, rows.Err()
}

// ListSaloons returns active saloons ordered by id.
func (db *DB) ListSaloons(ctx context.Context) ([]model.Saloon, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, area_id, name, is_active, created_at, updated_at
		FROM saloons WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var saloons []model.Saloon
	for rows.Next() {
		var s model.Saloon
		if err := rows.Scan(&s.ID, &s.AreaID, &s.Name, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		saloons = append(saloons, s)
	}
	return saloons, rows.Err()
}
