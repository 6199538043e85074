package db

import (
	"context"
	"fmt"
	"slices"

	"tablebook/internal/model"
)

// dumpTables lists the store tables in dependency order.
var dumpTables = []string{
	"areas",
	"saloons",
	"tables",
	"availability_windows",
	"blocks",
	"reservations",
	"staff",
}

// GetTableNames returns the tables included in a full dump.
func (db *DB) GetTableNames(context.Context) ([]string, error) {
	return slices.Clone(dumpTables), nil
}

// GetTableData returns every row of name keyed by column, plus the column order.
// Only tables from GetTableNames are accepted; the name is spliced into SQL.
func (db *DB) GetTableData(ctx context.Context, name string) ([]map[string]any, []string, error) {
	if !slices.Contains(dumpTables, name) {
		return nil, nil, fmt.Errorf("%w: unknown table %q", model.ErrInvalidInput, name)
	}

	rows, err := db.QueryContext(ctx, `SELECT * FROM `+name+` ORDER BY rowid`)
	if err != nil {
		return nil, nil, fmt.Errorf("dump %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("dump %s columns: %w", name, err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("dump %s: %w", name, err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			// sqlite hands TEXT back as []byte through an untyped scan.
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, columns, rows.Err()
}
