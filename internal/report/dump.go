package report

import (
	"context"
	"fmt"
	"io"
	"time"
)

// TableExporter provides access to database tables for export.
type TableExporter interface {
	GetTableNames(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, tableName string) ([]map[string]any, []string, error)
}

// DumpFilename names a full export taken at t.
func DumpFilename(t time.Time) string {
	return fmt.Sprintf("tablebook_dump_%s.xlsx", t.Format("20060102_150405"))
}

// WriteDump exports every table into its own sheet and returns the row count.
func WriteDump(ctx context.Context, src TableExporter, out io.Writer) (int, error) {
	names, err := src.GetTableNames(ctx)
	if err != nil {
		return 0, fmt.Errorf("get table names: %w", err)
	}
	if len(names) == 0 {
		return 0, fmt.Errorf("no tables to export")
	}

	w := NewWriter()
	defer w.Close()

	total := 0
	for _, name := range names {
		rows, columns, err := src.GetTableData(ctx, name)
		if err != nil {
			return total, fmt.Errorf("get data for %s: %w", name, err)
		}
		if err := w.AddSheet(name); err != nil {
			return total, err
		}
		if err := w.WriteHeader(columns); err != nil {
			return total, err
		}
		for _, row := range rows {
			values := make([]any, len(columns))
			for i, col := range columns {
				values[i] = row[col]
			}
			if err := w.WriteRow(values); err != nil {
				return total, err
			}
			total++
		}
	}

	if err := w.Save(out); err != nil {
		return total, fmt.Errorf("save workbook: %w", err)
	}
	return total, nil
}
