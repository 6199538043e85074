package db

import (
	"context"
	"fmt"

	"tablebook/internal/interval"
	"tablebook/internal/model"
)

// ListWindows returns active weekly windows of a table for weekday (0=Sunday).
func (db *DB) ListWindows(ctx context.Context, tableID int64, weekday int) ([]model.AvailabilityWindow, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, table_id, weekday, start_time, end_time, is_active, created_at, updated_at
		FROM availability_windows
		WHERE table_id = ? AND weekday = ? AND is_active = 1
		ORDER BY start_time`,
		tableID, weekday,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var windows []model.AvailabilityWindow
	for rows.Next() {
		var w model.AvailabilityWindow
		var start, end string
		if err := rows.Scan(&w.ID, &w.TableID, &w.Weekday, &start, &end, &w.IsActive, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		if w.Range, err = interval.ParseTimeInterval(start, end); err != nil {
			return nil, fmt.Errorf("window %d: %w", w.ID, err)
		}
		windows = append(windows, w)
	}
	return windows, rows.Err()
}
