package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tablebook/internal/config"
	"tablebook/internal/model"
)

// SyncStats summarizes one layout sync.
type SyncStats struct {
	Tables      int
	Deactivated int
	Windows     int
	Blocks      int
}

// SyncLayout applies layout.yaml to the database in one transaction.
// It upserts areas, saloons and tables, deactivates tables missing from the
// file along with their saloons and areas, replaces weekly windows and replaces layout-owned blocks.
func (db *DB) SyncLayout(ctx context.Context, layout *config.Layout) (SyncStats, error) {
	var stats SyncStats
	if layout == nil {
		return stats, fmt.Errorf("layout is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	areas, saloons, tables := layout.Catalog()

	seenAreas := make(map[int64]struct{}, len(areas))
	for _, a := range areas {
		// Preserve created_at if the row already exists.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO areas (id, name, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			a.ID, a.Name, boolToInt(a.IsActive), now, now,
		); err != nil {
			return stats, fmt.Errorf("sync area %d: %w", a.ID, err)
		}
		seenAreas[a.ID] = struct{}{}
	}

	seenSaloons := make(map[int64]struct{}, len(saloons))
	for _, s := range saloons {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO saloons (id, area_id, name, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				area_id = excluded.area_id,
				name = excluded.name,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			s.ID, s.AreaID, s.Name, boolToInt(s.IsActive), now, now,
		); err != nil {
			return stats, fmt.Errorf("sync saloon %d: %w", s.ID, err)
		}
		seenSaloons[s.ID] = struct{}{}
	}

	seen := make(map[int64]struct{}, len(tables))
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tables (id, saloon_id, name, capacity, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				saloon_id = excluded.saloon_id,
				name = excluded.name,
				capacity = excluded.capacity,
				is_active = excluded.is_active,
				updated_at = excluded.updated_at`,
			t.ID, t.SaloonID, t.Name, t.Capacity, boolToInt(t.IsActive), now, now,
		); err != nil {
			return stats, fmt.Errorf("sync table %d: %w", t.ID, err)
		}
		seen[t.ID] = struct{}{}
		stats.Tables++
	}

	deactivated, err := deactivateMissing(ctx, tx, "tables", seen, now)
	if err != nil {
		return stats, err
	}
	stats.Deactivated = deactivated
	if _, err := deactivateMissing(ctx, tx, "saloons", seenSaloons, now); err != nil {
		return stats, err
	}
	if _, err := deactivateMissing(ctx, tx, "areas", seenAreas, now); err != nil {
		return stats, err
	}

	// Windows are owned entirely by the layout.
	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_windows`); err != nil {
		return stats, fmt.Errorf("clear windows: %w", err)
	}
	for _, w := range layout.Windows() {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO availability_windows (table_id, weekday, start_time, end_time, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, 1, ?, ?)`,
			w.TableID, w.Weekday, w.Range.Start.String(), w.Range.End.String(), now, now,
		); err != nil {
			return stats, fmt.Errorf("sync window for table %d: %w", w.TableID, err)
		}
		stats.Windows++
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM blocks WHERE source = ?`, SourceLayout); err != nil {
		return stats, fmt.Errorf("clear layout blocks: %w", err)
	}
	for _, b := range layout.BlockList() {
		blk := b
		if _, err := insertBlock(ctx, tx, &blk, SourceLayout, now); err != nil {
			return stats, fmt.Errorf("sync block %s: %w", blk.Scope, err)
		}
		stats.Blocks++
	}

	if err := tx.Commit(); err != nil {
		return stats, fmt.Errorf("commit layout: %w", err)
	}
	return stats, nil
}

// deactivateMissing marks rows of table whose id is not in seen inactive.
func deactivateMissing(ctx context.Context, tx *sql.Tx, table string, seen map[int64]struct{}, now time.Time) (int, error) {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s WHERE is_active = 1`, table))
	if err != nil {
		return 0, err
	}
	var stale []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		if _, ok := seen[id]; !ok {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET is_active = 0, updated_at = ? WHERE id = ?`, table), now, id); err != nil {
			return 0, fmt.Errorf("deactivate %s %d: %w", table, id, err)
		}
	}
	return len(stale), nil
}

// SyncStaff upserts the configured staff members.
func (db *DB) SyncStaff(ctx context.Context, staff []config.StaffConfig) error {
	for _, s := range staff {
		if s.ID <= 0 {
			return model.Invalidf("staff id must be positive, got %d", s.ID)
		}
		role := s.Role
		if role == "" {
			role = "manager"
		}
		if err := db.AddStaff(ctx, s.ID, s.Name, role); err != nil {
			return fmt.Errorf("sync staff %d: %w", s.ID, err)
		}
	}
	return nil
}
