package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tablebook/internal/interval"
	"tablebook/internal/model"
)

// Block sources. Layout blocks are replaced on every sync; manual ones are kept.
const (
	SourceLayout = "layout"
	SourceManual = "manual"
)

// ListBlocksOn returns active blocks whose date range contains date.
func (db *DB) ListBlocksOn(ctx context.Context, date time.Time) ([]model.Block, error) {
	day := interval.FormatDate(date)
	rows, err := db.QueryContext(ctx, `
		SELECT id, scope_type, scope_ref_id, start_date, end_date, start_time, end_time,
		       reason, is_active, created_at, updated_at
		FROM blocks
		WHERE is_active = 1 AND start_date <= ? AND end_date >= ?
		ORDER BY id`,
		day, day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blocks []model.Block
	for rows.Next() {
		var b model.Block
		var scopeType, startDate, endDate, startTime, endTime string
		var reason sql.NullString
		if err := rows.Scan(
			&b.ID, &scopeType, &b.Scope.RefID, &startDate, &endDate, &startTime, &endTime,
			&reason, &b.IsActive, &b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if b.Scope.Type, err = model.ParseScopeType(scopeType); err != nil {
			return nil, fmt.Errorf("block %d: %w", b.ID, err)
		}
		from, err := interval.ParseDate(startDate)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b.ID, err)
		}
		to, err := interval.ParseDate(endDate)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", b.ID, err)
		}
		if b.Dates, err = interval.NewDateInterval(from, to); err != nil {
			return nil, fmt.Errorf("block %d: %w", b.ID, err)
		}
		if b.Range, err = interval.ParseTimeInterval(startTime, endTime); err != nil {
			return nil, fmt.Errorf("block %d: %w", b.ID, err)
		}
		if reason.Valid {
			b.Reason = reason.String
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertBlock(ctx context.Context, ex execer, b *model.Block, source string, now time.Time) (int64, error) {
	res, err := ex.ExecContext(ctx, `
		INSERT INTO blocks (
			scope_type, scope_ref_id, start_date, end_date, start_time, end_time,
			reason, source, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(b.Scope.Type), b.Scope.RefID,
		interval.FormatDate(b.Dates.Start), interval.FormatDate(b.Dates.End),
		b.Range.Start.String(), b.Range.End.String(),
		b.Reason, source, boolToInt(b.IsActive), now, now,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CreateBlock stores a manual block.
func (db *DB) CreateBlock(ctx context.Context, b *model.Block) (int64, error) {
	if b == nil {
		return 0, fmt.Errorf("block is nil")
	}
	if err := b.Scope.Validate(); err != nil {
		return 0, err
	}
	id, err := insertBlock(ctx, db, b, SourceManual, time.Now())
	if err != nil {
		return 0, err
	}
	b.ID = id
	return id, nil
}

// DeactivateBlock turns a block off without deleting it.
func (db *DB) DeactivateBlock(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `UPDATE blocks SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: block %d", model.ErrNotFound, id)
	}
	return nil
}
