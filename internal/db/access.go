package db

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Staff represents a staff record.
type Staff struct {
	ID      int64
	Name    string
	Role    string
	AddedAt time.Time
}

// IsStaff checks if a user is a staff member.
func (db *DB) IsStaff(ctx context.Context, id int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM staff WHERE id = ?",
		id,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetStaff returns staff details, or nil when unknown.
func (db *DB) GetStaff(ctx context.Context, id int64) (*Staff, error) {
	var s Staff
	err := db.QueryRowContext(ctx,
		"SELECT id, name, role, added_at FROM staff WHERE id = ?",
		id,
	).Scan(&s.ID, &s.Name, &s.Role, &s.AddedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AddStaff adds or updates a staff member.
func (db *DB) AddStaff(ctx context.Context, id int64, name, role string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO staff (id, name, role, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, role = excluded.role`,
		id, name, role, time.Now(),
	)
	return err
}

// RemoveStaff removes a staff member.
func (db *DB) RemoveStaff(ctx context.Context, id int64) error {
	_, err := db.ExecContext(ctx, "DELETE FROM staff WHERE id = ?", id)
	return err
}

// ListStaff returns all staff members.
func (db *DB) ListStaff(ctx context.Context) ([]Staff, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name, role, added_at FROM staff ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []Staff
	for rows.Next() {
		var s Staff
		if err := rows.Scan(&s.ID, &s.Name, &s.Role, &s.AddedAt); err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}
	return staff, rows.Err()
}
