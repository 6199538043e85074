package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"tablebook/internal/interval"
	"tablebook/internal/model"
)

const reservationColumns = `id, table_id, date, time, duration, guests, status, override,
	customer_name, customer_phone, notes, created_at, updated_at`

func scanReservation(s interface{ Scan(...any) error }) (*model.Reservation, error) {
	var r model.Reservation
	var date, clock, status string
	var name, phone, notes sql.NullString
	if err := s.Scan(
		&r.ID, &r.TableID, &date, &clock, &r.Duration, &r.Guests, &status, &r.Override,
		&name, &phone, &notes, &r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if r.Date, err = interval.ParseDate(date); err != nil {
		return nil, fmt.Errorf("reservation %d: %w", r.ID, err)
	}
	if r.Time, err = interval.ParseClock(clock); err != nil {
		return nil, fmt.Errorf("reservation %d: %w", r.ID, err)
	}
	if r.Status, err = model.ParseStatus(status); err != nil {
		return nil, fmt.Errorf("reservation %d: %w", r.ID, err)
	}
	if name.Valid {
		r.CustomerName = name.String
	}
	if phone.Valid {
		r.CustomerPhone = phone.String
	}
	if notes.Valid {
		r.Notes = notes.String
	}
	return &r, nil
}

func statusArgs(statuses []model.Status) (string, []any) {
	marks := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, s := range statuses {
		marks[i] = "?"
		args[i] = string(s)
	}
	return strings.Join(marks, ", "), args
}

// ListReservations returns reservations of a table dated within [from, to]
// whose status is in statuses, ordered by start.
func (db *DB) ListReservations(ctx context.Context, tableID int64, from, to time.Time, statuses []model.Status) ([]model.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	marks, args := statusArgs(statuses)
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE table_id = ? AND date >= ? AND date <= ? AND status IN (` + marks + `)
		ORDER BY starts_at, id`

	all := append([]any{tableID, interval.FormatDate(from), interval.FormatDate(to)}, args...)
	return db.queryReservations(ctx, query, all...)
}

// ListReservationsOn returns every reservation of date with a status in statuses,
// ordered by table then start.
func (db *DB) ListReservationsOn(ctx context.Context, date time.Time, statuses []model.Status) ([]model.Reservation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	marks, args := statusArgs(statuses)
	query := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE date = ? AND status IN (` + marks + `)
		ORDER BY table_id, starts_at, id`

	return db.queryReservations(ctx, query, append([]any{interval.FormatDate(date)}, args...)...)
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// GetReservation returns a reservation by id, or model.ErrNotFound.
func (db *DB) GetReservation(ctx context.Context, id int64) (*model.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: reservation %d", model.ErrNotFound, id)
	}
	return r, err
}

// InsertReservation re-checks for an overlapping active reservation and inserts
// inside one IMMEDIATE transaction, so two writers cannot both pass the check.
func (db *DB) InsertReservation(ctx context.Context, r *model.Reservation) (int64, error) {
	if r == nil {
		return 0, fmt.Errorf("reservation is nil")
	}
	if _, err := r.Slot(); err != nil {
		return 0, err
	}
	startsAt, endsAt := r.StartsAt().Unix(), r.EndsAt().Unix()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	marks, args := statusArgs(model.ActiveStatuses)
	var count int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reservations
		WHERE table_id = ? AND starts_at < ? AND ends_at > ? AND status IN (`+marks+`)`,
		append([]any{r.TableID, endsAt, startsAt}, args...)...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("check overlap: %w", err)
	}
	if count > 0 {
		return 0, fmt.Errorf("%w: table %d at %s %s", model.ErrSlotTaken, r.TableID, interval.FormatDate(r.Date), r.Time)
	}

	created, updated := r.CreatedAt, r.UpdatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if updated.IsZero() {
		updated = created
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reservations (
			table_id, date, time, duration, guests, status, override,
			customer_name, customer_phone, notes, starts_at, ends_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TableID, interval.FormatDate(r.Date), r.Time.String(), r.Duration, r.Guests,
		string(r.Status), boolToInt(r.Override), r.CustomerName, r.CustomerPhone, r.Notes,
		startsAt, endsAt, created, updated,
	)
	if err != nil {
		return 0, fmt.Errorf("insert reservation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// UpdateStatus sets status to `to` only while it is still `from`. It reports
// false when the row is missing or was changed concurrently.
func (db *DB) UpdateStatus(ctx context.Context, id int64, from, to model.Status) (bool, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE reservations SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), time.Now(), id, string(from),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
