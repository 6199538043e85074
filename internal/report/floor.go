package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"tablebook/internal/interval"
	"tablebook/internal/model"
)

// FloorSource supplies the data behind a floor sheet.
type FloorSource interface {
	ListSaloons(ctx context.Context) ([]model.Saloon, error)
	ListActiveTables(ctx context.Context) ([]model.Table, error)
	ListReservationsOn(ctx context.Context, date time.Time, statuses []model.Status) ([]model.Reservation, error)
}

var floorColumns = []string{"Table", "Seats", "Time", "Until", "Guests", "Status", "Override", "Customer", "Phone", "Notes"}

// FloorFilename names the floor report of date.
func FloorFilename(date time.Time) string {
	return fmt.Sprintf("floor_%s.xlsx", interval.FormatDate(date))
}

// WriteFloor renders one sheet per saloon listing the active reservations of
// date. Tables without reservations appear as a bare row so the sheet doubles
// as a floor plan.
func WriteFloor(ctx context.Context, src FloorSource, date time.Time, out io.Writer) error {
	saloons, err := src.ListSaloons(ctx)
	if err != nil {
		return fmt.Errorf("list saloons: %w", err)
	}
	tables, err := src.ListActiveTables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	reservations, err := src.ListReservationsOn(ctx, date, model.ActiveStatuses)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}

	byTable := make(map[int64][]model.Reservation)
	for _, r := range reservations {
		byTable[r.TableID] = append(byTable[r.TableID], r)
	}
	bySaloon := make(map[int64][]model.Table)
	for _, t := range tables {
		bySaloon[t.SaloonID] = append(bySaloon[t.SaloonID], t)
	}

	w := NewWriter()
	defer w.Close()

	if len(saloons) == 0 {
		if err := w.AddSheet(interval.FormatDate(date)); err != nil {
			return err
		}
		if err := w.WriteHeader(floorColumns); err != nil {
			return err
		}
	}

	for _, s := range saloons {
		if err := w.AddSheet(s.Name); err != nil {
			return err
		}
		if err := w.WriteHeader(floorColumns); err != nil {
			return err
		}
		for _, t := range bySaloon[s.ID] {
			rows := byTable[t.ID]
			if len(rows) == 0 {
				if err := w.WriteRow([]any{t.Name, t.Capacity}); err != nil {
					return err
				}
				continue
			}
			for _, r := range rows {
				if err := w.WriteRow([]any{
					t.Name, t.Capacity, r.Time.String(), r.End().String(), r.Guests,
					string(r.Status), r.Override, r.CustomerName, r.CustomerPhone, r.Notes,
				}); err != nil {
					return err
				}
			}
		}
	}

	return w.Save(out)
}
