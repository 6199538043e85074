package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tablebook/internal/config"
	"tablebook/internal/interval"
	"tablebook/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func testLayout() *config.Layout {
	return &config.Layout{
		Defaults: config.DefaultsConfig{Windows: []config.WindowConfig{
			{Days: []int{1}, Start: "12:00", End: "15:00"},
			{Days: []int{1}, Start: "18:00", End: "22:00"},
		}},
		Areas:   []config.AreaConfig{{ID: 1, Name: "Ground"}},
		Saloons: []config.SaloonConfig{{ID: 10, AreaID: 1, Name: "Hall"}, {ID: 11, AreaID: 1, Name: "Private"}},
		Tables: []config.TableConfig{
			{ID: 1, SaloonID: 10, Name: "T1", Capacity: 4},
			{ID: 2, SaloonID: 10, Name: "T2", Capacity: 2},
			{ID: 3, SaloonID: 11, Name: "P1", Capacity: 10},
		},
		Closures: []config.BlockConfig{{From: "2024-12-31", To: "2025-01-01", Reason: "New Year"}},
		Blocks:   []config.BlockConfig{{Scope: "saloon", RefID: 11, From: "2024-06-03", Start: "19:00", End: "21:00", Reason: "Private party"}},
	}
}

func syncedDB(t *testing.T) *DB {
	t.Helper()
	database := newTestDB(t)
	layout := testLayout()
	require.NoError(t, layout.Validate())
	_, err := database.SyncLayout(context.Background(), layout)
	require.NoError(t, err)
	return database
}

func reservation(tableID int64, clock string, duration int) *model.Reservation {
	c, _ := interval.ParseClock(clock)
	return &model.Reservation{
		TableID: tableID, Date: monday, Time: c, Duration: duration, Guests: 2, Status: model.StatusPending,
		CustomerName: "Jane", CustomerPhone: "+100200300",
	}
}

func TestSyncLayout(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	stats, err := database.SyncLayout(ctx, testLayout())
	require.NoError(t, err)
	assert.Equal(t, SyncStats{Tables: 3, Windows: 6, Blocks: 2}, stats)

	tables, err := database.ListActiveTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 3)
	assert.Equal(t, "T1", tables[0].Name)

	windows, err := database.ListWindows(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, windows, 2)
	assert.Equal(t, interval.NewClock(12, 0), windows[0].Range.Start)

	blocks, err := database.ListBlocksOn(ctx, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, model.ScopeRestaurant, blocks[0].Scope.Type)
	assert.Equal(t, "New Year", blocks[0].Reason)

	// Second sync drops a table and must not duplicate layout blocks.
	layout := testLayout()
	layout.Tables = layout.Tables[:2]
	layout.Saloons = layout.Saloons[:1]
	layout.Blocks = nil
	stats, err = database.SyncLayout(ctx, layout)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Deactivated)
	assert.Equal(t, 1, stats.Blocks)

	tables, err = database.ListActiveTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 2)

	saloons, err := database.ListSaloons(ctx)
	require.NoError(t, err)
	assert.Len(t, saloons, 1)

	gone, err := database.GetTable(ctx, 3)
	require.NoError(t, err)
	assert.False(t, gone.IsActive)

	blocks, err = database.ListBlocksOn(ctx, monday)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestSyncLayout_KeepsManualBlocks(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)

	manual := &model.Block{
		Scope: model.TableScope(1), Dates: interval.SingleDay(monday),
		Range: interval.TimeInterval{Start: interval.NewClock(12, 0), End: interval.NewClock(13, 0)},
		Reason: "repair", IsActive: true,
	}
	id, err := database.CreateBlock(ctx, manual)
	require.NoError(t, err)
	assert.NotZero(t, id)

	_, err = database.SyncLayout(ctx, testLayout())
	require.NoError(t, err)

	blocks, err := database.ListBlocksOn(ctx, monday)
	require.NoError(t, err)
	assert.Len(t, blocks, 2, "manual block plus saloon block")

	require.NoError(t, database.DeactivateBlock(ctx, id))
	blocks, err = database.ListBlocksOn(ctx, monday)
	require.NoError(t, err)
	assert.Len(t, blocks, 1)

	assert.ErrorIs(t, database.DeactivateBlock(ctx, 9999), model.ErrNotFound)
}

func TestGetTable_NotFound(t *testing.T) {
	_, err := newTestDB(t).GetTable(context.Background(), 42)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInsertReservation(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)

	id, err := database.InsertReservation(ctx, reservation(1, "19:00", 90))
	require.NoError(t, err)

	got, err := database.GetReservation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, interval.NewClock(19, 0), got.Time)
	assert.Equal(t, monday, got.Date)
	assert.Equal(t, "Jane", got.CustomerName)
	assert.Equal(t, model.StatusPending, got.Status)

	_, err = database.InsertReservation(ctx, reservation(1, "19:30", 60))
	assert.ErrorIs(t, err, model.ErrSlotTaken)

	_, err = database.InsertReservation(ctx, reservation(1, "20:30", 60))
	assert.NoError(t, err, "touching ranges do not overlap")

	_, err = database.InsertReservation(ctx, reservation(2, "19:30", 60))
	assert.NoError(t, err, "other table")

	_, err = database.GetReservation(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestInsertReservation_RejectsOversizedDuration(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)

	_, err := database.InsertReservation(ctx, reservation(1, "19:00", 90))
	require.NoError(t, err)

	_, err = database.InsertReservation(ctx, reservation(1, "18:00", 200_000_000))
	assert.ErrorIs(t, err, interval.ErrInvalidInterval)

	rows, err := database.ListReservationsOn(ctx, monday, model.ActiveStatuses)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestInsertReservation_SpillsIntoNextDay(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)

	tuesday := reservation(1, "00:00", 60)
	tuesday.Date = monday.AddDate(0, 0, 1)
	_, err := database.InsertReservation(ctx, tuesday)
	require.NoError(t, err)

	_, err = database.InsertReservation(ctx, reservation(1, "23:30", 60))
	assert.ErrorIs(t, err, model.ErrSlotTaken)

	_, err = database.InsertReservation(ctx, reservation(1, "23:00", 60))
	assert.NoError(t, err, "ends exactly at midnight")
}

func TestInsertReservation_CancelledDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)

	id, err := database.InsertReservation(ctx, reservation(1, "19:00", 60))
	require.NoError(t, err)

	ok, err := database.UpdateStatus(ctx, id, model.StatusPending, model.StatusCancelled)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = database.InsertReservation(ctx, reservation(1, "19:00", 60))
	assert.NoError(t, err)
}

func TestInsertReservation_Concurrent(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := database.InsertReservation(ctx, reservation(1, "19:00", 60))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, taken int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, model.ErrSlotTaken):
			taken++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, taken)
}

func TestListReservations(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)

	a, err := database.InsertReservation(ctx, reservation(1, "12:00", 60))
	require.NoError(t, err)
	b, err := database.InsertReservation(ctx, reservation(1, "19:00", 60))
	require.NoError(t, err)
	_, err = database.InsertReservation(ctx, reservation(2, "19:00", 60))
	require.NoError(t, err)

	ok, err := database.UpdateStatus(ctx, a, model.StatusPending, model.StatusCancelled)
	require.NoError(t, err)
	require.True(t, ok)

	active, err := database.ListReservations(ctx, 1, monday, monday, model.ActiveStatuses)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, b, active[0].ID)

	all, err := database.ListReservations(ctx, 1, monday.AddDate(0, 0, -1), monday, model.AllStatuses)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := database.ListReservations(ctx, 1, monday, monday, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	day, err := database.ListReservationsOn(ctx, monday, model.ActiveStatuses)
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, int64(1), day[0].TableID)
	assert.Equal(t, int64(2), day[1].TableID)
}

func TestUpdateStatus_CompareAndSet(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)

	id, err := database.InsertReservation(ctx, reservation(1, "19:00", 60))
	require.NoError(t, err)

	ok, err := database.UpdateStatus(ctx, id, model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = database.UpdateStatus(ctx, id, model.StatusPending, model.StatusCancelled)
	require.NoError(t, err)
	assert.False(t, ok, "stale previous status")

	ok, err = database.UpdateStatus(ctx, 404, model.StatusPending, model.StatusConfirmed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStaff(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)

	require.NoError(t, database.SyncStaff(ctx, []config.StaffConfig{{ID: 7, Name: "Anna"}}))

	ok, err := database.IsStaff(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)

	s, err := database.GetStaff(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "manager", s.Role)

	missing, err := database.GetStaff(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, database.RemoveStaff(ctx, 7))
	list, err := database.ListStaff(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, database.SyncStaff(ctx, []config.StaffConfig{{ID: 0}}), model.ErrInvalidInput)
}

func TestGetTableData(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)

	names, err := database.GetTableNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "reservations")

	rows, cols, err := database.GetTableData(ctx, "tables")
	require.NoError(t, err)
	assert.Contains(t, cols, "capacity")
	require.Len(t, rows, 3)
	assert.Equal(t, "T1", rows[0]["name"])

	empty, cols, err := database.GetTableData(ctx, "reservations")
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Contains(t, cols, "starts_at", "columns are reported for empty tables")

	names[0] = "sqlite_master"
	_, _, err = database.GetTableData(ctx, "sqlite_master")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, _, err = database.GetTableData(ctx, "sqlite_master; DROP TABLE tables")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestBackup(t *testing.T) {
	ctx := context.Background()
	database := syncedDB(t)
	dir := t.TempDir()

	dest := filepath.Join(dir, "nested", "tablebook_20240603.db")
	require.NoError(t, database.Backup(ctx, dest))
	assert.FileExists(t, dest)
	assert.Error(t, database.Backup(ctx, dest), "refuses to overwrite")

	copyDB, err := NewDB(dest)
	require.NoError(t, err)
	defer copyDB.Close()
	tables, err := copyDB.ListActiveTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 3)

	old := filepath.Join(dir, "nested", "old.db")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0o600))
	past := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	deleted, err := database.CleanupBackups(filepath.Join(dir, "nested"), 14*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.NoFileExists(t, old)
	assert.FileExists(t, dest)
}
