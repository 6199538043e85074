package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tablebook/internal/interval"
	"tablebook/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExpandsEnvAndDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TB_TEST_KEY", "secret")

	path := writeFile(t, dir, "config.yaml", `
database:
  path: "`+filepath.Join(dir, "data", "tb.db")+`"
http:
  api_key: "${TB_TEST_KEY}"
booking:
  override_requires_staff: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.HTTP.APIKey)
	assert.Equal(t, 8080, cfg.HTTPPort())
	assert.Equal(t, 60, cfg.DefaultDuration())
	assert.Equal(t, 30, cfg.SlotStep())
	assert.Equal(t, 5*time.Second, cfg.LockTimeout())
	assert.False(t, cfg.OverrideRequiresStaff())
	assert.Equal(t, DefaultLayoutPath, cfg.Layout.Path)
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestLoad_OverrideRequiresStaffDefault(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "database:\n  path: \""+filepath.Join(dir, "tb.db")+"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.OverrideRequiresStaff())
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

const validLayout = `
defaults:
  windows:
    - days: [1, 2]
      start: "18:00"
      end: "22:00"
areas:
  - id: 1
    name: Ground
saloons:
  - id: 10
    area_id: 1
    name: Hall
tables:
  - id: 1
    saloon_id: 10
    name: T1
    capacity: 4
  - id: 2
    saloon_id: 10
    name: T2
    capacity: 2
    is_active: false
    windows:
      - days: [0]
        start: "12:00"
        end: "15:00"
closures:
  - from: "2024-12-31"
    to: "2025-01-01"
    reason: New Year
blocks:
  - scope: table
    ref_id: 1
    from: "2024-06-03"
    start: "19:00"
    end: "21:00"
    reason: Birthday setup
`

func TestLoadLayout(t *testing.T) {
	path := writeFile(t, t.TempDir(), "layout.yaml", validLayout)

	l, err := LoadLayout(path)
	require.NoError(t, err)

	areas, saloons, tables := l.Catalog()
	assert.Len(t, areas, 1)
	assert.Len(t, saloons, 1)
	require.Len(t, tables, 2)
	assert.True(t, tables[0].IsActive)
	assert.False(t, tables[1].IsActive)

	windows := l.Windows()
	require.Len(t, windows, 3)
	assert.Equal(t, int64(1), windows[0].TableID)
	assert.Equal(t, 1, windows[0].Weekday)
	assert.Equal(t, 2, windows[1].Weekday)
	assert.Equal(t, int64(2), windows[2].TableID, "own windows replace defaults")
	assert.Equal(t, 0, windows[2].Weekday)

	blocks := l.BlockList()
	require.Len(t, blocks, 2)
	assert.Equal(t, model.ScopeRestaurant, blocks[0].Scope.Type)
	assert.Equal(t, interval.Clock(interval.MinutesPerDay), blocks[0].Range.End, "closures cover the whole day")
	assert.True(t, interval.DateInRange(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), blocks[0].Dates))
	assert.Equal(t, model.TableScope(1), blocks[1].Scope)
	assert.Equal(t, interval.NewClock(19, 0), blocks[1].Range.Start)
}

func TestLayoutValidate(t *testing.T) {
	base := func() *Layout {
		return &Layout{
			Areas:   []AreaConfig{{ID: 1, Name: "Ground"}},
			Saloons: []SaloonConfig{{ID: 10, AreaID: 1, Name: "Hall"}},
			Tables:  []TableConfig{{ID: 1, SaloonID: 10, Name: "T1", Capacity: 4}},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Layout)
		errMsg string
	}{
		{"valid", func(*Layout) {}, ""},
		{"no tables", func(l *Layout) { l.Tables = nil }, "no tables defined"},
		{"duplicate table", func(l *Layout) { l.Tables = append(l.Tables, l.Tables[0]) }, "duplicate id"},
		{"zero capacity", func(l *Layout) { l.Tables[0].Capacity = 0 }, "capacity must be positive"},
		{"unknown saloon", func(l *Layout) { l.Tables[0].SaloonID = 99 }, "unknown saloon 99"},
		{"unknown area", func(l *Layout) { l.Saloons[0].AreaID = 7 }, "unknown area 7"},
		{"bad weekday", func(l *Layout) {
			l.Defaults.Windows = []WindowConfig{{Days: []int{7}, Start: "12:00", End: "15:00"}}
		}, "invalid day 7"},
		{"inverted window", func(l *Layout) {
			l.Tables[0].Windows = []WindowConfig{{Days: []int{1}, Start: "22:00", End: "18:00"}}
		}, "invalid interval"},
		{"bad closure date", func(l *Layout) {
			l.Closures = []BlockConfig{{From: "31.12.2024"}}
		}, "closures[0]"},
		{"inverted closure", func(l *Layout) {
			l.Closures = []BlockConfig{{From: "2025-01-02", To: "2025-01-01"}}
		}, "invalid interval"},
		{"block unknown table", func(l *Layout) {
			l.Blocks = []BlockConfig{{Scope: "table", RefID: 5, From: "2025-01-01"}}
		}, "unknown table 5"},
		{"block without ref", func(l *Layout) {
			l.Blocks = []BlockConfig{{Scope: "saloon", From: "2025-01-01"}}
		}, "requires a reference id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := base()
			tt.mutate(l)
			err := l.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestWatchLayout(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "layout.yaml", validLayout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var loads []*Layout
	var failures int
	err := WatchLayout(ctx, path, 10*time.Millisecond,
		func(l *Layout) {
			mu.Lock()
			defer mu.Unlock()
			loads = append(loads, l)
		},
		func(error) {
			mu.Lock()
			defer mu.Unlock()
			failures++
		})
	require.NoError(t, err)

	mu.Lock()
	require.Len(t, loads, 1)
	mu.Unlock()

	// Broken edit is reported and skipped.
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.WriteFile(path, []byte("tables: []\n"), 0o600))
	require.NoError(t, os.Chtimes(path, future, future))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return failures == 1
	}, time.Second, 5*time.Millisecond)

	later := future.Add(time.Minute)
	require.NoError(t, os.WriteFile(path, []byte(validLayout), 0o600))
	require.NoError(t, os.Chtimes(path, later, later))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(loads) == 2
	}, time.Second, 5*time.Millisecond)
}
