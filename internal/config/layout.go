package config

import (
	"fmt"
	"os"

	"tablebook/internal/interval"
	"tablebook/internal/model"

	"gopkg.in/yaml.v3"
)

// DefaultLayoutPath is used when the config does not name a layout file.
const DefaultLayoutPath = "configs/layout.yaml"

// AreaConfig represents a floor area.
type AreaConfig struct {
	ID     int64  `yaml:"id"`
	Name   string `yaml:"name"`
	Active *bool  `yaml:"is_active,omitempty"`
}

// SaloonConfig represents a dining room inside an area.
type SaloonConfig struct {
	ID     int64  `yaml:"id"`
	AreaID int64  `yaml:"area_id"`
	Name   string `yaml:"name"`
	Active *bool  `yaml:"is_active,omitempty"`
}

// WindowConfig is a weekly opening range applied to each listed weekday.
type WindowConfig struct {
	Days  []int  `yaml:"days"`  // 0=Sun .. 6=Sat
	Start string `yaml:"start"` // "12:00"
	End   string `yaml:"end"`   // "15:00"
}

// TableConfig represents a bookable table.
type TableConfig struct {
	ID       int64          `yaml:"id"`
	SaloonID int64          `yaml:"saloon_id"`
	Name     string         `yaml:"name"`
	Capacity int            `yaml:"capacity"`
	Active   *bool          `yaml:"is_active,omitempty"`
	Windows  []WindowConfig `yaml:"windows,omitempty"`
}

// BlockConfig closes a date range. Scope defaults to restaurant; start/end
// default to the whole day.
type BlockConfig struct {
	Scope  string `yaml:"scope,omitempty"` // restaurant | saloon | table
	RefID  int64  `yaml:"ref_id,omitempty"`
	From   string `yaml:"from"`         // "2024-12-31"
	To     string `yaml:"to,omitempty"` // defaults to From
	Start  string `yaml:"start,omitempty"`
	End    string `yaml:"end,omitempty"`
	Reason string `yaml:"reason"`
}

// DefaultsConfig holds settings shared by every table.
type DefaultsConfig struct {
	Windows []WindowConfig `yaml:"windows"`
}

// Layout is the root of layout.yaml.
type Layout struct {
	Defaults DefaultsConfig `yaml:"defaults"`
	Areas    []AreaConfig   `yaml:"areas"`
	Saloons  []SaloonConfig `yaml:"saloons"`
	Tables   []TableConfig  `yaml:"tables"`
	Closures []BlockConfig  `yaml:"closures"`
	Blocks   []BlockConfig  `yaml:"blocks"`
}

func isActive(b *bool) bool {
	return b == nil || *b
}

// LoadLayout loads and validates the layout file.
func LoadLayout(path string) (*Layout, error) {
	if path == "" {
		path = DefaultLayoutPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}

	var l Layout
	if err := yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	if err := l.Validate(); err != nil {
		return nil, fmt.Errorf("validate layout: %w", err)
	}
	return &l, nil
}

// Validate checks ids, references, weekdays, clock ranges and date ranges.
func (l *Layout) Validate() error {
	if len(l.Tables) == 0 {
		return fmt.Errorf("no tables defined")
	}

	areas := make(map[int64]bool)
	for i, a := range l.Areas {
		if a.ID <= 0 {
			return fmt.Errorf("areas[%d]: id must be positive, got %d", i, a.ID)
		}
		if areas[a.ID] {
			return fmt.Errorf("areas[%d]: duplicate id %d", i, a.ID)
		}
		if a.Name == "" {
			return fmt.Errorf("areas[%d]: name is required", i)
		}
		areas[a.ID] = true
	}

	saloons := make(map[int64]bool)
	for i, s := range l.Saloons {
		if s.ID <= 0 {
			return fmt.Errorf("saloons[%d]: id must be positive, got %d", i, s.ID)
		}
		if saloons[s.ID] {
			return fmt.Errorf("saloons[%d]: duplicate id %d", i, s.ID)
		}
		if s.Name == "" {
			return fmt.Errorf("saloons[%d]: name is required", i)
		}
		if !areas[s.AreaID] {
			return fmt.Errorf("saloons[%d]: unknown area %d", i, s.AreaID)
		}
		saloons[s.ID] = true
	}

	for i, w := range l.Defaults.Windows {
		if err := validateWindow(w, fmt.Sprintf("defaults.windows[%d]", i)); err != nil {
			return err
		}
	}

	tables := make(map[int64]bool)
	names := make(map[string]bool)
	for i, t := range l.Tables {
		if t.ID <= 0 {
			return fmt.Errorf("tables[%d]: id must be positive, got %d", i, t.ID)
		}
		if tables[t.ID] {
			return fmt.Errorf("tables[%d]: duplicate id %d", i, t.ID)
		}
		if t.Name == "" {
			return fmt.Errorf("tables[%d]: name is required", i)
		}
		if names[t.Name] {
			return fmt.Errorf("tables[%d]: duplicate name '%s'", i, t.Name)
		}
		if t.Capacity <= 0 {
			return fmt.Errorf("tables[%d]: capacity must be positive", i)
		}
		if !saloons[t.SaloonID] {
			return fmt.Errorf("tables[%d]: unknown saloon %d", i, t.SaloonID)
		}
		for j, w := range t.Windows {
			if err := validateWindow(w, fmt.Sprintf("tables[%d].windows[%d]", i, j)); err != nil {
				return err
			}
		}
		tables[t.ID] = true
		names[t.Name] = true
	}

	for i, c := range l.Closures {
		if c.Scope != "" && c.Scope != string(model.ScopeRestaurant) {
			return fmt.Errorf("closures[%d]: closures apply to the whole restaurant", i)
		}
		if _, err := c.ToBlock(); err != nil {
			return fmt.Errorf("closures[%d]: %w", i, err)
		}
	}

	for i, b := range l.Blocks {
		blk, err := b.ToBlock()
		if err != nil {
			return fmt.Errorf("blocks[%d]: %w", i, err)
		}
		switch blk.Scope.Type {
		case model.ScopeSaloon:
			if !saloons[blk.Scope.RefID] {
				return fmt.Errorf("blocks[%d]: unknown saloon %d", i, blk.Scope.RefID)
			}
		case model.ScopeTable:
			if !tables[blk.Scope.RefID] {
				return fmt.Errorf("blocks[%d]: unknown table %d", i, blk.Scope.RefID)
			}
		}
	}

	return nil
}

func validateWindow(w WindowConfig, prefix string) error {
	if len(w.Days) == 0 {
		return fmt.Errorf("%s.days is required", prefix)
	}
	for _, d := range w.Days {
		if !model.ValidWeekday(d) {
			return fmt.Errorf("%s.days: invalid day %d, must be 0-6 (0=Sun)", prefix, d)
		}
	}
	if _, err := interval.ParseTimeInterval(w.Start, w.End); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}

// ToBlock converts a block entry to a model.Block, defaulting to the whole restaurant and day.
func (b BlockConfig) ToBlock() (model.Block, error) {
	scope := model.RestaurantScope()
	if b.Scope != "" {
		st, err := model.ParseScopeType(b.Scope)
		if err != nil {
			return model.Block{}, err
		}
		scope = model.Scope{Type: st, RefID: b.RefID}
	}
	if err := scope.Validate(); err != nil {
		return model.Block{}, err
	}

	from, err := interval.ParseDate(b.From)
	if err != nil {
		return model.Block{}, err
	}
	to := from
	if b.To != "" {
		if to, err = interval.ParseDate(b.To); err != nil {
			return model.Block{}, err
		}
	}
	dates, err := interval.NewDateInterval(from, to)
	if err != nil {
		return model.Block{}, err
	}

	start, end := b.Start, b.End
	if start == "" {
		start = "00:00"
	}
	if end == "" {
		end = "24:00"
	}
	r, err := interval.ParseTimeInterval(start, end)
	if err != nil {
		return model.Block{}, err
	}

	return model.Block{Scope: scope, Dates: dates, Range: r, Reason: b.Reason, IsActive: true}, nil
}

// Catalog returns the areas, saloons and tables declared in the layout.
func (l *Layout) Catalog() ([]model.Area, []model.Saloon, []model.Table) {
	areas := make([]model.Area, 0, len(l.Areas))
	for _, a := range l.Areas {
		areas = append(areas, model.Area{ID: a.ID, Name: a.Name, IsActive: isActive(a.Active)})
	}
	saloons := make([]model.Saloon, 0, len(l.Saloons))
	for _, s := range l.Saloons {
		saloons = append(saloons, model.Saloon{ID: s.ID, AreaID: s.AreaID, Name: s.Name, IsActive: isActive(s.Active)})
	}
	tables := make([]model.Table, 0, len(l.Tables))
	for _, t := range l.Tables {
		tables = append(tables, model.Table{
			ID: t.ID, SaloonID: t.SaloonID, Name: t.Name, Capacity: t.Capacity, IsActive: isActive(t.Active),
		})
	}
	return areas, saloons, tables
}

// Windows expands weekly windows per table. Tables without their own windows
// get the defaults. Must be called on a validated layout.
func (l *Layout) Windows() []model.AvailabilityWindow {
	var out []model.AvailabilityWindow
	for _, t := range l.Tables {
		source := t.Windows
		if len(source) == 0 {
			source = l.Defaults.Windows
		}
		for _, w := range source {
			r, err := interval.ParseTimeInterval(w.Start, w.End)
			if err != nil {
				continue
			}
			for _, d := range w.Days {
				out = append(out, model.AvailabilityWindow{TableID: t.ID, Weekday: d, Range: r, IsActive: true})
			}
		}
	}
	return out
}

// BlockList returns closures followed by scoped blocks. Must be called on a
// validated layout.
func (l *Layout) BlockList() []model.Block {
	out := make([]model.Block, 0, len(l.Closures)+len(l.Blocks))
	for _, set := range [][]BlockConfig{l.Closures, l.Blocks} {
		for _, b := range set {
			blk, err := b.ToBlock()
			if err != nil {
				continue
			}
			out = append(out, blk)
		}
	}
	return out
}

// String returns a summary of the layout.
func (l *Layout) String() string {
	active := 0
	for _, t := range l.Tables {
		if isActive(t.Active) {
			active++
		}
	}
	return fmt.Sprintf("Layout: %d saloons, %d tables (%d active), %d closures, %d blocks",
		len(l.Saloons), len(l.Tables), active, len(l.Closures), len(l.Blocks))
}
