package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"tablebook/internal/interval"
	"tablebook/internal/report"

	"github.com/spf13/cobra"
)

func newSyncCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Apply the layout file and staff list to the database once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.syncLayout(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tables: %d, deactivated: %d, windows: %d, blocks: %d\n",
				stats.Tables, stats.Deactivated, stats.Windows, stats.Blocks)
			return nil
		},
	}
}

// slotFlags are the date/time/duration flags shared by query commands.
type slotFlags struct {
	date     string
	time     string
	duration int
}

func (f *slotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.time, "time", "", "start time, HH:MM")
	cmd.Flags().IntVar(&f.duration, "duration", 0, "minutes (default from config)")
	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("time")
}

func (f *slotFlags) parse(defaultDuration int) (time.Time, interval.Clock, int, error) {
	date, err := interval.ParseDate(f.date)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	start, err := interval.ParseClock(f.time)
	if err != nil {
		return time.Time{}, 0, 0, err
	}
	duration := f.duration
	if duration == 0 {
		duration = defaultDuration
	}
	return date, start, duration, nil
}

func newCheckCmd(flags *rootFlags) *cobra.Command {
	var sf slotFlags
	var tableID int64

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Explain whether a table is available for a slot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			date, start, duration, err := sf.parse(a.cfg.DefaultDuration())
			if err != nil {
				return err
			}
			c, err := a.engine.CheckTable(cmd.Context(), tableID, date, start, duration)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "table %d on %s at %s for %d min\n", tableID, interval.FormatDate(date), start, duration)
			fmt.Fprintf(out, "available:       %t\n", c.IsAvailable)
			fmt.Fprintf(out, "within hours:    %t\n", c.IsAvailableDay)
			fmt.Fprintf(out, "blocked:         %t\n", c.HasBlocks)
			for _, b := range c.Blocks {
				fmt.Fprintf(out, "  block %d %s %s %s %s\n", b.ID, b.Scope, b.Dates, b.Range, b.Reason)
			}
			fmt.Fprintf(out, "overlapping:     %d\n", len(c.OtherReservations))
			for i := range c.OtherReservations {
				r := &c.OtherReservations[i]
				fmt.Fprintf(out, "  reservation %d %s %s-%s %s\n", r.ID, interval.FormatDate(r.Date), r.Time, r.End(), r.Status)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&tableID, "table", 0, "table id")
	_ = cmd.MarkFlagRequired("table")
	sf.register(cmd)
	return cmd
}

func newTablesCmd(flags *rootFlags) *cobra.Command {
	var sf slotFlags
	var guests int
	var override bool

	cmd := &cobra.Command{
		Use:   "tables",
		Short: "List tables available for a party",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			date, start, duration, err := sf.parse(a.cfg.DefaultDuration())
			if err != nil {
				return err
			}
			tables, err := a.engine.ListAvailableTables(cmd.Context(), date, start, duration, guests, override)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSALOON\tSEATS")
			for _, t := range tables {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\n", t.ID, t.Name, t.SaloonID, t.Capacity)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&guests, "guests", 2, "party size")
	cmd.Flags().BoolVar(&override, "override", false, "ignore opening hours and blocks")
	sf.register(cmd)
	return cmd
}

func newReportCmd(flags *rootFlags) *cobra.Command {
	var date, outDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the floor sheet of a date as xlsx",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			day, err := interval.ParseDate(date)
			if err != nil {
				return err
			}
			path := filepath.Join(outDir, report.FloorFilename(day))
			if err := writeFile(path, func(f *os.File) error {
				return report.WriteFloor(cmd.Context(), a.db, day, f)
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", time.Now().Format(interval.DateLayout), "date, YYYY-MM-DD")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}

func newDumpCmd(flags *rootFlags) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Export every database table into an xlsx workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			path := filepath.Join(outDir, report.DumpFilename(time.Now()))
			var rows int
			if err := writeFile(path, func(f *os.File) error {
				rows, err = report.WriteDump(cmd.Context(), a.db, f)
				return err
			}); err != nil {
				return err
			}
			a.logger.Info().Str("path", path).Int("rows", rows).Msg("dump written")
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	return cmd
}

// writeFile creates path and removes it again if write fails.
func writeFile(path string, write func(*os.File) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

