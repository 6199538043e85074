package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"tablebook/internal/config"
	"tablebook/internal/interval"
	"tablebook/internal/slots"

	"github.com/spf13/cobra"
)

func newSlotsCmd(flags *rootFlags) *cobra.Command {
	var tableID int64
	var date string
	var duration, step int

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Show free ranges of a table on a date",
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
			if duration == 0 {
				duration = a.cfg.DefaultDuration()
			}
			if step == 0 {
				step = a.cfg.SlotStep()
			}

			found, err := a.finder.FreeStarts(cmd.Context(), tableID, day, duration, step)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			groups := slots.Consecutive(found, step)
			if len(groups) == 0 {
				fmt.Fprintln(out, "no free slots")
				return nil
			}
			for _, g := range groups {
				first, last := g[0], g[len(g)-1]
				if len(g) == 1 {
					fmt.Fprintf(out, "start %s (%s)\n", first.Start, slots.FormatDuration(duration))
					continue
				}
				fmt.Fprintf(out, "start %s-%s (%d starts, %s each)\n",
					first.Start, last.Start, len(g), slots.FormatDuration(duration))
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&tableID, "table", 0, "table id")
	cmd.Flags().StringVar(&date, "date", "", "date, YYYY-MM-DD")
	cmd.Flags().IntVar(&duration, "duration", 0, "minutes (default from config)")
	cmd.Flags().IntVar(&step, "step", 0, "minutes between starts (default from config)")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newBlockCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Manage manual blocks",
	}

	var bc config.BlockConfig
	add := &cobra.Command{
		Use:   "add",
		Short: "Block a restaurant, saloon or table for a date range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			b, err := bc.ToBlock()
			if err != nil {
				return err
			}
			id, err := a.db.CreateBlock(cmd.Context(), &b)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "block %d: %s %s %s\n", id, b.Scope, b.Dates, b.Range)
			return nil
		},
	}
	add.Flags().StringVar(&bc.Scope, "scope", "restaurant", "restaurant, saloon or table")
	add.Flags().Int64Var(&bc.RefID, "ref", 0, "saloon or table id")
	add.Flags().StringVar(&bc.From, "from", "", "first date, YYYY-MM-DD")
	add.Flags().StringVar(&bc.To, "to", "", "last date, YYYY-MM-DD (default: from)")
	add.Flags().StringVar(&bc.Start, "start", "", "HH:MM (default: 00:00)")
	add.Flags().StringVar(&bc.End, "end", "", "HH:MM (default: 24:00)")
	add.Flags().StringVar(&bc.Reason, "reason", "", "reason")
	_ = add.MarkFlagRequired("from")

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Deactivate a block",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid block id %q", args[0])
			}
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.db.DeactivateBlock(cmd.Context(), id)
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

func newStaffCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Inspect staff allowed to override",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List staff members",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			staff, err := a.db.ListStaff(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tROLE")
			for _, s := range staff {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", s.ID, s.Name, s.Role)
			}
			return tw.Flush()
		},
	}

	remove := &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a staff member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid staff id %q", args[0])
			}
			a, err := newApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.db.RemoveStaff(cmd.Context(), id)
		},
	}

	cmd.AddCommand(list, remove)
	return cmd
}
