package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	// A missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	configPath string
	layoutPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:           "tablebook",
		Short:         "Restaurant table availability and reservations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", os.Getenv("TABLEBOOK_CONFIG_PATH"), "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.layoutPath, "layout", "", "path to layout.yaml (overrides config)")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newServeCmd(flags))
	root.AddCommand(newSyncCmd(flags))
	root.AddCommand(newCheckCmd(flags))
	root.AddCommand(newTablesCmd(flags))
	root.AddCommand(newReportCmd(flags))
	root.AddCommand(newDumpCmd(flags))
	root.AddCommand(newSlotsCmd(flags))
	root.AddCommand(newBlockCmd(flags))
	root.AddCommand(newStaffCmd(flags))

	return root
}

func newLogger(level string, verbose bool) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	return logger.Level(lvl)
}
