package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/availability"
)

func newCheckCmd() *cobra.Command {
	var table, date, at string
	var exclude int64

	c := &cobra.Command{
		Use:   "check",
		Short: "Check whether a table is free at a date and time",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := toolConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}

			ctx := context.Background()
			store, err := openStore(ctx, cfg, false, log)
			if err != nil {
				return err
			}
			defer store.Close()

			existing, err := store.ListByDate(ctx, date)
			if err != nil {
				return err
			}
			res, err := availability.Checker{MinSpacing: cfg.MinSpacing()}.Check(table, date, at, existing, exclude)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Available {
				fmt.Fprintf(out, "table %s is free on %s at %s\n", table, date, at)
				return nil
			}
			fmt.Fprintf(out, "table %s is taken on %s near %s:\n", table, date, at)
			for _, c := range res.Conflicts {
				fmt.Fprintf(out, "  #%d %s %s (%d guests, %.1fh apart)\n", c.ID, c.Time, c.Name, c.Guests, c.HoursDelta)
			}
			return nil
		},
	}

	c.Flags().StringVar(&table, "table", "", "table number")
	c.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	c.Flags().StringVar(&at, "time", "", "time (HH:MM)")
	c.Flags().Int64Var(&exclude, "exclude", 0, "reservation id to ignore")
	_ = c.MarkFlagRequired("table")
	_ = c.MarkFlagRequired("date")
	_ = c.MarkFlagRequired("time")
	return c
}
