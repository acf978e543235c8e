package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/domain/reservation"
	"github.com/example/tablebook/internal/render"
)

func newReservationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservations",
		Short: "Inspect reservations",
	}
	cmd.AddCommand(newReservationsListCmd())
	return cmd
}

func newReservationsListCmd() *cobra.Command {
	var date string
	var all bool

	c := &cobra.Command{
		Use:   "list",
		Short: "List reservations for a date (default today) or all of them",
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

			out := cmd.OutOrStdout()
			if all {
				rs, err := store.ListAll(ctx)
				if err != nil {
					return err
				}
				for _, r := range rs {
					fmt.Fprintf(out, "#%d\t%s\t%s\ttable %s\t%s\t%s\t%d\n",
						r.ID, r.Date, r.Time, r.TableNumber, r.GuestName, r.Phone, r.Guests)
				}
				return nil
			}

			if date == "" {
				date = reservation.Today(time.Now(), cfg.Location())
			}
			rs, err := store.ListByDate(ctx, date)
			if err != nil {
				return err
			}
			reservation.SortByTime(rs)
			fmt.Fprint(out, render.DayList(date, rs))
			return nil
		},
	}

	c.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD)")
	c.Flags().BoolVar(&all, "all", false, "list every reservation")
	return c
}
