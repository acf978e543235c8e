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

func newWaiterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waiter",
		Short: "Manage waiter table assignments",
	}
	cmd.AddCommand(newWaiterAssignCmd())
	return cmd
}

func newWaiterAssignCmd() *cobra.Command {
	var waiter, name, date, tables string

	c := &cobra.Command{
		Use:   "assign",
		Short: "Set the tables a waiter covers on a date",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := reservation.ParseTableList(tables)
			if len(list) == 0 {
				return fmt.Errorf("no tables in %q", tables)
			}

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

			if date == "" {
				date = reservation.Today(time.Now(), cfg.Location())
			}
			a := reservation.WaiterAssignment{WaiterID: waiter, WaiterName: name, Date: date, Tables: list}
			if err := store.SetWaiterTables(ctx, a); err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), render.TablesSet(date, list))
			return nil
		},
	}

	c.Flags().StringVar(&waiter, "waiter", "", "waiter id (phone digits)")
	c.Flags().StringVar(&name, "name", "", "waiter display name")
	c.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD), default today")
	c.Flags().StringVar(&tables, "tables", "", `tables, e.g. "11-14, 16"`)
	_ = c.MarkFlagRequired("waiter")
	_ = c.MarkFlagRequired("tables")
	return c
}
