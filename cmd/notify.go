package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/logging"
	"github.com/example/tablebook/internal/notify"
)

func newNotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Run waiter notifications by hand",
	}
	cmd.AddCommand(newNotifyTickCmd())
	return cmd
}

const atLayout = "2006-01-02 15:04"

func newNotifyTickCmd() *cobra.Command {
	var at string

	c := &cobra.Command{
		Use:   "tick",
		Short: "Run one notification pass now or at --at (local time)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := toolConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}

			now := time.Now()
			if at != "" {
				now, err = time.ParseInLocation(atLayout, at, cfg.Location())
				if err != nil {
					return fmt.Errorf("--at: use %q", atLayout)
				}
			}

			ctx := context.Background()
			store, err := openStore(ctx, cfg, false, log)
			if err != nil {
				return err
			}
			defer store.Close()

			msg, wa, err := messenger(ctx, cfg, log)
			if err != nil {
				return err
			}
			if wa != nil {
				defer wa.Disconnect()
			}

			e := &notify.Engine{
				Store:     store,
				Messenger: msg,
				Location:  cfg.Location(),
				Grace:     cfg.NotifyGrace,
				Log:       logging.Component(log, "notify"),
			}
			outcomes, err := e.RunTick(ctx, now)
			out := cmd.OutOrStdout()
			for _, o := range outcomes {
				status := "delivered"
				if !o.Delivered {
					status = "failed"
				}
				fmt.Fprintf(out, "#%d\t%s\t%s\t%s\n", o.ReservationID, o.WaiterID, o.Kind, status)
			}
			if len(outcomes) == 0 {
				fmt.Fprintln(out, "nothing due")
			}
			return err
		},
	}

	c.Flags().StringVar(&at, "at", "", `local time to run at, "YYYY-MM-DD HH:MM"`)
	return c
}
