package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/domain/reservation"
)

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured store is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := toolConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			store, err := openStore(ctx, cfg, false, log)
			if err != nil {
				return err
			}
			defer store.Close()

			today := reservation.Today(time.Now(), cfg.Location())
			rs, err := store.ListByDate(ctx, today)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d reservations today)\n", cfg.StoreDriver, len(rs))
			return nil
		},
	}
}
