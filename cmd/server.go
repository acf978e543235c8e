package cmd

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/example/tablebook/internal/auth"
	"github.com/example/tablebook/internal/availability"
	"github.com/example/tablebook/internal/bot"
	"github.com/example/tablebook/internal/config"
	"github.com/example/tablebook/internal/logging"
	"github.com/example/tablebook/internal/notify"
	"github.com/example/tablebook/internal/scheduler"
	"github.com/example/tablebook/internal/web"
)

func newServerCmd() *cobra.Command {
	var migrateUp, console bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the chat bot, notification scheduler and web board",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg, os.Stderr)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			store, err := openStore(ctx, cfg, migrateUp, log)
			if err != nil {
				return err
			}
			defer store.Close()

			ex, err := newExtractor(cfg)
			if err != nil {
				return err
			}
			msg, wa, err := messenger(ctx, cfg, log)
			if err != nil {
				return err
			}
			if wa != nil {
				defer wa.Disconnect()
			}

			loc := cfg.Location()
			b := bot.New(store, msg, bot.Options{
				Extractor: ex,
				Checker:   availability.Checker{MinSpacing: cfg.MinSpacing()},
				Staff:     cfg.StaffIDs,
				Location:  loc,
				Year:      cfg.ReferenceYear,
				Log:       logging.Component(log, "bot"),
			})
			if wa != nil {
				wa.SetMessageHandler(b.Handle)
			}
			if console {
				go readConsole(ctx, os.Stdin, consoleSender(cfg), b.Handle, log)
			}

			// scheduler
			s := &scheduler.Scheduler{
				Engine: &notify.Engine{
					Store:     store,
					Messenger: msg,
					Location:  loc,
					Grace:     cfg.NotifyGrace,
					Log:       logging.Component(log, "notify"),
				},
				Store:           store,
				Messenger:       msg,
				Staff:           cfg.StaffIDs,
				Location:        loc,
				Interval:        cfg.PollInterval,
				MorningReportAt: cfg.MorningReportAt,
				CleanupAt:       cfg.CleanupAt,
				RetentionDays:   cfg.RetentionDays,
				Log:             logging.Component(log, "scheduler"),
			}
			go func() { _ = s.Run(ctx) }()

			if !cfg.WebEnabled {
				<-ctx.Done()
				return nil
			}

			// web
			hash, block, err := cfg.CookieKeys()
			if err != nil {
				return err
			}
			ws := &web.Server{
				Auth:         auth.NewStore(store, hash, block),
				Reservations: store,
				Location:     loc,
				Log:          logging.Component(log, "web"),
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), logging.Component(log, "web"))
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().BoolVar(&console, "console", false, "also read chat messages from stdin, one per line")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}

// consoleSender is the sender id stdin messages are attributed to.
func consoleSender(cfg config.Config) string {
	if len(cfg.StaffIDs) > 0 {
		return cfg.StaffIDs[0]
	}
	return "console"
}

func readConsole(ctx context.Context, r io.Reader, sender string, handle func(context.Context, string, string) error, log zerolog.Logger) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := handle(ctx, sender, line); err != nil {
			log.Error().Err(err).Msg("console message")
		}
	}
}
