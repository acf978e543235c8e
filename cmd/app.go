package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/example/tablebook/internal/config"
	"github.com/example/tablebook/internal/db"
	"github.com/example/tablebook/internal/extract"
	"github.com/example/tablebook/internal/logging"
	"github.com/example/tablebook/internal/messaging"
	"github.com/example/tablebook/internal/migrate"
	"github.com/example/tablebook/internal/notify"
	"github.com/example/tablebook/internal/reservations"
	"github.com/example/tablebook/internal/sqlitestore"
	"github.com/example/tablebook/internal/whatsapp"
)

// toolConfig loads the configuration for commands that never serve the web
// board, so cookie keys are not required.
func toolConfig() (config.Config, error) {
	cfg, err := config.Read()
	if err != nil {
		return config.Config{}, err
	}
	cfg.WebEnabled = false
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(cfg config.Config, w io.Writer) (zerolog.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogPretty, w)
}

// openStore opens the configured store. Postgres migrations run when
// migrateUp is set; the SQLite schema is always applied.
func openStore(ctx context.Context, cfg config.Config, migrateUp bool, log zerolog.Logger) (reservations.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store opened")
		return s, nil
	case "postgres":
		d, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := d.Ping(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("db ping: %w", err)
		}
		if migrateUp {
			if err := migrate.Up(ctx, d, logging.Component(log, "migrate")); err != nil {
				d.Close()
				return nil, err
			}
		}
		return reservations.NewRepo(d), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func newExtractor(cfg config.Config) (*extract.Extractor, error) {
	opts := extract.Options{DepositRules: cfg.DepositRules}
	if cfg.OccasionsFile != "" {
		occ, err := extract.LoadOccasions(cfg.OccasionsFile)
		if err != nil {
			return nil, err
		}
		opts.Occasions = occ
	}
	return extract.New(opts)
}

// messenger returns the configured outbound messenger. For WhatsApp the
// returned service is connected and must be disconnected by the caller.
func messenger(ctx context.Context, cfg config.Config, log zerolog.Logger) (notify.Messenger, *whatsapp.Service, error) {
	if cfg.Messenger != "whatsapp" {
		return &messaging.LogMessenger{Log: logging.Component(log, "messenger")}, nil, nil
	}
	wa, err := whatsapp.New(ctx, cfg.WhatsAppDataDir, logging.Component(log, "whatsapp"))
	if err != nil {
		return nil, nil, err
	}
	if err := wa.Connect(ctx, os.Stdout); err != nil {
		return nil, nil, err
	}
	return wa, wa, nil
}
