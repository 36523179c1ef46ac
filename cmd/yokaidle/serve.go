package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/config"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/handlers"
	httpapi "github.com/mixel34p/Yo-kaidle-sub002/internal/http"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/repos"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/services"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/webpush"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the cloud sync and push API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
}

func openDB(ctx context.Context, cfg config.Config) (*sql.DB, repos.Dialect, error) {
	dialect, err := repos.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, "", err
	}
	db, err := sql.Open(dialect.DriverName(), cfg.Database.URL)
	if err != nil {
		return nil, "", fmt.Errorf("open database: %w", err)
	}
	if dialect == repos.DialectSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("ping database: %w", err)
	}
	if err := repos.Migrate(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, "", err
	}
	return db, dialect, nil
}

func newPushService(cfg config.Config, db *sql.DB, dialect repos.Dialect, logger *logging.Logger) *services.PushService {
	var sender services.Sender
	if cfg.PushConfigured() {
		sender = webpush.NewSender(webpush.Options{
			PublicKey:  cfg.Push.VAPIDPublicKey,
			PrivateKey: cfg.Push.VAPIDPrivateKey,
			Subject:    cfg.Push.Subject,
			TTL:        cfg.Push.TTLSeconds,
		})
	} else {
		logger.Warnf("VAPID keys not set, push delivery disabled")
	}
	return services.NewPushService(repos.NewPushRepo(db, dialect), sender, cfg.Push.VAPIDPublicKey, logger)
}

func runServe(cfg config.Config) error {
	logger := logging.New(cfg.LogLevel)
	ctx, stop := signalContext()
	defer stop()

	db, dialect, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Infof("database ready (%s)", dialect)

	syncSvc := services.NewSyncService(repos.NewSyncRepo(db, dialect))
	pushSvc := newPushService(cfg, db, dialect, logger)

	if cfg.Push.ReminderEnabled {
		if err := startReminder(ctx, cfg, pushSvc, logger); err != nil {
			return err
		}
	}

	router := httpapi.NewRouter(cfg, logger, handlers.NewSyncHandler(syncSvc), handlers.NewPushHandler(pushSvc))
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	return listenAndServe(ctx, srv, logger)
}

func startReminder(ctx context.Context, cfg config.Config, push *services.PushService, logger *logging.Logger) error {
	hour, minute, err := cfg.ReminderClock()
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(cfg.Push.ReminderZone)
	if err != nil {
		return fmt.Errorf("reminder timezone: %w", err)
	}
	go services.NewReminderScheduler(push, hour, minute, loc, logger).Run(ctx)
	logger.Infof("daily reminder scheduled at %02d:%02d %s", hour, minute, loc)
	return nil
}
