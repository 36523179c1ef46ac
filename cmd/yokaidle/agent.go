package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/cloudsync"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/config"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/events"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/handlers"
	httpapi "github.com/mixel34p/Yo-kaidle-sub002/internal/http"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/offline"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/progress"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/state"
	"github.com/spf13/cobra"
	"go.etcd.io/bbolt"
)

func newAgentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Run the on-device offline cache and progress sync agent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return runAgent(cfg)
		},
	}
}

// newHTTPClient builds the pooled client shared by the worker and the cloud sync client.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func openAgentDB(path string) (*bbolt.DB, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open agent data %s: %w", path, err)
	}
	return db, nil
}

func newWorker(cfg config.Config, db *bbolt.DB, client *http.Client, logger *logging.Logger) (*offline.Worker, error) {
	manifest, err := offline.LoadManifest(cfg.Agent.PrecacheManifest, cfg.Agent.CacheVersion)
	if err != nil {
		return nil, err
	}
	caches, err := offline.NewCacheStorage(db)
	if err != nil {
		return nil, err
	}
	return offline.NewWorker(caches, manifest, offline.Options{
		Upstream: cfg.Agent.UpstreamURL,
		Client:   client,
		Logger:   logger,
	})
}

func runAgent(cfg config.Config) error {
	logger := logging.New(cfg.LogLevel)
	ctx, stop := signalContext()
	defer stop()

	db, err := openAgentDB(cfg.Agent.DataPath)
	if err != nil {
		return err
	}
	defer db.Close()

	bus := events.NewBus()
	store, err := progress.New(db, bus)
	if err != nil {
		return err
	}
	httpClient := newHTTPClient(cfg.Agent.RequestTimeout)
	worker, err := newWorker(cfg, db, httpClient, logger)
	if err != nil {
		return err
	}
	lifecycle(ctx, worker, logger)

	enabled := cfg.Agent.CloudURL != ""
	if !enabled {
		logger.Warnf("YOKAIDLE_AGENT_CLOUD_URL not set, progress stays on this device")
	}
	st := state.NewAgentState(enabled, cfg.Agent.UserID, uuid.NewString())
	client := cloudsync.NewClient(httpClient, cfg.Agent.CloudURL, cfg.Agent.CloudToken)
	mgr := cloudsync.NewSyncManager(st, client, store, bus, cloudsync.Options{
		Interval:      cfg.Agent.SyncInterval,
		DebounceDelay: cfg.Agent.DebounceDelay,
		Logger:        logger,
	})
	if enabled {
		go mgr.Run(ctx)
	}

	router := httpapi.NewAgentRouter(logger, handlers.NewAgentHandler(store, mgr), worker)
	srv := &http.Server{Addr: ":" + cfg.Agent.Port, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	err = listenAndServe(ctx, srv, logger)
	worker.Wait()
	return err
}

// lifecycle seeds the static cache, then reaps stale versions. Failures only degrade caching.
func lifecycle(ctx context.Context, worker *offline.Worker, logger *logging.Logger) {
	if err := worker.Install(ctx); err != nil {
		logger.Warnf("precache incomplete: %v", err)
	}
	if _, err := worker.Activate(ctx); err != nil {
		logger.Warnf("cache cleanup incomplete: %v", err)
	}
}
