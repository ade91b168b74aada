package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/arena-battle-client/internal/arena"
	"github.com/DoyleJ11/arena-battle-client/internal/config"
	"github.com/DoyleJ11/arena-battle-client/internal/conn"
	"github.com/DoyleJ11/arena-battle-client/internal/httpapi"
	"github.com/DoyleJ11/arena-battle-client/internal/hub"
	"github.com/DoyleJ11/arena-battle-client/internal/journal"
	"github.com/DoyleJ11/arena-battle-client/internal/logging"
	"github.com/DoyleJ11/arena-battle-client/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local control surface",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connOpts := conn.DefaultOptions(cfg.WSBaseURL)
	connOpts.MaxAttempts = cfg.MaxReconnectAttempts
	connOpts.BaseDelay = cfg.ReconnectBaseDelay
	sessCfg := session.Config{Conn: connOpts, Log: log}

	deps := httpapi.Deps{
		Arena:      arena.NewClient(cfg.ArenaBaseURL, nil, log),
		OperatorID: cfg.OperatorID,
		Log:        log,
	}
	if cfg.DatabaseURL != "" {
		store, err := journal.Open(cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer store.Close()
		sessCfg.Archiver = store
		deps.Archive = store
	}

	h := hub.NewHub(ctx, sessCfg)
	deps.Hub = h

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.SetupRoutes(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		select {
		case h.Inbox() <- hub.ShutdownHub{}:
		case <-h.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
