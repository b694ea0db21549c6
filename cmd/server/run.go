package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/trivia-hub/internal/catalog"
	"github.com/DoyleJ11/trivia-hub/internal/config"
	"github.com/DoyleJ11/trivia-hub/internal/httpapi"
	"github.com/DoyleJ11/trivia-hub/internal/hub"
	"github.com/DoyleJ11/trivia-hub/internal/logging"
	"github.com/DoyleJ11/trivia-hub/internal/store"
)

const shutdownTimeout = 10 * time.Second

func openCatalog(cfg *config.Config, log *zap.Logger) (catalog.Catalog, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no database configured, catalog is in memory")
		return catalog.NewMemory(), nil
	}
	return catalog.OpenPostgres(cfg.DatabaseURL)
}

func run(parent context.Context, cfg *config.Config) (err error) {
	log, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	cat, err := openCatalog(cfg, log)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, cat.Close()) }()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	recorder := store.NewRecorder(cat, cfg.SaveTimeout, log.Named("recorder"))
	st := store.New(ctx, store.Options{
		Load:     catalog.Loader(cat),
		Roster:   catalog.Roster(cat),
		Recorder: recorder,
		Logger:   log.Named("store"),
	})
	defer st.Close()

	h := hub.New(st, hub.Options{OutboxSize: cfg.OutboxSize, Logger: log.Named("hub")})

	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Config:  cfg,
			Catalog: cat,
			Store:   st,
			Hub:     h,
			Logger:  log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return recorder.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
