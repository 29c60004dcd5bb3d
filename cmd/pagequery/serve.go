package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Alp4ka/pagequery"
	"github.com/Alp4ka/pagequery/internal/config"
	"github.com/Alp4ka/pagequery/internal/logger"
	"github.com/Alp4ka/pagequery/internal/member"
	"github.com/Alp4ka/pagequery/internal/metrics"
	"github.com/Alp4ka/pagequery/internal/transport/httpapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		return serve(cmd.Context(), cfg, log)
	},
}

func serve(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	ctx = logger.ContextWithLogger(ctx, log)

	store, closeStore, err := openStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Error("Error closing store", zap.Error(err))
		}
	}()

	svc, err := newService(store, cfg)
	if err != nil {
		return err
	}

	if cfg.Database.Seed {
		if err = svc.Seed(ctx); err != nil {
			return err
		}
	}

	server := httpapi.NewServer(svc, cfg.Paging.Limits())
	handler := httpapi.NewRouter(server, log, time.Duration(cfg.HTTP.RequestTimeoutMs)*time.Millisecond)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server",
			zap.String("addr", addr),
			zap.String("orm", cfg.Database.ORM),
			zap.String("dialect", cfg.Database.Dialect),
			zap.String("policy", cfg.Paging.Policy),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-quit:
		log.Info("Received shutdown signal")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", zap.Error(err))
	}

	log.Info("Server stopped gracefully")
	return nil
}

// newService wires the member service with the configured policy and data
// source metrics.
func newService(store member.Store, cfg config.Config) (*member.Service, error) {
	policy, err := pagequery.ParsePolicy(cfg.Paging.Policy)
	if err != nil {
		return nil, err
	}

	return member.NewService(store,
		member.WithPolicy(policy),
		member.WithSourceDecorator(func(src pagequery.DataSource[member.MemberTeam]) pagequery.DataSource[member.MemberTeam] {
			return metrics.InstrumentSource(cfg.Database.ORM, src)
		}),
	), nil
}
